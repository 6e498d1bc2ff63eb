package model

import (
	"errors"
	"fmt"
)

// Range is an inclusive bound pair, either side optional.
type Range struct {
	Min *int64
	Max *int64
}

func (r Range) present() bool {
	return r.Min != nil || r.Max != nil
}

func (r Range) validate(name string) error {
	if r.Min != nil && *r.Min < 0 {
		return fmt.Errorf("%w: %s minimum %d is negative", ErrInvalidRange, name, *r.Min)
	}
	if r.Max != nil && *r.Max < 0 {
		return fmt.Errorf("%w: %s maximum %d is negative", ErrInvalidRange, name, *r.Max)
	}
	if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
		return fmt.Errorf("%w: %s minimum %d is larger than maximum %d", ErrInvalidRange, name, *r.Min, *r.Max)
	}
	return nil
}

// SpeciesFilter: TaxonIDs match any, Names must all be contained in the
// species name (case sensitive), Source is contained in the source.
type SpeciesFilter struct {
	TaxonIDs []int64
	Names    []string
	Phage    *bool
	Source   *string
}

func (f SpeciesFilter) Validate() error {
	if len(f.TaxonIDs) == 0 && len(f.Names) == 0 && f.Phage == nil && f.Source == nil {
		return ErrEmptyQuery
	}
	return nil
}

// ProteinFilter: TaxonIDs match any, VOGIDs match proteins in any of the
// VOGs, SpeciesNames must all be contained in the owning species name.
type ProteinFilter struct {
	TaxonIDs     []int64
	VOGIDs       []string
	SpeciesNames []string
}

func (f ProteinFilter) Validate() error {
	if len(f.TaxonIDs) == 0 && len(f.VOGIDs) == 0 && len(f.SpeciesNames) == 0 {
		return ErrEmptyQuery
	}
	return nil
}

// VOGFilter: text sets (Functions, ConsensusFunctions, Ancestors) are
// ANDed contains, Species and TaxIDs are resolved against the membership
// edges, in intersection mode unless Union is true.
type VOGFilter struct {
	IDs []string

	ProteinCount      Range // pmin, pmax
	SpeciesCount      Range // smin, smax
	GenomesTotalInLCA Range // mingLCA, maxgLCA
	GenomesInGroup    Range // mingGLCA, maxgGLCA

	Functions          []string
	ConsensusFunctions []string
	Ancestors          []string

	HStringency     *bool
	MStringency     *bool
	LStringency     *bool
	VirusSpecific   *bool
	PhagesNonphages *string

	Proteins []string
	Species  []string
	TaxIDs   []int64
	Union    *bool
}

func (f VOGFilter) union() bool {
	return f.Union != nil && *f.Union
}

func (f VOGFilter) hasMembership() bool {
	return len(f.Species) > 0 || len(f.TaxIDs) > 0
}

// Validate checks ranges first, then union usage, then that some filter is
// given. Union alone is a modifier and does not count as a filter.
func (f VOGFilter) Validate() error {
	ranges := []struct {
		name string
		r    Range
	}{
		{"protein_count", f.ProteinCount},
		{"species_count", f.SpeciesCount},
		{"genomes_total_in_lca", f.GenomesTotalInLCA},
		{"genomes_in_group", f.GenomesInGroup},
	}
	var errs []error
	for _, rg := range ranges {
		if err := rg.r.validate(rg.name); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	if f.union() && distinctStrings(f.Species) < 2 && distinctInts(f.TaxIDs) < 2 {
		return ErrInvalidUnionUsage
	}

	empty := len(f.IDs) == 0 &&
		!f.ProteinCount.present() && !f.SpeciesCount.present() &&
		!f.GenomesTotalInLCA.present() && !f.GenomesInGroup.present() &&
		len(f.Functions) == 0 && len(f.ConsensusFunctions) == 0 && len(f.Ancestors) == 0 &&
		f.HStringency == nil && f.MStringency == nil && f.LStringency == nil &&
		f.VirusSpecific == nil && f.PhagesNonphages == nil &&
		len(f.Proteins) == 0 && !f.hasMembership()
	if empty {
		return ErrEmptyQuery
	}
	return nil
}

func distinctStrings(v []string) int {
	seen := make(map[string]struct{}, len(v))
	for _, s := range v {
		seen[s] = struct{}{}
	}
	return len(seen)
}

func distinctInts(v []int64) int {
	seen := make(map[int64]struct{}, len(v))
	for _, s := range v {
		seen[s] = struct{}{}
	}
	return len(seen)
}
