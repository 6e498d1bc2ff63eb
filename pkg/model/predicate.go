package model

import (
	"strings"

	"github.com/sigi-k/vogdbAPI/internal/util"
	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
)

// predicate is one WHERE term with its arguments, written with "?".
type predicate struct {
	sql  string
	args []any
}

func eq(col string, v any) predicate {
	return predicate{sql: col + " = ?", args: []any{v}}
}

func inSet[T int64 | string](d mydb.Dialect, col string, values []T) predicate {
	frag, arg := mydb.InSet(d, col, util.Unique(values))
	return predicate{sql: frag, args: []any{arg}}
}

// containsAll requires every value as a substring of col.
func containsAll(d mydb.Dialect, col string, values []string) predicate {
	values = util.Unique(values)
	terms := make([]string, len(values))
	args := make([]any, len(values))
	for i, v := range values {
		terms[i] = d.Contains(col)
		args[i] = v
	}
	return predicate{sql: "(" + strings.Join(terms, " AND ") + ")", args: args}
}

func between(col string, r Range) []predicate {
	var out []predicate
	if r.Min != nil {
		out = append(out, predicate{sql: col + " >= ?", args: []any{*r.Min}})
	}
	if r.Max != nil {
		out = append(out, predicate{sql: col + " <= ?", args: []any{*r.Max}})
	}
	return out
}

// existsMember is true when some membership row links outer to one of values.
func existsMember[T int64 | string](d mydb.Dialect, join, outer, col string, values []T) predicate {
	in := inSet(d, "em."+col, values)
	return predicate{
		sql:  "EXISTS (SELECT 1 FROM vog_membership em WHERE em." + join + " = " + outer + " AND " + in.sql + ")",
		args: in.args,
	}
}

// species_profile s
func speciesPredicates(d mydb.Dialect, f SpeciesFilter) []predicate {
	var preds []predicate
	if len(f.TaxonIDs) > 0 {
		preds = append(preds, inSet(d, "s.taxon_id", f.TaxonIDs))
	}
	if len(f.Names) > 0 {
		preds = append(preds, containsAll(d, "s.species_name", f.Names))
	}
	if f.Phage != nil {
		preds = append(preds, eq("s.phage", *f.Phage))
	}
	if f.Source != nil {
		preds = append(preds, containsAll(d, "s.source", []string{*f.Source}))
	}
	return preds
}

// protein_profile p, joined with species_profile s when names are given
func proteinPredicates(d mydb.Dialect, f ProteinFilter) []predicate {
	var preds []predicate
	if len(f.TaxonIDs) > 0 {
		preds = append(preds, inSet(d, "p.taxon_id", f.TaxonIDs))
	}
	if len(f.VOGIDs) > 0 {
		preds = append(preds, existsMember(d, "protein_id", "p.protein_id", "vog_id", f.VOGIDs))
	}
	if len(f.SpeciesNames) > 0 {
		preds = append(preds, containsAll(d, "s.species_name", f.SpeciesNames))
	}
	return preds
}

// vog_profile v, everything except species and tax_id which go through the resolver
func vogPredicates(d mydb.Dialect, f VOGFilter) []predicate {
	var preds []predicate
	if len(f.IDs) > 0 {
		preds = append(preds, inSet(d, "v.vog_id", f.IDs))
	}
	preds = append(preds, between("v.protein_count", f.ProteinCount)...)
	preds = append(preds, between("v.species_count", f.SpeciesCount)...)
	preds = append(preds, between("v.genomes_total_in_lca", f.GenomesTotalInLCA)...)
	preds = append(preds, between("v.genomes_in_group", f.GenomesInGroup)...)

	if len(f.Functions) > 0 {
		preds = append(preds, containsAll(d, "v.functional_category", f.Functions))
	}
	if len(f.ConsensusFunctions) > 0 {
		preds = append(preds, containsAll(d, "v.consensus_function", f.ConsensusFunctions))
	}
	if len(f.Ancestors) > 0 {
		preds = append(preds, containsAll(d, "v.ancestors", f.Ancestors))
	}

	flags := []struct {
		col string
		v   *bool
	}{
		{"v.h_stringency", f.HStringency},
		{"v.m_stringency", f.MStringency},
		{"v.l_stringency", f.LStringency},
		{"v.virus_specific", f.VirusSpecific},
	}
	for _, fl := range flags {
		if fl.v != nil {
			preds = append(preds, eq(fl.col, *fl.v))
		}
	}

	if f.PhagesNonphages != nil {
		preds = append(preds, containsAll(d, "v.phages_nonphages", []string{*f.PhagesNonphages}))
	}
	if len(f.Proteins) > 0 {
		preds = append(preds, existsMember(d, "vog_id", "v.vog_id", "protein_id", f.Proteins))
	}
	return preds
}

// selectQuery is SELECT cols FROM from [WHERE ...] [GROUP BY ...] [HAVING ...] [ORDER BY ...]
type selectQuery struct {
	cols    string
	from    string
	where   []predicate
	groupBy string
	having  *predicate
	orderBy string
}

func (q selectQuery) build(d mydb.Dialect) (string, []any) {
	var sb strings.Builder
	var args []any

	sb.WriteString("SELECT ")
	sb.WriteString(q.cols)
	sb.WriteString(" FROM ")
	sb.WriteString(q.from)

	for i, p := range q.where {
		if i == 0 {
			sb.WriteString(" WHERE ")
		} else {
			sb.WriteString(" AND ")
		}
		sb.WriteString(p.sql)
		args = append(args, p.args...)
	}
	if q.groupBy != "" {
		sb.WriteString(" GROUP BY ")
		sb.WriteString(q.groupBy)
	}
	if q.having != nil {
		sb.WriteString(" HAVING ")
		sb.WriteString(q.having.sql)
		args = append(args, q.having.args...)
	}
	if q.orderBy != "" {
		sb.WriteString(" ORDER BY ")
		sb.WriteString(q.orderBy)
	}
	return d.Rebind(sb.String()), args
}
