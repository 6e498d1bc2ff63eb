package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/sigi-k/vogdbAPI/internal/util"
	"github.com/sigi-k/vogdbAPI/logger"
	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
	"github.com/sigi-k/vogdbAPI/pkg/taxonomy"
)

const membershipFrom = `vog_membership m
	JOIN protein_profile p ON p.protein_id = m.protein_id`

const membershipSpeciesFrom = membershipFrom + `
	JOIN species_profile s ON s.taxon_id = p.taxon_id`

// membership holds the species and tax_id part of a VOG search once the
// taxon ids are expanded. Expansion happens before any query runs.
type membership struct {
	species []string
	// one expanded subtree per distinct tax_id value
	taxa  [][]int64
	union bool
}

func newMembership(ctx context.Context, taxa taxonomy.Expander, f VOGFilter) (*membership, error) {
	if !f.hasMembership() {
		return nil, nil
	}
	m := &membership{species: util.Unique(f.Species), union: f.union()}
	for _, id := range util.Unique(f.TaxIDs) {
		set, err := taxa.Expand(ctx, id)
		if errors.Is(err, ErrInvalidTaxonID) {
			return nil, err
		}
		if err != nil {
			return nil, mydb.Unavailable(fmt.Errorf("fail to expand taxon %d: %w", id, err))
		}
		m.taxa = append(m.taxa, set)
	}
	return m, nil
}

// resolve returns the sorted VOG ids that satisfy the species and tax_id
// filters. The two filters are always ANDed; union only changes how the
// values inside one filter combine.
func (m *membership) resolve(ctx context.Context, conn *sql.Conn, d mydb.Dialect) ([]string, error) {
	var result []string
	have := false

	if len(m.species) > 0 {
		var err error
		if m.union {
			result, err = m.anySpecies(ctx, conn, d)
		} else {
			result, err = m.allSpecies(ctx, conn, d)
		}
		if err != nil {
			return nil, err
		}
		if len(result) == 0 {
			return result, nil
		}
		have = true
	}

	if len(m.taxa) > 0 {
		var restrict []string
		if have {
			restrict = result
		}
		var err error
		var byTaxa []string
		if m.union {
			byTaxa, err = m.anyTaxon(ctx, conn, d, restrict)
		} else {
			byTaxa, err = m.allTaxa(ctx, conn, d, restrict)
		}
		if err != nil {
			return nil, err
		}
		if have {
			byTaxa = util.Intersect(result, byTaxa)
		}
		result = byTaxa
	}
	return result, nil
}

// VOGs with a member in any of the named species.
func (m *membership) anySpecies(ctx context.Context, conn *sql.Conn, d mydb.Dialect) ([]string, error) {
	q := selectQuery{
		cols:  "DISTINCT m.vog_id",
		from:  membershipSpeciesFrom,
		where: []predicate{inSet(d, "s.species_name", m.species)},
	}
	return candidates(ctx, conn, d, q)
}

// VOGs with a member in every named species. Names are matched exactly so
// one GROUP BY ... HAVING count query is the intersection of the per-name
// candidate sets.
func (m *membership) allSpecies(ctx context.Context, conn *sql.Conn, d mydb.Dialect) ([]string, error) {
	q := selectQuery{
		cols:    "m.vog_id",
		from:    membershipSpeciesFrom,
		where:   []predicate{inSet(d, "s.species_name", m.species)},
		groupBy: "m.vog_id",
		having:  &predicate{sql: "COUNT(DISTINCT s.species_name) = ?", args: []any{int64(len(m.species))}},
	}
	return candidates(ctx, conn, d, q)
}

// VOGs with a member anywhere in the union of the subtrees.
func (m *membership) anyTaxon(ctx context.Context, conn *sql.Conn, d mydb.Dialect, restrict []string) ([]string, error) {
	var all []int64
	for _, set := range m.taxa {
		all = append(all, set...)
	}
	where := []predicate{inSet(d, "p.taxon_id", all)}
	if restrict != nil {
		where = append(where, inSet(d, "m.vog_id", restrict))
	}
	q := selectQuery{
		cols:  "DISTINCT m.vog_id",
		from:  membershipFrom,
		where: where,
	}
	return candidates(ctx, conn, d, q)
}

// VOGs with a member in each subtree. Subtrees may overlap, so every value
// gets its own candidate query, each one restricted to the running
// intersection. An empty candidate set ends the walk.
func (m *membership) allTaxa(ctx context.Context, conn *sql.Conn, d mydb.Dialect, restrict []string) ([]string, error) {
	running := restrict
	for i, set := range m.taxa {
		where := []predicate{inSet(d, "p.taxon_id", set)}
		if running != nil {
			where = append(where, inSet(d, "m.vog_id", running))
		}
		q := selectQuery{
			cols:  "DISTINCT m.vog_id",
			from:  membershipFrom,
			where: where,
		}
		got, err := candidates(ctx, conn, d, q)
		if err != nil {
			return nil, err
		}
		if len(got) == 0 {
			logger.Debug("Tax id intersection is empty", zap.Int("after_values", i+1))
			return got, nil
		}
		running = got
	}
	return running, nil
}

func candidates(ctx context.Context, conn *sql.Conn, d mydb.Dialect, q selectQuery) ([]string, error) {
	query, args := q.build(d)
	ids, err := mydb.Column[string](ctx, conn, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fail to resolve membership: %w", err)
	}
	// byte order for util.Intersect, postgres rejects DISTINCT with a collated ORDER BY
	return util.Unique(ids), nil
}
