package model

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/sigi-k/vogdbAPI/internal/util"
	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
)

// The summaries return records for the ids that exist, in id order. An
// empty id list (an empty search result) gives an empty result; ids that
// all miss give ErrNotFound.

func SpeciesSummary(ctx context.Context, vdb *mydb.VOGDB, ids []int64) ([]Species, error) {
	out := make([]Species, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	d := vdb.Dialect()
	query, args := selectQuery{
		cols:    "s.taxon_id, s.species_name, s.phage, s.source, s.version",
		from:    "species_profile s",
		where:   []predicate{inSet(d, "s.taxon_id", ids)},
		orderBy: "s.taxon_id",
	}.build(d)

	err := vdb.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return mydb.Unavailable(err)
		}
		defer rows.Close()
		for rows.Next() {
			var s Species
			if err := rows.Scan(&s.TaxonID, &s.SpeciesName, &s.Phage, &s.Source, &s.Version); err != nil {
				return mydb.Unavailable(err)
			}
			out = append(out, s)
		}
		return mydb.Unavailable(rows.Err())
	})
	if err != nil {
		return nil, fmt.Errorf("fail to get species: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: species %v", ErrNotFound, ids)
	}
	return out, nil
}

func ProteinSummary(ctx context.Context, vdb *mydb.VOGDB, ids []string) ([]Protein, error) {
	out := make([]Protein, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	d := vdb.Dialect()
	query, args := selectQuery{
		cols:    "p.protein_id, p.taxon_id, s.species_name",
		from:    "protein_profile p JOIN species_profile s ON s.taxon_id = p.taxon_id",
		where:   []predicate{inSet(d, "p.protein_id", ids)},
		orderBy: d.OrderText("p.protein_id"),
	}.build(d)
	memberQuery, memberArgs := selectQuery{
		cols:    "m.protein_id, m.vog_id",
		from:    "vog_membership m",
		where:   []predicate{inSet(d, "m.protein_id", ids)},
		orderBy: d.OrderText("m.vog_id"),
	}.build(d)

	err := vdb.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return mydb.Unavailable(err)
		}
		defer rows.Close()
		for rows.Next() {
			p := Protein{VOGIDs: []string{}}
			if err := rows.Scan(&p.ID, &p.TaxonID, &p.SpeciesName); err != nil {
				return mydb.Unavailable(err)
			}
			out = append(out, p)
		}
		if err := rows.Err(); err != nil {
			return mydb.Unavailable(err)
		}
		rows.Close()
		if len(out) == 0 {
			return nil
		}

		members, err := pairs(ctx, conn, memberQuery, memberArgs)
		if err != nil {
			return err
		}
		for i := range out {
			if v, ok := members[out[i].ID]; ok {
				out[i].VOGIDs = v
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fail to get proteins: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: proteins %v", ErrNotFound, ids)
	}
	return out, nil
}

func VOGSummary(ctx context.Context, vdb *mydb.VOGDB, ids []string) ([]VOG, error) {
	out := make([]VOG, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	d := vdb.Dialect()
	query, args := selectQuery{
		cols: `v.vog_id, v.protein_count, v.species_count, v.functional_category, v.consensus_function,
			v.genomes_in_group, v.genomes_total_in_lca, v.ancestors,
			v.h_stringency, v.m_stringency, v.l_stringency, v.virus_specific,
			v.num_phages, v.num_nonphages, v.phages_nonphages`,
		from:    "vog_profile v",
		where:   []predicate{inSet(d, "v.vog_id", ids)},
		orderBy: d.OrderText("v.vog_id"),
	}.build(d)
	memberQuery, memberArgs := selectQuery{
		cols:    "m.vog_id, m.protein_id",
		from:    "vog_membership m",
		where:   []predicate{inSet(d, "m.vog_id", ids)},
		orderBy: d.OrderText("m.protein_id"),
	}.build(d)

	err := vdb.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return mydb.Unavailable(err)
		}
		defer rows.Close()
		for rows.Next() {
			v := VOG{Proteins: []string{}}
			var ancestors sql.NullString
			err := rows.Scan(&v.ID, &v.ProteinCount, &v.SpeciesCount, &v.FunctionalCategory, &v.ConsensusFunction,
				&v.GenomesInGroup, &v.GenomesTotalInLCA, &ancestors,
				&v.HStringency, &v.MStringency, &v.LStringency, &v.VirusSpecific,
				&v.NumPhages, &v.NumNonPhages, &v.PhagesNonphages)
			if err != nil {
				return mydb.Unavailable(err)
			}
			if ancestors.Valid {
				v.Ancestors = &ancestors.String
			}
			out = append(out, v)
		}
		if err := rows.Err(); err != nil {
			return mydb.Unavailable(err)
		}
		rows.Close()
		if len(out) == 0 {
			return nil
		}

		members, err := pairs(ctx, conn, memberQuery, memberArgs)
		if err != nil {
			return err
		}
		for i := range out {
			if p, ok := members[out[i].ID]; ok {
				out[i].Proteins = p
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fail to get vogs: %w", err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: vogs %v", ErrNotFound, ids)
	}
	return out, nil
}

// pairs groups (key, value) rows into sorted value lists per key.
func pairs(ctx context.Context, conn *sql.Conn, query string, args []any) (map[string][]string, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, mydb.Unavailable(err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, mydb.Unavailable(err)
		}
		out[k] = append(out[k], v)
	}
	if err := rows.Err(); err != nil {
		return nil, mydb.Unavailable(err)
	}
	for k := range out {
		out[k] = util.Unique(out[k])
	}
	return out, nil
}

// DatasetVersion is the loader version stamped on the species table.
func DatasetVersion(ctx context.Context, vdb *mydb.VOGDB) (int64, error) {
	var version sql.NullInt64
	err := vdb.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		return mydb.Unavailable(conn.QueryRowContext(ctx, "SELECT MAX(version) FROM species_profile").Scan(&version))
	})
	if err != nil {
		return 0, fmt.Errorf("fail to get dataset version: %w", err)
	}
	if !version.Valid {
		return 0, fmt.Errorf("%w: dataset is empty", ErrNotFound)
	}
	return version.Int64, nil
}
