package model

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/sigi-k/vogdbAPI/logger"
	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
	"github.com/sigi-k/vogdbAPI/pkg/taxonomy"
)

// SearchSpecies returns matching taxon ids in ascending order.
func SearchSpecies(ctx context.Context, vdb *mydb.VOGDB, f SpeciesFilter) ([]int64, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	d := vdb.Dialect()
	query, args := selectQuery{
		cols:    "s.taxon_id",
		from:    "species_profile s",
		where:   speciesPredicates(d, f),
		orderBy: "s.taxon_id",
	}.build(d)

	var ids []int64
	err := vdb.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		var err error
		ids, err = mydb.Column[int64](ctx, conn, query, args...)
		return err
	})
	if err != nil {
		logger.Error("Species search failed", zap.Error(err))
		return nil, fmt.Errorf("fail to search species: %w", err)
	}

	logger.Debug("Species search", zap.String("query", query), zap.Int("results", len(ids)))
	return ids, nil
}

// SearchProteins returns matching protein ids in ascending order.
func SearchProteins(ctx context.Context, vdb *mydb.VOGDB, f ProteinFilter) ([]string, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	d := vdb.Dialect()
	from := "protein_profile p"
	if len(f.SpeciesNames) > 0 {
		from += " JOIN species_profile s ON s.taxon_id = p.taxon_id"
	}
	query, args := selectQuery{
		cols:    "p.protein_id",
		from:    from,
		where:   proteinPredicates(d, f),
		orderBy: d.OrderText("p.protein_id"),
	}.build(d)

	var ids []string
	err := vdb.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		var err error
		ids, err = mydb.Column[string](ctx, conn, query, args...)
		return err
	})
	if err != nil {
		logger.Error("Protein search failed", zap.Error(err))
		return nil, fmt.Errorf("fail to search proteins: %w", err)
	}

	logger.Debug("Protein search", zap.String("query", query), zap.Int("results", len(ids)))
	return ids, nil
}

// SearchVOGs returns matching VOG ids in ascending order. Tax ids are
// expanded with taxa before the store is touched, so an unknown taxon
// fails without running any query.
func SearchVOGs(ctx context.Context, vdb *mydb.VOGDB, taxa taxonomy.Expander, f VOGFilter) ([]string, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	members, err := newMembership(ctx, taxa, f)
	if err != nil {
		return nil, err
	}

	d := vdb.Dialect()
	preds := vogPredicates(d, f)

	var ids []string
	err = vdb.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		if members != nil {
			resolved, err := members.resolve(ctx, conn, d)
			if err != nil {
				return err
			}
			if len(resolved) == 0 {
				ids = []string{}
				return nil
			}
			preds = append(preds, inSet(d, "v.vog_id", resolved))
		}

		query, args := selectQuery{
			cols:    "v.vog_id",
			from:    "vog_profile v",
			where:   preds,
			orderBy: d.OrderText("v.vog_id"),
		}.build(d)

		var err error
		ids, err = mydb.Column[string](ctx, conn, query, args...)
		return err
	})
	if err != nil {
		logger.Error("VOG search failed", zap.Error(err))
		return nil, fmt.Errorf("fail to search vogs: %w", err)
	}

	logger.Debug("VOG search", zap.Int("results", len(ids)), zap.Bool("union", f.union()))
	return ids, nil
}
