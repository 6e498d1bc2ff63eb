package model

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sigi-k/vogdbAPI/internal/util"
	"github.com/sigi-k/vogdbAPI/logger"
	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
)

// how many blobs are read at the same time for one request
const profileFetchLimit = 8

func ProteinAminoAcids(ctx context.Context, vdb *mydb.VOGDB, ids []string) ([]AASequence, error) {
	rows, err := proteinSequences(ctx, vdb, "aa_seq", ids)
	if err != nil {
		return nil, err
	}
	out := make([]AASequence, len(rows))
	for i, r := range rows {
		out[i] = AASequence{ID: r.id, AASeq: r.seq}
	}
	return out, nil
}

func ProteinNucleotides(ctx context.Context, vdb *mydb.VOGDB, ids []string) ([]NTSequence, error) {
	rows, err := proteinSequences(ctx, vdb, "nt_seq", ids)
	if err != nil {
		return nil, err
	}
	out := make([]NTSequence, len(rows))
	for i, r := range rows {
		out[i] = NTSequence{ID: r.id, NTSeq: r.seq}
	}
	return out, nil
}

type sequenceRow struct {
	id  string
	seq *string
}

// col is one of the two fixed sequence columns, never user input.
func proteinSequences(ctx context.Context, vdb *mydb.VOGDB, col string, ids []string) ([]sequenceRow, error) {
	out := make([]sequenceRow, 0, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	d := vdb.Dialect()
	query, args := selectQuery{
		cols:    "p.protein_id, p." + col,
		from:    "protein_profile p",
		where:   []predicate{inSet(d, "p.protein_id", ids)},
		orderBy: d.OrderText("p.protein_id"),
	}.build(d)

	err := vdb.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		rows, err := conn.QueryContext(ctx, query, args...)
		if err != nil {
			return mydb.Unavailable(err)
		}
		defer rows.Close()
		for rows.Next() {
			var r sequenceRow
			var seq sql.NullString
			if err := rows.Scan(&r.id, &seq); err != nil {
				return mydb.Unavailable(err)
			}
			if seq.Valid {
				r.seq = &seq.String
			}
			out = append(out, r)
		}
		return mydb.Unavailable(rows.Err())
	})
	if err != nil {
		return nil, fmt.Errorf("fail to get %s: %w", col, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: proteins %v", ErrNotFound, ids)
	}
	return out, nil
}

// VOGProfile returns the decompressed HMM or MSA of one VOG.
func VOGProfile(ctx context.Context, store mydb.ProfileStore, kind mydb.ProfileKind, id string) (string, error) {
	text, err := store.Profile(ctx, kind, id)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return "", mydb.Unavailable(err)
	}
	return text, err
}

// VOGProfiles fetches several profiles concurrently. Unknown ids are left
// out of the map; when none is found the result is ErrNotFound.
func VOGProfiles(ctx context.Context, store mydb.ProfileStore, kind mydb.ProfileKind, ids []string) (map[string]string, error) {
	ids = util.Unique(ids)
	out := make(map[string]string, len(ids))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(profileFetchLimit)
	for _, id := range ids {
		g.Go(func() error {
			text, err := store.Profile(gctx, kind, id)
			if errors.Is(err, ErrNotFound) {
				logger.Debug("Profile not found", zap.String("kind", kind.String()), zap.String("id", id))
				return nil
			}
			if err != nil {
				return mydb.Unavailable(err)
			}
			mu.Lock()
			out[id] = text
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("fail to fetch %s profiles: %w", kind, err)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: %s for %v", ErrNotFound, kind, ids)
	}
	return out, nil
}
