package taxonomy

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	mydb "github.com/sigi-k/vogdbAPI/pkg/db"
)

// SQLSource walks the "species" table of an ete3 taxa.sqlite
// (taxid INTEGER PRIMARY KEY, parent INTEGER, ...).
type SQLSource struct {
	db *sql.DB
}

func NewSQLSource(db *sql.DB) *SQLSource {
	return &SQLSource{db: db}
}

// OpenSQLite opens a taxa.sqlite file.
func OpenSQLite(ctx context.Context, path string) (*SQLSource, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("fail to open taxonomy: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, mydb.Unavailable(fmt.Errorf("fail to open taxonomy: %w", err))
	}
	return NewSQLSource(db), nil
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}

// UNION drops duplicates, which also stops the walk at the self-parented root.
const descendantsQuery = `
	WITH RECURSIVE subtree(taxid) AS (
		SELECT taxid FROM species WHERE parent = ? AND taxid <> parent
		UNION
		SELECT s.taxid FROM species s JOIN subtree t ON s.parent = t.taxid
		WHERE s.taxid <> s.parent
	)
	SELECT taxid FROM subtree ORDER BY taxid`

func (s *SQLSource) Descendants(ctx context.Context, taxonID int64) ([]int64, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, mydb.Unavailable(fmt.Errorf("fail to get a connection: %w", err))
	}
	defer conn.Close()

	var one int
	err = conn.QueryRowContext(ctx, `SELECT 1 FROM species WHERE taxid = ?`, taxonID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidTaxonID, taxonID)
	}
	if err != nil {
		return nil, mydb.Unavailable(fmt.Errorf("fail to look up taxon %d: %w", taxonID, err))
	}

	return mydb.Column[int64](ctx, conn, descendantsQuery, taxonID)
}
