package db

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWithConnCanceledContext(t *testing.T) {
	sqldb, _, err := sqlmock.New()
	require.NoError(t, err)
	defer sqldb.Close()

	v := New(sqldb, SQLite, time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err = v.WithConn(ctx, func(ctx context.Context, conn *sql.Conn) error {
		called = true
		return nil
	})
	require.Error(t, err)
	assert.False(t, called)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestColumn(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqldb.Close()

	mock.ExpectQuery("SELECT taxon_id FROM species_profile").
		WillReturnRows(sqlmock.NewRows([]string{"taxon_id"}).AddRow(10298).AddRow(10310))

	v := New(sqldb, SQLite, 0)
	var got []int64
	err = v.WithConn(context.Background(), func(ctx context.Context, conn *sql.Conn) error {
		var err error
		got, err = Column[int64](ctx, conn, "SELECT taxon_id FROM species_profile ORDER BY taxon_id")
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []int64{10298, 10310}, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestColumnQueryError(t *testing.T) {
	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer sqldb.Close()

	mock.ExpectQuery("SELECT vog_id").WillReturnError(errors.New("server closed the connection"))

	v := New(sqldb, Postgres, 0)
	err = v.WithConn(context.Background(), func(ctx context.Context, conn *sql.Conn) error {
		_, err := Column[string](ctx, conn, "SELECT vog_id FROM vog_profile")
		return err
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.Contains(t, err.Error(), "server closed the connection")
}

func TestPingFailure(t *testing.T) {
	sqldb, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer sqldb.Close()

	mock.ExpectPing().WillReturnError(errors.New("refused"))

	err = New(sqldb, SQLite, 0).Ping(context.Background())
	assert.ErrorIs(t, err, ErrStorageUnavailable)
}

func TestApplySchemaSQLite(t *testing.T) {
	v, err := Open(context.Background(), "sqlite", ":memory:", PoolOptions{MaxOpenConns: 1})
	require.NoError(t, err)
	defer v.Close()

	require.NoError(t, v.ApplySchema(context.Background()))
	// idempotent
	require.NoError(t, v.ApplySchema(context.Background()))

	var n int
	err = v.SQL().QueryRow(`SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name LIKE '%profile'`).Scan(&n)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestUnavailable(t *testing.T) {
	assert.NoError(t, Unavailable(nil))

	err := Unavailable(context.DeadlineExceeded)
	assert.ErrorIs(t, err, ErrStorageUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	// not wrapped twice
	assert.Equal(t, err, Unavailable(err))
}
