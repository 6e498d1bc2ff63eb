package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// PoolOptions are applied to the sql.DB after opening.
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	// QueryTimeout bounds every WithConn call, zero means no extra bound.
	QueryTimeout time.Duration
}

// VOGDB is the handle passed to every model function. It owns the pool.
type VOGDB struct {
	sql     *sql.DB
	dialect Dialect
	timeout time.Duration
}

func New(db *sql.DB, dialect Dialect, timeout time.Duration) *VOGDB {
	return &VOGDB{sql: db, dialect: dialect, timeout: timeout}
}

// Open connects with the given driver and checks the connection.
func Open(ctx context.Context, driver, dsn string, opts PoolOptions) (*VOGDB, error) {
	dialect, err := ParseDialect(driver)
	if err != nil {
		return nil, err
	}

	sqldb, err := sql.Open(dialect.DriverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("fail to open database: %w", err)
	}
	if opts.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		sqldb.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		sqldb.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	v := New(sqldb, dialect, opts.QueryTimeout)
	if err := v.Ping(ctx); err != nil {
		sqldb.Close()
		return nil, err
	}
	return v, nil
}

func (v *VOGDB) Dialect() Dialect {
	return v.dialect
}

// SQL exposes the pool for health checks and schema bootstrap.
func (v *VOGDB) SQL() *sql.DB {
	return v.sql
}

func (v *VOGDB) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := v.sql.PingContext(ctx); err != nil {
		return Unavailable(fmt.Errorf("fail to ping database: %w", err))
	}
	return nil
}

func (v *VOGDB) Close() error {
	return v.sql.Close()
}

// WithConn checks out one connection for the duration of fn and returns it
// to the pool on every path. Errors from fn are returned unchanged, failure
// to get the connection is ErrStorageUnavailable.
func (v *VOGDB) WithConn(ctx context.Context, fn func(ctx context.Context, conn *sql.Conn) error) error {
	if v.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, v.timeout)
		defer cancel()
	}

	conn, err := v.sql.Conn(ctx)
	if err != nil {
		return Unavailable(fmt.Errorf("fail to get a connection: %w", err))
	}
	defer conn.Close()

	return fn(ctx, conn)
}

// Column runs a single column query and scans every row into T.
// The query must already be rebound for the dialect.
func Column[T any](ctx context.Context, conn *sql.Conn, query string, args ...any) ([]T, error) {
	rows, err := conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Unavailable(fmt.Errorf("fail to query: %w", err))
	}
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		var v T
		if err := rows.Scan(&v); err != nil {
			return nil, Unavailable(fmt.Errorf("fail to scan row: %w", err))
		}
		out = append(out, v)
	}
	if err := rows.Err(); err != nil {
		return nil, Unavailable(err)
	}
	return out, nil
}
