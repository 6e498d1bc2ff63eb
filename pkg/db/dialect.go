package db

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
)

// Dialect covers the few places where sqlite and postgres SQL differ.
// Query text is always written with "?" placeholders and rebound at the end.
type Dialect int

const (
	SQLite Dialect = iota
	Postgres
)

func ParseDialect(driver string) (Dialect, error) {
	switch driver {
	case "sqlite", "sqlite3":
		return SQLite, nil
	case "postgres", "postgresql", "pq":
		return Postgres, nil
	}
	return SQLite, fmt.Errorf("unsupported database driver %q", driver)
}

// DriverName is the database/sql driver registered for the dialect.
func (d Dialect) DriverName() string {
	if d == Postgres {
		return "postgres"
	}
	return "sqlite"
}

func (d Dialect) String() string {
	return d.DriverName()
}

// Rebind turns "?" placeholders into "$1", "$2"... for postgres.
func (d Dialect) Rebind(query string) string {
	if d != Postgres {
		return query
	}
	var sb strings.Builder
	sb.Grow(len(query) + 16)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			sb.WriteByte('$')
			sb.WriteString(strconv.Itoa(n))
			continue
		}
		sb.WriteRune(r)
	}
	return sb.String()
}

// Contains is a case sensitive substring test, NULL never matches.
// LIKE is case insensitive for ASCII in sqlite so it is not used.
func (d Dialect) Contains(col string) string {
	if d == Postgres {
		return "strpos(" + col + ", ?) > 0"
	}
	return "instr(" + col + ", ?) > 0"
}

// OrderText orders a text key by byte value on both backends.
func (d Dialect) OrderText(col string) string {
	if d == Postgres {
		return col + ` COLLATE "C"`
	}
	return col
}

// InSet returns a membership predicate for col with a single bound argument,
// so the size of the set never hits a placeholder limit.
func InSet[T int64 | string](d Dialect, col string, values []T) (string, any) {
	if d == Postgres {
		return col + " = ANY(?)", pq.Array(values)
	}
	// json.Marshal can not fail on []int64 or []string
	b, _ := json.Marshal(values)
	return col + " IN (SELECT value FROM json_each(?))", string(b)
}
