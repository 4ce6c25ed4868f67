package storage

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
)

// Dialect identifies the SQL flavour behind a *sql.DB
type Dialect string

const (
	DialectPostgres Dialect = DriverPostgres
	DialectSQLite   Dialect = DriverSQLite
)

// DialectOf inspects the driver behind db. Anything that is not SQLite is
// treated as PostgreSQL.
func DialectOf(db *sql.DB) Dialect {
	if db == nil {
		return DialectPostgres
	}
	if _, ok := db.Driver().(*sqlite3.SQLiteDriver); ok {
		return DialectSQLite
	}
	return DialectPostgres
}

// InInt64 builds a membership predicate for column over ids, numbering
// placeholders from start. PostgreSQL binds the whole set as one array
// parameter; SQLite expands one placeholder per id. The second return is the
// next free placeholder index.
func (d Dialect) InInt64(column string, start int, ids []int64) (string, []interface{}, int) {
	if d == DialectPostgres {
		return fmt.Sprintf("%s = ANY($%d)", column, start), []interface{}{pq.Array(ids)}, start + 1
	}

	if len(ids) == 0 {
		return "1 = 0", nil, start
	}

	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = fmt.Sprintf("$%d", start+i)
		args[i] = id
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), args, start + len(ids)
}

// InStrings is InInt64 for string sets
func (d Dialect) InStrings(column string, start int, values []string) (string, []interface{}, int) {
	if d == DialectPostgres {
		return fmt.Sprintf("%s = ANY($%d)", column, start), []interface{}{pq.Array(values)}, start + 1
	}

	if len(values) == 0 {
		return "1 = 0", nil, start
	}

	placeholders := make([]string, len(values))
	args := make([]interface{}, len(values))
	for i, v := range values {
		placeholders[i] = fmt.Sprintf("$%d", start+i)
		args[i] = v
	}
	return fmt.Sprintf("%s IN (%s)", column, strings.Join(placeholders, ", ")), args, start + len(values)
}

// rewriteDDL adapts PostgreSQL DDL to SQLite
func (d Dialect) rewriteDDL(ddl string) string {
	if d != DialectSQLite {
		return ddl
	}
	return strings.NewReplacer(
		"BIGSERIAL PRIMARY KEY", "INTEGER PRIMARY KEY AUTOINCREMENT",
		"TIMESTAMPTZ", "TIMESTAMP",
		"JSONB", "TEXT",
	).Replace(ddl)
}
