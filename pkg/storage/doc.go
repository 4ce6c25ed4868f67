// Package storage provides the persistence plumbing shared by every admin
// component: SQL connections (PostgreSQL primary with read replicas, or
// SQLite for single-node use), dialect helpers for portable queries, the
// schema migration runner, a Redis client and an S3 object store.
//
// Queries throughout the module are written once with $N placeholders that
// appear in ascending order, RETURNING and ON CONFLICT clauses. Both
// lib/pq and go-sqlite3 accept that subset, so stores run unchanged on
// either driver. Id-set filters are the one place the dialects differ; use
// Dialect.InInt64 to build them.
//
// SQLite connections are capped at a single open connection. Code holding a
// transaction or an open *sql.Rows must not issue a second query on the
// *sql.DB until it is released.
package storage
