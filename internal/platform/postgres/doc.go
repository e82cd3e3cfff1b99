// Package postgres implements the store interfaces on PostgreSQL using the
// pgx driver in database/sql mode. All database errors are mapped to the
// store error taxonomy before leaving this package.
package postgres
