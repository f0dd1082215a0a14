// Package postgres implements the task store on PostgreSQL through the pgx
// database/sql driver, together with the embedded goose migrations that
// create its schema.
package postgres
