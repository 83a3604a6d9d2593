// Package postgres provides PostgreSQL implementations of the store interfaces,
// using pgx through database/sql. Task state transitions are conditional
// UPDATE statements, and the schema, including the CHECK constraints that
// encode the task state invariants, is managed by embedded goose migrations.
package postgres
