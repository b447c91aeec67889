// Package postgres provides the PostgreSQL implementation of store.Repository.
// It handles the details of query execution, schema migrations and mapping
// between domain entities and database records. Connections are opened with
// the pgx stdlib driver and migrations are embedded and applied with goose.
package postgres
