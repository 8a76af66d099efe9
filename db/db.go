// Package db provides the Postgres connection, schema migration, and the
// answer audit store. The database is optional; when no DSN is configured the
// rest of the service runs without it.
package db

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // pgx postgres driver registered as 'pgx'
)

// Connect opens a Postgres connection for the given DSN and verifies it with
// a short ping.
func Connect(ctx context.Context, dsn string) (*sql.DB, error) {
	dbx, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := dbx.PingContext(pctx); err != nil {
		dbx.Close()
		return nil, err
	}
	return dbx, nil
}
