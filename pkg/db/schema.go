package db

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
)

// Driver names accepted by Migrate and sqlx.NewDb.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite3"
)

//go:embed schema_postgres.sql
var postgresSchema string

//go:embed schema_sqlite.sql
var sqliteSchema string

// Migrate creates the award, counter and activity tables if they do not exist.
// It is idempotent.
func Migrate(ctx context.Context, db *sql.DB, driver string) error {
	var schema string
	switch driver {
	case DriverPostgres:
		schema = postgresSchema
	case DriverSQLite:
		schema = sqliteSchema
	default:
		return fmt.Errorf("unsupported driver %q", driver)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply %s schema: %w", driver, err)
	}
	return nil
}
