package postgres

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"autograde-backend/internal/logger"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the tables the store needs if they are missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	logger.DatabaseCall("DDL", "schema.sql")
	if _, err := db.ExecContext(ctx, schemaSQL); err != nil {
		logger.DatabaseResult("DDL", 0, err)
		return fmt.Errorf("apply schema: %w", err)
	}
	logger.DatabaseResult("DDL", 0, nil)
	return nil
}
