package database

import (
	"context"
	"fmt"
)

// InitSchema applies schemaSQL when the transcriptions table is missing.
// An existing table is left alone; later column changes go through Migrate.
func (db *DB) InitSchema(ctx context.Context, schemaSQL []byte) error {
	var exists bool
	err := db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT FROM pg_tables WHERE schemaname = 'public' AND tablename = 'transcriptions')`,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("check for transcriptions table: %w", err)
	}
	if exists {
		return nil
	}

	if _, err := db.Pool.Exec(ctx, string(schemaSQL)); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	db.log.Info().Msg("history schema created")
	return nil
}
