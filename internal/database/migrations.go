package database

import (
	"context"
	"fmt"
	"strings"
)

// migration defines a single idempotent schema migration.
type migration struct {
	name  string
	sql   string
	check string // query that returns true if the migration is already applied
}

// migrations brings databases created by older releases up to the current
// schema.sql. Each must be idempotent (IF NOT EXISTS, IF EXISTS, etc.).
var migrations = []migration{
	{
		name:  "add transcriptions.archive_key",
		sql:   `ALTER TABLE transcriptions ADD COLUMN IF NOT EXISTS archive_key text`,
		check: `SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'transcriptions' AND column_name = 'archive_key')`,
	},
	{
		name:  "add transcriptions.word_count",
		sql:   `ALTER TABLE transcriptions ADD COLUMN IF NOT EXISTS word_count int NOT NULL DEFAULT 0`,
		check: `SELECT EXISTS (SELECT 1 FROM information_schema.columns WHERE table_name = 'transcriptions' AND column_name = 'word_count')`,
	},
	{
		name:  "add transcriptions created_at index",
		sql:   `CREATE INDEX IF NOT EXISTS idx_transcriptions_created_at ON transcriptions (created_at DESC)`,
		check: `SELECT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_transcriptions_created_at')`,
	},
}

// Migrate runs all pending schema migrations. A migration whose check
// reports it already applied is skipped. A failed apply (for example
// insufficient privileges) is returned as a *MigrationError, which the
// caller should treat as fatal.
func (db *DB) Migrate(ctx context.Context) error {
	pending := pendingMigrations(ctx, db, migrations)
	if len(pending) == 0 {
		return nil
	}

	applied := 0
	for _, m := range pending {
		if _, err := db.Pool.Exec(ctx, m.sql); err != nil {
			return &MigrationError{
				failed:  m,
				pending: pending[applied:],
				err:     err,
			}
		}
		db.log.Info().Str("migration", m.name).Msg("schema migration applied")
		applied++
	}
	db.log.Info().Int("applied", applied).Msg("schema migrations complete")
	return nil
}

func pendingMigrations(ctx context.Context, db *DB, all []migration) []migration {
	var pending []migration
	for _, m := range all {
		if m.check != "" {
			var exists bool
			if err := db.Pool.QueryRow(ctx, m.check).Scan(&exists); err == nil && exists {
				continue
			}
		}
		pending = append(pending, m)
	}
	return pending
}

// MigrationError is returned when a migration fails.
// It includes the SQL needed to apply all remaining migrations manually.
type MigrationError struct {
	failed  migration
	pending []migration
	err     error
}

func (e *MigrationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "migration %q failed: %v\n\n", e.failed.name, e.err)
	b.WriteString("Run the following SQL as a database superuser to fix this:\n\n")
	for _, m := range e.pending {
		fmt.Fprintf(&b, "  %s;\n", m.sql)
	}
	b.WriteString("\nThen restart speech-demo.")
	return b.String()
}

func (e *MigrationError) Unwrap() error {
	return e.err
}
