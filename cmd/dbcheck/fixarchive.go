package main

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/snarg/speech-demo/internal/storage"
)

// fixMissingArchives clears archive_key on rows whose minutes document is
// no longer present under archiveDir.
func fixMissingArchives(ctx context.Context, pool *pgxpool.Pool, archiveDir string, dryRun bool) {
	fmt.Println("── Rows pointing at missing archive documents ──")
	if archiveDir == "" {
		fmt.Println("ARCHIVE_DIR is not set; nothing to check.")
		return
	}
	store := storage.NewLocalStore(archiveDir)

	rows, err := pool.Query(ctx, `
		SELECT id, archive_key FROM transcriptions
		WHERE archive_key IS NOT NULL
		ORDER BY id
	`)
	if err != nil {
		fmt.Printf("Error finding archived rows: %v\n", err)
		return
	}
	defer rows.Close()

	type archived struct {
		id  int64
		key string
	}
	var checked int
	var missing []archived
	for rows.Next() {
		var a archived
		if err := rows.Scan(&a.id, &a.key); err != nil {
			fmt.Printf("Error scanning: %v\n", err)
			return
		}
		checked++
		if !store.Exists(ctx, a.key) {
			missing = append(missing, a)
		}
	}
	rows.Close()

	fmt.Printf("Checked %d rows, %d missing documents\n", checked, len(missing))
	for i, a := range missing {
		if i >= 10 {
			fmt.Printf("  ... and %d more\n", len(missing)-10)
			break
		}
		fmt.Printf("  #%d %s\n", a.id, a.key)
	}
	if dryRun || len(missing) == 0 {
		if dryRun && len(missing) > 0 {
			fmt.Println("Dry run; pass 'apply' to clear these keys.")
		}
		return
	}

	ids := make([]int64, len(missing))
	for i, a := range missing {
		ids[i] = a.id
	}
	tag, err := pool.Exec(ctx, "UPDATE transcriptions SET archive_key = NULL WHERE id = ANY($1)", ids)
	if err != nil {
		fmt.Printf("Error clearing keys: %v\n", err)
		return
	}
	fmt.Printf("Cleared archive_key on %d rows\n", tag.RowsAffected())
}
