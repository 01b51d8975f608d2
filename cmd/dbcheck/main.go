package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	pool, err := pgxpool.New(context.Background(), os.Getenv("DATABASE_URL"))
	if err != nil {
		panic(err)
	}
	defer pool.Close()

	ctx := context.Background()

	if len(os.Args) > 1 && os.Args[1] == "recent" {
		showRecent(ctx, pool)
		return
	}

	if len(os.Args) > 2 && os.Args[1] == "purge" {
		retention, err := time.ParseDuration(os.Args[2])
		if err != nil || retention <= 0 {
			fmt.Printf("invalid retention %q: use a positive Go duration such as 720h\n", os.Args[2])
			os.Exit(2)
		}
		dryRun := !(len(os.Args) > 3 && os.Args[3] == "apply")
		purgeOlderThan(ctx, pool, retention, dryRun)
		return
	}

	if len(os.Args) > 1 && os.Args[1] == "fix-archive" {
		dryRun := !(len(os.Args) > 2 && os.Args[2] == "apply")
		fixMissingArchives(ctx, pool, os.Getenv("ARCHIVE_DIR"), dryRun)
		return
	}

	// Default: row counts per use case and recognizer
	var total int64
	pool.QueryRow(ctx, "SELECT count(*) FROM transcriptions").Scan(&total)
	fmt.Printf("transcriptions: %d rows\n\n", total)

	fmt.Println("Use case           Recognizer     Count   Words")
	fmt.Println("─────────────────────────────────────────────────")
	rows, err := pool.Query(ctx, `
		SELECT use_case, recognizer, count(*), coalesce(sum(word_count), 0)
		FROM transcriptions
		GROUP BY use_case, recognizer
		ORDER BY use_case, recognizer
	`)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer rows.Close()
	for rows.Next() {
		var useCase, recognizer string
		var count, words int64
		rows.Scan(&useCase, &recognizer, &count, &words)
		fmt.Printf("%-18s %-14s %-7d %d\n", useCase, recognizer, count, words)
	}
}

func showRecent(ctx context.Context, pool *pgxpool.Pool) {
	fmt.Println("── Most recent runs (first 15) ──")
	rows, err := pool.Query(ctx, `
		SELECT id, created_at, use_case, recognizer, coalesce(filename, ''),
		       word_count, duration_ms, minutes IS NOT NULL
		FROM transcriptions
		ORDER BY created_at DESC
		LIMIT 15
	`)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	defer rows.Close()
	found := false
	for rows.Next() {
		found = true
		var id int64
		var createdAt time.Time
		var useCase, recognizer, filename string
		var words, durationMs int
		var hasMinutes bool
		rows.Scan(&id, &createdAt, &useCase, &recognizer, &filename, &words, &durationMs, &hasMinutes)
		fmt.Printf("  #%d %s %-16s %-12s words=%d took=%dms minutes=%t %q\n",
			id, createdAt.Format(time.RFC3339), useCase, recognizer, words, durationMs, hasMinutes, filename)
	}
	if !found {
		fmt.Println("  (none found)")
	}
}

func purgeOlderThan(ctx context.Context, pool *pgxpool.Pool, retention time.Duration, dryRun bool) {
	cutoff := time.Now().Add(-retention)
	fmt.Printf("── Purge runs older than %s (before %s) ──\n", retention, cutoff.Format(time.RFC3339))

	var count int64
	if err := pool.QueryRow(ctx, "SELECT count(*) FROM transcriptions WHERE created_at < $1", cutoff).Scan(&count); err != nil {
		fmt.Printf("Error counting rows: %v\n", err)
		return
	}
	fmt.Printf("Found %d rows to purge\n", count)
	if dryRun {
		fmt.Println("Dry run; pass 'apply' to delete.")
		return
	}

	tag, err := pool.Exec(ctx, "DELETE FROM transcriptions WHERE created_at < $1", cutoff)
	if err != nil {
		fmt.Printf("Error deleting rows: %v\n", err)
		return
	}
	fmt.Printf("Deleted %d rows\n", tag.RowsAffected())
}
