package database

import (
	"context"
	"fmt"
	"time"
)

// TranscriptionRow is the input for recording one completed run.
type TranscriptionRow struct {
	UseCase    string // "transcribe", "live-transcribe", "meeting-minutes", "watch"
	Recognizer string
	Model      string
	Filename   string
	Transcript string
	Minutes    string // empty unless minutes were generated
	ArchiveKey string
	WordCount  int
	DurationMs int
}

// TranscriptionAPI is the history representation for API responses.
type TranscriptionAPI struct {
	ID         int64     `json:"id"`
	UseCase    string    `json:"use_case"`
	Recognizer string    `json:"recognizer"`
	Model      string    `json:"model,omitempty"`
	Filename   string    `json:"filename,omitempty"`
	Transcript string    `json:"transcript"`
	Minutes    string    `json:"minutes_markdown,omitempty"`
	ArchiveKey string    `json:"archive_key,omitempty"`
	WordCount  int       `json:"word_count"`
	DurationMs int       `json:"duration_ms"`
	CreatedAt  time.Time `json:"created_at"`
}

// TranscriptionFilter narrows ListTranscriptions. Zero values match all.
type TranscriptionFilter struct {
	UseCase    string
	Recognizer string
	Limit      int
	Offset     int
}

// InsertTranscription stores row and returns its id.
func (db *DB) InsertTranscription(ctx context.Context, row *TranscriptionRow) (int64, error) {
	var id int64
	err := db.Pool.QueryRow(ctx, `
		INSERT INTO transcriptions (
			use_case, recognizer, model, filename,
			transcript, minutes, archive_key, word_count, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		row.UseCase, row.Recognizer, row.Model, row.Filename,
		row.Transcript, pqString(row.Minutes), pqString(row.ArchiveKey),
		row.WordCount, row.DurationMs,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transcription: %w", err)
	}
	return id, nil
}

// ListTranscriptions returns a page of history, newest first, and the total
// number of matching rows.
func (db *DB) ListTranscriptions(ctx context.Context, filter TranscriptionFilter) ([]TranscriptionAPI, int, error) {
	qb := newQueryBuilder()
	if filter.UseCase != "" {
		qb.Add("use_case = %s", filter.UseCase)
	}
	if filter.Recognizer != "" {
		qb.Add("recognizer = %s", filter.Recognizer)
	}
	where := qb.WhereClause()

	var total int
	if err := db.Pool.QueryRow(ctx, "SELECT count(*) FROM transcriptions"+where, qb.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count transcriptions: %w", err)
	}

	limit, offset := clampPage(filter.Limit, filter.Offset)
	rows, err := db.Pool.Query(ctx, fmt.Sprintf(`
		SELECT id, use_case, recognizer, COALESCE(model, ''), COALESCE(filename, ''),
			transcript, COALESCE(minutes, ''), COALESCE(archive_key, ''),
			word_count, duration_ms, created_at
		FROM transcriptions%s
		ORDER BY created_at DESC, id DESC
		LIMIT %d OFFSET %d
	`, where, limit, offset), qb.Args()...)
	if err != nil {
		return nil, 0, fmt.Errorf("list transcriptions: %w", err)
	}
	defer rows.Close()

	result := []TranscriptionAPI{}
	for rows.Next() {
		var t TranscriptionAPI
		if err := rows.Scan(
			&t.ID, &t.UseCase, &t.Recognizer, &t.Model, &t.Filename,
			&t.Transcript, &t.Minutes, &t.ArchiveKey,
			&t.WordCount, &t.DurationMs, &t.CreatedAt,
		); err != nil {
			return nil, 0, err
		}
		result = append(result, t)
	}
	return result, total, rows.Err()
}

// clampPage applies the default page size of 50 and the maximum of 200.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
