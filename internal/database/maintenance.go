package database

import (
	"context"
	"time"
)

// PurgeTranscriptionsOlderThan deletes history rows older than retention and
// returns the number removed.
func (db *DB) PurgeTranscriptionsOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	tag, err := db.Pool.Exec(ctx,
		`DELETE FROM transcriptions WHERE created_at < now() - $1::interval`,
		retention.String(),
	)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// RunRetention purges expired history every interval until ctx is done.
// A non-positive retention disables purging and returns immediately.
func (db *DB) RunRetention(ctx context.Context, retention, interval time.Duration) {
	if retention <= 0 {
		return
	}
	if interval <= 0 {
		interval = time.Hour
	}
	log := db.log.With().Str("component", "retention").Logger()

	purge := func() {
		n, err := db.PurgeTranscriptionsOlderThan(ctx, retention)
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("history purge failed")
			}
			return
		}
		if n > 0 {
			log.Info().Int64("deleted", n).Dur("retention", retention).Msg("purged old transcriptions")
		}
	}

	purge()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purge()
		}
	}
}
