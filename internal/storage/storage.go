package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/snarg/speech-demo/internal/config"
)

// ContentTypeMarkdown is the content type of archived minutes documents.
const ContentTypeMarkdown = "text/markdown; charset=utf-8"

// ArchiveStore abstracts where generated minutes documents are kept.
type ArchiveStore interface {
	// Save stores data under key. key format: minutes/{YYYY-MM-DD}/{uuid}.md
	Save(ctx context.Context, key string, data []byte, contentType string) error

	// Open returns a reader for a stored document.
	Open(ctx context.Context, key string) (io.ReadCloser, error)

	// Exists checks if a document exists in any backend.
	Exists(ctx context.Context, key string) bool

	// Type returns "local", "s3", or "tiered".
	Type() string
}

// BackgroundService is a stoppable background goroutine.
type BackgroundService interface {
	Start()
	Stop()
}

// New creates an ArchiveStore from config. It returns a nil store when
// neither ARCHIVE_DIR nor S3_BUCKET is set. With both set, documents are
// written locally and copied to S3 by an AsyncUploader, returned as a
// background service the caller must Start and Stop.
func New(cfg config.S3Config, archiveDir string, log zerolog.Logger) (ArchiveStore, []BackgroundService, error) {
	if !cfg.Enabled() {
		if archiveDir == "" {
			return nil, nil, nil
		}
		return NewLocalStore(archiveDir), nil, nil
	}

	s3store, err := NewS3Store(cfg, log)
	if err != nil {
		return nil, nil, fmt.Errorf("S3 init failed: %w", err)
	}

	// Startup validation: verify credentials and bucket access
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s3store.HeadBucket(ctx); err != nil {
		return nil, nil, fmt.Errorf("S3 startup check failed (bucket=%q endpoint=%q): %w",
			cfg.Bucket, cfg.Endpoint, err)
	}
	log.Info().Str("bucket", cfg.Bucket).Str("endpoint", cfg.Endpoint).Msg("S3 connection verified")

	if archiveDir == "" {
		return s3store, nil, nil
	}

	uploader := NewAsyncUploader(s3store, 64, log)
	tiered := NewTieredStore(s3store, NewLocalStore(archiveDir), uploader, log)
	return tiered, []BackgroundService{uploader}, nil
}

// NewKey returns a fresh archive key for a minutes document created at t.
func NewKey(t time.Time) string {
	return fmt.Sprintf("minutes/%s/%s.md", t.UTC().Format("2006-01-02"), uuid.NewString())
}
