package storage

import (
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog"
)

// TieredStore archives minutes on local disk and mirrors them to S3 in the
// background. The local copy is authoritative; S3 only serves documents
// that have been cleaned up locally.
type TieredStore struct {
	s3       *S3Store
	local    *LocalStore
	uploader *AsyncUploader
	log      zerolog.Logger
}

func NewTieredStore(s3 *S3Store, local *LocalStore, uploader *AsyncUploader, log zerolog.Logger) *TieredStore {
	return &TieredStore{
		s3:       s3,
		local:    local,
		uploader: uploader,
		log:      log.With().Str("component", "tiered-store").Logger(),
	}
}

// Save fails only when the local write fails. When the upload queue is
// full the S3 copy is skipped.
func (s *TieredStore) Save(ctx context.Context, key string, data []byte, ct string) error {
	if err := s.local.Save(ctx, key, data, ct); err != nil {
		return err
	}
	s.uploader.Enqueue(key, data, ct)
	return nil
}

// Open reads the local copy, or fetches from S3 and restores the local copy.
func (s *TieredStore) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if r, err := s.local.Open(ctx, key); err == nil {
		return r, nil
	}
	data, err := s.fetchRemote(ctx, key)
	if err != nil {
		return nil, err
	}
	if err := s.local.Save(ctx, key, data, ContentTypeMarkdown); err != nil {
		s.log.Warn().Err(err).Str("key", key).Msg("failed to restore document from S3")
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *TieredStore) fetchRemote(ctx context.Context, key string) ([]byte, error) {
	r, err := s.s3.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (s *TieredStore) Exists(ctx context.Context, key string) bool {
	return s.local.Exists(ctx, key) || s.s3.Exists(ctx, key)
}

func (s *TieredStore) Type() string { return "tiered" }
