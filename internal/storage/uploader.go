package storage

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// documentSaver is the write half of a store; *S3Store in production.
type documentSaver interface {
	Save(ctx context.Context, key string, data []byte, contentType string) error
}

// AsyncUploader copies documents to S3 without blocking request handlers.
// Documents are already on local disk before being enqueued here.
type AsyncUploader struct {
	dst      documentSaver
	ch       chan uploadJob
	workers  int
	log      zerolog.Logger
	wg       sync.WaitGroup
	failed   atomic.Int64

	mu      sync.RWMutex // guards stopped and the close of ch
	stopped bool
}

type uploadJob struct {
	key         string
	data        []byte
	contentType string
}

// NewAsyncUploader creates an uploader with the given buffer size and one worker.
func NewAsyncUploader(dst documentSaver, bufferSize int, log zerolog.Logger) *AsyncUploader {
	return &AsyncUploader{
		dst:     dst,
		ch:      make(chan uploadJob, bufferSize),
		workers: 1,
		log:     log.With().Str("component", "async-uploader").Logger(),
	}
}

// Enqueue adds an upload job. Non-blocking: drops with a warning if full or stopped.
func (u *AsyncUploader) Enqueue(key string, data []byte, contentType string) bool {
	u.mu.RLock()
	defer u.mu.RUnlock()
	if u.stopped {
		return false
	}
	select {
	case u.ch <- uploadJob{key: key, data: data, contentType: contentType}:
		return true
	default:
		u.log.Warn().Str("key", key).Msg("async upload queue full, skipping (document kept locally)")
		return false
	}
}

func (u *AsyncUploader) Start() {
	for i := 0; i < u.workers; i++ {
		u.wg.Add(1)
		go u.worker()
	}
	u.log.Info().Int("workers", u.workers).Int("buffer", cap(u.ch)).Msg("async uploader started")
}

// Stop closes the queue and waits for queued uploads to finish.
func (u *AsyncUploader) Stop() {
	u.mu.Lock()
	if !u.stopped {
		u.stopped = true
		close(u.ch)
	}
	u.mu.Unlock()
	u.wg.Wait()
}

// Failed returns the number of uploads that returned an error.
func (u *AsyncUploader) Failed() int64 { return u.failed.Load() }

func (u *AsyncUploader) worker() {
	defer u.wg.Done()
	for job := range u.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := u.dst.Save(ctx, job.key, job.data, job.contentType); err != nil {
			u.failed.Add(1)
			u.log.Error().Err(err).Str("key", job.key).Msg("async S3 upload failed (document kept locally)")
		}
		cancel()
	}
}
