package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/speech-demo/internal/metrics"
)

// Job is one drop-folder file waiting to be processed.
type Job struct {
	Path     string
	QueuedAt time.Time
}

// QueueStats reports the current state of the job queue.
type QueueStats struct {
	Pending   int   `json:"pending"`
	Active    int   `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
}

// JobFunc processes one job.
type JobFunc func(ctx context.Context, job Job) error

// WorkerPoolOptions configures the drop-folder worker pool.
type WorkerPoolOptions struct {
	Workers   int
	QueueSize int
	Timeout   time.Duration // per job; 0 = no limit
	Process   JobFunc
	Log       zerolog.Logger
}

// WorkerPool runs drop-folder jobs on a fixed number of goroutines.
type WorkerPool struct {
	jobs   chan Job
	opts   WorkerPoolOptions
	log    zerolog.Logger
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.RWMutex // guards stopped and the close of jobs
	stopped bool

	active    atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

func NewWorkerPool(opts WorkerPoolOptions) *WorkerPool {
	ctx, cancel := context.WithCancel(context.Background())
	return &WorkerPool{
		jobs:   make(chan Job, opts.QueueSize),
		opts:   opts,
		log:    opts.Log.With().Str("component", "workers").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start() {
	for i := 0; i < wp.opts.Workers; i++ {
		wp.wg.Add(1)
		go wp.worker(i)
	}
	wp.log.Info().Int("workers", wp.opts.Workers).Int("queue_size", wp.opts.QueueSize).Msg("worker pool started")
}

// Stop stops accepting jobs, drains the queue and waits for the workers.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if !wp.stopped {
		wp.stopped = true
		close(wp.jobs)
	}
	wp.mu.Unlock()

	wp.wg.Wait()
	wp.cancel()
	wp.log.Info().
		Int64("completed", wp.completed.Load()).
		Int64("failed", wp.failed.Load()).
		Msg("worker pool stopped")
}

// Enqueue adds a job. Returns false if the queue is full or the pool is stopped.
func (wp *WorkerPool) Enqueue(j Job) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()
	if wp.stopped {
		return false
	}
	if j.QueuedAt.IsZero() {
		j.QueuedAt = time.Now()
	}
	select {
	case wp.jobs <- j:
		return true
	default:
		return false
	}
}

// Stats returns current queue statistics.
func (wp *WorkerPool) Stats() QueueStats {
	return QueueStats{
		Pending:   len(wp.jobs),
		Active:    int(wp.active.Load()),
		Completed: wp.completed.Load(),
		Failed:    wp.failed.Load(),
	}
}

// QueueDepth and Active satisfy metrics.QueueStats.
func (wp *WorkerPool) QueueDepth() int { return len(wp.jobs) }
func (wp *WorkerPool) Active() int     { return int(wp.active.Load()) }

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int { return wp.opts.Workers }

func (wp *WorkerPool) worker(id int) {
	defer wp.wg.Done()
	log := wp.log.With().Int("worker", id).Logger()

	for job := range wp.jobs {
		wp.active.Add(1)
		err := wp.run(job)
		wp.active.Add(-1)

		if err != nil {
			wp.failed.Add(1)
			metrics.WatchFilesTotal.WithLabelValues("failed").Inc()
			log.Warn().Err(err).Str("path", job.Path).Msg("job failed")
			continue
		}
		wp.completed.Add(1)
		metrics.WatchFilesTotal.WithLabelValues("done").Inc()
		log.Debug().Str("path", job.Path).Dur("waited", time.Since(job.QueuedAt)).Msg("job done")
	}
}

func (wp *WorkerPool) run(job Job) (err error) {
	ctx := wp.ctx
	if wp.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wp.opts.Timeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return wp.opts.Process(ctx, job)
}

// MinutesJob returns a JobFunc that transcribes the file with recognizer,
// formats minutes and writes them to outputDir as <base>.md. An empty
// outputDir writes next to the input file.
func MinutesJob(p *Pipeline, recognizer, outputDir string, maxSentences int) JobFunc {
	return func(ctx context.Context, job Job) error {
		res, err := p.Process(ctx, Request{
			UseCase:      UseCaseWatch,
			Recognizer:   recognizer,
			AudioPath:    job.Path,
			Minutes:      true,
			MaxSentences: maxSentences,
		})
		if err != nil {
			return fmt.Errorf("process %s: %w", filepath.Base(job.Path), err)
		}

		out := MinutesPath(job.Path, outputDir)
		if err := writeFileAtomic(out, []byte(res.Minutes+"\n")); err != nil {
			return fmt.Errorf("write minutes: %w", err)
		}
		return nil
	}
}

// MinutesPath is where the minutes for audioPath are written.
func MinutesPath(audioPath, outputDir string) string {
	base := strings.TrimSuffix(filepath.Base(audioPath), filepath.Ext(audioPath)) + ".md"
	if outputDir == "" {
		return filepath.Join(filepath.Dir(audioPath), base)
	}
	return filepath.Join(outputDir, base)
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".minutes-*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}
	return os.Rename(tmpPath, path)
}
