package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestPool(workers, queueSize int, fn JobFunc) *WorkerPool {
	if fn == nil {
		fn = func(context.Context, Job) error { return nil }
	}
	return NewWorkerPool(WorkerPoolOptions{
		Workers:   workers,
		QueueSize: queueSize,
		Process:   fn,
		Log:       zerolog.Nop(),
	})
}

func TestNewWorkerPool(t *testing.T) {
	wp := newTestPool(4, 100, nil)
	if cap(wp.jobs) != 100 {
		t.Errorf("queue capacity = %d, want 100", cap(wp.jobs))
	}
	if wp.Workers() != 4 {
		t.Errorf("Workers = %d, want 4", wp.Workers())
	}
}

func TestWorkerPool_EnqueueBeforeStart(t *testing.T) {
	wp := newTestPool(2, 5, nil)
	if !wp.Enqueue(Job{Path: "a.wav"}) {
		t.Error("Enqueue should return true when queue has space")
	}
}

func TestWorkerPool_EnqueueFull(t *testing.T) {
	wp := newTestPool(0, 2, nil) // 0 workers = nobody draining

	wp.Enqueue(Job{Path: "1.wav"})
	wp.Enqueue(Job{Path: "2.wav"})

	if wp.Enqueue(Job{Path: "3.wav"}) {
		t.Error("Enqueue should return false when queue is full")
	}
}

func TestWorkerPool_EnqueueAfterStop(t *testing.T) {
	wp := newTestPool(1, 10, nil)
	wp.Start()
	wp.Stop()

	if wp.Enqueue(Job{Path: "a.wav"}) {
		t.Error("Enqueue should return false after Stop()")
	}
	wp.Stop() // idempotent
}

func TestWorkerPool_Stats(t *testing.T) {
	wp := newTestPool(0, 10, nil)

	wp.Enqueue(Job{Path: "1.wav"})
	wp.Enqueue(Job{Path: "2.wav"})

	stats := wp.Stats()
	if stats.Pending != 2 {
		t.Errorf("Pending = %d, want 2", stats.Pending)
	}
	if wp.QueueDepth() != 2 {
		t.Errorf("QueueDepth = %d, want 2", wp.QueueDepth())
	}
	if stats.Completed != 0 || stats.Failed != 0 {
		t.Errorf("Completed/Failed = %d/%d, want 0/0", stats.Completed, stats.Failed)
	}
}

func TestWorkerPool_DrainsOnStop(t *testing.T) {
	var mu sync.Mutex
	var seen []string
	wp := newTestPool(2, 10, func(ctx context.Context, j Job) error {
		mu.Lock()
		seen = append(seen, j.Path)
		mu.Unlock()
		if j.Path == "bad.wav" {
			return errors.New("unreadable")
		}
		return nil
	})

	for _, p := range []string{"a.wav", "b.wav", "bad.wav"} {
		wp.Enqueue(Job{Path: p})
	}
	wp.Start()
	wp.Stop()

	if len(seen) != 3 {
		t.Errorf("processed %d jobs, want 3", len(seen))
	}
	stats := wp.Stats()
	if stats.Completed != 2 || stats.Failed != 1 {
		t.Errorf("Completed/Failed = %d/%d, want 2/1", stats.Completed, stats.Failed)
	}
}

func TestWorkerPool_PanicCountsAsFailure(t *testing.T) {
	wp := newTestPool(1, 1, func(context.Context, Job) error { panic("nil map") })
	wp.Enqueue(Job{Path: "x.wav"})
	wp.Start()
	wp.Stop()

	if wp.Stats().Failed != 1 {
		t.Errorf("Failed = %d, want 1", wp.Stats().Failed)
	}
}

func TestWorkerPool_Timeout(t *testing.T) {
	var sawDeadline atomic.Bool
	wp := NewWorkerPool(WorkerPoolOptions{
		Workers:   1,
		QueueSize: 1,
		Timeout:   time.Minute,
		Process: func(ctx context.Context, j Job) error {
			_, ok := ctx.Deadline()
			sawDeadline.Store(ok)
			return nil
		},
		Log: zerolog.Nop(),
	})
	wp.Enqueue(Job{Path: "x.wav"})
	wp.Start()
	wp.Stop()

	if !sawDeadline.Load() {
		t.Error("job context should carry the configured timeout")
	}
}

func TestMinutesPath(t *testing.T) {
	tests := []struct {
		audio, out, want string
	}{
		{"/in/standup.mp3", "", "/in/standup.md"},
		{"/in/standup.mp3", "/out", "/out/standup.md"},
		{"/in/review.final.wav", "/out", "/out/review.final.md"},
	}
	for _, tt := range tests {
		if got := MinutesPath(filepath.FromSlash(tt.audio), filepath.FromSlash(tt.out)); got != filepath.FromSlash(tt.want) {
			t.Errorf("MinutesPath(%q, %q) = %q, want %q", tt.audio, tt.out, got, tt.want)
		}
	}
}

func TestMinutesJob(t *testing.T) {
	p := NewPipeline(PipelineOptions{
		Providers: fakeProviders{"whisper": &fakeProvider{name: "whisper", text: meetingText}},
		Log:       zerolog.Nop(),
	})
	in := writeInput(t, "retro.ogg")
	outDir := filepath.Join(t.TempDir(), "minutes")

	job := MinutesJob(p, "whisper", outDir, 6)
	if err := job(context.Background(), Job{Path: in}); err != nil {
		t.Fatalf("job: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(outDir, "retro.md"))
	if err != nil {
		t.Fatalf("read minutes: %v", err)
	}
	if want := "# Meeting minutes\n"; string(data[:len(want)]) != want {
		t.Errorf("minutes start = %q", data[:len(want)])
	}
}
