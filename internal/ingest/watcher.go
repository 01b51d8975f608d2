package ingest

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/snarg/speech-demo/internal/audio"
	"github.com/snarg/speech-demo/internal/metrics"
)

const debounceDelay = 500 * time.Millisecond

// Enqueuer accepts drop-folder jobs; *WorkerPool in production.
type Enqueuer interface {
	Enqueue(Job) bool
}

// WatcherStatus is reported on /health.
type WatcherStatus struct {
	Status       string `json:"status"`
	WatchDir     string `json:"watch_dir"`
	FilesQueued  int64  `json:"files_queued"`
	FilesDropped int64  `json:"files_dropped"`
}

// FileWatcher monitors a drop folder for new audio files and enqueues a
// job for each one once it has stopped changing.
type FileWatcher struct {
	queue     Enqueuer
	watchDir  string
	outputDir string
	backfill  bool
	log       zerolog.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}

	// Debounce: coalesce rapid Create+Write events on the same file.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer
	debounce       time.Duration

	filesQueued  atomic.Int64
	filesDropped atomic.Int64
	status       atomic.Value // string: "starting", "backfilling", "watching", "stopped"
}

// NewFileWatcher creates a watcher for watchDir. With backfill set, audio
// files already present and lacking minutes in outputDir are queued on Start.
func NewFileWatcher(queue Enqueuer, watchDir, outputDir string, backfill bool, log zerolog.Logger) *FileWatcher {
	fw := &FileWatcher{
		queue:          queue,
		watchDir:       watchDir,
		outputDir:      outputDir,
		backfill:       backfill,
		log:            log.With().Str("component", "watcher").Logger(),
		done:           make(chan struct{}),
		debounceTimers: make(map[string]*time.Timer),
		debounce:       debounceDelay,
	}
	fw.status.Store("starting")
	return fw
}

// Start adds every directory under watchDir to fsnotify and begins watching.
func (fw *FileWatcher) Start() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	fw.watcher = w

	dirCount := 0
	err = filepath.WalkDir(fw.watchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			fw.log.Warn().Err(err).Str("path", path).Msg("error walking directory")
			return nil
		}
		if d.IsDir() {
			if addErr := w.Add(path); addErr != nil {
				fw.log.Warn().Err(addErr).Str("path", path).Msg("failed to watch directory")
			} else {
				dirCount++
			}
		}
		return nil
	})
	if err == nil && dirCount == 0 {
		err = &fs.PathError{Op: "watch", Path: fw.watchDir, Err: fs.ErrNotExist}
	}
	if err != nil {
		w.Close()
		return err
	}

	fw.log.Info().
		Int("directories", dirCount).
		Str("watch_dir", fw.watchDir).
		Msg("file watcher initialized")

	go fw.watchLoop()

	if fw.backfill {
		go fw.runBackfill()
	} else {
		fw.status.Store("watching")
	}
	return nil
}

// Run starts the watcher and blocks until ctx is done.
func (fw *FileWatcher) Run(ctx context.Context) error {
	if err := fw.Start(); err != nil {
		return err
	}
	<-ctx.Done()
	fw.Stop()
	return nil
}

// Stop closes the fsnotify watcher and cancels pending debounce timers.
func (fw *FileWatcher) Stop() {
	if fw.status.Swap("stopped") == "stopped" {
		return
	}
	close(fw.done)
	if fw.watcher != nil {
		fw.watcher.Close()
	}
	fw.debounceMu.Lock()
	for p, t := range fw.debounceTimers {
		t.Stop()
		delete(fw.debounceTimers, p)
	}
	fw.debounceMu.Unlock()

	fw.log.Info().
		Int64("files_queued", fw.filesQueued.Load()).
		Int64("files_dropped", fw.filesDropped.Load()).
		Msg("file watcher stopped")
}

// Status returns the current watcher status for the health endpoint.
func (fw *FileWatcher) Status() *WatcherStatus {
	s, _ := fw.status.Load().(string)
	return &WatcherStatus{
		Status:       s,
		WatchDir:     fw.watchDir,
		FilesQueued:  fw.filesQueued.Load(),
		FilesDropped: fw.filesDropped.Load(),
	}
}

func (fw *FileWatcher) watchLoop() {
	for {
		select {
		case <-fw.done:
			return

		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}

			// New subdirectory: watch it too.
			if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
				if err := fw.watcher.Add(event.Name); err != nil {
					fw.log.Warn().Err(err).Str("path", event.Name).Msg("failed to watch new directory")
				}
				continue
			}

			if !audio.IsAudioFile(event.Name) {
				continue
			}
			fw.scheduleEnqueue(event.Name)

		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleEnqueue debounces by fw.debounce so the file is fully written
// before a worker opens it.
func (fw *FileWatcher) scheduleEnqueue(path string) {
	fw.debounceMu.Lock()
	defer fw.debounceMu.Unlock()

	if t, ok := fw.debounceTimers[path]; ok {
		t.Reset(fw.debounce)
		return
	}

	fw.debounceTimers[path] = time.AfterFunc(fw.debounce, func() {
		fw.debounceMu.Lock()
		delete(fw.debounceTimers, path)
		fw.debounceMu.Unlock()

		fw.enqueue(path)
	})
}

func (fw *FileWatcher) enqueue(path string) {
	select {
	case <-fw.done:
		return
	default:
	}
	if fw.queue.Enqueue(Job{Path: path, QueuedAt: time.Now()}) {
		fw.filesQueued.Add(1)
		metrics.WatchFilesTotal.WithLabelValues("queued").Inc()
		fw.log.Debug().Str("path", path).Msg("file queued")
		return
	}
	fw.filesDropped.Add(1)
	metrics.WatchFilesTotal.WithLabelValues("dropped").Inc()
	fw.log.Warn().Str("path", path).Msg("job queue full, file dropped")
}

// runBackfill queues existing audio files that have no minutes yet,
// oldest first.
func (fw *FileWatcher) runBackfill() {
	fw.status.Store("backfilling")

	type fileEntry struct {
		path    string
		modTime time.Time
	}
	var files []fileEntry

	_ = filepath.WalkDir(fw.watchDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !audio.IsAudioFile(path) {
			return nil
		}
		if _, err := os.Stat(MinutesPath(path, fw.outputDir)); err == nil {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		files = append(files, fileEntry{path: path, modTime: info.ModTime()})
		return nil
	})

	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	fw.log.Info().Int("files", len(files)).Msg("backfill starting")
	for _, f := range files {
		fw.enqueue(f.path)
	}

	fw.status.CompareAndSwap("backfilling", "watching")
	fw.log.Info().Int("files", len(files)).Msg("backfill complete")
}
