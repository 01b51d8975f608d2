package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	speechdemo "github.com/snarg/speech-demo"
	"github.com/snarg/speech-demo/internal/api"
	"github.com/snarg/speech-demo/internal/audio"
	"github.com/snarg/speech-demo/internal/config"
	"github.com/snarg/speech-demo/internal/database"
	"github.com/snarg/speech-demo/internal/ingest"
	"github.com/snarg/speech-demo/internal/metrics"
	"github.com/snarg/speech-demo/internal/storage"
	"github.com/snarg/speech-demo/internal/transcribe"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	startTime := time.Now()

	var overrides config.Overrides
	flag.StringVar(&overrides.EnvFile, "env", "", "path to .env file (default .env)")
	flag.StringVar(&overrides.HTTPAddr, "listen", "", "HTTP listen address (overrides HTTP_ADDR)")
	flag.StringVar(&overrides.LogLevel, "log-level", "", "log level (overrides LOG_LEVEL)")
	flag.StringVar(&overrides.DatabaseURL, "database-url", "", "PostgreSQL URL (overrides DATABASE_URL)")
	flag.StringVar(&overrides.Recognizer, "recognizer", "", "default recognizer (overrides DEFAULT_RECOGNIZER)")
	flag.StringVar(&overrides.WatchDir, "watch-dir", "", "drop folder to watch (overrides WATCH_DIR)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("speech-demo", version)
		return
	}

	// Config
	cfg, err := config.Load(overrides)
	if err != nil {
		early := zerolog.New(os.Stderr).With().Timestamp().Logger()
		early.Fatal().Err(err).Msg("failed to load config")
	}

	// Logger
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	log := zerolog.New(os.Stdout).With().Timestamp().Logger().Level(level)
	log.Info().Str("version", version).Msg("speech-demo starting")

	// Context for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Database (optional)
	var db *database.DB
	if cfg.DatabaseURL != "" {
		dbLog := log.With().Str("component", "database").Logger()
		db, err = database.Connect(ctx, cfg.DatabaseURL, dbLog)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to database")
		}
		defer db.Close()

		if err := db.InitSchema(ctx, speechdemo.SchemaSQL); err != nil {
			log.Fatal().Err(err).Msg("failed to initialize schema")
		}
		if err := db.Migrate(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to apply migrations")
		}
	} else {
		log.Info().Msg("DATABASE_URL not set; transcription history disabled")
	}

	// Minutes archive (optional)
	storeLog := log.With().Str("component", "storage").Logger()
	archive, services, err := storage.New(cfg.S3, cfg.ArchiveDir, storeLog)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize minutes archive")
	}
	for _, svc := range services {
		svc.Start()
		defer svc.Stop()
	}
	archiveType := ""
	if archive != nil {
		archiveType = archive.Type()
		log.Info().Str("type", archiveType).Msg("minutes archive enabled")
	}

	// Recognizers
	registry := transcribe.NewRegistry(func(name string) (transcribe.Provider, error) {
		return transcribe.New(name, cfg)
	})
	for _, name := range cfg.PreloadRecognizers {
		p, err := registry.Get(name)
		if err != nil {
			log.Warn().Err(err).Str("recognizer", name).Msg("recognizer preload failed")
			continue
		}
		log.Info().Str("recognizer", p.Name()).Str("model", p.Model()).Msg("recognizer preloaded")
	}

	pipelineOpts := ingest.PipelineOptions{
		Providers: registry,
		Converter: audio.NewConverter(cfg.FFmpegPath, audio.ExecRunner{}),
		Transcribe: transcribe.TranscribeOpts{
			Language:    cfg.TranscribeLanguage,
			Temperature: cfg.TranscribeTemp,
			Prompt:      cfg.TranscribePrompt,
			Hotwords:    cfg.TranscribeHotwords,
		},
		Log: log,
	}
	if db != nil {
		pipelineOpts.History = db
	}
	if archive != nil {
		pipelineOpts.Archive = archive
	}
	pipeline := ingest.NewPipeline(pipelineOpts)

	// Drop-folder ingest (optional)
	var pool *ingest.WorkerPool
	var watcher *ingest.FileWatcher
	if cfg.WatchDir != "" {
		pool = ingest.NewWorkerPool(ingest.WorkerPoolOptions{
			Workers:   cfg.WatchWorkers,
			QueueSize: cfg.WatchQueueSize,
			Timeout:   cfg.WatchTimeout,
			Process:   ingest.MinutesJob(pipeline, cfg.WatchRecognizer, cfg.WatchOutputDir, cfg.MaxSentences),
			Log:       log,
		})
		pool.Start()
		defer pool.Stop()

		watchLog := log.With().Str("component", "watcher").Logger()
		watcher = ingest.NewFileWatcher(pool, cfg.WatchDir, cfg.WatchOutputDir, cfg.WatchBackfill, watchLog)
	}

	// Metrics
	var collector *metrics.Collector
	var queueStats metrics.QueueStats
	if pool != nil {
		queueStats = pool
	}
	if db != nil {
		collector = metrics.NewCollector(db.Pool, registry, queueStats)
	} else {
		collector = metrics.NewCollector(nil, registry, queueStats)
	}
	prometheus.MustRegister(collector)

	// HTTP Server
	httpLog := log.With().Str("component", "http").Logger()
	srvOpts := api.ServerOptions{
		Config:      cfg,
		Pipeline:    pipeline,
		ArchiveType: archiveType,
		OpenAPI:     speechdemo.OpenAPISpec,
		Version:     version,
		StartTime:   startTime,
		Log:         httpLog,
	}
	if db != nil {
		srvOpts.History = db
		srvOpts.DB = db
	}
	if watcher != nil {
		srvOpts.Watcher = watcher.Status
		srvOpts.Queue = pool.Stats
	}
	srv := api.NewServer(srvOpts)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Start(); err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	if watcher != nil {
		g.Go(func() error {
			if err := watcher.Run(gctx); err != nil {
				return fmt.Errorf("file watcher %s: %w", cfg.WatchDir, err)
			}
			return nil
		})
	}
	if db != nil && cfg.HistoryRetention > 0 {
		g.Go(func() error {
			db.RunRetention(gctx, cfg.HistoryRetention, time.Hour)
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			log.Info().Msg("shutdown signal received")
		}

		// Graceful shutdown with 10s timeout
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("http server shutdown error")
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("speech-demo exited with error")
	}

	log.Info().Msg("speech-demo stopped")
}
