package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/snarg/speech-demo/internal/config"
	"github.com/snarg/speech-demo/internal/ingest"
	"github.com/snarg/speech-demo/internal/metrics"
)

type Server struct {
	http *http.Server
	log  zerolog.Logger
}

// ServerOptions wires the server's collaborators. History, DB, Watcher and
// Queue are optional; leave them nil (not typed-nil) when unused.
type ServerOptions struct {
	Config      *config.Config
	Pipeline    AudioPipeline
	History     HistoryLister
	DB          Pinger
	ArchiveType string
	Watcher     func() *ingest.WatcherStatus
	Queue       func() ingest.QueueStats
	OpenAPI     []byte
	Version     string
	StartTime   time.Time
	Log         zerolog.Logger
}

func NewServer(opts ServerOptions) *Server {
	cfg := opts.Config
	r := chi.NewRouter()

	// Global middleware
	r.Use(RequestID)
	r.Use(Recoverer)
	r.Use(Logger(opts.Log))
	r.Use(CORSWithOrigins(cfg.CORSOrigins))
	r.Use(metrics.InstrumentHandler)
	r.Use(RateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst))

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/docs", http.StatusTemporaryRedirect)
	})
	r.Get("/docs", docsHandler(opts.OpenAPI))
	r.Get("/openapi.yaml", docsHandler(opts.OpenAPI))

	// System endpoints, no auth
	health := NewHealthHandler(opts.DB, opts.ArchiveType, opts.Version, opts.StartTime).
		WithIngest(opts.Watcher, opts.Queue)
	r.Get("/health", health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	useCases := NewUseCaseHandler(opts.Pipeline, cfg.DefaultRecognizer, cfg.MaxUploadMB<<20, opts.Log)
	r.Get("/recognizers", useCases.Recognizers)

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(cfg.AuthToken))
		useCases.Routes(r)
		r.Get("/transcriptions", NewTranscriptionsHandler(opts.History, opts.Log).List)
	})

	return &Server{
		http: &http.Server{
			Addr:         cfg.HTTPAddr,
			Handler:      r,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		log: opts.Log,
	}
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.http.Addr).Msg("http server starting")
	err := s.http.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("http server shutting down")
	return s.http.Shutdown(ctx)
}

func docsHandler(doc []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if len(doc) == 0 {
			WriteError(w, http.StatusNotFound, "API document not bundled")
			return
		}
		w.Header().Set("Content-Type", "application/yaml")
		w.Write(doc)
	}
}
