package api

import (
	"context"
	"net/http"
	"time"

	"github.com/snarg/speech-demo/internal/ingest"
)

type HealthResponse struct {
	Status        string                `json:"status"`
	Version       string                `json:"version"`
	UptimeSeconds int64                 `json:"uptime_seconds"`
	Checks        map[string]string     `json:"checks"`
	Watcher       *ingest.WatcherStatus `json:"watcher,omitempty"`
	Queue         *ingest.QueueStats    `json:"queue,omitempty"`
}

// Pinger is satisfied by *database.DB.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

type HealthHandler struct {
	db        Pinger
	archive   string
	watcher   func() *ingest.WatcherStatus
	queue     func() ingest.QueueStats
	version   string
	startTime time.Time
}

func NewHealthHandler(db Pinger, archiveType string, version string, startTime time.Time) *HealthHandler {
	return &HealthHandler{
		db:        db,
		archive:   archiveType,
		version:   version,
		startTime: startTime,
	}
}

// WithIngest reports drop-folder watcher and worker queue state.
func (h *HealthHandler) WithIngest(watcher func() *ingest.WatcherStatus, queue func() ingest.QueueStats) *HealthHandler {
	h.watcher = watcher
	h.queue = queue
	return h
}

// ServeHTTP answers 200 with status "ok" unless the database is configured
// and unreachable, in which case it answers 503 with "degraded".
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string)
	status := "ok"
	httpStatus := http.StatusOK

	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := h.db.HealthCheck(ctx)
		cancel()
		if err != nil {
			checks["database"] = "error"
			status = "degraded"
			httpStatus = http.StatusServiceUnavailable
		} else {
			checks["database"] = "ok"
		}
	} else {
		checks["database"] = "not_configured"
	}

	if h.archive != "" {
		checks["archive"] = h.archive
	} else {
		checks["archive"] = "not_configured"
	}

	resp := HealthResponse{
		Status:        status,
		Version:       h.version,
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Checks:        checks,
	}

	if h.watcher != nil {
		if ws := h.watcher(); ws != nil {
			checks["file_watcher"] = ws.Status
			resp.Watcher = ws
		}
	}
	if h.queue != nil {
		qs := h.queue()
		resp.Queue = &qs
	}

	WriteJSON(w, httpStatus, resp)
}
