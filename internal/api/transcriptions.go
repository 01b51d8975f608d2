package api

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"
	"github.com/snarg/speech-demo/internal/database"
)

// HistoryLister is satisfied by *database.DB.
type HistoryLister interface {
	ListTranscriptions(ctx context.Context, filter database.TranscriptionFilter) ([]database.TranscriptionAPI, int, error)
}

type TranscriptionsHandler struct {
	db  HistoryLister
	log zerolog.Logger
}

// NewTranscriptionsHandler serves the run history. db may be nil, in which
// case every request answers 503.
func NewTranscriptionsHandler(db HistoryLister, log zerolog.Logger) *TranscriptionsHandler {
	return &TranscriptionsHandler{
		db:  db,
		log: log.With().Str("handler", "transcriptions").Logger(),
	}
}

type transcriptionListResponse struct {
	Transcriptions []database.TranscriptionAPI `json:"transcriptions"`
	Total          int                         `json:"total"`
	Limit          int                         `json:"limit"`
	Offset         int                         `json:"offset"`
}

// List handles GET /transcriptions.
// Query params: use_case, recognizer, limit, offset.
func (h *TranscriptionsHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.db == nil {
		WriteErrorWithCode(w, http.StatusServiceUnavailable, ErrServiceDisabled,
			"transcription history is not configured (set DATABASE_URL)")
		return
	}

	p := ParsePagination(r)
	filter := database.TranscriptionFilter{Limit: p.Limit, Offset: p.Offset}
	filter.UseCase, _ = QueryString(r, "use_case")
	filter.Recognizer, _ = QueryString(r, "recognizer")

	rows, total, err := h.db.ListTranscriptions(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to list transcriptions")
		WriteErrorWithCode(w, http.StatusInternalServerError, ErrInternal, "failed to list transcriptions")
		return
	}
	if rows == nil {
		rows = []database.TranscriptionAPI{}
	}

	WriteJSON(w, http.StatusOK, transcriptionListResponse{
		Transcriptions: rows,
		Total:          total,
		Limit:          p.Limit,
		Offset:         p.Offset,
	})
}
