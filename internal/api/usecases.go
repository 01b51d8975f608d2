package api

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/snarg/speech-demo/internal/audio"
	"github.com/snarg/speech-demo/internal/ingest"
	"github.com/snarg/speech-demo/internal/minutes"
	"github.com/snarg/speech-demo/internal/transcribe"
)

// AudioPipeline is satisfied by *ingest.Pipeline.
type AudioPipeline interface {
	Process(ctx context.Context, req ingest.Request) (*ingest.Result, error)
	Summarize(ctx context.Context, transcript string, maxSentences int) *ingest.Result
}

type TranscriptionResponse struct {
	Recognizer string `json:"recognizer"`
	Model      string `json:"model,omitempty"`
	Transcript string `json:"transcript"`
	WordCount  int    `json:"word_count"`
	HistoryID  int64  `json:"history_id,omitempty"`
}

type MeetingMinutesResponse struct {
	Recognizer string   `json:"recognizer"`
	Model      string   `json:"model,omitempty"`
	Transcript string   `json:"transcript"`
	Minutes    string   `json:"minutes_markdown"`
	KeyPoints  []string `json:"key_points"`
	ArchiveKey string   `json:"archive_key,omitempty"`
	HistoryID  int64    `json:"history_id,omitempty"`
}

type SummarizeRequest struct {
	Transcript   string `json:"transcript"`
	MaxSentences *int   `json:"max_sentences,omitempty"`
}

type SummarizeResponse struct {
	Minutes    string   `json:"minutes_markdown"`
	KeyPoints  []string `json:"key_points"`
	ArchiveKey string   `json:"archive_key,omitempty"`
	HistoryID  int64    `json:"history_id,omitempty"`
}

type RecognizersResponse struct {
	Recognizers []string `json:"recognizers"`
	Extra       []string `json:"extra"`
	Default     string   `json:"default"`
}

// UseCaseHandler serves the upload-driven use cases.
type UseCaseHandler struct {
	pipeline          AudioPipeline
	defaultRecognizer string
	maxUploadBytes    int64
	log               zerolog.Logger
}

func NewUseCaseHandler(pipeline AudioPipeline, defaultRecognizer string, maxUploadBytes int64, log zerolog.Logger) *UseCaseHandler {
	if defaultRecognizer == "" {
		defaultRecognizer = "whisper"
	}
	return &UseCaseHandler{
		pipeline:          pipeline,
		defaultRecognizer: transcribe.Normalize(defaultRecognizer),
		maxUploadBytes:    maxUploadBytes,
		log:               log.With().Str("handler", "use-cases").Logger(),
	}
}

func (h *UseCaseHandler) Routes(r chi.Router) {
	r.Post("/use-cases/transcribe", h.Transcribe)
	r.Post("/use-cases/live-transcribe", h.LiveTranscribe)
	r.Post("/use-cases/meeting-minutes", h.MeetingMinutes)
	r.Post("/use-cases/summarize", h.Summarize)
}

// Recognizers handles GET /recognizers.
func (h *UseCaseHandler) Recognizers(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, RecognizersResponse{
		Recognizers: transcribe.PrimaryNames(),
		Extra:       transcribe.ExtraNames(),
		Default:     h.defaultRecognizer,
	})
}

// Transcribe handles POST /use-cases/transcribe.
func (h *UseCaseHandler) Transcribe(w http.ResponseWriter, r *http.Request) {
	res, ok := h.runAudio(w, r, ingest.UseCaseTranscribe, "Transcription", false, 0)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, transcriptionResponse(res))
}

// LiveTranscribe handles POST /use-cases/live-transcribe. Each request is
// one short chunk of a live session.
func (h *UseCaseHandler) LiveTranscribe(w http.ResponseWriter, r *http.Request) {
	res, ok := h.runAudio(w, r, ingest.UseCaseLiveTranscribe, "Live transcription", false, 0)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, transcriptionResponse(res))
}

// MeetingMinutes handles POST /use-cases/meeting-minutes.
func (h *UseCaseHandler) MeetingMinutes(w http.ResponseWriter, r *http.Request) {
	maxSentences, ok := parseMaxSentences(w, r.URL.Query().Get("max_sentences"))
	if !ok {
		return
	}
	res, ok := h.runAudio(w, r, ingest.UseCaseMeetingMinutes, "Meeting minutes", true, maxSentences)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, MeetingMinutesResponse{
		Recognizer: res.Recognizer,
		Model:      res.Model,
		Transcript: res.Transcript,
		Minutes:    res.Minutes,
		KeyPoints:  nonNil(res.KeyPoints),
		ArchiveKey: res.ArchiveKey,
		HistoryID:  res.HistoryID,
	})
}

// Summarize handles POST /use-cases/summarize: minutes for a transcript
// supplied as JSON, no audio involved.
func (h *UseCaseHandler) Summarize(w http.ResponseWriter, r *http.Request) {
	var req SummarizeRequest
	if err := DecodeJSON(r, &req); err != nil {
		WriteErrorDetail(w, http.StatusBadRequest, "invalid JSON body", err.Error())
		return
	}
	maxSentences := minutes.DefaultMaxSentences
	if req.MaxSentences != nil {
		maxSentences = *req.MaxSentences
		if !validMaxSentences(maxSentences) {
			writeMaxSentencesError(w)
			return
		}
	}

	res := h.pipeline.Summarize(r.Context(), req.Transcript, maxSentences)
	WriteJSON(w, http.StatusOK, SummarizeResponse{
		Minutes:    res.Minutes,
		KeyPoints:  nonNil(res.KeyPoints),
		ArchiveKey: res.ArchiveKey,
		HistoryID:  res.HistoryID,
	})
}

// runAudio validates the query, saves the upload and runs the pipeline.
// It writes the error response itself and reports false on failure.
func (h *UseCaseHandler) runAudio(w http.ResponseWriter, r *http.Request, useCase, label string, withMinutes bool, maxSentences int) (*ingest.Result, bool) {
	recognizer := h.defaultRecognizer
	if v, ok := QueryString(r, "recognizer"); ok {
		recognizer = transcribe.Normalize(v)
	}
	if !transcribe.IsKnown(recognizer) {
		WriteErrorWithCode(w, http.StatusUnprocessableEntity, ErrInvalidParameter,
			fmt.Sprintf("unknown recognizer %q: use one of: %v", recognizer, transcribe.Names()))
		return nil, false
	}

	up, err := saveUpload(w, r, h.maxUploadBytes)
	if err != nil {
		var ue *uploadError
		if errors.As(err, &ue) {
			ue.write(w)
			return nil, false
		}
		h.log.Error().Err(err).Str("use_case", useCase).Msg("failed to store upload")
		WriteErrorWithCode(w, http.StatusInternalServerError, ErrInternal, "failed to store upload")
		return nil, false
	}
	defer up.Remove()

	res, err := h.pipeline.Process(r.Context(), ingest.Request{
		UseCase:      useCase,
		Recognizer:   recognizer,
		AudioPath:    up.Path,
		Filename:     up.Filename,
		Minutes:      withMinutes,
		MaxSentences: maxSentences,
	})
	if err != nil {
		h.writeRunError(w, useCase, label, recognizer, err)
		return nil, false
	}
	return res, true
}

// writeRunError maps pipeline failures onto HTTP statuses: unavailable
// backends are server errors, unreadable or unconvertible audio is the
// client's.
func (h *UseCaseHandler) writeRunError(w http.ResponseWriter, useCase, label, recognizer string, err error) {
	log := h.log.With().Str("use_case", useCase).Str("recognizer", recognizer).Err(err).Logger()
	switch {
	case transcribe.IsBackendUnavailable(err):
		log.Warn().Msg("recognizer unavailable")
		WriteErrorWithCode(w, http.StatusInternalServerError, ErrBackendNotReady, err.Error())
	case errors.Is(err, fs.ErrNotExist), audio.IsProcessingError(err):
		log.Info().Msg("audio rejected")
		WriteErrorWithCode(w, http.StatusBadRequest, ErrProcessing, err.Error())
	case transcribe.IsUnknown(err):
		WriteErrorWithCode(w, http.StatusUnprocessableEntity, ErrInvalidParameter, err.Error())
	default:
		log.Error().Msg("use case failed")
		WriteErrorWithCode(w, http.StatusInternalServerError, ErrInternal, fmt.Sprintf("%s failed: %v", label, err))
	}
}

func transcriptionResponse(res *ingest.Result) TranscriptionResponse {
	return TranscriptionResponse{
		Recognizer: res.Recognizer,
		Model:      res.Model,
		Transcript: res.Transcript,
		WordCount:  res.WordCount,
		HistoryID:  res.HistoryID,
	}
}

// parseMaxSentences reads the max_sentences query value, defaulting to
// minutes.DefaultMaxSentences.
func parseMaxSentences(w http.ResponseWriter, raw string) (int, bool) {
	if raw == "" {
		return minutes.DefaultMaxSentences, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || !validMaxSentences(n) {
		writeMaxSentencesError(w)
		return 0, false
	}
	return n, true
}

func validMaxSentences(n int) bool {
	return n >= 1 && n <= minutes.MaxSentencesLimit
}

func writeMaxSentencesError(w http.ResponseWriter) {
	WriteErrorWithCode(w, http.StatusUnprocessableEntity, ErrInvalidParameter,
		fmt.Sprintf("max_sentences must be an integer between 1 and %d", minutes.MaxSentencesLimit))
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
