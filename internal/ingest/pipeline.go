package ingest

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/speech-demo/internal/audio"
	"github.com/snarg/speech-demo/internal/database"
	"github.com/snarg/speech-demo/internal/metrics"
	"github.com/snarg/speech-demo/internal/minutes"
	"github.com/snarg/speech-demo/internal/storage"
	"github.com/snarg/speech-demo/internal/transcribe"
)

// Use case names recorded in history rows.
const (
	UseCaseTranscribe     = "transcribe"
	UseCaseLiveTranscribe = "live-transcribe"
	UseCaseMeetingMinutes = "meeting-minutes"
	UseCaseSummarize      = "summarize"
	UseCaseWatch          = "watch"
)

// Providers resolves recognizer names; *transcribe.Registry in production.
type Providers interface {
	Get(name string) (transcribe.Provider, error)
}

// HistoryStore records completed runs; *database.DB in production.
type HistoryStore interface {
	InsertTranscription(ctx context.Context, row *database.TranscriptionRow) (int64, error)
}

// Pipeline runs audio through a recognizer and optionally the minutes
// formatter, then records the result. It is shared by the HTTP handlers and
// the drop-folder workers.
type Pipeline struct {
	providers Providers
	conv      *audio.Converter
	history   HistoryStore
	archive   storage.ArchiveStore
	opts      transcribe.TranscribeOpts
	log       zerolog.Logger
	now       func() time.Time
}

type PipelineOptions struct {
	Providers  Providers
	Converter  *audio.Converter
	History    HistoryStore         // optional
	Archive    storage.ArchiveStore // optional
	Transcribe transcribe.TranscribeOpts
	Log        zerolog.Logger
}

func NewPipeline(opts PipelineOptions) *Pipeline {
	return &Pipeline{
		providers: opts.Providers,
		conv:      opts.Converter,
		history:   opts.History,
		archive:   opts.Archive,
		opts:      opts.Transcribe,
		log:       opts.Log.With().Str("component", "pipeline").Logger(),
		now:       time.Now,
	}
}

// Request describes one run of the pipeline.
type Request struct {
	UseCase    string
	Recognizer string
	AudioPath  string
	Filename   string // original name, for history; defaults to the base of AudioPath

	// Minutes enables the summarizer with MaxSentences highlights.
	Minutes      bool
	MaxSentences int
}

// Result is the outcome of a run.
type Result struct {
	Recognizer string        `json:"recognizer"`
	Model      string        `json:"model,omitempty"`
	Transcript string        `json:"transcript"`
	Minutes    string        `json:"minutes_markdown,omitempty"`
	KeyPoints  []string      `json:"key_points,omitempty"`
	ArchiveKey string        `json:"archive_key,omitempty"`
	HistoryID  int64         `json:"history_id,omitempty"`
	WordCount  int           `json:"word_count"`
	Elapsed    time.Duration `json:"-"`
}

// Transcribe resolves the recognizer, converts the input when the backend
// needs WAV, and returns the trimmed transcript.
func (p *Pipeline) Transcribe(ctx context.Context, recognizer, audioPath string) (*transcribe.Response, transcribe.Provider, error) {
	prov, err := p.providers.Get(recognizer)
	if err != nil {
		return nil, nil, err
	}

	path, cleanup, err := transcribe.Prepare(ctx, prov, p.conv, audioPath)
	if err != nil {
		return nil, prov, err
	}
	defer cleanup()

	start := time.Now()
	resp, err := prov.Transcribe(ctx, path, p.opts)
	metrics.ObserveTranscription(prov.Name(), time.Since(start), err)
	if err != nil {
		return nil, prov, err
	}
	resp.Text = strings.TrimSpace(resp.Text)
	return resp, prov, nil
}

// Process transcribes req.AudioPath and, when req.Minutes is set, formats
// minutes from the transcript. History and archive failures are logged and
// do not fail the run.
func (p *Pipeline) Process(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	resp, prov, err := p.Transcribe(ctx, req.Recognizer, req.AudioPath)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Recognizer: prov.Name(),
		Model:      prov.Model(),
		Transcript: resp.Text,
		WordCount:  wordCount(resp),
	}
	if req.Minutes {
		p.summarize(res, req.MaxSentences)
	}
	res.Elapsed = time.Since(start)

	filename := req.Filename
	if filename == "" {
		filename = filepath.Base(req.AudioPath)
	}
	p.record(ctx, req.UseCase, filename, res)

	p.log.Info().
		Str("use_case", req.UseCase).
		Str("recognizer", res.Recognizer).
		Str("file", filename).
		Int("words", res.WordCount).
		Dur("elapsed", res.Elapsed).
		Msg("audio processed")
	return res, nil
}

// Summarize formats minutes for an existing transcript without running a
// recognizer. The run is recorded like any other.
func (p *Pipeline) Summarize(ctx context.Context, transcript string, maxSentences int) *Result {
	res := &Result{
		Transcript: transcript,
		WordCount:  len(strings.Fields(transcript)),
	}
	p.summarize(res, maxSentences)
	p.record(ctx, UseCaseSummarize, "", res)
	return res
}

func (p *Pipeline) summarize(res *Result, maxSentences int) {
	res.KeyPoints = minutes.Highlights(res.Transcript, maxSentences)
	res.Minutes = minutes.Render(res.KeyPoints)
	metrics.MinutesGeneratedTotal.Inc()
}

// record archives the minutes document and writes the history row.
func (p *Pipeline) record(ctx context.Context, useCase, filename string, res *Result) {
	if p.archive != nil && res.Minutes != "" && len(res.KeyPoints) > 0 {
		key := storage.NewKey(p.now())
		if err := p.archive.Save(ctx, key, []byte(res.Minutes+"\n"), storage.ContentTypeMarkdown); err != nil {
			metrics.ArchiveWritesTotal.WithLabelValues(p.archive.Type(), "error").Inc()
			p.log.Warn().Err(err).Str("key", key).Msg("minutes archive write failed")
		} else {
			metrics.ArchiveWritesTotal.WithLabelValues(p.archive.Type(), "ok").Inc()
			res.ArchiveKey = key
		}
	}

	if p.history == nil {
		return
	}
	recognizer := res.Recognizer
	if recognizer == "" {
		recognizer = "none"
	}
	id, err := p.history.InsertTranscription(ctx, &database.TranscriptionRow{
		UseCase:    useCase,
		Recognizer: recognizer,
		Model:      res.Model,
		Filename:   filename,
		Transcript: res.Transcript,
		Minutes:    res.Minutes,
		ArchiveKey: res.ArchiveKey,
		WordCount:  res.WordCount,
		DurationMs: int(res.Elapsed.Milliseconds()),
	})
	if err != nil {
		p.log.Warn().Err(err).Str("use_case", useCase).Msg("history insert failed")
		return
	}
	res.HistoryID = id
}

func wordCount(resp *transcribe.Response) int {
	if len(resp.Words) > 0 {
		return len(resp.Words)
	}
	return len(strings.Fields(resp.Text))
}
