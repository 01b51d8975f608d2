package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// WhisperClient calls an OpenAI-compatible /v1/audio/transcriptions endpoint
// (faster-whisper-server, speaches, whisper.cpp server or OpenAI itself).
type WhisperClient struct {
	url    string
	model  string
	apiKey string
	client *http.Client
}

type whisperResponse struct {
	Text     string        `json:"text"`
	Language string        `json:"language"`
	Duration float64       `json:"duration"`
	Words    []whisperWord `json:"words"`
}

type whisperWord struct {
	Word  string  `json:"word"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// NewWhisperClient creates a new Whisper HTTP client. apiKey may be empty
// for self-hosted servers.
func NewWhisperClient(url, model, apiKey string, timeout time.Duration) *WhisperClient {
	return &WhisperClient{
		url:    url,
		model:  model,
		apiKey: apiKey,
		client: &http.Client{Timeout: timeout},
	}
}

func (wc *WhisperClient) Name() string  { return "whisper" }
func (wc *WhisperClient) Model() string { return wc.model }

// Transcribe uploads any ffmpeg-readable format; the server decodes it.
func (wc *WhisperClient) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	fields := []formField{
		{"model", wc.model},
		{"language", languageOrDefault(opts.Language)},
		{"temperature", fmt.Sprintf("%.2f", opts.Temperature)},
		{"response_format", "verbose_json"},
		{"timestamp_granularities[]", "word"},
		{"prompt", opts.Prompt},
		{"hotwords", opts.Hotwords},
	}
	if opts.BeamSize > 0 {
		fields = append(fields, formField{"beam_size", fmt.Sprintf("%d", opts.BeamSize)})
	}
	if opts.VadFilter {
		fields = append(fields, formField{"vad_filter", "true"})
	}

	headers := map[string]string{}
	if wc.apiKey != "" {
		headers["Authorization"] = "Bearer " + wc.apiKey
	}

	body, err := postAudio(ctx, wc.client, uploadRequest{
		label:     "whisper",
		url:       wc.url,
		fileField: "file",
		audioPath: audioPath,
		fields:    fields,
		headers:   headers,
	})
	if err != nil {
		return nil, err
	}

	var result whisperResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var words []Word
	if len(result.Words) > 0 {
		words = make([]Word, len(result.Words))
		for i, w := range result.Words {
			words[i] = Word{Word: w.Word, Start: w.Start, End: w.End}
		}
	}

	return &Response{
		Text:     strings.TrimSpace(result.Text),
		Language: result.Language,
		Duration: result.Duration,
		Words:    words,
	}, nil
}
