package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const elevenLabsSTTEndpoint = "https://api.elevenlabs.io/v1/speech-to-text"

// ElevenLabsClient calls the ElevenLabs Speech-to-Text API.
type ElevenLabsClient struct {
	apiKey   string
	model    string // "scribe_v1" or "scribe_v2"
	keyterms string // comma-separated boost terms
	endpoint string
	client   *http.Client
}

type elevenlabsResponse struct {
	LanguageCode string           `json:"language_code"`
	Text         string           `json:"text"`
	Words        []elevenlabsWord `json:"words"`
}

type elevenlabsWord struct {
	Text        string  `json:"text"`
	Type        string  `json:"type"` // "word" or "spacing"
	StartTimeMs float64 `json:"start_time_ms"`
	EndTimeMs   float64 `json:"end_time_ms"`
}

// NewElevenLabsClient creates a new ElevenLabs STT client.
func NewElevenLabsClient(apiKey, model, keyterms string, timeout time.Duration) *ElevenLabsClient {
	return &ElevenLabsClient{
		apiKey:   apiKey,
		model:    model,
		keyterms: keyterms,
		endpoint: elevenLabsSTTEndpoint,
		client:   &http.Client{Timeout: timeout},
	}
}

func (el *ElevenLabsClient) Name() string  { return "elevenlabs" }
func (el *ElevenLabsClient) Model() string { return el.model }

func (el *ElevenLabsClient) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	body, err := postAudio(ctx, el.client, uploadRequest{
		label:     "elevenlabs",
		url:       el.endpoint,
		fileField: "file",
		audioPath: audioPath,
		fields: []formField{
			{"model_id", el.model},
			{"language_code", languageOrDefault(opts.Language)},
			{"timestamps_granularity", "word"},
			{"keyterms", buildKeyterms(el.keyterms, opts.Hotwords)},
		},
		headers: map[string]string{"xi-api-key": el.apiKey},
	})
	if err != nil {
		return nil, err
	}

	var result elevenlabsResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	var words []Word
	var duration float64
	for _, ew := range result.Words {
		if ew.Type != "word" {
			continue
		}
		words = append(words, Word{
			Word:  ew.Text,
			Start: ew.StartTimeMs / 1000.0,
			End:   ew.EndTimeMs / 1000.0,
		})
		duration = ew.EndTimeMs / 1000.0
	}

	return &Response{
		Text:     strings.TrimSpace(result.Text),
		Language: result.LanguageCode,
		Duration: duration,
		Words:    words,
	}, nil
}

// buildKeyterms merges configured keyterms with per-request hotwords into
// the JSON array of {"text": term} objects ElevenLabs expects. Returns ""
// when there are no terms.
func buildKeyterms(lists ...string) string {
	type keyterm struct {
		Text string `json:"text"`
	}
	var arr []keyterm
	for _, list := range lists {
		for _, t := range strings.Split(list, ",") {
			if t = strings.TrimSpace(t); t != "" {
				arr = append(arr, keyterm{Text: t})
			}
		}
	}
	if len(arr) == 0 {
		return ""
	}
	b, _ := json.Marshal(arr)
	return string(b)
}
