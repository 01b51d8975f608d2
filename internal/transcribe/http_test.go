package transcribe

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeAudio(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestWhisperClient_Transcribe(t *testing.T) {
	var gotFields map[string]string
	var gotFile, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		gotFields = map[string]string{}
		for k, v := range r.MultipartForm.Value {
			gotFields[k] = v[0]
		}
		if fh := r.MultipartForm.File["file"]; len(fh) == 1 {
			gotFile = fh[0].Filename
		}
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`{"text":"  We ship on Friday. ","language":"en","duration":3.5,"words":[{"word":"We","start":0,"end":0.2}]}`))
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "small", "sk-test", 5*time.Second)
	path := writeAudio(t, "standup.mp3", []byte("audio"))

	resp, err := wc.Transcribe(context.Background(), path, TranscribeOpts{Prompt: "roadmap"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if resp.Text != "We ship on Friday." {
		t.Errorf("Text = %q, want trimmed transcript", resp.Text)
	}
	if resp.Duration != 3.5 || len(resp.Words) != 1 {
		t.Errorf("Duration = %v, Words = %d", resp.Duration, len(resp.Words))
	}
	if gotFile != "standup.mp3" {
		t.Errorf("file field filename = %q", gotFile)
	}
	if gotAuth != "Bearer sk-test" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	want := map[string]string{
		"model":           "small",
		"language":        "en",
		"response_format": "verbose_json",
		"prompt":          "roadmap",
	}
	for k, v := range want {
		if gotFields[k] != v {
			t.Errorf("field %s = %q, want %q", k, gotFields[k], v)
		}
	}
	if _, ok := gotFields["hotwords"]; ok {
		t.Error("empty hotwords should be omitted")
	}
	if wc.Name() != "whisper" || wc.Model() != "small" {
		t.Errorf("Name/Model = %s/%s", wc.Name(), wc.Model())
	}
}

func TestWhisperClient_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	wc := NewWhisperClient(srv.URL, "base", "", 5*time.Second)
	_, err := wc.Transcribe(context.Background(), writeAudio(t, "a.wav", []byte("x")), TranscribeOpts{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "whisper API error (status 503)") {
		t.Errorf("error = %v", err)
	}
}

func TestWhisperClient_MissingFile(t *testing.T) {
	wc := NewWhisperClient("http://127.0.0.1:1", "base", "", time.Second)
	_, err := wc.Transcribe(context.Background(), filepath.Join(t.TempDir(), "gone.wav"), TranscribeOpts{})
	if !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("error = %v, want fs.ErrNotExist", err)
	}
}

func TestDeepInfraClient_Transcribe(t *testing.T) {
	var gotPath, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if _, _, err := r.FormFile("audio"); err != nil {
			t.Errorf("missing audio field: %v", err)
		}
		w.Write([]byte(`{"text":"hello there","segments":[{"text":" hello there ","start":1,"end":2}]}`))
	}))
	defer srv.Close()

	di := NewDeepInfraClient("key", "openai/whisper-large-v3-turbo", 5*time.Second)
	di.baseURL = srv.URL + "/v1/inference/"

	resp, err := di.Transcribe(context.Background(), writeAudio(t, "a.wav", []byte("x")), TranscribeOpts{})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotPath != "/v1/inference/openai/whisper-large-v3-turbo" {
		t.Errorf("path = %q", gotPath)
	}
	if gotAuth != "Bearer key" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if len(resp.Words) != 2 || resp.Words[1].Start != 1.5 {
		t.Errorf("Words = %+v, want interpolated from segment", resp.Words)
	}
}

func TestWordsFromSegments(t *testing.T) {
	words := wordsFromSegments([]deepInfraSegment{
		{Text: "  ", Start: 0, End: 1},
		{Text: "a b c d", Start: 2, End: 4},
	})
	if len(words) != 4 {
		t.Fatalf("len = %d, want 4", len(words))
	}
	if words[0].Start != 2 || words[3].End != 4 {
		t.Errorf("words = %+v", words)
	}
}

func TestElevenLabsClient_Transcribe(t *testing.T) {
	var gotKey, gotKeyterms string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("xi-api-key")
		r.ParseMultipartForm(1 << 20)
		gotKeyterms = r.FormValue("keyterms")
		w.Write([]byte(`{"language_code":"en","text":"Hi all","words":[
			{"text":"Hi","type":"word","start_time_ms":0,"end_time_ms":300},
			{"text":" ","type":"spacing","start_time_ms":300,"end_time_ms":350},
			{"text":"all","type":"word","start_time_ms":350,"end_time_ms":900}]}`))
	}))
	defer srv.Close()

	el := NewElevenLabsClient("xi", "scribe_v1", "Kubernetes", 5*time.Second)
	el.endpoint = srv.URL

	resp, err := el.Transcribe(context.Background(), writeAudio(t, "a.wav", []byte("x")), TranscribeOpts{Hotwords: "Postgres"})
	if err != nil {
		t.Fatalf("Transcribe: %v", err)
	}
	if gotKey != "xi" {
		t.Errorf("xi-api-key = %q", gotKey)
	}
	if gotKeyterms != `[{"text":"Kubernetes"},{"text":"Postgres"}]` {
		t.Errorf("keyterms = %q", gotKeyterms)
	}
	if len(resp.Words) != 2 {
		t.Errorf("Words = %d, want spacing filtered", len(resp.Words))
	}
	if resp.Duration != 0.9 {
		t.Errorf("Duration = %v, want 0.9", resp.Duration)
	}
}

func TestBuildKeyterms(t *testing.T) {
	if got := buildKeyterms("", " , "); got != "" {
		t.Errorf("buildKeyterms(empty) = %q", got)
	}
	if got := buildKeyterms("a, b", ""); got != `[{"text":"a"},{"text":"b"}]` {
		t.Errorf("buildKeyterms = %q", got)
	}
}
