package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/snarg/speech-demo/internal/audio"
	"github.com/snarg/speech-demo/internal/database"
	"github.com/snarg/speech-demo/internal/storage"
	"github.com/snarg/speech-demo/internal/transcribe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	name  string
	text  string
	err   error
	mu    sync.Mutex
	paths []string
}

func (f *fakeProvider) Name() string  { return f.name }
func (f *fakeProvider) Model() string { return "test-model" }
func (f *fakeProvider) Transcribe(ctx context.Context, path string, opts transcribe.TranscribeOpts) (*transcribe.Response, error) {
	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return &transcribe.Response{Text: "  " + f.text + "\n"}, nil
}

type wavProvider struct{ *fakeProvider }

func (w wavProvider) RequiresWAV() bool { return true }
func (w wavProvider) SampleRate() int   { return 16000 }

type fakeProviders map[string]transcribe.Provider

func (f fakeProviders) Get(name string) (transcribe.Provider, error) {
	if p, ok := f[transcribe.Normalize(name)]; ok {
		return p, nil
	}
	return nil, transcribe.ErrUnknownProvider
}

type fakeHistory struct {
	mu   sync.Mutex
	rows []database.TranscriptionRow
	err  error
}

func (h *fakeHistory) InsertTranscription(ctx context.Context, row *database.TranscriptionRow) (int64, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return 0, h.err
	}
	h.rows = append(h.rows, *row)
	return int64(len(h.rows)), nil
}

// ffmpegStub writes a WAV to the last argument.
type ffmpegStub struct{}

func (ffmpegStub) Run(ctx context.Context, name string, args ...string) (string, error) {
	return "", os.WriteFile(args[len(args)-1], audio.EncodeWAV(make([]byte, 32), 16000, 1), 0o644)
}

const meetingText = "We agreed to ship the release on Friday. Okay. Maria will update the migration guide."

func writeInput(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte("audio"), 0o644))
	return p
}

func TestPipeline_ProcessMinutes(t *testing.T) {
	prov := &fakeProvider{name: "whisper", text: meetingText}
	hist := &fakeHistory{}
	archiveDir := t.TempDir()
	p := NewPipeline(PipelineOptions{
		Providers: fakeProviders{"whisper": prov},
		Converter: audio.NewConverter("ffmpeg", ffmpegStub{}),
		History:   hist,
		Archive:   storage.NewLocalStore(archiveDir),
		Log:       zerolog.Nop(),
	})
	p.now = func() time.Time { return time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC) }

	in := writeInput(t, "standup.mp3")
	res, err := p.Process(context.Background(), Request{
		UseCase:      UseCaseMeetingMinutes,
		Recognizer:   "Whisper",
		AudioPath:    in,
		Filename:     "standup.mp3",
		Minutes:      true,
		MaxSentences: 2,
	})
	require.NoError(t, err)

	assert.Equal(t, "whisper", res.Recognizer)
	assert.Equal(t, meetingText, res.Transcript)
	assert.Equal(t, []string{
		"We agreed to ship the release on Friday.",
		"Maria will update the migration guide.",
	}, res.KeyPoints)
	assert.Contains(t, res.Minutes, "## Key points")
	assert.Equal(t, []string{in}, prov.paths, "non-WAV providers get the original file")

	require.Len(t, hist.rows, 1)
	row := hist.rows[0]
	assert.Equal(t, UseCaseMeetingMinutes, row.UseCase)
	assert.Equal(t, "standup.mp3", row.Filename)
	assert.Equal(t, res.Minutes, row.Minutes)
	assert.Equal(t, int64(1), res.HistoryID)

	require.NotEmpty(t, res.ArchiveKey)
	assert.Regexp(t, `^minutes/2026-05-04/`, res.ArchiveKey)
	data, err := os.ReadFile(filepath.Join(archiveDir, filepath.FromSlash(res.ArchiveKey)))
	require.NoError(t, err)
	assert.Equal(t, res.Minutes+"\n", string(data))
}

func TestPipeline_TranscribeOnlySkipsArchive(t *testing.T) {
	archiveDir := t.TempDir()
	p := NewPipeline(PipelineOptions{
		Providers: fakeProviders{"whisper": &fakeProvider{name: "whisper", text: "hello"}},
		Archive:   storage.NewLocalStore(archiveDir),
		Log:       zerolog.Nop(),
	})

	res, err := p.Process(context.Background(), Request{
		UseCase:    UseCaseTranscribe,
		Recognizer: "whisper",
		AudioPath:  writeInput(t, "a.wav"),
	})
	require.NoError(t, err)
	assert.Equal(t, "hello", res.Transcript)
	assert.Empty(t, res.Minutes)
	assert.Empty(t, res.ArchiveKey)

	entries, _ := os.ReadDir(archiveDir)
	assert.Empty(t, entries)
}

func TestPipeline_ConvertsForWAVProviders(t *testing.T) {
	prov := wavProvider{&fakeProvider{name: "vosk", text: "ok"}}
	p := NewPipeline(PipelineOptions{
		Providers: fakeProviders{"vosk": prov},
		Converter: audio.NewConverter("ffmpeg", ffmpegStub{}),
		Log:       zerolog.Nop(),
	})

	in := writeInput(t, "clip.mp3")
	_, err := p.Process(context.Background(), Request{Recognizer: "vosk", AudioPath: in})
	require.NoError(t, err)

	require.Len(t, prov.paths, 1)
	assert.NotEqual(t, in, prov.paths[0])
	assert.NoFileExists(t, prov.paths[0], "converted temp file should be removed")
}

func TestPipeline_Errors(t *testing.T) {
	boom := errors.New("backend exploded")
	hist := &fakeHistory{}
	p := NewPipeline(PipelineOptions{
		Providers: fakeProviders{"whisper": &fakeProvider{name: "whisper", err: boom}},
		History:   hist,
		Log:       zerolog.Nop(),
	})

	_, err := p.Process(context.Background(), Request{Recognizer: "whisper", AudioPath: writeInput(t, "a.wav")})
	assert.ErrorIs(t, err, boom)

	_, err = p.Process(context.Background(), Request{Recognizer: "kaldi", AudioPath: writeInput(t, "a.wav")})
	assert.True(t, transcribe.IsUnknown(err))
	assert.Empty(t, hist.rows, "failed runs are not recorded")
}

func TestPipeline_HistoryFailureIsNotFatal(t *testing.T) {
	p := NewPipeline(PipelineOptions{
		Providers: fakeProviders{"whisper": &fakeProvider{name: "whisper", text: "fine"}},
		History:   &fakeHistory{err: errors.New("db down")},
		Log:       zerolog.Nop(),
	})
	res, err := p.Process(context.Background(), Request{Recognizer: "whisper", AudioPath: writeInput(t, "a.wav")})
	require.NoError(t, err)
	assert.Zero(t, res.HistoryID)
}

func TestPipeline_Summarize(t *testing.T) {
	hist := &fakeHistory{}
	p := NewPipeline(PipelineOptions{History: hist, Log: zerolog.Nop()})

	res := p.Summarize(context.Background(), "", 6)
	assert.Equal(t, "No content to summarise.", res.Minutes)
	assert.Empty(t, res.KeyPoints)

	res = p.Summarize(context.Background(), meetingText, 1)
	assert.Equal(t, []string{"We agreed to ship the release on Friday."}, res.KeyPoints)

	require.Len(t, hist.rows, 2)
	assert.Equal(t, UseCaseSummarize, hist.rows[1].UseCase)
	assert.Equal(t, "none", hist.rows[1].Recognizer)
}
