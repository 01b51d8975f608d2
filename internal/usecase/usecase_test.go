package usecase

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/snarg/speech-demo/internal/audio"
	"github.com/snarg/speech-demo/internal/transcribe"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	t     *testing.T
	err   error
	clips []string
}

func (s *fakeSource) Label() string { return "fake" }

func (s *fakeSource) Acquire(ctx context.Context) (*audio.Clip, error) {
	if s.err != nil {
		return nil, s.err
	}
	p := filepath.Join(s.t.TempDir(), "clip.wav")
	require.NoError(s.t, os.WriteFile(p, []byte("x"), 0o644))
	s.clips = append(s.clips, p)
	return &audio.Clip{Path: p, DeleteOnClose: true}, nil
}

type fakeProvider struct {
	texts []string
	err   error
	calls int
}

func (p *fakeProvider) Name() string  { return "fake" }
func (p *fakeProvider) Model() string { return "fake" }
func (p *fakeProvider) Transcribe(ctx context.Context, path string, opts transcribe.TranscribeOpts) (*transcribe.Response, error) {
	if p.err != nil {
		return nil, p.err
	}
	text := ""
	if p.calls < len(p.texts) {
		text = p.texts[p.calls]
	}
	p.calls++
	return &transcribe.Response{Text: text}, nil
}

func assertCleaned(t *testing.T, src *fakeSource) {
	t.Helper()
	for _, c := range src.clips {
		assert.NoFileExists(t, c)
	}
}

func TestAvailable(t *testing.T) {
	m := Available(&bytes.Buffer{}, audio.NewPrompter(strings.NewReader(""), &bytes.Buffer{}))
	require.Equal(t, []string{"1", "2", "3"}, Keys(m))
	assert.Equal(t, "Transcribe one recording (file or mic)", m["1"].Label())
	assert.Equal(t, "Live transcription (repeat takes)", m["2"].Label())
	assert.Equal(t, "Meeting minutes (transcribe + local summary)", m["3"].Label())
}

func TestPrintSectionTitle(t *testing.T) {
	var out bytes.Buffer
	PrintSectionTitle(&out, "Hello")
	assert.Equal(t, "\n=====\nHello\n=====\n\n", out.String())
}

func TestTranscribeFile(t *testing.T) {
	var out bytes.Buffer
	src := &fakeSource{t: t}
	uc := &TranscribeFile{Out: &out}

	require.NoError(t, uc.Run(context.Background(), src, &fakeProvider{texts: []string{"  hello there  "}}))

	want := "\n" + strings.Repeat("=", 36) + "\nUse case 1: Transcribe one recording\n" + strings.Repeat("=", 36) + "\n\n" +
		"\n--- Transcript start ---\n\nhello there\n\n--- Transcript end ---\n\n"
	assert.Equal(t, want, out.String())
	assertCleaned(t, src)
}

func TestTranscribeFile_NoSpeech(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&TranscribeFile{Out: &out}).Run(context.Background(), &fakeSource{t: t}, &fakeProvider{}))
	assert.Contains(t, out.String(), "\n[no speech recognised]\n")
}

func TestTranscribeFile_ErrorsStillCleanUp(t *testing.T) {
	src := &fakeSource{t: t}
	boom := errors.New("recognizer crashed")
	err := (&TranscribeFile{Out: &bytes.Buffer{}}).Run(context.Background(), src, &fakeProvider{err: boom})
	assert.ErrorIs(t, err, boom)
	require.Len(t, src.clips, 1)
	assertCleaned(t, src)

	acquireErr := errors.New("no mic")
	err = (&TranscribeFile{Out: &bytes.Buffer{}}).Run(context.Background(), &fakeSource{t: t, err: acquireErr}, &fakeProvider{})
	assert.ErrorIs(t, err, acquireErr)
}

func TestLiveTranscribe(t *testing.T) {
	var out bytes.Buffer
	prompter := audio.NewPrompter(strings.NewReader("\n\nQ\n"), &out)
	src := &fakeSource{t: t}
	prov := &fakeProvider{texts: []string{"first take", ""}}

	uc := &LiveTranscribe{Out: &out, Prompt: prompter}
	require.NoError(t, uc.Run(context.Background(), src, prov))

	got := out.String()
	assert.Equal(t, 2, prov.calls)
	assert.Equal(t, 3, strings.Count(got, "Continue? [Enter/q]: "))
	assert.Equal(t, 2, strings.Count(got, "\n--- Snippet transcript ---\n\n"))
	assert.Contains(t, got, "first take\n")
	assert.Contains(t, got, "[no speech recognised]\n")
	assert.Contains(t, got, "Press Enter to record/transcribe a snippet. Type 'q' then Enter to stop.\n\n")
	assertCleaned(t, src)
}

func TestLiveTranscribe_StopsOnEOF(t *testing.T) {
	var out bytes.Buffer
	prov := &fakeProvider{texts: []string{"only"}}
	uc := &LiveTranscribe{Out: &out, Prompt: audio.NewPrompter(strings.NewReader("\n"), &out)}

	require.NoError(t, uc.Run(context.Background(), &fakeSource{t: t}, prov))
	assert.Equal(t, 1, prov.calls)
}

func TestMeetingMinutes(t *testing.T) {
	var out bytes.Buffer
	prov := &fakeProvider{texts: []string{"Budget approved for next quarter. Okay."}}
	uc := &MeetingMinutes{Out: &out, MaxSentences: 1}

	require.NoError(t, uc.Run(context.Background(), &fakeSource{t: t}, prov))

	got := out.String()
	assert.Contains(t, got, "\n--- Meeting minutes ---\n\n# Meeting minutes\n")
	assert.Contains(t, got, "- [ ] (Owner?) Budget approved for next quarter.\n\n--- End ---\n\n")
	assert.NotContains(t, got, "- Okay.")
}

func TestMeetingMinutes_NoSpeech(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, (&MeetingMinutes{Out: &out}).Run(context.Background(), &fakeSource{t: t}, &fakeProvider{texts: []string{"   "}}))
	assert.True(t, strings.HasSuffix(out.String(), "\nNo speech recognised; nothing to summarise.\n\n"))
	assert.NotContains(t, out.String(), "--- Meeting minutes ---")
}
