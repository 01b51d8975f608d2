package audio

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRunner records invocations and writes a small WAV to the last
// argument, which is the output path for every ffmpeg call we make.
type fakeRunner struct {
	calls [][]string
	err   error
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	f.calls = append(f.calls, append([]string{name}, args...))
	if f.err != nil {
		return "", f.err
	}
	out := args[len(args)-1]
	return "", os.WriteFile(out, EncodeWAV(make([]byte, 320), 16000, 1), 0o644)
}

func writeTempFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, data, 0o644))
	return p
}

func TestClipCleanup(t *testing.T) {
	p := writeTempFile(t, "clip.wav", []byte("x"))

	keep := &Clip{Path: p}
	require.NoError(t, keep.Cleanup())
	assert.FileExists(t, p)

	owned := &Clip{Path: p, DeleteOnClose: true}
	require.NoError(t, owned.Cleanup())
	assert.NoFileExists(t, p)

	// second cleanup of a removed file is fine
	require.NoError(t, owned.Cleanup())

	var nilClip *Clip
	assert.NoError(t, nilClip.Cleanup())
}

func TestConverterToWAV(t *testing.T) {
	src := writeTempFile(t, "meeting.mp3", []byte("mp3"))
	runner := &fakeRunner{}
	conv := NewConverter("ffmpeg", runner)

	out, err := conv.ToWAV(context.Background(), src, 16000)
	require.NoError(t, err)
	defer os.Remove(out)

	require.Len(t, runner.calls, 1)
	want := []string{"ffmpeg", "-y", "-i", src, "-ac", "1", "-ar", "16000", "-f", "wav", out}
	assert.Equal(t, want, runner.calls[0])
	assert.FileExists(t, out)
}

func TestConverterToWAV_MissingSource(t *testing.T) {
	conv := NewConverter("ffmpeg", &fakeRunner{})
	_, err := conv.ToWAV(context.Background(), filepath.Join(t.TempDir(), "nope.mp3"), 16000)
	require.Error(t, err)
	assert.True(t, errors.Is(err, fs.ErrNotExist))
}

func TestConverterToWAV_Errors(t *testing.T) {
	src := writeTempFile(t, "meeting.mp3", []byte("mp3"))

	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{"ffmpeg_missing", fmt.Errorf("command 'ffmpeg': %w", exec.ErrNotFound), "ffmpeg not found"},
		{"non_zero_exit", &CommandError{Name: "ffmpeg", ExitCode: 1, Stderr: "Invalid data found"}, "ffmpeg conversion failed (exit code 1).\nInvalid data found"},
		{"other", errors.New("killed"), "ffmpeg conversion failed: killed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := NewConverter("ffmpeg", &fakeRunner{err: tt.err})
			_, err := conv.ToWAV(context.Background(), src, 16000)
			require.Error(t, err)
			assert.True(t, IsProcessingError(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestReadWAVInfo(t *testing.T) {
	wav := EncodeWAV(make([]byte, 32000), 16000, 1)
	r := bytes.NewReader(wav)

	info, err := ReadWAVInfo(r)
	require.NoError(t, err)
	assert.Equal(t, uint32(16000), info.SampleRate)
	assert.Equal(t, uint16(1), info.Channels)
	assert.Equal(t, uint16(16), info.BitsPerSample)
	assert.Equal(t, uint32(32000), info.DataSize)
	assert.True(t, info.IsPCM16Mono())
	assert.InDelta(t, 1.0, info.Duration(), 1e-9)
	assert.Equal(t, 32000, r.Len(), "reader should be positioned at PCM data")
}

func TestReadWAVInfo_SkipsUnknownChunks(t *testing.T) {
	wav := EncodeWAV([]byte{1, 2, 3, 4}, 8000, 1)
	// splice a LIST chunk with odd length between fmt and data
	fmtEnd := 12 + 8 + 16
	list := append([]byte("LIST"), 3, 0, 0, 0, 'a', 'b', 'c', 0)
	spliced := append(append(append([]byte{}, wav[:fmtEnd]...), list...), wav[fmtEnd:]...)

	info, err := ReadWAVInfo(bytes.NewReader(spliced))
	require.NoError(t, err)
	assert.Equal(t, uint32(8000), info.SampleRate)
	assert.Equal(t, uint32(4), info.DataSize)
}

func TestReadWAVInfo_NotWAV(t *testing.T) {
	_, err := ReadWAVInfo(strings.NewReader("ID3\x03\x00\x00\x00\x00\x00\x00\x00\x00"))
	assert.ErrorIs(t, err, ErrNotWAV)

	_, err = ReadWAVInfo(strings.NewReader("RIF"))
	assert.Error(t, err)
}

func TestResolvePath(t *testing.T) {
	p := writeTempFile(t, "a.wav", []byte("x"))

	got, err := ResolvePath("  "+p+"  ", "")
	require.NoError(t, err)
	assert.Equal(t, p, got)

	got, err = ResolvePath("", p)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	_, err = ResolvePath("", "")
	assert.Error(t, err)

	_, err = ResolvePath(filepath.Join(t.TempDir(), "missing.wav"), "")
	assert.ErrorIs(t, err, fs.ErrNotExist)
}

func TestIsAudioFile(t *testing.T) {
	assert.True(t, IsAudioFile("standup.MP3"))
	assert.True(t, IsAudioFile("/in/call.wav"))
	assert.False(t, IsAudioFile("notes.md"))
	assert.False(t, IsAudioFile("noext"))
}

func TestNewSource(t *testing.T) {
	s, err := NewSource(" File ", SourceOptions{})
	require.NoError(t, err)
	assert.IsType(t, &FileSource{}, s)

	s, err = NewSource("microphone", SourceOptions{})
	require.NoError(t, err)
	mic := s.(*MicrophoneSource)
	assert.Equal(t, DefaultSampleRate, mic.SampleRate)
	assert.Equal(t, 10*time.Second, mic.DefaultDuration)

	_, err = NewSource("bluetooth", SourceOptions{})
	assert.ErrorIs(t, err, ErrUnknownSource)
}

func TestFileSourceAcquire(t *testing.T) {
	src := writeTempFile(t, "standup.m4a", []byte("m4a"))
	runner := &fakeRunner{}
	var out bytes.Buffer

	source := &FileSource{
		SampleRate:  16000,
		DefaultPath: src,
		Converter:   NewConverter("", runner),
		Prompt:      NewPrompter(strings.NewReader("\n"), &out),
	}

	clip, err := source.Acquire(context.Background())
	require.NoError(t, err)
	defer clip.Cleanup()

	assert.True(t, clip.DeleteOnClose)
	assert.Equal(t, "Enter path to audio file ["+src+"]: ", out.String())
	require.Len(t, runner.calls, 1)
	assert.Equal(t, src, runner.calls[0][3])
}

func TestMicrophoneSourceAcquire(t *testing.T) {
	runner := &fakeRunner{}
	var out bytes.Buffer
	mic := &MicrophoneSource{
		SampleRate:      16000,
		DefaultDuration: 10 * time.Second,
		InputFormat:     "pulse",
		Device:          "mic0",
		Converter:       NewConverter("ffmpeg", runner),
		Prompt:          NewPrompter(strings.NewReader("2.5\n"), &out),
	}

	clip, err := mic.Acquire(context.Background())
	require.NoError(t, err)
	defer clip.Cleanup()

	assert.Contains(t, out.String(), "Recording duration in seconds [10.0]: ")
	assert.Contains(t, out.String(), "Recording for 2.5 seconds at 16000 Hz...")
	require.Len(t, runner.calls, 1)
	args := strings.Join(runner.calls[0], " ")
	assert.Contains(t, args, "-f pulse -i mic0 -t 2.500 -ac 1 -ar 16000")
}

func TestMicrophoneSourceAcquire_InvalidDuration(t *testing.T) {
	for _, in := range []string{"0\n", "-4\n", "ten\n", "NaN\n"} {
		mic := &MicrophoneSource{
			SampleRate:      16000,
			DefaultDuration: 10 * time.Second,
			Converter:       NewConverter("ffmpeg", &fakeRunner{}),
			Prompt:          NewPrompter(strings.NewReader(in), &bytes.Buffer{}),
		}
		_, err := mic.Acquire(context.Background())
		assert.ErrorIs(t, err, ErrInvalidDuration, "input %q", in)
	}
}

func TestDefaultCapture(t *testing.T) {
	f, d := defaultCapture("linux")
	assert.Equal(t, "alsa", f)
	assert.Equal(t, "default", d)
	f, _ = defaultCapture("darwin")
	assert.Equal(t, "avfoundation", f)
	f, _ = defaultCapture("windows")
	assert.Equal(t, "dshow", f)
}

func TestPrompterAsk(t *testing.T) {
	var out bytes.Buffer
	p := NewPrompter(strings.NewReader(" first \nlast"), &out)

	got, err := p.Ask("? ")
	require.NoError(t, err)
	assert.Equal(t, "first", got)

	got, err = p.Ask("? ")
	require.NoError(t, err)
	assert.Equal(t, "last", got)

	_, err = p.Ask("? ")
	assert.Error(t, err)
	assert.Equal(t, "? ? ? ", out.String())
}
