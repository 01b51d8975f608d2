package transcribe

import "context"

// Provider is the interface for speech-to-text backends.
type Provider interface {
	Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error)
	Name() string  // "whisper", "vosk", "speechbrain", ...
	Model() string // model identifier for history rows and logs
}

// WAVRequirer is implemented by providers that only accept mono PCM16 WAV
// at a fixed sample rate. Callers convert input before calling Transcribe.
type WAVRequirer interface {
	RequiresWAV() bool
	SampleRate() int
}

// NeedsWAV reports whether p must be given a converted WAV file.
func NeedsWAV(p Provider) bool {
	w, ok := p.(WAVRequirer)
	return ok && w.RequiresWAV()
}

// TranscribeOpts are per-request options. Zero values are omitted from
// requests so servers fall back to their own defaults.
type TranscribeOpts struct {
	Temperature float64
	Language    string
	Prompt      string // initial prompt / domain vocabulary
	Hotwords    string // comma-separated vocabulary boost terms
	BeamSize    int    // 0 = server default
	VadFilter   bool
}

// Response is the common transcription result from any provider.
type Response struct {
	Text     string
	Language string
	Duration float64 // audio duration in seconds
	Words    []Word  // nil if provider doesn't support word timestamps
}

// Word is a timestamped word from any STT provider.
type Word struct {
	Word  string
	Start float64 // seconds
	End   float64 // seconds
}
