package audio

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"time"
)

// MicrophoneSource records a fixed-length take through ffmpeg's capture
// devices (alsa, avfoundation or dshow depending on the platform).
type MicrophoneSource struct {
	SampleRate      int
	DefaultDuration time.Duration
	InputFormat     string // ffmpeg -f value; empty selects the platform default
	Device          string // ffmpeg -i value; empty selects the platform default
	Converter       *Converter
	Prompt          *Prompter
}

func (s *MicrophoneSource) Label() string { return "Microphone recording" }

// defaultCapture returns the ffmpeg input format and device for goos.
func defaultCapture(goos string) (format, device string) {
	switch goos {
	case "darwin":
		return "avfoundation", ":0"
	case "windows":
		return "dshow", "audio=default"
	default:
		return "alsa", "default"
	}
}

// Acquire prompts for a duration and records mono PCM16 at SampleRate into
// a temporary WAV clip.
func (s *MicrophoneSource) Acquire(ctx context.Context) (*Clip, error) {
	if s.Prompt == nil {
		return nil, errors.New("microphone source: no prompter configured")
	}

	def := s.DefaultDuration.Seconds()
	raw, err := s.Prompt.Ask(fmt.Sprintf("Recording duration in seconds [%.1f]: ", def))
	if err != nil {
		return nil, fmt.Errorf("read duration: %w", err)
	}
	seconds, err := parseDuration(raw, def)
	if err != nil {
		return nil, err
	}

	s.Prompt.Printf("\nRecording for %.1f seconds at %d Hz...\n\n", seconds, s.SampleRate)

	format, device := defaultCapture(runtime.GOOS)
	if s.InputFormat != "" {
		format = s.InputFormat
	}
	if s.Device != "" {
		device = s.Device
	}

	out, err := tempWAV()
	if err != nil {
		return nil, err
	}

	_, err = s.Converter.runner.Run(ctx, s.Converter.ffmpeg,
		"-y",
		"-f", format,
		"-i", device,
		"-t", strconv.FormatFloat(seconds, 'f', 3, 64),
		"-ac", "1",
		"-ar", strconv.Itoa(s.SampleRate),
		"-acodec", "pcm_s16le",
		out,
	)
	if err != nil {
		os.Remove(out)
		return nil, ffmpegError("microphone recording failed", err)
	}
	return &Clip{Path: out, DeleteOnClose: true}, nil
}

// parseDuration reads a positive number of seconds; blank input yields def.
func parseDuration(raw string, def float64) (float64, error) {
	if raw == "" {
		if def <= 0 {
			return 0, ErrInvalidDuration
		}
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidDuration
	}
	return v, nil
}
