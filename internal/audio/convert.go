package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
)

// DefaultSampleRate is the rate recognizers expect unless configured otherwise.
const DefaultSampleRate = 16000

// Converter normalizes audio with ffmpeg.
type Converter struct {
	ffmpeg string
	runner Runner
}

// NewConverter returns a converter that invokes the ffmpeg binary at path.
// An empty path means "ffmpeg" on PATH; a nil runner means ExecRunner.
func NewConverter(path string, runner Runner) *Converter {
	if path == "" {
		path = "ffmpeg"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Converter{ffmpeg: path, runner: runner}
}

// ToWAV converts src to a mono WAV at sampleRate and returns the path of a
// new temporary file owned by the caller.
func (c *Converter) ToWAV(ctx context.Context, src string, sampleRate int) (string, error) {
	if _, err := os.Stat(src); err != nil {
		return "", fmt.Errorf("audio file not found: %s: %w", src, err)
	}

	out, err := tempWAV()
	if err != nil {
		return "", err
	}

	_, err = c.runner.Run(ctx, c.ffmpeg,
		"-y",
		"-i", src,
		"-ac", "1",
		"-ar", strconv.Itoa(sampleRate),
		"-f", "wav",
		out,
	)
	if err != nil {
		os.Remove(out)
		return "", ffmpegError("ffmpeg conversion failed", err)
	}
	return out, nil
}

// ffmpegError maps a Runner failure to a *ProcessingError.
func ffmpegError(action string, err error) error {
	if errors.Is(err, exec.ErrNotFound) {
		return &ProcessingError{Msg: "ffmpeg not found. Install ffmpeg and ensure it is on PATH.", Err: err}
	}
	var ce *CommandError
	if errors.As(err, &ce) {
		msg := fmt.Sprintf("%s (exit code %d).", action, ce.ExitCode)
		if ce.Stderr != "" {
			msg += "\n" + ce.Stderr
		}
		return &ProcessingError{Msg: msg, Err: err}
	}
	return &ProcessingError{Msg: action + ": " + err.Error(), Err: err}
}

func tempWAV() (string, error) {
	f, err := os.CreateTemp("", "speech-demo-*.wav")
	if err != nil {
		return "", fmt.Errorf("create temp wav: %w", err)
	}
	name := f.Name()
	if err := f.Close(); err != nil {
		os.Remove(name)
		return "", fmt.Errorf("close temp wav: %w", err)
	}
	return name, nil
}
