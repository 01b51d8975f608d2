package audio

import (
	"context"
	"strings"
	"time"
)

// Source produces one audio clip per call to Acquire.
type Source interface {
	Label() string
	Acquire(ctx context.Context) (*Clip, error)
}

// SourceOptions configure the sources built by NewSource.
type SourceOptions struct {
	SampleRate      int
	DefaultPath     string
	DefaultDuration time.Duration
	InputFormat     string
	Device          string
	Converter       *Converter
	Prompter        *Prompter
}

func (o SourceOptions) withDefaults() SourceOptions {
	if o.SampleRate <= 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.DefaultDuration <= 0 {
		o.DefaultDuration = 10 * time.Second
	}
	if o.Converter == nil {
		o.Converter = NewConverter("", nil)
	}
	return o
}

// SourceNames lists the names NewSource accepts.
func SourceNames() []string {
	return []string{"file", "microphone"}
}

// NewSource builds the source registered under name ("file" or "microphone").
func NewSource(name string, opts SourceOptions) (Source, error) {
	opts = opts.withDefaults()
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "file":
		return &FileSource{
			SampleRate:  opts.SampleRate,
			DefaultPath: opts.DefaultPath,
			Converter:   opts.Converter,
			Prompt:      opts.Prompter,
		}, nil
	case "microphone", "mic":
		return &MicrophoneSource{
			SampleRate:      opts.SampleRate,
			DefaultDuration: opts.DefaultDuration,
			InputFormat:     opts.InputFormat,
			Device:          opts.Device,
			Converter:       opts.Converter,
			Prompt:          opts.Prompter,
		}, nil
	default:
		return nil, ErrUnknownSource
	}
}
