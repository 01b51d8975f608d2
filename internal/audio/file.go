package audio

import (
	"context"
	"errors"
	"fmt"
)

// FileSource asks for a file path and converts the file to mono WAV.
type FileSource struct {
	SampleRate  int
	DefaultPath string
	Converter   *Converter
	Prompt      *Prompter
}

func (s *FileSource) Label() string { return "Audio file (MP3/WAV/...)" }

// Acquire prompts for a path (blank selects DefaultPath) and returns a
// temporary WAV clip at SampleRate.
func (s *FileSource) Acquire(ctx context.Context) (*Clip, error) {
	if s.Prompt == nil {
		return nil, errors.New("file source: no prompter configured")
	}

	hint := ""
	if s.DefaultPath != "" {
		hint = fmt.Sprintf(" [%s]", s.DefaultPath)
	}
	raw, err := s.Prompt.Ask(fmt.Sprintf("Enter path to audio file%s: ", hint))
	if err != nil {
		return nil, fmt.Errorf("read path: %w", err)
	}

	path, err := ResolvePath(raw, s.DefaultPath)
	if err != nil {
		return nil, err
	}

	wav, err := s.Converter.ToWAV(ctx, path, s.SampleRate)
	if err != nil {
		return nil, err
	}
	return &Clip{Path: wav, DeleteOnClose: true}, nil
}
