// Package usecase implements the interactive demo flows offered by the CLI
// menu: one-shot transcription, repeated live takes and meeting minutes.
package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/snarg/speech-demo/internal/audio"
	"github.com/snarg/speech-demo/internal/minutes"
	"github.com/snarg/speech-demo/internal/transcribe"
)

const noSpeech = "[no speech recognised]"

// UseCase is one entry of the CLI menu.
type UseCase interface {
	Key() string
	Label() string
	Run(ctx context.Context, src audio.Source, p transcribe.Provider) error
}

// Available returns the use cases keyed by menu key. Output goes to out;
// the live use case reads its prompts through prompter.
func Available(out io.Writer, prompter *audio.Prompter) map[string]UseCase {
	all := []UseCase{
		&TranscribeFile{Out: out},
		&LiveTranscribe{Out: out, Prompt: prompter},
		&MeetingMinutes{Out: out, MaxSentences: minutes.DefaultMaxSentences},
	}
	m := make(map[string]UseCase, len(all))
	for _, uc := range all {
		m[uc.Key()] = uc
	}
	return m
}

// Keys returns the menu keys of m in sorted order.
func Keys(m map[string]UseCase) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// PrintSectionTitle writes title framed by '=' bars of the same length.
func PrintSectionTitle(out io.Writer, title string) {
	bar := strings.Repeat("=", len(title))
	fmt.Fprintf(out, "\n%s\n%s\n%s\n\n", bar, title, bar)
}

// transcribeOnce acquires one clip, transcribes it and always cleans the
// clip up.
func transcribeOnce(ctx context.Context, src audio.Source, p transcribe.Provider) (text string, err error) {
	clip, err := src.Acquire(ctx)
	if err != nil {
		return "", err
	}
	defer func() {
		if cerr := clip.Cleanup(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	resp, err := p.Transcribe(ctx, clip.Path, transcribe.TranscribeOpts{})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(resp.Text), nil
}

func orNoSpeech(text string) string {
	if text == "" {
		return noSpeech
	}
	return text
}

// TranscribeFile acquires audio once and prints the transcript.
type TranscribeFile struct {
	Out io.Writer
}

func (uc *TranscribeFile) Key() string   { return "1" }
func (uc *TranscribeFile) Label() string { return "Transcribe one recording (file or mic)" }

func (uc *TranscribeFile) Run(ctx context.Context, src audio.Source, p transcribe.Provider) error {
	PrintSectionTitle(uc.Out, "Use case 1: Transcribe one recording")

	text, err := transcribeOnce(ctx, src, p)
	if err != nil {
		return err
	}

	fmt.Fprint(uc.Out, "\n--- Transcript start ---\n\n")
	fmt.Fprintln(uc.Out, orNoSpeech(text))
	fmt.Fprint(uc.Out, "\n--- Transcript end ---\n\n")
	return nil
}

// LiveTranscribe repeats acquire + transcribe until the user types q.
type LiveTranscribe struct {
	Out    io.Writer
	Prompt *audio.Prompter
}

func (uc *LiveTranscribe) Key() string   { return "2" }
func (uc *LiveTranscribe) Label() string { return "Live transcription (repeat takes)" }

// Run stops on "q" (any case) or when input ends.
func (uc *LiveTranscribe) Run(ctx context.Context, src audio.Source, p transcribe.Provider) error {
	if uc.Prompt == nil {
		return errors.New("live transcription: no prompter configured")
	}
	PrintSectionTitle(uc.Out, "Use case 2: Live transcription (repeat takes)")
	fmt.Fprint(uc.Out, "Press Enter to record/transcribe a snippet. Type 'q' then Enter to stop.\n\n")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		cmd, err := uc.Prompt.Ask("Continue? [Enter/q]: ")
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if strings.ToLower(cmd) == "q" {
			return nil
		}

		text, err := transcribeOnce(ctx, src, p)
		if err != nil {
			return err
		}

		fmt.Fprint(uc.Out, "\n--- Snippet transcript ---\n\n")
		fmt.Fprintln(uc.Out, orNoSpeech(text))
		fmt.Fprint(uc.Out, "\n--------------------------\n\n")
	}
}

// MeetingMinutes transcribes one recording and prints heuristic minutes.
type MeetingMinutes struct {
	Out          io.Writer
	MaxSentences int
}

func (uc *MeetingMinutes) Key() string   { return "3" }
func (uc *MeetingMinutes) Label() string { return "Meeting minutes (transcribe + local summary)" }

func (uc *MeetingMinutes) Run(ctx context.Context, src audio.Source, p transcribe.Provider) error {
	PrintSectionTitle(uc.Out, "Use case 3: Meeting minutes")

	transcript, err := transcribeOnce(ctx, src, p)
	if err != nil {
		return err
	}

	if transcript == "" {
		fmt.Fprint(uc.Out, "\nNo speech recognised; nothing to summarise.\n\n")
		return nil
	}

	n := uc.MaxSentences
	if n == 0 {
		n = minutes.DefaultMaxSentences
	}

	fmt.Fprint(uc.Out, "\n--- Meeting minutes ---\n\n")
	fmt.Fprintln(uc.Out, minutes.Format(transcript, n))
	fmt.Fprint(uc.Out, "\n--- End ---\n\n")
	return nil
}
