package transcribe

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/snarg/speech-demo/internal/audio"
)

// SpeechBrainClient runs a local SpeechBrain EncoderDecoderASR wrapper as a
// subprocess. The command is invoked as
//
//	<command> --source <model> --savedir <dir> <audio>
//
// and must print the transcript on stdout.
type SpeechBrainClient struct {
	command string
	source  string
	savedir string
	runner  audio.Runner
}

// NewSpeechBrainClient creates a client for the given wrapper command. A nil
// runner uses audio.ExecRunner.
func NewSpeechBrainClient(command, source, savedir string, runner audio.Runner) *SpeechBrainClient {
	if runner == nil {
		runner = audio.ExecRunner{}
	}
	return &SpeechBrainClient{
		command: command,
		source:  source,
		savedir: savedir,
		runner:  runner,
	}
}

func (sb *SpeechBrainClient) Name() string  { return "speechbrain" }
func (sb *SpeechBrainClient) Model() string { return sb.source }

// Transcribe accepts any format SpeechBrain's loader can read.
func (sb *SpeechBrainClient) Transcribe(ctx context.Context, audioPath string, opts TranscribeOpts) (*Response, error) {
	if _, err := os.Stat(audioPath); err != nil {
		return nil, fmt.Errorf("audio file not found: %w", err)
	}

	args := []string{"--source", sb.source}
	if sb.savedir != "" {
		args = append(args, "--savedir", sb.savedir)
	}
	args = append(args, audioPath)

	out, err := sb.runner.Run(ctx, sb.command, args...)
	if err != nil {
		return nil, fmt.Errorf("speechbrain: %w", err)
	}

	return &Response{
		Text:     strings.TrimSpace(out),
		Language: opts.Language,
	}, nil
}
