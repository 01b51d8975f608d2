package transcribe

import (
	"context"
	"os"

	"github.com/snarg/speech-demo/internal/audio"
)

// Prepare returns a path p can transcribe directly. Providers that require
// WAV get a converted temporary copy at their sample rate; everything else
// gets inputPath unchanged. cleanup is always safe to call.
func Prepare(ctx context.Context, p Provider, conv *audio.Converter, inputPath string) (path string, cleanup func(), err error) {
	noop := func() {}

	w, ok := p.(WAVRequirer)
	if !ok || !w.RequiresWAV() || conv == nil {
		return inputPath, noop, nil
	}

	out, err := conv.ToWAV(ctx, inputPath, w.SampleRate())
	if err != nil {
		return "", noop, err
	}
	return out, func() { os.Remove(out) }, nil
}
