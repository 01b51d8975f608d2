package transcribe

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/snarg/speech-demo/internal/config"
)

// Primary recognizers are the ones advertised by /recognizers; the hosted
// APIs are extras that need account keys.
var (
	primaryNames = []string{"vosk", "whisper", "speechbrain"}
	extraNames   = []string{"deepinfra", "elevenlabs"}
)

// lookPath is swapped in tests.
var lookPath = exec.LookPath

// PrimaryNames returns the built-in recognizer names in display order.
func PrimaryNames() []string {
	return append([]string(nil), primaryNames...)
}

// ExtraNames returns the hosted API recognizer names.
func ExtraNames() []string {
	return append([]string(nil), extraNames...)
}

// Names returns every recognizer name New accepts.
func Names() []string {
	return append(PrimaryNames(), extraNames...)
}

// Normalize lowercases and trims a recognizer name.
func Normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// IsKnown reports whether name (after normalization) is a registered recognizer.
func IsKnown(name string) bool {
	n := Normalize(name)
	for _, k := range Names() {
		if k == n {
			return true
		}
	}
	return false
}

// New builds the recognizer registered under name from cfg. Unknown names
// wrap ErrUnknownProvider; missing configuration yields a
// *BackendUnavailableError.
func New(name string, cfg *config.Config) (Provider, error) {
	switch n := Normalize(name); n {
	case "whisper":
		if cfg.WhisperURL == "" {
			return nil, unavailable(n, "WHISPER_URL is not set", nil)
		}
		return NewWhisperClient(cfg.WhisperURL, cfg.WhisperModel, cfg.WhisperAPIKey, cfg.TranscribeTimeout), nil

	case "vosk":
		if cfg.VoskURL == "" {
			return nil, unavailable(n, "VOSK_URL is not set", nil)
		}
		if !strings.HasPrefix(cfg.VoskURL, "ws://") && !strings.HasPrefix(cfg.VoskURL, "wss://") {
			return nil, unavailable(n, fmt.Sprintf("VOSK_URL %q must use ws:// or wss://", cfg.VoskURL), nil)
		}
		return NewVoskClient(cfg.VoskURL, cfg.VoskModel, cfg.SampleRate), nil

	case "speechbrain":
		if cfg.SpeechBrainCommand == "" {
			return nil, unavailable(n, "SPEECHBRAIN_COMMAND is not set", nil)
		}
		path, err := lookPath(cfg.SpeechBrainCommand)
		if err != nil {
			return nil, unavailable(n, fmt.Sprintf("command %q not found on PATH", cfg.SpeechBrainCommand), err)
		}
		return NewSpeechBrainClient(path, cfg.SpeechBrainSource, cfg.SpeechBrainSavedir, nil), nil

	case "deepinfra":
		if cfg.DeepInfraAPIKey == "" {
			return nil, unavailable(n, "DEEPINFRA_API_KEY is not set", nil)
		}
		return NewDeepInfraClient(cfg.DeepInfraAPIKey, cfg.DeepInfraModel, cfg.TranscribeTimeout), nil

	case "elevenlabs":
		if cfg.ElevenLabsAPIKey == "" {
			return nil, unavailable(n, "ELEVENLABS_API_KEY is not set", nil)
		}
		return NewElevenLabsClient(cfg.ElevenLabsAPIKey, cfg.ElevenLabsModel, cfg.ElevenLabsKeyterms, cfg.TranscribeTimeout), nil

	default:
		return nil, fmt.Errorf("%w %q: use one of: %s", ErrUnknownProvider, name, strings.Join(Names(), ", "))
	}
}

// IsUnknown reports whether err came from an unregistered recognizer name.
func IsUnknown(err error) bool {
	return errors.Is(err, ErrUnknownProvider)
}
