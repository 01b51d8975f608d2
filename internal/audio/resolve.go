package audio

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Extensions accepted by the drop-folder watcher and the upload endpoints.
var audioExtensions = map[string]bool{
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".ogg":  true,
	".opus": true,
	".webm": true,
	".aac":  true,
}

// IsAudioFile reports whether name has a recognised audio extension.
func IsAudioFile(name string) bool {
	return audioExtensions[strings.ToLower(filepath.Ext(name))]
}

// ResolvePath turns user input into an existing file path.
// Priority: 1) input with a leading ~ expanded  2) defaultPath when input is blank
func ResolvePath(input, defaultPath string) (string, error) {
	p := strings.TrimSpace(input)
	if p == "" {
		p = defaultPath
	}
	if p == "" {
		return "", fmt.Errorf("no audio file given")
	}

	p = expandHome(p)
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("audio file not found: %s: %w", p, err)
	}
	return p, nil
}

func expandHome(p string) string {
	if p != "~" && !strings.HasPrefix(p, "~/") {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}
	if p == "~" {
		return home
	}
	return filepath.Join(home, p[2:])
}
