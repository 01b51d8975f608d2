package audio

import (
	"errors"
	"io/fs"
	"os"
)

// Clip is an audio file handed from a Source to a recognizer.
type Clip struct {
	Path string
	// DeleteOnClose marks Path as a temporary file owned by the clip.
	DeleteOnClose bool
}

// Cleanup removes the file when the clip owns it. Removing an already
// deleted file is not an error.
func (c *Clip) Cleanup() error {
	if c == nil || !c.DeleteOnClose || c.Path == "" {
		return nil
	}
	if err := os.Remove(c.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}
