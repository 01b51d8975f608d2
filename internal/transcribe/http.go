package transcribe

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
)

// formField is a non-file multipart field. Empty values are skipped.
type formField struct {
	name  string
	value string
}

// uploadRequest describes a multipart audio upload to an HTTP STT API.
type uploadRequest struct {
	label     string // provider name used in error messages
	url       string
	fileField string
	audioPath string
	fields    []formField
	headers   map[string]string
}

// postAudio sends the audio file as multipart/form-data and returns the body
// of a 200 response. Any other status is an error carrying the body text.
func postAudio(ctx context.Context, client *http.Client, ur uploadRequest) ([]byte, error) {
	f, err := os.Open(ur.audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := w.CreateFormFile(ur.fileField, filepath.Base(ur.audioPath))
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return nil, fmt.Errorf("copy audio data: %w", err)
	}
	for _, fld := range ur.fields {
		if fld.value == "" {
			continue
		}
		if err := w.WriteField(fld.name, fld.value); err != nil {
			return nil, fmt.Errorf("write field %s: %w", fld.name, err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close multipart: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ur.url, &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	for k, v := range ur.headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s request: %w", ur.label, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s API error (status %d): %s", ur.label, resp.StatusCode, string(body))
	}
	return body, nil
}

func languageOrDefault(lang string) string {
	if lang == "" {
		return "en"
	}
	return lang
}
