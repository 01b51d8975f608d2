package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// uploadField is the multipart field carrying the audio file.
const uploadField = "file"

// multipartMemory is how much of a form is kept in memory before spilling
// to disk.
const multipartMemory = 32 << 20

// savedUpload is an uploaded file copied to a temporary path.
type savedUpload struct {
	Path     string
	Filename string
	Size     int64
}

// Remove deletes the temporary copy. Errors are ignored.
func (u *savedUpload) Remove() {
	_ = os.Remove(u.Path)
}

// uploadError is a client error found while reading an upload.
type uploadError struct {
	status int
	code   string
	msg    string
}

func (e *uploadError) Error() string { return e.msg }

func (e *uploadError) write(w http.ResponseWriter) {
	WriteErrorWithCode(w, e.status, e.code, e.msg)
}

// saveUpload reads the multipart "file" field into a temp file that keeps
// the upload's extension (".bin" when it has none). Bodies larger than
// maxBytes are rejected; a non-positive maxBytes disables the limit.
// Client mistakes are returned as *uploadError.
func saveUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (*savedUpload, error) {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, &uploadError{http.StatusRequestEntityTooLarge, ErrPayloadTooLarge,
				fmt.Sprintf("Upload exceeds the %d byte limit.", maxBytes)}
		}
		return nil, &uploadError{http.StatusBadRequest, ErrInvalidBody, "invalid multipart form: " + err.Error()}
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile(uploadField)
	if err != nil {
		// A part without a filename is parsed as a plain value.
		if _, ok := r.MultipartForm.Value[uploadField]; ok {
			return nil, &uploadError{http.StatusBadRequest, ErrBadRequest, "Uploaded file has no filename."}
		}
		return nil, &uploadError{http.StatusUnprocessableEntity, ErrInvalidBody, "multipart field \"file\" is required"}
	}
	defer file.Close()

	if header.Filename == "" {
		return nil, &uploadError{http.StatusBadRequest, ErrBadRequest, "Uploaded file has no filename."}
	}

	ext := filepath.Ext(filepath.Base(header.Filename))
	if ext == "" {
		ext = ".bin"
	}
	tmp, err := os.CreateTemp("", "upload-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp file: %w", err)
	}

	n, err := io.Copy(tmp, file)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("write upload: %w", err)
	}
	if n == 0 {
		os.Remove(tmp.Name())
		return nil, &uploadError{http.StatusBadRequest, ErrBadRequest, "Uploaded file is empty."}
	}

	return &savedUpload{Path: tmp.Name(), Filename: header.Filename, Size: n}, nil
}
