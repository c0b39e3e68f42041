package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Upload limits.
const (
	MaxImageSize    = 5 << 20
	MaxEvidenceSize = 10 << 20
)

var errFileTooLarge = errors.New("file too large")

// evidenceTypes are the accepted evidence document types besides images.
var evidenceTypes = []string{
	"application/pdf",
	"text/plain",
	"text/csv",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	"application/vnd.openxmlformats-officedocument.presentationml.presentation",
}

// Uploads stores user supplied files under a directory served at /uploads.
type Uploads struct {
	dir string
}

// NewUploads creates the upload directory if needed.
func NewUploads(dir string) (*Uploads, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &Uploads{dir: dir}, nil
}

// Dir returns the directory files are written to.
func (u *Uploads) Dir() string {
	return u.dir
}

// SaveImage stores the image in form field name. It returns "" without error
// when the field is absent.
func (u *Uploads) SaveImage(r *http.Request, field string) (string, error) {
	return u.save(r, field, MaxImageSize, func(m *mimetype.MIME) bool {
		return strings.HasPrefix(m.String(), "image/")
	})
}

// SaveEvidence stores an evidence document in form field name.
func (u *Uploads) SaveEvidence(r *http.Request, field string) (string, error) {
	return u.save(r, field, MaxEvidenceSize, func(m *mimetype.MIME) bool {
		if strings.HasPrefix(m.String(), "image/") {
			return true
		}
		for _, t := range evidenceTypes {
			if m.Is(t) {
				return true
			}
		}
		return false
	})
}

func (u *Uploads) save(r *http.Request, field string, maxSize int64, allowed func(*mimetype.MIME) bool) (string, error) {
	file, _, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return "", nil
		}
		return "", err
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxSize+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if int64(len(data)) > maxSize {
		return "", fmt.Errorf("%w: limit is %d MB", errFileTooLarge, maxSize>>20)
	}

	mtype := mimetype.Detect(data)
	if !allowed(mtype) {
		return "", fmt.Errorf("file type %s is not allowed", mtype.String())
	}

	name := uuid.Must(uuid.NewV7()).String() + mtype.Extension()
	if err := os.WriteFile(filepath.Join(u.dir, name), data, 0o644); err != nil {
		return "", fmt.Errorf("store upload: %w", err)
	}
	return name, nil
}

// parseMultipart parses a multipart form when the request carries one and
// reports whether it did.
func parseMultipart(r *http.Request, maxMemory int64) (bool, error) {
	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		return false, nil
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return true, fmt.Errorf("parse form: %w", err)
	}
	return true, nil
}
