package http

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

var errNoUpload = errors.New("no file uploaded")

// uploadStore saves logo images under a configured directory with sanitized
// filenames.
type uploadStore struct {
	dir     string
	maxSize int64
}

func newUploadStore(dir string, maxSize int64) *uploadStore {
	return &uploadStore{dir: dir, maxSize: maxSize}
}

// SaveLogo stores the uploaded file from the given multipart field and
// returns its sanitized filename. errNoUpload means the form carried no file,
// which callers treat as "keep the current logo".
func (u *uploadStore) SaveLogo(r *http.Request, field string) (string, error) {
	if r.MultipartForm == nil {
		if err := r.ParseMultipartForm(u.maxSize); err != nil {
			return "", errNoUpload
		}
	}
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", errNoUpload
	}
	defer file.Close()

	if header.Filename == "" {
		return "", errNoUpload
	}
	if header.Size > u.maxSize {
		return "", fmt.Errorf("file too large: %d bytes", header.Size)
	}
	name := secureFilename(header.Filename)
	if name == "" {
		return "", fmt.Errorf("invalid filename %q", header.Filename)
	}
	if err := u.write(name, file); err != nil {
		return "", err
	}
	return name, nil
}

func (u *uploadStore) write(name string, src multipart.File) error {
	if err := os.MkdirAll(u.dir, 0o755); err != nil {
		return fmt.Errorf("create upload dir: %w", err)
	}
	dst, err := os.Create(filepath.Join(u.dir, name))
	if err != nil {
		return fmt.Errorf("create upload file: %w", err)
	}
	defer dst.Close()
	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("write upload: %w", err)
	}
	return nil
}

// Remove deletes a previously stored logo. Missing files are not an error;
// the reference is simply stale.
func (u *uploadStore) Remove(name string) {
	if name == "" {
		return
	}
	_ = os.Remove(filepath.Join(u.dir, filepath.Base(name)))
}

// secureFilename reduces a client-supplied filename to a safe basename:
// path separators stripped, suspicious characters replaced, no dotfiles.
func secureFilename(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	clean := strings.Trim(b.String(), "._")
	if clean == "" {
		return ""
	}
	return clean
}
