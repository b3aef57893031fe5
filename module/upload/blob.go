package upload

import (
	"io"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Blobs stores uploaded files on local disk under a single directory
// and addresses them by URL path ("/uploads/<name>").
type Blobs struct {
	dir string
}

const urlPrefix = "/uploads/"

func NewBlobs(dir string) (*Blobs, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create upload dir")
	}
	return &Blobs{dir: dir}, nil
}

// Dir returns the backing directory, for static file serving.
func (b *Blobs) Dir() string { return b.dir }

// Save writes the stream to a fresh random name and returns its URL
// path. The extension comes from the content type, falling back to the
// original filename's.
func (b *Blobs) Save(r io.Reader, contentType, originalName string) (string, error) {
	ext := extensionFor(contentType, originalName)
	name := uuid.NewString() + ext

	f, err := os.Create(filepath.Join(b.dir, name))
	if err != nil {
		return "", errors.Wrap(err, "create blob")
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		_ = os.Remove(f.Name())
		return "", errors.Wrap(err, "write blob")
	}
	return urlPrefix + name, nil
}

// Remove deletes the blob behind a URL path; unknown urls are no-ops.
func (b *Blobs) Remove(fileURL string) error {
	name, ok := strings.CutPrefix(fileURL, urlPrefix)
	if !ok || name == "" || strings.Contains(name, "/") {
		return nil
	}
	err := os.Remove(filepath.Join(b.dir, name))
	if os.IsNotExist(err) {
		return nil
	}
	return errors.Wrap(err, "remove blob")
}

// List returns the URL paths of every stored blob.
func (b *Blobs) List() ([]string, error) {
	entries, err := os.ReadDir(b.dir)
	if err != nil {
		return nil, errors.Wrap(err, "read upload dir")
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		out = append(out, urlPrefix+e.Name())
	}
	return out, nil
}

func extensionFor(contentType, originalName string) string {
	if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
		return exts[len(exts)-1]
	}
	if ext := filepath.Ext(originalName); ext != "" && len(ext) <= 8 {
		return ext
	}
	return ".bin"
}
