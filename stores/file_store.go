package stores

import (
	"errors"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ErrFileTooLarge is returned when an upload exceeds the configured size cap.
var ErrFileTooLarge = errors.New("file exceeds maximum allowed size")

// FileStore owns the directory holding uploaded file bytes. Stored names are
// opaque and random; the original filename only lives in the upload record.
type FileStore struct {
	dir string
}

// NewFileStore ensures dir exists and returns a store rooted there.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileStore{dir: dir}, nil
}

// Save streams r to a freshly named file, enforcing maxBytes. It returns the
// stored name and the number of bytes written. The partial file is removed on
// any failure.
func (fs *FileStore) Save(r io.Reader, originalName string, maxBytes int64) (string, int64, error) {
	storedName := uuid.NewString() + filepath.Ext(filepath.Base(originalName))
	dst := filepath.Join(fs.dir, storedName)

	out, err := os.Create(dst)
	if err != nil {
		return "", 0, err
	}

	written, err := io.Copy(out, &io.LimitedReader{R: r, N: maxBytes + 1})
	cerr := out.Close()
	if err == nil {
		err = cerr
	}
	if err == nil && written > maxBytes {
		err = ErrFileTooLarge
	}
	if err != nil {
		_ = os.Remove(dst)
		return "", 0, err
	}
	return storedName, written, nil
}

// Path returns the filesystem path for a stored name.
func (fs *FileStore) Path(storedName string) string {
	return filepath.Join(fs.dir, filepath.Base(storedName))
}

// Remove deletes the stored file. An already-absent file is not an error: the
// sweep may race a manual delete, and deletion must stay idempotent.
func (fs *FileStore) Remove(storedName string) error {
	if storedName == "" {
		return nil
	}
	err := os.Remove(fs.Path(storedName))
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
