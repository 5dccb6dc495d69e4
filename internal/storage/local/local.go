// Package local stores uploaded files on the local filesystem. Files are
// served back through the /uploads/ static mount.
package local

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/REVIVAL-MIMI/psychology/internal/storage"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
)

// Storage implements storage.Storage on a local directory.
type Storage struct {
	dir     string
	baseURL string
}

// New creates a local storage rooted at dir. The directory is created if it
// does not exist.
func New(dir, baseURL string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}

	return &Storage{
		dir:     dir,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// Upload writes the file to disk under its key.
func (s *Storage) Upload(_ context.Context, input *storage.UploadInput) (*storage.UploadResult, error) {
	path, err := s.resolve(input.Key)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create upload subdir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, input.Data); err != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("write upload file: %w", err)
	}

	return &storage.UploadResult{
		Key: input.Key,
		URL: s.url(input.Key),
	}, nil
}

// Delete removes the file for the given key.
func (s *Storage) Delete(_ context.Context, key string) error {
	path, err := s.resolve(key)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return apperrors.NotFound("file", key)
		}
		return fmt.Errorf("delete upload file: %w", err)
	}

	return nil
}

// GetURL returns the public URL for the given key.
func (s *Storage) GetURL(_ context.Context, key string) (string, error) {
	path, err := s.resolve(key)
	if err != nil {
		return "", err
	}

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return "", apperrors.NotFound("file", key)
		}
		return "", fmt.Errorf("stat upload file: %w", err)
	}

	return s.url(key), nil
}

// Dir returns the root directory, for mounting the static file server.
func (s *Storage) Dir() string {
	return s.dir
}

func (s *Storage) url(key string) string {
	return s.baseURL + "/uploads/" + key
}

// resolve maps a key to an absolute path and rejects keys that escape the
// upload directory.
func (s *Storage) resolve(key string) (string, error) {
	if key == "" {
		return "", apperrors.InvalidInput("empty file key")
	}

	path := filepath.Join(s.dir, filepath.FromSlash(key))

	rel, err := filepath.Rel(s.dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", apperrors.InvalidInput("invalid file key")
	}

	return path, nil
}
