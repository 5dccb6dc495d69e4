package local

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/REVIVAL-MIMI/psychology/internal/storage"
	apperrors "github.com/REVIVAL-MIMI/psychology/pkg/errors"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := New(t.TempDir(), "http://localhost:8080")
	require.NoError(t, err)
	return s
}

func TestStorage_Upload(t *testing.T) {
	s := newTestStorage(t)

	result, err := s.Upload(context.Background(), &storage.UploadInput{
		Key:         "documents/psy-1/diplom-psihologa.pdf",
		ContentType: "application/pdf",
		Size:        4,
		Data:        strings.NewReader("data"),
	})
	require.NoError(t, err)
	assert.Equal(t, "documents/psy-1/diplom-psihologa.pdf", result.Key)
	assert.Equal(t, "http://localhost:8080/uploads/documents/psy-1/diplom-psihologa.pdf", result.URL)

	content, err := os.ReadFile(filepath.Join(s.Dir(), "documents", "psy-1", "diplom-psihologa.pdf"))
	require.NoError(t, err)
	assert.Equal(t, "data", string(content))
}

func TestStorage_GetURL(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Upload(context.Background(), &storage.UploadInput{
		Key:  "doc.pdf",
		Data: strings.NewReader("data"),
	})
	require.NoError(t, err)

	url, err := s.GetURL(context.Background(), "doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/uploads/doc.pdf", url)

	_, err = s.GetURL(context.Background(), "missing.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestStorage_Delete(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.Upload(context.Background(), &storage.UploadInput{
		Key:  "doc.pdf",
		Data: strings.NewReader("data"),
	})
	require.NoError(t, err)

	require.NoError(t, s.Delete(context.Background(), "doc.pdf"))

	err = s.Delete(context.Background(), "doc.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}

func TestStorage_RejectsEscapingKeys(t *testing.T) {
	s := newTestStorage(t)

	for _, key := range []string{"", "../outside.pdf", "a/../../outside.pdf"} {
		_, err := s.Upload(context.Background(), &storage.UploadInput{
			Key:  key,
			Data: strings.NewReader("data"),
		})
		require.Error(t, err, "key %q", key)
		assert.True(t, errors.Is(err, apperrors.ErrInvalidInput), "key %q: %v", key, err)
	}
}
