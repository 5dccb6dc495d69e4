package http

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/REVIVAL-MIMI/psychology/internal/config"
	"github.com/REVIVAL-MIMI/psychology/pkg/health"
)

func newTestRouter(t *testing.T, environment string) http.Handler {
	t.Helper()

	f := newGateFixture(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	uploadDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(uploadDir, "doc.pdf"), []byte("%PDF-1.4"), 0o644))

	cfg := &config.Config{
		Environment:        environment,
		CORSAllowedOrigins: []string{"*"},
		UploadDir:          uploadDir,
		AuthRateLimit:      10,
		SendOTPRateLimit:   3,
		PprofAllowedCIDRs:  []string{"127.0.0.0/8"},
	}

	return NewRouter(RouterDeps{
		Config: cfg,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Redis:  rdb,
		Gate:   f.gate,
		Health: health.NewHandler(),
		Hub:    http.NotFoundHandler(),
	})
}

func TestRouter_UploadsAreCacheable(t *testing.T) {
	router := newTestRouter(t, "development")

	req := httptest.NewRequest(http.MethodGet, "/uploads/doc.pdf", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "public, max-age=86400", rec.Header().Get("Cache-Control"))
}

func TestRouter_PprofAllowsListedIP(t *testing.T) {
	router := newTestRouter(t, "development")

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil)
	req.RemoteAddr = "127.0.0.1:51234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_PprofDeniesUnlistedIP(t *testing.T) {
	router := newTestRouter(t, "development")

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestRouter_PprofAbsentOutsideDevelopment(t *testing.T) {
	router := newTestRouter(t, "production")

	req := httptest.NewRequest(http.MethodGet, "/debug/pprof/cmdline", nil)
	req.RemoteAddr = "127.0.0.1:51234"
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
