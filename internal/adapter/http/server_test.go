package http_test

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serverhttp "github.com/couchcryptid/storm-grid-disruption/internal/adapter/http"
)

type stubChecker struct{ err error }

func (s *stubChecker) CheckReadiness(_ context.Context) error { return s.err }

func TestServer_Healthz(t *testing.T) {
	srv := serverhttp.NewServer(":0", &stubChecker{}, slog.Default())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "healthy"}`, rec.Body.String())
}

func TestServer_Readyz(t *testing.T) {
	srv := serverhttp.NewServer(":0", &stubChecker{}, slog.Default())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status": "ready"}`, rec.Body.String())
}

func TestServer_ReadyzNotReady(t *testing.T) {
	checker := &stubChecker{err: errors.New("no events processed yet")}
	srv := serverhttp.NewServer(":0", checker, slog.Default())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "no events processed yet")
}

func TestServer_Metrics(t *testing.T) {
	srv := serverhttp.NewServer(":0", &stubChecker{}, slog.Default())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}
