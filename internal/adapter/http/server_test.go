package http_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	httpadapter "github.com/couchcryptid/crossing-times-etl/internal/adapter/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockPipeline struct {
	runErr   error
	readyErr error
	runs     int
}

func (m *mockPipeline) Run(_ context.Context) error {
	m.runs++
	return m.runErr
}

func (m *mockPipeline) CheckReadiness(_ context.Context) error { return m.readyErr }

func newTestServer(p *mockPipeline) *httpadapter.Server {
	return httpadapter.NewServer(":0", p, slog.Default())
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockPipeline{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decodeBody(t, rec)["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := newTestServer(&mockPipeline{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeBody(t, rec)["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&mockPipeline{readyErr: errors.New("no successful ingestion run yet")})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "not ready", decodeBody(t, rec)["status"])
}

func TestRunReturns200OnSuccess(t *testing.T) {
	p := &mockPipeline{}
	srv := newTestServer(p)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
	assert.Equal(t, 1, p.runs)
}

func TestRunReturns500OnFailure(t *testing.T) {
	p := &mockPipeline{runErr: errors.New("stage fetching: feed unavailable")}
	srv := newTestServer(p)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/run", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "failed", body["status"])
	assert.Contains(t, body["error"], "feed unavailable")
}

func TestRunRejectsGet(t *testing.T) {
	p := &mockPipeline{}
	srv := newTestServer(p)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/run", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Zero(t, p.runs)
}

func TestMetricsExposed(t *testing.T) {
	srv := newTestServer(&mockPipeline{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}
