package metrics

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"runtime"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error {
	return m.err
}

func get(t *testing.T, handler http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth_WithoutDatabase(t *testing.T) {
	handler := NewHandler(ServerConfig{}, zap.NewNop())

	rec := get(t, handler, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
	assert.Empty(t, response.Database)
}

func TestHealth_DatabaseReachable(t *testing.T) {
	handler := NewHandler(ServerConfig{DB: &mockPinger{}}, zap.NewNop())

	rec := get(t, handler, "/health")
	require.Equal(t, http.StatusOK, rec.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, HealthResponse{Status: "ok", Database: "ok"}, response)
}

func TestHealth_DatabaseUnreachable(t *testing.T) {
	handler := NewHandler(ServerConfig{DB: &mockPinger{err: errors.New("connection refused")}}, zap.NewNop())

	rec := get(t, handler, "/health")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var response HealthResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, HealthResponse{Status: "degraded", Database: "unreachable"}, response)
}

func TestPing(t *testing.T) {
	handler := NewHandler(ServerConfig{Version: "1.2.3", Environment: "test"}, zap.NewNop())

	rec := get(t, handler, "/ping")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var response PingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&response))
	assert.Equal(t, "ok", response.Status)
	assert.Equal(t, "1.2.3", response.Version)
	assert.Equal(t, "ekaya-tmdb", response.Service)
	assert.Equal(t, runtime.Version(), response.GoVersion)
	assert.Equal(t, "test", response.Environment)
	assert.NotEmpty(t, response.Hostname)
}

func TestRequestLogger(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	handler := NewHandler(ServerConfig{}, zap.New(core))

	get(t, handler, "/metrics")
	assert.Equal(t, 0, logs.Len(), "successful scrapes are not logged")

	get(t, handler, "/nope")
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "HTTP request", entry.Message)
	assert.Equal(t, int64(http.StatusNotFound), entry.ContextMap()["status"])
	assert.Equal(t, "/nope", entry.ContextMap()["path"])
}
