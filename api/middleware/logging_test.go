package middleware

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sagargautam500/storefront/pkg/logger"
)

func completionLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var entry map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		if entry["message"] == "request.complete" {
			out = append(out, entry)
		}
	}
	return out
}

func TestLoggingRecordsRouteAndStatus(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Format: "json", Output: &buf})

	r := chi.NewRouter()
	r.Use(RequestID(logg), Logging(logg))
	r.Get("/api/v1/items/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down"))
	})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/items/42", nil))
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))

	lines := completionLines(t, &buf)
	require.Len(t, lines, 1)
	complete := lines[0]
	assert.Equal(t, "warn", complete["level"])
	assert.Equal(t, "/api/v1/items/{id}", complete["route"])
	assert.Equal(t, float64(http.StatusServiceUnavailable), complete["status"])
	assert.Equal(t, float64(4), complete["bytes"])
	assert.NotNil(t, complete["request_id"])
}

func TestLoggingKeepsProbesAtDebug(t *testing.T) {
	var buf bytes.Buffer
	logg := logger.New(logger.Options{ServiceName: "test", Level: logger.ParseLevel("debug"), Format: "json", Output: &buf})

	r := chi.NewRouter()
	r.Use(Logging(logg))
	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {})
	r.Get("/api/public/products", func(w http.ResponseWriter, r *http.Request) {})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/public/products", nil))

	lines := completionLines(t, &buf)
	require.Len(t, lines, 2)
	assert.Equal(t, "debug", lines[0]["level"])
	assert.Equal(t, "info", lines[1]["level"])
	assert.Equal(t, float64(http.StatusOK), lines[1]["status"])
}
