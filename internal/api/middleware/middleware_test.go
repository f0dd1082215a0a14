package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/phrazzld/namegen-api/internal/api/middleware"
	"github.com/phrazzld/namegen-api/internal/api/shared"
	"github.com/phrazzld/namegen-api/internal/platform/logger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceMiddleware(t *testing.T) {
	var buf bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var seen string
	handler := middleware.NewTraceMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = shared.GetTraceID(r.Context())
		logger.FromContext(r.Context()).Info("inside handler")
	}))

	t.Run("generates an id", func(t *testing.T) {
		buf.Reset()
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/tasks", nil))

		require.NotEmpty(t, seen)
		assert.Equal(t, seen, rec.Header().Get(shared.TraceIDHeader))
		assert.Contains(t, buf.String(), `"trace_id":"`+seen+`"`)
		assert.Contains(t, buf.String(), "inside handler")
	})

	t.Run("reuses a valid incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set(shared.TraceIDHeader, "client-trace-42")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.Equal(t, "client-trace-42", seen)
	})

	t.Run("replaces a malformed incoming id", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
		req.Header.Set(shared.TraceIDHeader, "bad id\n")
		handler.ServeHTTP(httptest.NewRecorder(), req)
		assert.NotEqual(t, "bad id\n", seen)
		assert.True(t, shared.IsValidTraceID(seen))
	})
}

func TestHTTPMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := middleware.MustNewHTTPMetrics(reg)

	r := chi.NewRouter()
	r.Use(m.Handler)
	r.Get("/api/tasks/{slug}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	for _, slug := range []string{"a-1", "b-2"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/tasks/"+slug, nil))
	}

	expected := `
# HELP namegen_http_requests_total HTTP requests served, by method, route and status code.
# TYPE namegen_http_requests_total counter
namegen_http_requests_total{code="404",method="GET",route="/api/tasks/{slug}"} 2
`
	assert.NoError(t, testutil.GatherAndCompare(reg, bytes.NewBufferString(expected), "namegen_http_requests_total"))
}
