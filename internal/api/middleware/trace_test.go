package middleware_test

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/phrazzld/scry-assistant/internal/api/middleware"
	"github.com/phrazzld/scry-assistant/internal/api/shared"
	"github.com/phrazzld/scry-assistant/internal/platform/logger"
	"github.com/stretchr/testify/assert"
)

func TestTraceMiddleware(t *testing.T) {
	var logs bytes.Buffer
	base := slog.New(slog.NewJSONHandler(&logs, nil))

	var seenTrace string
	var seenLogger *slog.Logger
	handler := middleware.NewTraceMiddleware(base)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenTrace = shared.GetTraceID(r.Context())
		seenLogger = logger.FromContextOrDefault(r.Context(), nil)
		w.WriteHeader(http.StatusTeapot)
	}))

	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Len(t, seenTrace, 32)
	assert.NotNil(t, seenLogger)
	assert.Equal(t, seenTrace, w.Header().Get(middleware.TraceHeader))
	assert.Contains(t, logs.String(), `"msg":"request completed"`)
	assert.Contains(t, logs.String(), `"status":418`)
	assert.Contains(t, logs.String(), seenTrace)
}
