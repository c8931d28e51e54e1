package health

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestHealthHandler(t *testing.T) {
	ok := pingFunc(func(context.Context) error { return nil })
	down := pingFunc(func(context.Context) error { return errors.New("connection refused") })

	tests := []struct {
		name           string
		checks         map[string]Pinger
		expectedStatus int
		expectedBody   []string
	}{
		{
			name:           "все зависимости доступны",
			checks:         map[string]Pinger{"database": ok, "cache": ok},
			expectedStatus: http.StatusOK,
			expectedBody:   []string{`"status":"ok"`, `"database":"ok"`},
		},
		{
			name:           "кэш недоступен",
			checks:         map[string]Pinger{"database": ok, "cache": down},
			expectedStatus: http.StatusServiceUnavailable,
			expectedBody:   []string{`"status":"degraded"`, `"cache":"unavailable"`},
		},
		{
			name:           "без зависимостей",
			checks:         nil,
			expectedStatus: http.StatusOK,
			expectedBody:   []string{`"status":"ok"`},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			w := httptest.NewRecorder()
			New(newNoopLogger(), tt.checks).ServeHTTP(w, req)

			assert.Equal(t, tt.expectedStatus, w.Code)
			for _, part := range tt.expectedBody {
				assert.Contains(t, w.Body.String(), part)
			}
		})
	}
}
