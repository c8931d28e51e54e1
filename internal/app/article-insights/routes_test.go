package articleinsights

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi"
	"github.com/stretchr/testify/assert"

	"github.com/magabrotheeeer/article-insights/internal/http/middlewarectx"
)

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestRegisterRoutes_ClientAddressForLimiter(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		wantCodes  []int
	}{
		{
			name:       "без доверенного прокси подмена X-Real-IP не обходит лимит",
			trustProxy: false,
			wantCodes:  []int{http.StatusBadRequest, http.StatusTooManyRequests, http.StatusTooManyRequests},
		},
		{
			name:       "за доверенным прокси адрес берётся из X-Real-IP",
			trustProxy: true,
			wantCodes:  []int{http.StatusBadRequest, http.StatusBadRequest, http.StatusBadRequest},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := chi.NewRouter()
			RegisterRoutes(r, newNoopLogger(), Services{
				Limiter:    middlewarectx.NewRateLimiter(0.001, 1),
				TrustProxy: tt.trustProxy,
			})

			for i, want := range tt.wantCodes {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/support", nil)
				req.RemoteAddr = "192.0.2.10:4000"
				req.Header.Set("X-Real-IP", fmt.Sprintf("203.0.113.%d", i+1))
				rec := httptest.NewRecorder()

				r.ServeHTTP(rec, req)

				assert.Equal(t, want, rec.Code, "request %d", i)
			}
		})
	}
}
