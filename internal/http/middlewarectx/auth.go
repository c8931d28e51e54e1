// Package middlewarectx содержит HTTP middleware проверки сессионного JWT
// и ограничения частоты запросов учётной записи.
//
// JWTMiddleware проверяет токен в заголовке Authorization и кладёт
// идентификатор учётной записи в контекст запроса. При ошибке проверки
// возвращается HTTP 401 Unauthorized.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/article-insights/internal/http/response"
	"github.com/magabrotheeeer/article-insights/internal/lib/jwt"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
)

// Key тип для ключей контекста HTTP-запроса.
type Key string

const (
	AccountID Key = "account_id"
	Email     Key = "email"
)

// TokenParser проверяет сессионный токен.
type TokenParser interface {
	ParseToken(tokenStr string) (*jwt.Claims, error)
}

// JWTMiddleware возвращает middleware, который проверяет JWT в заголовке Authorization.
func JWTMiddleware(parser TokenParser, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middlewarectx.JWTMiddleware"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				log.Warn("missing or invalid authorization header")
				unauthorized(w, r, "missing or invalid authorization header")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			claims, err := parser.ParseToken(tokenStr)
			if err != nil {
				log.Warn("invalid or expired token", sl.Err(err))
				unauthorized(w, r, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), AccountID, claims.AccountID())
			ctx = context.WithValue(ctx, Email, claims.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// AccountIDFrom извлекает идентификатор учётной записи из контекста.
func AccountIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(AccountID).(string)
	return id, ok && id != ""
}

// WithAccountID кладёт идентификатор учётной записи в контекст.
func WithAccountID(ctx context.Context, accountID string) context.Context {
	return context.WithValue(ctx, AccountID, accountID)
}

func unauthorized(w http.ResponseWriter, r *http.Request, msg string) {
	resp := response.Error("UNAUTHORIZED")
	resp.Message = msg
	render.Status(r, http.StatusUnauthorized)
	render.JSON(w, r, resp)
}
