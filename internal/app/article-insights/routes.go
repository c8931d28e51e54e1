// Package articleinsights собирает HTTP API сервиса: маршруты и зависимости.
package articleinsights

import (
	"log/slog"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/magabrotheeeer/article-insights/internal/http/handlers/article/list"
	"github.com/magabrotheeeer/article-insights/internal/http/handlers/article/process"
	"github.com/magabrotheeeer/article-insights/internal/http/handlers/article/read"
	"github.com/magabrotheeeer/article-insights/internal/http/handlers/article/remove"
	"github.com/magabrotheeeer/article-insights/internal/http/handlers/auth/login"
	"github.com/magabrotheeeer/article-insights/internal/http/handlers/auth/oauth"
	"github.com/magabrotheeeer/article-insights/internal/http/handlers/auth/register"
	"github.com/magabrotheeeer/article-insights/internal/http/handlers/billing/checkout"
	"github.com/magabrotheeeer/article-insights/internal/http/handlers/billing/upgrade"
	"github.com/magabrotheeeer/article-insights/internal/http/handlers/billing/webhook"
	"github.com/magabrotheeeer/article-insights/internal/http/handlers/health"
	"github.com/magabrotheeeer/article-insights/internal/http/handlers/support"
	"github.com/magabrotheeeer/article-insights/internal/http/handlers/usage"
	"github.com/magabrotheeeer/article-insights/internal/http/middlewarectx"
	"github.com/magabrotheeeer/article-insights/internal/lib/jwt"
	"github.com/magabrotheeeer/article-insights/internal/paymentprovider"
	"github.com/magabrotheeeer/article-insights/internal/services/article"
	"github.com/magabrotheeeer/article-insights/internal/services/auth"
	"github.com/magabrotheeeer/article-insights/internal/services/billing"
	"github.com/magabrotheeeer/article-insights/internal/services/quota"
)

// Services обслуживают маршруты API.
type Services struct {
	Auth       *auth.Service
	Articles   *article.Processor
	Quota      *quota.Ledger
	Billing    *billing.Service
	Provider   *paymentprovider.Stripe
	Notifier   support.Notifier
	Tokens     jwt.Maker
	Limiter    *middlewarectx.RateLimiter
	Checks     map[string]health.Pinger
	TrustProxy bool
}

// RegisterRoutes регистрирует все маршруты приложения.
func RegisterRoutes(r chi.Router, logger *slog.Logger, s Services) {
	// Глобальные middleware
	r.Use(middleware.RequestID)
	if s.TrustProxy {
		r.Use(middleware.RealIP)
	}
	r.Use(
		middleware.Logger,
		middleware.Recoverer,
	)

	r.Route("/api/v1", func(r chi.Router) {
		// Открытые конечные точки
		r.Group(func(r chi.Router) {
			r.Use(s.Limiter.Middleware(logger))
			r.Post("/auth/register", register.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/login", login.New(logger, s.Auth).ServeHTTP)
			r.Post("/auth/oauth/google", oauth.New(logger, s.Auth).ServeHTTP)
			r.Post("/support", support.New(logger, s.Notifier).ServeHTTP)
		})

		// Группа с JWT аутентификацией
		r.Group(func(r chi.Router) {
			r.Use(middlewarectx.JWTMiddleware(s.Tokens, logger))
			r.Use(s.Limiter.Middleware(logger))
			r.Post("/articles/process", process.New(logger, s.Articles).ServeHTTP)
			r.Get("/articles", list.New(logger, s.Articles).ServeHTTP)
			r.Get("/articles/{id}", read.New(logger, s.Articles).ServeHTTP)
			r.Delete("/articles/{id}", remove.New(logger, s.Articles).ServeHTTP)
			r.Get("/token-usage", usage.New(logger, s.Quota).ServeHTTP)
			r.Post("/billing/checkout", checkout.New(logger, s.Billing).ServeHTTP)
			r.Post("/billing/upgrade", upgrade.New(logger, s.Billing).ServeHTTP)
		})

		// Webhook endpoint (без аутентификации)
		r.Post("/webhooks/stripe", webhook.New(logger, s.Provider, s.Billing).ServeHTTP)
	})

	r.Get("/health", health.New(logger, s.Checks).ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())
}
