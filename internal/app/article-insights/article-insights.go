package articleinsights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi"
	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/article-insights/internal/cache"
	"github.com/magabrotheeeer/article-insights/internal/config"
	"github.com/magabrotheeeer/article-insights/internal/extractor"
	"github.com/magabrotheeeer/article-insights/internal/generation"
	"github.com/magabrotheeeer/article-insights/internal/http/handlers/health"
	"github.com/magabrotheeeer/article-insights/internal/http/middlewarectx"
	"github.com/magabrotheeeer/article-insights/internal/lib/jwt"
	"github.com/magabrotheeeer/article-insights/internal/lib/oauth"
	"github.com/magabrotheeeer/article-insights/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/migrations"
	"github.com/magabrotheeeer/article-insights/internal/paymentprovider"
	"github.com/magabrotheeeer/article-insights/internal/services/article"
	"github.com/magabrotheeeer/article-insights/internal/services/auth"
	"github.com/magabrotheeeer/article-insights/internal/services/billing"
	"github.com/magabrotheeeer/article-insights/internal/services/quota"
	"github.com/magabrotheeeer/article-insights/internal/storage/repository"
)

const shutdownTimeout = 15 * time.Second

// App держит HTTP-сервер и его зависимости.
type App struct {
	server *http.Server
	logger *slog.Logger
	db     *repository.Storage
	cache  *cache.Cache
	conn   *amqp.Connection
	ch     *amqp.Channel
}

// New подключает хранилище, кеш и очередь, применяет миграции и собирает маршруты.
func New(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.articleinsights.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err = migrations.Run(db.DB, cfg.MigrationsPath); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	cacheRedis, err := cache.InitServer(ctx, cfg.RedisConnection)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = cacheRedis.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	notifier := rabbitmq.NewNotifier(ch)

	policy := quota.Policy{
		TrialLimit:         cfg.Quota.TrialLimit,
		PaidLimit:          cfg.Quota.PaidLimit,
		EstimateMultiplier: cfg.Quota.EstimateMultiplier,
		MinContentLength:   cfg.Quota.MinContentLength,
		PaidPeriodFallback: cfg.Billing.PaidPeriodFallback,
	}
	ledger := quota.New(db, policy, logger)

	source := extractor.NewCached(extractor.New(cfg.Extractor, logger), cacheRedis, cfg.Extractor.CacheTTL, logger)
	processor := article.NewProcessor(ledger, source, generation.New(cfg.Generation, logger), db, article.Config{
		Policy:            policy,
		StrictConsume:     cfg.Quota.StrictConsume,
		GenerationTimeout: cfg.Generation.Timeout,
	}, logger)

	provider := paymentprovider.New(cfg.Stripe, logger)
	billingService := billing.New(db, cacheRedis, notifier, provider, billing.Config{
		Policy:             policy,
		AllowManualUpgrade: cfg.Billing.AllowManualUpgrade,
		DedupeTTL:          cfg.Billing.WebhookDedupeTTL,
	}, logger)

	tokens := jwt.NewJWTMaker(cfg.JWTToken.SecretKey, cfg.JWTToken.Issuer, cfg.JWTToken.TokenTTL)

	var verifier auth.IdentityVerifier
	if cfg.OAuth.GoogleClientID != "" {
		google, err := oauth.NewGoogleVerifier(cfg.OAuth.GoogleClientID, cfg.OAuth.GoogleJWKSURL)
		if err != nil {
			logger.Warn("google sign-in disabled", sl.Err(err))
		} else {
			verifier = google
		}
	}
	authService := auth.New(db, tokens, verifier, cfg.Quota.TrialLimit, logger)

	router := chi.NewRouter()
	RegisterRoutes(router, logger, Services{
		Auth:     authService,
		Articles: processor,
		Quota:    ledger,
		Billing:  billingService,
		Provider: provider,
		Notifier: notifier,
		Tokens:   tokens,
		Limiter:  middlewarectx.NewRateLimiter(cfg.HTTPServer.RateLimitRPS, cfg.HTTPServer.RateBurst),
		Checks: map[string]health.Pinger{
			"database": db,
			"cache":    cacheRedis,
		},
		TrustProxy: cfg.HTTPServer.TrustProxy,
	})

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	return &App{
		server: srv,
		logger: logger,
		db:     db,
		cache:  cacheRedis,
		conn:   conn,
		ch:     ch,
	}, nil
}

// Run запускает HTTP-сервер и останавливает его при отмене ctx.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		a.logger.Info("HTTP server starting on", slog.String("address", a.server.Addr))
		err := a.server.ListenAndServe()
		if errors.Is(err, http.ErrServerClosed) {
			errCh <- nil
		} else {
			errCh <- err
		}
	}()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		timeoutCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		a.logger.Info("shutting down HTTP server gracefully")
		err = a.server.Shutdown(timeoutCtx)
	}
	a.close()
	return err
}

func (a *App) close() {
	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Error("failed to close cache", sl.Err(err))
	}
	if err := a.db.Close(); err != nil {
		a.logger.Error("failed to close database", sl.Err(err))
	}
}
