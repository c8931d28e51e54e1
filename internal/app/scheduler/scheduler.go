// Package scheduler собирает процесс напоминаний об окончании подписки.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/article-insights/internal/config"
	"github.com/magabrotheeeer/article-insights/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	schedulerservice "github.com/magabrotheeeer/article-insights/internal/services/scheduler"
	"github.com/magabrotheeeer/article-insights/internal/storage/repository"
)

// App выполняет периодические напоминания.
type App struct {
	db               *repository.Storage
	conn             *amqp.Connection
	ch               *amqp.Channel
	schedulerService *schedulerservice.SchedulerService
	logger           *slog.Logger
}

// New подключает хранилище и очередь уведомлений.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.scheduler.New"

	db, err := repository.New(cfg.StorageConnectionString)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	ch, err := rabbitmq.SetupChannel(conn, rabbitmq.NotificationQueues())
	if err != nil {
		_ = conn.Close()
		_ = db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	svc := schedulerservice.NewSchedulerService(db, rabbitmq.NewNotifier(ch),
		cfg.Scheduler.ReminderLead, cfg.Scheduler.Interval, logger)

	return &App{
		db:               db,
		conn:             conn,
		ch:               ch,
		schedulerService: svc,
		logger:           logger,
	}, nil
}

// Run выполняет напоминания до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	a.schedulerService.Run(ctx)
	a.logger.Info("Scheduler shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}
	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}
	return a.db.Close()
}
