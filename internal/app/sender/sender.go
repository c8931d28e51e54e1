// Package sender собирает notification-sender: читает очереди уведомлений
// и отправляет письма через SMTP.
package sender

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/article-insights/internal/config"
	"github.com/magabrotheeeer/article-insights/internal/lib/rabbitmq"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/lib/smtp"
	senderservice "github.com/magabrotheeeer/article-insights/internal/services/sender"
)

// App читает очереди уведомлений.
type App struct {
	conn          *amqp.Connection
	ch            *amqp.Channel
	queues        []rabbitmq.QueueConfig
	senderService *senderservice.SenderService
	logger        *slog.Logger
}

// New подключается к брокеру и готовит SMTP-транспорт.
func New(_ context.Context, cfg *config.Config, logger *slog.Logger) (*App, error) {
	const op = "app.sender.New"

	conn, err := rabbitmq.Connect(cfg.RabbitMQ.URL, cfg.RabbitMQ.MaxRetries, cfg.RabbitMQ.RetryDelay)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	queues := rabbitmq.NotificationQueues()
	ch, err := rabbitmq.SetupChannel(conn, queues)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	transport := smtp.NewTransport(cfg.SMTP, logger)
	senderService := senderservice.NewSenderService(transport, cfg.Support.Email, logger)

	return &App{
		conn:          conn,
		ch:            ch,
		queues:        queues,
		senderService: senderService,
		logger:        logger,
	}, nil
}

// Run читает все очереди уведомлений до отмены ctx.
func (a *App) Run(ctx context.Context) error {
	for _, q := range a.queues {
		err := rabbitmq.ConsumerMessage(ctx, a.ch, q.QueueName, a.senderService.HandleNotification, a.logger)
		if err != nil {
			a.logger.Error("failed to start consumer", slog.String("queue", q.QueueName), sl.Err(err))
			return err
		}
	}

	<-ctx.Done()
	a.logger.Info("Sender service shutting down gracefully")

	if err := a.ch.Close(); err != nil {
		a.logger.Error("failed to close channel", sl.Err(err))
	}

	if err := a.conn.Close(); err != nil {
		a.logger.Error("failed to close connection", sl.Err(err))
	}

	return nil
}
