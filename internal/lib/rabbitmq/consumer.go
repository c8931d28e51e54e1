package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
)

const maxInFlight = 10

// ConsumerMessage читает очередь queueName до отмены ctx. Сообщение
// подтверждается после успешного handler, иначе возвращается в очередь.
func ConsumerMessage(ctx context.Context, ch *amqp.Channel, queueName string, handler func([]byte) error, log *slog.Logger) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	go dispatch(ctx, delivery, handler, log)
	return nil
}

// dispatch обрабатывает не более maxInFlight сообщений одновременно и
// завершается при отмене ctx, даже если все слоты заняты.
func dispatch(ctx context.Context, delivery <-chan amqp.Delivery, handler func([]byte) error, log *slog.Logger) {
	sem := make(chan struct{}, maxInFlight)
	for {
		select {
		case d, ok := <-delivery:
			if !ok {
				return
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				if err := d.Nack(false, true); err != nil {
					log.Error("failed to requeue message", sl.Err(err))
				}
				return
			}
			go func(delivery amqp.Delivery) {
				defer func() { <-sem }()
				if err := handler(delivery.Body); err != nil {
					log.Error("failed to handle message", sl.Err(err))
					if nackErr := delivery.Nack(false, !delivery.Redelivered); nackErr != nil {
						log.Error("failed to nack message", sl.Err(nackErr))
					}
					return
				}
				if ackErr := delivery.Ack(false); ackErr != nil {
					log.Error("failed to ack message", sl.Err(ackErr))
				}
			}(d)
		case <-ctx.Done():
			return
		}
	}
}
