package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/article-insights/internal/models"
)

// Channel покрывает часть *amqp.Channel, нужную для публикации.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// PublishMessage сериализует message в JSON и публикует его.
func PublishMessage(ch Channel, exchange string, routingkey string, message any) error {
	const op = "rabbitmq.PublishMessage"
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	err = ch.Publish(
		exchange,
		routingkey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Notifier публикует уведомления в обменник.
type Notifier struct {
	ch       Channel
	exchange string
	now      func() time.Time
}

// NewNotifier создаёт Notifier над каналом ch.
func NewNotifier(ch Channel) *Notifier {
	return &Notifier{ch: ch, exchange: Exchange, now: time.Now}
}

// Publish отправляет уведомление. Обращения в поддержку уходят
// в отдельную очередь.
func (n *Notifier) Publish(ctx context.Context, msg models.Notification) error {
	const op = "rabbitmq.Notifier.Publish"
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = n.now().UTC()
	}
	key := RoutingBilling
	if msg.Kind == models.NotificationSupport {
		key = RoutingSupport
	}
	if err := PublishMessage(n.ch, n.exchange, key, msg); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}
