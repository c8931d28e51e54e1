// Package scheduler периодически ищет оплаченные подписки, срок которых
// скоро истекает, и публикует напоминания в очередь уведомлений.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

// AccountRepository ищет учётные записи с истекающей подпиской.
type AccountRepository interface {
	FindAccountsExpiringBetween(ctx context.Context, from, to time.Time) ([]models.Account, error)
}

// Notifier публикует уведомление в очередь.
type Notifier interface {
	Publish(ctx context.Context, n models.Notification) error
}

// SchedulerService рассылает напоминания об окончании подписки.
//
// Окно поиска [now+lead, now+lead+interval) сдвигается на interval за запуск,
// поэтому при регулярных запусках каждая учётная запись получает одно напоминание.
type SchedulerService struct {
	repo     AccountRepository
	notifier Notifier
	lead     time.Duration
	interval time.Duration
	log      *slog.Logger
	now      func() time.Time
}

// NewSchedulerService создает новый экземпляр SchedulerService.
func NewSchedulerService(repo AccountRepository, notifier Notifier, lead, interval time.Duration, log *slog.Logger) *SchedulerService {
	return &SchedulerService{
		repo:     repo,
		notifier: notifier,
		lead:     lead,
		interval: interval,
		log:      log,
		now:      time.Now,
	}
}

// Run выполняет проверку сразу и затем каждые interval до отмены ctx.
func (s *SchedulerService) Run(ctx context.Context) {
	s.runOnce(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.runOnce(ctx)
		}
	}
}

func (s *SchedulerService) runOnce(ctx context.Context) {
	if _, err := s.NotifyExpiring(ctx); err != nil {
		s.log.Error("failed to notify expiring subscriptions", sl.Err(err))
	}
}

// NotifyExpiring публикует напоминания для подписок из текущего окна и
// возвращает число опубликованных. Ошибка публикации одной записи не
// прерывает рассылку остальным.
func (s *SchedulerService) NotifyExpiring(ctx context.Context) (int, error) {
	const op = "scheduler.NotifyExpiring"

	from := s.now().Add(s.lead)
	to := from.Add(s.interval)

	s.log.Info("starting search for expiring subscriptions", slog.Time("from", from), slog.Time("to", to))
	accounts, err := s.repo.FindAccountsExpiringBetween(ctx, from, to)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	if len(accounts) == 0 {
		s.log.Info("no expiring subscriptions found")
		return 0, nil
	}
	s.log.Info("found expiring subscriptions", slog.Int("count", len(accounts)))

	sent := 0
	for _, acc := range accounts {
		if err := s.notifier.Publish(ctx, expiringNotification(acc)); err != nil {
			s.log.Error("failed to publish message", sl.Account(acc.ID), sl.Err(err))
			continue
		}
		sent++
	}
	return sent, nil
}

func expiringNotification(acc models.Account) models.Notification {
	msg := "Your subscription will expire soon. Renew it to keep your paid token limit."
	if acc.SubscriptionExpiresAt != nil {
		msg = fmt.Sprintf("Your subscription expires on %s. Renew it to keep your paid token limit.",
			acc.SubscriptionExpiresAt.Format("2006-01-02"))
	}
	return models.Notification{
		Kind:      models.NotificationExpiring,
		AccountID: acc.ID,
		Email:     acc.Email,
		Name:      acc.Name,
		Subject:   "Your subscription expires soon",
		Message:   msg,
	}
}
