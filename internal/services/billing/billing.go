// Package billing управляет жизненным циклом подписки: применяет события
// платёжного провайдера к учётной записи, создаёт сессии оплаты и
// публикует уведомления о смене тарифа.
package billing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/metrics"
	"github.com/magabrotheeeer/article-insights/internal/models"
	"github.com/magabrotheeeer/article-insights/internal/services/quota"
)

// AccountRepository определяет операции хранилища для биллинга.
type AccountRepository interface {
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	UpdateAccount(ctx context.Context, accountID string, patch models.AccountPatch) (*models.Account, error)
}

// Deduplicator отмечает обработанные события провайдера.
type Deduplicator interface {
	// MarkProcessed возвращает true, если событие встречено впервые.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
	// Forget снимает отметку, чтобы повторная доставка была обработана.
	Forget(ctx context.Context, eventID string) error
}

// Notifier публикует уведомления для notification-sender.
type Notifier interface {
	Publish(ctx context.Context, n models.Notification) error
}

// CheckoutProvider создаёт сессии оплаты у провайдера.
type CheckoutProvider interface {
	CreateCheckoutSession(ctx context.Context, acc models.Account) (models.CheckoutSession, error)
}

// Config параметры сервиса биллинга.
type Config struct {
	Policy             quota.Policy
	AllowManualUpgrade bool
	DedupeTTL          time.Duration
}

// Service применяет события подписки к учётным записям.
type Service struct {
	repo     AccountRepository
	dedupe   Deduplicator
	notifier Notifier
	provider CheckoutProvider
	cfg      Config
	log      *slog.Logger
	now      func() time.Time
}

// New создаёт сервис биллинга. dedupe, notifier и provider могут быть nil.
func New(repo AccountRepository, dedupe Deduplicator, notifier Notifier, provider CheckoutProvider, cfg Config, log *slog.Logger) *Service {
	if cfg.DedupeTTL == 0 {
		cfg.DedupeTTL = 72 * time.Hour
	}
	return &Service{
		repo:     repo,
		dedupe:   dedupe,
		notifier: notifier,
		provider: provider,
		cfg:      cfg,
		log:      log,
		now:      time.Now,
	}
}

// HandleEvent применяет событие провайдера. Неприменимые события и события
// неизвестных учётных записей пропускаются без ошибки. Ошибка возвращается
// только при сбое хранилища, чтобы провайдер повторил доставку.
func (s *Service) HandleEvent(ctx context.Context, ev Event) error {
	const op = "billing.HandleEvent"
	log := s.log.With(
		slog.String("op", op),
		slog.String("event_id", ev.ID),
		slog.String("kind", string(ev.Kind)),
	)

	if ev.ID != "" && s.dedupe != nil {
		first, err := s.dedupe.MarkProcessed(ctx, ev.ID, s.cfg.DedupeTTL)
		if err != nil {
			log.Warn("dedupe unavailable, processing event anyway", sl.Err(err))
		} else if !first {
			log.Info("duplicate event skipped")
			metrics.BillingEvents.WithLabelValues(string(ev.Kind), metrics.OutcomeDuplicate).Inc()
			return nil
		}
	}

	if err := s.apply(ctx, log, ev); err != nil {
		metrics.BillingEvents.WithLabelValues(string(ev.Kind), metrics.OutcomeFailed).Inc()
		s.forget(ctx, log, ev.ID)
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (s *Service) apply(ctx context.Context, log *slog.Logger, ev Event) error {
	if ev.AccountID == "" {
		log.Warn("event has no account reference, ignored")
		metrics.BillingEvents.WithLabelValues(string(ev.Kind), metrics.OutcomeIgnored).Inc()
		return nil
	}
	log = log.With(sl.Account(ev.AccountID))

	acc, err := s.repo.GetAccount(ctx, ev.AccountID)
	if err != nil {
		if apperr.Is(err, apperr.NotFound) {
			log.Warn("event for unknown account, ignored")
			metrics.BillingEvents.WithLabelValues(string(ev.Kind), metrics.OutcomeIgnored).Inc()
			return nil
		}
		return err
	}

	if ev.Kind == EventInvoiceFailed {
		log.Warn("invoice payment failed")
		s.notify(ctx, log, notificationFor(NotificationEvent{Kind: models.NotificationPaymentFailed}, *acc))
		metrics.BillingEvents.WithLabelValues(string(ev.Kind), metrics.OutcomeApplied).Inc()
		return nil
	}

	patch, ok := Transition(*acc, ev, s.now(), s.cfg.Policy)
	if !ok {
		log.Warn("event not applicable to account state, ignored",
			slog.String("tier", string(acc.Tier)),
			slog.String("provider_status", ev.ProviderStatus))
		metrics.BillingEvents.WithLabelValues(string(ev.Kind), metrics.OutcomeIgnored).Inc()
		return nil
	}

	updated, err := s.repo.UpdateAccount(ctx, acc.ID, patch)
	if err != nil {
		return err
	}
	log.Info("subscription state updated",
		slog.String("tier", string(updated.Tier)),
		slog.String("status", string(updated.SubscriptionStatus)))
	metrics.BillingEvents.WithLabelValues(string(ev.Kind), metrics.OutcomeApplied).Inc()

	if kind, ok := notificationKind(ev); ok {
		s.notify(ctx, log, notificationFor(NotificationEvent{Kind: kind, ExpiresAt: updated.SubscriptionExpiresAt}, *updated))
	}
	return nil
}

// Upgrade переводит учётную запись на оплаченный уровень без участия провайдера.
func (s *Service) Upgrade(ctx context.Context, accountID, reference string) (*models.Account, error) {
	const op = "billing.Upgrade"

	if !s.cfg.AllowManualUpgrade {
		return nil, apperr.New(apperr.Forbidden, "manual upgrade is disabled")
	}

	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	ev := Event{Kind: EventManualUpgrade, AccountID: accountID, Reference: reference}
	patch, _ := Transition(*acc, ev, s.now(), s.cfg.Policy)
	updated, err := s.repo.UpdateAccount(ctx, accountID, patch)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	log := s.log.With(slog.String("op", op), sl.Account(accountID))
	log.Info("account upgraded manually")
	metrics.BillingEvents.WithLabelValues(string(ev.Kind), metrics.OutcomeApplied).Inc()
	s.notify(ctx, log, notificationFor(NotificationEvent{
		Kind:      models.NotificationUpgraded,
		ExpiresAt: updated.SubscriptionExpiresAt,
	}, *updated))

	return updated, nil
}

// CreateCheckout создаёт сессию оплаты подписки для учётной записи.
func (s *Service) CreateCheckout(ctx context.Context, accountID string) (models.CheckoutSession, error) {
	const op = "billing.CreateCheckout"

	if s.provider == nil {
		return models.CheckoutSession{}, apperr.New(apperr.Unknown, "payment provider is not configured")
	}
	acc, err := s.repo.GetAccount(ctx, accountID)
	if err != nil {
		return models.CheckoutSession{}, fmt.Errorf("%s: %w", op, err)
	}
	session, err := s.provider.CreateCheckoutSession(ctx, *acc)
	if err != nil {
		return models.CheckoutSession{}, fmt.Errorf("%s: %w", op, err)
	}
	s.log.Info("checkout session created", slog.String("op", op), sl.Account(accountID),
		slog.String("session_id", session.SessionID))
	return session, nil
}

func (s *Service) notify(ctx context.Context, log *slog.Logger, n models.Notification) {
	if s.notifier == nil {
		return
	}
	n.CreatedAt = s.now()
	if err := s.notifier.Publish(ctx, n); err != nil {
		log.Error("failed to publish notification", slog.String("notification", string(n.Kind)), sl.Err(err))
	}
}

func (s *Service) forget(ctx context.Context, log *slog.Logger, eventID string) {
	if eventID == "" || s.dedupe == nil {
		return
	}
	if err := s.dedupe.Forget(ctx, eventID); err != nil {
		log.Warn("failed to release event mark", sl.Err(err))
	}
}

func notificationKind(ev Event) (models.NotificationKind, bool) {
	switch {
	case ev.Kind == EventCheckoutCompleted:
		return models.NotificationUpgraded, true
	case ev.IsRenewal():
		return models.NotificationRenewed, true
	case ev.Kind == EventSubscriptionDeleted:
		return models.NotificationCancelled, true
	}
	return "", false
}
