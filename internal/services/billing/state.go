package billing

import (
	"time"

	"github.com/magabrotheeeer/article-insights/internal/models"
	"github.com/magabrotheeeer/article-insights/internal/services/quota"
)

// State — производное состояние подписки учётной записи.
type State string

const (
	StateTrial         State = "trial"
	StatePaidActive    State = "paid-active"
	StatePaidExpired   State = "paid-expired"
	StatePaidCancelled State = "paid-cancelled"
)

// StateOf вычисляет состояние подписки на момент now.
func StateOf(acc models.Account, now time.Time) State {
	if acc.Tier != models.TierPaid {
		return StateTrial
	}
	switch {
	case acc.SubscriptionStatus == models.StatusCancelled:
		return StatePaidCancelled
	case acc.SubscriptionStatus == models.StatusExpired:
		return StatePaidExpired
	case acc.SubscriptionExpiresAt != nil && !acc.SubscriptionExpiresAt.After(now):
		return StatePaidExpired
	default:
		return StatePaidActive
	}
}

// EventKind — тип события жизненного цикла подписки.
type EventKind string

const (
	EventCheckoutCompleted   EventKind = "checkout_completed"
	EventManualUpgrade       EventKind = "manual_upgrade"
	EventSubscriptionUpdated EventKind = "subscription_updated"
	EventSubscriptionDeleted EventKind = "subscription_deleted"
	EventInvoicePaid         EventKind = "invoice_paid"
	EventInvoiceFailed       EventKind = "invoice_failed"
)

// Статусы подписки провайдера и причины выставления счёта.
const (
	ProviderStatusActive   = "active"
	ProviderStatusCanceled = "canceled"
	ProviderStatusUnpaid   = "unpaid"

	ReasonSubscriptionCycle  = "subscription_cycle"
	ReasonSubscriptionUpdate = "subscription_update"
)

// Event описывает событие провайдера в доменном виде.
type Event struct {
	ID             string
	Kind           EventKind
	AccountID      string
	ProviderStatus string
	PeriodEnd      *time.Time
	BillingReason  string
	Reference      string
}

// IsRenewal сообщает, что оплаченный счёт открывает новый расчётный период.
func (e Event) IsRenewal() bool {
	return e.Kind == EventInvoicePaid &&
		(e.BillingReason == ReasonSubscriptionCycle || e.BillingReason == ReasonSubscriptionUpdate)
}

// Transition вычисляет изменения учётной записи для события. Второе значение
// false означает, что событие не применимо к текущему состоянию.
// Функция не обращается к хранилищу и не меняет аргументы.
func Transition(acc models.Account, ev Event, now time.Time, policy quota.Policy) (models.AccountPatch, bool) {
	switch ev.Kind {
	case EventCheckoutCompleted, EventManualUpgrade:
		expires := now.Add(policy.PaidPeriodFallback)
		if ev.PeriodEnd != nil {
			expires = *ev.PeriodEnd
		}
		patch := models.AccountPatch{
			Tier:                  ptr(models.TierPaid),
			TokenLimit:            ptr(policy.PaidLimit),
			TokensUsed:            ptr(int64(0)),
			SubscriptionStatus:    ptr(models.StatusActive),
			SubscriptionExpiresAt: &expires,
		}
		if ev.Reference != "" {
			patch.PaymentReference = ptr(ev.Reference)
		}
		return patch, true

	case EventSubscriptionUpdated:
		switch ev.ProviderStatus {
		case ProviderStatusActive:
			if acc.Tier != models.TierPaid {
				return models.AccountPatch{}, false
			}
			patch := models.AccountPatch{
				SubscriptionStatus:    ptr(models.StatusActive),
				SubscriptionExpiresAt: ev.PeriodEnd,
				TokenLimit:            ptr(policy.PaidLimit),
			}
			if ev.Reference != "" {
				patch.PaymentReference = ptr(ev.Reference)
			}
			return patch, true
		case ProviderStatusCanceled, ProviderStatusUnpaid:
			return models.AccountPatch{SubscriptionStatus: ptr(models.StatusExpired)}, true
		}
		return models.AccountPatch{}, false

	case EventSubscriptionDeleted:
		return models.AccountPatch{
			Tier:                  ptr(models.TierTrial),
			TokenLimit:            ptr(policy.TrialLimit),
			TokensUsed:            ptr(int64(0)),
			SubscriptionStatus:    ptr(models.StatusCancelled),
			ClearPaymentReference: true,
		}, true

	case EventInvoicePaid:
		if acc.Tier != models.TierPaid {
			return models.AccountPatch{}, false
		}
		patch := models.AccountPatch{
			SubscriptionStatus:    ptr(models.StatusActive),
			SubscriptionExpiresAt: ev.PeriodEnd,
			TokenLimit:            ptr(policy.PaidLimit),
		}
		if ev.IsRenewal() {
			patch.TokensUsed = ptr(int64(0))
		}
		return patch, true
	}

	return models.AccountPatch{}, false
}

func ptr[T any](v T) *T {
	return &v
}
