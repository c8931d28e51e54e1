package billing

import (
	"fmt"
	"time"

	"github.com/magabrotheeeer/article-insights/internal/models"
)

// NotificationEvent описывает повод для письма.
type NotificationEvent struct {
	Kind      models.NotificationKind
	ExpiresAt *time.Time
}

func notificationFor(ev NotificationEvent, acc models.Account) models.Notification {
	n := models.Notification{
		Kind:      ev.Kind,
		AccountID: acc.ID,
		Email:     acc.Email,
		Name:      acc.Name,
	}

	until := ""
	if ev.ExpiresAt != nil {
		until = fmt.Sprintf(" Next billing date: %s.", ev.ExpiresAt.Format("2006-01-02"))
	}

	switch ev.Kind {
	case models.NotificationUpgraded:
		n.Subject = "Your subscription is active"
		n.Message = fmt.Sprintf("Your account now has %d tokens per billing period.%s", acc.TokenLimit, until)
	case models.NotificationRenewed:
		n.Subject = "Your subscription has been renewed"
		n.Message = "Your token usage has been reset for the new billing period." + until
	case models.NotificationCancelled:
		n.Subject = "Your subscription has ended"
		n.Message = fmt.Sprintf("Your account is back on the trial tier with %d tokens.", acc.TokenLimit)
	case models.NotificationPaymentFailed:
		n.Subject = "Payment failed"
		n.Message = "We could not charge your payment method. Please update your billing details to keep your subscription."
	}
	return n
}
