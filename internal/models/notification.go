package models

import "time"

// NotificationKind определяет тип письма, которое отправит notification-sender.
type NotificationKind string

const (
	NotificationUpgraded      NotificationKind = "subscription_upgraded"
	NotificationRenewed       NotificationKind = "subscription_renewed"
	NotificationCancelled     NotificationKind = "subscription_cancelled"
	NotificationPaymentFailed NotificationKind = "payment_failed"
	NotificationExpiring      NotificationKind = "subscription_expiring"
	NotificationSupport       NotificationKind = "support_request"
)

// Notification — сообщение, публикуемое в очередь уведомлений.
type Notification struct {
	Kind      NotificationKind `json:"kind"`
	AccountID string           `json:"account_id,omitempty"`
	Email     string           `json:"email"`
	Name      string           `json:"name,omitempty"`
	Subject   string           `json:"subject,omitempty"`
	Message   string           `json:"message,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}
