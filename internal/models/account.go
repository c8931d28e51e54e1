// Package models содержит доменные типы сервиса: учётную запись с квотой токенов,
// запись истории обработанных статей и вспомогательные перечисления.
// Перечисления закрыты: строковые значения принимаются только через парсеры.
package models

import (
	"fmt"
	"time"
)

// Tier — тарифный уровень учётной записи.
type Tier string

const (
	// TierTrial — пробный уровень, назначается при создании учётной записи.
	TierTrial Tier = "trial"
	TierPaid  Tier = "paid"
)

// Valid сообщает, является ли значение допустимым уровнем.
func (t Tier) Valid() bool {
	return t == TierTrial || t == TierPaid
}

// ParseTier разбирает строковое значение уровня из хранилища.
func ParseTier(s string) (Tier, error) {
	t := Tier(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown tier %q", s)
	}
	return t, nil
}

// SubscriptionStatus — статус оплаченной подписки.
type SubscriptionStatus string

const (
	// StatusNone — подписка никогда не оформлялась.
	StatusNone   SubscriptionStatus = ""
	StatusActive SubscriptionStatus = "active"
	// StatusExpired — провайдер сообщил об отмене или неоплате.
	StatusExpired SubscriptionStatus = "expired"
	// StatusCancelled — подписка удалена, учётная запись возвращена на пробный уровень.
	StatusCancelled SubscriptionStatus = "cancelled"
)

// ParseSubscriptionStatus разбирает строковое значение статуса из хранилища.
func ParseSubscriptionStatus(s string) (SubscriptionStatus, error) {
	switch st := SubscriptionStatus(s); st {
	case StatusNone, StatusActive, StatusExpired, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown subscription status %q", s)
	}
}

// Account представляет учётную запись пользователя вместе с состоянием квоты и подписки.
type Account struct {
	ID                    string             `json:"id"`
	Email                 string             `json:"email"`
	Name                  string             `json:"name,omitempty"`
	Image                 string             `json:"image,omitempty"`
	PasswordHash          string             `json:"-"`
	Tier                  Tier               `json:"tier"`
	TokensUsed            int64              `json:"tokensUsed"`
	TokenLimit            int64              `json:"tokenLimit"`
	SubscriptionStatus    SubscriptionStatus `json:"subscriptionStatus,omitempty"`
	SubscriptionExpiresAt *time.Time         `json:"subscriptionExpiresAt,omitempty"`
	PaymentReference      *string            `json:"paymentReference,omitempty"`
	CreatedAt             time.Time          `json:"createdAt"`
	UpdatedAt             *time.Time         `json:"updatedAt,omitempty"`
}

// NewAccount описывает данные для создания учётной записи.
type NewAccount struct {
	Email        string
	Name         string
	Image        string
	PasswordHash string
	TokenLimit   int64
}

// AccountPatch — частичное обновление учётной записи. Nil-поле не изменяется.
// ClearPaymentReference записывает NULL в payment_reference и имеет приоритет над PaymentReference.
type AccountPatch struct {
	Tier                  *Tier
	TokensUsed            *int64
	TokenLimit            *int64
	SubscriptionStatus    *SubscriptionStatus
	SubscriptionExpiresAt *time.Time
	PaymentReference      *string
	ClearPaymentReference bool
}

// Empty сообщает, что патч ничего не меняет.
func (p AccountPatch) Empty() bool {
	return p.Tier == nil && p.TokensUsed == nil && p.TokenLimit == nil &&
		p.SubscriptionStatus == nil && p.SubscriptionExpiresAt == nil &&
		p.PaymentReference == nil && !p.ClearPaymentReference
}

// Apply возвращает копию учётной записи с применённым патчем.
func (p AccountPatch) Apply(a Account) Account {
	if p.Tier != nil {
		a.Tier = *p.Tier
	}
	if p.TokensUsed != nil {
		a.TokensUsed = *p.TokensUsed
	}
	if p.TokenLimit != nil {
		a.TokenLimit = *p.TokenLimit
	}
	if p.SubscriptionStatus != nil {
		a.SubscriptionStatus = *p.SubscriptionStatus
	}
	if p.SubscriptionExpiresAt != nil {
		t := *p.SubscriptionExpiresAt
		a.SubscriptionExpiresAt = &t
	}
	if p.ClearPaymentReference {
		a.PaymentReference = nil
	} else if p.PaymentReference != nil {
		ref := *p.PaymentReference
		a.PaymentReference = &ref
	}
	return a
}

// CheckoutSession — созданная у платёжного провайдера сессия оплаты.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	URL       string `json:"url"`
}
