// Package apperr описывает таксономию ошибок сервиса. Каждая ошибка несёт
// Kind для выбора HTTP-статуса, машиночитаемый код и сообщение для пользователя.
// Для ошибок квоты дополнительно передаётся снимок использования токенов.
package apperr

import (
	"errors"
	"fmt"

	"github.com/magabrotheeeer/article-insights/internal/models"
)

// Kind — категория ошибки.
type Kind int

const (
	Unknown Kind = iota
	Unauthenticated
	Forbidden
	NotFound
	InvalidInput
	SubscriptionRequired
	InsufficientQuota
	EmptyContent
	ExtractionFailed
	GenerationError
	NetworkError
	StorageUnavailable
	StorageNotProvisioned
	WebhookVerificationFailed
	Conflict
)

var kindNames = map[Kind]string{
	Unknown:                   "UNKNOWN_ERROR",
	Unauthenticated:           "UNAUTHORIZED",
	Forbidden:                 "FORBIDDEN",
	NotFound:                  "NOT_FOUND",
	InvalidInput:              "INVALID_INPUT",
	SubscriptionRequired:      "SUBSCRIPTION_REQUIRED",
	InsufficientQuota:         "INSUFFICIENT_TOKENS",
	EmptyContent:              "EMPTY_CONTENT",
	ExtractionFailed:          "CONTENT_EXTRACTION_FAILED",
	GenerationError:           "GENERATION_ERROR",
	NetworkError:              "NETWORK_ERROR",
	StorageUnavailable:        "DATABASE_UNAVAILABLE",
	StorageNotProvisioned:     "DATABASE_NOT_SETUP",
	WebhookVerificationFailed: "WEBHOOK_VERIFICATION_FAILED",
	Conflict:                  "ALREADY_EXISTS",
}

// String возвращает код категории по умолчанию.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return kindNames[Unknown]
}

// CodeTokenLimitReached — код исчерпанной квоты (осталось 0 токенов).
const CodeTokenLimitReached = "TOKEN_LIMIT_REACHED"

// Error — ошибка предметной области.
type Error struct {
	Kind    Kind
	Code    string
	Message string
	// Quota заполняется для InsufficientQuota.
	Quota *models.QuotaCheckResult
	// Estimated — оценка стоимости до генерации.
	Estimated int64
	// Required — фактическая стоимость после генерации.
	Required int64
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.code(), e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.code(), e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) code() string {
	if e.Code != "" {
		return e.Code
	}
	return e.Kind.String()
}

// PublicCode возвращает код для ответа клиенту.
func (e *Error) PublicCode() string {
	return e.code()
}

// New создаёт ошибку заданной категории.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap создаёт ошибку заданной категории с исходной причиной.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

// Quota создаёт ошибку недостаточной квоты со снимком использования.
func Quota(code, msg string, snapshot models.QuotaCheckResult) *Error {
	return &Error{Kind: InsufficientQuota, Code: code, Message: msg, Quota: &snapshot}
}

// KindOf извлекает категорию из цепочки ошибок. Для посторонних ошибок возвращает Unknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// Is сообщает, относится ли ошибка к заданной категории.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// As извлекает *Error из цепочки.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}
