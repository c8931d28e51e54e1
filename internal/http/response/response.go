// Package response содержит вспомогательные типы и функции для формирования
// унифицированных JSON-ответов HTTP-обработчиков: успешных ответов, ошибок
// предметной области и сообщений валидации.
package response

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

// Response описывает стандартную структуру JSON-ответа сервера.
// Поле Status — статус запроса ("OK" или "Error").
// Поле Error — текст ошибки (опционально, при неуспехе).
// Поле Data — данные ответа (опционально, при успехе).
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

// ErrorResponse — ответ с ошибкой. Error содержит машиночитаемый код,
// Message — текст для пользователя. Для ошибок квоты передаётся снимок
// использования и оценки стоимости запроса.
type ErrorResponse struct {
	Status          string                   `json:"status"`
	Error           string                   `json:"error"`
	Message         string                   `json:"message,omitempty"`
	Quota           *models.QuotaCheckResult `json:"quota,omitempty"`
	EstimatedTokens int64                    `json:"estimatedTokens,omitempty"`
	RequiredTokens  int64                    `json:"requiredTokens,omitempty"`
	UpgradeRequired bool                     `json:"upgradeRequired,omitempty"`
}

const (
	// StatusOK — значение статуса для успешного ответа.
	StatusOK = "OK"
	// StatusError — значение статуса для ответа с ошибкой.
	StatusError = "Error"
)

// OKWithData возвращает успешный Response с переданными данными.
func OKWithData(data any) Response {
	return Response{
		Status: StatusOK,
		Data:   data,
	}
}

// OK возвращает успешный Response без данных.
func OK() Response {
	return Response{Status: StatusOK}
}

// Error возвращает ErrorResponse с кодом code.
func Error(code string) ErrorResponse {
	return ErrorResponse{
		Status: StatusError,
		Error:  code,
	}
}

// StatusFor возвращает HTTP-статус для категории ошибки.
func StatusFor(kind apperr.Kind) int {
	switch kind {
	case apperr.Unauthenticated:
		return http.StatusUnauthorized
	case apperr.Forbidden, apperr.InsufficientQuota:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.InvalidInput, apperr.EmptyContent, apperr.ExtractionFailed, apperr.WebhookVerificationFailed:
		return http.StatusBadRequest
	case apperr.SubscriptionRequired:
		return http.StatusPaymentRequired
	case apperr.GenerationError:
		return http.StatusBadGateway
	case apperr.NetworkError, apperr.StorageUnavailable, apperr.StorageNotProvisioned:
		return http.StatusServiceUnavailable
	case apperr.Conflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// FromError формирует статус и тело ответа для ошибки. Причина ошибки
// в ответ не попадает, только код и сообщение.
func FromError(err error) (int, ErrorResponse) {
	e, ok := apperr.As(err)
	if !ok {
		return http.StatusInternalServerError, ErrorResponse{
			Status:  StatusError,
			Error:   apperr.Unknown.String(),
			Message: "internal server error",
		}
	}
	resp := ErrorResponse{
		Status:          StatusError,
		Error:           e.PublicCode(),
		Message:         e.Message,
		Quota:           e.Quota,
		EstimatedTokens: e.Estimated,
		RequiredTokens:  e.Required,
	}
	switch e.Kind {
	case apperr.SubscriptionRequired:
		resp.UpgradeRequired = true
	case apperr.InsufficientQuota:
		resp.UpgradeRequired = e.Quota == nil || e.Quota.Tier != models.TierPaid
	}
	return StatusFor(e.Kind), resp
}

// RenderError пишет ответ для ошибки со статусом из StatusFor.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := FromError(err)
	render.Status(r, status)
	render.JSON(w, r, resp)
}

// ValidationError формирует ответ со статусом Error на основе ошибок валидации.
// Каждое нарушение формируется в человеко-читаемый текст, объединённый через запятую.
func ValidationError(errs validator.ValidationErrors) ErrorResponse {
	var errsMsgs []string

	for _, err := range errs {
		switch err.ActualTag() {
		case "required":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is a required field", err.Field()))
		case "email":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid email", err.Field()))
		case "url":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be a valid url", err.Field()))
		case "min":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at least %s characters", err.Field(), err.Param()))
		case "max":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be at most %s characters", err.Field(), err.Param()))
		case "oneof":
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s must be one of: %s", err.Field(), err.Param()))
		default:
			errsMsgs = append(errsMsgs, fmt.Sprintf("field %s is not a valid", err.Field()))
		}
	}
	return ErrorResponse{
		Status:  StatusError,
		Error:   apperr.InvalidInput.String(),
		Message: strings.Join(errsMsgs, ", "),
	}
}
