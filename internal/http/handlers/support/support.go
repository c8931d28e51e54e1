// Package support реализует HTTP-обработчик формы обращения в поддержку.
// Обращение публикуется в очередь уведомлений и отправляется письмом
// на адрес поддержки.
package support

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/article-insights/internal/http/middlewarectx"
	"github.com/magabrotheeeer/article-insights/internal/http/response"
	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

// Request содержит обращение в поддержку.
type Request struct {
	Name    string `json:"name" validate:"required,max=100"`
	Email   string `json:"email" validate:"required,email"`
	Subject string `json:"subject" validate:"required,max=200"`
	Message string `json:"message" validate:"required,min=10,max=5000"`
}

// Notifier публикует уведомление в очередь.
type Notifier interface {
	Publish(ctx context.Context, n models.Notification) error
}

// Handler обрабатывает обращения в поддержку.
type Handler struct {
	log      *slog.Logger
	notifier Notifier
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, notifier Notifier) *Handler {
	return &Handler{
		log:      log,
		notifier: notifier,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.support"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request body", sl.Err(err))
		response.RenderError(w, r, apperr.Wrap(apperr.InvalidInput, "invalid request body", err))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.TrimSpace(req.Email)
	req.Subject = strings.TrimSpace(req.Subject)
	req.Message = strings.TrimSpace(req.Message)

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		errors.As(err, &verrs)
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return
	}

	accountID, _ := middlewarectx.AccountIDFrom(r.Context())
	err := h.notifier.Publish(r.Context(), models.Notification{
		Kind:      models.NotificationSupport,
		AccountID: accountID,
		Email:     req.Email,
		Name:      req.Name,
		Subject:   req.Subject,
		Message:   req.Message,
	})
	if err != nil {
		log.Error("failed to publish support request", sl.Err(err))
		response.RenderError(w, r, apperr.Wrap(apperr.NetworkError, "failed to submit support request", err))
		return
	}

	log.Info("support request submitted")
	render.JSON(w, r, response.OKWithData(map[string]string{
		"message": "Support request submitted successfully",
	}))
}
