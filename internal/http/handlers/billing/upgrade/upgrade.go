// Package upgrade реализует HTTP-обработчик ручного перевода учётной записи
// на оплаченный уровень. Доступен, только если включён в конфигурации.
package upgrade

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/article-insights/internal/http/middlewarectx"
	"github.com/magabrotheeeer/article-insights/internal/http/response"
	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

// Request содержит необязательные данные ручного перевода.
type Request struct {
	PaymentReference string `json:"paymentReference,omitempty"`
}

// Service описывает ручной перевод на оплаченный уровень.
type Service interface {
	Upgrade(ctx context.Context, accountID, reference string) (*models.Account, error)
}

// Handler обрабатывает запросы ручного перевода.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.upgrade"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accountID, ok := middlewarectx.AccountIDFrom(r.Context())
	if !ok {
		response.RenderError(w, r, apperr.New(apperr.Unauthenticated, "authentication required"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		log.Error("failed to decode request body", sl.Err(err))
		response.RenderError(w, r, apperr.Wrap(apperr.InvalidInput, "invalid request body", err))
		return
	}

	acc, err := h.service.Upgrade(r.Context(), accountID, req.PaymentReference)
	if err != nil {
		log.Warn("manual upgrade failed", sl.Account(accountID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("account upgraded", sl.Account(accountID))
	render.JSON(w, r, response.OKWithData(map[string]any{
		"user": acc,
	}))
}
