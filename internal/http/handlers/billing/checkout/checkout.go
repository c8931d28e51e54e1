// Package checkout реализует HTTP-обработчик создания сессии оплаты подписки.
package checkout

import (
	"context"
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

// Service описывает создание сессии оплаты.
type Service interface {
	CreateCheckout(ctx context.Context, accountID string) (models.CheckoutSession, error)
}

// Handler обрабатывает запросы создания сессии оплаты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.checkout"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accountID, ok := middlewarectx.AccountIDFrom(r.Context())
	if !ok {
		response.RenderError(w, r, apperr.New(apperr.Unauthenticated, "authentication required"))
		return
	}

	session, err := h.service.CreateCheckout(r.Context(), accountID)
	if err != nil {
		log.Error("failed to create checkout session", sl.Account(accountID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(session))
}
