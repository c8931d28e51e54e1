// Package webhook реализует HTTP-обработчик вебхуков платёжного провайдера.
//
// Подпись проверяется до любых изменений. Неподдерживаемые события
// подтверждаются без обработки. Ошибка применения события возвращает 500,
// чтобы провайдер повторил доставку.
package webhook

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/article-insights/internal/http/response"
	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/services/billing"
)

const maxBodyBytes = int64(65536)

// SignatureHeader содержит подпись вебхука.
const SignatureHeader = "Stripe-Signature"

// Parser проверяет подпись и разбирает событие провайдера.
type Parser interface {
	ParseEvent(ctx context.Context, payload []byte, signature string) (billing.Event, error)
}

// Service применяет событие к учётной записи.
type Service interface {
	HandleEvent(ctx context.Context, ev billing.Event) error
}

// Handler обрабатывает вебхуки.
type Handler struct {
	log     *slog.Logger
	parser  Parser
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, parser Parser, service Service) *Handler {
	return &Handler{log: log, parser: parser, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.billing.webhook"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		log.Error("failed to read webhook body", sl.Err(err))
		response.RenderError(w, r, apperr.Wrap(apperr.InvalidInput, "invalid payload", err))
		return
	}

	ev, err := h.parser.ParseEvent(r.Context(), payload, r.Header.Get(SignatureHeader))
	if err != nil {
		log.Warn("webhook rejected", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}
	log = log.With(slog.String("event_id", ev.ID), slog.String("kind", string(ev.Kind)))

	if ev.Kind == "" {
		log.Debug("webhook event ignored")
		render.JSON(w, r, response.OKWithData(map[string]any{"received": true}))
		return
	}

	if err := h.service.HandleEvent(r.Context(), ev); err != nil {
		log.Error("failed to handle webhook event", sl.Err(err))
		resp := response.Error("WEBHOOK_HANDLER_FAILED")
		resp.Message = "webhook handler failed"
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, resp)
		return
	}

	log.Info("webhook event handled")
	render.JSON(w, r, response.OKWithData(map[string]any{"received": true}))
}
