// Package list реализует HTTP-обработчик истории обработанных статей учётной записи.
package list

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/article-insights/internal/http/middlewarectx"
	"github.com/magabrotheeeer/article-insights/internal/http/response"
	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

// Service описывает чтение истории.
type Service interface {
	List(ctx context.Context, accountID string, limit int) ([]models.ArticleSummary, error)
}

// Handler обрабатывает запросы списка статей.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.article.list"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accountID, ok := middlewarectx.AccountIDFrom(r.Context())
	if !ok {
		response.RenderError(w, r, apperr.New(apperr.Unauthenticated, "authentication required"))
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.RenderError(w, r, apperr.New(apperr.InvalidInput, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}

	articles, err := h.service.List(r.Context(), accountID, limit)
	if err != nil {
		log.Error("failed to list articles", sl.Account(accountID), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"articles": articles,
	}))
}
