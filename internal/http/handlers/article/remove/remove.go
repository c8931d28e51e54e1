// Package remove реализует HTTP-обработчик удаления статьи из истории.
//
// Удаление ограничено владельцем. Чужая или отсутствующая запись даёт 404
// и не изменяется.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/article-insights/internal/http/middlewarectx"
	"github.com/magabrotheeeer/article-insights/internal/http/response"
	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
)

// Service описывает удаление записи истории.
type Service interface {
	Delete(ctx context.Context, accountID, id string) error
}

// Handler обрабатывает запросы удаления статьи.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.article.remove"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accountID, ok := middlewarectx.AccountIDFrom(r.Context())
	if !ok {
		response.RenderError(w, r, apperr.New(apperr.Unauthenticated, "authentication required"))
		return
	}

	id := chi.URLParam(r, "id")
	if id == "" {
		response.RenderError(w, r, apperr.New(apperr.InvalidInput, "article id is required"))
		return
	}

	if err := h.service.Delete(r.Context(), accountID, id); err != nil {
		log.Warn("failed to delete article", sl.Account(accountID), slog.String("article_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("article deleted", sl.Account(accountID), slog.String("article_id", id))
	render.JSON(w, r, response.OK())
}
