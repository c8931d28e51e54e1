// Package read реализует HTTP-обработчик получения сохранённой статьи по ID.
//
// Статья доступна только владельцу, для чужой записи возвращается 403.
package read

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
	"github.com/magabrotheeeer/article-insights/internal/models"
)

// Service описывает чтение записи истории.
type Service interface {
	Get(ctx context.Context, accountID, id string) (*models.ArticleRecord, error)
}

// Handler обрабатывает запросы чтения статьи.
type Handler struct {
	log     *slog.Logger
	service Service
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{log: log, service: service}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.article.read"

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

	rec, err := h.service.Get(r.Context(), accountID, id)
	if err != nil {
		log.Warn("failed to read article", sl.Account(accountID), slog.String("article_id", id), sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	render.JSON(w, r, response.OKWithData(map[string]any{
		"article": rec,
	}))
}
