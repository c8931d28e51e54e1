// Package oauth реализует HTTP-обработчик входа через Google по ID-токену.
// При первом входе создаётся пробная учётная запись.
package oauth

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/article-insights/internal/http/response"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/services/auth"
)

// Request содержит ID-токен, полученный клиентом от Google.
type Request struct {
	IDToken string `json:"idToken" validate:"required"`
}

// Service описывает бизнес-логику внешнего входа.
type Service interface {
	OAuthSignIn(ctx context.Context, idToken string) (*auth.Session, error)
}

// Handler обрабатывает запросы входа через Google.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// New создаёт Handler.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.auth.oauth"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || h.validate.Struct(req) != nil {
		log.Warn("invalid oauth request", sl.Err(err))
		resp := response.Error("INVALID_INPUT")
		resp.Message = "idToken is required"
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, resp)
		return
	}

	session, err := h.service.OAuthSignIn(r.Context(), req.IDToken)
	if err != nil {
		log.Warn("oauth sign-in failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("oauth sign-in success", sl.Account(session.Account.ID))
	render.JSON(w, r, response.OKWithData(session))
}
