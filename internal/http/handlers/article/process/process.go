// Package process реализует HTTP-обработчик перевода статьи и написания комментария.
//
// Статья передаётся ссылкой или текстом. Перед генерацией проверяется квота
// токенов учётной записи, после успешной генерации токены списываются.
package process

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/article-insights/internal/http/middlewarectx"
	"github.com/magabrotheeeer/article-insights/internal/http/response"
	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/models"
	"github.com/magabrotheeeer/article-insights/internal/services/article"
)

// MaxBodyBytes ограничивает размер тела запроса.
const MaxBodyBytes = int64(2 << 20)

// Request — входные данные обработки статьи.
type Request struct {
	InputType string `json:"inputType" validate:"required,oneof=url text"`
	Content   string `json:"content" validate:"required"`
	Style     string `json:"style,omitempty"`
}

// Service описывает бизнес-логику обработки статьи.
type Service interface {
	Process(ctx context.Context, accountID string, req article.ProcessRequest) (article.ProcessResult, error)
}

// Handler обрабатывает запросы на обработку статьи.
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
	const op = "handlers.article.process"

	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	accountID, ok := middlewarectx.AccountIDFrom(r.Context())
	if !ok {
		response.RenderError(w, r, apperr.New(apperr.Unauthenticated, "authentication required"))
		return
	}
	log = log.With(sl.Account(accountID))

	r.Body = http.MaxBytesReader(w, r.Body, MaxBodyBytes)

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn("request body too large", slog.Int64("limit", tooLarge.Limit))
			resp := response.Error("PAYLOAD_TOO_LARGE")
			resp.Message = "request body too large"
			render.Status(r, http.StatusRequestEntityTooLarge)
			render.JSON(w, r, resp)
			return
		}
		log.Error("failed to decode request body", sl.Err(err))
		response.RenderError(w, r, apperr.Wrap(apperr.InvalidInput, "invalid request body", err))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Warn("validation failed", sl.Err(err))
		var verrs validator.ValidationErrors
		errors.As(err, &verrs)
		render.Status(r, http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(verrs))
		return
	}
	if req.InputType == string(models.InputURL) && h.validate.Var(req.Content, "url") != nil {
		response.RenderError(w, r, apperr.New(apperr.InvalidInput, "content must be a valid url"))
		return
	}

	kind, _ := models.ParseInputKind(req.InputType)
	res, err := h.service.Process(r.Context(), accountID, article.ProcessRequest{
		InputKind: kind,
		Content:   req.Content,
		Style:     models.StyleTag(req.Style),
	})
	if err != nil {
		log.Warn("article processing failed", sl.Err(err))
		response.RenderError(w, r, err)
		return
	}

	log.Info("article processed", slog.Int64("tokens_used", res.TokensUsed))
	render.JSON(w, r, response.OKWithData(res))
}
