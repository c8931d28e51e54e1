// Package article реализует обработку статьи с учётом квоты токенов:
// получение текста, предварительную оценку стоимости, перевод и комментарий,
// финальную проверку, списание токенов и сохранение в историю.
package article

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/metrics"
	"github.com/magabrotheeeer/article-insights/internal/models"
	"github.com/magabrotheeeer/article-insights/internal/services/quota"
)

// Ledger определяет операции учёта токенов.
type Ledger interface {
	CheckLimit(ctx context.Context, accountID string) (models.QuotaCheckResult, error)
	Consume(ctx context.Context, accountID string, tokens int64) error
	ConsumeWithinLimit(ctx context.Context, accountID string, tokens int64) error
}

// Extractor получает читаемый текст статьи по URL.
type Extractor interface {
	Extract(ctx context.Context, rawURL string) (models.Extraction, error)
	// KnownPaywall сообщает, относится ли адрес к известному платному изданию.
	KnownPaywall(rawURL string) bool
}

// Generator переводит текст и пишет к нему комментарий.
type Generator interface {
	Translate(ctx context.Context, text string) (string, error)
	GenerateCommentary(ctx context.Context, translated string, style models.StyleTag) (string, error)
}

// Repository хранит историю обработанных статей.
type Repository interface {
	CreateArticle(ctx context.Context, rec models.ArticleRecord) (string, error)
	ListArticles(ctx context.Context, accountID string, limit int) ([]models.ArticleSummary, error)
	GetArticle(ctx context.Context, id string) (*models.ArticleRecord, error)
	DeleteArticle(ctx context.Context, accountID, id string) (int64, error)
}

// Config параметры обработки.
type Config struct {
	Policy            quota.Policy
	StrictConsume     bool
	GenerationTimeout time.Duration
}

// ProcessRequest — входные данные запроса на обработку.
type ProcessRequest struct {
	InputKind models.InputKind
	Content   string
	Style     models.StyleTag
}

// ProcessResult — результат успешной обработки.
type ProcessResult struct {
	Translation string                  `json:"translation"`
	Commentary  string                  `json:"insights"`
	Style       models.StyleTag         `json:"style"`
	TokensUsed  int64                   `json:"tokensUsed"`
	Quota       models.QuotaCheckResult `json:"quota"`
	ArticleID   *string                 `json:"articleId"`
}

// Processor выполняет обработку статей.
type Processor struct {
	ledger    Ledger
	extractor Extractor
	generator Generator
	repo      Repository
	cfg       Config
	log       *slog.Logger
}

// NewProcessor создаёт Processor.
func NewProcessor(ledger Ledger, extractor Extractor, generator Generator, repo Repository, cfg Config, log *slog.Logger) *Processor {
	return &Processor{
		ledger:    ledger,
		extractor: extractor,
		generator: generator,
		repo:      repo,
		cfg:       cfg,
		log:       log,
	}
}

// Process обрабатывает статью. Токены списываются только после успешной
// генерации и финальной проверки. Ошибка сохранения в историю не
// возвращается вызывающему.
func (p *Processor) Process(ctx context.Context, accountID string, req ProcessRequest) (ProcessResult, error) {
	const op = "article.Process"
	log := p.log.With(slog.String("op", op), sl.Account(accountID))

	res, err := p.process(ctx, log, accountID, req)
	outcome := "ok"
	if err != nil {
		outcome = apperr.KindOf(err).String()
		if e, ok := apperr.As(err); ok {
			outcome = e.PublicCode()
		}
	}
	metrics.ArticlesProcessed.WithLabelValues(outcome).Inc()
	if err != nil {
		return ProcessResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return res, nil
}

func (p *Processor) process(ctx context.Context, log *slog.Logger, accountID string, req ProcessRequest) (ProcessResult, error) {
	style := req.Style
	if style == "" {
		style = models.DefaultStyle
	}
	if !style.Valid() {
		return ProcessResult{}, apperr.New(apperr.InvalidInput, "unknown style "+string(style))
	}

	snap, err := p.ledger.CheckLimit(ctx, accountID)
	if err != nil {
		return ProcessResult{}, err
	}
	if !snap.Allowed {
		return ProcessResult{}, limitError(snap)
	}

	text, title, err := p.acquire(ctx, log, req)
	if err != nil {
		return ProcessResult{}, err
	}

	if utf8.RuneCountInString(strings.TrimSpace(text)) < p.cfg.Policy.MinContentLength {
		return ProcessResult{}, apperr.New(apperr.EmptyContent, "no content found in the article")
	}

	estimated := p.cfg.Policy.PreEstimate(text)
	snap, err = p.ledger.CheckLimit(ctx, accountID)
	if err != nil {
		return ProcessResult{}, err
	}
	if snap.Tier == models.TierTrial && snap.TokensRemaining < estimated {
		e := apperr.Quota(apperr.InsufficientQuota.String(), fmt.Sprintf(
			"this article requires approximately %d tokens, but only %d remain", estimated, snap.TokensRemaining), snap)
		e.Estimated = estimated
		return ProcessResult{}, e
	}

	translation, err := p.translate(ctx, text)
	if err != nil {
		return ProcessResult{}, err
	}
	commentary, err := p.commentary(ctx, translation, style)
	if err != nil {
		return ProcessResult{}, err
	}

	actual := quota.Estimate(text) + quota.Estimate(translation) + quota.Estimate(commentary)

	snap, err = p.ledger.CheckLimit(ctx, accountID)
	if err != nil {
		return ProcessResult{}, err
	}
	if snap.Tier == models.TierTrial && snap.TokensRemaining < actual {
		return ProcessResult{}, requiredError(snap, actual)
	}

	if err := p.consume(ctx, accountID, snap.Tier, actual); err != nil {
		return ProcessResult{}, err
	}

	updated, err := p.ledger.CheckLimit(ctx, accountID)
	if err != nil {
		log.Warn("failed to refresh quota after consume", sl.Err(err))
		updated = afterConsume(snap, actual)
	}

	rec := models.ArticleRecord{
		AccountID:         accountID,
		Title:             deriveTitle(req.InputKind, req.Content, text, title),
		OriginalContent:   text,
		TranslatedContent: translation,
		Commentary:        commentary,
		InputKind:         req.InputKind,
		Style:             style,
		TokensUsed:        actual,
	}
	if req.InputKind == models.InputURL {
		src := req.Content
		rec.SourceURL = &src
	}
	articleID := p.persistBestEffort(ctx, log, rec)

	log.Info("article processed", slog.Int64("tokens", actual), slog.String("style", string(style)))
	return ProcessResult{
		Translation: translation,
		Commentary:  commentary,
		Style:       style,
		TokensUsed:  actual,
		Quota:       updated,
		ArticleID:   articleID,
	}, nil
}

func (p *Processor) acquire(ctx context.Context, log *slog.Logger, req ProcessRequest) (string, string, error) {
	switch req.InputKind {
	case models.InputText:
		return req.Content, "", nil
	case models.InputURL:
	default:
		return "", "", apperr.New(apperr.InvalidInput, "unknown input type "+string(req.InputKind))
	}

	ext, err := p.extractor.Extract(ctx, req.Content)
	if err != nil {
		if apperr.Is(err, apperr.SubscriptionRequired) || p.extractor.KnownPaywall(req.Content) {
			log.Info("extraction blocked by paywall", slog.String("url", req.Content), sl.Err(err))
			return "", "", paywallError(err)
		}
		log.Warn("content extraction failed", slog.String("url", req.Content), sl.Err(err))
		return "", "", apperr.Wrap(apperr.ExtractionFailed, "failed to extract content from the url", err)
	}
	if ext.RequiresSubscription {
		return "", "", paywallError(nil)
	}
	return ext.Content, ext.Title, nil
}

func (p *Processor) translate(ctx context.Context, text string) (string, error) {
	ctx, cancel := p.generationContext(ctx)
	defer cancel()

	out, err := p.generator.Translate(ctx, text)
	if err != nil {
		return "", generationError("translation failed", err)
	}
	return out, nil
}

func (p *Processor) commentary(ctx context.Context, translated string, style models.StyleTag) (string, error) {
	ctx, cancel := p.generationContext(ctx)
	defer cancel()

	out, err := p.generator.GenerateCommentary(ctx, translated, style)
	if err != nil {
		return "", generationError("commentary generation failed", err)
	}
	return out, nil
}

func (p *Processor) generationContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.cfg.GenerationTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.cfg.GenerationTimeout)
}

func (p *Processor) consume(ctx context.Context, accountID string, tier models.Tier, tokens int64) error {
	if p.cfg.StrictConsume && tier == models.TierTrial {
		err := p.ledger.ConsumeWithinLimit(ctx, accountID, tokens)
		if e, ok := apperr.As(err); ok && e.Kind == apperr.InsufficientQuota && e.Quota != nil {
			return requiredError(*e.Quota, tokens)
		}
		return err
	}
	return p.ledger.Consume(ctx, accountID, tokens)
}

// persistBestEffort сохраняет запись истории. Ошибка только логируется:
// пользователь уже получил результат и за него списаны токены.
func (p *Processor) persistBestEffort(ctx context.Context, log *slog.Logger, rec models.ArticleRecord) *string {
	id, err := p.repo.CreateArticle(ctx, rec)
	if err != nil {
		metrics.ArticlePersistFailures.Inc()
		if apperr.Is(err, apperr.StorageNotProvisioned) {
			log.Warn("articles table does not exist, history not saved", sl.Err(err))
		} else {
			log.Error("failed to save article", sl.Err(err))
		}
		return nil
	}
	return &id
}

func limitError(snap models.QuotaCheckResult) error {
	if snap.TokensRemaining <= 0 {
		return apperr.Quota(apperr.CodeTokenLimitReached,
			"you have reached your token limit, please upgrade to continue", snap)
	}
	return apperr.Quota(apperr.InsufficientQuota.String(),
		"you do not have enough tokens for this operation, please upgrade to continue", snap)
}

func requiredError(snap models.QuotaCheckResult, required int64) error {
	e := apperr.Quota(apperr.InsufficientQuota.String(), fmt.Sprintf(
		"this operation requires %d tokens, but only %d remain", required, snap.TokensRemaining), snap)
	e.Required = required
	return e
}

func paywallError(err error) error {
	return apperr.Wrap(apperr.SubscriptionRequired,
		"this article requires a subscription to access, sign in to the website and paste the article text", err)
}

func generationError(msg string, err error) error {
	if apperr.Is(err, apperr.NetworkError) {
		return err
	}
	return apperr.Wrap(apperr.GenerationError, msg, err)
}

func afterConsume(snap models.QuotaCheckResult, tokens int64) models.QuotaCheckResult {
	snap.TokensUsed += tokens
	snap.TokensRemaining = max(snap.Limit-snap.TokensUsed, 0)
	snap.Allowed = snap.Allowed && snap.TokensRemaining > 0
	return snap
}
