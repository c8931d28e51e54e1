package article

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

const (
	defaultListLimit = 50
	maxListLimit     = 100
)

// List возвращает историю учётной записи от новых к старым. Если таблица
// истории ещё не создана, возвращается пустой список.
func (p *Processor) List(ctx context.Context, accountID string, limit int) ([]models.ArticleSummary, error) {
	const op = "article.List"

	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	items, err := p.repo.ListArticles(ctx, accountID, limit)
	if err != nil {
		if apperr.Is(err, apperr.StorageNotProvisioned) {
			p.log.Warn("articles table does not exist, returning empty history",
				slog.String("op", op), sl.Account(accountID))
			return []models.ArticleSummary{}, nil
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if items == nil {
		items = []models.ArticleSummary{}
	}
	return items, nil
}

// Get возвращает запись истории, принадлежащую учётной записи.
func (p *Processor) Get(ctx context.Context, accountID, id string) (*models.ArticleRecord, error) {
	const op = "article.Get"

	rec, err := p.repo.GetArticle(ctx, id)
	if err != nil {
		if apperr.Is(err, apperr.StorageNotProvisioned) {
			return nil, apperr.Wrap(apperr.NotFound, "article not found", err)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if rec.AccountID != accountID {
		return nil, apperr.New(apperr.Forbidden, "article belongs to another account")
	}
	return rec, nil
}

// Delete удаляет запись истории. Чужая или отсутствующая запись даёт NotFound.
func (p *Processor) Delete(ctx context.Context, accountID, id string) error {
	const op = "article.Delete"

	n, err := p.repo.DeleteArticle(ctx, accountID, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if n == 0 {
		return apperr.New(apperr.NotFound, "article not found")
	}
	p.log.Info("article deleted", slog.String("op", op), sl.Account(accountID), slog.String("article_id", id))
	return nil
}
