package repository

import (
	"context"
	"database/sql"

	"github.com/magabrotheeeer/article-insights/internal/models"
)

// CreateArticle сохраняет запись истории и возвращает её ID.
func (s *Storage) CreateArticle(ctx context.Context, rec models.ArticleRecord) (string, error) {
	const op = "storage.CreateArticle"
	if err := checkContext(ctx, op); err != nil {
		return "", err
	}

	var id string
	query := `INSERT INTO articles (account_id, title, original_content, translated_content,
			      commentary, input_kind, source_url, style, tokens_used)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			  RETURNING id`
	if err := s.DB.QueryRowContext(ctx, query,
		rec.AccountID, rec.Title, rec.OriginalContent, rec.TranslatedContent, rec.Commentary,
		string(rec.InputKind), rec.SourceURL, string(rec.Style), rec.TokensUsed).Scan(&id); err != nil {
		return "", mapError(op, err)
	}
	return id, nil
}

// ListArticles возвращает историю учётной записи, новые записи первыми.
func (s *Storage) ListArticles(ctx context.Context, accountID string, limit int) ([]models.ArticleSummary, error) {
	const op = "storage.ListArticles"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT id, title, input_kind, source_url, style, tokens_used, created_at
			  FROM articles
			  WHERE account_id = $1
			  ORDER BY created_at DESC
			  LIMIT $2`
	rows, err := s.DB.QueryContext(ctx, query, accountID, limit)
	if err != nil {
		return nil, mapError(op, err)
	}
	defer func() {
		_ = rows.Close()
	}()

	result := make([]models.ArticleSummary, 0, limit)
	for rows.Next() {
		var (
			a         models.ArticleSummary
			inputKind string
			style     string
			sourceURL sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.Title, &inputKind, &sourceURL, &style, &a.TokensUsed, &a.CreatedAt); err != nil {
			return nil, mapError(op, err)
		}
		a.InputKind = models.InputKind(inputKind)
		a.Style = models.StyleTag(style)
		if sourceURL.Valid {
			a.SourceURL = &sourceURL.String
		}
		result = append(result, a)
	}
	if err := rows.Err(); err != nil {
		return nil, mapError(op, err)
	}
	return result, nil
}

// GetArticle возвращает запись истории по ID без проверки владельца.
func (s *Storage) GetArticle(ctx context.Context, id string) (*models.ArticleRecord, error) {
	const op = "storage.GetArticle"
	if err := checkContext(ctx, op); err != nil {
		return nil, err
	}

	query := `SELECT id, account_id, title, original_content, translated_content, commentary,
			      input_kind, source_url, style, tokens_used, created_at
			  FROM articles
			  WHERE id = $1`
	var (
		rec       models.ArticleRecord
		inputKind string
		style     string
		sourceURL sql.NullString
	)
	if err := s.DB.QueryRowContext(ctx, query, id).Scan(&rec.ID, &rec.AccountID, &rec.Title,
		&rec.OriginalContent, &rec.TranslatedContent, &rec.Commentary, &inputKind, &sourceURL,
		&style, &rec.TokensUsed, &rec.CreatedAt); err != nil {
		return nil, mapError(op, err)
	}
	rec.InputKind = models.InputKind(inputKind)
	rec.Style = models.StyleTag(style)
	if sourceURL.Valid {
		rec.SourceURL = &sourceURL.String
	}
	return &rec, nil
}

// DeleteArticle удаляет запись, только если она принадлежит accountID.
// Возвращает количество удалённых строк.
func (s *Storage) DeleteArticle(ctx context.Context, accountID, id string) (int64, error) {
	const op = "storage.DeleteArticle"
	if err := checkContext(ctx, op); err != nil {
		return 0, err
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM articles WHERE id = $1 AND account_id = $2`, id, accountID)
	if err != nil {
		return 0, mapError(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, mapError(op, err)
	}
	return n, nil
}
