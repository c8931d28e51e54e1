package extractor

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strings"
	"time"

	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

// Store хранит кеш извлечённых статей.
type Store interface {
	Get(ctx context.Context, key string, result any) (bool, error)
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
}

// Source извлекает статью без кеша.
type Source interface {
	Extract(ctx context.Context, rawURL string) (models.Extraction, error)
	KnownPaywall(rawURL string) bool
}

// Cached кеширует успешные извлечения по URL. Сбои кеша не мешают извлечению.
type Cached struct {
	next  Source
	store Store
	ttl   time.Duration
	log   *slog.Logger
}

// NewCached оборачивает next кешем с временем жизни ttl.
func NewCached(next Source, store Store, ttl time.Duration, log *slog.Logger) *Cached {
	return &Cached{next: next, store: store, ttl: ttl, log: log}
}

// KnownPaywall делегирует проверку исходному извлекателю.
func (c *Cached) KnownPaywall(rawURL string) bool {
	return c.next.KnownPaywall(rawURL)
}

// Extract возвращает статью из кеша или загружает её.
func (c *Cached) Extract(ctx context.Context, rawURL string) (models.Extraction, error) {
	key := cacheKey(rawURL)

	var cached models.Extraction
	found, err := c.store.Get(ctx, key, &cached)
	if err != nil {
		c.log.Warn("extraction cache read failed", slog.String("key", key), sl.Err(err))
	}
	if found {
		return cached, nil
	}

	ext, err := c.next.Extract(ctx, rawURL)
	if err != nil {
		return models.Extraction{}, err
	}
	if err := c.store.Set(ctx, key, ext, c.ttl); err != nil {
		c.log.Warn("extraction cache write failed", slog.String("key", key), sl.Err(err))
	}
	return ext, nil
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(strings.TrimSpace(rawURL)))
	return "extract:" + hex.EncodeToString(sum[:])
}
