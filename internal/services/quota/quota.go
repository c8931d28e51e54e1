// Package quota реализует учёт токенов: проверку остатка квоты, списание
// и оценку стоимости текста.
//
// Проверка и списание выполняются отдельными вызовами, поэтому два
// параллельных запроса одной учётной записи могут оба пройти проверку и
// вместе превысить лимит. Само списание атомарно на стороне хранилища
// и приращения не теряются. Для пробного уровня превышение можно закрыть
// через ConsumeWithinLimit.
package quota

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode/utf8"

	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/lib/sl"
	"github.com/magabrotheeeer/article-insights/internal/metrics"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

// Repository определяет операции хранилища, нужные учёту токенов.
type Repository interface {
	// GetAccount возвращает учётную запись или ошибку apperr.NotFound.
	GetAccount(ctx context.Context, accountID string) (*models.Account, error)
	// AddTokensUsed атомарно увеличивает tokens_used на tokens.
	AddTokensUsed(ctx context.Context, accountID string, tokens int64) error
	// AddTokensUsedWithinLimit увеличивает tokens_used, только если результат
	// не превысит token_limit. Возвращает false, если условие не выполнено.
	AddTokensUsedWithinLimit(ctx context.Context, accountID string, tokens int64) (bool, error)
}

// Policy задаёт лимиты и коэффициенты квот.
type Policy struct {
	TrialLimit         int64
	PaidLimit          int64
	EstimateMultiplier float64
	MinContentLength   int
	PaidPeriodFallback time.Duration
}

// DefaultPolicy возвращает значения по умолчанию.
func DefaultPolicy() Policy {
	return Policy{
		TrialLimit:         1000,
		PaidLimit:          1_000_000,
		EstimateMultiplier: 2.5,
		MinContentLength:   50,
		PaidPeriodFallback: 30 * 24 * time.Hour,
	}
}

// Ledger ведёт учёт токенов поверх хранилища.
type Ledger struct {
	repo   Repository
	policy Policy
	log    *slog.Logger
	now    func() time.Time
}

// Option настраивает Ledger.
type Option func(*Ledger)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		l.now = now
	}
}

// New создаёт Ledger.
func New(repo Repository, policy Policy, log *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		repo:   repo,
		policy: policy,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Policy возвращает действующую политику.
func (l *Ledger) Policy() Policy {
	return l.policy
}

// Now возвращает текущее время по часам учёта.
func (l *Ledger) Now() time.Time {
	return l.now()
}

// CheckLimit вычисляет снимок квоты на текущий момент. Состояние не меняется.
func (l *Ledger) CheckLimit(ctx context.Context, accountID string) (models.QuotaCheckResult, error) {
	const op = "quota.CheckLimit"

	acc, err := l.repo.GetAccount(ctx, accountID)
	if err != nil {
		return models.QuotaCheckResult{}, fmt.Errorf("%s: %w", op, err)
	}
	return Snapshot(*acc, l.now()), nil
}

// Consume списывает tokens без проверки лимита. Отрицательное значение
// приводится к нулю.
func (l *Ledger) Consume(ctx context.Context, accountID string, tokens int64) error {
	const op = "quota.Consume"

	acc, err := l.repo.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	tokens = max(tokens, 0)
	if err := l.repo.AddTokensUsed(ctx, accountID, tokens); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	metrics.TokensConsumed.WithLabelValues(string(acc.Tier)).Add(float64(tokens))
	l.log.Debug("tokens consumed", sl.Account(accountID), slog.Int64("tokens", tokens))
	return nil
}

// ConsumeWithinLimit списывает tokens одним условным обновлением.
// Если после списания лимит был бы превышен, ничего не меняется
// и возвращается apperr.InsufficientQuota со снимком квоты.
func (l *Ledger) ConsumeWithinLimit(ctx context.Context, accountID string, tokens int64) error {
	const op = "quota.ConsumeWithinLimit"

	tokens = max(tokens, 0)
	applied, err := l.repo.AddTokensUsedWithinLimit(ctx, accountID, tokens)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	acc, err := l.repo.GetAccount(ctx, accountID)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !applied {
		snap := Snapshot(*acc, l.now())
		l.log.Warn("conditional consume rejected", sl.Account(accountID),
			slog.Int64("tokens", tokens), slog.Int64("remaining", snap.TokensRemaining))
		return fmt.Errorf("%s: %w", op, apperr.Quota(apperr.InsufficientQuota.String(),
			"not enough tokens left for this request", snap))
	}

	metrics.TokensConsumed.WithLabelValues(string(acc.Tier)).Add(float64(tokens))
	return nil
}

// Snapshot вычисляет снимок квоты учётной записи на момент now.
func Snapshot(acc models.Account, now time.Time) models.QuotaCheckResult {
	remaining := max(acc.TokenLimit-acc.TokensUsed, 0)

	allowed := remaining > 0
	if acc.Tier == models.TierPaid && acc.SubscriptionExpiresAt != nil && !acc.SubscriptionExpiresAt.After(now) {
		allowed = false
	}

	return models.QuotaCheckResult{
		Allowed:         allowed,
		TokensUsed:      acc.TokensUsed,
		TokensRemaining: remaining,
		Limit:           acc.TokenLimit,
		Tier:            acc.Tier,
	}
}

// Estimate оценивает стоимость текста в токенах: один токен на четыре символа
// с округлением вверх. Символом считается кодовая точка Unicode.
func Estimate(text string) int64 {
	n := int64(utf8.RuneCountInString(text))
	return (n + 3) / 4
}

// PreEstimate оценивает полную стоимость запроса до генерации.
func (p Policy) PreEstimate(input string) int64 {
	est := float64(Estimate(input)) * p.EstimateMultiplier
	whole := int64(est)
	if float64(whole) < est {
		whole++
	}
	return whole
}
