package quota

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

type RepoMock struct{ mock.Mock }

func (m *RepoMock) GetAccount(ctx context.Context, accountID string) (*models.Account, error) {
	args := m.Called(ctx, accountID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Account), args.Error(1)
}

func (m *RepoMock) AddTokensUsed(ctx context.Context, accountID string, tokens int64) error {
	return m.Called(ctx, accountID, tokens).Error(0)
}

func (m *RepoMock) AddTokensUsedWithinLimit(ctx context.Context, accountID string, tokens int64) (bool, error) {
	args := m.Called(ctx, accountID, tokens)
	return args.Bool(0), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

var fixedNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newLedger(r *RepoMock) *Ledger {
	return New(r, DefaultPolicy(), newNoopLogger(), WithClock(func() time.Time { return fixedNow }))
}

func TestLedger_CheckLimit(t *testing.T) {
	past := fixedNow.Add(-time.Hour)
	future := fixedNow.Add(24 * time.Hour)

	tests := []struct {
		name    string
		account *models.Account
		repoErr error
		want    models.QuotaCheckResult
		wantErr apperr.Kind
	}{
		{
			name:    "trial with one token left",
			account: &models.Account{ID: "a", Tier: models.TierTrial, TokensUsed: 999, TokenLimit: 1000},
			want:    models.QuotaCheckResult{Allowed: true, TokensUsed: 999, TokensRemaining: 1, Limit: 1000, Tier: models.TierTrial},
		},
		{
			name:    "trial exhausted",
			account: &models.Account{ID: "a", Tier: models.TierTrial, TokensUsed: 1000, TokenLimit: 1000},
			want:    models.QuotaCheckResult{Allowed: false, TokensUsed: 1000, TokensRemaining: 0, Limit: 1000, Tier: models.TierTrial},
		},
		{
			name:    "used above limit clamps remaining",
			account: &models.Account{ID: "a", Tier: models.TierTrial, TokensUsed: 1200, TokenLimit: 1000},
			want:    models.QuotaCheckResult{Allowed: false, TokensUsed: 1200, TokensRemaining: 0, Limit: 1000, Tier: models.TierTrial},
		},
		{
			name: "paid active",
			account: &models.Account{ID: "a", Tier: models.TierPaid, TokensUsed: 10, TokenLimit: 1_000_000,
				SubscriptionExpiresAt: &future},
			want: models.QuotaCheckResult{Allowed: true, TokensUsed: 10, TokensRemaining: 999_990, Limit: 1_000_000, Tier: models.TierPaid},
		},
		{
			name: "paid expired",
			account: &models.Account{ID: "a", Tier: models.TierPaid, TokensUsed: 10, TokenLimit: 1_000_000,
				SubscriptionExpiresAt: &past},
			want: models.QuotaCheckResult{Allowed: false, TokensUsed: 10, TokensRemaining: 999_990, Limit: 1_000_000, Tier: models.TierPaid},
		},
		{
			name:    "paid without expiry",
			account: &models.Account{ID: "a", Tier: models.TierPaid, TokensUsed: 0, TokenLimit: 1_000_000},
			want:    models.QuotaCheckResult{Allowed: true, TokensUsed: 0, TokensRemaining: 1_000_000, Limit: 1_000_000, Tier: models.TierPaid},
		},
		{
			name:    "account not found",
			repoErr: apperr.New(apperr.NotFound, "account not found"),
			wantErr: apperr.NotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			repo.On("GetAccount", mock.Anything, "a").Return(tt.account, tt.repoErr).Once()

			got, err := newLedger(repo).CheckLimit(context.Background(), "a")
			if tt.repoErr != nil {
				require.Error(t, err)
				assert.Equal(t, tt.wantErr, apperr.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			repo.AssertExpectations(t)
		})
	}
}

func TestLedger_CheckLimitIsPure(t *testing.T) {
	repo := new(RepoMock)
	acc := &models.Account{ID: "a", Tier: models.TierTrial, TokensUsed: 500, TokenLimit: 1000}
	repo.On("GetAccount", mock.Anything, "a").Return(acc, nil).Twice()

	l := newLedger(repo)
	first, err := l.CheckLimit(context.Background(), "a")
	require.NoError(t, err)
	second, err := l.CheckLimit(context.Background(), "a")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	repo.AssertNotCalled(t, "AddTokensUsed", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestLedger_Consume(t *testing.T) {
	tests := []struct {
		name       string
		tokens     int64
		wantTokens int64
		getErr     error
		addErr     error
		wantErr    bool
	}{
		{name: "consume", tokens: 300, wantTokens: 300},
		{name: "negative clamps to zero", tokens: -5, wantTokens: 0},
		{name: "account missing", tokens: 10, getErr: apperr.New(apperr.NotFound, "account not found"), wantErr: true},
		{name: "storage failure", tokens: 10, wantTokens: 10, addErr: errors.New("db down"), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(RepoMock)
			var acc *models.Account
			if tt.getErr == nil {
				acc = &models.Account{ID: "a", Tier: models.TierTrial, TokenLimit: 1000}
				repo.On("AddTokensUsed", mock.Anything, "a", tt.wantTokens).Return(tt.addErr).Once()
			}
			repo.On("GetAccount", mock.Anything, "a").Return(acc, tt.getErr).Once()

			err := newLedger(repo).Consume(context.Background(), "a", tt.tokens)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestLedger_ConsumeWithinLimit(t *testing.T) {
	t.Run("applied", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("AddTokensUsedWithinLimit", mock.Anything, "a", int64(100)).Return(true, nil).Once()
		repo.On("GetAccount", mock.Anything, "a").
			Return(&models.Account{ID: "a", Tier: models.TierTrial, TokensUsed: 100, TokenLimit: 1000}, nil).Once()

		assert.NoError(t, newLedger(repo).ConsumeWithinLimit(context.Background(), "a", 100))
		repo.AssertExpectations(t)
	})

	t.Run("rejected", func(t *testing.T) {
		repo := new(RepoMock)
		repo.On("AddTokensUsedWithinLimit", mock.Anything, "a", int64(100)).Return(false, nil).Once()
		repo.On("GetAccount", mock.Anything, "a").
			Return(&models.Account{ID: "a", Tier: models.TierTrial, TokensUsed: 950, TokenLimit: 1000}, nil).Once()

		err := newLedger(repo).ConsumeWithinLimit(context.Background(), "a", 100)
		require.Error(t, err)
		e, ok := apperr.As(err)
		require.True(t, ok)
		assert.Equal(t, apperr.InsufficientQuota, e.Kind)
		require.NotNil(t, e.Quota)
		assert.Equal(t, int64(50), e.Quota.TokensRemaining)
	})
}

func TestEstimate(t *testing.T) {
	tests := []struct {
		name string
		text string
		want int64
	}{
		{name: "empty", text: "", want: 0},
		{name: "one char", text: "a", want: 1},
		{name: "exact multiple", text: "abcd", want: 1},
		{name: "rounds up", text: "abcde", want: 2},
		{name: "400 chars", text: strings.Repeat("x", 400), want: 100},
		{name: "counts code points", text: "привет", want: 2},
		{name: "cjk", text: "你好世界", want: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Estimate(tt.text))
		})
	}
}

func TestPolicy_PreEstimate(t *testing.T) {
	p := DefaultPolicy()
	assert.Equal(t, int64(250), p.PreEstimate(strings.Repeat("x", 400)))
	// 2 * 2.5 = 5
	assert.Equal(t, int64(5), p.PreEstimate("abcdefgh"))
	// 1 * 2.5 = 2.5 -> 3
	assert.Equal(t, int64(3), p.PreEstimate("ab"))
}
