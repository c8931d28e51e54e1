package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/article-insights/internal/models"
	"github.com/magabrotheeeer/article-insights/internal/services/quota"
)

var now = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func paidAccount(used int64) models.Account {
	expires := now.Add(10 * 24 * time.Hour)
	ref := "sub_123"
	return models.Account{
		ID:                    "acc-1",
		Email:                 "user@example.com",
		Tier:                  models.TierPaid,
		TokensUsed:            used,
		TokenLimit:            1_000_000,
		SubscriptionStatus:    models.StatusActive,
		SubscriptionExpiresAt: &expires,
		PaymentReference:      &ref,
	}
}

func trialAccount(used int64) models.Account {
	return models.Account{
		ID:         "acc-1",
		Email:      "user@example.com",
		Tier:       models.TierTrial,
		TokensUsed: used,
		TokenLimit: 1000,
	}
}

func TestStateOf(t *testing.T) {
	past := now.Add(-time.Hour)
	expired := paidAccount(0)
	expired.SubscriptionExpiresAt = &past
	providerExpired := paidAccount(0)
	providerExpired.SubscriptionStatus = models.StatusExpired
	cancelled := paidAccount(0)
	cancelled.SubscriptionStatus = models.StatusCancelled

	tests := []struct {
		name string
		acc  models.Account
		want State
	}{
		{name: "trial", acc: trialAccount(0), want: StateTrial},
		{name: "paid active", acc: paidAccount(0), want: StatePaidActive},
		{name: "paid past expiry", acc: expired, want: StatePaidExpired},
		{name: "paid expired by provider", acc: providerExpired, want: StatePaidExpired},
		{name: "paid cancelled", acc: cancelled, want: StatePaidCancelled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StateOf(tt.acc, now))
		})
	}
}

func TestTransition(t *testing.T) {
	policy := quota.DefaultPolicy()
	periodEnd := now.Add(30 * 24 * time.Hour)

	tests := []struct {
		name   string
		acc    models.Account
		ev     Event
		wantOK bool
		check  func(t *testing.T, got models.Account)
	}{
		{
			name:   "checkout upgrades trial and resets usage",
			acc:    trialAccount(700),
			ev:     Event{Kind: EventCheckoutCompleted, Reference: "sub_999", PeriodEnd: &periodEnd},
			wantOK: true,
			check: func(t *testing.T, got models.Account) {
				assert.Equal(t, models.TierPaid, got.Tier)
				assert.Equal(t, int64(1_000_000), got.TokenLimit)
				assert.Equal(t, int64(0), got.TokensUsed)
				assert.Equal(t, models.StatusActive, got.SubscriptionStatus)
				require.NotNil(t, got.SubscriptionExpiresAt)
				assert.Equal(t, periodEnd, *got.SubscriptionExpiresAt)
				require.NotNil(t, got.PaymentReference)
				assert.Equal(t, "sub_999", *got.PaymentReference)
			},
		},
		{
			name:   "manual upgrade falls back to thirty days",
			acc:    trialAccount(10),
			ev:     Event{Kind: EventManualUpgrade},
			wantOK: true,
			check: func(t *testing.T, got models.Account) {
				assert.Equal(t, models.TierPaid, got.Tier)
				require.NotNil(t, got.SubscriptionExpiresAt)
				assert.Equal(t, now.Add(30*24*time.Hour), *got.SubscriptionExpiresAt)
				assert.Nil(t, got.PaymentReference)
			},
		},
		{
			name:   "subscription updated active keeps usage",
			acc:    paidAccount(500),
			ev:     Event{Kind: EventSubscriptionUpdated, ProviderStatus: ProviderStatusActive, PeriodEnd: &periodEnd},
			wantOK: true,
			check: func(t *testing.T, got models.Account) {
				assert.Equal(t, int64(500), got.TokensUsed)
				assert.Equal(t, periodEnd, *got.SubscriptionExpiresAt)
				assert.Equal(t, models.StatusActive, got.SubscriptionStatus)
			},
		},
		{
			name:   "subscription updated active stores subscription reference",
			acc:    paidAccount(500),
			ev:     Event{Kind: EventSubscriptionUpdated, ProviderStatus: ProviderStatusActive, PeriodEnd: &periodEnd, Reference: "sub_new"},
			wantOK: true,
			check: func(t *testing.T, got models.Account) {
				require.NotNil(t, got.PaymentReference)
				assert.Equal(t, "sub_new", *got.PaymentReference)
				assert.Equal(t, int64(500), got.TokensUsed)
			},
		},
		{
			name:   "subscription updated active on trial is ignored",
			acc:    trialAccount(5),
			ev:     Event{Kind: EventSubscriptionUpdated, ProviderStatus: ProviderStatusActive, PeriodEnd: &periodEnd},
			wantOK: false,
		},
		{
			name:   "subscription canceled marks expired",
			acc:    paidAccount(500),
			ev:     Event{Kind: EventSubscriptionUpdated, ProviderStatus: ProviderStatusCanceled},
			wantOK: true,
			check: func(t *testing.T, got models.Account) {
				assert.Equal(t, models.StatusExpired, got.SubscriptionStatus)
				assert.Equal(t, models.TierPaid, got.Tier)
				assert.Equal(t, int64(500), got.TokensUsed)
			},
		},
		{
			name:   "subscription unpaid marks expired",
			acc:    paidAccount(1),
			ev:     Event{Kind: EventSubscriptionUpdated, ProviderStatus: ProviderStatusUnpaid},
			wantOK: true,
			check: func(t *testing.T, got models.Account) {
				assert.Equal(t, models.StatusExpired, got.SubscriptionStatus)
			},
		},
		{
			name:   "subscription past_due is ignored",
			acc:    paidAccount(1),
			ev:     Event{Kind: EventSubscriptionUpdated, ProviderStatus: "past_due"},
			wantOK: false,
		},
		{
			name:   "subscription deleted returns to trial",
			acc:    paidAccount(5000),
			ev:     Event{Kind: EventSubscriptionDeleted},
			wantOK: true,
			check: func(t *testing.T, got models.Account) {
				assert.Equal(t, models.TierTrial, got.Tier)
				assert.Equal(t, int64(1000), got.TokenLimit)
				assert.Equal(t, int64(0), got.TokensUsed)
				assert.Equal(t, models.StatusCancelled, got.SubscriptionStatus)
				assert.Nil(t, got.PaymentReference)
			},
		},
		{
			name:   "renewal invoice resets usage",
			acc:    paidAccount(4000),
			ev:     Event{Kind: EventInvoicePaid, BillingReason: ReasonSubscriptionCycle, PeriodEnd: &periodEnd},
			wantOK: true,
			check: func(t *testing.T, got models.Account) {
				assert.Equal(t, int64(0), got.TokensUsed)
				assert.Equal(t, periodEnd, *got.SubscriptionExpiresAt)
			},
		},
		{
			name:   "subscription update invoice resets usage",
			acc:    paidAccount(4000),
			ev:     Event{Kind: EventInvoicePaid, BillingReason: ReasonSubscriptionUpdate, PeriodEnd: &periodEnd},
			wantOK: true,
			check: func(t *testing.T, got models.Account) {
				assert.Equal(t, int64(0), got.TokensUsed)
			},
		},
		{
			name:   "non-renewal invoice keeps usage",
			acc:    paidAccount(4000),
			ev:     Event{Kind: EventInvoicePaid, BillingReason: "subscription_create", PeriodEnd: &periodEnd},
			wantOK: true,
			check: func(t *testing.T, got models.Account) {
				assert.Equal(t, int64(4000), got.TokensUsed)
				assert.Equal(t, models.StatusActive, got.SubscriptionStatus)
				assert.Equal(t, periodEnd, *got.SubscriptionExpiresAt)
			},
		},
		{
			name:   "invoice paid on trial is ignored",
			acc:    trialAccount(10),
			ev:     Event{Kind: EventInvoicePaid, BillingReason: ReasonSubscriptionCycle, PeriodEnd: &periodEnd},
			wantOK: false,
		},
		{
			name:   "invoice failed changes nothing",
			acc:    paidAccount(10),
			ev:     Event{Kind: EventInvoiceFailed},
			wantOK: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.acc
			patch, ok := Transition(tt.acc, tt.ev, now, policy)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, before, tt.acc)
			if !ok {
				assert.True(t, patch.Empty())
				return
			}
			tt.check(t, patch.Apply(tt.acc))
		})
	}
}
