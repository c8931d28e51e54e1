package response

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/article-insights/internal/lib/apperr"
	"github.com/magabrotheeeer/article-insights/internal/models"
)

func TestOKWithData(t *testing.T) {
	data := map[string]string{"key": "value"}
	resp := OKWithData(data)

	assert.Equal(t, StatusOK, resp.Status)
	assert.Empty(t, resp.Error)
	assert.Equal(t, data, resp.Data)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		kind apperr.Kind
		want int
	}{
		{apperr.Unauthenticated, http.StatusUnauthorized},
		{apperr.Forbidden, http.StatusForbidden},
		{apperr.NotFound, http.StatusNotFound},
		{apperr.InvalidInput, http.StatusBadRequest},
		{apperr.SubscriptionRequired, http.StatusPaymentRequired},
		{apperr.InsufficientQuota, http.StatusForbidden},
		{apperr.EmptyContent, http.StatusBadRequest},
		{apperr.ExtractionFailed, http.StatusBadRequest},
		{apperr.GenerationError, http.StatusBadGateway},
		{apperr.NetworkError, http.StatusServiceUnavailable},
		{apperr.StorageUnavailable, http.StatusServiceUnavailable},
		{apperr.StorageNotProvisioned, http.StatusServiceUnavailable},
		{apperr.WebhookVerificationFailed, http.StatusBadRequest},
		{apperr.Conflict, http.StatusConflict},
		{apperr.Unknown, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.kind))
		})
	}
}

func TestFromError(t *testing.T) {
	snapshot := models.QuotaCheckResult{TokensUsed: 1000, Limit: 1000, Tier: models.TierTrial}

	t.Run("quota error carries snapshot", func(t *testing.T) {
		err := fmt.Errorf("article.Process: %w",
			apperr.Quota(apperr.CodeTokenLimitReached, "token limit reached", snapshot))

		status, resp := FromError(err)
		assert.Equal(t, http.StatusForbidden, status)
		assert.Equal(t, StatusError, resp.Status)
		assert.Equal(t, apperr.CodeTokenLimitReached, resp.Error)
		require.NotNil(t, resp.Quota)
		assert.Equal(t, int64(1000), resp.Quota.TokensUsed)
		assert.True(t, resp.UpgradeRequired)
	})

	t.Run("paid account quota error does not ask to upgrade", func(t *testing.T) {
		paid := snapshot
		paid.Tier = models.TierPaid
		_, resp := FromError(apperr.Quota("INSUFFICIENT_TOKENS", "not enough", paid))
		assert.False(t, resp.UpgradeRequired)
	})

	t.Run("estimated and required tokens", func(t *testing.T) {
		e := apperr.Quota("INSUFFICIENT_TOKENS", "not enough", snapshot)
		e.Estimated = 250
		e.Required = 300
		_, resp := FromError(e)
		assert.Equal(t, int64(250), resp.EstimatedTokens)
		assert.Equal(t, int64(300), resp.RequiredTokens)
	})

	t.Run("subscription required", func(t *testing.T) {
		status, resp := FromError(apperr.New(apperr.SubscriptionRequired, "paywalled"))
		assert.Equal(t, http.StatusPaymentRequired, status)
		assert.Equal(t, "SUBSCRIPTION_REQUIRED", resp.Error)
		assert.True(t, resp.UpgradeRequired)
	})

	t.Run("cause is not exposed", func(t *testing.T) {
		_, resp := FromError(apperr.Wrap(apperr.StorageUnavailable, "database unavailable", errors.New("password=secret")))
		assert.Equal(t, "database unavailable", resp.Message)
		assert.NotContains(t, resp.Message, "secret")
	})

	t.Run("foreign error", func(t *testing.T) {
		status, resp := FromError(errors.New("boom"))
		assert.Equal(t, http.StatusInternalServerError, status)
		assert.Equal(t, "UNKNOWN_ERROR", resp.Error)
		assert.NotContains(t, resp.Message, "boom")
	})
}

func TestValidationError(t *testing.T) {
	type TestStruct struct {
		Email    string `validate:"required,email"`
		Password string `validate:"min=8"`
		Style    string `validate:"omitempty,oneof=a b"`
	}

	err := validator.New().Struct(TestStruct{Email: "not-an-email", Password: "short", Style: "c"})
	require.Error(t, err)

	resp := ValidationError(err.(validator.ValidationErrors))
	assert.Equal(t, StatusError, resp.Status)
	assert.Equal(t, "INVALID_INPUT", resp.Error)
	assert.Contains(t, resp.Message, "field Email must be a valid email")
	assert.Contains(t, resp.Message, "field Password must be at least 8 characters")
	assert.Contains(t, resp.Message, "field Style must be one of: a b")
}
