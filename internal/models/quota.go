package models

// QuotaCheckResult — снимок квоты, вычисляемый на каждый запрос и нигде не кешируемый.
type QuotaCheckResult struct {
	Allowed         bool  `json:"allowed"`
	TokensUsed      int64 `json:"tokensUsed"`
	TokensRemaining int64 `json:"tokensRemaining"`
	Limit           int64 `json:"limit"`
	Tier            Tier  `json:"userType"`
}
