package models

import "time"

// AgentUsage is the per-agent slice of a usage record.
type AgentUsage struct {
	Tokens   int     `json:"tokens"`
	CostUSD  float64 `json:"cost_usd"`
	Requests int     `json:"requests"`
}

// UsageRecord aggregates token usage and cost for one scope (a day,
// an episode, or a month). Totals always equal the sum over Agents.
type UsageRecord struct {
	TotalTokens  int                   `json:"total_tokens"`
	TotalCostUSD float64               `json:"total_cost_usd"`
	Requests     int                   `json:"requests"`
	Agents       map[string]AgentUsage `json:"agents,omitempty"`
	Timestamp    time.Time             `json:"timestamp,omitempty"`
}

// UsageDocument is the whole persisted usage state, keyed by
// YYYY-MM-DD day, episode id, and YYYY-MM month.
type UsageDocument struct {
	Daily       map[string]*UsageRecord `json:"daily_usage"`
	Episodes    map[string]*UsageRecord `json:"episode_usage"`
	Monthly     map[string]*UsageRecord `json:"monthly_totals"`
	LastUpdated time.Time               `json:"last_updated"`
}

// NewUsageDocument returns an empty document with all maps allocated.
func NewUsageDocument() *UsageDocument {
	return &UsageDocument{
		Daily:    make(map[string]*UsageRecord),
		Episodes: make(map[string]*UsageRecord),
		Monthly:  make(map[string]*UsageRecord),
	}
}

// EpisodeUsage is one row in the recent-episodes section of a summary.
type EpisodeUsage struct {
	EpisodeID string  `json:"episode_id"`
	Tokens    int     `json:"tokens"`
	CostUSD   float64 `json:"cost_usd"`
}

// UsageSummary is the rollup shown by the usage CLI.
type UsageSummary struct {
	DailyTokensUsed      int            `json:"daily_tokens_used"`
	DailyTokenLimit      int            `json:"daily_token_limit"`
	DailyTokensRemaining int            `json:"daily_tokens_remaining"`
	DailyCostUSD         float64        `json:"daily_cost_usd"`
	DailyRequests        int            `json:"daily_requests"`
	MonthlyCostUSD       float64        `json:"monthly_cost_usd"`
	MonthlyBudgetUSD     float64        `json:"monthly_budget_usd"`
	MonthlyRemainingUSD  float64        `json:"monthly_remaining_usd"`
	MonthlyTokens        int            `json:"monthly_tokens"`
	MonthlyRequests      int            `json:"monthly_requests"`
	RecentEpisodes       []EpisodeUsage `json:"recent_episodes"`
}
