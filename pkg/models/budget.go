package models

// ModelPricing defines per-token costs for a backend model.
type ModelPricing struct {
	InputCostPerToken  float64 `json:"input_cost_per_token" yaml:"input_cost_per_token"`
	OutputCostPerToken float64 `json:"output_cost_per_token" yaml:"output_cost_per_token"`
}

// CostLimits is the three-tier budget configuration.
type CostLimits struct {
	DailyTokenLimit   int     `json:"daily_token_limit" yaml:"daily_token_limit"`
	EpisodeTokenLimit int     `json:"episode_token_limit" yaml:"episode_token_limit"`
	MonthlyBudgetUSD  float64 `json:"monthly_budget_usd" yaml:"monthly_budget_usd"`
}

// UsageSnapshot captures current usage against each limit tier at
// the moment of an admission check.
type UsageSnapshot struct {
	DailyTokens    int     `json:"daily_tokens"`
	EpisodeTokens  int     `json:"episode_tokens"`
	MonthlyCostUSD float64 `json:"monthly_cost_usd"`
}

// AdmissionDecision is the result of a pre-flight budget check.
// Computed fresh per request, never persisted.
type AdmissionDecision struct {
	Allowed          bool          `json:"allowed"`
	Reasons          []string      `json:"reasons"`
	EstimatedCostUSD float64       `json:"estimated_cost_usd"`
	CurrentUsage     UsageSnapshot `json:"current_usage"`
	Limits           CostLimits    `json:"limits"`
}
