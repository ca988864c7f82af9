package budget

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/podforge-ai/podforge/pkg/ledger"
	"github.com/podforge-ai/podforge/pkg/models"
)

// ErrBudgetExceeded is the sentinel for pre-flight budget denials.
var ErrBudgetExceeded = errors.New("budget exceeded")

// ExceededError carries the reasons a request was denied. It is
// terminal for the request and never retried automatically.
type ExceededError struct {
	Agent            string
	Reasons          []string
	EstimatedCostUSD float64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("budget exceeded for %s: %s", e.Agent, strings.Join(e.Reasons, "; "))
}

func (e *ExceededError) Unwrap() error { return ErrBudgetExceeded }

// defaultCharsPerToken is the character-count heuristic divisor.
const defaultCharsPerToken = 4

// EstimateTokens approximates the token footprint of a request from
// prompt length plus the output allowance. A rough character-count
// heuristic is enough for a protective gate; it only has to be
// conservative, not exact.
func EstimateTokens(systemPrompt, userPrompt string, maxOutputTokens, charsPerToken int) int {
	if charsPerToken <= 0 {
		charsPerToken = defaultCharsPerToken
	}
	return len(systemPrompt+userPrompt)/charsPerToken + maxOutputTokens
}

// Gate turns raw ledger numbers into an admission decision before any
// money is spent.
type Gate struct {
	ledger  *ledger.Ledger
	limits  models.CostLimits
	pricing map[string]models.ModelPricing
	now     func() time.Time
}

// New creates a Gate over the given ledger, limits, and per-backend
// pricing table.
func New(l *ledger.Ledger, limits models.CostLimits, pricing map[string]models.ModelPricing) *Gate {
	return &Gate{ledger: l, limits: limits, pricing: pricing, now: time.Now}
}

// Check evaluates the three limit tiers against hypothetical
// post-request usage. It is a pure function over ledger snapshots:
// no side effects, callable repeatedly without cost. Reasons are
// ordered daily, episode, monthly.
func (g *Gate) Check(agent, model string, estimatedTokens int, episodeID string) models.AdmissionDecision {
	now := g.now()
	dailyTokens := g.ledger.Daily(ledger.DayKey(now)).TotalTokens
	episodeTokens := 0
	if episodeID != "" {
		episodeTokens = g.ledger.Episode(episodeID).TotalTokens
	}
	monthlyCost := g.ledger.Monthly(ledger.MonthKey(now)).TotalCostUSD

	// Input pricing stands in for blended input/output pricing here.
	// Conservative for every observed pricing table (input cheaper
	// than output) though not universally guaranteed.
	estimatedCost := float64(estimatedTokens) * g.pricing[model].InputCostPerToken

	d := models.AdmissionDecision{
		Allowed:          true,
		EstimatedCostUSD: estimatedCost,
		CurrentUsage: models.UsageSnapshot{
			DailyTokens:    dailyTokens,
			EpisodeTokens:  episodeTokens,
			MonthlyCostUSD: monthlyCost,
		},
		Limits: g.limits,
	}

	if dailyTokens+estimatedTokens > g.limits.DailyTokenLimit {
		d.Allowed = false
		d.Reasons = append(d.Reasons, fmt.Sprintf(
			"Daily token limit would be exceeded: %d > %d",
			dailyTokens+estimatedTokens, g.limits.DailyTokenLimit))
	}
	if episodeID != "" && episodeTokens+estimatedTokens > g.limits.EpisodeTokenLimit {
		d.Allowed = false
		d.Reasons = append(d.Reasons, fmt.Sprintf(
			"Episode token limit would be exceeded: %d > %d",
			episodeTokens+estimatedTokens, g.limits.EpisodeTokenLimit))
	}
	if monthlyCost+estimatedCost > g.limits.MonthlyBudgetUSD {
		d.Allowed = false
		d.Reasons = append(d.Reasons, fmt.Sprintf(
			"Monthly budget would be exceeded: $%.2f > $%.2f",
			monthlyCost+estimatedCost, g.limits.MonthlyBudgetUSD))
	}

	return d
}
