package ledger

import (
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/podforge-ai/podforge/pkg/models"
)

const (
	// retentionDays is how long day-scoped records are kept.
	retentionDays = 31
	// maxEpisodes is how many episode records survive pruning.
	maxEpisodes = 50
	// warnFraction is the advisory warning threshold against each limit.
	warnFraction = 0.8
)

// Ledger maintains durable token/cost counters over three scopes:
// daily, per-episode, and monthly. Recording never fails; persistence
// errors are logged so usage tracking cannot block the pipeline.
type Ledger struct {
	mu     sync.Mutex
	store  Store
	limits models.CostLimits
	logger *slog.Logger
	now    func() time.Time
	doc    *models.UsageDocument
}

// New loads the usage document from the store and prunes stale
// records. A load failure starts from an empty document.
func New(store Store, limits models.CostLimits, logger *slog.Logger) *Ledger {
	l := &Ledger{
		store:  store,
		limits: limits,
		logger: logger,
		now:    time.Now,
	}

	doc, err := store.Load()
	if err != nil {
		l.logger.Error("usage load failed, starting empty", "error", err)
		doc = models.NewUsageDocument()
	}
	l.doc = doc
	l.prune()
	return l
}

// DayKey formats t as a daily scope key.
func DayKey(t time.Time) string { return t.Format("2006-01-02") }

// MonthKey formats t as a monthly scope key.
func MonthKey(t time.Time) string { return t.Format("2006-01") }

// prune drops day records older than the retention window and keeps
// only the most recently timestamped episode records.
func (l *Ledger) prune() {
	cutoff := DayKey(l.now().AddDate(0, 0, -retentionDays))
	for day := range l.doc.Daily {
		if day < cutoff {
			delete(l.doc.Daily, day)
		}
	}

	if len(l.doc.Episodes) <= maxEpisodes {
		return
	}
	ids := make([]string, 0, len(l.doc.Episodes))
	for id := range l.doc.Episodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := l.doc.Episodes[ids[i]], l.doc.Episodes[ids[j]]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids[maxEpisodes:] {
		delete(l.doc.Episodes, id)
	}
}

// Daily returns the usage record for a day key, zero-valued if absent.
func (l *Ledger) Daily(day string) models.UsageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return snapshot(l.doc.Daily[day])
}

// Episode returns the usage record for an episode, zero-valued if absent.
func (l *Ledger) Episode(id string) models.UsageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return snapshot(l.doc.Episodes[id])
}

// Monthly returns the usage record for a month key, zero-valued if absent.
func (l *Ledger) Monthly(month string) models.UsageRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return snapshot(l.doc.Monthly[month])
}

func snapshot(r *models.UsageRecord) models.UsageRecord {
	if r == nil {
		return models.UsageRecord{}
	}
	out := *r
	out.Agents = make(map[string]models.AgentUsage, len(r.Agents))
	for k, v := range r.Agents {
		out.Agents[k] = v
	}
	return out
}

// Record adds a completed request's true token counts to the day,
// episode (when episodeID is non-empty), and month records, then
// persists synchronously. It never returns an error.
func (l *Ledger) Record(agent string, inputTokens, outputTokens int, episodeID string, pricing models.ModelPricing) {
	cost := float64(inputTokens)*pricing.InputCostPerToken +
		float64(outputTokens)*pricing.OutputCostPerToken
	tokens := inputTokens + outputTokens
	now := l.now()

	l.mu.Lock()
	l.bump(l.doc.Daily, DayKey(now), agent, tokens, cost, now)
	if episodeID != "" {
		l.bump(l.doc.Episodes, episodeID, agent, tokens, cost, now)
	}
	l.bump(l.doc.Monthly, MonthKey(now), agent, tokens, cost, now)
	l.doc.LastUpdated = now

	if err := l.store.Save(l.doc); err != nil {
		l.logger.Error("usage save failed", "agent", agent, "error", err)
	}
	daily := l.doc.Daily[DayKey(now)].TotalTokens
	monthly := l.doc.Monthly[MonthKey(now)].TotalCostUSD
	l.mu.Unlock()

	l.logger.Info("api usage recorded",
		"agent", agent,
		"episode_id", episodeID,
		"tokens", tokens,
		"cost_usd", cost,
	)
	l.warn(agent, daily, monthly)
}

func (l *Ledger) bump(m map[string]*models.UsageRecord, key, agent string, tokens int, cost float64, now time.Time) {
	rec := m[key]
	if rec == nil {
		rec = &models.UsageRecord{
			Agents:    make(map[string]models.AgentUsage),
			Timestamp: now,
		}
		m[key] = rec
	}
	rec.TotalTokens += tokens
	rec.TotalCostUSD += cost
	rec.Requests++

	au := rec.Agents[agent]
	au.Tokens += tokens
	au.CostUSD += cost
	au.Requests++
	rec.Agents[agent] = au
}

// warn logs advisory warnings when usage approaches a limit.
func (l *Ledger) warn(agent string, dailyTokens int, monthlyCost float64) {
	if l.limits.DailyTokenLimit > 0 && float64(dailyTokens) > float64(l.limits.DailyTokenLimit)*warnFraction {
		l.logger.Warn("approaching daily token limit",
			"agent", agent,
			"current_tokens", dailyTokens,
			"limit", l.limits.DailyTokenLimit,
		)
	}
	if l.limits.MonthlyBudgetUSD > 0 && monthlyCost > l.limits.MonthlyBudgetUSD*warnFraction {
		l.logger.Warn("approaching monthly budget",
			"agent", agent,
			"current_cost_usd", monthlyCost,
			"budget_usd", l.limits.MonthlyBudgetUSD,
		)
	}
}

// Summary returns today's and this month's usage plus the five most
// recent episodes.
func (l *Ledger) Summary() models.UsageSummary {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	daily := l.doc.Daily[DayKey(now)]
	if daily == nil {
		daily = &models.UsageRecord{}
	}
	monthly := l.doc.Monthly[MonthKey(now)]
	if monthly == nil {
		monthly = &models.UsageRecord{}
	}

	s := models.UsageSummary{
		DailyTokensUsed:      daily.TotalTokens,
		DailyTokenLimit:      l.limits.DailyTokenLimit,
		DailyTokensRemaining: max(0, l.limits.DailyTokenLimit-daily.TotalTokens),
		DailyCostUSD:         daily.TotalCostUSD,
		DailyRequests:        daily.Requests,
		MonthlyCostUSD:       monthly.TotalCostUSD,
		MonthlyBudgetUSD:     l.limits.MonthlyBudgetUSD,
		MonthlyRemainingUSD:  maxFloat(0, l.limits.MonthlyBudgetUSD-monthly.TotalCostUSD),
		MonthlyTokens:        monthly.TotalTokens,
		MonthlyRequests:      monthly.Requests,
	}

	ids := make([]string, 0, len(l.doc.Episodes))
	for id := range l.doc.Episodes {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		a, b := l.doc.Episodes[ids[i]], l.doc.Episodes[ids[j]]
		if !a.Timestamp.Equal(b.Timestamp) {
			return a.Timestamp.After(b.Timestamp)
		}
		return ids[i] < ids[j]
	})
	for _, id := range ids {
		if len(s.RecentEpisodes) >= 5 {
			break
		}
		rec := l.doc.Episodes[id]
		s.RecentEpisodes = append(s.RecentEpisodes, models.EpisodeUsage{
			EpisodeID: id,
			Tokens:    rec.TotalTokens,
			CostUSD:   rec.TotalCostUSD,
		})
	}
	return s
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
