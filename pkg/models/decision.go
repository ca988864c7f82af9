package models

import "time"

// DecisionRecord is one audited pipeline decision (a scheduling action,
// a retry outcome, a fallback taken) with its context.
type DecisionRecord struct {
	ID        string         `json:"id"`
	Agent     string         `json:"agent"`
	Type      string         `json:"decision_type"`
	Context   map[string]any `json:"context,omitempty"`
	Outcome   string         `json:"outcome"`
	EpisodeID string         `json:"episode_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// DecisionQueryOpts specifies filters for querying decision records.
type DecisionQueryOpts struct {
	Agent     string
	Type      string
	EpisodeID string
	Since     time.Time
	Limit     int
}

// DecisionStat holds aggregate decision counts for an agent/day combination.
type DecisionStat struct {
	Agent string
	Day   string
	Count int
}
