package models

import "time"

// ContentKind distinguishes multi-part threads from single posts.
type ContentKind string

const (
	KindThread     ContentKind = "thread"
	KindSinglePost ContentKind = "single_post"
)

// Priority controls scheduling order. Threads are high priority and
// claim slots before single posts.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
)

// ContentItem is one piece of content awaiting publication. The payload
// is opaque to the scheduler; only a publish time is ever assigned.
type ContentItem struct {
	ID          string            `json:"id"`
	Kind        ContentKind       `json:"kind"`
	Priority    Priority          `json:"priority"`
	Subtype     string            `json:"subtype,omitempty"`
	Text        string            `json:"text"`
	ThreadParts []string          `json:"thread_parts,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// ScheduleStatus is the lifecycle state of a scheduled item.
type ScheduleStatus string

const (
	StatusScheduled ScheduleStatus = "scheduled"
	StatusFailed    ScheduleStatus = "failed"
)

// ScheduledItem pairs a content item with its assigned publish time.
// ExternalID is set by the publishing capability on success.
type ScheduledItem struct {
	Item        ContentItem    `json:"item"`
	PublishTime time.Time      `json:"publish_time"`
	Status      ScheduleStatus `json:"status"`
	ExternalID  string         `json:"external_id,omitempty"`
	Err         string         `json:"error,omitempty"`
}

// BatchResult reports the outcome of scheduling one batch of content.
type BatchResult struct {
	EpisodeID string          `json:"episode_id"`
	Scheduled []ScheduledItem `json:"scheduled"`
	Failed    []ScheduledItem `json:"failed"`
	Status    string          `json:"status"`
}

// RetryResult reports one pass over the publishing retry queue.
type RetryResult struct {
	Retried     int             `json:"retried"`
	Successful  []ScheduledItem `json:"successful"`
	StillFailed []ScheduledItem `json:"still_failed"`
	Status      string          `json:"status"`
}
