package publish

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/podforge-ai/podforge/pkg/models"
	"github.com/podforge-ai/podforge/pkg/schedule"
)

// ErrNoSlots signals that no admissible publish slot exists right now.
// Distinct from a publish failure: the retry queue is temporarily
// unsatisfiable, not broken.
var ErrNoSlots = errors.New("no available publish slots")

// agentName labels the coordinator's decision records.
const agentName = "publishing_agent"

// successThreshold is the batch success rate at which a learn-from-
// success signal fires.
const successThreshold = 0.8

// Publisher is the external publishing capability.
type Publisher interface {
	Publish(ctx context.Context, item models.ContentItem, at time.Time) (externalID string, err error)
}

// DecisionSink receives decision records for audit. *decisions.Log
// satisfies it.
type DecisionSink interface {
	Record(ctx context.Context, rec models.DecisionRecord) error
}

// Coordinator drives planner output through the publishing capability,
// tracks per-item outcomes, and owns the bounded retry queue.
type Coordinator struct {
	planner   *schedule.Planner
	publisher Publisher
	sink      DecisionSink
	logger    *slog.Logger
	onSuccess func(pattern map[string]any)

	retryQueue []models.ScheduledItem
}

// New creates a Coordinator. The sink may be nil.
func New(planner *schedule.Planner, publisher Publisher, sink DecisionSink, logger *slog.Logger) *Coordinator {
	return &Coordinator{
		planner:   planner,
		publisher: publisher,
		sink:      sink,
		logger:    logger,
	}
}

// OnSuccess registers an advisory callback fired when a batch meets
// the success-rate threshold.
func (c *Coordinator) OnSuccess(fn func(pattern map[string]any)) {
	c.onSuccess = fn
}

// PendingRetries reports how many items are awaiting a retry.
func (c *Coordinator) PendingRetries() int {
	return len(c.retryQueue)
}

// ScheduleBatch plans slots for the given items and publishes each
// assignment. A failure on one item never stops the rest; failed and
// unplaceable items join the retry queue.
func (c *Coordinator) ScheduleBatch(ctx context.Context, items []models.ContentItem, episodeID string) models.BatchResult {
	result := models.BatchResult{EpisodeID: episodeID}

	if len(items) == 0 {
		result.Status = "no_content_to_schedule"
		return result
	}

	c.record(ctx, "publishing_started", map[string]any{
		"episode_id":   episodeID,
		"pieces_count": len(items),
	}, "beginning_content_scheduling", episodeID)

	assignments := c.planner.Assign(items, c.planner.GenerateSlots())

	assigned := make(map[string]bool, len(assignments))
	for _, a := range assignments {
		assigned[a.Item.ID] = true
	}

	for _, a := range assignments {
		id, err := c.publisher.Publish(ctx, a.Item, a.PublishTime)
		if err != nil {
			c.logger.Error("publish failed",
				"agent", agentName,
				"content_id", a.Item.ID,
				"error", err,
			)
			a.Status = models.StatusFailed
			a.Err = err.Error()
			result.Failed = append(result.Failed, a)
			c.retryQueue = append(c.retryQueue, a)
			c.record(ctx, "content_publish_failed", map[string]any{
				"content_id":   a.Item.ID,
				"content_kind": string(a.Item.Kind),
			}, "queued_for_retry", episodeID)
			continue
		}
		a.Status = models.StatusScheduled
		a.ExternalID = id
		result.Scheduled = append(result.Scheduled, a)
		c.record(ctx, "content_scheduled", map[string]any{
			"content_id":   a.Item.ID,
			"content_kind": string(a.Item.Kind),
			"publish_time": a.PublishTime.Format(time.RFC3339),
		}, "scheduled_successfully", episodeID)
	}

	// Items the planner could not place need a future retry round.
	for _, item := range items {
		if assigned[item.ID] {
			continue
		}
		entry := models.ScheduledItem{
			Item:   item,
			Status: models.StatusFailed,
			Err:    ErrNoSlots.Error(),
		}
		result.Failed = append(result.Failed, entry)
		c.retryQueue = append(c.retryQueue, entry)
	}

	result.Status = "completed"

	c.record(ctx, "publishing_completed", map[string]any{
		"episode_id": episodeID,
		"scheduled":  len(result.Scheduled),
		"failed":     len(result.Failed),
	}, "content_scheduling_finished", episodeID)

	if c.onSuccess != nil && float64(len(result.Scheduled)) >= successThreshold*float64(len(items)) {
		c.onSuccess(map[string]any{
			"episode_id":          episodeID,
			"scheduled_count":     len(result.Scheduled),
			"total_count":         len(items),
			"scheduling_strategy": "optimal_timing",
			"success_rate":        float64(len(result.Scheduled)) / float64(len(items)),
		})
	}

	return result
}

// RetryPending makes one forward-progress pass over the retry queue:
// each entry gets a fresh slot list and one publish attempt. Entries
// that still fail, or for which no slot exists, stay queued. Safe to
// call repeatedly; it never blocks waiting for slots to appear.
func (c *Coordinator) RetryPending(ctx context.Context) models.RetryResult {
	result := models.RetryResult{}

	if len(c.retryQueue) == 0 {
		result.Status = "no_items_to_retry"
		return result
	}

	c.record(ctx, "retry_publications_started", map[string]any{
		"items_in_queue": len(c.retryQueue),
	}, "beginning_retry_process", "")

	// Snapshot so successes can be removed without disturbing iteration.
	pending := make([]models.ScheduledItem, len(c.retryQueue))
	copy(pending, c.retryQueue)

	succeeded := make(map[string]bool)
	for _, entry := range pending {
		slots := c.planner.GenerateSlots()
		if len(slots) == 0 {
			entry.Err = ErrNoSlots.Error()
			result.StillFailed = append(result.StillFailed, entry)
			continue
		}

		at := slots[0]
		id, err := c.publisher.Publish(ctx, entry.Item, at)
		if err != nil {
			entry.PublishTime = at
			entry.Err = err.Error()
			result.StillFailed = append(result.StillFailed, entry)
			continue
		}

		entry.PublishTime = at
		entry.Status = models.StatusScheduled
		entry.ExternalID = id
		entry.Err = ""
		result.Successful = append(result.Successful, entry)
		succeeded[entry.Item.ID] = true
	}

	if len(succeeded) > 0 {
		kept := c.retryQueue[:0]
		for _, entry := range c.retryQueue {
			if !succeeded[entry.Item.ID] {
				kept = append(kept, entry)
			}
		}
		c.retryQueue = kept
	}

	result.Retried = len(result.Successful) + len(result.StillFailed)
	result.Status = "completed"

	c.record(ctx, "retry_publications_completed", map[string]any{
		"successful_retries": len(result.Successful),
		"still_failed":       len(result.StillFailed),
	}, "retry_process_finished", "")

	return result
}

func (c *Coordinator) record(ctx context.Context, decisionType string, context map[string]any, outcome, episodeID string) {
	c.logger.Info("decision",
		"agent", agentName,
		"decision_type", decisionType,
		"outcome", outcome,
	)
	if c.sink == nil {
		return
	}
	err := c.sink.Record(ctx, models.DecisionRecord{
		Agent:     agentName,
		Type:      decisionType,
		Context:   context,
		Outcome:   outcome,
		EpisodeID: episodeID,
	})
	if err != nil {
		c.logger.Warn("decision record failed", "error", err)
	}
}
