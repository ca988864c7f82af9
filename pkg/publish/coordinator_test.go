package publish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/podforge-ai/podforge/pkg/config"
	"github.com/podforge-ai/podforge/pkg/models"
	"github.com/podforge-ai/podforge/pkg/schedule"
)

type fakePublisher struct {
	calls   int
	failIDs map[string]bool
	next    int
}

func (p *fakePublisher) Publish(_ context.Context, item models.ContentItem, _ time.Time) (string, error) {
	p.calls++
	if p.failIDs[item.ID] {
		return "", errors.New("upstream rejected post")
	}
	p.next++
	return fmt.Sprintf("ext-%d", p.next), nil
}

type recordingSink struct {
	types []string
}

func (s *recordingSink) Record(_ context.Context, rec models.DecisionRecord) error {
	s.types = append(s.types, rec.Type)
	return nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testPlanner(horizonDays int) *schedule.Planner {
	return schedule.New(config.PublishingConfig{
		PostsPerDay:           3,
		OptimalTimes:          []string{"09:00", "14:00", "18:00"},
		AvoidWeekends:         true,
		MinThreadSpacingHours: 48,
		HorizonDays:           horizonDays,
	})
}

func singleItems(n int) []models.ContentItem {
	items := make([]models.ContentItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, models.ContentItem{
			ID:   fmt.Sprintf("item-%d", i),
			Kind: models.KindSinglePost,
			Text: fmt.Sprintf("post %d", i),
		})
	}
	return items
}

func TestScheduleBatchEmpty(t *testing.T) {
	c := New(testPlanner(7), &fakePublisher{}, nil, testLogger())

	result := c.ScheduleBatch(context.Background(), nil, "ep-1")
	if result.Status != "no_content_to_schedule" {
		t.Errorf("status = %q, want no_content_to_schedule", result.Status)
	}
	if c.PendingRetries() != 0 {
		t.Errorf("pending retries = %d, want 0", c.PendingRetries())
	}
}

func TestScheduleBatchIsolatesFailures(t *testing.T) {
	pub := &fakePublisher{failIDs: map[string]bool{"item-1": true}}
	sink := &recordingSink{}
	c := New(testPlanner(7), pub, sink, testLogger())

	result := c.ScheduleBatch(context.Background(), singleItems(3), "ep-1")
	if len(result.Scheduled) != 2 {
		t.Errorf("scheduled = %d, want 2", len(result.Scheduled))
	}
	if len(result.Failed) != 1 {
		t.Errorf("failed = %d, want 1", len(result.Failed))
	}
	if c.PendingRetries() != 1 {
		t.Errorf("pending retries = %d, want 1", c.PendingRetries())
	}
	if result.Status != "completed" {
		t.Errorf("status = %q, want completed", result.Status)
	}

	var sawFailed bool
	for _, dt := range sink.types {
		if dt == "content_publish_failed" {
			sawFailed = true
		}
	}
	if !sawFailed {
		t.Error("no content_publish_failed decision recorded")
	}
}

func TestScheduleBatchNoSlots(t *testing.T) {
	// Zero horizon means no slots at all.
	c := New(testPlanner(0), &fakePublisher{}, nil, testLogger())

	result := c.ScheduleBatch(context.Background(), singleItems(2), "ep-1")
	if len(result.Scheduled) != 0 {
		t.Errorf("scheduled = %d, want 0", len(result.Scheduled))
	}
	if len(result.Failed) != 2 {
		t.Fatalf("failed = %d, want 2", len(result.Failed))
	}
	for _, f := range result.Failed {
		if f.Err != ErrNoSlots.Error() {
			t.Errorf("failure reason = %q, want %q", f.Err, ErrNoSlots.Error())
		}
	}
	if c.PendingRetries() != 2 {
		t.Errorf("pending retries = %d, want 2", c.PendingRetries())
	}
}

func TestRetryPendingEmptyQueue(t *testing.T) {
	c := New(testPlanner(7), &fakePublisher{}, nil, testLogger())

	result := c.RetryPending(context.Background())
	if result.Status != "no_items_to_retry" {
		t.Errorf("status = %q, want no_items_to_retry", result.Status)
	}
}

func TestRetryPendingRemovesSuccesses(t *testing.T) {
	pub := &fakePublisher{failIDs: map[string]bool{"item-0": true}}
	c := New(testPlanner(7), pub, nil, testLogger())

	c.ScheduleBatch(context.Background(), singleItems(1), "ep-1")
	if c.PendingRetries() != 1 {
		t.Fatalf("pending retries = %d, want 1", c.PendingRetries())
	}

	// The transient failure clears before the retry pass.
	pub.failIDs = nil

	result := c.RetryPending(context.Background())
	if len(result.Successful) != 1 {
		t.Errorf("successful = %d, want 1", len(result.Successful))
	}
	if result.Successful[0].ExternalID == "" {
		t.Error("retried item has no external ID")
	}
	if c.PendingRetries() != 0 {
		t.Errorf("pending retries after success = %d, want 0", c.PendingRetries())
	}

	again := c.RetryPending(context.Background())
	if again.Status != "no_items_to_retry" {
		t.Errorf("second pass status = %q, want no_items_to_retry", again.Status)
	}
}

func TestRetryPendingKeepsFailures(t *testing.T) {
	pub := &fakePublisher{failIDs: map[string]bool{"item-0": true}}
	c := New(testPlanner(7), pub, nil, testLogger())

	c.ScheduleBatch(context.Background(), singleItems(1), "ep-1")

	for i := 0; i < 2; i++ {
		result := c.RetryPending(context.Background())
		if len(result.StillFailed) != 1 {
			t.Fatalf("pass %d: still failed = %d, want 1", i, len(result.StillFailed))
		}
		if c.PendingRetries() != 1 {
			t.Fatalf("pass %d: pending retries = %d, want 1", i, c.PendingRetries())
		}
	}
}

func TestOnSuccessFiresAtThreshold(t *testing.T) {
	var pattern map[string]any
	c := New(testPlanner(7), &fakePublisher{}, nil, testLogger())
	c.OnSuccess(func(p map[string]any) { pattern = p })

	c.ScheduleBatch(context.Background(), singleItems(4), "ep-1")
	if pattern == nil {
		t.Fatal("success callback not fired on a clean batch")
	}
	if pattern["success_rate"] != 1.0 {
		t.Errorf("success_rate = %v, want 1.0", pattern["success_rate"])
	}
}

func TestOnSuccessSkippedBelowThreshold(t *testing.T) {
	fired := false
	pub := &fakePublisher{failIDs: map[string]bool{"item-0": true}}
	c := New(testPlanner(7), pub, nil, testLogger())
	c.OnSuccess(func(map[string]any) { fired = true })

	// 3 of 4 scheduled is 75%, under the 80% bar.
	c.ScheduleBatch(context.Background(), singleItems(4), "ep-1")
	if fired {
		t.Error("success callback fired below the threshold")
	}
}
