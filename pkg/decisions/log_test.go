package decisions

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/podforge-ai/podforge/pkg/models"
)

func setup(t *testing.T) (*Log, context.Context) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "decisions_test.db")
	l, err := Open(dbPath, 90)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { l.Close() })
	return l, context.Background()
}

func TestRecordAndQuery(t *testing.T) {
	l, ctx := setup(t)

	err := l.Record(ctx, models.DecisionRecord{
		Agent:     "publishing_agent",
		Type:      "content_scheduled",
		Context:   map[string]any{"content_id": "c1"},
		Outcome:   "scheduled_successfully",
		EpisodeID: "ep-1",
	})
	if err != nil {
		t.Fatal(err)
	}

	recs, err := l.Query(ctx, models.DecisionQueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Fatalf("expected 1 record, got %d", len(recs))
	}
	if recs[0].ID == "" {
		t.Error("record missing generated ID")
	}
	if recs[0].Context["content_id"] != "c1" {
		t.Errorf("context = %v, want content_id c1", recs[0].Context)
	}
	if recs[0].EpisodeID != "ep-1" {
		t.Errorf("episode_id = %q, want ep-1", recs[0].EpisodeID)
	}
}

func TestQueryFilters(t *testing.T) {
	l, ctx := setup(t)

	seed := []models.DecisionRecord{
		{Agent: "publishing_agent", Type: "content_scheduled", Outcome: "ok", EpisodeID: "ep-1"},
		{Agent: "publishing_agent", Type: "content_publish_failed", Outcome: "queued", EpisodeID: "ep-1"},
		{Agent: "cmo_orchestrator", Type: "transcript_processing", Outcome: "completed", EpisodeID: "ep-2"},
	}
	for _, rec := range seed {
		if err := l.Record(ctx, rec); err != nil {
			t.Fatal(err)
		}
	}

	byAgent, err := l.Query(ctx, models.DecisionQueryOpts{Agent: "publishing_agent"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byAgent) != 2 {
		t.Errorf("agent filter returned %d records, want 2", len(byAgent))
	}

	byType, err := l.Query(ctx, models.DecisionQueryOpts{Type: "content_publish_failed"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byType) != 1 {
		t.Errorf("type filter returned %d records, want 1", len(byType))
	}

	byEpisode, err := l.Query(ctx, models.DecisionQueryOpts{EpisodeID: "ep-2"})
	if err != nil {
		t.Fatal(err)
	}
	if len(byEpisode) != 1 {
		t.Errorf("episode filter returned %d records, want 1", len(byEpisode))
	}

	limited, err := l.Query(ctx, models.DecisionQueryOpts{Limit: 2})
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limit 2 returned %d records", len(limited))
	}
}

func TestQuerySince(t *testing.T) {
	l, ctx := setup(t)

	old := models.DecisionRecord{
		Agent: "cmo_orchestrator", Type: "transcript_processing", Outcome: "completed",
		CreatedAt: time.Now().UTC().AddDate(0, 0, -10),
	}
	recent := models.DecisionRecord{
		Agent: "cmo_orchestrator", Type: "transcript_processing", Outcome: "completed",
	}
	if err := l.Record(ctx, old); err != nil {
		t.Fatal(err)
	}
	if err := l.Record(ctx, recent); err != nil {
		t.Fatal(err)
	}

	recs, err := l.Query(ctx, models.DecisionQueryOpts{Since: time.Now().UTC().AddDate(0, 0, -1)})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 {
		t.Errorf("since filter returned %d records, want 1", len(recs))
	}
}

func TestStats(t *testing.T) {
	l, ctx := setup(t)

	for i := 0; i < 3; i++ {
		if err := l.Record(ctx, models.DecisionRecord{
			Agent: "content_agent", Type: "content_generation_completed", Outcome: "done",
		}); err != nil {
			t.Fatal(err)
		}
	}

	stats, err := l.Stats(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(stats) != 1 {
		t.Fatalf("expected 1 stat row, got %d", len(stats))
	}
	if stats[0].Agent != "content_agent" || stats[0].Count != 3 {
		t.Errorf("stat = %+v, want content_agent with count 3", stats[0])
	}
}

func TestCleanup(t *testing.T) {
	l, ctx := setup(t)

	if err := l.Record(ctx, models.DecisionRecord{
		Agent: "content_agent", Type: "old_decision", Outcome: "done",
		CreatedAt: time.Now().UTC().AddDate(0, 0, -120),
	}); err != nil {
		t.Fatal(err)
	}
	if err := l.Record(ctx, models.DecisionRecord{
		Agent: "content_agent", Type: "fresh_decision", Outcome: "done",
	}); err != nil {
		t.Fatal(err)
	}

	deleted, err := l.Cleanup(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if deleted != 1 {
		t.Errorf("cleanup deleted %d rows, want 1", deleted)
	}

	recs, err := l.Query(ctx, models.DecisionQueryOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(recs) != 1 || recs[0].Type != "fresh_decision" {
		t.Errorf("surviving records = %+v, want only fresh_decision", recs)
	}
}
