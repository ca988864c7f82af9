package agent

import (
	"fmt"
	"io"
	"log/slog"
	"testing"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func approx(got, want float64) bool {
	d := got - want
	if d < 0 {
		d = -d
	}
	return d < 1e-9
}

func TestRecordDecisionBounded(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 150; i++ {
		m.RecordDecision("test_decision", map[string]any{"i": i}, fmt.Sprintf("outcome %d", i))
	}

	if len(m.Decisions) != maxDecisions {
		t.Fatalf("decisions = %d, want %d", len(m.Decisions), maxDecisions)
	}
	// Oldest dropped first.
	if m.Decisions[0].Outcome != "outcome 50" {
		t.Errorf("oldest kept = %q, want outcome 50", m.Decisions[0].Outcome)
	}
	if m.Decisions[len(m.Decisions)-1].Outcome != "outcome 149" {
		t.Errorf("newest kept = %q, want outcome 149", m.Decisions[len(m.Decisions)-1].Outcome)
	}
}

func TestPatternsBounded(t *testing.T) {
	m := NewMemory()
	for i := 0; i < 80; i++ {
		m.LearnFromSuccess(map[string]any{"i": i})
		m.LearnFromFailure(map[string]any{"i": i})
	}

	if len(m.SuccessPatterns) != maxPatterns {
		t.Errorf("success patterns = %d, want %d", len(m.SuccessPatterns), maxPatterns)
	}
	if len(m.FailurePatterns) != maxPatterns {
		t.Errorf("failure patterns = %d, want %d", len(m.FailurePatterns), maxPatterns)
	}
	if got := m.SuccessPatterns[0]["i"]; got != 30 {
		t.Errorf("oldest success pattern i = %v, want 30", got)
	}
}

func TestSetMetric(t *testing.T) {
	m := NewMemory()
	m.SetMetric("avg_quality", 0.85)
	if m.Metrics["avg_quality"] != 0.85 {
		t.Errorf("metric = %v, want 0.85", m.Metrics["avg_quality"])
	}
	if m.LastUpdated.IsZero() {
		t.Error("LastUpdated not set")
	}
}

func TestMemoryStoreRoundtrip(t *testing.T) {
	store := NewMemoryStore(t.TempDir(), discardLogger())

	m := NewMemory()
	m.RecordDecision("content_generation_completed", map[string]any{"pieces": 4}, "done")
	m.SetMetric("avg_pieces_per_insight", 4)
	store.Save("content_agent", m)

	loaded := store.Load("content_agent")
	if len(loaded.Decisions) != 1 {
		t.Fatalf("loaded decisions = %d, want 1", len(loaded.Decisions))
	}
	if loaded.Decisions[0].Outcome != "done" {
		t.Errorf("outcome = %q, want done", loaded.Decisions[0].Outcome)
	}
	if loaded.Metrics["avg_pieces_per_insight"] != 4 {
		t.Errorf("metric = %v, want 4", loaded.Metrics["avg_pieces_per_insight"])
	}
}

func TestMemoryStoreMissingFileIsFresh(t *testing.T) {
	store := NewMemoryStore(t.TempDir(), discardLogger())

	m := store.Load("never_saved")
	if m == nil {
		t.Fatal("expected fresh memory")
	}
	if len(m.Decisions) != 0 || m.Metrics == nil {
		t.Error("fresh memory not empty")
	}
}
