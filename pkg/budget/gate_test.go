package budget

import (
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/podforge-ai/podforge/pkg/ledger"
	"github.com/podforge-ai/podforge/pkg/models"
)

const testModel = "anthropic/claude-3.5-sonnet"

func testPricing() map[string]models.ModelPricing {
	return map[string]models.ModelPricing{
		testModel: {InputCostPerToken: 0.000003, OutputCostPerToken: 0.000015},
	}
}

func newTestGate(t *testing.T, limits models.CostLimits, pricing map[string]models.ModelPricing) (*Gate, *ledger.Ledger) {
	t.Helper()
	store, err := ledger.NewFileStore(filepath.Join(t.TempDir(), "usage.json"))
	if err != nil {
		t.Fatal(err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	led := ledger.New(store, limits, logger)
	return New(led, limits, pricing), led
}

func TestEstimateTokens(t *testing.T) {
	got := EstimateTokens("aaaa", "bbbb", 100, 4)
	if got != 102 {
		t.Errorf("EstimateTokens = %d, want 102", got)
	}

	// Zero divisor falls back to the default heuristic.
	if got := EstimateTokens("aaaa", "bbbb", 100, 0); got != 102 {
		t.Errorf("EstimateTokens with zero divisor = %d, want 102", got)
	}
}

func TestCheckAllowedUnderLimits(t *testing.T) {
	g, _ := newTestGate(t, models.CostLimits{
		DailyTokenLimit:   50000,
		EpisodeTokenLimit: 25000,
		MonthlyBudgetUSD:  100,
	}, testPricing())

	d := g.Check("content_agent", testModel, 1000, "ep-1")
	if !d.Allowed {
		t.Fatalf("expected allowed, got reasons %v", d.Reasons)
	}
	if len(d.Reasons) != 0 {
		t.Errorf("expected no reasons, got %v", d.Reasons)
	}
}

func TestCheckDeniesDailyLimit(t *testing.T) {
	g, _ := newTestGate(t, models.CostLimits{
		DailyTokenLimit:   50000,
		EpisodeTokenLimit: 80000,
		MonthlyBudgetUSD:  100,
	}, testPricing())

	d := g.Check("content_agent", testModel, 60000, "")
	if d.Allowed {
		t.Fatal("expected denial")
	}
	if len(d.Reasons) != 1 {
		t.Fatalf("expected 1 reason, got %v", d.Reasons)
	}
	if want := "Daily token limit would be exceeded: 60000 > 50000"; d.Reasons[0] != want {
		t.Errorf("reason = %q, want %q", d.Reasons[0], want)
	}
}

func TestCheckCountsExistingUsage(t *testing.T) {
	limits := models.CostLimits{
		DailyTokenLimit:   50000,
		EpisodeTokenLimit: 25000,
		MonthlyBudgetUSD:  100,
	}
	g, led := newTestGate(t, limits, testPricing())

	led.Record("content_agent", 30000, 15000, "ep-1", testPricing()[testModel])

	// 45000 used today; 10000 more crosses the daily line.
	d := g.Check("content_agent", testModel, 10000, "")
	if d.Allowed {
		t.Fatal("expected denial")
	}
	if !strings.Contains(d.Reasons[0], "Daily token limit") {
		t.Errorf("reason = %q, want daily limit reason", d.Reasons[0])
	}
	if d.CurrentUsage.DailyTokens != 45000 {
		t.Errorf("snapshot daily tokens = %d, want 45000", d.CurrentUsage.DailyTokens)
	}
}

func TestEpisodeLimitSkippedWithoutEpisode(t *testing.T) {
	limits := models.CostLimits{
		DailyTokenLimit:   50000,
		EpisodeTokenLimit: 10000,
		MonthlyBudgetUSD:  100,
	}
	g, _ := newTestGate(t, limits, testPricing())

	if d := g.Check("content_agent", testModel, 20000, "ep-1"); d.Allowed {
		t.Error("expected episode limit denial with episode ID")
	}
	if d := g.Check("content_agent", testModel, 20000, ""); !d.Allowed {
		t.Errorf("expected allowed without episode ID, got %v", d.Reasons)
	}
}

func TestReasonsOrderedDailyEpisodeMonthly(t *testing.T) {
	limits := models.CostLimits{
		DailyTokenLimit:   100,
		EpisodeTokenLimit: 50,
		MonthlyBudgetUSD:  10,
	}
	pricing := map[string]models.ModelPricing{
		testModel: {InputCostPerToken: 1},
	}
	g, _ := newTestGate(t, limits, pricing)

	d := g.Check("content_agent", testModel, 200, "ep-1")
	if d.Allowed {
		t.Fatal("expected denial")
	}
	if len(d.Reasons) != 3 {
		t.Fatalf("expected 3 reasons, got %v", d.Reasons)
	}
	for i, prefix := range []string{"Daily", "Episode", "Monthly"} {
		if !strings.HasPrefix(d.Reasons[i], prefix) {
			t.Errorf("reason %d = %q, want prefix %q", i, d.Reasons[i], prefix)
		}
	}
}

func TestCheckHasNoSideEffects(t *testing.T) {
	g, led := newTestGate(t, models.CostLimits{
		DailyTokenLimit:   50000,
		EpisodeTokenLimit: 25000,
		MonthlyBudgetUSD:  100,
	}, testPricing())

	for i := 0; i < 5; i++ {
		g.Check("content_agent", testModel, 1000, "ep-1")
	}
	if got := led.Episode("ep-1").TotalTokens; got != 0 {
		t.Errorf("check recorded %d tokens", got)
	}
}

func TestExceededErrorUnwrapsSentinel(t *testing.T) {
	err := &ExceededError{Agent: "content_agent", Reasons: []string{"Daily token limit would be exceeded: 2 > 1"}}
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Error("ExceededError does not unwrap to ErrBudgetExceeded")
	}
	if !strings.Contains(err.Error(), "content_agent") {
		t.Errorf("error message %q missing agent", err.Error())
	}
}
