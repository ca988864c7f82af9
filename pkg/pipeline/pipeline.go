package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/podforge-ai/podforge/pkg/agent"
	"github.com/podforge-ai/podforge/pkg/budget"
	"github.com/podforge-ai/podforge/pkg/models"
	"github.com/podforge-ai/podforge/pkg/publish"
	"github.com/podforge-ai/podforge/pkg/transcript"
)

// DecisionSink receives pipeline-level decision records.
type DecisionSink interface {
	Record(ctx context.Context, rec models.DecisionRecord) error
}

// InsightResult is the per-insight outcome within a summary.
type InsightResult struct {
	InsightID      string  `json:"insight_id"`
	Title          string  `json:"title"`
	Status         string  `json:"status"`
	Error          string  `json:"error,omitempty"`
	ResearchScore  float64 `json:"research_score"`
	PiecesApproved int     `json:"pieces_approved"`
	Scheduled      int     `json:"scheduled"`
	Failed         int     `json:"failed"`
}

// Summary is the result of processing one transcript end to end.
type Summary struct {
	EpisodeID         string          `json:"episode_id"`
	TranscriptWords   int             `json:"transcript_words"`
	InsightsExtracted int             `json:"insights_extracted"`
	InsightsProcessed int             `json:"insights_processed"`
	Results           []InsightResult `json:"results"`
	PendingRetries    int             `json:"pending_retries"`
	CompletedAt       time.Time       `json:"completed_at"`
}

// Orchestrator sequences insight extraction, research, content
// generation, and publishing for one episode at a time. Execution is
// strictly sequential: each insight is processed fully before the
// next, and cancellation is honored only between insights.
type Orchestrator struct {
	insights    *agent.InsightAgent
	research    *agent.ResearchAgent
	content     *agent.ContentAgent
	coordinator *publish.Coordinator
	sink        DecisionSink
	memories    *agent.MemoryStore
	dataDir     string
	logger      *slog.Logger
}

// New creates an Orchestrator. The sink may be nil.
func New(insights *agent.InsightAgent, research *agent.ResearchAgent, content *agent.ContentAgent, coordinator *publish.Coordinator, sink DecisionSink, memories *agent.MemoryStore, dataDir string, logger *slog.Logger) *Orchestrator {
	return &Orchestrator{
		insights:    insights,
		research:    research,
		content:     content,
		coordinator: coordinator,
		sink:        sink,
		memories:    memories,
		dataDir:     dataDir,
		logger:      logger,
	}
}

// ProcessTranscript runs the full pipeline for one transcript file.
// A failed insight is recorded and skipped; only transcript loading
// and insight extraction (including its budget denial) are terminal
// for the episode.
func (o *Orchestrator) ProcessTranscript(ctx context.Context, path string) (*Summary, error) {
	tr, err := transcript.Load(path)
	if err != nil {
		return nil, err
	}
	episodeID := transcript.EpisodeID(path)

	o.record(ctx, "transcript_processing", map[string]any{
		"file":       path,
		"word_count": tr.WordCount,
	}, "started", episodeID)

	extracted, err := o.insights.Extract(ctx, tr.Content, episodeID)
	if err != nil {
		o.record(ctx, "transcript_processing", map[string]any{
			"file":  path,
			"error": err.Error(),
		}, "failed", episodeID)
		if errors.Is(err, budget.ErrBudgetExceeded) {
			return nil, fmt.Errorf("episode %s blocked by budget: %w", episodeID, err)
		}
		return nil, fmt.Errorf("extract insights for %s: %w", episodeID, err)
	}

	ranked := o.insights.Prioritize(ctx, extracted, episodeID)
	qualified := o.insights.Qualify(ranked)

	o.record(ctx, "insights_filtered", map[string]any{
		"total_extracted": len(extracted),
		"qualified":       len(qualified),
	}, "ready_for_content_creation", episodeID)

	summary := &Summary{
		EpisodeID:         episodeID,
		TranscriptWords:   tr.WordCount,
		InsightsExtracted: len(extracted),
		InsightsProcessed: len(qualified),
	}

	for _, insight := range qualified {
		// Cancellation point: abort between insights only, never
		// mid-insight.
		if err := ctx.Err(); err != nil {
			o.record(ctx, "transcript_processing", map[string]any{
				"episode_id": episodeID,
			}, "canceled", episodeID)
			return summary, err
		}

		summary.Results = append(summary.Results, o.processInsight(ctx, insight, episodeID))
	}

	if o.coordinator.PendingRetries() > 0 {
		retry := o.coordinator.RetryPending(ctx)
		o.logger.Info("retry pass finished",
			"successful", len(retry.Successful),
			"still_failed", len(retry.StillFailed),
		)
	}
	summary.PendingRetries = o.coordinator.PendingRetries()
	summary.CompletedAt = time.Now()

	o.saveSummary(summary)
	o.record(ctx, "transcript_processing", map[string]any{
		"episode_id":     episodeID,
		"insights_count": len(qualified),
	}, "completed", episodeID)

	return summary, nil
}

// processInsight runs research, content generation, and scheduling for
// one insight. Failures here degrade to a failed result and never
// abort the batch.
func (o *Orchestrator) processInsight(ctx context.Context, insight models.Insight, episodeID string) InsightResult {
	result := InsightResult{InsightID: insight.ID, Title: insight.Title}

	research := o.research.Research(ctx, insight, agent.AngleFor(insight), episodeID)
	result.ResearchScore = research.QualityScore

	pieces, err := o.content.Generate(ctx, insight, research, episodeID)
	if err != nil {
		o.logger.Error("insight processing failed",
			"insight_id", insight.ID,
			"error", err,
		)
		result.Status = "failed"
		result.Error = err.Error()
		return result
	}
	result.PiecesApproved = len(pieces)

	batch := o.coordinator.ScheduleBatch(ctx, pieces, episodeID)
	result.Scheduled = len(batch.Scheduled)
	result.Failed = len(batch.Failed)
	result.Status = "completed"
	return result
}

// SaveMemories persists the shared agent memories after a run.
func (o *Orchestrator) SaveMemories(insightMem, researchMem, contentMem, publishMem *agent.Memory) {
	o.memories.Save("cmo_orchestrator", insightMem)
	o.memories.Save("research_agent", researchMem)
	o.memories.Save("content_agent", contentMem)
	o.memories.Save("publishing_agent", publishMem)
}

func (o *Orchestrator) saveSummary(summary *Summary) {
	dir := filepath.Join(o.dataDir, "episodes")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		o.logger.Warn("summary dir create failed", "error", err)
		return
	}
	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		o.logger.Warn("summary encode failed", "error", err)
		return
	}
	path := filepath.Join(dir, summary.EpisodeID+"_summary.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		o.logger.Warn("summary save failed", "path", path, "error", err)
	}
}

func (o *Orchestrator) record(ctx context.Context, decisionType string, context map[string]any, outcome, episodeID string) {
	o.logger.Info("decision",
		"agent", "cmo_orchestrator",
		"decision_type", decisionType,
		"outcome", outcome,
	)
	if o.sink == nil {
		return
	}
	err := o.sink.Record(ctx, models.DecisionRecord{
		Agent:     "cmo_orchestrator",
		Type:      decisionType,
		Context:   context,
		Outcome:   outcome,
		EpisodeID: episodeID,
	})
	if err != nil {
		o.logger.Warn("decision record failed", "error", err)
	}
}
