package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/podforge-ai/podforge/pkg/config"
	"github.com/podforge-ai/podforge/pkg/models"
)

const orchestratorName = "cmo_orchestrator"

// Generator is the budget-guarded text generation capability the
// agents delegate to. *router.Router satisfies it.
type Generator interface {
	Generate(ctx context.Context, req models.GenerationRequest) (string, error)
}

// InsightAgent extracts business insights from transcripts and ranks
// them for content creation.
type InsightAgent struct {
	router Generator
	memory *Memory
	logger *slog.Logger

	maxPerEpisode int
	minPriority   float64
}

// NewInsightAgent creates an InsightAgent.
func NewInsightAgent(router Generator, memory *Memory, cfg config.ContentConfig, logger *slog.Logger) *InsightAgent {
	return &InsightAgent{
		router:        router,
		memory:        memory,
		logger:        logger,
		maxPerEpisode: cfg.MaxPerEpisode,
		minPriority:   cfg.MinPriorityScore,
	}
}

// Extract pulls structured insights out of a transcript. Extraction is
// the one step with no deterministic fallback; its failure is terminal
// for the episode.
func (a *InsightAgent) Extract(ctx context.Context, transcriptText, episodeID string) ([]models.Insight, error) {
	response, err := a.router.Generate(ctx, models.GenerationRequest{
		TaskType:        "insight_extraction",
		SystemPrompt:    orchestratorSystemPrompt,
		UserPrompt:      fmt.Sprintf(insightExtractionPrompt, transcriptText),
		MaxOutputTokens: 3000,
		AgentName:       orchestratorName,
		EpisodeID:       episodeID,
	})
	if err != nil {
		return nil, err
	}

	insights, err := parseInsights(response)
	if err != nil {
		a.logger.Error("insight parse failed",
			"agent", orchestratorName, "error", err)
		return nil, fmt.Errorf("parse insight extraction response: %w", err)
	}

	valid := insights[:0]
	for i, insight := range insights {
		if !insight.Valid() {
			a.logger.Warn("skipping insight with invalid structure",
				"agent", orchestratorName, "index", i, "title", insight.Title)
			continue
		}
		if insight.ID == "" {
			insight.ID = fmt.Sprintf("%d", i+1)
		}
		insight.ID = fmt.Sprintf("insight_%d_%s", i+1, insight.ID)
		valid = append(valid, insight)
	}

	a.memory.RecordDecision("insight_extraction", map[string]any{
		"transcript_length": len(transcriptText),
		"insights_found":    len(valid),
	}, fmt.Sprintf("extracted %d valid insights", len(valid)))

	return valid, nil
}

func parseInsights(response string) ([]models.Insight, error) {
	cleaned := cleanFences(response)

	var insights []models.Insight
	if err := json.Unmarshal([]byte(cleaned), &insights); err == nil {
		return insights, nil
	}

	salvaged, ok := extractJSONArray(cleaned)
	if !ok {
		return nil, fmt.Errorf("no JSON array in response")
	}
	if err := json.Unmarshal([]byte(salvaged), &insights); err != nil {
		return nil, err
	}
	return insights, nil
}

// Prioritize ranks insights by content potential. When the model's
// ranking cannot be parsed, a deterministic fallback scoring takes
// over; prioritization never fails the episode.
func (a *InsightAgent) Prioritize(ctx context.Context, insights []models.Insight, episodeID string) []models.Insight {
	if len(insights) == 0 {
		return nil
	}

	encoded, err := json.MarshalIndent(insights, "", "  ")
	if err != nil {
		return fallbackPrioritize(insights)
	}

	response, err := a.router.Generate(ctx, models.GenerationRequest{
		TaskType:        "insight_prioritization",
		SystemPrompt:    orchestratorSystemPrompt,
		UserPrompt:      fmt.Sprintf(insightPrioritizationPrompt, encoded),
		MaxOutputTokens: 4000,
		AgentName:       orchestratorName,
		EpisodeID:       episodeID,
	})
	if err != nil {
		a.logger.Warn("prioritization failed, using fallback scoring",
			"agent", orchestratorName, "error", err)
		return fallbackPrioritize(insights)
	}

	ranked, err := parseInsights(response)
	if err != nil || len(ranked) == 0 {
		a.logger.Warn("prioritization parse failed, using fallback scoring",
			"agent", orchestratorName, "error", err)
		return fallbackPrioritize(insights)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].PriorityScore > ranked[j].PriorityScore
	})

	a.memory.RecordDecision("insight_prioritization", map[string]any{
		"total_insights": len(insights),
	}, fmt.Sprintf("prioritized %d insights", len(ranked)))

	return ranked
}

// fallbackPrioritize is the deterministic scoring path used whenever
// the model's ranking is unavailable: base 0.5, +0.2 for frameworks,
// +0.2 for a contrarian angle, +0.1 for three or more key terms,
// capped at 1.0.
func fallbackPrioritize(insights []models.Insight) []models.Insight {
	out := make([]models.Insight, len(insights))
	copy(out, insights)

	for i := range out {
		score := 0.5
		if out[i].Type == models.InsightFramework {
			score += 0.2
		}
		if out[i].ContrarianAngle != "" {
			score += 0.2
		}
		if len(out[i].KeyTerms) >= 3 {
			score += 0.1
		}
		if score > 1.0 {
			score = 1.0
		}
		out[i].PriorityScore = score
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].PriorityScore > out[j].PriorityScore
	})
	return out
}

// Qualify filters ranked insights by the minimum priority score and
// caps the per-episode count.
func (a *InsightAgent) Qualify(insights []models.Insight) []models.Insight {
	var out []models.Insight
	for _, insight := range insights {
		if insight.PriorityScore < a.minPriority {
			continue
		}
		out = append(out, insight)
		if a.maxPerEpisode > 0 && len(out) >= a.maxPerEpisode {
			break
		}
	}
	return out
}
