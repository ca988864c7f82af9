package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/podforge-ai/podforge/pkg/config"
	"github.com/podforge-ai/podforge/pkg/models"
)

const researchAgentName = "research_agent"

// Searcher is the web-search capability.
type Searcher interface {
	Search(ctx context.Context, query string, maxResults int) ([]models.SearchResult, error)
}

// SimulatedSearcher returns deterministic canned results. It stands in
// until a real search capability is wired up.
type SimulatedSearcher struct{}

// Search implements Searcher with simulated results.
func (SimulatedSearcher) Search(_ context.Context, query string, maxResults int) ([]models.SearchResult, error) {
	n := maxResults
	if n > 5 {
		n = 5
	}
	out := make([]models.SearchResult, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, models.SearchResult{
			Title:            fmt.Sprintf("Search result %d for: %s", i+1, query),
			URL:              fmt.Sprintf("https://example.com/result-%d", i+1),
			Snippet:          fmt.Sprintf("Simulated search result snippet for query %q.", query),
			Source:           "example.com",
			RelevanceScore:   0.9 - float64(i)*0.1,
			CredibilityScore: 0.8,
		})
	}
	return out, nil
}

// SearchQuery is one generated search query with its purpose.
type SearchQuery struct {
	Query   string `json:"query"`
	Purpose string `json:"purpose,omitempty"`
}

type researchAnalysis struct {
	Summary        string           `json:"analysis_summary"`
	KeyFindings    []models.Finding `json:"key_findings"`
	CaseStudies    []models.Finding `json:"case_studies"`
	SupportingData []models.Finding `json:"supporting_data"`
}

// ResearchAgent finds supporting evidence for insights. Every model
// call has a deterministic fallback, so research degrades rather than
// failing an insight.
type ResearchAgent struct {
	router   Generator
	searcher Searcher
	memory   *Memory
	cfg      config.ResearchConfig
	logger   *slog.Logger
}

// NewResearchAgent creates a ResearchAgent.
func NewResearchAgent(router Generator, searcher Searcher, memory *Memory, cfg config.ResearchConfig, logger *slog.Logger) *ResearchAgent {
	return &ResearchAgent{
		router:   router,
		searcher: searcher,
		memory:   memory,
		cfg:      cfg,
		logger:   logger,
	}
}

// AngleFor picks the research angle best suited to an insight type.
func AngleFor(insight models.Insight) string {
	switch insight.Type {
	case models.InsightContrarian:
		return "supporting_evidence"
	case models.InsightFramework:
		return "implementation_examples"
	case models.InsightCaseStudy:
		return "similar_cases"
	default:
		return "general_research"
	}
}

// Research gathers and analyzes evidence for one insight, filtered by
// the credibility threshold.
func (a *ResearchAgent) Research(ctx context.Context, insight models.Insight, angle string, episodeID string) models.ResearchPackage {
	a.memory.RecordDecision("research_started", map[string]any{
		"insight_id":     insight.ID,
		"research_angle": angle,
	}, "beginning_research_process")

	queries := a.generateQueries(ctx, insight, angle, episodeID)

	var results []models.SearchResult
	for i, q := range queries {
		if a.cfg.MaxSearchesPerInsight > 0 && i >= a.cfg.MaxSearchesPerInsight {
			break
		}
		found, err := a.searcher.Search(ctx, q.Query, 5)
		if err != nil {
			a.logger.Warn("web search failed",
				"agent", researchAgentName, "query", q.Query, "error", err)
			continue
		}
		results = append(results, found...)
	}

	analysis := a.analyze(ctx, insight, results, episodeID)
	pkg := a.packageFindings(insight, analysis)

	if len(pkg.KeyFindings) >= 2 {
		a.memory.LearnFromSuccess(map[string]any{
			"research_angle": angle,
			"insight_type":   string(insight.Type),
			"findings_count": len(pkg.KeyFindings),
		})
	}

	a.memory.RecordDecision("research_completed", map[string]any{
		"insight_id":     insight.ID,
		"findings_count": len(pkg.KeyFindings),
	}, "research_package_created")

	return pkg
}

func (a *ResearchAgent) generateQueries(ctx context.Context, insight models.Insight, angle, episodeID string) []SearchQuery {
	response, err := a.router.Generate(ctx, models.GenerationRequest{
		TaskType:     "search_query_generation",
		SystemPrompt: researchSystemPrompt,
		UserPrompt: fmt.Sprintf(searchQueryPrompt,
			insight.Title, insight.BusinessContext,
			strings.Join(insight.KeyTerms, ", "), angle),
		MaxOutputTokens: 1000,
		AgentName:       researchAgentName,
		EpisodeID:       episodeID,
	})
	if err != nil {
		a.logger.Warn("query generation failed, using fallback queries",
			"agent", researchAgentName, "error", err)
		return a.fallbackQueries(insight, angle)
	}

	cleaned := cleanFences(response)
	var queries []SearchQuery
	if err := json.Unmarshal([]byte(cleaned), &queries); err != nil {
		if salvaged, ok := extractJSONArray(cleaned); ok {
			err = json.Unmarshal([]byte(salvaged), &queries)
		}
		if err != nil || len(queries) == 0 {
			return a.fallbackQueries(insight, angle)
		}
	}
	if len(queries) == 0 {
		return a.fallbackQueries(insight, angle)
	}
	return queries
}

// fallbackQueries builds deterministic queries from the insight's key
// terms when model generation is unavailable.
func (a *ResearchAgent) fallbackQueries(insight models.Insight, angle string) []SearchQuery {
	term := insight.Title
	if len(insight.KeyTerms) > 0 {
		term = insight.KeyTerms[0]
	}

	queries := []SearchQuery{
		{Query: fmt.Sprintf("SME %s case study success", term), Purpose: "fallback_search"},
		{Query: fmt.Sprintf("small business %s examples", term), Purpose: "fallback_search"},
		{Query: fmt.Sprintf("%s implementation results data", term), Purpose: "fallback_search"},
	}
	switch angle {
	case "supporting_evidence":
		queries = append(queries, SearchQuery{
			Query: fmt.Sprintf("%s benefits statistics SME", term), Purpose: "fallback_search"})
	case "contrarian_examples":
		queries = append(queries, SearchQuery{
			Query: fmt.Sprintf("%s failure risks small business", term), Purpose: "fallback_search"})
	}
	return queries
}

func (a *ResearchAgent) analyze(ctx context.Context, insight models.Insight, results []models.SearchResult, episodeID string) researchAnalysis {
	if len(results) == 0 {
		return researchAnalysis{Summary: "No search results found for analysis"}
	}

	limited := results
	if len(limited) > 10 {
		limited = limited[:10]
	}
	encoded, err := json.MarshalIndent(limited, "", "  ")
	if err != nil {
		return a.fallbackAnalysis(results)
	}

	response, err := a.router.Generate(ctx, models.GenerationRequest{
		TaskType:        "research_analysis",
		SystemPrompt:    researchSystemPrompt,
		UserPrompt:      fmt.Sprintf(researchAnalysisPrompt, insight.Title, encoded),
		MaxOutputTokens: 2000,
		AgentName:       researchAgentName,
		EpisodeID:       episodeID,
	})
	if err != nil {
		a.logger.Warn("research analysis failed, using fallback analysis",
			"agent", researchAgentName, "error", err)
		return a.fallbackAnalysis(results)
	}

	cleaned := cleanFences(response)
	var analysis researchAnalysis
	if err := json.Unmarshal([]byte(cleaned), &analysis); err != nil {
		if salvaged, ok := extractJSONObject(cleaned); ok {
			err = json.Unmarshal([]byte(salvaged), &analysis)
		}
		if err != nil {
			return a.fallbackAnalysis(results)
		}
	}
	return analysis
}

// fallbackAnalysis derives simple findings straight from the search
// results when model analysis is unavailable.
func (a *ResearchAgent) fallbackAnalysis(results []models.SearchResult) researchAnalysis {
	analysis := researchAnalysis{Summary: "Fallback analysis of search results"}
	for i, r := range results {
		if i >= 3 {
			break
		}
		analysis.KeyFindings = append(analysis.KeyFindings, models.Finding{
			Finding:          fmt.Sprintf("Information from %s", r.Source),
			Source:           r.Source,
			CredibilityScore: r.CredibilityScore,
			RelevanceScore:   r.RelevanceScore,
		})
	}
	return analysis
}

func (a *ResearchAgent) packageFindings(insight models.Insight, analysis researchAnalysis) models.ResearchPackage {
	filter := func(in []models.Finding) []models.Finding {
		var out []models.Finding
		for _, f := range in {
			if f.CredibilityScore < a.cfg.CredibilityThreshold {
				continue
			}
			out = append(out, f)
			if a.cfg.MaxSources > 0 && len(out) >= a.cfg.MaxSources {
				break
			}
		}
		return out
	}

	findings := filter(analysis.KeyFindings)
	cases := filter(analysis.CaseStudies)
	data := filter(analysis.SupportingData)

	return models.ResearchPackage{
		InsightID:      insight.ID,
		Summary:        analysis.Summary,
		QualityScore:   qualityScore(findings, cases, data),
		KeyFindings:    findings,
		CaseStudies:    cases,
		SupportingData: data,
		Status:         "completed",
	}
}

// qualityScore weights findings and case studies at 0.4 each and
// supporting data at 0.2, normalized by item count and capped at 1.0.
func qualityScore(findings, cases, data []models.Finding) float64 {
	total := len(findings) + len(cases) + len(data)
	if total == 0 {
		return 0
	}

	sum := func(fs []models.Finding) float64 {
		var s float64
		for _, f := range fs {
			s += f.CredibilityScore
		}
		return s
	}

	score := (sum(findings)*0.4 + sum(cases)*0.4 + sum(data)*0.2) / float64(total)
	if score > 1.0 {
		score = 1.0
	}
	return score
}
