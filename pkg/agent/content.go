package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/podforge-ai/podforge/pkg/config"
	"github.com/podforge-ai/podforge/pkg/models"
)

const contentAgentName = "content_agent"

// ContentAgent turns an insight plus its research into validated
// social content pieces.
type ContentAgent struct {
	router Generator
	memory *Memory
	cfg    config.ContentConfig
	logger *slog.Logger
}

// NewContentAgent creates a ContentAgent.
func NewContentAgent(router Generator, memory *Memory, cfg config.ContentConfig, logger *slog.Logger) *ContentAgent {
	return &ContentAgent{router: router, memory: memory, cfg: cfg, logger: logger}
}

type threadResponse struct {
	HookTweet    string   `json:"hook_tweet"`
	ThreadTweets []string `json:"thread_tweets"`
}

type contentPiece struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type validationResponse struct {
	BrandVoiceScore        float64 `json:"brand_voice_score"`
	ApprovalRecommendation string  `json:"approval_recommendation"`
}

// Generate produces content pieces for one insight. Individual piece
// types fail independently; an error is returned only when nothing at
// all could be generated and at least one backend call failed.
func (a *ContentAgent) Generate(ctx context.Context, insight models.Insight, research models.ResearchPackage, episodeID string) ([]models.ContentItem, error) {
	a.memory.RecordDecision("content_generation_started", map[string]any{
		"insight_id":   insight.ID,
		"insight_type": string(insight.Type),
	}, "beginning_content_creation")

	var pieces []models.ContentItem
	var firstErr error
	note := func(err error) {
		if firstErr == nil {
			firstErr = err
		}
	}

	if insight.Type == models.InsightFramework {
		thread, err := a.frameworkThread(ctx, insight, research, episodeID)
		if err != nil {
			note(err)
		} else if thread != nil {
			pieces = append(pieces, *thread)
		}
	}

	if insight.ContrarianAngle != "" {
		contrarian, err := a.contrarianPosts(ctx, insight, research, episodeID)
		if err != nil {
			note(err)
		}
		pieces = append(pieces, contrarian...)
	}

	if len(research.CaseStudies) > 0 {
		caseStudies, err := a.caseStudyPosts(ctx, insight, research, episodeID)
		if err != nil {
			note(err)
		}
		pieces = append(pieces, caseStudies...)
	}

	tactical, err := a.tacticalPosts(ctx, insight, research, episodeID)
	if err != nil {
		note(err)
	}
	pieces = append(pieces, tactical...)

	var approved []models.ContentItem
	var scores []float64
	for _, piece := range pieces {
		score, ok := a.validate(ctx, piece, episodeID)
		if !ok {
			a.memory.RecordDecision("content_rejected", map[string]any{
				"piece_kind":  string(piece.Kind),
				"brand_score": score,
			}, "quality_threshold_not_met")
			continue
		}
		piece.ID = uuid.NewString()
		approved = append(approved, piece)
		scores = append(scores, score)
	}

	if len(approved) == 0 && firstErr != nil {
		a.memory.LearnFromFailure(map[string]any{
			"insight_type": string(insight.Type),
			"error":        firstErr.Error(),
		})
		return nil, fmt.Errorf("content generation for %s: %w", insight.ID, firstErr)
	}

	avg := 0.0
	for _, s := range scores {
		avg += s
	}
	if len(scores) > 0 {
		avg /= float64(len(scores))
	}

	a.memory.RecordDecision("content_generation_completed", map[string]any{
		"insight_id":       insight.ID,
		"pieces_generated": len(approved),
		"avg_quality":      avg,
	}, "content_creation_finished")
	a.memory.SetMetric("avg_pieces_per_insight", float64(len(approved)))

	if len(approved) >= 3 {
		a.memory.LearnFromSuccess(map[string]any{
			"insight_type": string(insight.Type),
			"pieces_count": len(approved),
			"avg_quality":  avg,
		})
	}

	return approved, nil
}

func (a *ContentAgent) frameworkThread(ctx context.Context, insight models.Insight, research models.ResearchPackage, episodeID string) (*models.ContentItem, error) {
	steps, _ := json.Marshal(insight.Steps)
	findings, _ := json.Marshal(research.KeyFindings)
	cases, _ := json.Marshal(research.CaseStudies)

	response, err := a.router.Generate(ctx, models.GenerationRequest{
		TaskType:     "framework_thread",
		SystemPrompt: contentSystemPrompt,
		UserPrompt: fmt.Sprintf(frameworkThreadPrompt,
			a.cfg.MaxPostLength, insight.Title, steps, findings, cases),
		MaxOutputTokens: 2000,
		AgentName:       contentAgentName,
		EpisodeID:       episodeID,
	})
	if err != nil {
		a.logger.Warn("framework thread generation failed",
			"agent", contentAgentName, "error", err)
		return nil, err
	}

	var thread threadResponse
	if !a.parseObject(response, &thread) {
		return nil, nil
	}
	if !a.validThread(thread) {
		a.logger.Warn("framework thread failed structure validation",
			"agent", contentAgentName, "parts", len(thread.ThreadTweets)+1)
		return nil, nil
	}

	parts := append([]string{thread.HookTweet}, thread.ThreadTweets...)
	return &models.ContentItem{
		Kind:        models.KindThread,
		Priority:    models.PriorityHigh,
		Subtype:     "framework",
		Text:        thread.HookTweet,
		ThreadParts: parts,
		Metadata:    map[string]string{"framework_title": insight.Title},
	}, nil
}

// validThread checks part count against the configured range and each
// part against the character limit.
func (a *ContentAgent) validThread(thread threadResponse) bool {
	if thread.HookTweet == "" || len(thread.ThreadTweets) == 0 {
		return false
	}
	total := len(thread.ThreadTweets) + 1
	if total < a.cfg.ThreadLengthMin || total > a.cfg.ThreadLengthMax {
		return false
	}
	if len(thread.HookTweet) > a.cfg.MaxPostLength {
		return false
	}
	for _, part := range thread.ThreadTweets {
		if len(part) > a.cfg.MaxPostLength {
			return false
		}
	}
	return true
}

func (a *ContentAgent) contrarianPosts(ctx context.Context, insight models.Insight, research models.ResearchPackage, episodeID string) ([]models.ContentItem, error) {
	data, _ := json.Marshal(research.SupportingData)

	response, err := a.router.Generate(ctx, models.GenerationRequest{
		TaskType:     "contrarian_content",
		SystemPrompt: contentSystemPrompt,
		UserPrompt: fmt.Sprintf(contrarianContentPrompt,
			a.cfg.MaxPostLength, insight.Title, insight.ContrarianAngle, data),
		MaxOutputTokens: 1500,
		AgentName:       contentAgentName,
		EpisodeID:       episodeID,
	})
	if err != nil {
		a.logger.Warn("contrarian content generation failed",
			"agent", contentAgentName, "error", err)
		return nil, err
	}

	var out struct {
		ContrarianPieces []contentPiece `json:"contrarian_pieces"`
	}
	if !a.parseObject(response, &out) {
		return nil, nil
	}
	return a.singlePosts(out.ContrarianPieces, "contrarian"), nil
}

func (a *ContentAgent) caseStudyPosts(ctx context.Context, insight models.Insight, research models.ResearchPackage, episodeID string) ([]models.ContentItem, error) {
	cases, _ := json.Marshal(research.CaseStudies)

	response, err := a.router.Generate(ctx, models.GenerationRequest{
		TaskType:     "case_study_content",
		SystemPrompt: contentSystemPrompt,
		UserPrompt: fmt.Sprintf(caseStudyContentPrompt,
			a.cfg.MaxPostLength, cases, insight.Title, insight.Content),
		MaxOutputTokens: 1000,
		AgentName:       contentAgentName,
		EpisodeID:       episodeID,
	})
	if err != nil {
		a.logger.Warn("case study content generation failed",
			"agent", contentAgentName, "error", err)
		return nil, err
	}

	var out struct {
		CaseStudyContent []contentPiece `json:"case_study_content"`
	}
	if !a.parseObject(response, &out) {
		return nil, nil
	}
	return a.singlePosts(out.CaseStudyContent, "case_study"), nil
}

func (a *ContentAgent) tacticalPosts(ctx context.Context, insight models.Insight, research models.ResearchPackage, episodeID string) ([]models.ContentItem, error) {
	findings, _ := json.Marshal(research.KeyFindings)

	response, err := a.router.Generate(ctx, models.GenerationRequest{
		TaskType:     "tactical_content",
		SystemPrompt: contentSystemPrompt,
		UserPrompt: fmt.Sprintf(tacticalContentPrompt,
			a.cfg.MaxPostLength, insight.Content, findings, insight.BusinessContext),
		MaxOutputTokens: 1200,
		AgentName:       contentAgentName,
		EpisodeID:       episodeID,
	})
	if err != nil {
		a.logger.Warn("tactical content generation failed",
			"agent", contentAgentName, "error", err)
		return nil, err
	}

	var out struct {
		TacticalTips []struct {
			TipContent string `json:"tip_content"`
		} `json:"tactical_tips"`
	}
	if !a.parseObject(response, &out) {
		return nil, nil
	}

	pieces := make([]contentPiece, 0, len(out.TacticalTips))
	for _, tip := range out.TacticalTips {
		pieces = append(pieces, contentPiece{Type: "tactical_tip", Content: tip.TipContent})
	}
	return a.singlePosts(pieces, "tactical_tip"), nil
}

// singlePosts converts raw pieces to content items, dropping any over
// the character limit.
func (a *ContentAgent) singlePosts(pieces []contentPiece, defaultSubtype string) []models.ContentItem {
	var out []models.ContentItem
	for _, piece := range pieces {
		if piece.Content == "" || len(piece.Content) > a.cfg.MaxPostLength {
			continue
		}
		subtype := piece.Type
		if subtype == "" {
			subtype = defaultSubtype
		}
		out = append(out, models.ContentItem{
			Kind:     models.KindSinglePost,
			Priority: models.PriorityMedium,
			Subtype:  subtype,
			Text:     piece.Content,
		})
	}
	return out
}

// validate scores a piece against the brand voice via the model, with
// a deterministic heuristic fallback when the response is unusable.
// Approval requires meeting the brand threshold and no rejection
// recommendation.
func (a *ContentAgent) validate(ctx context.Context, piece models.ContentItem, episodeID string) (float64, bool) {
	encoded, _ := json.MarshalIndent(piece, "", "  ")

	var result validationResponse
	response, err := a.router.Generate(ctx, models.GenerationRequest{
		TaskType:        "brand_voice_validation",
		SystemPrompt:    contentSystemPrompt,
		UserPrompt:      fmt.Sprintf(brandValidationPrompt, encoded),
		MaxOutputTokens: 800,
		AgentName:       contentAgentName,
		EpisodeID:       episodeID,
	})
	if err != nil || !a.parseObject(response, &result) {
		result = a.fallbackValidation(piece)
	}

	approved := result.BrandVoiceScore >= a.cfg.BrandVoiceThreshold &&
		result.ApprovalRecommendation != "rejected"
	return result.BrandVoiceScore, approved
}

var dataPattern = regexp.MustCompile(`\d+%|\$\d+|\d+x`)

var contrarianPhrases = []string{
	"most smes are wrong",
	"unpopular opinion",
	"conventional wisdom",
}

// fallbackValidation is the deterministic heuristic used when model
// validation is unavailable: neutral 0.5 base, small bumps for brand
// voice signals.
func (a *ContentAgent) fallbackValidation(piece models.ContentItem) validationResponse {
	text := piece.Text
	score := 0.5

	lower := strings.ToLower(text)
	for _, phrase := range contrarianPhrases {
		if strings.Contains(lower, phrase) {
			score += 0.2
			break
		}
	}
	if dataPattern.MatchString(text) {
		score += 0.1
	}
	if len(text) <= a.cfg.MaxPostLength {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}

	recommendation := "approved"
	if score < a.cfg.BrandVoiceThreshold {
		recommendation = "needs_revision"
	}
	return validationResponse{
		BrandVoiceScore:        score,
		ApprovalRecommendation: recommendation,
	}
}

// parseObject unmarshals a model response into v, cleaning fences and
// salvaging an embedded object when needed.
func (a *ContentAgent) parseObject(response string, v any) bool {
	cleaned := cleanFences(response)
	if err := json.Unmarshal([]byte(cleaned), v); err == nil {
		return true
	}
	salvaged, ok := extractJSONObject(cleaned)
	if !ok {
		a.logger.Warn("response parse failed", "agent", contentAgentName)
		return false
	}
	if err := json.Unmarshal([]byte(salvaged), v); err != nil {
		a.logger.Warn("response parse failed", "agent", contentAgentName, "error", err)
		return false
	}
	return true
}
