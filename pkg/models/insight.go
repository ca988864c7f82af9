package models

// InsightType classifies an extracted business insight.
type InsightType string

const (
	InsightFramework  InsightType = "framework"
	InsightContrarian InsightType = "contrarian_take"
	InsightCaseStudy  InsightType = "case_study"
	InsightTactical   InsightType = "tactical_tip"
)

// ValidInsightType reports whether t is one of the known insight types.
func ValidInsightType(t InsightType) bool {
	switch t {
	case InsightFramework, InsightContrarian, InsightCaseStudy, InsightTactical:
		return true
	}
	return false
}

// Insight is a structured business idea extracted from a transcript,
// candidate for content generation.
type Insight struct {
	ID              string      `json:"id"`
	Title           string      `json:"title"`
	Type            InsightType `json:"type"`
	Content         string      `json:"content"`
	KeyTerms        []string    `json:"key_terms,omitempty"`
	BusinessContext string      `json:"business_context,omitempty"`
	Steps           []string    `json:"steps,omitempty"`
	ContrarianAngle string      `json:"contrarian_angle,omitempty"`
	PriorityScore   float64     `json:"priority_score"`
}

// Valid reports whether the insight has the required structure.
func (i Insight) Valid() bool {
	return i.Title != "" && i.Content != "" && ValidInsightType(i.Type)
}

// SearchResult is one result returned by the web-search capability.
type SearchResult struct {
	Title            string  `json:"title"`
	URL              string  `json:"url"`
	Snippet          string  `json:"snippet"`
	Source           string  `json:"source"`
	RelevanceScore   float64 `json:"relevance_score"`
	CredibilityScore float64 `json:"credibility_score"`
}

// Finding is one analyzed piece of research evidence.
type Finding struct {
	Finding          string  `json:"finding"`
	Source           string  `json:"source"`
	CredibilityScore float64 `json:"credibility_score"`
	RelevanceScore   float64 `json:"relevance_score,omitempty"`
}

// ResearchPackage bundles the evidence gathered for one insight.
type ResearchPackage struct {
	InsightID      string    `json:"insight_id"`
	Summary        string    `json:"summary"`
	QualityScore   float64   `json:"quality_score"`
	KeyFindings    []Finding `json:"key_findings"`
	CaseStudies    []Finding `json:"case_studies"`
	SupportingData []Finding `json:"supporting_data"`
	Status         string    `json:"status"`
}
