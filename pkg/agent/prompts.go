package agent

// Prompt wording is deliberately minimal here; the structured output
// contract (JSON shapes) is what the parsers depend on.

const orchestratorSystemPrompt = `You are the marketing lead for a business podcast. You extract actionable business insights from transcripts and rank them for social media potential. Always answer with valid JSON and nothing else.`

const insightExtractionPrompt = `Extract the key business insights from this podcast transcript. Return a JSON array of objects with fields: "title", "type" (one of "framework", "contrarian_take", "case_study", "tactical_tip"), "content", "key_terms" (array), "business_context", "steps" (array, frameworks only), "contrarian_angle".

Transcript:
%s`

const insightPrioritizationPrompt = `Rank these insights by social media content potential for a small-business audience. Return the same JSON array with a "priority_score" field (0.0-1.0) added to each object, highest first.

Insights:
%s`

const researchSystemPrompt = `You are a research assistant finding evidence, case studies, and data that support business insights. Always answer with valid JSON and nothing else.`

const searchQueryPrompt = `Generate 3 targeted web search queries to find supporting evidence for this insight. Return a JSON array of objects with fields "query" and "purpose".

Insight: %s
Context: %s
Key terms: %s
Research angle: %s`

const researchAnalysisPrompt = `Analyze these search results for relevance and credibility to the insight %q. Return a JSON object with fields: "analysis_summary", "key_findings", "case_studies", "supporting_data" — each list entry has "finding", "source", "credibility_score" (0.0-1.0), "relevance_score" (0.0-1.0).

Search results:
%s`

const contentSystemPrompt = `You write social media content for small-business owners: direct, practical, data-backed, occasionally contrarian. Always answer with valid JSON and nothing else.`

const frameworkThreadPrompt = `Write a social thread breaking down this framework. Return a JSON object with "hook_tweet" and "thread_tweets" (array). Each part stays under %d characters.

Framework: %s
Steps: %s
Supporting research: %s
Case studies: %s`

const contrarianContentPrompt = `Write single posts challenging conventional wisdom on this topic. Return a JSON object with "contrarian_pieces": an array of objects with "type" and "content" (each under %d characters).

Insight: %s
Contrarian angle: %s
Supporting data: %s`

const caseStudyContentPrompt = `Write single posts highlighting these case studies. Return a JSON object with "case_study_content": an array of objects with "type" and "content" (each under %d characters).

Case studies: %s
Business principle: %s
Key learning: %s`

const tacticalContentPrompt = `Write actionable tip posts from this insight. Return a JSON object with "tactical_tips": an array of objects with "tip_content" (each under %d characters).

Insight: %s
Research: %s
Business context: %s`

const brandValidationPrompt = `Score this content piece against the brand voice (direct, practical, data-backed, contrarian where earned). Return a JSON object with "brand_voice_score" (0.0-1.0) and "approval_recommendation" ("approved", "needs_revision", or "rejected").

Content:
%s`
