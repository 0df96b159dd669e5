package pipeline

import (
	"context"
	"fmt"

	"campaignforge/internal/models"
)

func segmentAudience(ctx context.Context, d Deps, st models.CampaignState) (models.CampaignState, error) {
	segmentInfo := retrieveContext(ctx, d.Index,
		fmt.Sprintf("customer segments interested in %s", keywordQuery(st.Goal)), "segment", 2,
		defaultReference[st.Domain])

	prompt := fmt.Sprintf(`You're a customer insights specialist identifying target audiences.

### INPUTS:
- CAMPAIGN GOAL: %s
- MARKET ANALYSIS: %s
- AVAILABLE SEGMENTS: %s

### DELIVERABLE:
Provide a concise audience targeting plan with:
1. PRIMARY SEGMENT: Name, demographics, and why they're ideal (3 reasons max)
2. SECONDARY SEGMENT: Name, demographics, and why they're secondary
3. MESSAGING POINTS: 3-5 key points that will resonate with these segments

Format with clear headings and bullet points.`,
		st.Goal, clip(st.MarketAnalysis, 300), segmentInfo)

	result, err := d.LLMFor(st.Provider).GenerateWithFallback(ctx, prompt, 0.5, StageSegment.Fallback())
	if err != nil {
		return st, err
	}
	return StageSegment.SetOutput(st, result.Text), nil
}
