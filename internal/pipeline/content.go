package pipeline

import (
	"context"
	"fmt"

	"campaignforge/internal/models"
)

func generateContent(ctx context.Context, d Deps, st models.CampaignState) (models.CampaignState, error) {
	prompt := fmt.Sprintf(`You're a creative content developer creating campaign materials.

### INPUTS:
- CAMPAIGN GOAL: %s
- TARGET AUDIENCE: %s
- CAMPAIGN STRATEGY: %s

### DELIVERABLE:
Create 3 content examples (one per channel) that align with the strategy:
1. EMAIL: Subject line + first paragraph (compelling opener)
2. SOCIAL MEDIA: 1-2 posts with hashtags (platform-appropriate)
3. LANDING PAGE: Headline + key benefits section

Each example should include the key message, call-to-action, and visual direction.`,
		st.Goal, clip(st.AudienceSegments, 300), clip(st.Strategy, 300))

	result, err := d.LLMFor(st.Provider).GenerateWithFallback(ctx, prompt, 0.8, StageContent.Fallback())
	if err != nil {
		return st, err
	}
	return StageContent.SetOutput(st, result.Text), nil
}
