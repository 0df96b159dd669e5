package pipeline

import (
	"context"
	"fmt"

	"campaignforge/internal/models"
)

func createStrategy(ctx context.Context, d Deps, st models.CampaignState) (models.CampaignState, error) {
	pastCampaigns := retrieveContext(ctx, d.Index,
		fmt.Sprintf("successful campaigns for %s", st.Goal), "campaign", 2,
		defaultReference[st.Domain])

	prompt := fmt.Sprintf(`You're a marketing strategist creating a campaign plan.

### INPUTS:
- GOAL: %s
- MARKET ANALYSIS: %s
- TARGET AUDIENCE: %s
- REFERENCE CAMPAIGNS: %s

### DELIVERABLE:
Create a structured campaign strategy with:
1. Campaign name & theme (catchy, memorable)
2. Timeline (key dates, duration)
3. Channel strategy (prioritized channels + budget %%)
4. KPIs (specific metrics to track success)
5. Messaging framework (key value propositions)

Format with clear headings and bullet points.`,
		st.Goal, clip(st.MarketAnalysis, 500), clip(st.AudienceSegments, 500), clip(pastCampaigns, 500))

	result, err := d.LLMFor(st.Provider).GenerateWithFallback(ctx, prompt, 0.7, StageStrategy.Fallback())
	if err != nil {
		return st, err
	}
	return StageStrategy.SetOutput(st, result.Text), nil
}
