package pipeline

import (
	"context"
	"fmt"

	"campaignforge/internal/models"
)

func simulateCampaign(ctx context.Context, d Deps, st models.CampaignState) (models.CampaignState, error) {
	prompt := fmt.Sprintf(`You're a marketing analyst simulating campaign performance.

### INPUTS:
- CAMPAIGN GOAL: %s
- STRATEGY: %s
- CONTENT: %s

### DELIVERABLE:
Provide a realistic performance simulation with:
1. CHANNEL METRICS: Reach, engagement, CTR by channel
2. CONVERSION FUNNEL: Leads, conversions, cost-per-acquisition
3. ROI PROJECTION: Expected sales lift and return on investment
4. RISK ASSESSMENT: Top 3 risks with mitigation tactics
5. OPTIMIZATION: 3 specific recommendations to improve performance

Use industry benchmarks and be realistic. Format with clear sections and data points.`,
		st.Goal, clip(st.Strategy, 300), clip(st.Content, 300))

	result, err := d.LLMFor(st.Provider).GenerateWithFallback(ctx, prompt, 0.4, StageSimulate.Fallback())
	if err != nil {
		return st, err
	}
	return StageSimulate.SetOutput(st, result.Text), nil
}
