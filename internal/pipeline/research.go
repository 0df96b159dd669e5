package pipeline

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"campaignforge/internal/models"
)

// researchMarket produces the market analysis. Web search context is best
// effort; sales context comes from the index when available.
func researchMarket(ctx context.Context, d Deps, st models.CampaignState) (models.CampaignState, error) {
	webContext := ""
	if d.Web != nil {
		query := fmt.Sprintf("%s industry market trends %s", domainIndustry[st.Domain], st.Goal)
		results, err := d.Web.Search(ctx, query)
		if err != nil {
			log.Warn().Err(err).Msg("web search unavailable, continuing without external context")
		} else {
			webContext = results.PromptContext(5)
		}
	}
	if webContext == "" {
		webContext = "No external market research available."
	}

	salesContext := retrieveContext(ctx, d.Index,
		fmt.Sprintf("sales performance for %s", st.Goal), "sales", 3,
		defaultReference[st.Domain])

	prompt := fmt.Sprintf(`You are a senior data analyst at a %s marketing agency. You are tasked with generating a comprehensive and strategic market analysis for an upcoming campaign.

### CAMPAIGN OBJECTIVE:
%s

### DATA SOURCES:
1. Internal sales data:
%s

2. External market research (filter to what is relevant to the goal):
%s

### YOUR ANALYSIS SHOULD COVER:
1. Market Trends: current sales trends from internal and external data, seasonal patterns, technology-driven shifts.
2. Consumer Buying Patterns: only where relevant to the goal.
3. Campaign Performance Analysis: what worked before, by channel and timing.
4. Competitive and Technology Landscape: emerging technologies and competitor moves.
5. Regional Market Analysis: only if the goal targets specific regions.

### OUTPUT FORMAT:
1. Executive Summary: 2-3 brief paragraphs with top findings and strategic direction.
2. Key Market Insights: bullet points, each with a stat, an insight, and why it matters.
3. Top Opportunities: ranked by potential impact (High > Medium > Low).
4. Threats & Risks: with a mitigation strategy for each.
5. Recommended Actions: specific steps, citing internal metrics and external sources.

Do not include irrelevant trends or data. Insights must be practical, data-backed, and easy to understand for marketing stakeholders.`,
		domainIndustry[st.Domain], st.Goal, salesContext, webContext)

	result, err := d.LLMFor(st.Provider).GenerateWithFallback(ctx, prompt, 0.7, StageResearch.Fallback())
	if err != nil {
		return st, err
	}
	return StageResearch.SetOutput(st, result.Text), nil
}
