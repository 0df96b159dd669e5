package pipeline

import (
	"context"
	"fmt"
	"strings"

	"campaignforge/internal/models"
)

func generateReport(ctx context.Context, d Deps, st models.CampaignState) (models.CampaignState, error) {
	sections := domainReportSections[st.Domain]
	var sectionsText strings.Builder
	for _, s := range sections {
		fmt.Fprintf(&sectionsText, "- %s\n", s)
	}

	prompt := fmt.Sprintf(`%s
%s

### INPUTS:
- CAMPAIGN GOAL: %s
- MARKET ANALYSIS: %s
- TARGET AUDIENCE: %s
- CAMPAIGN STRATEGY: %s
- CONTENT EXAMPLES: %s
- PERFORMANCE SIMULATION: %s

### REPORT SECTIONS:
Include these domain-specific sections:
%s
### DELIVERABLE:
Create a comprehensive final campaign report with:
1. EXECUTIVE SUMMARY: Key findings and recommendations (1 paragraph)
2. CAMPAIGN OVERVIEW: Goal, strategy, audience (2-3 paragraphs)
3. PERFORMANCE METRICS: Expected results across channels (use data from simulation)
4. DOMAIN-SPECIFIC SECTIONS: Address the sections listed above
5. IMPLEMENTATION PLAN: Timeline, resources, next steps
6. CONCLUSION: Final recommendations and success factors

Format as a professional report with clear headings and concise content.
Include specific metrics and insights relevant to the %s industry.`,
		domainRole[st.Domain], domainReportFocus[st.Domain],
		st.Goal,
		clip(st.MarketAnalysis, 200), clip(st.AudienceSegments, 200),
		clip(st.Strategy, 200), clip(st.Content, 200), clip(st.SimulationResults, 200),
		sectionsText.String(), domainIndustry[st.Domain])

	result, err := d.LLMFor(st.Provider).GenerateWithFallback(ctx, prompt, 0.4, StageReport.Fallback())
	if err != nil {
		return st, err
	}
	return StageReport.SetOutput(st, result.Text), nil
}
