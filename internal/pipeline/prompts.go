package pipeline

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"campaignforge/internal/models"
	"campaignforge/internal/retrieval"
)

// clip truncates s to at most n bytes and marks the cut. The cut backs up to
// a rune boundary so the prompt never carries a split UTF-8 sequence. Prompts
// feed earlier stage outputs back in and must stay bounded.
func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "... [truncated]"
}

var domainRole = map[models.Domain]string{
	models.DomainAutomotive: "You're a marketing director creating a final report for an automotive campaign.",
	models.DomainHealthcare: "You're a marketing director creating a final report for a healthcare campaign.",
	models.DomainEnergy:     "You're a marketing director creating a final report for a power and energy campaign.",
}

var domainReportFocus = map[models.Domain]string{
	models.DomainAutomotive: `Focus on:
- Vehicle sales projections and market share impact
- Dealership engagement and test drive metrics
- Digital and traditional media performance for automotive
- Competitive positioning for the campaign goal
- Brand lift and consideration metrics`,
	models.DomainHealthcare: `Focus on:
- Patient acquisition and retention metrics
- Provider reputation and referral growth
- Health education impact and engagement
- Regulatory compliance for the campaign goal
- Patient satisfaction and outcomes`,
	models.DomainEnergy: `Focus on:
- Customer acquisition and service adoption
- Energy efficiency and sustainability metrics
- Technology adoption and smart solutions
- Regulatory considerations for the campaign goal
- Customer satisfaction and loyalty metrics`,
}

var domainReportSections = map[models.Domain][]string{
	models.DomainAutomotive: {"Vehicle Sales Impact", "Dealership Performance", "Media Effectiveness", "Competitive Analysis"},
	models.DomainHealthcare: {"Patient Acquisition", "Provider Reputation", "Service Utilization", "Compliance Summary"},
	models.DomainEnergy:     {"Customer Adoption", "Energy Efficiency Impact", "Technology Integration", "Sustainability Metrics"},
}

// defaultReference stands in for retrieval context when the index is absent
// or a query fails, so prompts always carry some domain framing.
var defaultReference = map[models.Domain]string{
	models.DomainAutomotive: "General automotive reference: demand peaks around model-year changeovers and quarter ends; SUV and EV segments grow fastest; dealership test drives drive most conversions; email and paid search outperform print.",
	models.DomainHealthcare: "General healthcare reference: patient acquisition is referral and reputation driven; education content builds trust; seasonal demand follows enrollment and flu cycles; all outreach must stay compliant.",
	models.DomainEnergy:     "General power and energy reference: adoption follows utility incentives and rate changes; sustainability messaging resonates with residential customers; smart-home integrations lift engagement.",
}

var domainIndustry = map[models.Domain]string{
	models.DomainAutomotive: "automotive",
	models.DomainHealthcare: "healthcare",
	models.DomainEnergy:     "power and energy",
}

// retrieveContext queries the index for category-matched documents and joins
// them into a prompt block. Any retrieval failure, including a missing index,
// degrades to the supplied default text.
func retrieveContext(ctx context.Context, ix retrieval.Searcher, query, category string, k int, fallback string) string {
	if ix == nil {
		return fallback
	}
	docs, err := retrieval.SearchCategory(ctx, ix, query, category, k)
	if err != nil {
		log.Warn().Err(err).Str("category", category).Msg("retrieval unavailable, using default context")
		return fallback
	}
	if len(docs) == 0 {
		return fallback
	}
	parts := make([]string, len(docs))
	for i, d := range docs {
		parts[i] = d.Content
	}
	return strings.Join(parts, "\n\n")
}

// keywordQuery keeps the words of the goal long enough to carry meaning.
func keywordQuery(goal string) string {
	var terms []string
	for _, w := range strings.Fields(strings.ToLower(goal)) {
		if len(w) > 3 {
			terms = append(terms, w)
		}
	}
	return strings.Join(terms, " ")
}
