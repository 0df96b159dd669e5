package pipeline

import (
	"campaignforge/internal/datasource"
	"campaignforge/internal/llm"
	"campaignforge/internal/mailer"
	"campaignforge/internal/models"
	"campaignforge/internal/retrieval"
	"campaignforge/internal/websearch"
)

// Deps carries everything stages call out to. Clients holds one generation
// client per configured provider; LLM is the default for campaigns whose
// provider has no entry. Index, Web, Recipients and Mailer may be nil; stages
// degrade rather than fail when they are.
type Deps struct {
	LLM        *llm.Client
	Clients    map[models.Provider]*llm.Client
	Index      retrieval.Searcher
	Web        websearch.Searcher
	Recipients datasource.RecipientSource
	Mailer     mailer.Sender
}

// LLMFor returns the generation client for a campaign's provider, falling
// back to the default client when none is wired for that provider.
func (d Deps) LLMFor(p models.Provider) *llm.Client {
	if c, ok := d.Clients[p]; ok && c != nil {
		return c
	}
	return d.LLM
}
