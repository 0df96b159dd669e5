package models

import "time"

type Domain string

const (
	DomainAutomotive Domain = "automotive"
	DomainHealthcare Domain = "healthcare"
	DomainEnergy     Domain = "energy"
)

// ParseDomain maps a user-supplied vertical to a known domain. Unrecognized
// values fall back to automotive, the baseline vertical.
func ParseDomain(s string) Domain {
	switch Domain(s) {
	case DomainAutomotive, DomainHealthcare, DomainEnergy:
		return Domain(s)
	}
	return DomainAutomotive
}

type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderOpenAI Provider = "openai"
)

func ParseProvider(s string) Provider {
	switch Provider(s) {
	case ProviderGemini, ProviderOpenAI:
		return Provider(s)
	}
	return ProviderGemini
}

// EmailRecord is one delivered campaign email.
type EmailRecord struct {
	RecipientID    string    `json:"recipient_id"`
	RecipientName  string    `json:"recipient_name"`
	RecipientEmail string    `json:"recipient_email"`
	Subject        string    `json:"subject"`
	SentAt         time.Time `json:"sent_at"`
}

// EmailTemplate caches a generated subject/body pair. Only the first
// successfully generated template of a run is kept.
type EmailTemplate struct {
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// CampaignState is the value threaded through the pipeline. Goal, Domain and
// Provider are immutable inputs; each stage fills exactly one output field and
// returns a new copy, so a snapshot taken before a stage runs stays valid.
type CampaignState struct {
	Goal     string   `json:"goal"`
	Domain   Domain   `json:"domain"`
	Provider Provider `json:"provider"`

	MarketAnalysis    string `json:"market_analysis,omitempty"`
	AudienceSegments  string `json:"audience_segments,omitempty"`
	Strategy          string `json:"strategy,omitempty"`
	Content           string `json:"content,omitempty"`
	SimulationResults string `json:"simulation_results,omitempty"`
	FinalReport       string `json:"final_report,omitempty"`
	EmailStatus       string `json:"email_status,omitempty"`

	SentEmailRecords []EmailRecord   `json:"sent_email_records,omitempty"`
	EmailTemplates   []EmailTemplate `json:"email_templates,omitempty"`
}
