// Package pipeline implements the campaign build as an ordered sequence of
// stages over an immutable state value. Each stage reads fields produced by
// earlier stages and returns a new state with exactly one field filled in.
package pipeline

import (
	"context"
	"fmt"

	"campaignforge/internal/models"
)

// Stage identifies one step of the campaign pipeline. The set is closed;
// ParseStage rejects anything outside it.
type Stage string

const (
	StageResearch Stage = "research_market"
	StageSegment  Stage = "segment_audience"
	StageStrategy Stage = "create_strategy"
	StageContent  Stage = "generate_content"
	StageSimulate Stage = "simulate_campaign"
	StageReport   Stage = "generate_report"
	StageEmails   Stage = "send_emails"
)

// Stages returns the pipeline order. Callers must not mutate the result.
func Stages() []Stage {
	return []Stage{
		StageResearch,
		StageSegment,
		StageStrategy,
		StageContent,
		StageSimulate,
		StageReport,
		StageEmails,
	}
}

func (s Stage) String() string { return string(s) }

func ParseStage(s string) (Stage, error) {
	for _, st := range Stages() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown stage: %q", s)
}

// Fallback is the placeholder text a stage writes when generation is
// exhausted without a usable response. Empty for stages that do not degrade
// to a placeholder.
func (s Stage) Fallback() string {
	switch s {
	case StageResearch:
		return "No insights available"
	case StageSegment:
		return "Audience segmentation failed"
	case StageStrategy:
		return "Strategy generation failed"
	case StageContent:
		return "Content generation failed"
	case StageSimulate:
		return "Simulation failed"
	case StageReport:
		return "Report generation failed"
	default:
		return ""
	}
}

// Output reads the state field this stage produces.
func (s Stage) Output(st models.CampaignState) string {
	switch s {
	case StageResearch:
		return st.MarketAnalysis
	case StageSegment:
		return st.AudienceSegments
	case StageStrategy:
		return st.Strategy
	case StageContent:
		return st.Content
	case StageSimulate:
		return st.SimulationResults
	case StageReport:
		return st.FinalReport
	case StageEmails:
		return st.EmailStatus
	default:
		return ""
	}
}

// SetOutput returns a copy of st with this stage's field replaced.
func (s Stage) SetOutput(st models.CampaignState, value string) models.CampaignState {
	switch s {
	case StageResearch:
		st.MarketAnalysis = value
	case StageSegment:
		st.AudienceSegments = value
	case StageStrategy:
		st.Strategy = value
	case StageContent:
		st.Content = value
	case StageSimulate:
		st.SimulationResults = value
	case StageReport:
		st.FinalReport = value
	case StageEmails:
		st.EmailStatus = value
	}
	return st
}

type stageFunc func(ctx context.Context, d Deps, st models.CampaignState) (models.CampaignState, error)

func stageFuncFor(s Stage) stageFunc {
	switch s {
	case StageResearch:
		return researchMarket
	case StageSegment:
		return segmentAudience
	case StageStrategy:
		return createStrategy
	case StageContent:
		return generateContent
	case StageSimulate:
		return simulateCampaign
	case StageReport:
		return generateReport
	case StageEmails:
		return sendEmails
	default:
		return nil
	}
}
