package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"campaignforge/internal/models"
)

// Event reports one completed stage with the state as of that point.
type Event struct {
	Stage Stage                `json:"stage"`
	State models.CampaignState `json:"state"`
}

// Outcome is the terminal result of a run. FailedStage is set only when
// Status is FAILED or STOPPED.
type Outcome struct {
	State       models.CampaignState
	Status      models.CampaignStatus
	FailedStage Stage
	Err         error
}

// Runner executes the pipeline stages in order against an immutable state
// value, pausing StepDelay between stages.
type Runner struct {
	Deps      Deps
	StepDelay time.Duration

	// sleep is swappable in tests.
	sleep func(context.Context, time.Duration) error
}

func NewRunner(deps Deps, stepDelay time.Duration) *Runner {
	return &Runner{
		Deps:      deps,
		StepDelay: stepDelay,
		sleep:     sleepContext,
	}
}

// Run executes all stages sequentially. Cancellation between stages yields a
// STOPPED outcome carrying every field completed so far; a stage error yields
// FAILED with the state the failing stage returned, so partial progress such
// as already-delivered email records survives. Events, if non-nil, receives
// one Event per completed stage; sends never block the run.
func (r *Runner) Run(ctx context.Context, st models.CampaignState, events chan<- Event) Outcome {
	for i, stage := range Stages() {
		if err := ctx.Err(); err != nil {
			return Outcome{State: st, Status: models.CampaignStatusStopped, FailedStage: stage, Err: err}
		}
		if i > 0 && r.StepDelay > 0 {
			if err := r.sleep(ctx, r.StepDelay); err != nil {
				return Outcome{State: st, Status: models.CampaignStatusStopped, FailedStage: stage, Err: err}
			}
		}

		next, err := stageFuncFor(stage)(ctx, r.Deps, st)
		if err != nil {
			status := models.CampaignStatusFailed
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				status = models.CampaignStatusStopped
			}
			log.Error().Err(err).Str("stage", stage.String()).Msg("Pipeline stage failed")
			return Outcome{State: next, Status: status, FailedStage: stage, Err: err}
		}
		st = next

		log.Info().Str("stage", stage.String()).Msg("Pipeline stage completed")
		if events != nil {
			select {
			case events <- Event{Stage: stage, State: st}:
			default:
				log.Warn().Str("stage", stage.String()).Msg("Dropping stage event, subscriber too slow")
			}
		}
	}
	return Outcome{State: st, Status: models.CampaignStatusCompleted}
}

// Regenerate re-runs a single stage against the given state and returns the
// state with only that stage's output replaced. Inputs from earlier stages
// are read as-is; later stage outputs are untouched.
func (r *Runner) Regenerate(ctx context.Context, stage Stage, st models.CampaignState) (models.CampaignState, error) {
	fn := stageFuncFor(stage)
	if fn == nil {
		return st, errors.New("unknown stage")
	}
	return fn(ctx, r.Deps, st)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
