package persona

import (
	"context"
	"log/slog"

	"github.com/astralinkhq/astralink/internal/types"
)

// FeedbackRepo is the read side of the feedback store.
type FeedbackRepo interface {
	QueryByPersona(ctx context.Context, personaID string) ([]types.Feedback, error)
}

// adaptationThreshold is how many matching down-ratings it takes before
// an override kicks in.
const adaptationThreshold = 3

// shrinkMultiplier is the length budget applied when replies run long.
const shrinkMultiplier = 0.8

// AdaptationEngine aggregates historical feedback into request-scoped
// rule overrides. Overrides are ephemeral and never persisted back onto
// the base profile.
type AdaptationEngine struct {
	feedback FeedbackRepo
}

// NewAdaptationEngine returns an AdaptationEngine.
func NewAdaptationEngine(feedback FeedbackRepo) *AdaptationEngine {
	return &AdaptationEngine{feedback: feedback}
}

// Overrides computes the active overrides for a persona. A store failure
// degrades to neutral overrides rather than failing the request.
func (e *AdaptationEngine) Overrides(ctx context.Context, personaID string) types.Overrides {
	records, err := e.feedback.QueryByPersona(ctx, personaID)
	if err != nil {
		slog.Warn("feedback query failed, using neutral overrides", "error", err.Error(), "persona_id", personaID)
		return types.NeutralOverrides()
	}

	tooLong := 0
	offVoice := 0
	tooIntense := 0
	for _, fb := range records {
		if fb.Rating != types.RatingDown {
			continue
		}
		for _, tag := range fb.Tags {
			switch tag {
			case types.FeedbackTagTooLong:
				tooLong++
			case types.FeedbackTagGeneric, types.FeedbackTagNotLikeThem:
				offVoice++
			case types.FeedbackTagTooIntense:
				tooIntense++
			}
		}
	}

	overrides := types.NeutralOverrides()
	if tooLong >= adaptationThreshold {
		overrides.LengthMultiplier = shrinkMultiplier
	}
	if offVoice >= adaptationThreshold {
		overrides.StrictCritic = true
	}
	if tooIntense >= adaptationThreshold {
		overrides.LowerEnergy = true
	}
	return overrides
}
