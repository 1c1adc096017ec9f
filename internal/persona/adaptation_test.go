package persona

import (
	"context"
	"fmt"
	"testing"

	"github.com/astralinkhq/astralink/internal/types"
)

type fakeFeedbackRepo struct {
	records []types.Feedback
	err     error
}

func (f *fakeFeedbackRepo) QueryByPersona(ctx context.Context, personaID string) ([]types.Feedback, error) {
	return f.records, f.err
}

func downVotes(tag string, n int) []types.Feedback {
	records := make([]types.Feedback, 0, n)
	for i := 0; i < n; i++ {
		records = append(records, types.Feedback{Rating: types.RatingDown, Tags: []string{tag}})
	}
	return records
}

func TestOverridesNeutralBelowThreshold(t *testing.T) {
	engine := NewAdaptationEngine(&fakeFeedbackRepo{records: downVotes(types.FeedbackTagTooLong, 2)})
	ov := engine.Overrides(context.Background(), "p1")
	if ov != types.NeutralOverrides() {
		t.Fatalf("expected neutral overrides, got %#v", ov)
	}
}

func TestOverridesShrinkLengthBudget(t *testing.T) {
	engine := NewAdaptationEngine(&fakeFeedbackRepo{records: downVotes(types.FeedbackTagTooLong, 3)})
	ov := engine.Overrides(context.Background(), "p1")
	if ov.LengthMultiplier != shrinkMultiplier {
		t.Fatalf("expected multiplier %.1f, got %.1f", shrinkMultiplier, ov.LengthMultiplier)
	}
}

func TestOverridesStrictCriticCombinesVoiceTags(t *testing.T) {
	records := append(downVotes(types.FeedbackTagGeneric, 2), downVotes(types.FeedbackTagNotLikeThem, 1)...)
	engine := NewAdaptationEngine(&fakeFeedbackRepo{records: records})
	ov := engine.Overrides(context.Background(), "p1")
	if !ov.StrictCritic {
		t.Fatal("expected strict critic from combined voice tags")
	}
}

func TestOverridesLowerEnergy(t *testing.T) {
	engine := NewAdaptationEngine(&fakeFeedbackRepo{records: downVotes(types.FeedbackTagTooIntense, 3)})
	if ov := engine.Overrides(context.Background(), "p1"); !ov.LowerEnergy {
		t.Fatal("expected lowered energy")
	}
}

func TestOverridesIgnoreUpVotes(t *testing.T) {
	records := []types.Feedback{
		{Rating: types.RatingUp, Tags: []string{types.FeedbackTagTooLong}},
		{Rating: types.RatingUp, Tags: []string{types.FeedbackTagTooLong}},
		{Rating: types.RatingUp, Tags: []string{types.FeedbackTagTooLong}},
	}
	engine := NewAdaptationEngine(&fakeFeedbackRepo{records: records})
	if ov := engine.Overrides(context.Background(), "p1"); ov != types.NeutralOverrides() {
		t.Fatalf("up votes must not trigger overrides, got %#v", ov)
	}
}

func TestOverridesStoreFailureIsNeutral(t *testing.T) {
	engine := NewAdaptationEngine(&fakeFeedbackRepo{err: fmt.Errorf("db down")})
	if ov := engine.Overrides(context.Background(), "p1"); ov != types.NeutralOverrides() {
		t.Fatalf("store failure must degrade to neutral, got %#v", ov)
	}
}
