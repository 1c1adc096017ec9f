package pipeline

import (
	"context"
	"log/slog"
	"math"
	"sort"

	"github.com/astralinkhq/astralink/internal/memory"
	"github.com/astralinkhq/astralink/internal/types"
)

// strictCapFactor tightens the length cap when the stricter critic is
// active.
const strictCapFactor = 0.9

// Candidate is one critic-reviewed reply entering the reranker.
type Candidate struct {
	Text    string
	Verdict Verdict
}

// Reranker orders critic-surviving candidates by stylistic similarity to
// the persona, penalizing rule violations. Candidates that are banned,
// critic-failed, or question-failed always sort last.
type Reranker struct {
	embedder  memory.Embedder
	centroids *CentroidCache
}

// NewReranker returns a Reranker.
func NewReranker(embedder memory.Embedder, centroids *CentroidCache) *Reranker {
	return &Reranker{embedder: embedder, centroids: centroids}
}

// Rank scores and sorts all candidates descending by final score. The
// caller takes index 0 after checking it survived.
func (r *Reranker) Rank(ctx context.Context, profile *types.PersonaProfile, rules types.SpeakingRules, overrides types.Overrides, candidates []Candidate) []types.RankedCandidate {
	centroid, haveCentroid := r.centroids.Get(ctx, r.embedder, profile)

	tokenCap := rules.MaxTokens
	if overrides.LengthMultiplier > 0 {
		tokenCap = int(float64(tokenCap) * overrides.LengthMultiplier)
	}
	if overrides.StrictCritic {
		tokenCap = int(float64(tokenCap) * strictCapFactor)
	}
	if tokenCap < 1 {
		tokenCap = 1
	}

	ranked := make([]types.RankedCandidate, 0, len(candidates))
	for _, cand := range candidates {
		rc := types.RankedCandidate{
			Text:       cand.Text,
			CriticPass: cand.Verdict.Pass,
			Banned:     cand.Verdict.Reason == RejectBannedPhrase || ContainsBannedPhrase(cand.Text, rules.BannedPhrases),
		}

		if haveCentroid && cand.Text != "" {
			vec, err := r.embedder.EmbedDocument(ctx, cand.Text)
			if err != nil {
				slog.Warn("candidate embedding failed, no style signal", "error", err.Error())
			} else {
				rc.StyleScore = CosineSimilarity(vec, centroid)
			}
		}

		if CountTokens(cand.Text) > tokenCap {
			rc.LengthPenalty = 1
		}

		questionFailed := cand.Verdict.Reason == RejectQuestion
		if rc.Banned || !rc.CriticPass || questionFailed {
			rc.FinalScore = math.Inf(-1)
		} else {
			rc.FinalScore = rc.StyleScore - rc.LengthPenalty
		}
		ranked = append(ranked, rc)
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].FinalScore > ranked[j].FinalScore
	})
	return ranked
}
