package pipeline

import (
	"context"
	"math"
	"testing"

	"github.com/astralinkhq/astralink/internal/types"
)

// vectorEmbedder maps each text to a fixed vector so style similarity is
// fully controlled by the test.
type vectorEmbedder struct {
	vectors map[string][]float32
	err     error
}

func (f *vectorEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.EmbedDocument(ctx, text)
}

func (f *vectorEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	if vec, ok := f.vectors[text]; ok {
		return vec, nil
	}
	return []float32{0, 1}, nil
}

func (f *vectorEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, 0, len(texts))
	for _, text := range texts {
		vec, _ := f.EmbedDocument(ctx, text)
		out = append(out, vec)
	}
	return out, nil
}

func rerankProfile() *types.PersonaProfile {
	return &types.PersonaProfile{
		ID:            "p1",
		Name:          "Eleni",
		StyleExamples: []string{"style anchor"},
	}
}

func rerankRules() types.SpeakingRules {
	return types.SpeakingRules{MaxSentences: 3, MaxTokens: 90}
}

func TestRankOrdersByStyleSimilarity(t *testing.T) {
	embedder := &vectorEmbedder{vectors: map[string][]float32{
		"style anchor": {1, 0},
		"on voice.":    {1, 0},
		"off voice.":   {0, 1},
	}}
	reranker := NewReranker(embedder, NewCentroidCache())

	ranked := reranker.Rank(context.Background(), rerankProfile(), rerankRules(), types.NeutralOverrides(), []Candidate{
		{Text: "off voice.", Verdict: Verdict{Pass: true}},
		{Text: "on voice.", Verdict: Verdict{Pass: true}},
	})
	if ranked[0].Text != "on voice." {
		t.Fatalf("expected stylistically closer candidate first, got %q", ranked[0].Text)
	}
	if ranked[0].StyleScore <= ranked[1].StyleScore {
		t.Fatalf("style scores not ordered: %v vs %v", ranked[0].StyleScore, ranked[1].StyleScore)
	}
}

func TestRankFailedCandidatesNeverOutrankSurvivors(t *testing.T) {
	embedder := &vectorEmbedder{vectors: map[string][]float32{
		"style anchor": {1, 0},
		"failed.":      {1, 0},
		"survivor.":    {0, 1},
	}}
	reranker := NewReranker(embedder, NewCentroidCache())

	ranked := reranker.Rank(context.Background(), rerankProfile(), rerankRules(), types.NeutralOverrides(), []Candidate{
		{Text: "failed.", Verdict: Verdict{Reason: RejectSemanticFailed}},
		{Text: "survivor.", Verdict: Verdict{Pass: true}},
	})
	if ranked[0].Text != "survivor." {
		t.Fatalf("critic-failed candidate outranked a survivor: %q first", ranked[0].Text)
	}
	if !math.IsInf(ranked[1].FinalScore, -1) {
		t.Fatalf("failed candidate must score negative infinity, got %v", ranked[1].FinalScore)
	}
}

func TestRankBannedCandidateForcedLast(t *testing.T) {
	embedder := &vectorEmbedder{vectors: map[string][]float32{}}
	reranker := NewReranker(embedder, NewCentroidCache())
	rules := rerankRules()
	rules.BannedPhrases = []string{"in spirit"}

	ranked := reranker.Rank(context.Background(), rerankProfile(), rules, types.NeutralOverrides(), []Candidate{
		{Text: "I'm with you in spirit.", Verdict: Verdict{Pass: true}},
		{Text: "I'm with you.", Verdict: Verdict{Pass: true}},
	})
	if !ranked[1].Banned || !math.IsInf(ranked[1].FinalScore, -1) {
		t.Fatalf("banned candidate not forced last: %#v", ranked[1])
	}
	if ranked[0].Text != "I'm with you." {
		t.Fatalf("clean candidate should win, got %q", ranked[0].Text)
	}
}

func TestRankLengthPenaltyAppliesAdaptedCap(t *testing.T) {
	embedder := &vectorEmbedder{vectors: map[string][]float32{}}
	reranker := NewReranker(embedder, NewCentroidCache())
	rules := rerankRules()
	rules.MaxTokens = 10
	overrides := types.Overrides{LengthMultiplier: 0.8}

	// 9 tokens: within the base cap of 10 but over the adapted cap of 8.
	long := "one two three four five six seven eight nine"
	short := "short and sweet."

	ranked := reranker.Rank(context.Background(), rerankProfile(), rules, overrides, []Candidate{
		{Text: long, Verdict: Verdict{Pass: true}},
		{Text: short, Verdict: Verdict{Pass: true}},
	})
	var longRC types.RankedCandidate
	for _, rc := range ranked {
		if rc.Text == long {
			longRC = rc
		}
	}
	if longRC.LengthPenalty != 1 {
		t.Fatalf("expected length penalty under adapted cap, got %v", longRC.LengthPenalty)
	}
	if ranked[0].Text != short {
		t.Fatalf("penalized candidate should not win, got %q", ranked[0].Text)
	}
}

func TestRankStrictModeTightensCap(t *testing.T) {
	embedder := &vectorEmbedder{vectors: map[string][]float32{}}
	reranker := NewReranker(embedder, NewCentroidCache())
	rules := rerankRules()
	rules.MaxTokens = 10
	overrides := types.Overrides{LengthMultiplier: 1.0, StrictCritic: true}

	// 10 tokens: fine at the base cap, over the strict cap of 9.
	text := "one two three four five six seven eight nine ten"
	ranked := reranker.Rank(context.Background(), rerankProfile(), rules, overrides, []Candidate{
		{Text: text, Verdict: Verdict{Pass: true}},
	})
	if ranked[0].LengthPenalty != 1 {
		t.Fatalf("strict mode should tighten the cap, got penalty %v", ranked[0].LengthPenalty)
	}
}

func TestRankNoCentroidStillRanks(t *testing.T) {
	profile := rerankProfile()
	profile.StyleExamples = nil
	embedder := &vectorEmbedder{}
	reranker := NewReranker(embedder, NewCentroidCache())

	ranked := reranker.Rank(context.Background(), profile, rerankRules(), types.NeutralOverrides(), []Candidate{
		{Text: "plain reply.", Verdict: Verdict{Pass: true}},
	})
	if len(ranked) != 1 || math.IsInf(ranked[0].FinalScore, -1) {
		t.Fatalf("survivor without style signal must keep a finite score: %#v", ranked)
	}
	if ranked[0].StyleScore != 0 {
		t.Fatalf("no centroid means no style score, got %v", ranked[0].StyleScore)
	}
}

func TestCentroidCacheComputesOnceAndInvalidates(t *testing.T) {
	calls := 0
	embedder := &countingEmbedder{inner: &vectorEmbedder{}, calls: &calls}
	cache := NewCentroidCache()
	profile := rerankProfile()

	if _, ok := cache.Get(context.Background(), embedder, profile); !ok {
		t.Fatal("expected a centroid")
	}
	if _, ok := cache.Get(context.Background(), embedder, profile); !ok {
		t.Fatal("expected a cached centroid")
	}
	if calls != 1 {
		t.Fatalf("expected one embedding batch, got %d", calls)
	}

	cache.Invalidate(profile.ID)
	cache.Get(context.Background(), embedder, profile)
	if calls != 2 {
		t.Fatalf("invalidation should force a recompute, got %d calls", calls)
	}
}

type countingEmbedder struct {
	inner *vectorEmbedder
	calls *int
}

func (c *countingEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return c.inner.EmbedQuery(ctx, text)
}

func (c *countingEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return c.inner.EmbedDocument(ctx, text)
}

func (c *countingEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	*c.calls++
	return c.inner.EmbedDocuments(ctx, texts)
}
