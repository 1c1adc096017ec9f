package memory

import (
	"context"
	"fmt"
	"testing"

	"github.com/astralinkhq/astralink/internal/types"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

func (f *fakeEmbedder) EmbedDocument(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

func (f *fakeEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(texts))
	for i := range texts {
		out[i] = f.vec
	}
	return out, nil
}

type fakeMemoryRepo struct {
	hits      []types.RetrievedMemory
	recent    []types.Memory
	searchErr error
}

func (f *fakeMemoryRepo) AddMemory(ctx context.Context, mem types.Memory) error { return nil }

func (f *fakeMemoryRepo) SearchSimilar(ctx context.Context, personaID, userID string, embedding []float32, topK int, threshold float64) ([]types.RetrievedMemory, error) {
	return f.hits, f.searchErr
}

func (f *fakeMemoryRepo) Recent(ctx context.Context, personaID, userID string, limit int) ([]types.Memory, error) {
	return f.recent, nil
}

type fakeEventRepo struct {
	hits      []types.RetrievedEvent
	appended  []types.EventMemory
	appendErr error
	searchErr error
}

func (f *fakeEventRepo) AddEvent(ctx context.Context, event types.EventMemory) error {
	f.appended = append(f.appended, event)
	return f.appendErr
}

func (f *fakeEventRepo) SearchSimilar(ctx context.Context, personaID, userID string, situation types.Situation, embedding []float32, topK int, threshold float64) ([]types.RetrievedEvent, error) {
	return f.hits, f.searchErr
}

func TestMemoriesEmptyCorpusReturnsEmpty(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{vec: []float32{1, 0}}, &fakeMemoryRepo{}, &fakeEventRepo{}, 5, 3, 0.3)
	if hits := r.Memories(context.Background(), "p1", "u1", "anything"); len(hits) != 0 {
		t.Fatalf("empty corpus must yield empty result, got %v", hits)
	}
}

func TestEventsEmptyCorpusReturnsEmpty(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{vec: []float32{1, 0}}, &fakeMemoryRepo{}, &fakeEventRepo{}, 5, 3, 0.3)
	if hits := r.Events(context.Background(), "p1", "u1", types.SituationOther, "anything"); len(hits) != 0 {
		t.Fatalf("empty corpus must yield empty result, got %v", hits)
	}
}

func TestMemoriesEmbeddingFailureFallsBackToKeywords(t *testing.T) {
	repo := &fakeMemoryRepo{recent: []types.Memory{
		{Text: "She loved the sea in Paros"},
		{Text: "Dinner at yiayia's every Sunday"},
		{Text: "completely unrelated note"},
	}}
	r := NewRetriever(&fakeEmbedder{err: fmt.Errorf("embed down")}, repo, &fakeEventRepo{}, 5, 3, 0.3)

	hits := r.Memories(context.Background(), "p1", "u1", "the sea in Paros")
	if len(hits) == 0 {
		t.Fatal("keyword fallback must surface overlapping memories")
	}
	if hits[0].Text != "She loved the sea in Paros" {
		t.Fatalf("best overlap must rank first, got %q", hits[0].Text)
	}
}

func TestMemoriesSearchFailureDegradesToEmpty(t *testing.T) {
	repo := &fakeMemoryRepo{searchErr: fmt.Errorf("db down")}
	r := NewRetriever(&fakeEmbedder{vec: []float32{1, 0}}, repo, &fakeEventRepo{}, 5, 3, 0.3)
	if hits := r.Memories(context.Background(), "p1", "u1", "anything"); hits != nil {
		t.Fatalf("search failure must degrade to empty, got %v", hits)
	}
}

func TestMemoriesEmptyQueryShortCircuits(t *testing.T) {
	r := NewRetriever(&fakeEmbedder{vec: []float32{1, 0}}, &fakeMemoryRepo{}, &fakeEventRepo{}, 5, 3, 0.3)
	if hits := r.Memories(context.Background(), "p1", "u1", "   "); hits != nil {
		t.Fatalf("blank query must yield nil, got %v", hits)
	}
}

func TestCleanSnippetTruncatesOnWordBoundary(t *testing.T) {
	got := CleanSnippet("the quick   brown fox jumps over the lazy dog", 20)
	if got != "the quick brown fox" {
		t.Fatalf("unexpected snippet %q", got)
	}
	if CleanSnippet("   ", 20) != "" {
		t.Fatal("blank input must clean to empty")
	}
}

func TestClassifySituation(t *testing.T) {
	cases := []struct {
		message string
		want    types.Situation
	}{
		{"hey", types.SituationGreeting},
		{"good morning", types.SituationGreeting},
		{"I got the job!", types.SituationGoodNews},
		{"I feel so alone since it happened", types.SituationEmotional},
		{"I have been thinking a lot about whether moving abroad next year makes sense for the family and the house", types.SituationComplex},
		{"we cleaned the kitchen over the weekend", types.SituationOther},
		{"", types.SituationOther},
	}
	for _, tc := range cases {
		if got := ClassifySituation(tc.message); got != tc.want {
			t.Fatalf("%q: got %s, want %s", tc.message, got, tc.want)
		}
	}
}
