package pipeline

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/astralinkhq/astralink/internal/memory"
	"github.com/astralinkhq/astralink/internal/persona"
	"github.com/astralinkhq/astralink/internal/types"
)

// routingCompleter answers each pipeline stage by matching the
// instruction preamble, so one fake serves the whole orchestrator.
type routingCompleter struct {
	plannerResp string
	rewriteResp string
	criticResp  string
}

func (f *routingCompleter) Complete(ctx context.Context, instruction string, temperature float64, maxTokens int) (string, error) {
	switch {
	case strings.HasPrefix(instruction, "You plan what a reply should say"):
		return f.plannerResp, nil
	case strings.HasPrefix(instruction, "Rewrite the draft"):
		return f.rewriteResp, nil
	case strings.HasPrefix(instruction, "You judge whether"):
		return f.criticResp, nil
	}
	return "", fmt.Errorf("unexpected instruction: %.40s", instruction)
}

type stubPersonaRepo struct {
	profile *types.PersonaProfile
	err     error
}

func (s *stubPersonaRepo) Load(ctx context.Context, userID, personaID string) (*types.PersonaProfile, error) {
	return s.profile, s.err
}

type stubMemoryRepo struct {
	hits []types.RetrievedMemory
}

func (s *stubMemoryRepo) AddMemory(ctx context.Context, mem types.Memory) error { return nil }

func (s *stubMemoryRepo) SearchSimilar(ctx context.Context, personaID, userID string, embedding []float32, topK int, threshold float64) ([]types.RetrievedMemory, error) {
	return s.hits, nil
}

func (s *stubMemoryRepo) Recent(ctx context.Context, personaID, userID string, limit int) ([]types.Memory, error) {
	return nil, nil
}

type stubEventRepo struct {
	hits     []types.RetrievedEvent
	appended []types.EventMemory
	addErr   error
}

func (s *stubEventRepo) AddEvent(ctx context.Context, event types.EventMemory) error {
	s.appended = append(s.appended, event)
	return s.addErr
}

func (s *stubEventRepo) SearchSimilar(ctx context.Context, personaID, userID string, situation types.Situation, embedding []float32, topK int, threshold float64) ([]types.RetrievedEvent, error) {
	return s.hits, nil
}

type stubFeedbackRepo struct {
	records []types.Feedback
}

func (s *stubFeedbackRepo) QueryByPersona(ctx context.Context, personaID string) ([]types.Feedback, error) {
	return s.records, nil
}

func quietShortProfile() *types.PersonaProfile {
	return &types.PersonaProfile{
		ID:           "p1",
		UserID:       "u1",
		Name:         "Eleni",
		Relationship: "mother",
		Language:     "en",
		Tone:         types.Tone{Energy: "low", TypicalLength: "short"},
		Catchphrases: []string{"agapi mou"},
		Markers:      []string{"agapi mou"},
	}
}

func newTestOrchestrator(completer *routingCompleter, personas PersonaRepo, events *stubEventRepo) *Orchestrator {
	embedder := &vectorEmbedder{}
	retriever := memory.NewRetriever(embedder, &stubMemoryRepo{}, events, 5, 3, 0.3)
	return NewOrchestrator(
		personas,
		retriever,
		events,
		embedder,
		persona.NewFingerprintBuilder(completer),
		persona.NewAdaptationEngine(&stubFeedbackRepo{}),
		NewContentPlanner(completer),
		NewStyleRewriter(completer, DefaultSchedule()),
		NewCritic(completer),
		NewReranker(embedder, NewCentroidCache()),
		nil,
		nil,
	)
}

func TestReplyQuietShortPersonaRoundTrip(t *testing.T) {
	completer := &routingCompleter{
		plannerResp: `{"draft": "Congratulate them warmly on getting the job."}`,
		rewriteResp: "Agapi mou, you got the job! That is wonderful news.",
		criticResp:  "PASS",
	}
	events := &stubEventRepo{}
	orch := newTestOrchestrator(completer, &stubPersonaRepo{profile: quietShortProfile()}, events)

	resp, err := orch.Reply(context.Background(), types.ReplyRequest{
		UserID:    "u1",
		PersonaID: "p1",
		Message:   "I got the job!",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.Fallback {
		t.Fatalf("expected a surviving candidate, got fallback %q", resp.Text)
	}
	if strings.Contains(resp.Text, "!") {
		t.Fatalf("low energy reply must carry no exclamation marks: %q", resp.Text)
	}
	if got := len(SplitSentences(resp.Text)); got > 2 {
		t.Fatalf("expected at most 2 sentences, got %d: %q", got, resp.Text)
	}
	if got := CountTokens(resp.Text); got > 45 {
		t.Fatalf("expected at most 45 tokens, got %d", got)
	}
	if !strings.Contains(strings.ToLower(resp.Text), "agapi mou") {
		t.Fatalf("reply must carry the persona marker: %q", resp.Text)
	}
	if resp.Debug.Situation != types.SituationGoodNews {
		t.Fatalf("expected good_news situation, got %q", resp.Debug.Situation)
	}
	if resp.ReplyID == "" {
		t.Fatal("expected a reply id")
	}
	if len(events.appended) != 1 || events.appended[0].Trigger != "I got the job!" {
		t.Fatalf("exchange not appended to the event corpus: %#v", events.appended)
	}
}

func TestReplyFallsBackWhenEveryLaneIsBanned(t *testing.T) {
	completer := &routingCompleter{
		plannerResp: `{"draft": "Offer comfort."}`,
		rewriteResp: "I'm here for you, agapi mou.",
		criticResp:  "PASS",
	}
	events := &stubEventRepo{}
	orch := newTestOrchestrator(completer, &stubPersonaRepo{profile: quietShortProfile()}, events)

	resp, err := orch.Reply(context.Background(), types.ReplyRequest{
		UserID:    "u1",
		PersonaID: "p1",
		Message:   "Today was hard.",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !resp.Fallback {
		t.Fatalf("banned candidates must force the fallback, got %q", resp.Text)
	}
	if want := "agapi mou, i'm right here with you."; resp.Text != want {
		t.Fatalf("fallback text = %q, want %q", resp.Text, want)
	}
	for _, cand := range resp.Debug.Candidates {
		if cand.CriticPass && !cand.Banned {
			t.Fatalf("no candidate should have survived: %#v", cand)
		}
	}
}

func TestReplyRejectsEmptyMessage(t *testing.T) {
	orch := newTestOrchestrator(&routingCompleter{}, &stubPersonaRepo{profile: quietShortProfile()}, &stubEventRepo{})
	if _, err := orch.Reply(context.Background(), types.ReplyRequest{UserID: "u1", PersonaID: "p1", Message: "   "}); err == nil {
		t.Fatal("expected an error for a blank message")
	}
}

func TestReplyRejectsUnknownPersona(t *testing.T) {
	repo := &stubPersonaRepo{err: fmt.Errorf("not found")}
	orch := newTestOrchestrator(&routingCompleter{}, repo, &stubEventRepo{})
	if _, err := orch.Reply(context.Background(), types.ReplyRequest{UserID: "u1", PersonaID: "ghost", Message: "hi"}); err == nil {
		t.Fatal("expected an error for an unknown persona")
	}
}

func TestReplySurvivesEventAppendFailure(t *testing.T) {
	completer := &routingCompleter{
		plannerResp: `{"draft": "Say hello back."}`,
		rewriteResp: "Agapi mou, good morning to you too.",
		criticResp:  "PASS",
	}
	events := &stubEventRepo{addErr: fmt.Errorf("store down")}
	orch := newTestOrchestrator(completer, &stubPersonaRepo{profile: quietShortProfile()}, events)

	resp, err := orch.Reply(context.Background(), types.ReplyRequest{UserID: "u1", PersonaID: "p1", Message: "Good morning"})
	if err != nil {
		t.Fatalf("event store trouble must not fail the reply: %v", err)
	}
	if resp.Text == "" {
		t.Fatal("expected a reply")
	}
}

func TestFallbackReplyMarkerPrefix(t *testing.T) {
	withMarker := FallbackReply(types.SpeakingRules{RequiredMarkers: []string{"agapi mou"}})
	if withMarker != "agapi mou, i'm right here with you." {
		t.Fatalf("unexpected fallback: %q", withMarker)
	}
	bare := FallbackReply(types.SpeakingRules{})
	if bare != "I'm right here with you." {
		t.Fatalf("unexpected bare fallback: %q", bare)
	}
}
