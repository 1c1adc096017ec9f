package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/astralinkhq/astralink/internal/language"
	"github.com/astralinkhq/astralink/internal/memory"
	"github.com/astralinkhq/astralink/internal/persona"
	"github.com/astralinkhq/astralink/internal/types"
)

// fallbackPhrase is the deterministic reply used when no candidate
// survives the critic. It is prefixed with the persona's first required
// marker when one exists.
const fallbackPhrase = "I'm right here with you."

// defaultLaneTemperatures drive the parallel rewrite lanes.
var defaultLaneTemperatures = []float64{0.9, 0.7, 0.5}

// PersonaRepo is the read side of the persona store.
type PersonaRepo interface {
	Load(ctx context.Context, userID, personaID string) (*types.PersonaProfile, error)
}

// Orchestrator sequences the full reply pipeline for one request.
type Orchestrator struct {
	personas    PersonaRepo
	retriever   *memory.Retriever
	events      memory.EventRepo
	embedder    memory.Embedder
	fingerprint *persona.FingerprintBuilder
	adaptation  *persona.AdaptationEngine
	planner     *ContentPlanner
	rewriter    *StyleRewriter
	critic      *Critic
	reranker    *Reranker
	extractor   *memory.Extractor
	lanes       []float64
}

// NewOrchestrator wires the pipeline stages.
func NewOrchestrator(
	personas PersonaRepo,
	retriever *memory.Retriever,
	events memory.EventRepo,
	embedder memory.Embedder,
	fingerprint *persona.FingerprintBuilder,
	adaptation *persona.AdaptationEngine,
	planner *ContentPlanner,
	rewriter *StyleRewriter,
	critic *Critic,
	reranker *Reranker,
	extractor *memory.Extractor,
	lanes []float64,
) *Orchestrator {
	if len(lanes) == 0 {
		lanes = defaultLaneTemperatures
	}
	return &Orchestrator{
		personas:    personas,
		retriever:   retriever,
		events:      events,
		embedder:    embedder,
		fingerprint: fingerprint,
		adaptation:  adaptation,
		planner:     planner,
		rewriter:    rewriter,
		critic:      critic,
		reranker:    reranker,
		extractor:   extractor,
		lanes:       lanes,
	}
}

// Reply runs the pipeline end to end. Only malformed top-level input
// produces an error; every internal failure degrades to a terminal
// result, at worst the deterministic fallback reply.
func (o *Orchestrator) Reply(ctx context.Context, req types.ReplyRequest) (types.ReplyResponse, error) {
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return types.ReplyResponse{}, fmt.Errorf("empty message")
	}

	profile, err := o.personas.Load(ctx, req.UserID, req.PersonaID)
	if err != nil {
		return types.ReplyResponse{}, fmt.Errorf("unknown persona: %w", err)
	}

	overrides := o.adaptation.Overrides(ctx, profile.ID)
	fp := o.fingerprint.Build(ctx, profile)
	baseRules := persona.DeriveRules(profile, fp)
	rules := persona.ApplyOverrides(baseRules, overrides)
	target := language.Choose(rules, message)
	situation := memory.ClassifySituation(message)

	var memories []types.RetrievedMemory
	var events []types.RetrievedEvent
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		memories = o.retriever.Memories(gctx, profile.ID, req.UserID, message)
		return nil
	})
	g.Go(func() error {
		events = o.retriever.Events(gctx, profile.ID, req.UserID, situation, message)
		return nil
	})
	_ = g.Wait()

	draft, err := o.planner.Plan(ctx, profile, message, events, memories)
	if err != nil || draft == "" {
		if err != nil {
			slog.Warn("content planning degraded to raw message", "error", err.Error(), "persona_id", profile.ID)
		}
		draft = message
	}

	candidates := o.generateCandidates(ctx, profile, fp, rules, overrides, target, draft, message)
	ranked := o.reranker.Rank(ctx, profile, baseRules, overrides, candidates)

	response := types.ReplyResponse{
		ReplyID: uuid.NewString(),
		Debug: types.ReplyDebug{
			Rules:       rules,
			Fingerprint: fp,
			Language:    target,
			Situation:   situation,
			Candidates:  ranked,
		},
	}

	if len(ranked) > 0 && ranked[0].CriticPass && !ranked[0].Banned {
		response.Text = ranked[0].Text
	} else {
		response.Text = FallbackReply(rules)
		response.Fallback = true
	}

	o.appendEvent(ctx, profile.ID, req.UserID, situation, message, response.Text)
	if o.extractor != nil && !response.Fallback {
		if err := o.extractor.Extract(ctx, profile.ID, req.UserID, situation, message, response.Text); err != nil {
			slog.Warn("memory extraction skipped", "error", err.Error(), "persona_id", profile.ID)
		}
	}
	return response, nil
}

// generateCandidates runs the rewrite lanes in parallel and gates each
// result through the critic. The critic phase finishes before reranking.
func (o *Orchestrator) generateCandidates(ctx context.Context, profile *types.PersonaProfile, fp types.PersonaFingerprint, rules types.SpeakingRules, overrides types.Overrides, target types.Language, draft, message string) []Candidate {
	texts := make([]string, len(o.lanes))
	g, gctx := errgroup.WithContext(ctx)
	for i, temperature := range o.lanes {
		g.Go(func() error {
			texts[i] = o.rewriter.Rewrite(gctx, RewriteInput{
				Draft:       draft,
				Message:     message,
				Fingerprint: fp,
				Rules:       rules,
				Target:      target,
				Temperature: temperature,
			})
			return nil
		})
	}
	_ = g.Wait()

	candidates := make([]Candidate, 0, len(texts))
	for _, text := range texts {
		verdict := Verdict{Reason: RejectEmpty}
		if text != "" {
			verdict = o.critic.Review(ctx, CriticInput{
				Profile:     profile,
				Fingerprint: fp,
				Rules:       rules,
				Message:     message,
				Candidate:   text,
				Target:      target,
				Strict:      overrides.StrictCritic,
			})
		}
		candidates = append(candidates, Candidate{Text: text, Verdict: verdict})
	}
	return candidates
}

// FallbackReply builds the deterministic fallback, marker-prefixed when
// the rules carry one.
func FallbackReply(rules types.SpeakingRules) string {
	if len(rules.RequiredMarkers) > 0 {
		marker := strings.TrimSpace(rules.RequiredMarkers[0])
		if marker != "" {
			return marker + ", " + lowerFirst(fallbackPhrase)
		}
	}
	return fallbackPhrase
}

// appendEvent logs the realized exchange to the event corpus, best effort.
func (o *Orchestrator) appendEvent(ctx context.Context, personaID, userID string, situation types.Situation, message, reply string) {
	embedding, err := o.embedder.EmbedDocument(ctx, message+" "+reply)
	if err != nil {
		slog.Warn("event embedding failed, storing without vector", "error", err.Error(), "persona_id", personaID)
		embedding = nil
	}
	event := types.EventMemory{
		PersonaID: personaID,
		UserID:    userID,
		Situation: situation,
		Trigger:   message,
		Reaction:  reply,
		Embedding: embedding,
	}
	if err := o.events.AddEvent(ctx, event); err != nil {
		slog.Warn("event append failed", "error", err.Error(), "persona_id", personaID)
	}
}
