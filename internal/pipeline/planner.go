package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/astralinkhq/astralink/internal/llm"
	"github.com/astralinkhq/astralink/internal/memory"
	"github.com/astralinkhq/astralink/internal/types"
)

const (
	plannerTemperature = 0.3
	plannerMaxTokens   = 220
	maxPlannerContext  = 3
	snippetLimit       = 220
)

const plannerInstruction = `You plan what a reply should say, not how it should sound.
Write a 2-4 sentence draft of the reply's content in plain, neutral prose.
Do not imitate any personality, tone, dialect or language quirks.
Do not address formatting. Use the remembered context only where it fits.

Return a valid JSON object: {"draft": "..."} with no text outside it.`

// ContentPlanner produces a style-neutral semantic draft so that style
// failures can be retried without re-deriving content.
type ContentPlanner struct {
	completer llm.Completer
}

// NewContentPlanner returns a ContentPlanner.
func NewContentPlanner(completer llm.Completer) *ContentPlanner {
	return &ContentPlanner{completer: completer}
}

type plannerPayload struct {
	Draft string `json:"draft"`
}

// Plan drafts the reply content. An unparseable response degrades to the
// raw service output; only a failed call returns an error.
func (p *ContentPlanner) Plan(ctx context.Context, profile *types.PersonaProfile, message string, events []types.RetrievedEvent, memories []types.RetrievedMemory) (string, error) {
	var sb strings.Builder
	sb.WriteString(plannerInstruction)
	sb.WriteString("\n\nTHE SPEAKER: ")
	sb.WriteString(profile.Name)
	if profile.Relationship != "" {
		sb.WriteString(" (their ")
		sb.WriteString(profile.Relationship)
		sb.WriteString(")")
	}

	if len(events) > 0 {
		sb.WriteString("\n\nPAST REACTIONS TO SIMILAR MOMENTS:")
		for i, event := range events {
			if i >= maxPlannerContext {
				break
			}
			sb.WriteString(fmt.Sprintf("\n- [%s] %s -> %s", event.Situation, memory.CleanSnippet(event.Trigger, snippetLimit), memory.CleanSnippet(event.Reaction, snippetLimit)))
		}
	}
	if len(memories) > 0 {
		sb.WriteString("\n\nREMEMBERED FACTS:")
		for i, mem := range memories {
			if i >= maxPlannerContext {
				break
			}
			sb.WriteString("\n- ")
			sb.WriteString(memory.CleanSnippet(mem.Text, snippetLimit))
		}
	}

	sb.WriteString("\n\nUSER MESSAGE: ")
	sb.WriteString(strings.TrimSpace(message))

	raw, err := p.completer.Complete(ctx, sb.String(), plannerTemperature, plannerMaxTokens)
	if err != nil {
		return "", fmt.Errorf("content planning failed: %w", err)
	}

	var payload plannerPayload
	if err := llm.ExtractJSON(raw, &payload); err != nil || strings.TrimSpace(payload.Draft) == "" {
		slog.Warn("planner output unparseable, using raw text as draft", "persona_id", profile.ID)
		return strings.TrimSpace(raw), nil
	}
	return strings.TrimSpace(payload.Draft), nil
}
