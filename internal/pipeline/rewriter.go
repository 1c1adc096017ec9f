package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/astralinkhq/astralink/internal/llm"
	"github.com/astralinkhq/astralink/internal/types"
)

// RewriteInput carries everything one rewrite lane needs.
type RewriteInput struct {
	Draft       string
	Message     string
	Fingerprint types.PersonaFingerprint
	Rules       types.SpeakingRules
	Target      types.Language
	Temperature float64
}

// StyleRewriter turns a neutral draft into a persona-voiced candidate
// under hard speaking rules, retrying on empty output with a colder
// temperature each attempt.
type StyleRewriter struct {
	completer llm.Completer
	schedule  Schedule
}

// NewStyleRewriter returns a StyleRewriter.
func NewStyleRewriter(completer llm.Completer, schedule Schedule) *StyleRewriter {
	return &StyleRewriter{completer: completer, schedule: schedule}
}

// Rewrite runs one lane. The empty string means the lane exhausted its
// attempts; callers treat that as a non-surviving candidate.
func (w *StyleRewriter) Rewrite(ctx context.Context, in RewriteInput) string {
	instruction := buildRewriteInstruction(in)
	for attempt := 0; attempt < w.schedule.Attempts(); attempt++ {
		temperature := w.schedule.TemperatureAt(in.Temperature, attempt)
		raw, err := w.completer.Complete(ctx, instruction, temperature, in.Rules.MaxTokens+40)
		if err != nil {
			slog.Warn("style rewrite attempt failed", "error", err.Error(), "attempt", attempt)
			continue
		}
		candidate := PostProcess(raw, in.Rules)
		if candidate != "" {
			return candidate
		}
	}
	return ""
}

func buildRewriteInstruction(in RewriteInput) string {
	var sb strings.Builder
	sb.WriteString("Rewrite the draft below in the exact voice described. Output only the rewritten reply.\n")

	sb.WriteString("\nVOICE:")
	if len(in.Fingerprint.SentenceTemplates) > 0 {
		sb.WriteString("\n- Sentence shapes they use: ")
		sb.WriteString(strings.Join(in.Fingerprint.SentenceTemplates, " | "))
	}
	if len(in.Fingerprint.FillerWords) > 0 {
		sb.WriteString("\n- Filler words: ")
		sb.WriteString(strings.Join(in.Fingerprint.FillerWords, ", "))
	}
	if len(in.Fingerprint.CommonPhrases) > 0 {
		sb.WriteString("\n- Phrases they repeat: ")
		sb.WriteString(strings.Join(in.Fingerprint.CommonPhrases, ", "))
	}
	sb.WriteString("\n- Energy: ")
	sb.WriteString(in.Rules.Energy)

	sb.WriteString("\n\nHARD RULES:")
	sb.WriteString(fmt.Sprintf("\n- At most %d sentences and %d words.", in.Rules.MaxSentences, in.Rules.MaxTokens))
	sb.WriteString(fmt.Sprintf("\n- Write in %s.", in.Target))
	if in.Rules.ForbidQuestions {
		sb.WriteString("\n- Do not ask any question.")
	}
	if len(in.Rules.RequiredMarkers) > 0 {
		sb.WriteString("\n- Use at least one of these verbatim: ")
		sb.WriteString(strings.Join(in.Rules.RequiredMarkers, ", "))
	}
	if len(in.Rules.BannedPhrases) > 0 {
		sb.WriteString("\n- Never use these phrases: ")
		sb.WriteString(strings.Join(in.Rules.BannedPhrases, "; "))
	}
	if in.Rules.Energy == types.EnergyLow {
		sb.WriteString("\n- No exclamation marks.")
	}

	sb.WriteString("\n\nDRAFT:\n")
	sb.WriteString(in.Draft)
	sb.WriteString("\n\nTHEY ARE REPLYING TO:\n")
	sb.WriteString(strings.TrimSpace(in.Message))
	return sb.String()
}
