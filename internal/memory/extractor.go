package memory

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/astralinkhq/astralink/internal/llm"
	"github.com/astralinkhq/astralink/internal/types"
)

// minSalience is the storage cutoff: exchanges scoring below it are
// considered small talk and never become memories.
const minSalience = 0.25

const extractorInstruction = `You distill one conversational exchange into durable memory.
Keep only what would matter weeks later.

Extract and retain:
1. Key events and decisions
2. Personal facts the user revealed (preferences, habits, names, dates)
3. Promises or agreements made by either side
4. Strong emotional moments

Return a valid JSON object with exactly these keys:
- "summary": one third-person sentence, or "" when nothing is worth keeping
- "facts": durable personal facts, verbatim where possible
- "commitments": promises made in this exchange
- "emotions": strong emotions expressed, single words

Do not include any text outside the JSON object.`

// ExchangeSummary is the distilled form of one exchange.
type ExchangeSummary struct {
	Summary     string   `json:"summary"`
	Facts       []string `json:"facts"`
	Commitments []string `json:"commitments"`
	Emotions    []string `json:"emotions"`
}

// Extractor turns finished exchanges into searchable memories. Extraction
// is always best effort: a failed call or a low-salience exchange simply
// stores nothing.
type Extractor struct {
	completer llm.Completer
	memories  MemoryRepo
	embedder  Embedder
}

// NewExtractor returns an Extractor.
func NewExtractor(completer llm.Completer, memories MemoryRepo, embedder Embedder) *Extractor {
	return &Extractor{completer: completer, memories: memories, embedder: embedder}
}

// Extract distills one exchange and stores it when salient enough.
func (e *Extractor) Extract(ctx context.Context, personaID, userID string, situation types.Situation, message, reply string) error {
	instruction := fmt.Sprintf("%s\n\nUSER: %s\nREPLY: %s", extractorInstruction, strings.TrimSpace(message), strings.TrimSpace(reply))
	raw, err := e.completer.Complete(ctx, instruction, 0, 300)
	if err != nil {
		return fmt.Errorf("memory extraction failed: %w", err)
	}

	var summary ExchangeSummary
	if err := llm.ExtractJSON(raw, &summary); err != nil {
		return fmt.Errorf("memory extraction unparseable: %w", err)
	}
	if strings.TrimSpace(summary.Summary) == "" {
		return nil
	}
	if ComputeSalience(summary, situation) < minSalience {
		return nil
	}

	text := buildMemoryText(summary)
	embedding, err := e.embedder.EmbedDocument(ctx, text)
	if err != nil {
		return fmt.Errorf("memory embedding failed: %w", err)
	}

	return e.memories.AddMemory(ctx, types.Memory{
		PersonaID: personaID,
		UserID:    userID,
		Text:      text,
		Source:    "exchange",
		Embedding: embedding,
	})
}

// ComputeSalience scores an exchange summary in [0,1] from deterministic
// signals, so identical exchanges always store or skip the same way.
func ComputeSalience(summary ExchangeSummary, situation types.Situation) float64 {
	score := 0.0

	if summary.Summary != "" {
		score += 0.10
	}

	factsCount := len(summary.Facts)
	if factsCount > 3 {
		factsCount = 3
	}
	score += float64(factsCount) * 0.15

	commitCount := len(summary.Commitments)
	if commitCount > 2 {
		commitCount = 2
	}
	score += float64(commitCount) * 0.20

	emotionCount := len(summary.Emotions)
	if emotionCount > 2 {
		emotionCount = 2
	}
	score += float64(emotionCount) * 0.10

	if utf8.RuneCountInString(summary.Summary) >= 100 {
		score += 0.05
	}

	switch situation {
	case types.SituationEmotional:
		score += 0.10
	case types.SituationGoodNews:
		score += 0.05
	}

	return clampScore(score)
}

func clampScore(score float64) float64 {
	if score != score || score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

// buildMemoryText joins the high-value fields into one searchable record.
func buildMemoryText(summary ExchangeSummary) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSpace(summary.Summary))
	appendList := func(title string, items []string) {
		if len(items) == 0 {
			return
		}
		sb.WriteString("\n")
		sb.WriteString(title)
		sb.WriteString(": ")
		for i, item := range items {
			if i > 0 {
				sb.WriteString(" ; ")
			}
			sb.WriteString(strings.TrimSpace(item))
		}
	}
	appendList("facts", summary.Facts)
	appendList("commitments", summary.Commitments)
	return sb.String()
}
