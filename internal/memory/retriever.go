package memory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/astralinkhq/astralink/internal/types"
)

// MemoryRepo accesses the free-form memory corpus.
type MemoryRepo interface {
	AddMemory(ctx context.Context, mem types.Memory) error
	SearchSimilar(ctx context.Context, personaID, userID string, embedding []float32, topK int, threshold float64) ([]types.RetrievedMemory, error)
	Recent(ctx context.Context, personaID, userID string, limit int) ([]types.Memory, error)
}

// EventRepo accesses the structured event corpus.
type EventRepo interface {
	AddEvent(ctx context.Context, event types.EventMemory) error
	SearchSimilar(ctx context.Context, personaID, userID string, situation types.Situation, embedding []float32, topK int, threshold float64) ([]types.RetrievedEvent, error)
}

// keywordScanLimit bounds how many recent records the keyword fallback inspects.
const keywordScanLimit = 50

// Retriever runs similarity search against memories and events.
// Retrieval never fails the request: embedding or store trouble degrades
// to a keyword fallback and finally to an empty result set.
type Retriever struct {
	embedder  Embedder
	memories  MemoryRepo
	events    EventRepo
	topKMems  int
	topKEvts  int
	threshold float64
}

// NewRetriever creates a Retriever with defaulted limits.
func NewRetriever(embedder Embedder, memories MemoryRepo, events EventRepo, topKMems, topKEvts int, threshold float64) *Retriever {
	if topKMems <= 0 {
		topKMems = 5
	}
	if topKEvts <= 0 {
		topKEvts = 3
	}
	if threshold < 0 {
		threshold = 0
	}
	return &Retriever{
		embedder:  embedder,
		memories:  memories,
		events:    events,
		topKMems:  topKMems,
		topKEvts:  topKEvts,
		threshold: threshold,
	}
}

// Memories returns the top memories for the query, best effort.
func (r *Retriever) Memories(ctx context.Context, personaID, userID, query string) []types.RetrievedMemory {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil || len(vec) == 0 {
		if err != nil {
			slog.Warn("query embedding failed, falling back to keyword search", "error", err.Error(), "persona_id", personaID)
		}
		return r.keywordMemories(ctx, personaID, userID, query)
	}

	hits, err := r.memories.SearchSimilar(ctx, personaID, userID, vec, r.topKMems, r.threshold)
	if err != nil {
		slog.Warn("memory similarity search failed", "error", err.Error(), "persona_id", personaID)
		return nil
	}
	return hits
}

// Events returns the top past events matching the situation, best effort.
// Events stored under the "other" situation match any filter, which the
// store-side query handles.
func (r *Retriever) Events(ctx context.Context, personaID, userID string, situation types.Situation, query string) []types.RetrievedEvent {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil
	}

	vec, err := r.embedder.EmbedQuery(ctx, query)
	if err != nil || len(vec) == 0 {
		if err != nil {
			slog.Warn("query embedding failed, skipping event retrieval", "error", err.Error(), "persona_id", personaID)
		}
		return nil
	}

	hits, err := r.events.SearchSimilar(ctx, personaID, userID, situation, vec, r.topKEvts, r.threshold)
	if err != nil {
		slog.Warn("event similarity search failed", "error", err.Error(), "persona_id", personaID)
		return nil
	}
	return hits
}

// keywordMemories scores recent records by token overlap with the query.
func (r *Retriever) keywordMemories(ctx context.Context, personaID, userID, query string) []types.RetrievedMemory {
	recent, err := r.memories.Recent(ctx, personaID, userID, keywordScanLimit)
	if err != nil {
		slog.Warn("recent memory scan failed", "error", err.Error(), "persona_id", personaID)
		return nil
	}
	if len(recent) == 0 {
		return nil
	}

	queryTokens := tokenize(query)
	querySet := make(map[string]struct{}, len(queryTokens))
	for _, tok := range queryTokens {
		querySet[tok] = struct{}{}
	}
	lowerQuery := strings.ToLower(query)

	type scored struct {
		score float64
		mem   types.Memory
	}
	var candidates []scored
	for _, mem := range recent {
		if mem.Text == "" {
			continue
		}
		overlap := 0
		for _, tok := range tokenize(mem.Text) {
			if _, ok := querySet[tok]; ok {
				overlap++
			}
		}
		score := float64(overlap)
		if lowerQuery != "" && strings.Contains(strings.ToLower(mem.Text), lowerQuery) {
			score += 1.0
		}
		if score > 0 {
			candidates = append(candidates, scored{score: score, mem: mem})
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	// Insertion sort, the candidate set is tiny.
	for i := 1; i < len(candidates); i++ {
		for j := i; j > 0 && candidates[j].score > candidates[j-1].score; j-- {
			candidates[j], candidates[j-1] = candidates[j-1], candidates[j]
		}
	}

	limit := r.topKMems
	if limit > len(candidates) {
		limit = len(candidates)
	}
	results := make([]types.RetrievedMemory, 0, limit)
	for _, c := range candidates[:limit] {
		results = append(results, types.RetrievedMemory{
			Text:      c.mem.Text,
			CreatedAt: c.mem.CreatedAt,
		})
	}
	return results
}

func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !isWordRune(r)
	})
	tokens := fields[:0]
	for _, f := range fields {
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func isWordRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		return true
	case r >= 'α' && r <= 'ω', r >= 'Α' && r <= 'Ω':
		return true
	}
	return false
}

// CleanSnippet normalizes whitespace and truncates on a word boundary so
// retrieved text stays prompt-sized.
func CleanSnippet(text string, limit int) string {
	clean := strings.Join(strings.Fields(text), " ")
	if clean == "" || limit <= 0 || len(clean) <= limit {
		return clean
	}
	trimmed := clean[:limit]
	if idx := strings.LastIndex(trimmed, " "); idx > 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}
