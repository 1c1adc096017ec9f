package pipeline

import (
	"context"
	"log/slog"
	"math"
	"sync"

	"github.com/astralinkhq/astralink/internal/memory"
	"github.com/astralinkhq/astralink/internal/types"
)

const maxCentroidExamples = 10

// CentroidCache memoizes the embedding centroid of each persona's style
// examples for the process lifetime. Concurrent first access may compute
// the centroid redundantly; the result is idempotent so the last write
// wins without a real lock around the computation.
type CentroidCache struct {
	mu        sync.RWMutex
	byPersona map[string][]float32
}

// NewCentroidCache returns an empty cache.
func NewCentroidCache() *CentroidCache {
	return &CentroidCache{byPersona: make(map[string][]float32)}
}

// Get returns the style centroid for a persona, computing and caching it
// on first access. A missing corpus or embedding failure yields no
// centroid, and the failure is not cached.
func (c *CentroidCache) Get(ctx context.Context, embedder memory.Embedder, profile *types.PersonaProfile) ([]float32, bool) {
	c.mu.RLock()
	centroid, ok := c.byPersona[profile.ID]
	c.mu.RUnlock()
	if ok {
		return centroid, true
	}

	examples := profile.StyleExamples
	if len(examples) == 0 {
		return nil, false
	}
	if len(examples) > maxCentroidExamples {
		examples = examples[:maxCentroidExamples]
	}

	vectors, err := embedder.EmbedDocuments(ctx, examples)
	if err != nil || len(vectors) == 0 {
		if err != nil {
			slog.Warn("style centroid embedding failed", "error", err.Error(), "persona_id", profile.ID)
		}
		return nil, false
	}

	centroid = meanVector(vectors)
	if centroid == nil {
		return nil, false
	}

	c.mu.Lock()
	c.byPersona[profile.ID] = centroid
	c.mu.Unlock()
	return centroid, true
}

// Invalidate drops a persona's centroid, for when its example corpus
// changes.
func (c *CentroidCache) Invalidate(personaID string) {
	c.mu.Lock()
	delete(c.byPersona, personaID)
	c.mu.Unlock()
}

func meanVector(vectors [][]float32) []float32 {
	dims := 0
	for _, vec := range vectors {
		if len(vec) > 0 {
			dims = len(vec)
			break
		}
	}
	if dims == 0 {
		return nil
	}

	mean := make([]float32, dims)
	count := 0
	for _, vec := range vectors {
		if len(vec) != dims {
			continue
		}
		for i, v := range vec {
			mean[i] += v
		}
		count++
	}
	if count == 0 {
		return nil
	}
	for i := range mean {
		mean[i] /= float32(count)
	}
	return mean
}

// CosineSimilarity computes cosine similarity between two vectors,
// returning 0 for mismatched or zero vectors.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
