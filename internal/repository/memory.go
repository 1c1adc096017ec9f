package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/astralinkhq/astralink/internal/types"
)

// memoryModel maps to the memories table.
type memoryModel struct {
	ID        int
	PersonaID string
	UserID    string
	Text      string
	Source    string
	// Embedding stores the vector representation for similarity search.
	Embedding *pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time
}

func (memoryModel) TableName() string {
	return "memories"
}

// MemoryRepo accesses the free-form memory corpus.
type MemoryRepo struct {
	db *gorm.DB
}

// NewMemoryRepo returns a MemoryRepo.
func NewMemoryRepo(db *gorm.DB) *MemoryRepo {
	return &MemoryRepo{db: db}
}

// AddMemory appends one memory record. Records are never updated.
func (r *MemoryRepo) AddMemory(ctx context.Context, mem types.Memory) error {
	var vector *pgvector.Vector
	if len(mem.Embedding) > 0 {
		v := pgvector.NewVector(mem.Embedding)
		vector = &v
	}
	record := memoryModel{
		PersonaID: mem.PersonaID,
		UserID:    mem.UserID,
		Text:      mem.Text,
		Source:    mem.Source,
		Embedding: vector,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert memory: %w", err)
	}
	return nil
}

// SearchSimilar ranks memories of one (persona, user) pair by cosine
// similarity to the query embedding.
func (r *MemoryRepo) SearchSimilar(ctx context.Context, personaID, userID string, embedding []float32, topK int, threshold float64) ([]types.RetrievedMemory, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	query := `
		SELECT text, 1 - (embedding <=> $1) AS similarity, created_at
		FROM memories
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $2
		  AND persona_id = $3
		  AND user_id = $4
		ORDER BY similarity DESC
		LIMIT $5`

	var results []types.RetrievedMemory
	if err := r.db.WithContext(ctx).
		Raw(query, pgvector.NewVector(embedding), threshold, personaID, userID, topK).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to search similar memories: %w", err)
	}
	return results, nil
}

// Recent returns the newest memories for a (persona, user) pair.
func (r *MemoryRepo) Recent(ctx context.Context, personaID, userID string, limit int) ([]types.Memory, error) {
	var records []memoryModel
	if err := r.db.WithContext(ctx).
		Where("persona_id = ? AND user_id = ?", personaID, userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query recent memories: %w", err)
	}

	results := make([]types.Memory, 0, len(records))
	for _, record := range records {
		results = append(results, types.Memory{
			ID:        record.ID,
			PersonaID: record.PersonaID,
			UserID:    record.UserID,
			Text:      record.Text,
			Source:    record.Source,
			CreatedAt: record.CreatedAt,
		})
	}
	return results, nil
}
