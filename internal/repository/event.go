package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"github.com/astralinkhq/astralink/internal/types"
)

// eventModel maps to the events table.
type eventModel struct {
	ID        int
	PersonaID string
	UserID    string
	Situation string
	Trigger   string
	Reaction  string
	// Phrases/Entities are stored as JSONB.
	Phrases   json.RawMessage `gorm:"type:jsonb"`
	Entities  json.RawMessage `gorm:"type:jsonb"`
	Emotion   string
	Embedding *pgvector.Vector `gorm:"type:vector"`
	CreatedAt time.Time
}

func (eventModel) TableName() string {
	return "events"
}

// EventRepo accesses the structured event corpus.
type EventRepo struct {
	db *gorm.DB
}

// NewEventRepo returns an EventRepo.
func NewEventRepo(db *gorm.DB) *EventRepo {
	return &EventRepo{db: db}
}

// AddEvent appends one event record. Records are never updated.
func (r *EventRepo) AddEvent(ctx context.Context, event types.EventMemory) error {
	var vector *pgvector.Vector
	if len(event.Embedding) > 0 {
		v := pgvector.NewVector(event.Embedding)
		vector = &v
	}
	phrases, err := marshalJSON(event.Phrases)
	if err != nil {
		return fmt.Errorf("failed to encode event phrases: %w", err)
	}
	entities, err := marshalJSON(event.Entities)
	if err != nil {
		return fmt.Errorf("failed to encode event entities: %w", err)
	}
	record := eventModel{
		PersonaID: event.PersonaID,
		UserID:    event.UserID,
		Situation: string(event.Situation),
		Trigger:   event.Trigger,
		Reaction:  event.Reaction,
		Phrases:   phrases,
		Entities:  entities,
		Emotion:   event.Emotion,
		Embedding: vector,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// SearchSimilar ranks events of one (persona, user) pair by cosine
// similarity. Events stored under the wildcard "other" situation match
// every filter.
func (r *EventRepo) SearchSimilar(ctx context.Context, personaID, userID string, situation types.Situation, embedding []float32, topK int, threshold float64) ([]types.RetrievedEvent, error) {
	if len(embedding) == 0 {
		return nil, nil
	}

	query := `
		SELECT situation, trigger, reaction, emotion,
		       1 - (embedding <=> $1) AS similarity, created_at
		FROM events
		WHERE embedding IS NOT NULL
		  AND 1 - (embedding <=> $1) > $2
		  AND persona_id = $3
		  AND user_id = $4
		  AND (situation = $5 OR situation = $6)
		ORDER BY similarity DESC
		LIMIT $7`

	var results []types.RetrievedEvent
	if err := r.db.WithContext(ctx).
		Raw(query, pgvector.NewVector(embedding), threshold, personaID, userID, string(situation), string(types.SituationOther), topK).
		Scan(&results).Error; err != nil {
		return nil, fmt.Errorf("failed to search similar events: %w", err)
	}
	return results, nil
}

// marshalJSON encodes a value into JSONB, returning nil for empty values.
func marshalJSON(value any) (json.RawMessage, error) {
	if value == nil {
		return nil, nil
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	return json.RawMessage(raw), nil
}

// unmarshalJSON decodes JSONB into the provided target.
func unmarshalJSON(data json.RawMessage, target any) error {
	if len(data) == 0 {
		return nil
	}
	return json.Unmarshal(data, target)
}
