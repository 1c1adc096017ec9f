package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/astralinkhq/astralink/internal/types"
)

// feedbackModel maps to the feedback table.
type feedbackModel struct {
	ID        int
	UserID    string
	PersonaID string
	ReplyID   string
	Rating    string
	Tags      json.RawMessage `gorm:"type:jsonb"`
	Comment   string
	CreatedAt time.Time
}

func (feedbackModel) TableName() string {
	return "feedback"
}

// FeedbackRepo accesses reply feedback.
type FeedbackRepo struct {
	db *gorm.DB
}

// NewFeedbackRepo returns a FeedbackRepo.
func NewFeedbackRepo(db *gorm.DB) *FeedbackRepo {
	return &FeedbackRepo{db: db}
}

// Append stores one feedback record. Records are never updated.
func (r *FeedbackRepo) Append(ctx context.Context, fb types.Feedback) error {
	tags, err := marshalJSON(fb.Tags)
	if err != nil {
		return fmt.Errorf("failed to encode feedback tags: %w", err)
	}
	record := feedbackModel{
		UserID:    fb.UserID,
		PersonaID: fb.PersonaID,
		ReplyID:   fb.ReplyID,
		Rating:    string(fb.Rating),
		Tags:      tags,
		Comment:   fb.Comment,
	}
	if err := r.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("failed to insert feedback: %w", err)
	}
	return nil
}

// QueryByPersona returns all feedback recorded for a persona.
func (r *FeedbackRepo) QueryByPersona(ctx context.Context, personaID string) ([]types.Feedback, error) {
	var records []feedbackModel
	if err := r.db.WithContext(ctx).
		Where("persona_id = ?", personaID).
		Order("created_at ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}

	results := make([]types.Feedback, 0, len(records))
	for _, record := range records {
		fb := types.Feedback{
			ID:        record.ID,
			UserID:    record.UserID,
			PersonaID: record.PersonaID,
			ReplyID:   record.ReplyID,
			Rating:    types.Rating(record.Rating),
			Comment:   record.Comment,
			CreatedAt: record.CreatedAt,
		}
		_ = unmarshalJSON(record.Tags, &fb.Tags)
		results = append(results, fb)
	}
	return results, nil
}
