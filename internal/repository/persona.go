package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/astralinkhq/astralink/internal/types"
)

// personaModel maps to the personas table.
type personaModel struct {
	ID           string
	UserID       string
	Name         string
	Relationship string
	Language     string
	Formality    string
	// Tone and the list fields are stored as JSONB.
	Tone          json.RawMessage `gorm:"type:jsonb"`
	Catchphrases  json.RawMessage `gorm:"type:jsonb"`
	LovedTopics   json.RawMessage `gorm:"type:jsonb"`
	AvoidedTopics json.RawMessage `gorm:"type:jsonb"`
	ResponseRules json.RawMessage `gorm:"type:jsonb"`
	BannedPhrases json.RawMessage `gorm:"type:jsonb"`
	Markers       json.RawMessage `gorm:"type:jsonb"`
	StyleExamples json.RawMessage `gorm:"type:jsonb"`
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (personaModel) TableName() string {
	return "personas"
}

// PersonaRepo accesses compiled persona profiles. Profiles are written by
// the external profile-compiling flow and read-only here.
type PersonaRepo struct {
	db *gorm.DB
}

// NewPersonaRepo returns a PersonaRepo.
func NewPersonaRepo(db *gorm.DB) *PersonaRepo {
	return &PersonaRepo{db: db}
}

// Load fetches the profile for a (user, persona) pair.
func (r *PersonaRepo) Load(ctx context.Context, userID, personaID string) (*types.PersonaProfile, error) {
	var record personaModel
	if err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", personaID, userID).
		First(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to load persona %s: %w", personaID, err)
	}
	return personaFromModel(record)
}

func personaFromModel(record personaModel) (*types.PersonaProfile, error) {
	profile := types.PersonaProfile{
		ID:           record.ID,
		UserID:       record.UserID,
		Name:         record.Name,
		Relationship: record.Relationship,
		Language:     record.Language,
		Formality:    record.Formality,
		CreatedAt:    record.CreatedAt,
		UpdatedAt:    record.UpdatedAt,
	}
	if err := unmarshalJSON(record.Tone, &profile.Tone); err != nil {
		return nil, fmt.Errorf("failed to decode persona tone: %w", err)
	}
	_ = unmarshalJSON(record.Catchphrases, &profile.Catchphrases)
	_ = unmarshalJSON(record.LovedTopics, &profile.LovedTopics)
	_ = unmarshalJSON(record.AvoidedTopics, &profile.AvoidedTopics)
	_ = unmarshalJSON(record.ResponseRules, &profile.ResponseRules)
	_ = unmarshalJSON(record.BannedPhrases, &profile.BannedPhrases)
	_ = unmarshalJSON(record.Markers, &profile.Markers)
	_ = unmarshalJSON(record.StyleExamples, &profile.StyleExamples)
	return &profile, nil
}
