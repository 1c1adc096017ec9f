package types

import "time"

// Situation is a coarse classification of what a user message is about,
// used to filter relevant past events.
type Situation string

const (
	SituationGreeting  Situation = "greeting"
	SituationGoodNews  Situation = "good_news"
	SituationEmotional Situation = "emotional"
	SituationComplex   Situation = "complex"
	// SituationOther acts as a wildcard on the query side: events stored
	// under it match every situation filter.
	SituationOther Situation = "other"
)

// Memory is a free-form remembered fact scoped to (persona, user).
// Records are write-once and queried only by similarity.
type Memory struct {
	ID        int       `json:"id"`
	PersonaID string    `json:"persona_id"`
	UserID    string    `json:"user_id"`
	Text      string    `json:"text"`
	Source    string    `json:"source"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// EventMemory is a structured record of a past interaction.
type EventMemory struct {
	ID        int       `json:"id"`
	PersonaID string    `json:"persona_id"`
	UserID    string    `json:"user_id"`
	Situation Situation `json:"situation"`
	Trigger   string    `json:"trigger"`
	Reaction  string    `json:"reaction"`
	Phrases   []string  `json:"phrases"`
	Emotion   string    `json:"emotion"`
	Entities  []string  `json:"entities"`
	Embedding []float32 `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// RetrievedMemory is a similarity-search hit from the memory corpus.
type RetrievedMemory struct {
	Text       string    `json:"text"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}

// RetrievedEvent is a similarity-search hit from the event corpus.
type RetrievedEvent struct {
	Situation  Situation `json:"situation"`
	Trigger    string    `json:"trigger"`
	Reaction   string    `json:"reaction"`
	Emotion    string    `json:"emotion"`
	Similarity float64   `json:"similarity"`
	CreatedAt  time.Time `json:"created_at"`
}

// Rating is a thumbs up/down judgement on a reply.
type Rating string

const (
	RatingUp   Rating = "up"
	RatingDown Rating = "down"
)

// Feedback tags understood by the adaptation engine.
const (
	FeedbackTagTooLong     = "too_long"
	FeedbackTagGeneric     = "generic"
	FeedbackTagNotLikeThem = "not_like_them"
	FeedbackTagTooIntense  = "too_intense"
)

// Feedback is an append-only user judgement on a generated reply.
type Feedback struct {
	ID        int       `json:"id"`
	UserID    string    `json:"user_id"`
	PersonaID string    `json:"persona_id"`
	ReplyID   string    `json:"reply_id"`
	Rating    Rating    `json:"rating"`
	Tags      []string  `json:"tags"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"created_at"`
}
