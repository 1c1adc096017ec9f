package types

// ReplyRequest is the top-level input to the pipeline.
type ReplyRequest struct {
	UserID    string `json:"user_id"`
	PersonaID string `json:"persona_id"`
	Message   string `json:"message"`
}

// RankedCandidate is a per-request scoring record for one candidate reply.
type RankedCandidate struct {
	Text          string  `json:"text"`
	StyleScore    float64 `json:"style_score"`
	LengthPenalty float64 `json:"length_penalty"`
	CriticPass    bool    `json:"critic_pass"`
	Banned        bool    `json:"banned"`
	FinalScore    float64 `json:"final_score"`
}

// ReplyDebug carries the realized pipeline state for inspection.
type ReplyDebug struct {
	Rules       SpeakingRules      `json:"rules"`
	Fingerprint PersonaFingerprint `json:"fingerprint"`
	Language    Language           `json:"language"`
	Situation   Situation          `json:"situation"`
	Candidates  []RankedCandidate  `json:"candidates"`
}

// ReplyResponse is the pipeline's terminal result.
type ReplyResponse struct {
	ReplyID  string     `json:"reply_id"`
	Text     string     `json:"reply"`
	Fallback bool       `json:"fallback"`
	Debug    ReplyDebug `json:"debug"`
}
