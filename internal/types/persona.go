package types

import "time"

// Language is a resolved reply language.
type Language string

const (
	LanguageEnglish Language = "english"
	LanguageGreek   Language = "greek"
)

// LanguageMode is the rules-level language policy.
type LanguageMode string

const (
	// LanguageModeEnglish forces English replies.
	LanguageModeEnglish LanguageMode = "english"
	// LanguageModeGreek forces Greek replies.
	LanguageModeGreek LanguageMode = "greek"
	// LanguageModeMixed follows the language the user writes in.
	LanguageModeMixed LanguageMode = "mixed"
)

// Energy levels used by rules and fingerprints.
const (
	EnergyLow    = "low"
	EnergyMedium = "medium"
	EnergyHigh   = "high"
)

// Typical reply lengths used by fingerprints and profile tone.
const (
	LengthShort  = "short"
	LengthMedium = "medium"
	LengthLong   = "long"
)

// Tone describes how a persona carries themselves in conversation.
type Tone struct {
	Energy        string `json:"energy"`
	Warmth        string `json:"warmth"`
	Humor         string `json:"humor"`
	TypicalLength string `json:"typical_length"`
}

// PersonaProfile is the compiled description of the person being imitated.
// It is produced by an external profile-compiling flow and is read-only here.
type PersonaProfile struct {
	ID            string    `json:"id"`
	UserID        string    `json:"user_id"`
	Name          string    `json:"name"`
	Relationship  string    `json:"relationship"`
	Language      string    `json:"language"` // "en", "el" or "mixed"
	Formality     string    `json:"formality"`
	Tone          Tone      `json:"tone"`
	Catchphrases  []string  `json:"catchphrases"`
	LovedTopics   []string  `json:"loved_topics"`
	AvoidedTopics []string  `json:"avoided_topics"`
	ResponseRules []string  `json:"response_rules"`
	BannedPhrases []string  `json:"banned_phrases"`
	Markers       []string  `json:"markers"`
	StyleExamples []string  `json:"style_examples"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// PersonaFingerprint is the derived stylistic signature of a persona.
// It is always resolvable: when derivation fails a deterministic fallback
// built from the profile alone is substituted.
type PersonaFingerprint struct {
	SentenceTemplates  []string     `json:"sentence_templates"`
	FillerWords        []string     `json:"filler_words"`
	CommonPhrases      []string     `json:"common_phrases"`
	LanguagePreference LanguageMode `json:"language_preference"`
	TypicalLength      string       `json:"typical_length"`
	Energy             string       `json:"energy"`
	// Fallback marks fingerprints produced by the rule-based path.
	Fallback bool `json:"fallback"`
}

// SpeakingRules are the hard constraints a reply must satisfy.
// They are recomputed per request and never mutated in place.
type SpeakingRules struct {
	MaxSentences    int          `json:"max_sentences"`
	MaxTokens       int          `json:"max_tokens"`
	ForbidQuestions bool         `json:"forbid_questions"`
	DefaultLanguage LanguageMode `json:"default_language"`
	Energy          string       `json:"energy"`
	BannedPhrases   []string     `json:"banned_phrases"`
	RequiredMarkers []string     `json:"required_markers"`
}

// Overrides are request-scoped augmentations derived from feedback.
// They are never persisted back onto the base profile.
type Overrides struct {
	LengthMultiplier float64 `json:"length_multiplier"`
	StrictCritic     bool    `json:"strict_critic"`
	LowerEnergy      bool    `json:"lower_energy"`
}

// NeutralOverrides leave the derived rules untouched.
func NeutralOverrides() Overrides {
	return Overrides{LengthMultiplier: 1.0}
}
