package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/astralinkhq/astralink/internal/language"
	"github.com/astralinkhq/astralink/internal/llm"
	"github.com/astralinkhq/astralink/internal/types"
)

// Rejection reasons surfaced in debug output and tests.
const (
	RejectEmpty          = "empty"
	RejectAITell         = "ai_tell"
	RejectEmoji          = "emoji"
	RejectTooManySents   = "too_many_sentences"
	RejectTooManyTokens  = "too_many_tokens"
	RejectQuestion       = "question_forbidden"
	RejectLanguage       = "language_violation"
	RejectBannedPhrase   = "banned_phrase"
	RejectMissingMarker  = "missing_marker"
	RejectExclamation    = "exclamation_low_energy"
	RejectPoetic         = "poetic"
	RejectSaccharine     = "saccharine"
	RejectSemanticFailed = "semantic_failed"
)

// aiTellPhrases make a reply read like an assistant, not a person.
var aiTellPhrases = []string{
	"as an ai",
	"language model",
	"i'm here to help",
	"i am here to help",
	"how can i assist",
	"i cannot provide",
	"feel free to ask",
	"is there anything else",
	"i appreciate you sharing",
	"i'm sorry you're going through",
}

// extraBannedPhrases are checked on top of the rule-specific ban list.
var extraBannedPhrases = []string{
	"as someone who",
	"it is important to remember",
	"it's important to remember",
	"take a deep breath",
}

var poeticPattern = regexp.MustCompile(`(?i)\b(like a [a-z]+ in the|ocean of|tapestry|symphony of|dance of the|whisper(s|ing)? of)\b`)

var saccharinePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)everything (will|is going to) be (okay|ok|fine|alright)`),
	regexp.MustCompile(`(?i)you('re| are) (so |incredibly )?(strong|brave)`),
	regexp.MustCompile(`(?i)(so|very) proud of you`),
	regexp.MustCompile(`(?i)you('ve| have) got this`),
}

const criticInstruction = `You judge whether a candidate reply sounds like the specific person described, not like an AI assistant.

PERSON: %s (%s)
THEIR STYLE: energy %s, phrases: %s
THE USER SAID: %s
CANDIDATE REPLY: %s

Answer PASS if the candidate plausibly came from this person and fits the moment.
Answer FAIL otherwise. Answer with a single word.`

// CriticInput bundles everything one verdict needs.
type CriticInput struct {
	Profile     *types.PersonaProfile
	Fingerprint types.PersonaFingerprint
	Rules       types.SpeakingRules
	Message     string
	Candidate   string
	Target      types.Language
	Strict      bool
}

// Verdict is the critic's judgement on one candidate.
type Verdict struct {
	Pass   bool
	Reason string
}

// Critic is the two-phase reply gate: cheap deterministic checks first,
// then one semantic judgement call. Any service failure is a FAIL.
type Critic struct {
	completer llm.Completer
}

// NewCritic returns a Critic.
func NewCritic(completer llm.Completer) *Critic {
	return &Critic{completer: completer}
}

// Review gates one candidate, short-circuiting on the first failure.
func (c *Critic) Review(ctx context.Context, in CriticInput) Verdict {
	if reason := DeterministicCheck(in); reason != "" {
		return Verdict{Reason: reason}
	}
	return c.semanticCheck(ctx, in)
}

// DeterministicCheck runs the rule-based phase and returns the first
// rejection reason, or the empty string when all checks pass.
func DeterministicCheck(in CriticInput) string {
	text := strings.TrimSpace(in.Candidate)
	if text == "" {
		return RejectEmpty
	}
	lower := strings.ToLower(text)

	for _, phrase := range aiTellPhrases {
		if strings.Contains(lower, phrase) {
			return RejectAITell
		}
	}
	if containsEmoji(text) {
		return RejectEmoji
	}
	if len(SplitSentences(text)) > in.Rules.MaxSentences {
		return RejectTooManySents
	}
	if CountTokens(text) > in.Rules.MaxTokens {
		return RejectTooManyTokens
	}
	if in.Rules.ForbidQuestions && ContainsQuestion(text) {
		return RejectQuestion
	}
	if language.Violates(text, in.Target) {
		return RejectLanguage
	}
	if ContainsBannedPhrase(text, in.Rules.BannedPhrases) || ContainsBannedPhrase(text, extraBannedPhrases) {
		return RejectBannedPhrase
	}
	if !ContainsRequiredMarker(text, in.Rules.RequiredMarkers) {
		return RejectMissingMarker
	}
	if in.Rules.Energy == types.EnergyLow && strings.Contains(text, "!") {
		return RejectExclamation
	}
	if poeticPattern.MatchString(text) {
		return RejectPoetic
	}
	if in.Strict {
		for _, pattern := range saccharinePatterns {
			if pattern.MatchString(text) {
				return RejectSaccharine
			}
		}
	}
	return ""
}

func (c *Critic) semanticCheck(ctx context.Context, in CriticInput) Verdict {
	instruction := fmt.Sprintf(criticInstruction,
		in.Profile.Name,
		in.Profile.Relationship,
		in.Rules.Energy,
		strings.Join(in.Fingerprint.CommonPhrases, ", "),
		strings.TrimSpace(in.Message),
		strings.TrimSpace(in.Candidate),
	)

	raw, err := c.completer.Complete(ctx, instruction, 0, 8)
	if err != nil {
		slog.Warn("semantic critic call failed, rejecting candidate", "error", err.Error())
		return Verdict{Reason: RejectSemanticFailed}
	}
	if strings.Contains(strings.ToUpper(raw), "PASS") {
		return Verdict{Pass: true}
	}
	return Verdict{Reason: RejectSemanticFailed}
}

// containsEmoji reports whether the text carries pictographic codepoints.
func containsEmoji(text string) bool {
	for _, r := range text {
		switch {
		case r >= 0x1F300 && r <= 0x1FAFF:
			return true
		case r >= 0x2600 && r <= 0x27BF:
			return true
		case r == 0xFE0F:
			return true
		}
	}
	return false
}
