package persona

import (
	"sort"
	"strings"

	"github.com/astralinkhq/astralink/internal/types"
)

// baseBannedPhrases is the fixed therapy-speak ban list. Every derived
// rule set carries it regardless of persona.
var baseBannedPhrases = []string{
	"i'm here for you",
	"i am here for you",
	"it's okay to feel",
	"it's okay to not be okay",
	"sending you strength",
	"sending love and light",
	"in spirit",
	"hold space",
	"i understand how you feel",
	"everything happens for a reason",
	"time heals all wounds",
	"my deepest condolences",
	"thoughts and prayers",
}

// questionSuppressionHints mark free-text rules that forbid questions.
var questionSuppressionHints = []string{
	"no questions",
	"don't ask",
	"dont ask",
	"never ask",
	"avoid questions",
	"avoid asking",
}

// DeriveRules turns a profile and fingerprint into concrete speaking rules.
// It is pure: identical inputs always yield identical rules.
func DeriveRules(profile *types.PersonaProfile, fp types.PersonaFingerprint) types.SpeakingRules {
	rules := types.SpeakingRules{}

	switch fp.TypicalLength {
	case types.LengthLong:
		rules.MaxSentences, rules.MaxTokens = 4, 160
	case types.LengthMedium:
		rules.MaxSentences, rules.MaxTokens = 3, 90
	default:
		rules.MaxSentences, rules.MaxTokens = 2, 45
	}

	rules.Energy = normalizeEnergy(fp.Energy, normalizeEnergy(profile.Tone.Energy, types.EnergyMedium))
	if rules.Energy == types.EnergyLow {
		if rules.MaxSentences > 2 {
			rules.MaxSentences = 2
		}
		if rules.MaxTokens > 45 {
			rules.MaxTokens = 45
		}
	}

	rules.ForbidQuestions = rules.Energy == types.EnergyLow || hasQuestionSuppression(profile.ResponseRules)

	if profile.Language != "" {
		rules.DefaultLanguage = LanguageModeFromCode(profile.Language)
	} else {
		rules.DefaultLanguage = fp.LanguagePreference
	}
	if rules.DefaultLanguage == "" {
		rules.DefaultLanguage = types.LanguageModeEnglish
	}

	rules.BannedPhrases = mergeBans(profile)

	if len(profile.Markers) > 0 {
		rules.RequiredMarkers = trimmedList(profile.Markers, 3)
	} else if len(fp.CommonPhrases) > 0 {
		rules.RequiredMarkers = []string{fp.CommonPhrases[0]}
	}

	return rules
}

// ApplyOverrides returns a copy of the rules adjusted by feedback-derived
// overrides. The input rules are never mutated.
func ApplyOverrides(rules types.SpeakingRules, ov types.Overrides) types.SpeakingRules {
	adjusted := rules
	if ov.LengthMultiplier > 0 && ov.LengthMultiplier != 1.0 {
		adjusted.MaxTokens = int(float64(adjusted.MaxTokens) * ov.LengthMultiplier)
		if adjusted.MaxTokens < 1 {
			adjusted.MaxTokens = 1
		}
	}
	if ov.LowerEnergy {
		adjusted.Energy = stepEnergyDown(adjusted.Energy)
		if adjusted.Energy == types.EnergyLow {
			if adjusted.MaxSentences > 2 {
				adjusted.MaxSentences = 2
			}
			if adjusted.MaxTokens > 45 {
				adjusted.MaxTokens = 45
			}
			adjusted.ForbidQuestions = true
		}
	}
	return adjusted
}

func stepEnergyDown(energy string) string {
	switch energy {
	case types.EnergyHigh:
		return types.EnergyMedium
	default:
		return types.EnergyLow
	}
}

func hasQuestionSuppression(responseRules []string) bool {
	for _, rule := range responseRules {
		lower := strings.ToLower(rule)
		for _, hint := range questionSuppressionHints {
			if strings.Contains(lower, hint) {
				return true
			}
		}
	}
	return false
}

// mergeBans unions the base ban list, persona-specific bans, and any
// "never say X" free-text rules, normalized and sorted for determinism.
func mergeBans(profile *types.PersonaProfile) []string {
	seen := make(map[string]struct{})
	add := func(phrase string) {
		clean := NormalizePhrase(phrase)
		if clean == "" {
			return
		}
		seen[clean] = struct{}{}
	}

	for _, phrase := range baseBannedPhrases {
		add(phrase)
	}
	for _, phrase := range profile.BannedPhrases {
		add(phrase)
	}
	for _, rule := range profile.ResponseRules {
		if phrase, ok := extractNeverSay(rule); ok {
			add(phrase)
		}
	}

	merged := make([]string, 0, len(seen))
	for phrase := range seen {
		merged = append(merged, phrase)
	}
	sort.Strings(merged)
	return merged
}

// extractNeverSay pulls the banned phrase out of a "never say X" rule.
func extractNeverSay(rule string) (string, bool) {
	lower := strings.ToLower(rule)
	idx := strings.Index(lower, "never say")
	if idx < 0 {
		return "", false
	}
	phrase := strings.TrimSpace(rule[idx+len("never say"):])
	phrase = strings.Trim(phrase, `"'.,!`)
	if phrase == "" {
		return "", false
	}
	return phrase, true
}

// NormalizePhrase lowercases and collapses whitespace so phrase matching
// is stable across the pipeline.
func NormalizePhrase(phrase string) string {
	return strings.Join(strings.Fields(strings.ToLower(phrase)), " ")
}
