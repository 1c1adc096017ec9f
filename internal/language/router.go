// Package language resolves the reply target language and polices the
// language mix of candidate replies.
package language

import (
	"strings"

	"github.com/astralinkhq/astralink/internal/types"
)

// offTargetThreshold is the tolerated share of off-target tokens before a
// reply counts as a language violation.
const offTargetThreshold = 0.20

// explicit request forms, checked against the lowercased message.
var englishRequests = []string{
	"reply in english",
	"answer in english",
	"in english please",
	"στα αγγλικά",
}

var greekRequests = []string{
	"reply in greek",
	"answer in greek",
	"in greek please",
	"στα ελληνικά",
	"απάντησε ελληνικά",
}

// Choose resolves the reply's target language from an explicit request in
// the message, the detected message language, and the rules' default.
func Choose(rules types.SpeakingRules, message string) types.Language {
	lower := strings.ToLower(message)
	for _, req := range englishRequests {
		if strings.Contains(lower, req) {
			return types.LanguageEnglish
		}
	}
	for _, req := range greekRequests {
		if strings.Contains(lower, req) {
			return types.LanguageGreek
		}
	}

	detected, ambiguous := detect(message)

	switch rules.DefaultLanguage {
	case types.LanguageModeGreek:
		return types.LanguageGreek
	case types.LanguageModeEnglish:
		return types.LanguageEnglish
	default:
		// Mixed mode follows the user, defaulting to English when
		// detection is ambiguous.
		if ambiguous {
			return types.LanguageEnglish
		}
		return detected
	}
}

// Violates reports whether too much of the text is in the wrong language.
// It never fails an empty or script-ambiguous text.
func Violates(text string, target types.Language) bool {
	greek, latin := countScriptTokens(text)
	total := greek + latin
	if total == 0 {
		return false
	}

	var offTarget int
	switch target {
	case types.LanguageGreek:
		offTarget = latin
	default:
		offTarget = greek
	}
	return float64(offTarget)/float64(total) > offTargetThreshold
}

// detect counts script-classified tokens to find the dominant language.
func detect(text string) (types.Language, bool) {
	greek, latin := countScriptTokens(text)
	if greek == latin {
		return types.LanguageEnglish, true
	}
	if greek > latin {
		return types.LanguageGreek, false
	}
	return types.LanguageEnglish, false
}

// countScriptTokens classifies whitespace tokens by script. A token with
// any Greek letter counts as Greek, otherwise any Latin letter counts as
// Latin; tokens with neither are ignored.
func countScriptTokens(text string) (greek, latin int) {
	for _, token := range strings.Fields(text) {
		switch {
		case containsGreek(token):
			greek++
		case containsLatin(token):
			latin++
		}
	}
	return greek, latin
}

func containsGreek(token string) bool {
	for _, r := range token {
		if (r >= 'α' && r <= 'ω') || (r >= 'Α' && r <= 'Ω') || r == 'ς' || r == 'ί' || r == 'ό' || r == 'ή' || r == 'έ' || r == 'ύ' || r == 'ώ' || r == 'ά' {
			return true
		}
	}
	return false
}

func containsLatin(token string) bool {
	for _, r := range token {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return true
		}
	}
	return false
}
