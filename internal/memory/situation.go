package memory

import (
	"strings"

	"github.com/astralinkhq/astralink/internal/types"
)

var greetingPhrases = []string{
	"how are you",
	"miss you",
	"love you",
	"you there",
	"are you there",
	"hi",
	"hey",
	"hello",
	"good morning",
	"good night",
}

var emotionalKeywords = []string{
	"why",
	"hurt",
	"pain",
	"alone",
	"angry",
	"guilty",
	"regret",
	"grief",
	"broken",
	"can't breathe",
	"heavy",
	"cry",
	"loss",
	"empty",
	"afraid",
	"scared",
	"worried",
	"panic",
}

var goodNewsKeywords = []string{
	"got the job",
	"i passed",
	"promotion",
	"promoted",
	"we won",
	"i won",
	"engaged",
	"graduated",
	"great news",
	"good news",
}

// ClassifySituation maps a user message to a coarse situation type.
// The classification is rule based and deterministic; it only has to be
// good enough to filter the event corpus.
func ClassifySituation(message string) types.Situation {
	clean := strings.ToLower(strings.TrimSpace(message))
	if clean == "" {
		return types.SituationOther
	}

	for _, kw := range goodNewsKeywords {
		if strings.Contains(clean, kw) {
			return types.SituationGoodNews
		}
	}
	for _, kw := range emotionalKeywords {
		if strings.Contains(clean, kw) {
			return types.SituationEmotional
		}
	}

	words := len(strings.Fields(clean))
	if words <= 5 {
		for _, phrase := range greetingPhrases {
			if strings.Contains(clean, phrase) {
				return types.SituationGreeting
			}
		}
		return types.SituationGreeting
	}
	if words > 18 {
		return types.SituationComplex
	}
	return types.SituationOther
}
