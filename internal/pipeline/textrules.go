// Package pipeline wires persona reply generation: content planning,
// style rewriting, critic gating, reranking, and the orchestrator.
package pipeline

import (
	"strings"

	"github.com/astralinkhq/astralink/internal/persona"
	"github.com/astralinkhq/astralink/internal/types"
)

// CountTokens counts whitespace-separated tokens.
func CountTokens(text string) int {
	return len(strings.Fields(text))
}

// SplitSentences splits text on terminal punctuation. The Greek question
// mark (the semicolon glyph) terminates sentences only in Greek text.
func SplitSentences(text string) []string {
	greekText := hasGreekRune(text)
	var sentences []string
	var sb strings.Builder
	flush := func() {
		if s := strings.TrimSpace(sb.String()); s != "" {
			sentences = append(sentences, s)
		}
		sb.Reset()
	}
	for _, r := range text {
		sb.WriteRune(r)
		switch r {
		case '.', '!', '?', '…':
			flush()
		case ';':
			if greekText {
				flush()
			}
		}
	}
	flush()
	return sentences
}

// ContainsQuestion reports whether the text asks a question. The semicolon
// counts only when the text is Greek, where it is the question mark.
func ContainsQuestion(text string) bool {
	if strings.Contains(text, "?") {
		return true
	}
	return hasGreekRune(text) && strings.Contains(text, ";")
}

// ContainsBannedPhrase reports whether the normalized text contains any of
// the normalized banned phrases.
func ContainsBannedPhrase(text string, banned []string) bool {
	normalized := persona.NormalizePhrase(text)
	for _, phrase := range banned {
		if phrase != "" && strings.Contains(normalized, phrase) {
			return true
		}
	}
	return false
}

// ContainsRequiredMarker reports whether at least one marker appears
// verbatim, case-insensitively. An empty marker list always passes.
func ContainsRequiredMarker(text string, markers []string) bool {
	if len(markers) == 0 {
		return true
	}
	lower := strings.ToLower(text)
	for _, marker := range markers {
		m := strings.ToLower(strings.TrimSpace(marker))
		if m != "" && strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// TruncateSentences keeps at most maxSentences sentences.
func TruncateSentences(text string, maxSentences int) string {
	if maxSentences <= 0 {
		return text
	}
	sentences := SplitSentences(text)
	if len(sentences) <= maxSentences {
		return strings.TrimSpace(text)
	}
	return strings.Join(sentences[:maxSentences], " ")
}

// TruncateTokens keeps at most maxTokens whitespace tokens, closing with a
// period when the cut leaves the text unterminated.
func TruncateTokens(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return text
	}
	fields := strings.Fields(text)
	if len(fields) <= maxTokens {
		return strings.TrimSpace(text)
	}
	truncated := strings.Join(fields[:maxTokens], " ")
	truncated = strings.TrimRight(truncated, ",;:")
	if !strings.HasSuffix(truncated, ".") && !strings.HasSuffix(truncated, "!") && !strings.HasSuffix(truncated, "?") {
		truncated += "."
	}
	return truncated
}

// PostProcess applies the deterministic cleanup every candidate goes
// through after generation: bullet stripping, whitespace collapsing,
// exclamation clipping for low energy, cap enforcement, and marker
// injection.
func PostProcess(text string, rules types.SpeakingRules) string {
	clean := text
	for _, ch := range []string{"—", "–", "•"} {
		clean = strings.ReplaceAll(clean, ch, " ")
	}
	clean = strings.Join(strings.Fields(clean), " ")
	if clean == "" {
		return ""
	}

	if rules.Energy == types.EnergyLow {
		clean = clipExclamations(clean)
	}

	clean = TruncateSentences(clean, rules.MaxSentences)
	clean = TruncateTokens(clean, rules.MaxTokens)

	if !ContainsRequiredMarker(clean, rules.RequiredMarkers) && len(rules.RequiredMarkers) > 0 {
		clean = injectMarker(clean, rules.RequiredMarkers[0])
		clean = TruncateTokens(clean, rules.MaxTokens)
	}
	return strings.TrimSpace(clean)
}

// clipExclamations replaces exclamation marks with periods.
func clipExclamations(text string) string {
	clean := strings.ReplaceAll(text, "!", ".")
	return strings.Join(strings.Fields(clean), " ")
}

// injectMarker prefixes the first required marker.
func injectMarker(text, marker string) string {
	marker = strings.TrimSpace(marker)
	if marker == "" {
		return text
	}
	return marker + ", " + lowerFirst(text)
}

func lowerFirst(text string) string {
	for i, r := range text {
		if r >= 'A' && r <= 'Z' {
			return strings.ToLower(string(r)) + text[i+1:]
		}
		break
	}
	return text
}

func hasGreekRune(text string) bool {
	for _, r := range text {
		if r >= 0x0370 && r <= 0x03FF {
			return true
		}
	}
	return false
}
