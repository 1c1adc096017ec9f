// Package persona derives the stylistic fingerprint and the concrete
// speaking rules a reply must satisfy.
package persona

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/astralinkhq/astralink/internal/llm"
	"github.com/astralinkhq/astralink/internal/types"
)

const (
	maxCorpusExamples = 20
	maxCorpusChars    = 4000
)

const fingerprintInstruction = `You analyze how a specific person writes.
Given sample messages written by that person, extract their stylistic fingerprint.

Return a valid JSON object with exactly these keys:
- "sentence_templates": up to 3 short skeletons of how they open or shape sentences
- "filler_words": words they pad sentences with
- "common_phrases": expressions they repeat verbatim
- "language_preference": "english", "greek" or "mixed"
- "typical_length": "short", "medium" or "long"
- "energy": "low", "medium" or "high"

Do not include any text outside the JSON object.`

// FingerprintBuilder derives a persona's stylistic fingerprint from its
// style example corpus. Build is total: any service or parse failure
// degrades to a deterministic profile-derived fallback.
type FingerprintBuilder struct {
	completer llm.Completer
}

// NewFingerprintBuilder returns a FingerprintBuilder.
func NewFingerprintBuilder(completer llm.Completer) *FingerprintBuilder {
	return &FingerprintBuilder{completer: completer}
}

type fingerprintPayload struct {
	SentenceTemplates  []string `json:"sentence_templates"`
	FillerWords        []string `json:"filler_words"`
	CommonPhrases      []string `json:"common_phrases"`
	LanguagePreference string   `json:"language_preference"`
	TypicalLength      string   `json:"typical_length"`
	Energy             string   `json:"energy"`
}

// Build derives the fingerprint for a profile.
func (b *FingerprintBuilder) Build(ctx context.Context, profile *types.PersonaProfile) types.PersonaFingerprint {
	corpus := buildCorpus(profile.StyleExamples)
	if corpus == "" {
		return deriveFallbackFingerprint(profile)
	}

	instruction := fmt.Sprintf("%s\n\nSAMPLE MESSAGES:\n%s", fingerprintInstruction, corpus)
	raw, err := b.completer.Complete(ctx, instruction, 0, 300)
	if err != nil {
		slog.Warn("fingerprint derivation failed, using fallback", "error", err.Error(), "persona_id", profile.ID)
		return deriveFallbackFingerprint(profile)
	}

	var payload fingerprintPayload
	if err := llm.ExtractJSON(raw, &payload); err != nil {
		slog.Warn("fingerprint response unparseable, using fallback", "error", err.Error(), "persona_id", profile.ID)
		return deriveFallbackFingerprint(profile)
	}

	fallback := deriveFallbackFingerprint(profile)
	fp := types.PersonaFingerprint{
		SentenceTemplates:  trimmedList(payload.SentenceTemplates, 3),
		FillerWords:        trimmedList(payload.FillerWords, 5),
		CommonPhrases:      trimmedList(payload.CommonPhrases, 5),
		LanguagePreference: normalizeLanguageMode(payload.LanguagePreference, fallback.LanguagePreference),
		TypicalLength:      normalizeLength(payload.TypicalLength, fallback.TypicalLength),
		Energy:             normalizeEnergy(payload.Energy, fallback.Energy),
	}
	if len(fp.SentenceTemplates) == 0 {
		fp.SentenceTemplates = fallback.SentenceTemplates
	}
	if len(fp.CommonPhrases) == 0 {
		fp.CommonPhrases = fallback.CommonPhrases
	}
	return fp
}

// deriveFallbackFingerprint builds a fingerprint from the profile alone.
// It is deterministic so the pipeline never blocks on a missing fingerprint.
func deriveFallbackFingerprint(profile *types.PersonaProfile) types.PersonaFingerprint {
	templates := trimmedList(profile.StyleExamples, 3)
	if len(templates) == 0 {
		templates = trimmedList(profile.Catchphrases, 3)
	}
	if len(templates) == 0 {
		templates = []string{"Listen, here is what I think."}
	}

	return types.PersonaFingerprint{
		SentenceTemplates:  templates,
		FillerWords:        nil,
		CommonPhrases:      trimmedList(profile.Catchphrases, 5),
		LanguagePreference: LanguageModeFromCode(profile.Language),
		TypicalLength:      normalizeLength(profile.Tone.TypicalLength, types.LengthMedium),
		Energy:             normalizeEnergy(profile.Tone.Energy, types.EnergyMedium),
		Fallback:           true,
	}
}

// LanguageModeFromCode maps a profile language code to a rules-level mode.
func LanguageModeFromCode(code string) types.LanguageMode {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "el", "gr", "greek":
		return types.LanguageModeGreek
	case "mixed", "both":
		return types.LanguageModeMixed
	default:
		return types.LanguageModeEnglish
	}
}

func buildCorpus(examples []string) string {
	var sb strings.Builder
	count := 0
	for _, example := range examples {
		clean := strings.TrimSpace(example)
		if clean == "" {
			continue
		}
		if count >= maxCorpusExamples || sb.Len()+len(clean) > maxCorpusChars {
			break
		}
		if count > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString("- ")
		sb.WriteString(clean)
		count++
	}
	return sb.String()
}

func trimmedList(items []string, limit int) []string {
	var results []string
	for _, item := range items {
		clean := strings.TrimSpace(item)
		if clean == "" {
			continue
		}
		results = append(results, clean)
		if len(results) == limit {
			break
		}
	}
	return results
}

func normalizeLanguageMode(value string, fallback types.LanguageMode) types.LanguageMode {
	switch types.LanguageMode(strings.ToLower(strings.TrimSpace(value))) {
	case types.LanguageModeEnglish:
		return types.LanguageModeEnglish
	case types.LanguageModeGreek:
		return types.LanguageModeGreek
	case types.LanguageModeMixed:
		return types.LanguageModeMixed
	default:
		return fallback
	}
}

func normalizeLength(value, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case types.LengthShort:
		return types.LengthShort
	case types.LengthMedium, "moderate":
		return types.LengthMedium
	case types.LengthLong, "verbose":
		return types.LengthLong
	default:
		return fallback
	}
}

func normalizeEnergy(value, fallback string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case types.EnergyLow, "calm", "quiet":
		return types.EnergyLow
	case types.EnergyMedium:
		return types.EnergyMedium
	case types.EnergyHigh, "intense":
		return types.EnergyHigh
	default:
		return fallback
	}
}
