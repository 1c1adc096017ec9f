package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ExtractJSON locates the outermost JSON object in a model response and
// decodes it into target. Models routinely wrap JSON in prose or code
// fences, so only the brace window is decoded.
func ExtractJSON(raw string, target any) error {
	clean := strings.TrimSpace(raw)
	start := strings.Index(clean, "{")
	end := strings.LastIndex(clean, "}")
	if start < 0 || end <= start {
		return fmt.Errorf("no json object in response")
	}
	if err := json.Unmarshal([]byte(clean[start:end+1]), target); err != nil {
		return fmt.Errorf("failed to parse model json: %w", err)
	}
	return nil
}
