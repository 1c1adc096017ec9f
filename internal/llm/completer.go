// Package llm wraps the generative completion service used by every
// pipeline stage. The service is treated as unreliable: empty output and
// call failures are expected and handled by each caller.
package llm

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Completer produces free text from an instruction.
type Completer interface {
	Complete(ctx context.Context, instruction string, temperature float64, maxTokens int) (string, error)
}

// OpenAICompleter is the production Completer backed by an OpenAI
// compatible chat completion endpoint.
type OpenAICompleter struct {
	client *openai.Client
	model  string
}

// NewOpenAICompleter creates a completion client for the given model.
func NewOpenAICompleter(apiKey, modelName string) (*OpenAICompleter, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if modelName == "" {
		return nil, fmt.Errorf("model name cannot be empty")
	}

	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAICompleter{
		client: &client,
		model:  modelName,
	}, nil
}

// Complete issues one chat completion and returns the trimmed text.
func (c *OpenAICompleter) Complete(ctx context.Context, instruction string, temperature float64, maxTokens int) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(instruction),
		},
		Temperature: openai.Float(temperature),
	}
	if maxTokens > 0 {
		params.MaxCompletionTokens = openai.Int(int64(maxTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		slog.Error("failed to call completion API", "error", err.Error(), "model", c.model)
		return "", fmt.Errorf("failed to call completion API: %w", err)
	}
	if resp == nil || len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
