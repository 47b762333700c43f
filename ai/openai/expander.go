package openai

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/poiesic/vitae/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// QueryExpander implements ai.QueryExpander with an OpenAI-compatible chat model.
type QueryExpander struct {
	client llms.Model
	max    int
	logger *slog.Logger
}

type expansionResponse struct {
	Expansions []string `json:"expansions"`
}

// newQueryExpander creates a new expander (internal use, returns concrete type).
func newQueryExpander(config *ai.Config) (*QueryExpander, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ExpanderHost),
		openai.WithToken(config.APIKey),
		openai.WithModel(config.ExpanderModel),
	)
	if err != nil {
		return nil, err
	}

	return &QueryExpander{
		client: client,
		max:    config.MaxExpansions,
		logger: slog.Default().With("component", "openai-expander"),
	}, nil
}

// NewQueryExpander creates a new LLM backed query expander.
func NewQueryExpander(config *ai.Config) (ai.QueryExpander, error) {
	return newQueryExpander(config)
}

// Expand asks the model for related phrasings of query.
func (e *QueryExpander) Expand(ctx context.Context, query string) ([]string, error) {
	cleaned := scrubString(query)
	if cleaned == "" {
		return nil, ai.ErrEmptyInput
	}

	content := []llms.MessageContent{
		{
			Role:  llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{llms.TextPart(buildSystemPrompt(e.max))},
		},
		{
			Role:  llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{llms.TextPart(cleaned)},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result expansionResponse
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := e.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			e.logger.Error("failed to generate content", "attempt", attempt+1, "err", err)
			return nil, err
		}
		if len(response.Choices) < 1 {
			e.logger.Debug("no choices returned from model")
			return nil, nil
		}

		responseText := stripFences(response.Choices[0].Content)
		if err := json.Unmarshal([]byte(repairJSON(responseText)), &result); err != nil {
			lastErr = err
			e.logger.Warn("error parsing expander response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}
		lastErr = nil
		break
	}
	if lastErr != nil {
		return nil, lastErr
	}

	expansions := filterExpansions(query, result.Expansions, e.max)
	e.logger.Debug("expanded query", "proposed", len(result.Expansions), "kept", len(expansions))
	return expansions, nil
}

// filterExpansions trims and lowercases candidates, dropping blanks,
// duplicates and restatements of the query, and keeps at most max.
func filterExpansions(query string, candidates []string, max int) []string {
	seen := map[string]bool{strings.ToLower(scrubString(query)): true}
	var out []string
	for _, c := range candidates {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" || seen[c] || seen[scrubString(c)] {
			continue
		}
		seen[c] = true
		out = append(out, c)
		if len(out) == max {
			break
		}
	}
	return out
}
