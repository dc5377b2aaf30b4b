package mailbox

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/swarmhive/swarmhive/internal/errs"
)

// AnthropicSummarizer produces thread prose summaries via the Anthropic
// API, the pluggable llmMode implementation named in spec §4.4 (grounded
// on the teacher's internal/compact haikuClient).
type AnthropicSummarizer struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicSummarizer builds a summarizer. apiKey is overridden by
// ANTHROPIC_API_KEY when set, matching the teacher's precedence.
func NewAnthropicSummarizer(apiKey, model string) (*AnthropicSummarizer, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, errs.New("AnthropicSummarizer.New", errs.ErrValidation,
			"set ANTHROPIC_API_KEY or provide an api key")
	}
	if model == "" {
		model = "claude-haiku-4-5"
	}
	return &AnthropicSummarizer{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}, nil
}

// Summarize implements Summarizer.
func (s *AnthropicSummarizer) Summarize(ctx context.Context, threadID string, bodies []Body) (string, error) {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Summarize this agent coordination thread in 2-3 sentences.\n\n")
	for _, b := range bodies {
		fmt.Fprintf(&sb, "[%s] %s: %s\n", b.FromAgent, b.Subject, b.Body)
	}

	message, err := s.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     s.model,
		MaxTokens: 256,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(sb.String())),
		},
	})
	if err != nil {
		return "", errs.Wrap("AnthropicSummarizer.Summarize", errs.ErrIO, err)
	}
	if len(message.Content) == 0 {
		return "", nil
	}
	return message.Content[0].Text, nil
}
