package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/types"
)

// ExtractionResult is the output of an Extractor: the SKOS-style entities
// and relations found in a memory's content (spec §4.8).
type ExtractionResult struct {
	Entities  []types.ExtractedEntity
	Relations []types.ExtractedRelation
}

// Extractor is the pluggable entity/taxonomy extraction hook. Store calls it
// only when ExtractEntities is requested; a nil Extractor disables the
// feature entirely.
type Extractor interface {
	Extract(ctx context.Context, content string) (ExtractionResult, error)
}

// extractAndLink runs the configured Extractor and records its output as a
// single memory_entities_linked event, so entity/relation materialization
// happens in the same projector transaction discipline as every other
// derived row (spec §4.8: "linked to the memory row in the same
// transaction").
func (m *Memory) extractAndLink(ctx context.Context, memoryID, content string) error {
	result, err := m.extractor.Extract(ctx, content)
	if err != nil {
		return errs.Wrap("SemanticMemory.Store", errs.ErrIO, err)
	}
	if len(result.Entities) == 0 && len(result.Relations) == 0 {
		return nil
	}
	_, err = m.log.Append(ctx, m.projectKey, types.EventMemoryEntitiesLinked, types.MemoryEntitiesLinkedData{
		MemoryID: memoryID, Entities: result.Entities, Relations: result.Relations,
	}, "")
	if err != nil {
		return errs.Wrap("SemanticMemory.Store", errs.ErrIO, err)
	}
	return nil
}

// AnthropicExtractor extracts entities and SKOS relations via the Anthropic
// API (grounded on mailbox.AnthropicSummarizer's client setup and the
// teacher's pluggable-hook convention).
type AnthropicExtractor struct {
	client anthropic.Client
	model  anthropic.Model
}

// NewAnthropicExtractor builds an extractor. apiKey is overridden by
// ANTHROPIC_API_KEY when set.
func NewAnthropicExtractor(apiKey, model string) (*AnthropicExtractor, error) {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		apiKey = envKey
	}
	if apiKey == "" {
		return nil, errs.New("AnthropicExtractor.New", errs.ErrValidation,
			"set ANTHROPIC_API_KEY or provide an api key")
	}
	if model == "" {
		model = "claude-haiku-4-5"
	}
	return &AnthropicExtractor{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  anthropic.Model(model),
	}, nil
}

type extractionDoc struct {
	Entities  []types.ExtractedEntity   `json:"entities"`
	Relations []types.ExtractedRelation `json:"relations"`
}

// Extract implements Extractor.
func (a *AnthropicExtractor) Extract(ctx context.Context, content string) (ExtractionResult, error) {
	var sb strings.Builder
	sb.WriteString("Extract named entities and SKOS-style relations from the text below. ")
	sb.WriteString(`Respond with only a JSON object: {"entities": [{"pref_label": string, "alt_labels": [string]}], `)
	sb.WriteString(`"relations": [{"broader": string}|{"narrower": string}|{"related": string}]}.`)
	sb.WriteString("\n\nText:\n")
	sb.WriteString(content)

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: 512,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(sb.String())),
		},
	})
	if err != nil {
		return ExtractionResult{}, errs.Wrap("AnthropicExtractor.Extract", errs.ErrIO, err)
	}
	if len(message.Content) == 0 {
		return ExtractionResult{}, nil
	}

	var doc extractionDoc
	if err := json.Unmarshal([]byte(message.Content[0].Text), &doc); err != nil {
		return ExtractionResult{}, errs.Wrap("AnthropicExtractor.Extract", errs.ErrIO,
			fmt.Errorf("parse extractor response: %w", err))
	}
	return ExtractionResult{Entities: doc.Entities, Relations: doc.Relations}, nil
}
