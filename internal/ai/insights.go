package ai

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"erp-ledger/internal/core"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/param"
	"github.com/openai/openai-go/responses"
	"github.com/openai/openai-go/shared"
	"github.com/openai/openai-go/shared/constant"
)

// Insight is the structured answer returned by the model. It only ever
// describes figures it was given; it never proposes postings.
type Insight struct {
	Summary    string   `json:"summary" jsonschema_description:"Two to four sentences answering the question using only the supplied figures"`
	Highlights []string `json:"highlights" jsonschema_description:"Notable facts from the figures, each quoting the amount it refers to"`
	Risks      []string `json:"risks" jsonschema_description:"Cash, stock or credit risks visible in the figures; empty if none"`
	Confidence float64  `json:"confidence" jsonschema_description:"Confidence between 0.0 and 1.0 that the figures are sufficient to answer"`
}

// Summarizer turns already computed report figures into a short narrative.
type Summarizer interface {
	Summarize(ctx context.Context, question string, facts any) (*Insight, error)
}

type openAISummarizer struct {
	client *openai.Client
	model  string
}

type disabledSummarizer struct{}

// NewSummarizer returns an OpenAI-backed summarizer. With no API key every
// call fails with core.ErrUnavailable.
func NewSummarizer(apiKey, model string) Summarizer {
	if apiKey == "" {
		return disabledSummarizer{}
	}
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &openAISummarizer{client: &client, model: model}
}

func (disabledSummarizer) Summarize(context.Context, string, any) (*Insight, error) {
	return nil, fmt.Errorf("insights: OPENAI_API_KEY is not set: %w", core.ErrUnavailable)
}

func (s *openAISummarizer) Summarize(ctx context.Context, question string, facts any) (*Insight, error) {
	prompt, err := buildPrompt(question, facts)
	if err != nil {
		return nil, err
	}

	schemaMap, err := insightSchema()
	if err != nil {
		return nil, err
	}

	params := responses.ResponseNewParams{
		Model: shared.ResponsesModel(s.model),
		Input: responses.ResponseNewParamsInputUnion{
			OfString: param.NewOpt(prompt),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Type:        constant.JSONSchema("json_schema"),
					Name:        "books_insight",
					Strict:      param.NewOpt(true),
					Schema:      schemaMap,
					Description: param.NewOpt("A short narrative over small-business accounting figures"),
				},
			},
		},
	}

	resp, err := s.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai responses error: %w", joinUnavailable(err))
	}

	return parseInsight(resp.OutputText())
}

func buildPrompt(question string, facts any) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("question is required: %w", core.ErrInvalidInput)
	}
	factsJSON, err := json.MarshalIndent(facts, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal facts: %w", err)
	}
	return fmt.Sprintf(`You are an accountant reviewing a small business's books.
Answer the owner's question using ONLY the figures below. All amounts are in INR.
Rules:
1. Never invent numbers that are not present in the figures.
2. Quote amounts exactly as given.
3. If the figures cannot answer the question, say so and lower your confidence.

Figures:
%s

Question: %s`, factsJSON, question), nil
}

func parseInsight(content string) (*Insight, error) {
	if content == "" {
		return nil, fmt.Errorf("empty response content: %w", core.ErrUnavailable)
	}
	var insight Insight
	if err := json.Unmarshal([]byte(content), &insight); err != nil {
		return nil, fmt.Errorf("failed to parse completion: %w", err)
	}
	if insight.Confidence < 0 || insight.Confidence > 1 {
		return nil, fmt.Errorf("confidence %v out of range: %w", insight.Confidence, core.ErrInconsistent)
	}
	return &insight, nil
}

func insightSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	schemaJSON, err := json.Marshal(reflector.Reflect(&Insight{}))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema to map: %w", err)
	}
	return schemaMap, nil
}

func joinUnavailable(err error) error {
	return fmt.Errorf("%w: %w", core.ErrUnavailable, err)
}
