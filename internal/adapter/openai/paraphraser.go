// Package openai produces a natural-language summary of an alert with an OpenAI chat model.
// The summary is presentation only: score and level are fixed before it is requested.
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/invopop/jsonschema"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/couchcryptid/marine-alert-service/internal/domain"
)

const systemPrompt = `You are a maritime safety officer writing for skippers and harbour masters.
You receive a finished safety alert. Restate it in two to four plain sentences.
If the user asked a question, answer it from the alert only.
Never change the alert level, the risk score, or any measured value, and never add hazards
that are not listed. Output strictly in JSON.`

// Summary is the structured reply requested from the model.
type Summary struct {
	Summary string `json:"summary" jsonschema_description:"Two to four sentences restating the alert for a mariner"`
}

// Paraphraser implements pipeline.Paraphraser.
type Paraphraser struct {
	client openai.Client
	model  string
	schema any
	logger *slog.Logger
}

// NewParaphraser creates a paraphraser for model. Extra options (base URL, retries)
// are passed to the OpenAI client.
func NewParaphraser(apiKey, model string, logger *slog.Logger, opts ...option.RequestOption) *Paraphraser {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &Paraphraser{
		client: openai.NewClient(opts...),
		model:  model,
		schema: generateSchema[Summary](),
		logger: logger,
	}
}

func generateSchema[T any]() any {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}

// Paraphrase returns a short summary of alert, answering queryText when given.
func (p *Paraphraser) Paraphrase(ctx context.Context, alert domain.AlertMessage, queryText string) (string, error) {
	user := "Alert:\n" + alert.Text
	if queryText != "" {
		user += "\nQuestion: " + queryText
	}

	chat, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(systemPrompt),
			openai.UserMessage(user),
		},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:        "alert_summary",
					Description: openai.String("Plain-language restatement of a maritime safety alert"),
					Schema:      p.schema,
					Strict:      openai.Bool(true),
				},
			},
		},
		Model: openai.ChatModel(p.model),
	})
	if err != nil {
		return "", fmt.Errorf("call openai: %w", err)
	}

	if len(chat.Choices) == 0 || chat.Choices[0].Message.Content == "" {
		return "", errors.New("empty response from openai")
	}

	var s Summary
	if err := json.Unmarshal([]byte(chat.Choices[0].Message.Content), &s); err != nil {
		p.logger.Debug("unparseable openai reply", "content", chat.Choices[0].Message.Content)
		return "", fmt.Errorf("decode openai reply: %w", err)
	}
	if s.Summary == "" {
		return "", errors.New("openai reply has no summary")
	}
	return s.Summary, nil
}
