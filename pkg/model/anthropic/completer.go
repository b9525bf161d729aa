// Package anthropic implements the model.Completer boundary on the
// official Anthropic SDK.
package anthropic

import (
	"context"
	"fmt"
	"strings"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	modelpkg "github.com/pbulbule13/vinegar/pkg/model"
	"github.com/pbulbule13/vinegar/pkg/telemetry"
)

const defaultMaxTokens = 2000

// Completer wraps the Anthropic messages API.
type Completer struct {
	client    *anthropicsdk.Client
	model     anthropicsdk.Model
	maxTokens int
}

// New creates a Completer for the given model name.
func New(apiKey, model string, maxTokens int) *Completer {
	return NewWithBaseURL(apiKey, model, "", maxTokens)
}

// NewWithBaseURL creates a Completer with custom base URL support.
func NewWithBaseURL(apiKey, model, baseURL string, maxTokens int) *Completer {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropicsdk.NewClient(opts...)
	return &Completer{
		client:    &client,
		model:     anthropicsdk.Model(model),
		maxTokens: maxTokens,
	}
}

// Complete performs a blocking messages call and returns the
// concatenated text blocks of the reply.
func (c *Completer) Complete(ctx context.Context, req modelpkg.Request) (_ string, err error) {
	ctx, span := telemetry.StartSpan(ctx, "model.anthropic.complete",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(telemetry.SanitizeAttributes(
			attribute.String("llm.provider", "anthropic"),
			attribute.String("llm.model", string(c.model)),
			attribute.Int("llm.turns", len(req.Turns)),
		)...),
	)
	defer func() { telemetry.EndSpan(span, err) }()

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.maxTokens
	}
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	systemBlocks, messageParams := convertRequest(req)
	params := anthropicsdk.MessageNewParams{
		Model:     c.model,
		MaxTokens: int64(maxTokens),
		Messages:  messageParams,
	}
	if len(systemBlocks) > 0 {
		params.System = systemBlocks
	}
	if req.Temperature > 0 {
		params.Temperature = anthropicsdk.Float(req.Temperature)
	}

	message, err := c.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", modelpkg.ErrCompletion, err)
	}
	return collectText(message), nil
}

func convertRequest(req modelpkg.Request) ([]anthropicsdk.TextBlockParam, []anthropicsdk.MessageParam) {
	var systemBlocks []anthropicsdk.TextBlockParam
	if trimmed := strings.TrimSpace(req.System); trimmed != "" {
		systemBlocks = append(systemBlocks, anthropicsdk.TextBlockParam{Text: req.System})
	}

	messageParams := make([]anthropicsdk.MessageParam, 0, len(req.Turns))
	for _, turn := range req.Turns {
		role := strings.ToLower(strings.TrimSpace(turn.Role))
		if role == "system" {
			if trimmed := strings.TrimSpace(turn.Content); trimmed != "" {
				systemBlocks = append(systemBlocks, anthropicsdk.TextBlockParam{Text: turn.Content})
			}
			continue
		}
		content := turn.Content
		if content == "" {
			// The API rejects empty content blocks.
			content = "."
		}
		messageParams = append(messageParams, anthropicsdk.MessageParam{
			Role:    normalizeRole(role),
			Content: []anthropicsdk.ContentBlockParamUnion{anthropicsdk.NewTextBlock(content)},
		})
	}
	if len(messageParams) == 0 {
		messageParams = append(messageParams, anthropicsdk.MessageParam{
			Role:    anthropicsdk.MessageParamRoleUser,
			Content: []anthropicsdk.ContentBlockParamUnion{anthropicsdk.NewTextBlock(".")},
		})
	}
	return systemBlocks, messageParams
}

func normalizeRole(role string) anthropicsdk.MessageParamRole {
	if role == "assistant" {
		return anthropicsdk.MessageParamRoleAssistant
	}
	return anthropicsdk.MessageParamRoleUser
}

func collectText(message *anthropicsdk.Message) string {
	var parts []string
	for _, block := range message.Content {
		if text := block.AsText(); text.Text != "" {
			parts = append(parts, text.Text)
		}
	}
	return strings.Join(parts, "\n")
}

var _ modelpkg.Completer = (*Completer)(nil)
