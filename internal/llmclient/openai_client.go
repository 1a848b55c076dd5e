// internal/llmclient/openai_client.go
package llmclient

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/config"
)

// schemaName labels structured outputs in the provider's logs.
const schemaName = "answers"

// OpenAIClient implements Client with the OpenAI chat completions API.
type OpenAIClient struct {
	client openai.Client
	model  string
	effort ReasoningEffort
	logger *zap.Logger
}

// NewOpenAIClient builds a client from configuration. An API key is required.
func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required (set AUTOPILOT_LLM_API_KEY or OPENAI_API_KEY)")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(cfg.Timeout))
	}

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  cfg.Model,
		effort: ReasoningEffort(cfg.ReasoningEffort),
		logger: logger.Named("llm_client.openai"),
	}, nil
}

// GenerateText sends the system prompt and the user text plus file parts.
func (c *OpenAIClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.User)}
	for _, f := range req.Files {
		parts = append(parts, openai.FileContentPart(openai.ChatCompletionContentPartFileFileParam{
			FileData: openai.String(dataURI(f.MediaType, f.Data)),
			Filename: openai.String(f.Name),
		}))
	}

	messages := []openai.ChatCompletionMessageParamUnion{}
	if req.System != "" {
		messages = append(messages, openai.SystemMessage(req.System))
	}
	messages = append(messages, openai.UserMessage(parts))

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: messages,
	}
	if c.effort != EffortDefault {
		params.ReasoningEffort = shared.ReasoningEffort(c.effort)
	}
	return c.complete(ctx, params, "text")
}

// GenerateObject asks for a JSON object under a strict json_schema response
// format and validates the result.
func (c *OpenAIClient) GenerateObject(ctx context.Context, req ObjectRequest) (map[string]any, error) {
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.Prompt)}
	if len(req.Image) > 0 {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{
			URL: dataURI("image/png", req.Image),
		}))
	}

	params := openai.ChatCompletionNewParams{
		Model:    shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(parts)},
		ResponseFormat: openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &shared.ResponseFormatJSONSchemaParam{
				JSONSchema: shared.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName,
					Schema: req.Schema.JSONSchema(),
					Strict: openai.Bool(true),
				},
			},
		},
	}
	effort := req.ReasoningEffort
	if effort == EffortDefault {
		effort = c.effort
	}
	if effort != EffortDefault {
		params.ReasoningEffort = shared.ReasoningEffort(effort)
	}

	raw, err := c.complete(ctx, params, "object")
	if err != nil {
		return nil, err
	}
	return req.Schema.Decode(raw)
}

func (c *OpenAIClient) complete(ctx context.Context, params openai.ChatCompletionNewParams, kind string) (string, error) {
	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai %s generation failed: %w", kind, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}

	c.logger.Info("LLM generation complete (OpenAI)",
		zap.String("kind", kind),
		zap.String("model", resp.Model),
		zap.Duration("duration", time.Since(start)),
		zap.Int64("prompt_tokens", resp.Usage.PromptTokens),
		zap.Int64("completion_tokens", resp.Usage.CompletionTokens),
		zap.Int64("total_tokens", resp.Usage.TotalTokens),
	)
	return resp.Choices[0].Message.Content, nil
}

// Close is a no-op; the SDK holds no resources beyond its HTTP client.
func (c *OpenAIClient) Close() error { return nil }

func dataURI(mediaType string, data []byte) string {
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}
