// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/autopilot/internal/config"
)

// GeminiClient implements Client with the Google Gen AI SDK.
type GeminiClient struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

// NewGeminiClient builds a client against the Gemini API backend.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required (set AUTOPILOT_LLM_API_KEY or GEMINI_API_KEY)")
	}
	cc := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions.BaseURL = cfg.BaseURL
	}
	if cfg.Timeout > 0 {
		timeout := cfg.Timeout
		cc.HTTPOptions.Timeout = &timeout
	}

	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{
		client: client,
		model:  cfg.Model,
		logger: logger.Named("llm_client.gemini"),
	}, nil
}

// GenerateText sends the user text and inline file parts with a system instruction.
func (c *GeminiClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.User)}
	for _, f := range req.Files {
		parts = append(parts, genai.NewPartFromBytes(f.Data, f.MediaType))
	}

	gc := &genai.GenerateContentConfig{}
	if req.System != "" {
		gc.SystemInstruction = genai.NewContentFromText(req.System, genai.RoleUser)
	}
	return c.generate(ctx, parts, gc, "text")
}

// GenerateObject requests JSON output constrained by a response schema.
// Reasoning effort has no Gemini equivalent and is ignored.
func (c *GeminiClient) GenerateObject(ctx context.Context, req ObjectRequest) (map[string]any, error) {
	parts := []*genai.Part{genai.NewPartFromText(req.Prompt)}
	if len(req.Image) > 0 {
		parts = append(parts, genai.NewPartFromBytes(req.Image, "image/png"))
	}

	gc := &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
		ResponseSchema:   toGenaiSchema(req.Schema),
	}
	raw, err := c.generate(ctx, parts, gc, "object")
	if err != nil {
		return nil, err
	}
	return req.Schema.Decode(raw)
}

func (c *GeminiClient) generate(ctx context.Context, parts []*genai.Part, gc *genai.GenerateContentConfig, kind string) (string, error) {
	start := time.Now()
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := c.client.Models.GenerateContent(ctx, c.model, contents, gc)
	if err != nil {
		return "", fmt.Errorf("gemini %s generation failed: %w", kind, err)
	}
	text := resp.Text()
	if text == "" {
		return "", ErrEmptyResponse
	}

	fields := []zap.Field{zap.String("kind", kind), zap.Duration("duration", time.Since(start))}
	if u := resp.UsageMetadata; u != nil {
		fields = append(fields,
			zap.Int32("prompt_tokens", u.PromptTokenCount),
			zap.Int32("completion_tokens", u.CandidatesTokenCount),
			zap.Int32("total_tokens", u.TotalTokenCount),
		)
	}
	c.logger.Info("LLM generation complete (Gemini)", fields...)
	return text, nil
}

// Close is a no-op; genai clients hold no closable resources.
func (c *GeminiClient) Close() error { return nil }

func toGenaiSchema(s Schema) *genai.Schema {
	out := &genai.Schema{
		Type:             genai.TypeObject,
		Properties:       make(map[string]*genai.Schema, len(s.Fields)),
		Required:         s.Names(),
		PropertyOrdering: s.Names(),
	}
	for _, f := range s.Fields {
		switch f.Kind {
		case KindBoolean:
			out.Properties[f.Name] = &genai.Schema{Type: genai.TypeBoolean}
		case KindEnum:
			out.Properties[f.Name] = &genai.Schema{Type: genai.TypeString, Format: "enum", Enum: append([]string(nil), f.Options...)}
		default:
			out.Properties[f.Name] = &genai.Schema{Type: genai.TypeString}
		}
	}
	return out
}
