// internal/llmclient/factory.go
package llmclient

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/config"
)

// NewClient creates the configured provider client, wrapped in a rate limiter.
func NewClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (Client, error) {
	var (
		provider Client
		err      error
	)
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		provider, err = NewOpenAIClient(cfg, logger)
	case config.ProviderGemini:
		provider, err = NewGeminiClient(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown or unsupported LLM provider configured: '%s'. Supported: [%s, %s]",
			cfg.Provider, config.ProviderOpenAI, config.ProviderGemini)
	}
	if err != nil {
		return nil, err
	}

	logger.Info("LLM client initialized",
		zap.String("provider", string(cfg.Provider)),
		zap.String("model", cfg.Model),
		zap.Int("requests_per_minute", cfg.RequestsPerMinute))
	return NewRateLimitedClient(provider, cfg.RequestsPerMinute, logger), nil
}
