package llmclient

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RateLimitedClient wraps a Client and spaces requests so all sessions
// together stay under a requests-per-minute budget.
type RateLimitedClient struct {
	next    Client
	limiter *rate.Limiter
	logger  *zap.Logger
}

// NewRateLimitedClient wraps next. A non-positive rpm disables limiting.
func NewRateLimitedClient(next Client, rpm int, logger *zap.Logger) *RateLimitedClient {
	limit := rate.Inf
	burst := 1
	if rpm > 0 {
		limit = rate.Every(time.Minute / time.Duration(rpm))
		burst = max(1, rpm/10)
	}
	return &RateLimitedClient{
		next:    next,
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger.Named("llm_limiter"),
	}
}

func (c *RateLimitedClient) wait(ctx context.Context) error {
	start := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("waiting for llm rate limit: %w", err)
	}
	if waited := time.Since(start); waited > time.Second {
		c.logger.Debug("LLM request delayed by rate limit", zap.Duration("waited", waited))
	}
	return nil
}

// GenerateText waits for a token, then delegates.
func (c *RateLimitedClient) GenerateText(ctx context.Context, req TextRequest) (string, error) {
	if err := c.wait(ctx); err != nil {
		return "", err
	}
	return c.next.GenerateText(ctx, req)
}

// GenerateObject waits for a token, then delegates.
func (c *RateLimitedClient) GenerateObject(ctx context.Context, req ObjectRequest) (map[string]any, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}
	return c.next.GenerateObject(ctx, req)
}

// Close closes the wrapped client.
func (c *RateLimitedClient) Close() error { return c.next.Close() }
