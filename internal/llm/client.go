package llm

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/gptutor/internal/domain"
	"github.com/felixgeelhaar/gptutor/internal/metrics"
)

// DefaultTimeout bounds a single completion call, retries included
const DefaultTimeout = 60 * time.Second

// Client sends exercise transcripts to the completion endpoint
type Client struct {
	provider Provider
	model    string
	timeout  time.Duration
	logger   *slog.Logger
}

// ClientConfig holds configuration for the completion client
type ClientConfig struct {
	Model   string // empty uses the provider default
	Timeout time.Duration
	Logger  *slog.Logger
}

// NewClient creates a completion client on top of provider
func NewClient(provider Provider, cfg ClientConfig) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		provider: provider,
		model:    cfg.Model,
		timeout:  cfg.Timeout,
		logger:   cfg.Logger,
	}
}

// Complete sends the transcript and returns the role and text of the top choice.
// Message kinds are not sent. Every failure wraps domain.ErrUpstream.
func (c *Client) Complete(ctx context.Context, msgs []domain.Message) (domain.Role, string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req := &Request{
		Model:    c.model,
		Messages: make([]Message, 0, len(msgs)),
	}
	for _, m := range msgs {
		req.Messages = append(req.Messages, Message{Role: Role(m.Role), Content: m.Text})
	}

	start := time.Now()
	resp, err := c.provider.Generate(ctx, req)
	elapsed := time.Since(start)
	metrics.ObserveCompletion(c.provider.Name(), err, elapsed)

	if err != nil {
		c.logger.Warn("completion failed",
			"provider", c.provider.Name(),
			"messages", len(msgs),
			"duration", elapsed,
			"error", err)
		return "", "", fmt.Errorf("%w: %w", domain.ErrUpstream, err)
	}

	c.logger.Debug("completion succeeded",
		"provider", c.provider.Name(),
		"messages", len(msgs),
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"duration", elapsed)

	role := domain.Role(resp.Role)
	if !role.Valid() {
		role = domain.RoleAssistant
	}
	return role, resp.Content, nil
}

// ProviderName returns the name of the underlying provider
func (c *Client) ProviderName() string {
	return c.provider.Name()
}
