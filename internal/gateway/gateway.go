// Package gateway turns a user's chat message into a music recommendation by
// wrapping it in a fixed prompt and asking a generative model for a reply.
package gateway

import (
	"context"
	"errors"
	"log/slog"
)

// Provider generates a single, non-streamed completion for a prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

type Gateway struct {
	provider Provider
	prompt   PromptSpec
	logger   *slog.Logger
}

func New(provider Provider, prompt PromptSpec, logger *slog.Logger) (*Gateway, error) {
	if provider == nil {
		return nil, errors.New("gateway: provider must not be nil")
	}
	if prompt.Preamble == "" {
		return nil, errors.New("gateway: prompt preamble must not be empty")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gateway{provider: provider, prompt: prompt, logger: logger}, nil
}

// Recommend asks the provider for a recommendation based on message. The
// returned text is passed through untouched. Failures are always *Error.
func (g *Gateway) Recommend(ctx context.Context, message string) (string, error) {
	text, err := g.provider.Generate(ctx, g.prompt.Build(message))
	if err != nil {
		g.logger.ErrorContext(ctx, "provider call failed", "err", err)
		return "", newError(KindProvider, err)
	}
	if text == "" {
		g.logger.WarnContext(ctx, "provider returned no text")
		return "", newError(KindEmptyResponse, nil)
	}
	return text, nil
}
