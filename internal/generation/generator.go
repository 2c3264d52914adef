// Package generation produces suggested replies to customer reviews.
package generation

import (
	"context"
	"net/http"
	"strings"

	"github.com/pilab-dev/reviewdesk/config"
	serrors "github.com/pilab-dev/reviewdesk/errors"
	"github.com/pilab-dev/reviewdesk/internal/retry"
	"github.com/pilab-dev/reviewdesk/log"
)

// Generator writes a reply to the given review text. It may fail.
type Generator interface {
	Generate(ctx context.Context, text string) (string, error)
}

// GeneratorFunc adapts a function to Generator.
type GeneratorFunc func(ctx context.Context, text string) (string, error)

func (f GeneratorFunc) Generate(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// NewGenerator builds the backend named by cfg.Provider.
func NewGenerator(cfg config.LLMConfig, client *http.Client) (Generator, error) {
	const op = "generation.new"

	switch strings.ToLower(cfg.Provider) {
	case config.LLMProviderOpenAI:
		return NewOpenAI(cfg.OpenAI, client)
	case config.LLMProviderLocal:
		return NewLocal(cfg.Local, client)
	default:
		return nil, serrors.Configuration(op, "unknown llm provider "+cfg.Provider)
	}
}

// New builds the configured backend wrapped in a Resilient generator.
func New(cfg config.LLMConfig, client *http.Client, logger log.Logger) (*Resilient, error) {
	gen, err := NewGenerator(cfg, client)
	if err != nil {
		return nil, err
	}

	policy := retry.NewLinearPolicy(cfg.MaxRetries, cfg.RetryStep, retry.WithLogger(logger))

	return NewResilient(gen,
		WithPolicy(policy),
		WithFallback(cfg.FallbackMessage),
		WithLogger(logger),
	), nil
}
