package generation

import (
	"context"

	"github.com/pilab-dev/reviewdesk/internal/metrics"
	"github.com/pilab-dev/reviewdesk/internal/retry"
	"github.com/pilab-dev/reviewdesk/log"
)

// DefaultFallback is returned when every attempt failed.
const DefaultFallback = "Sorry, we're currently unable to generate a reply. Please try again later."

// Resilient retries a Generator and answers with fallback text when it keeps
// failing. Generate never returns an error.
type Resilient struct {
	inner    Generator
	policy   *retry.Policy
	fallback string
	logger   log.Logger
}

type Option func(*Resilient)

func WithPolicy(p *retry.Policy) Option {
	return func(r *Resilient) { r.policy = p }
}

// WithFallback sets the text returned on exhaustion. Empty keeps the default.
func WithFallback(text string) Option {
	return func(r *Resilient) {
		if text != "" {
			r.fallback = text
		}
	}
}

func WithLogger(l log.Logger) Option {
	return func(r *Resilient) { r.logger = l }
}

func NewResilient(inner Generator, opts ...Option) *Resilient {
	r := &Resilient{
		inner:    inner,
		policy:   retry.NewLinearPolicy(retry.DefaultMaxRetries, retry.DefaultLinearStep),
		fallback: DefaultFallback,
		logger:   log.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Fallback is the text Generate answers with on failure.
func (r *Resilient) Fallback() string {
	return r.fallback
}

func (r *Resilient) Generate(ctx context.Context, text string) string {
	var reply string

	err := r.policy.Do(ctx, "generation.generate", func(ctx context.Context) error {
		out, err := r.inner.Generate(ctx, text)
		if err != nil {
			return err
		}
		reply = out
		return nil
	})
	if err != nil {
		metrics.GenerationFallbacksTotal.Inc()
		r.logger.Error(ctx, "All retries failed. Returning fallback message.", err)
		return r.fallback
	}

	return reply
}
