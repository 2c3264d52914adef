package generation_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pilab-dev/reviewdesk/config"
	"github.com/pilab-dev/reviewdesk/internal/generation"
	"github.com/pilab-dev/reviewdesk/internal/metrics"
	"github.com/pilab-dev/reviewdesk/internal/retry"
	"github.com/pilab-dev/reviewdesk/log"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy() *retry.Policy {
	return retry.NewLinearPolicy(3, time.Millisecond)
}

func TestResilient_RecoversAfterFailures(t *testing.T) {
	calls := 0
	gen := generation.GeneratorFunc(func(context.Context, string) (string, error) {
		calls++
		if calls < 3 {
			return "", errors.New("backend down")
		}
		return "Thanks for visiting", nil
	})

	r := generation.NewResilient(gen, generation.WithPolicy(fastPolicy()))

	assert.Equal(t, "Thanks for visiting", r.Generate(context.Background(), "great"))
	assert.Equal(t, 3, calls)
}

func TestResilient_FallbackAfterExhaustion(t *testing.T) {
	calls := 0
	gen := generation.GeneratorFunc(func(context.Context, string) (string, error) {
		calls++
		return "", errors.New("backend down")
	})

	before := testutil.ToFloat64(metrics.GenerationFallbacksTotal)
	r := generation.NewResilient(gen, generation.WithPolicy(fastPolicy()), generation.WithFallback(""))

	assert.Equal(t, generation.DefaultFallback, r.Generate(context.Background(), "great"))
	assert.Equal(t, 4, calls)
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.GenerationFallbacksTotal))
}

func TestResilient_CustomFallbackOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := generation.GeneratorFunc(func(ctx context.Context, _ string) (string, error) {
		return "", ctx.Err()
	})
	r := generation.NewResilient(gen, generation.WithPolicy(fastPolicy()), generation.WithFallback("later"))

	assert.Equal(t, "later", r.Generate(ctx, "x"))
}

func TestNew_WiresConfiguredBackend(t *testing.T) {
	cfg := config.LLMConfig{
		Provider:        config.LLMProviderLocal,
		MaxRetries:      0,
		RetryStep:       time.Millisecond,
		FallbackMessage: "fallback",
		Local:           config.LocalLLMConfig{BaseURL: "http://127.0.0.1:1/v1"},
	}

	r, err := generation.New(cfg, nil, log.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "fallback", r.Fallback())
	assert.Equal(t, "fallback", r.Generate(context.Background(), "x"))
}
