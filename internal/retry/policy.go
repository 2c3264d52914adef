// Package retry runs outbound calls with bounded, delayed re-attempts.
package retry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	serrors "github.com/pilab-dev/reviewdesk/errors"
	"github.com/pilab-dev/reviewdesk/internal/metrics"
	"github.com/pilab-dev/reviewdesk/log"
)

const (
	DefaultMaxRetries     = 3
	DefaultBaseDelay      = 2 * time.Second
	DefaultAttemptTimeout = 15 * time.Second
	DefaultLinearStep     = 1500 * time.Millisecond
)

// Policy decides how often and how long to wait between attempts of an
// outbound call. A Policy is immutable and safe for concurrent use.
type Policy struct {
	maxRetries     uint64
	newBackOff     func() backoff.BackOff
	retryable      func(error) bool
	attemptTimeout time.Duration
	newTimer       func() backoff.Timer
	logger         log.Logger
}

type Option func(*Policy)

// WithTimer replaces the timer used to wait between attempts.
func WithTimer(newTimer func() backoff.Timer) Option {
	return func(p *Policy) { p.newTimer = newTimer }
}

// WithAttemptTimeout bounds every single attempt. Zero disables the bound.
func WithAttemptTimeout(d time.Duration) Option {
	return func(p *Policy) { p.attemptTimeout = d }
}

func WithLogger(l log.Logger) Option {
	return func(p *Policy) { p.logger = l }
}

// WithRetryable replaces the predicate deciding which errors are retried.
func WithRetryable(fn func(error) bool) Option {
	return func(p *Policy) { p.retryable = fn }
}

// NewExternalCallPolicy retries transient failures with exponential delays:
// the n-th retry waits baseDelay * 2^(n-1), without jitter.
func NewExternalCallPolicy(maxRetries int, baseDelay time.Duration, opts ...Option) *Policy {
	if baseDelay <= 0 {
		baseDelay = DefaultBaseDelay
	}
	p := &Policy{
		maxRetries: nonNegative(maxRetries),
		newBackOff: func() backoff.BackOff {
			b := backoff.NewExponentialBackOff()
			b.InitialInterval = baseDelay
			b.Multiplier = 2
			b.RandomizationFactor = 0
			b.MaxInterval = time.Hour
			b.MaxElapsedTime = 0
			b.Reset()
			return b
		},
		retryable:      IsTransient,
		attemptTimeout: DefaultAttemptTimeout,
		logger:         log.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// NewLinearPolicy retries every failure; the n-th retry waits step * n.
func NewLinearPolicy(maxRetries int, step time.Duration, opts ...Option) *Policy {
	if step <= 0 {
		step = DefaultLinearStep
	}
	p := &Policy{
		maxRetries:     nonNegative(maxRetries),
		newBackOff:     func() backoff.BackOff { return &linearBackOff{step: step} },
		retryable:      func(error) bool { return true },
		attemptTimeout: 0,
		logger:         log.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// MaxAttempts is the total number of attempts Do makes before giving up.
func (p *Policy) MaxAttempts() int {
	return int(p.maxRetries) + 1
}

// Do runs fn until it succeeds, fails with a non-retryable error, ctx is done,
// or the retries are used up. In the last case the final error is returned
// as an ExternalProvider error. Non-retryable errors are returned unchanged.
func (p *Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempt := 0
	var last error

	operation := func() error {
		attempt++
		attemptCtx, cancel := p.attemptContext(ctx)
		defer cancel()

		err := fn(attemptCtx)
		if err == nil {
			return nil
		}
		last = err
		if ctx.Err() != nil || !p.retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, delay time.Duration) {
		metrics.ExternalCallRetriesTotal.WithLabelValues(op).Inc()
		p.logger.Warn(ctx, "retrying external call", map[string]interface{}{
			"operation": op,
			"attempt":   attempt,
			"delay":     delay.String(),
			"cause":     err.Error(),
		})
	}

	b := backoff.WithContext(backoff.WithMaxRetries(p.newBackOff(), p.maxRetries), ctx)

	var timer backoff.Timer
	if p.newTimer != nil {
		timer = p.newTimer()
	}

	err := backoff.RetryNotifyWithTimer(operation, b, notify, timer)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return err
	}
	if last != nil && attempt >= p.MaxAttempts() && p.retryable(last) {
		p.logger.Error(ctx, "external call failed after retries", last, map[string]interface{}{
			"operation": op,
			"attempts":  attempt,
		})
		return serrors.ExternalProvider(op, serrors.StatusCodeOf(last),
			fmt.Errorf("giving up after %d attempts: %w", attempt, last))
	}
	return err
}

func (p *Policy) attemptContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if p.attemptTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, p.attemptTimeout)
}

// IsTransient reports whether err is worth another attempt: network errors,
// attempt timeouts, HTTP 5xx and HTTP 429.
func IsTransient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}

	switch serrors.KindOf(err) {
	case serrors.KindExternalProvider:
		if code := serrors.StatusCodeOf(err); code != 0 {
			return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
		}
	case serrors.KindUnknown:
	default:
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

func nonNegative(n int) uint64 {
	if n < 0 {
		return 0
	}
	return uint64(n)
}
