// Package resilient bounds every store call with a timeout, retries reads and trips a
// circuit breaker on repeated infrastructure failures. Anything that is not a domain
// error comes out as domain.ErrStoreUnavailable.
package resilient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"academy-quiz-service/internal/domain"
	"github.com/felixgeelhaar/fortify/circuitbreaker"
	"github.com/felixgeelhaar/fortify/retry"
)

// Policy configures the guards applied to a store.
type Policy struct {
	// Timeout bounds a single store call. Zero disables it.
	Timeout time.Duration
	// ReadAttempts is the total number of tries for reads; writes always get one.
	ReadAttempts int
	// RetryDelay is the initial backoff between read attempts.
	RetryDelay time.Duration
	// BreakerFailures opens the breaker after this many consecutive failures. Zero disables it.
	BreakerFailures int
	// BreakerCooldown is how long the breaker stays open before probing again.
	BreakerCooldown time.Duration
	Logger          *slog.Logger
}

// DefaultPolicy returns the values used when config leaves them empty.
func DefaultPolicy() Policy {
	return Policy{
		Timeout:         3 * time.Second,
		ReadAttempts:    3,
		RetryDelay:      50 * time.Millisecond,
		BreakerFailures: 5,
		BreakerCooldown: 10 * time.Second,
	}
}

// attempt carries a domain error as a value so that it neither triggers a retry nor
// counts as a breaker failure.
type attempt[T any] struct {
	val T
	err error
}

type guard[T any] struct {
	name    string
	timeout time.Duration
	retrier retry.Retry[attempt[T]]
	breaker circuitbreaker.CircuitBreaker[attempt[T]]
}

func newGuard[T any](name string, p Policy, retried bool) *guard[T] {
	g := &guard[T]{name: name, timeout: p.Timeout}

	if retried && p.ReadAttempts > 1 {
		g.retrier = retry.New[attempt[T]](retry.Config{
			MaxAttempts:   p.ReadAttempts,
			InitialDelay:  p.RetryDelay,
			MaxDelay:      time.Second,
			Multiplier:    2.0,
			BackoffPolicy: retry.BackoffExponential,
			Jitter:        true,
			IsRetryable: func(err error) bool {
				return !errors.Is(err, context.Canceled)
			},
		})
	}

	if p.BreakerFailures > 0 {
		failures := p.BreakerFailures
		cooldown := p.BreakerCooldown
		if cooldown <= 0 {
			cooldown = 10 * time.Second
		}
		g.breaker = circuitbreaker.New[attempt[T]](circuitbreaker.Config{
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     cooldown,
			ReadyToTrip: func(counts circuitbreaker.Counts) bool {
				return int(counts.ConsecutiveFailures) >= failures
			},
			OnStateChange: func(from, to circuitbreaker.State) {
				if p.Logger != nil {
					p.Logger.Warn("store circuit breaker state change",
						"op", name,
						"from", from.String(),
						"to", to.String())
				}
			},
		})
	}
	return g
}

func (g *guard[T]) run(ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	operation := func(ctx context.Context) (attempt[T], error) {
		if g.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, g.timeout)
			defer cancel()
		}
		v, err := fn(ctx)
		if err != nil && domain.IsDomainError(err) {
			return attempt[T]{val: v, err: err}, nil
		}
		return attempt[T]{val: v}, err
	}

	if g.breaker != nil {
		inner := operation
		operation = func(ctx context.Context) (attempt[T], error) {
			return g.breaker.Execute(ctx, inner)
		}
	}

	var (
		res attempt[T]
		err error
	)
	if g.retrier != nil {
		res, err = g.retrier.Do(ctx, operation)
	} else {
		res, err = operation(ctx)
	}
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: %w: %w", g.name, domain.ErrStoreUnavailable, err)
	}
	return res.val, res.err
}
