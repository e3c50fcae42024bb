// Package retry provides the bounded exponential backoff policy shared
// by the embedding and generation clients.
package retry

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/logger"
)

const (
	// DefaultMaxAttempts is the total number of tries per call.
	DefaultMaxAttempts = 3

	// DefaultBaseDelay is the wait before the second attempt.
	DefaultBaseDelay = time.Second

	// DefaultMaxDelay caps the exponential growth.
	DefaultMaxDelay = 30 * time.Second

	// DefaultJitter is the random fraction added to each delay.
	DefaultJitter = 0.1
)

// SleepFunc blocks for the given duration or until the context ends.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Policy describes bounded exponential backoff: the delay before
// attempt n+1 is min(BaseDelay * 2^n, MaxDelay), plus a random jitter
// fraction. The zero value of an injectable field selects the real
// implementation, so tests can exercise timing without real delays.
type Policy struct {
	// MaxAttempts is the total number of tries, not the number of
	// retries. Values below 1 behave as 1.
	MaxAttempts int

	// BaseDelay is the wait before the second attempt.
	BaseDelay time.Duration

	// MaxDelay caps the computed delay before jitter.
	MaxDelay time.Duration

	// Jitter is the fraction of the delay added at random, in [0, 1].
	Jitter float64

	// RetryIf classifies errors as retryable. Nil means the domain
	// taxonomy: rate limits and transient provider failures retry,
	// everything else surfaces immediately.
	RetryIf func(error) bool

	// Sleep is the wait implementation. Nil means a context-aware
	// timer.
	Sleep SleepFunc

	// Rand yields jitter samples in [0, 1). Nil means math/rand.
	Rand func() float64
}

// DefaultPolicy returns the policy used for provider calls.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: DefaultMaxAttempts,
		BaseDelay:   DefaultBaseDelay,
		MaxDelay:    DefaultMaxDelay,
		Jitter:      DefaultJitter,
	}
}

// Delay returns the backoff before attempt+2's try, without jitter.
// Attempt is zero-based: Delay(0) follows the first failure.
func (p Policy) Delay(attempt int) time.Duration {
	if p.BaseDelay <= 0 {
		return 0
	}
	d := p.BaseDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Do runs fn up to MaxAttempts times, sleeping between attempts.
// Non-retryable errors return immediately. A provider Retry-After hint
// longer than the computed delay takes precedence. Context expiry
// aborts the loop and reports the context error, distinct from the
// provider error. Exhaustion wraps the last provider error with the
// operation and attempt count.
func (p Policy) Do(ctx context.Context, op string, fn func(context.Context) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	retryIf := p.RetryIf
	if retryIf == nil {
		retryIf = domain.IsRetryable
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if ctx.Err() != nil {
			return fmt.Errorf("%s: %w", op, ctx.Err())
		}

		err = fn(ctx)
		if err == nil {
			return nil
		}
		if !retryIf(err) {
			return err
		}
		if attempt == attempts-1 {
			break
		}

		delay := p.jittered(attempt)
		if hint := domain.RetryAfterHint(err); hint > delay {
			delay = hint
		}
		logger.Debug("%s attempt %d/%d failed, retrying in %s: %v", op, attempt+1, attempts, delay, err)
		if serr := p.sleep(ctx, delay); serr != nil {
			return fmt.Errorf("%s: %w", op, serr)
		}
	}

	return fmt.Errorf("%s: giving up after %d attempts: %w", op, attempts, err)
}

// jittered returns the delay for the given attempt with the random
// fraction applied.
func (p Policy) jittered(attempt int) time.Duration {
	d := p.Delay(attempt)
	if d <= 0 || p.Jitter <= 0 {
		return d
	}
	randFn := p.Rand
	if randFn == nil {
		randFn = rand.Float64
	}
	return d + time.Duration(float64(d)*p.Jitter*randFn())
}

// sleep waits for d or until the context ends.
func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
