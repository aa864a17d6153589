package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
)

// RetryPolicy bounds connection attempts.
type RetryPolicy struct {
	Attempts int
	Backoff  time.Duration // Doubled after each failed attempt
}

// DefaultRetryPolicy makes 3 attempts waiting 0.5s, then 1s.
var DefaultRetryPolicy = RetryPolicy{Attempts: 3, Backoff: 500 * time.Millisecond}

// backOff builds the exponential schedule for policy, bound to ctx.
func (p RetryPolicy) backOff(ctx context.Context) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = p.Backoff
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = max(time.Minute, p.Backoff)
	b.MaxElapsedTime = 0
	return backoff.WithContext(backoff.WithMaxRetries(b, uint64(p.Attempts-1)), ctx)
}

// Retry calls fn until it succeeds or the policy is exhausted.
// It returns the last error, or ctx.Err() if ctx ends while waiting.
func Retry(ctx context.Context, policy RetryPolicy, log zerolog.Logger, op string, fn func() error) error {
	if policy.Attempts <= 0 {
		policy.Attempts = 1
	}
	if policy.Backoff <= 0 {
		policy.Backoff = DefaultRetryPolicy.Backoff
	}

	attempt := 1
	err := backoff.RetryNotify(fn, policy.backOff(ctx), func(err error, wait time.Duration) {
		attempt++
		log.Warn().
			Err(err).
			Str("operation", op).
			Int("attempt", attempt).
			Dur("backoff", wait).
			Msg("Retrying after failure")
	})
	if err == nil {
		return nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return err
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, attempt, err)
}

// Open creates and migrates a database, retrying transient open failures.
func Open(ctx context.Context, cfg Config, policy RetryPolicy, log zerolog.Logger) (*DB, error) {
	var db *DB
	err := Retry(ctx, policy, log, "open "+cfg.Name, func() error {
		var err error
		db, err = New(cfg)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}
