package storage

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// RetryPolicy re-runs a read-modify-write unit when a concurrent writer wins.
// The unit must re-read whatever it derives its write from on every attempt.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetry is used when a caller leaves its policy zero.
var DefaultRetry = RetryPolicy{MaxRetries: 3, BaseDelay: 10 * time.Millisecond}

// Retriable reports whether err came from losing a write race: a version
// another writer already took (ErrConflict), a serialization failure, or a
// deadlock.
func Retriable(err error) bool {
	if errors.Is(err, ErrConflict) {
		return true
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case "40001", "40P01": // serialization_failure, deadlock_detected
		return true
	default:
		return false
	}
}

// Do runs fn until it succeeds, fails with a non-retriable error, or
// MaxRetries retries are spent. The delay doubles after each attempt, plus up
// to the same amount of jitter. The last error is returned unchanged.
func (p RetryPolicy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := p.BaseDelay
	var err error
	for attempt := 0; ; attempt++ {
		if err = fn(ctx); err == nil || !Retriable(err) || attempt >= p.MaxRetries {
			return err
		}
		wait := delay
		if delay > 0 {
			wait += time.Duration(rand.Int64N(int64(delay))) //nolint:gosec // jitter only
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(wait):
		}
		delay *= 2
	}
}
