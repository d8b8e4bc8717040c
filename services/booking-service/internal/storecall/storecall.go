// Package storecall bounds every store round trip with a timeout. Reads are
// idempotent and get one retry after a timeout; writes never retry.
package storecall

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/md-rashed-zaman/barberia/services/booking-service/internal/apperr"
)

const DefaultTimeout = 3 * time.Second

type Policy struct {
	Timeout    time.Duration
	RetryDelay time.Duration
}

func (p Policy) timeout() time.Duration {
	if p.Timeout <= 0 {
		return DefaultTimeout
	}
	return p.Timeout
}

// Read runs fn with a per-attempt timeout, retrying once if the attempt timed out.
func Read[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	delay := p.RetryDelay
	if delay <= 0 {
		delay = 50 * time.Millisecond
	}
	attempt := func() (T, error) {
		v, err := call(ctx, p, fn)
		if err != nil && !isTimeout(ctx, err) {
			return v, backoff.Permanent(err)
		}
		return v, err
	}
	v, err := backoff.Retry(ctx, attempt,
		backoff.WithBackOff(backoff.NewConstantBackOff(delay)),
		backoff.WithMaxTries(2),
	)
	var permanent *backoff.PermanentError
	if errors.As(err, &permanent) {
		err = permanent.Unwrap()
	}
	return v, classify(ctx, op, err)
}

// Write runs fn once with a timeout.
func Write[T any](ctx context.Context, p Policy, op string, fn func(context.Context) (T, error)) (T, error) {
	v, err := call(ctx, p, fn)
	return v, classify(ctx, op, err)
}

// Exec is Write for operations without a result.
func Exec(ctx context.Context, p Policy, op string, fn func(context.Context) error) error {
	_, err := Write(ctx, p, op, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func call[T any](ctx context.Context, p Policy, fn func(context.Context) (T, error)) (T, error) {
	ctx, cancel := context.WithTimeout(ctx, p.timeout())
	defer cancel()
	return fn(ctx)
}

// isTimeout reports attempt timeouts, not cancellation of the caller's context.
func isTimeout(parent context.Context, err error) bool {
	if parent.Err() != nil {
		return false
	}
	return errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err)
}

func classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	var classified *apperr.Error
	if errors.As(err, &classified) {
		return err
	}
	if isTimeout(ctx, err) {
		return apperr.Wrap(apperr.KindTimeout, err, "%s timed out", op)
	}
	return err
}
