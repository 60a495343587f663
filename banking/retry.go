package banking

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy re-runs an atomic unit that failed with a retryable error
// (ErrConcurrentModification). Every attempt re-acquires locks in the same
// ascending order.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, BaseDelay: 10 * time.Millisecond, MaxDelay: 200 * time.Millisecond}
}

// Do runs fn until it succeeds, fails with a non-retryable error, the retry
// budget is spent or ctx is done. The last error is returned unchanged.
func (p RetryPolicy) Do(ctx context.Context, fn func() error) error {
	if p.MaxRetries <= 0 {
		return fn()
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = p.BaseDelay
	if p.MaxDelay > 0 {
		eb.MaxInterval = p.MaxDelay
	}
	eb.RandomizationFactor = 0.5
	eb.MaxElapsedTime = 0

	b := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(p.MaxRetries)), ctx)

	return backoff.Retry(func() error {
		err := fn()
		if err != nil && !IsRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}
