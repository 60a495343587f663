package banking

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fastRetry(n int) RetryPolicy {
	return RetryPolicy{MaxRetries: n, BaseDelay: time.Millisecond, MaxDelay: 2 * time.Millisecond}
}

func TestRetryPolicy_RetriesContention(t *testing.T) {
	calls := 0
	err := fastRetry(3).Do(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("%w: busy", ErrConcurrentModification)
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestRetryPolicy_BudgetSpent_ReturnsLastError(t *testing.T) {
	calls := 0
	err := fastRetry(2).Do(context.Background(), func() error {
		calls++
		return ErrConcurrentModification
	})

	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.Equal(t, 3, calls, "one attempt plus two retries")
}

func TestRetryPolicy_BusinessErrorsAreNotRetried(t *testing.T) {
	calls := 0
	insufficient := &InsufficientFundsError{AccountID: 1}
	err := fastRetry(5).Do(context.Background(), func() error {
		calls++
		return insufficient
	})

	var target *InsufficientFundsError
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, 1, calls)
}

func TestRetryPolicy_ZeroRetries_RunsOnce(t *testing.T) {
	calls := 0
	err := RetryPolicy{}.Do(context.Background(), func() error {
		calls++
		return ErrConcurrentModification
	})

	assert.ErrorIs(t, err, ErrConcurrentModification)
	assert.Equal(t, 1, calls)
}
