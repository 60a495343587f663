package banking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// =============================================================================
// LOCK MANAGER - Per-account mutation rights, acquired in ascending order
// =============================================================================

// LockManager hands out exclusive mutation rights per account.
//
// INVARIANTS:
//   - Rights on several accounts are always taken in ascending AccountID
//     order, so two units touching the same pair can never wait on each
//     other in a cycle.
//   - Waiting for rights is the only place an operation blocks. The wait
//     honours ctx and Timeout; on either, rights already taken are released.
type LockManager struct {
	// Timeout bounds the whole acquisition. Zero waits until ctx is done.
	Timeout time.Duration

	mu    sync.Mutex
	slots map[AccountID]chan struct{}
}

func NewLockManager(timeout time.Duration) *LockManager {
	return &LockManager{
		Timeout: timeout,
		slots:   make(map[AccountID]chan struct{}),
	}
}

// Acquire takes mutation rights on every id. The returned release func must
// be called exactly once.
func (lm *LockManager) Acquire(ctx context.Context, ids ...AccountID) (func(), error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ordered := lockOrder(ids)

	var deadline <-chan time.Time
	if lm.Timeout > 0 {
		timer := time.NewTimer(lm.Timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	held := make([]chan struct{}, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			<-held[i]
		}
	}

	for _, id := range ordered {
		slot := lm.slot(id)
		select {
		case slot <- struct{}{}:
			held = append(held, slot)
		case <-ctx.Done():
			release()
			return nil, ctx.Err()
		case <-deadline:
			release()
			return nil, fmt.Errorf("%w: timed out after %s waiting for account %d",
				ErrConcurrentModification, lm.Timeout, id)
		}
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// slot returns the account's lock channel. Slots are never evicted, so the map
// holds one entry per account ever locked.
func (lm *LockManager) slot(id AccountID) chan struct{} {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	if lm.slots == nil {
		lm.slots = make(map[AccountID]chan struct{})
	}
	s, ok := lm.slots[id]
	if !ok {
		s = make(chan struct{}, 1)
		lm.slots[id] = s
	}
	return s
}

// lockOrder returns ids sorted ascending with duplicates removed.
func lockOrder(ids []AccountID) []AccountID {
	out := make([]AccountID, 0, len(ids))
	seen := make(map[AccountID]bool, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
