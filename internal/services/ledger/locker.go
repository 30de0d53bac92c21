package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/user01samiul/jx-backend-sub008/internal/config"
	"github.com/user01samiul/jx-backend-sub008/internal/infra/pgutils"
)

type LockObserver interface {
	LockRetried()
	LockBusy()
}

type noopObserver struct{}

func (noopObserver) LockRetried() {}
func (noopObserver) LockBusy()    {}

type tryLockFunc func(ctx context.Context, tx *sql.Tx, key string) (bool, error)

// Locker serializes work on a (user, scope) key with transaction-scoped
// advisory locks. It never blocks on a held key: a losing acquirer backs off
// and retries, and gives up with ErrBusy once the budget is spent.
type Locker struct {
	retries  int
	base     time.Duration
	max      time.Duration
	tryLock  tryLockFunc
	observer LockObserver
}

func NewLocker(cfg config.LedgerConfig, observer LockObserver) *Locker {
	if observer == nil {
		observer = noopObserver{}
	}

	l := &Locker{
		retries:  cfg.LockRetries,
		base:     cfg.LockBackoff,
		max:      cfg.LockMaxBackoff,
		tryLock:  pgutils.TryAdvisoryXactLock,
		observer: observer,
	}

	if l.retries < 0 {
		l.retries = 0
	}
	if l.base <= 0 {
		l.base = 10 * time.Millisecond
	}
	if l.max < l.base {
		l.max = l.base
	}

	return l
}

// Acquire takes every key inside tx in sorted order, so two units needing
// overlapping keys cannot wait on each other in a cycle.
func (l *Locker) Acquire(ctx context.Context, tx *sql.Tx, keys ...string) error {
	sorted := slices.Clone(keys)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)

	for _, key := range sorted {
		err := l.acquireOne(ctx, tx, key)
		if err != nil {
			return err
		}
	}

	return nil
}

func (l *Locker) acquireOne(ctx context.Context, tx *sql.Tx, key string) error {
	for attempt := 0; ; attempt++ {
		ok, err := l.tryLock(ctx, tx, key)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}

		if attempt >= l.retries {
			l.observer.LockBusy()
			return fmt.Errorf("%w: %s after %d attempts", ErrBusy, key, attempt+1)
		}

		l.observer.LockRetried()

		timer := time.NewTimer(l.delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w: %s: %w", ErrBusy, key, ctx.Err())
		case <-timer.C:
		}
	}
}

// delay is exponential in attempt, capped at max, with up to 50% jitter.
func (l *Locker) delay(attempt int) time.Duration {
	d := l.base << min(attempt, 16)
	if d <= 0 || d > l.max {
		d = l.max
	}

	half := int64(d / 2)
	if half <= 0 {
		return d
	}

	return time.Duration(half + rand.Int64N(half+1))
}
