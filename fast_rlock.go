// Package fastrlock provides FastRLock, a reentrant mutual-exclusion lock
// that stays lock-free while it is uncontended or re-acquired by its owner.
package fastrlock

import (
	"sync"
	"sync/atomic"

	"github.com/llxisdsh/fastrlock/internal/opt"
)

// FastRLock is a reentrant (recursive) mutex owned by a goroutine.
//
// The goroutine that holds the lock may acquire it again without blocking;
// each acquisition must be paired with one release, and only the final
// release hands the lock to someone else.
//
// Implementation:
// Ownership lives in a single atomic word holding the owner's goroutine id.
//   - Fast path: an unowned lock is taken with one CAS (0 -> me), a lock
//     already owned by the caller just bumps the recursion depth. Neither
//     case parks or allocates.
//   - Slow path: only when another goroutine owns the lock. A sync.Mutex and
//     sync.Cond pair is installed on first contention and waiters park on
//     it. Release signals exactly one waiter, never broadcasts.
//
// Trade-offs:
//   - No fairness: a running goroutine may take the lock ahead of a waiter
//     that was just woken, and a waiter may starve.
//   - Ownership is tied to the goroutine, so a lock acquired in one
//     goroutine cannot be released from another.
//
// It is zero-value usable (starts unlocked) and must not be copied after
// first use.
type FastRLock struct {
	_ noCopy
	// owner is the goroutine id of the holder, 0 when unlocked.
	owner atomic.Int64
	_     opt.Pad_
	// depth is the recursion count. Only the owner reads or writes it;
	// handoff between owners is ordered by the atomics on owner.
	depth   int
	waiters atomic.Int32
	heavy   atomic.Pointer[heavyLock]
}

// heavyLock is the blocking half of FastRLock, used only under contention.
type heavyLock struct {
	mu   sync.Mutex
	cond sync.Cond
}

// New returns a new, unlocked FastRLock.
// It is equivalent to new(FastRLock).
func New() *FastRLock {
	return &FastRLock{}
}

// Acquire acquires the lock for the calling goroutine.
//
// If the caller already owns the lock, the recursion depth is incremented
// and Acquire returns true immediately. If another goroutine owns it,
// Acquire blocks until the lock is released when blocking is true, and
// returns false without changing anything when blocking is false.
func (l *FastRLock) Acquire(blocking bool) bool {
	return l.acquire(opt.GoID_(), blocking)
}

// Release releases one level of ownership held by the calling goroutine.
//
// It returns an *OwnershipError (matching ErrNotOwner) if the caller does
// not own the lock, which includes a lock that is not held at all.
// When the depth drops to zero the lock becomes free and one waiter, if
// any, is woken.
func (l *FastRLock) Release() error {
	return l.release(opt.GoID_())
}

// Lock acquires the lock, blocking if another goroutine owns it.
func (l *FastRLock) Lock() {
	l.acquire(opt.GoID_(), true)
}

// TryLock tries to acquire the lock without blocking and reports whether
// it succeeded.
func (l *FastRLock) TryLock() bool {
	return l.acquire(opt.GoID_(), false)
}

// Unlock is like Release but panics with the *OwnershipError if the calling
// goroutine does not own the lock, mirroring sync.Mutex.
func (l *FastRLock) Unlock() {
	if err := l.release(opt.GoID_()); err != nil {
		panic(err)
	}
}

// IsOwned reports whether the calling goroutine currently owns the lock.
//
// It never blocks and never touches the blocking path. The answer is only
// advisory: for any other goroutine it may be stale as soon as it returns.
func (l *FastRLock) IsOwned() bool {
	return l.owner.Load() == opt.GoID_()
}

// Count returns the recursion depth held by the calling goroutine,
// or 0 if it does not own the lock.
func (l *FastRLock) Count() int {
	if l.owner.Load() != opt.GoID_() {
		return 0
	}
	return l.depth
}

func (l *FastRLock) acquire(me int64, blocking bool) bool {
	switch l.owner.Load() {
	case me:
		l.depth++
		return true
	case 0:
		// Two goroutines may both observe 0 here; the CAS picks one.
		if l.owner.CompareAndSwap(0, me) {
			l.depth = 1
			return true
		}
	}
	if !blocking {
		return false
	}
	l.acquireSlow(me)
	return true
}

func (l *FastRLock) acquireSlow(me int64) {
	h := l.heavyLock()
	// Register before testing owner: release stores owner first and reads
	// waiters second, so one of the two sides always sees the other.
	l.waiters.Add(1)
	h.mu.Lock()
	for !l.owner.CompareAndSwap(0, me) {
		h.cond.Wait()
	}
	l.waiters.Add(-1)
	h.mu.Unlock()
	l.depth = 1
}

func (l *FastRLock) release(me int64) error {
	owner := l.owner.Load()
	if owner != me || owner == 0 {
		return &OwnershipError{Caller: me, Owner: owner}
	}
	l.depth--
	if l.depth > 0 {
		return nil
	}
	l.owner.Store(0)
	if l.waiters.Load() > 0 {
		// waiters > 0 implies heavy was installed.
		h := l.heavy.Load()
		h.mu.Lock()
		h.cond.Signal()
		h.mu.Unlock()
	}
	return nil
}

func (l *FastRLock) heavyLock() *heavyLock {
	if h := l.heavy.Load(); h != nil {
		return h
	}
	h := &heavyLock{}
	h.cond.L = &h.mu
	if l.heavy.CompareAndSwap(nil, h) {
		return h
	}
	return l.heavy.Load()
}
