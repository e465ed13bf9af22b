package fastrlock

import (
	"errors"

	"github.com/llxisdsh/fastrlock/internal/opt"
)

// Guard is one scoped acquisition of a FastRLock.
//
// Usage:
//
//	g := l.Enter()
//	defer g.Close()
//	// Critical section
//
// A Guard releases at most once, so a deferred Close after an explicit one
// is harmless. A Guard belongs to the goroutine that called Enter and must
// not be shared; Close from any other goroutine fails with ErrNotOwner.
type Guard struct {
	l    *FastRLock
	done bool
}

// Enter acquires l (blocking) and returns a Guard that releases it.
// Nested Enter calls on the same goroutine take the recursive fast path.
func (l *FastRLock) Enter() *Guard {
	l.acquire(opt.GoID_(), true)
	return &Guard{l: l}
}

// Close releases the acquisition made by Enter.
// Calls after the first successful one return nil and do nothing.
func (g *Guard) Close() error {
	if g.done {
		return nil
	}
	if err := g.l.release(opt.GoID_()); err != nil {
		return err
	}
	g.done = true
	return nil
}

// With runs fn while holding l.
//
// The lock is released when fn returns or panics. If the release itself
// fails (fn released the lock more times than it acquired it), the error
// is joined to fn's.
func (l *FastRLock) With(fn func() error) (err error) {
	gid := opt.GoID_()
	l.acquire(gid, true)
	defer func() {
		if rerr := l.release(gid); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn()
}
