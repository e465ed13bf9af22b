package bench

import (
	"errors"
	"fmt"
	"sync"

	"github.com/llxisdsh/fastrlock"
	"github.com/llxisdsh/fastrlock/internal/opt"
)

// RLocker is the surface the workloads drive.
type RLocker interface {
	Acquire(blocking bool) bool
	Release() error
	With(fn func() error) error
}

const (
	// LockFast is fastrlock.FastRLock.
	LockFast = "fastrlock"
	// LockMutex is MutexRLock, the always-blocking baseline.
	LockMutex = "mutexrlock"
)

// LockNames lists the lock implementations known to NewLock.
func LockNames() []string {
	return []string{LockFast, LockMutex}
}

// ErrUnknownLock is returned by NewLock for a name not in LockNames.
var ErrUnknownLock = errors.New("bench: unknown lock")

// NewLock returns a fresh, unlocked lock of the named implementation.
func NewLock(name string) (RLocker, error) {
	switch name {
	case LockFast:
		return fastrlock.New(), nil
	case LockMutex:
		return NewMutexRLock(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownLock, name)
	}
}

// MutexRLock is a reentrant lock whose every operation goes through a
// sync.Mutex, the straightforward design FastRLock is measured against.
type MutexRLock struct {
	mu    sync.Mutex
	cond  sync.Cond
	owner int64
	depth int
}

// NewMutexRLock returns an unlocked MutexRLock.
func NewMutexRLock() *MutexRLock {
	l := &MutexRLock{}
	l.cond.L = &l.mu
	return l
}

func (l *MutexRLock) Acquire(blocking bool) bool {
	me := opt.GoID_()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner == me {
		l.depth++
		return true
	}
	for l.owner != 0 {
		if !blocking {
			return false
		}
		l.cond.Wait()
	}
	l.owner = me
	l.depth = 1
	return true
}

func (l *MutexRLock) Release() error {
	me := opt.GoID_()
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.owner != me || l.owner == 0 {
		return &fastrlock.OwnershipError{Caller: me, Owner: l.owner}
	}
	l.depth--
	if l.depth == 0 {
		l.owner = 0
		l.cond.Signal()
	}
	return nil
}

func (l *MutexRLock) With(fn func() error) (err error) {
	l.Acquire(true)
	defer func() {
		if rerr := l.Release(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn()
}
