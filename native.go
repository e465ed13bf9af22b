package fastrlock

import "github.com/llxisdsh/fastrlock/internal/opt"

// GoID returns the id of the calling goroutine, as used for lock ownership.
//
// Hot loops that take a lock many times can look the id up once and pass it
// to LockFastRLock and UnlockFastRLock.
func GoID() int64 {
	return opt.GoID_()
}

// LockFastRLock is Acquire with a caller-supplied goroutine id.
//
// gid must be the value GoID returned on the calling goroutine; passing any
// other id breaks the ownership rules. It panics if gid is not positive.
func LockFastRLock(l *FastRLock, gid int64, blocking bool) bool {
	if gid <= 0 {
		panic("fastrlock: invalid goroutine id")
	}
	return l.acquire(gid, blocking)
}

// UnlockFastRLock is Release with a caller-supplied goroutine id.
func UnlockFastRLock(l *FastRLock, gid int64) error {
	return l.release(gid)
}
