package fastrlock

import (
	"errors"
	"fmt"
)

// ErrNotOwner is reported when a lock is released by a goroutine that does
// not hold it, including a lock that is not held by anyone.
var ErrNotOwner = errors.New("fastrlock: cannot release un-acquired lock")

// OwnershipError describes a rejected release.
// It matches ErrNotOwner with errors.Is.
type OwnershipError struct {
	// Caller is the goroutine id that attempted the release.
	Caller int64
	// Owner is the goroutine id that held the lock at that moment,
	// 0 if it was unlocked.
	Owner int64
}

func (e *OwnershipError) Error() string {
	if e.Owner == 0 {
		return fmt.Sprintf("%v (goroutine %d, lock not held)", ErrNotOwner, e.Caller)
	}
	return fmt.Sprintf("%v (goroutine %d, held by goroutine %d)", ErrNotOwner, e.Caller, e.Owner)
}

// Is reports whether target is ErrNotOwner.
func (e *OwnershipError) Is(target error) bool {
	return target == ErrNotOwner
}
