package fastrlock

import (
	"github.com/llxisdsh/pb"

	"github.com/llxisdsh/fastrlock/internal/opt"
)

// RLockGroup allows reentrant locking on arbitrary keys (string, int, struct, etc.).
// It dynamically manages a set of FastRLocks associated with values.
//
// Features:
//   - Infinite Keys: No need to pre-allocate locks.
//   - Reentrant: the goroutine holding a key may lock it again.
//   - Auto-Cleanup: a key's lock is removed from memory once every Lock has
//     been matched by an Unlock and no one else is waiting for it.
//
// Usage:
//
//	var group RLockGroup[string]
//	group.Lock("user-123")
//	// Critical section for user-123
//	group.Unlock("user-123")
//
// Implementation Note:
// Every Lock (including waiters and recursive locks) holds one reference on
// the key's entry; the entry is deleted when the last reference is dropped.
type RLockGroup[K comparable] struct {
	_ noCopy
	m pb.MapOf[K, *rlockGroupEntry]
}

type rlockGroupEntry struct {
	mu FastRLock
	// ref is only touched inside ProcessEntry.
	ref int32
}

// Lock acquires the lock for k, blocking while another goroutine holds it.
func (g *RLockGroup[K]) Lock(k K) {
	g.acquire(k, opt.GoID_(), true)
}

// TryLock tries to acquire the lock for k without blocking.
func (g *RLockGroup[K]) TryLock(k K) bool {
	return g.acquire(k, opt.GoID_(), false)
}

// Unlock releases one level of the calling goroutine's hold on k.
// It returns an error matching ErrNotOwner if the caller does not hold k.
func (g *RLockGroup[K]) Unlock(k K) error {
	gid := opt.GoID_()
	v, ok := g.lookup(k)
	if !ok {
		return &OwnershipError{Caller: gid}
	}
	// The caller's own reference keeps v alive if it really holds k.
	if err := v.mu.release(gid); err != nil {
		return err
	}
	g.unref(k)
	return nil
}

// IsLocked reports whether the calling goroutine holds k.
func (g *RLockGroup[K]) IsLocked(k K) bool {
	v, ok := g.lookup(k)
	return ok && v.mu.IsOwned()
}

// Len returns the number of keys currently locked or waited on.
func (g *RLockGroup[K]) Len() int {
	return g.m.Size()
}

// lookup reads k's entry under the bucket lock that guards ref updates.
func (g *RLockGroup[K]) lookup(k K) (*rlockGroupEntry, bool) {
	return g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *rlockGroupEntry]) (*pb.EntryOf[K, *rlockGroupEntry], *rlockGroupEntry, bool) {
			if l == nil {
				return nil, nil, false
			}
			return l, l.Value, true
		},
	)
}

func (g *RLockGroup[K]) acquire(k K, gid int64, blocking bool) bool {
	v, _ := g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *rlockGroupEntry]) (*pb.EntryOf[K, *rlockGroupEntry], *rlockGroupEntry, bool) {
			if l != nil {
				l.Value.ref++
				return l, l.Value, true
			}
			e := &rlockGroupEntry{ref: 1}
			return &pb.EntryOf[K, *rlockGroupEntry]{Value: e}, e, false
		},
	)
	if v.mu.acquire(gid, blocking) {
		return true
	}
	g.unref(k)
	return false
}

func (g *RLockGroup[K]) unref(k K) {
	_, _ = g.m.ProcessEntry(
		k,
		func(l *pb.EntryOf[K, *rlockGroupEntry]) (*pb.EntryOf[K, *rlockGroupEntry], *rlockGroupEntry, bool) {
			if l == nil {
				return nil, nil, false
			}
			l.Value.ref--
			if l.Value.ref <= 0 {
				return nil, nil, false
			}
			return l, l.Value, false
		},
	)
}
