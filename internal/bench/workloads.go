package bench

import (
	"fmt"
	"slices"
)

// Workload is one unit of lock traffic, run once per iteration.
type Workload struct {
	Name string
	Run  func(l RLocker) error
}

// Workloads returns the benchmark workloads in reporting order.
func Workloads() []Workload {
	return []Workload{
		{"lock_unlock", lockUnlock},
		{"reentrant_lock_unlock", reentrantLockUnlock},
		{"mixed_lock_unlock", mixedLockUnlock},
		{"lock_unlock_nonblocking", lockUnlockNonblocking},
		{"context_manager", contextManager},
	}
}

// SelectWorkloads returns the workloads whose names are in names, in
// reporting order. An empty names selects all of them.
func SelectWorkloads(names []string) ([]Workload, error) {
	all := Workloads()
	if len(names) == 0 {
		return all, nil
	}
	var out []Workload
	for _, name := range names {
		i := slices.IndexFunc(all, func(w Workload) bool { return w.Name == name })
		if i < 0 {
			return nil, fmt.Errorf("bench: unknown workload %q", name)
		}
		out = append(out, all[i])
	}
	return out, nil
}

// seq runs a fixed pattern of Acquire (true) and Release (false) steps.
func seq(l RLocker, steps ...bool) error {
	for _, acquire := range steps {
		if acquire {
			l.Acquire(true)
			continue
		}
		if err := l.Release(); err != nil {
			return err
		}
	}
	return nil
}

const (
	acq = true
	rel = false
)

func lockUnlock(l RLocker) error {
	return seq(l, acq, rel, acq, rel, acq, rel, acq, rel, acq, rel)
}

func reentrantLockUnlock(l RLocker) error {
	return seq(l, acq, acq, acq, acq, acq, rel, rel, rel, rel, rel)
}

func mixedLockUnlock(l RLocker) error {
	return seq(l, acq, rel, acq, acq, rel, acq, rel, acq, rel, rel)
}

func lockUnlockNonblocking(l RLocker) error {
	for range 5 {
		if l.Acquire(false) {
			if err := l.Release(); err != nil {
				return err
			}
		}
	}
	return nil
}

// scope is a nesting of With blocks: each child is a nested block.
type scope []scope

// contextTree is the shape of the nested scoped-use workload.
var contextTree = scope{
	{},
	{{{}, {}}, {{}}, {{}, {}}},
	{},
	{{{}, {}, {{}}}},
	{},
}

func contextManager(l RLocker) error {
	return enter(l, contextTree)
}

func enter(l RLocker, s scope) error {
	for _, child := range s {
		if err := l.With(func() error { return enter(l, child) }); err != nil {
			return err
		}
	}
	return nil
}
