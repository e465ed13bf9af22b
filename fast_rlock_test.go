package fastrlock

import (
	"errors"
	"runtime"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/llxisdsh/fastrlock/internal/opt"
)

var _ sync.Locker = (*FastRLock)(nil)

func TestFastRLock_ZeroValue(t *testing.T) {
	var l FastRLock
	if l.IsOwned() {
		t.Fatal("zero value should not be owned")
	}
	if !l.Acquire(true) {
		t.Fatal("Acquire on zero value failed")
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestFastRLock_AcquireDestroy(t *testing.T) {
	l := New()
	l.Lock()
	runtime.KeepAlive(l)
}

func TestFastRLock_TryAcquire(t *testing.T) {
	l := New()
	if !l.Acquire(false) {
		t.Fatal("Acquire(false) on free lock failed")
	}
	if err := l.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestFastRLock_TryAcquireContended(t *testing.T) {
	l := New()
	l.Lock()
	var result atomic.Bool
	result.Store(true)
	newBunch(func() {
		result.Store(l.Acquire(false))
	}, 1, false).waitForFinished()
	if result.Load() {
		t.Fatal("Acquire(false) succeeded on a lock held by another goroutine")
	}
	if got := l.Count(); got != 1 {
		t.Fatalf("depth changed by failed Acquire: %d", got)
	}
	l.Unlock()
}

func TestFastRLock_AcquireContended(t *testing.T) {
	l := New()
	l.Lock()
	const n = 5
	b := newBunch(func() {
		l.Lock()
		l.Unlock()
	}, n, false)
	b.waitForStarted()
	shortWait()
	if f := b.finished.Load(); f != 0 {
		t.Fatalf("%d goroutines got past a held lock", f)
	}
	l.Unlock()
	b.waitForFinished()
	if f := b.finished.Load(); f != n {
		t.Fatalf("finished = %d, want %d", f, n)
	}
}

func TestFastRLock_Reacquire(t *testing.T) {
	l := New()
	l.Lock()
	l.Lock()
	l.Unlock()
	l.Lock()
	l.Unlock()
	l.Unlock()
	if l.IsOwned() {
		t.Fatal("lock still owned after balanced releases")
	}
}

func TestFastRLock_ReleaseUnacquired(t *testing.T) {
	l := New()
	err := l.Release()
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("Release of never-acquired lock: err = %v, want ErrNotOwner", err)
	}
	var oe *OwnershipError
	if !errors.As(err, &oe) || oe.Owner != 0 || oe.Caller != GoID() {
		t.Fatalf("unexpected error detail: %#v", err)
	}

	l.Lock()
	l.Lock()
	l.Unlock()
	l.Lock()
	l.Unlock()
	l.Unlock()
	if err := l.Release(); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("double release: err = %v, want ErrNotOwner", err)
	}
}

func TestFastRLock_DifferentGoroutineReleaseFails(t *testing.T) {
	l := New()
	b := newBunch(func() {
		l.Lock()
	}, 1, true)
	defer b.doFinish()
	b.waitForFinished()

	err := l.Release()
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("release by non-owner: err = %v, want ErrNotOwner", err)
	}
	var oe *OwnershipError
	if !errors.As(err, &oe) || oe.Owner == 0 || oe.Owner == oe.Caller {
		t.Fatalf("unexpected error detail: %#v", err)
	}
	if l.TryLock() {
		t.Fatal("lock was freed by a rejected release")
	}
}

func TestFastRLock_DifferentGoroutineCannotReleaseOurs(t *testing.T) {
	l := New()
	l.Lock()
	var err error
	newBunch(func() {
		err = l.Release()
	}, 1, false).waitForFinished()
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("foreign release of caller's lock: err = %v, want ErrNotOwner", err)
	}
	if !l.IsOwned() || l.Count() != 1 {
		t.Fatal("foreign release changed ownership")
	}
	l.Unlock()
	l.Lock()
	l.Unlock()
}

func TestFastRLock_IsOwned(t *testing.T) {
	l := New()
	if l.IsOwned() {
		t.Fatal("fresh lock reports owned")
	}
	l.Lock()
	if !l.IsOwned() {
		t.Fatal("not owned after Lock")
	}
	l.Lock()
	if !l.IsOwned() {
		t.Fatal("not owned after recursive Lock")
	}
	var result atomic.Bool
	result.Store(true)
	newBunch(func() {
		result.Store(l.IsOwned())
	}, 1, false).waitForFinished()
	if result.Load() {
		t.Fatal("another goroutine sees the lock as its own")
	}
	l.Unlock()
	if !l.IsOwned() {
		t.Fatal("not owned after partial release")
	}
	l.Unlock()
	if l.IsOwned() {
		t.Fatal("still owned after full release")
	}
}

func TestFastRLock_Count(t *testing.T) {
	l := New()
	for i := 1; i <= 5; i++ {
		l.Lock()
		if got := l.Count(); got != i {
			t.Fatalf("Count = %d, want %d", got, i)
		}
	}
	var other atomic.Int64
	other.Store(-1)
	newBunch(func() {
		other.Store(int64(l.Count()))
	}, 1, false).waitForFinished()
	if other.Load() != 0 {
		t.Fatalf("non-owner Count = %d, want 0", other.Load())
	}
	for i := 4; i >= 0; i-- {
		l.Unlock()
		if got := l.Count(); got != i {
			t.Fatalf("Count = %d, want %d", got, i)
		}
	}
}

func TestFastRLock_UnlockPanics(t *testing.T) {
	l := New()
	defer func() {
		r := recover()
		err, ok := r.(error)
		if !ok || !errors.Is(err, ErrNotOwner) {
			t.Fatalf("recovered %v, want ErrNotOwner", r)
		}
	}()
	l.Unlock()
}

// L constructed; T1 acquires twice, releases once; T2 cannot get it;
// T1 releases again; T2 gets it.
func TestFastRLock_ScenarioRecursiveHandoff(t *testing.T) {
	l := New()
	tryOther := func() bool {
		var ok atomic.Bool
		newBunch(func() {
			if l.TryLock() {
				ok.Store(true)
				l.Unlock()
			}
		}, 1, false).waitForFinished()
		return ok.Load()
	}

	if !l.Acquire(true) || !l.Acquire(true) {
		t.Fatal("Acquire failed")
	}
	if l.Count() != 2 {
		t.Fatalf("depth = %d, want 2", l.Count())
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	if l.Count() != 1 || !l.IsOwned() {
		t.Fatal("lock should still be held once")
	}
	if tryOther() {
		t.Fatal("other goroutine acquired a held lock")
	}
	if err := l.Release(); err != nil {
		t.Fatal(err)
	}
	if l.IsOwned() || l.owner.Load() != 0 {
		t.Fatal("lock should be free")
	}
	if !tryOther() {
		t.Fatal("other goroutine could not acquire a free lock")
	}
}

func TestFastRLock_ScenarioBlockedAcquireWakes(t *testing.T) {
	l := New()
	l.Lock()
	me := GoID()

	acquired := make(chan int64)
	release := make(chan struct{})
	go func() {
		ok := l.Acquire(true)
		if !ok {
			t.Errorf("blocking Acquire returned false")
		}
		acquired <- l.owner.Load()
		<-release
		l.Unlock()
	}()

	select {
	case <-acquired:
		t.Fatal("Acquire returned while the lock was held")
	case <-time.After(50 * time.Millisecond):
	}
	if l.owner.Load() != me {
		t.Fatal("owner changed while blocked")
	}

	l.Unlock()
	select {
	case owner := <-acquired:
		if owner == me || owner == 0 {
			t.Fatalf("owner after handoff = %d", owner)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Acquire did not wake after Release")
	}
	close(release)
}

func TestFastRLock_MutualExclusion(t *testing.T) {
	var l FastRLock
	var holders atomic.Int32
	var counter, tries int64

	n := runtime.GOMAXPROCS(0) * 2
	loops := 2000
	if opt.Race_ {
		loops = 200
	}
	const depth = 3

	var wg sync.WaitGroup
	wg.Add(n)
	for range n {
		go func() {
			defer wg.Done()
			for i := range loops {
				for range depth {
					l.Lock()
				}
				if holders.Add(1) != 1 {
					t.Errorf("more than one holder")
				}
				counter++
				holders.Add(-1)
				for range depth {
					l.Unlock()
				}

				if i%4 == 0 && l.TryLock() {
					tries++
					l.Unlock()
				}
			}
		}()
	}
	wg.Wait()

	if counter != int64(n*loops) {
		t.Fatalf("counter = %d, want %d", counter, n*loops)
	}
	if l.owner.Load() != 0 || l.waiters.Load() != 0 {
		t.Fatalf("lock not idle: owner=%d waiters=%d", l.owner.Load(), l.waiters.Load())
	}
	t.Logf("uncontended TryLock successes: %d", tries)
}

// A thread that acquired k times must release k times before anyone else
// gets the lock.
func TestFastRLock_DepthHandoff(t *testing.T) {
	l := New()
	const k = 4
	for range k {
		l.Lock()
	}
	got := make(chan struct{})
	go func() {
		l.Lock()
		close(got)
		l.Unlock()
	}()
	for i := range k {
		select {
		case <-got:
			t.Fatalf("lock handed off after %d of %d releases", i, k)
		case <-time.After(10 * time.Millisecond):
		}
		l.Unlock()
	}
	select {
	case <-got:
	case <-time.After(time.Second):
		t.Fatal("lock not handed off after full release")
	}
}

func TestFastRLock_SpuriousWakeups(t *testing.T) {
	l := New()
	l.Lock()
	done := make(chan struct{})
	go func() {
		l.Lock()
		close(done)
		l.Unlock()
	}()
	for l.waiters.Load() == 0 {
		time.Sleep(time.Millisecond)
	}

	h := l.heavy.Load()
	for range 10 {
		h.mu.Lock()
		h.cond.Broadcast()
		h.mu.Unlock()
		time.Sleep(time.Millisecond)
	}
	select {
	case <-done:
		t.Fatal("waiter returned on a spurious wakeup")
	case <-time.After(20 * time.Millisecond):
	}

	l.Unlock()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiter not woken by Release")
	}
}

func TestFastRLock_NoStateRetained(t *testing.T) {
	l := New()
	l.Lock()
	l.Lock()
	l.Unlock()
	l.Unlock()
	if l.owner.Load() != 0 || l.depth != 0 {
		t.Fatalf("state retained: owner=%d depth=%d", l.owner.Load(), l.depth)
	}
	if l.heavy.Load() != nil {
		t.Fatal("uncontended use installed the blocking path")
	}

	newBunch(func() {
		l.Lock()
		l.Unlock()
	}, 15, false).waitForFinished()
	if l.owner.Load() != 0 || l.waiters.Load() != 0 {
		t.Fatalf("state retained: owner=%d waiters=%d", l.owner.Load(), l.waiters.Load())
	}
}

// The lock must not keep short-lived goroutines alive.
func TestFastRLock_GoroutineLeak(t *testing.T) {
	l := New()
	before := runtime.NumGoroutine()
	newBunch(func() {
		l.Lock()
		l.Unlock()
	}, 15, false).waitForFinished()

	deadline := time.Now().Add(time.Second)
	for runtime.NumGoroutine() > before {
		if time.Now().After(deadline) {
			t.Fatalf("goroutines: before=%d after=%d", before, runtime.NumGoroutine())
		}
		shortWait()
	}
}

func BenchmarkFastRLock_LockUnlock(b *testing.B) {
	var l FastRLock
	for range b.N {
		l.Lock()
		l.Unlock()
	}
}

func BenchmarkFastRLock_Reentrant(b *testing.B) {
	var l FastRLock
	for range b.N {
		l.Lock()
		l.Lock()
		l.Lock()
		l.Unlock()
		l.Unlock()
		l.Unlock()
	}
}

func BenchmarkFastRLock_LockUnlockWithGoID(b *testing.B) {
	var l FastRLock
	gid := GoID()
	for range b.N {
		LockFastRLock(&l, gid, true)
		_ = UnlockFastRLock(&l, gid)
	}
}

func BenchmarkFastRLock_Parallel(b *testing.B) {
	var l FastRLock
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			l.Lock()
			l.Unlock()
		}
	})
}

func BenchmarkMutex_Parallel(b *testing.B) {
	var m sync.Mutex
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			m.Lock()
			m.Unlock()
		}
	})
}
