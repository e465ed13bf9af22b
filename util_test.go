package fastrlock

import (
	"sync/atomic"
	"time"
)

// shortWait is a crude yield that does not rely on any synchronization
// primitive under test.
func shortWait() {
	time.Sleep(10 * time.Millisecond)
}

// bunch is a group of n goroutines running the same function.
type bunch struct {
	n        int32
	started  atomic.Int32
	finished atomic.Int32
	canExit  chan struct{}
}

// newBunch starts n goroutines running f. If waitBeforeExit is true the
// goroutines stay alive after f returns until doFinish is called.
func newBunch(f func(), n int, waitBeforeExit bool) *bunch {
	b := &bunch{n: int32(n), canExit: make(chan struct{})}
	if !waitBeforeExit {
		close(b.canExit)
	}
	for range n {
		go func() {
			b.started.Add(1)
			defer func() {
				b.finished.Add(1)
				<-b.canExit
			}()
			f()
		}()
	}
	return b
}

func (b *bunch) waitForStarted() {
	for b.started.Load() < b.n {
		shortWait()
	}
}

func (b *bunch) waitForFinished() {
	for b.finished.Load() < b.n {
		shortWait()
	}
}

func (b *bunch) doFinish() {
	close(b.canExit)
}
