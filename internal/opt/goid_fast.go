//go:build !fastrlock_stack_goid

package opt

import "github.com/petermattis/goid"

// GoID_ returns the id of the calling goroutine.
// It reads the id straight out of the runtime's g struct.
func GoID_() int64 {
	return goid.Get()
}
