//go:build fastrlock_stack_goid

package opt

import "runtime"

// GoID_ returns the id of the calling goroutine.
//
// This variant parses the header line of runtime.Stack and works on any
// platform and Go release, at a few microseconds per call.
// Use: go build -tags=fastrlock_stack_goid
func GoID_() int64 {
	// "goroutine 123 [running]:\n..." fits easily.
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	return ParseGoID(buf[:n])
}
