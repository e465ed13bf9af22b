//go:build fastrlock_enable_padding

package opt

// Pad_ separates the owner word of a lock from its waiter bookkeeping.
// Padding is force-enabled via the fastrlock_enable_padding build tag.
// Use: go build -tags=fastrlock_enable_padding
//
// The owner word is 8 bytes, the rest of the line is filled here.
type Pad_ [CacheLineSize_ - 8]byte
