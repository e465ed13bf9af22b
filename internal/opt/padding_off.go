//go:build !fastrlock_enable_padding

package opt

// Pad_ is zero-sized by default: an uncontended lock only ever touches its
// owner word, so keeping the whole lock on one line is the cheaper layout.
type Pad_ struct{}
