package agent

import "sync/atomic"

// CancelFlag is a settable, observable stop signal. The engine polls it at
// the top of every step; it never interrupts a step in flight. Safe for
// concurrent use.
type CancelFlag struct {
	set atomic.Bool
}

// NewCancelFlag returns an unset flag.
func NewCancelFlag() *CancelFlag {
	return &CancelFlag{}
}

// Cancel sets the flag. Setting an already-set flag is a no-op.
func (f *CancelFlag) Cancel() {
	f.set.Store(true)
}

// Cancelled reports whether the flag has been set.
func (f *CancelFlag) Cancelled() bool {
	return f.set.Load()
}

// Reset clears the flag so a cancelled engine can run again.
func (f *CancelFlag) Reset() {
	f.set.Store(false)
}
