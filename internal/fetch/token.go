package fetch

import "sync/atomic"

// Token is an advisory stop signal shared by a group of tasks. Tasks check
// it before starting; cancelling never interrupts work already running.
type Token struct {
	cancelled atomic.Bool
}

// Cancel marks the token. It is safe to call more than once.
func (t *Token) Cancel() {
	t.cancelled.Store(true)
}

// Cancelled reports whether Cancel was called.
func (t *Token) Cancelled() bool {
	return t.cancelled.Load()
}
