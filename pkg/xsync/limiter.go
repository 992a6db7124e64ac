// Package xsync provides small concurrency primitives: a counting
// semaphore (Limiter), a panic-recovering goroutine launcher (Go) and
// an externally resolved value (Future). Of these, only Future is used
// elsewhere in this module, by the approval gate.
package xsync

// Limiter is a counting semaphore that restricts the number of
// concurrent operations to a configurable maximum.
type Limiter struct {
	semaphore chan struct{}
}

// NewLimiter creates a Limiter allowing at most max concurrent holders.
// Panics if max <= 0.
func NewLimiter(max int) *Limiter {
	if max <= 0 {
		panic("xsync: limiter max must be > 0")
	}
	return &Limiter{semaphore: make(chan struct{}, max)}
}

// Acquire blocks until a slot is available.
func (l *Limiter) Acquire() {
	l.semaphore <- struct{}{}
}

// TryAcquire attempts to acquire a slot without blocking.
func (l *Limiter) TryAcquire() bool {
	select {
	case l.semaphore <- struct{}{}:
		return true
	default:
		return false
	}
}

// Release returns a slot to the limiter.
func (l *Limiter) Release() {
	<-l.semaphore
}
