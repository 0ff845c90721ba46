package browser

import "sync/atomic"

// State is the circuit breaker state. There is no half-open state: once
// open, the breaker stays open for the remainder of the process lifetime.
type State int32

// Breaker states.
const (
	StateClosed State = iota
	StateOpen
)

func (s State) String() string {
	if s == StateOpen {
		return "open"
	}
	return "closed"
}

// DefaultBreakerThreshold is the number of consecutive crash-class
// failures tolerated before the breaker opens.
const DefaultBreakerThreshold = 3

// Breaker guards the headless browser against repeated crash-class
// failures. Safe for concurrent use.
type Breaker struct {
	threshold   int32
	consecutive atomic.Int32
	open        atomic.Bool
}

// NewBreaker builds a Breaker. A non-positive threshold falls back to
// DefaultBreakerThreshold.
func NewBreaker(threshold int) *Breaker {
	if threshold <= 0 {
		threshold = DefaultBreakerThreshold
	}
	return &Breaker{threshold: int32(threshold)}
}

// Allow reports whether the browser may be used.
func (b *Breaker) Allow() bool {
	return !b.open.Load()
}

// RecordFailure notes a crash-class failure and returns true if this
// failure opened the breaker.
func (b *Breaker) RecordFailure() bool {
	if b.consecutive.Add(1) >= b.threshold && b.open.CompareAndSwap(false, true) {
		return true
	}
	return false
}

// RecordSuccess resets the consecutive failure count.
func (b *Breaker) RecordSuccess() {
	b.consecutive.Store(0)
}

// State returns the current breaker state.
func (b *Breaker) State() State {
	if b.open.Load() {
		return StateOpen
	}
	return StateClosed
}

// Failures returns the current consecutive failure count.
func (b *Breaker) Failures() int {
	return int(b.consecutive.Load())
}
