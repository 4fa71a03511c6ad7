// Package circuit provides a consecutive-failure circuit breaker.
package circuit

import (
	"sync"
	"time"

	"trailbot/internal/logger"
)

type State int

const (
	StateClosed State = iota
	StateOpen
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF-OPEN"
	default:
		return "UNKNOWN"
	}
}

// Breaker opens after threshold consecutive failures and lets one probe
// through once timeout has passed since the last failure.
type Breaker struct {
	mu            sync.Mutex
	name          string
	state         State
	failures      int
	threshold     int
	timeout       time.Duration
	lastFailure   time.Time
	now           func() time.Time
	onStateChange func(name string, from, to State)
}

func New(name string, threshold int, timeout time.Duration) *Breaker {
	if threshold <= 0 {
		threshold = 1
	}
	return &Breaker{
		name:      name,
		threshold: threshold,
		timeout:   timeout,
		state:     StateClosed,
		now:       time.Now,
	}
}

// WithClock replaces the time source.
func (b *Breaker) WithClock(now func() time.Time) *Breaker {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now != nil {
		b.now = now
	}
	return b
}

// OnStateChange registers a callback invoked synchronously under no lock.
func (b *Breaker) OnStateChange(fn func(name string, from, to State)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onStateChange = fn
}

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Allow reports whether a call may proceed.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	var notify func()
	allowed := true
	if b.state == StateOpen {
		if b.now().Sub(b.lastFailure) >= b.timeout {
			notify = b.transition(StateHalfOpen)
		} else {
			allowed = false
		}
	}
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
	return allowed
}

func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	var notify func()
	if b.state == StateHalfOpen {
		notify = b.transition(StateClosed)
	}
	b.failures = 0
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
}

func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	b.failures++
	b.lastFailure = b.now()
	var notify func()
	switch b.state {
	case StateClosed:
		if b.failures >= b.threshold {
			notify = b.transition(StateOpen)
		}
	case StateHalfOpen:
		notify = b.transition(StateOpen)
	}
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
}

// transition must be called with mu held; the returned func runs after unlock.
func (b *Breaker) transition(to State) func() {
	from := b.state
	b.state = to
	name, failures, cb := b.name, b.failures, b.onStateChange
	return func() {
		if cb != nil {
			cb(name, from, to)
			return
		}
		logger.Warnf("circuit %s: %s -> %s (failures=%d)", name, from, to, failures)
	}
}
