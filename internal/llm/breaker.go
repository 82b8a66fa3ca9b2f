package llm

import (
	"errors"
	"sync"
	"time"
)

// Circuit breaker defaults.
const (
	cbFailureThreshold = 5
	cbCooldown         = 30 * time.Second
)

// Circuit breaker states.
const (
	cbClosed   = iota // Normal operation.
	cbOpen            // Fail fast.
	cbHalfOpen        // Probe with one request.
)

// ErrCircuitOpen is returned while the breaker rejects calls without
// contacting the model endpoint.
var ErrCircuitOpen = errors.New("re-rank circuit breaker is open")

type breaker struct {
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	mu            sync.Mutex
	state         int
	failures      int
	lastFailureAt time.Time
}

func newBreaker(threshold int, cooldown time.Duration) *breaker {
	if threshold <= 0 {
		threshold = cbFailureThreshold
	}
	if cooldown <= 0 {
		cooldown = cbCooldown
	}

	return &breaker{threshold: threshold, cooldown: cooldown, now: time.Now, state: cbClosed}
}

// allow reports whether a call may proceed. After the cooldown an open
// breaker lets exactly one probe through.
func (b *breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case cbOpen:
		if b.now().Sub(b.lastFailureAt) >= b.cooldown {
			b.state = cbHalfOpen
			return nil
		}
		return ErrCircuitOpen
	case cbHalfOpen:
		return ErrCircuitOpen
	}

	return nil
}

func (b *breaker) success() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.state = cbClosed
}

func (b *breaker) failure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures++
	b.lastFailureAt = b.now()

	if b.failures >= b.threshold || b.state == cbHalfOpen {
		b.state = cbOpen
	}
}
