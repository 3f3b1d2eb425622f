package resilience

import (
	"sync"
	"time"

	"github.com/harunnryd/domov/pkg/errorsx"
)

// IsUnavailable reports whether err means the backend could not be
// reached or answered with a server-side failure.
func IsUnavailable(err error) bool {
	return errorsx.HasReason(err, errorsx.ReasonDeviceUnavailable)
}

// CircuitBreaker blocks requests after repeated counted failures. Only
// errors accepted by the classifier count; others leave the breaker alone.
type CircuitBreaker struct {
	mu        sync.Mutex
	failures  int
	threshold int
	openUntil time.Time
	cooldown  time.Duration
	counts    func(error) bool
}

// NewCircuitBreaker returns a breaker counting errors for which counts
// returns true. A nil classifier counts IsUnavailable errors.
func NewCircuitBreaker(threshold int, cooldown time.Duration, counts func(error) bool) *CircuitBreaker {
	if threshold <= 0 {
		threshold = 3
	}
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	if counts == nil {
		counts = IsUnavailable
	}
	return &CircuitBreaker{threshold: threshold, cooldown: cooldown, counts: counts}
}

func (c *CircuitBreaker) Allow() bool {
	if c == nil {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return !time.Now().Before(c.openUntil)
}

func (c *CircuitBreaker) OnSuccess() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.failures = 0
	c.openUntil = time.Time{}
	c.mu.Unlock()
}

func (c *CircuitBreaker) OnError(err error) {
	if c == nil || err == nil || !c.counts(err) {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	if c.failures >= c.threshold {
		c.openUntil = time.Now().Add(c.cooldown)
	}
}

// Record routes err to OnSuccess or OnError.
func (c *CircuitBreaker) Record(err error) {
	if err == nil {
		c.OnSuccess()
		return
	}
	c.OnError(err)
}
