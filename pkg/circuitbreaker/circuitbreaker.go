package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned without invoking the protected call while the
// breaker is rejecting traffic.
var ErrOpen = errors.New("circuit breaker is open")

type State int

const (
	// StateClosed passes all calls through.
	StateClosed State = iota
	// StateOpen rejects calls outright until the cooldown elapses.
	StateOpen
	// StateHalfOpen lets a few probe calls through to test recovery.
	StateHalfOpen
)

type Config struct {
	// FailureThreshold consecutive failures trip the breaker open.
	FailureThreshold int
	// SuccessThreshold probe successes close it again.
	SuccessThreshold int
	// Cooldown is how long the breaker stays open before probing.
	Cooldown time.Duration
	// HalfOpenMaxCalls bounds concurrent probes in the half-open state.
	HalfOpenMaxCalls int
}

func DefaultConfig() Config {
	return Config{
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Cooldown:         30 * time.Second,
		HalfOpenMaxCalls: 3,
	}
}

// CircuitBreaker shields a flaky upstream: after enough consecutive
// failures it fails fast instead of stacking timeouts, then probes the
// upstream after a cooldown.
type CircuitBreaker struct {
	config Config

	state         State
	failures      int
	probeSuccess  int
	probeInFlight int
	since         time.Time

	mu sync.Mutex
}

func New(config Config) *CircuitBreaker {
	return &CircuitBreaker{
		config: config,
		state:  StateClosed,
		since:  time.Now(),
	}
}

// Execute runs fn under breaker protection. While open it returns
// ErrOpen without calling fn.
func (cb *CircuitBreaker) Execute(fn func() error) error {
	cb.mu.Lock()
	cb.transition()

	switch cb.state {
	case StateOpen:
		cb.mu.Unlock()
		return ErrOpen
	case StateHalfOpen:
		if cb.probeInFlight >= cb.config.HalfOpenMaxCalls {
			cb.mu.Unlock()
			return ErrOpen
		}
		cb.probeInFlight++
	}
	cb.mu.Unlock()

	err := fn()

	cb.mu.Lock()
	defer cb.mu.Unlock()
	if err != nil {
		cb.onFailure()
	} else {
		cb.onSuccess()
	}
	return err
}

func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.state
}

func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.state = StateClosed
	cb.failures = 0
	cb.probeSuccess = 0
	cb.probeInFlight = 0
	cb.since = time.Now()
}

// transition applies time- and count-based state changes. Callers hold mu.
func (cb *CircuitBreaker) transition() {
	now := time.Now()
	switch cb.state {
	case StateOpen:
		if now.Sub(cb.since) >= cb.config.Cooldown {
			cb.state = StateHalfOpen
			cb.probeInFlight = 0
			cb.probeSuccess = 0
			cb.since = now
		}
	case StateHalfOpen:
		if cb.probeSuccess >= cb.config.SuccessThreshold {
			cb.state = StateClosed
			cb.failures = 0
			cb.since = now
		}
	case StateClosed:
		if cb.failures >= cb.config.FailureThreshold {
			cb.state = StateOpen
			cb.since = now
		}
	}
}

func (cb *CircuitBreaker) onFailure() {
	cb.failures++
	if cb.state == StateHalfOpen {
		// A failed probe reopens immediately.
		cb.state = StateOpen
		cb.probeInFlight = 0
		cb.since = time.Now()
	}
}

func (cb *CircuitBreaker) onSuccess() {
	cb.failures = 0
	if cb.state == StateHalfOpen {
		cb.probeSuccess++
		cb.probeInFlight--
	}
}
