package breaker

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// State of a circuit breaker.
type State string

const (
	StateClosed   State = "closed"
	StateOpen     State = "open"
	StateHalfOpen State = "half_open"
)

// OpenError is returned instead of invoking the wrapped operation while the
// circuit is open. RetryAfter is the time until the next trial call is
// permitted.
type OpenError struct {
	Service    string
	RetryAfter time.Duration
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("circuit breaker open for %s, retry after %.1fs", e.Service, e.RetryAfter.Seconds())
}

// IsOpen reports whether err is a breaker-open rejection.
func IsOpen(err error) bool {
	_, ok := err.(*OpenError)
	return ok
}

// Breaker isolates failures of one external service. Failures increment a
// counter while closed; at the threshold the circuit opens and calls fail
// fast until the recovery timeout elapses, after which trial calls are let
// through (half-open). Consecutive trial successes close the circuit again;
// a single trial failure reopens it.
type Breaker struct {
	service          string
	failureThreshold int
	recoveryTimeout  time.Duration
	successThreshold int

	mu              sync.Mutex
	state           State
	failureCount    int
	successCount    int
	lastFailureTime time.Time

	now func() time.Time
}

// Option configures a Breaker.
type Option func(*Breaker)

// WithFailureThreshold sets the consecutive-failure count that opens the circuit.
func WithFailureThreshold(n int) Option {
	return func(b *Breaker) { b.failureThreshold = n }
}

// WithRecoveryTimeout sets how long an open circuit waits before trialing.
func WithRecoveryTimeout(d time.Duration) Option {
	return func(b *Breaker) { b.recoveryTimeout = d }
}

// WithSuccessThreshold sets the consecutive trial successes that close the circuit.
func WithSuccessThreshold(n int) Option {
	return func(b *Breaker) { b.successThreshold = n }
}

func withClock(now func() time.Time) Option {
	return func(b *Breaker) { b.now = now }
}

// New creates a closed breaker for the named service.
func New(service string, opts ...Option) *Breaker {
	b := &Breaker{
		service:          service,
		failureThreshold: 5,
		recoveryTimeout:  60 * time.Second,
		successThreshold: 2,
		state:            StateClosed,
		now:              time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Call executes op through the breaker. The operation's own error propagates
// to the caller after being recorded; the breaker never retries.
func (b *Breaker) Call(ctx context.Context, op func(context.Context) error) error {
	if err := b.beforeCall(); err != nil {
		return err
	}

	err := op(ctx)
	if err != nil {
		b.recordFailure(err)
		return err
	}

	b.recordSuccess()
	return nil
}

func (b *Breaker) beforeCall() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateOpen {
		since := b.now().Sub(b.lastFailureTime)
		if since < b.recoveryTimeout {
			return &OpenError{Service: b.service, RetryAfter: b.recoveryTimeout - since}
		}
		b.transitionTo(StateHalfOpen)
	}
	return nil
}

func (b *Breaker) recordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.state == StateHalfOpen {
		b.successCount++
		if b.successCount >= b.successThreshold {
			b.transitionTo(StateClosed)
		}
	}
}

func (b *Breaker) recordFailure(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failureCount++
	b.lastFailureTime = b.now()

	log.Printf("Circuit breaker %s recorded failure %d/%d: %v",
		b.service, b.failureCount, b.failureThreshold, err)

	if b.state == StateHalfOpen {
		// Any failure while trialing reopens immediately.
		b.transitionTo(StateOpen)
	} else if b.failureCount >= b.failureThreshold {
		b.transitionTo(StateOpen)
	}
}

// transitionTo must be called with b.mu held.
func (b *Breaker) transitionTo(state State) {
	old := b.state
	b.state = state

	switch state {
	case StateHalfOpen:
		b.successCount = 0
	case StateClosed:
		b.failureCount = 0
		b.successCount = 0
	}

	log.Printf("Circuit breaker %s: %s -> %s", b.service, old, state)
}

// Status is a point-in-time snapshot for monitoring.
type Status struct {
	Service        string  `json:"service"`
	State          State   `json:"state"`
	FailureCount   int     `json:"failureCount"`
	SuccessCount   int     `json:"successCount"`
	RetryAfterSecs float64 `json:"retryAfterSeconds"`
}

// Status returns the breaker's current state.
func (b *Breaker) Status() Status {
	b.mu.Lock()
	defer b.mu.Unlock()

	var retryAfter float64
	if b.state == StateOpen {
		remaining := b.recoveryTimeout - b.now().Sub(b.lastFailureTime)
		if remaining > 0 {
			retryAfter = remaining.Seconds()
		}
	}

	return Status{
		Service:        b.service,
		State:          b.state,
		FailureCount:   b.failureCount,
		SuccessCount:   b.successCount,
		RetryAfterSecs: retryAfter,
	}
}

// Reset forces the breaker back to closed.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.state = StateClosed
	b.failureCount = 0
	b.successCount = 0
	b.lastFailureTime = time.Time{}

	log.Printf("Circuit breaker %s manually reset", b.service)
}

// Registry holds one breaker per service name. It replaces module-level
// singletons: construct one registry and inject it into every component
// that makes external calls.
type Registry struct {
	mu       sync.Mutex
	breakers map[string]*Breaker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{breakers: make(map[string]*Breaker)}
}

// Get returns the breaker for a service, creating it on first use.
// Options apply only on creation.
func (r *Registry) Get(service string, opts ...Option) *Breaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if b, ok := r.breakers[service]; ok {
		return b
	}
	b := New(service, opts...)
	r.breakers[service] = b
	return b
}

// Statuses returns a snapshot of every registered breaker.
func (r *Registry) Statuses() []Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	statuses := make([]Status, 0, len(r.breakers))
	for _, b := range r.breakers {
		statuses = append(statuses, b.Status())
	}
	return statuses
}
