package breaker

import (
	"context"
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func failingOp(ctx context.Context) error { return errBoom }
func okOp(ctx context.Context) error      { return nil }

func newTestBreaker(now *time.Time) *Breaker {
	return New("test",
		WithFailureThreshold(3),
		WithRecoveryTimeout(60*time.Second),
		WithSuccessThreshold(2),
		withClock(func() time.Time { return *now }),
	)
}

func TestBreakerOpensAtThreshold(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(&now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := b.Call(ctx, failingOp); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: expected wrapped op error, got %v", i, err)
		}
	}

	invoked := false
	err := b.Call(ctx, func(ctx context.Context) error {
		invoked = true
		return nil
	})
	if !IsOpen(err) {
		t.Fatalf("expected OpenError, got %v", err)
	}
	if invoked {
		t.Error("operation must not be invoked while circuit is open")
	}

	openErr := err.(*OpenError)
	if openErr.RetryAfter <= 0 || openErr.RetryAfter > 60*time.Second {
		t.Errorf("unexpected retry-after: %v", openErr.RetryAfter)
	}
}

func TestBreakerHalfOpenRecovery(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(&now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b.Call(ctx, failingOp)
	}
	if b.Status().State != StateOpen {
		t.Fatalf("expected open, got %s", b.Status().State)
	}

	// After the recovery timeout a trial call is permitted.
	now = now.Add(61 * time.Second)
	if err := b.Call(ctx, okOp); err != nil {
		t.Fatalf("trial call should pass through: %v", err)
	}
	if b.Status().State != StateHalfOpen {
		t.Fatalf("expected half_open after one success, got %s", b.Status().State)
	}

	// Second consecutive success closes the circuit.
	if err := b.Call(ctx, okOp); err != nil {
		t.Fatalf("second trial call failed: %v", err)
	}
	if b.Status().State != StateClosed {
		t.Fatalf("expected closed, got %s", b.Status().State)
	}
}

func TestBreakerHalfOpenFailureReopens(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(&now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b.Call(ctx, failingOp)
	}

	now = now.Add(61 * time.Second)
	if err := b.Call(ctx, failingOp); !errors.Is(err, errBoom) {
		t.Fatalf("trial call should propagate op error, got %v", err)
	}
	if b.Status().State != StateOpen {
		t.Fatalf("expected reopened circuit, got %s", b.Status().State)
	}

	// Still rejecting before another full recovery window.
	if err := b.Call(ctx, okOp); !IsOpen(err) {
		t.Fatalf("expected OpenError right after reopen, got %v", err)
	}
}

func TestBreakerSuccessDoesNotResetClosedFailures(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(&now)
	ctx := context.Background()

	b.Call(ctx, failingOp)
	b.Call(ctx, failingOp)
	b.Call(ctx, okOp)

	if st := b.Status().State; st != StateClosed {
		t.Fatalf("expected closed, got %s", st)
	}

	// One more failure reaches the threshold of 3.
	b.Call(ctx, failingOp)
	if st := b.Status().State; st != StateOpen {
		t.Fatalf("expected open after third failure, got %s", st)
	}
}

func TestRegistryOneBreakerPerService(t *testing.T) {
	r := NewRegistry()

	a := r.Get("fal")
	b := r.Get("fal")
	if a != b {
		t.Error("expected the same breaker instance for one service name")
	}

	c := r.Get("elevenlabs")
	if a == c {
		t.Error("expected distinct breakers for distinct services")
	}

	if got := len(r.Statuses()); got != 2 {
		t.Errorf("expected 2 statuses, got %d", got)
	}
}

func TestBreakerReset(t *testing.T) {
	now := time.Now()
	b := newTestBreaker(&now)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		b.Call(ctx, failingOp)
	}
	b.Reset()

	if err := b.Call(ctx, okOp); err != nil {
		t.Fatalf("call after reset should succeed: %v", err)
	}
}
