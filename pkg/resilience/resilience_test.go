package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/harunnryd/domov/pkg/errorsx"
)

func TestCircuitBreakerOpensOnUnavailable(t *testing.T) {
	cb := NewCircuitBreaker(2, time.Minute, nil)
	down := errorsx.Wrap(errors.New("dial tcp: refused"), errorsx.ReasonDeviceUnavailable)

	cb.OnError(errors.New("bad request"))
	cb.OnError(errors.New("bad request"))
	if !cb.Allow() {
		t.Fatalf("non-counted errors must not open the breaker")
	}
	cb.OnError(down)
	if !cb.Allow() {
		t.Fatalf("expected breaker closed after one failure")
	}
	cb.OnError(down)
	if cb.Allow() {
		t.Fatalf("expected breaker open after threshold")
	}
	cb.OnSuccess()
	if !cb.Allow() {
		t.Fatalf("expected breaker closed after success")
	}
}

func TestCircuitBreakerCooldown(t *testing.T) {
	cb := NewCircuitBreaker(1, 20*time.Millisecond, func(error) bool { return true })
	cb.Record(errors.New("boom"))
	if cb.Allow() {
		t.Fatalf("expected open breaker")
	}
	time.Sleep(30 * time.Millisecond)
	if !cb.Allow() {
		t.Fatalf("expected breaker to allow after cooldown")
	}
}

func TestRetryPolicyStopsOnSuccess(t *testing.T) {
	calls := 0
	p := NewRetryPolicy(3, time.Millisecond)
	err := p.Do(context.Background(), func() error {
		calls++
		if calls < 2 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil || calls != 2 {
		t.Fatalf("expected success on second call, got err=%v calls=%d", err, calls)
	}
}

func TestRetryPolicySkipsNonRetryable(t *testing.T) {
	calls := 0
	p := NewRetryPolicy(3, time.Millisecond)
	p.Retryable = IsUnavailable
	err := p.Do(context.Background(), func() error {
		calls++
		return errors.New("status 400")
	})
	if err == nil || calls != 1 {
		t.Fatalf("expected one call, got err=%v calls=%d", err, calls)
	}
}

func TestRetryPolicyHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	calls := 0
	p := NewRetryPolicy(5, time.Hour)
	_ = p.Do(ctx, func() error {
		calls++
		return errors.New("down")
	})
	if calls != 1 {
		t.Fatalf("expected cancelled context to stop retries, got %d calls", calls)
	}
}
