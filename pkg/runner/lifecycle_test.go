package runner

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestLifecycleRunsHooksAndDrainsOnce(t *testing.T) {
	var started, stopped, drained atomic.Int32
	r := NewLifecycleRunner(DrainerFunc(func(ctx context.Context) error {
		drained.Add(1)
		if _, ok := ctx.Deadline(); !ok {
			t.Errorf("drain context has no deadline")
		}
		return nil
	}), Hooks{
		OnStart: func() { started.Add(1) },
		OnStop:  func() { stopped.Add(1) },
	}, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for r.State() != StateRunning {
		if time.Now().After(deadline) {
			t.Fatalf("runner never reached running, state %s", r.State())
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := r.Stop(); err != nil {
		t.Fatalf("second stop: %v", err)
	}
	if started.Load() != 1 || stopped.Load() != 1 || drained.Load() != 1 {
		t.Fatalf("hooks ran start=%d stop=%d drain=%d", started.Load(), stopped.Load(), drained.Load())
	}
	if r.State() != StateStopped {
		t.Fatalf("expected stopped, got %s", r.State())
	}
	select {
	case <-r.Stopped():
	default:
		t.Fatalf("stopped channel not closed")
	}
}

func TestLifecycleDrainTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	r := NewLifecycleRunner(DrainerFunc(func(context.Context) error {
		<-release
		return nil
	}), Hooks{}, 20*time.Millisecond)
	if err := r.Stop(); !errors.Is(err, ErrDrainTimeout) {
		t.Fatalf("expected drain timeout, got %v", err)
	}
}

func TestLifecycleReportsDrainError(t *testing.T) {
	boom := errors.New("transport stuck")
	r := NewLifecycleRunner(DrainerFunc(func(context.Context) error { return boom }), Hooks{}, time.Second)
	if err := r.Stop(); !errors.Is(err, boom) {
		t.Fatalf("expected drain error, got %v", err)
	}
	if err := r.Run(context.Background()); err == nil {
		t.Fatalf("run after stop should fail")
	}
}
