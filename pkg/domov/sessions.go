package domov

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// sessionRegistry tracks the live sessions by id.
type sessionRegistry struct {
	sessions sync.Map
	count    atomic.Int64
	draining atomic.Bool
}

// Add registers s unless a session with the same id exists.
func (r *sessionRegistry) Add(s *session) bool {
	if _, loaded := r.sessions.LoadOrStore(s.id, s); loaded {
		return false
	}
	r.count.Add(1)
	return true
}

func (r *sessionRegistry) Get(id string) (*session, bool) {
	if v, ok := r.sessions.Load(id); ok {
		return v.(*session), true
	}
	return nil, false
}

// Remove unregisters and returns the session, or nil if it was gone.
func (r *sessionRegistry) Remove(id string) *session {
	if v, ok := r.sessions.LoadAndDelete(id); ok {
		r.count.Add(-1)
		return v.(*session)
	}
	return nil
}

func (r *sessionRegistry) Range(fn func(s *session) bool) {
	r.sessions.Range(func(_, value any) bool {
		return fn(value.(*session))
	})
}

func (r *sessionRegistry) Count() int64 {
	return r.count.Load()
}

func (r *sessionRegistry) SetDraining(v bool) {
	r.draining.Store(v)
}

func (r *sessionRegistry) Draining() bool {
	return r.draining.Load()
}

func (r *sessionRegistry) WaitForEmpty(ctx context.Context, interval time.Duration) bool {
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		if r.Count() == 0 {
			return true
		}
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
		}
	}
}
