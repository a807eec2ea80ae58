// Package ratelimit provides sliding-window admission control keyed by an
// arbitrary identity (user id, client IP).
package ratelimit

import (
	"context"
	"sync"
	"time"
)

// Limiter decides whether one more request from identity is admitted.
// Implementations never fail; an admitted request is recorded.
type Limiter interface {
	Admit(ctx context.Context, identity string) bool
}

// Memory is a process-local sliding-window limiter. Each process enforces
// its own quota.
type Memory struct {
	mu       sync.Mutex
	window   time.Duration
	capacity int
	hits     map[string][]time.Time
	now      func() time.Time
}

func NewMemory(window time.Duration, capacity int) *Memory {
	return &Memory{
		window:   window,
		capacity: capacity,
		hits:     make(map[string][]time.Time),
		now:      time.Now,
	}
}

func (m *Memory) Admit(_ context.Context, identity string) bool {
	now := m.now()
	cutoff := now.Add(-m.window)

	m.mu.Lock()
	defer m.mu.Unlock()

	ts := m.hits[identity]
	// entries are appended in order, so the live ones are a suffix
	i := 0
	for i < len(ts) && !ts[i].After(cutoff) {
		i++
	}
	ts = ts[i:]

	if len(ts) >= m.capacity {
		m.hits[identity] = ts
		return false
	}
	m.hits[identity] = append(ts, now)
	return true
}

// Sweep drops identities with no hits inside the window. Admit prunes
// lazily; Sweep keeps idle identities from accumulating.
func (m *Memory) Sweep() {
	cutoff := m.now().Add(-m.window)
	m.mu.Lock()
	for k, ts := range m.hits {
		if len(ts) == 0 || !ts[len(ts)-1].After(cutoff) {
			delete(m.hits, k)
		}
	}
	m.mu.Unlock()
}

// Janitor calls Sweep every interval until ctx is done.
func (m *Memory) Janitor(ctx context.Context, interval time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

// Scoped prefixes identities so one backing limiter can serve several
// independent quotas.
type Scoped struct {
	Scope string
	Next  Limiter
}

func (s Scoped) Admit(ctx context.Context, identity string) bool {
	return s.Next.Admit(ctx, s.Scope+":"+identity)
}
