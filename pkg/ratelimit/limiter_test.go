package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestMemory(window time.Duration, capacity int) (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)}
	m := NewMemory(window, capacity)
	m.now = clock.Now
	return m, clock
}

func TestEleventhCallInWindowIsRejected(t *testing.T) {
	m, clock := newTestMemory(60*time.Second, 10)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		assert.True(t, m.Admit(ctx, "user-1"), "call %d should be admitted", i+1)
		clock.Advance(time.Second)
	}
	assert.False(t, m.Admit(ctx, "user-1"), "11th call should be rejected")
	assert.False(t, m.Admit(ctx, "user-1"), "rejections are not recorded but still rejected")

	// first hit was at t=0; once it leaves the window one slot frees up
	clock.Advance(50 * time.Second)
	assert.True(t, m.Admit(ctx, "user-1"))
	assert.False(t, m.Admit(ctx, "user-1"))

	clock.Advance(61 * time.Second)
	for i := 0; i < 10; i++ {
		assert.True(t, m.Admit(ctx, "user-1"))
	}
}

func TestRejectedCallsDoNotExtendTheWindow(t *testing.T) {
	m, clock := newTestMemory(10*time.Second, 2)
	ctx := context.Background()

	assert.True(t, m.Admit(ctx, "u"))
	assert.True(t, m.Admit(ctx, "u"))
	for i := 0; i < 5; i++ {
		clock.Advance(time.Second)
		assert.False(t, m.Admit(ctx, "u"))
	}
	clock.Advance(6 * time.Second)
	assert.True(t, m.Admit(ctx, "u"))
}

func TestIdentitiesAreIndependent(t *testing.T) {
	m, _ := newTestMemory(time.Minute, 1)
	ctx := context.Background()

	assert.True(t, m.Admit(ctx, "alice"))
	assert.False(t, m.Admit(ctx, "alice"))
	assert.True(t, m.Admit(ctx, "bob"))
}

func TestScopedSeparatesQuotas(t *testing.T) {
	m, _ := newTestMemory(time.Minute, 1)
	ctx := context.Background()
	send := Scoped{Scope: "send", Next: m}
	auth := Scoped{Scope: "auth", Next: m}

	assert.True(t, send.Admit(ctx, "1.2.3.4"))
	assert.True(t, auth.Admit(ctx, "1.2.3.4"))
	assert.False(t, send.Admit(ctx, "1.2.3.4"))
}

func TestSweepDropsIdleIdentities(t *testing.T) {
	m, clock := newTestMemory(time.Minute, 5)
	ctx := context.Background()
	m.Admit(ctx, "idle")
	clock.Advance(30 * time.Second)
	m.Admit(ctx, "active")
	clock.Advance(31 * time.Second)

	m.Sweep()

	m.mu.Lock()
	defer m.mu.Unlock()
	assert.NotContains(t, m.hits, "idle")
	assert.Contains(t, m.hits, "active")
}

func TestConcurrentAdmitNeverExceedsCapacity(t *testing.T) {
	m := NewMemory(time.Minute, 10)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	admitted := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if m.Admit(ctx, "shared") {
				mu.Lock()
				admitted++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, admitted)
}
