package ratelimit

import (
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
)

type fakeClock struct {
	t time.Time
}

func (f *fakeClock) Now() time.Time { return f.t }

func TestMessageRateLimiterCooldown(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	rl := NewMessageRateLimiter(2, 5*time.Second, 10*time.Second)
	defer rl.Close()
	rl.now = clock.Now

	assert.Equal(t, rl.Allow("LIKE"), true)
	assert.Equal(t, rl.Allow("LIKE"), true)
	assert.Equal(t, rl.Allow("LIKE"), false)
	// Başka tip etkilenmez.
	assert.Equal(t, rl.Allow("SAVE"), true)

	clock.t = clock.t.Add(9 * time.Second)
	assert.Equal(t, rl.Allow("LIKE"), false)

	clock.t = clock.t.Add(2 * time.Second)
	assert.Equal(t, rl.Allow("LIKE"), true)
}

func TestMessageRateLimiterWindowReset(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	rl := NewMessageRateLimiter(1, time.Second, time.Minute)
	defer rl.Close()
	rl.now = clock.Now

	assert.Equal(t, rl.Allow("PING"), true)
	clock.t = clock.t.Add(2 * time.Second)
	assert.Equal(t, rl.Allow("PING"), true)

	rl.Reset()
	assert.Equal(t, rl.Allow("PING"), true)
}

func TestMessageRateLimiterDisabled(t *testing.T) {
	rl := NewMessageRateLimiter(0, time.Second, time.Second)
	defer rl.Close()

	for i := 0; i < 100; i++ {
		assert.Equal(t, rl.Allow("LIKE"), true)
	}
}

func TestSendDeduper(t *testing.T) {
	clock := &fakeClock{t: time.Unix(0, 0)}
	d := NewSendDeduper()
	d.now = clock.Now

	assert.Equal(t, d.Allow("LIKE:m1", "like", 2*time.Second), true)
	assert.Equal(t, d.Allow("LIKE:m1", "like", 2*time.Second), false)
	// Farklı hedef etkilenmez.
	assert.Equal(t, d.Allow("LIKE:m2", "like", 2*time.Second), true)

	clock.t = clock.t.Add(2 * time.Second)
	assert.Equal(t, d.Allow("LIKE:m1", "like", 2*time.Second), true)

	d.Forget("LIKE:m1")
	assert.Equal(t, d.Allow("LIKE:m1", "like", 2*time.Second), true)

	assert.Equal(t, d.Allow("POST:p1", "join", 0), true)
	assert.Equal(t, d.Allow("POST:p1", "join", 0), true)
}

func TestSendDeduperAlternatingActions(t *testing.T) {
	d := NewSendDeduper()

	assert.Equal(t, d.Allow("LIKE:m1", "LIKE", time.Minute), true)
	assert.Equal(t, d.Allow("LIKE:m1", "UNLIKE", time.Minute), true)
	assert.Equal(t, d.Allow("LIKE:m1", "LIKE", time.Minute), true)
	assert.Equal(t, d.Allow("LIKE:m1", "LIKE", time.Minute), false)
}
