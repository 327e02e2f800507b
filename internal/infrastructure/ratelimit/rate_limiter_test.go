package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAllowBurstThenWait(t *testing.T) {
	rl := NewRateLimiter(1, 2)
	clock := time.Unix(1000, 0)
	rl.now = func() time.Time { return clock }

	ok, _ := rl.Allow("a", "send_message")
	assert.True(t, ok)
	ok, _ = rl.Allow("a", "send_message")
	assert.True(t, ok)

	ok, wait := rl.Allow("a", "send_message")
	assert.False(t, ok)
	assert.InDelta(t, time.Second, wait, float64(10*time.Millisecond))

	ok, _ = rl.Allow("b", "send_message")
	assert.True(t, ok, "limits are per user")

	clock = clock.Add(time.Second)
	ok, _ = rl.Allow("a", "send_message")
	assert.True(t, ok)
}

func TestActionOverrideAndCleanup(t *testing.T) {
	rl := NewRateLimiter(100, 100)
	clock := time.Unix(1000, 0)
	rl.now = func() time.Time { return clock }
	rl.SetLimit("create_chat", 0.1, 1)

	ok, _ := rl.Allow("a", "create_chat")
	assert.True(t, ok)
	ok, _ = rl.Allow("a", "create_chat")
	assert.False(t, ok)

	clock = clock.Add(2 * time.Hour)
	rl.Cleanup(time.Hour)
	assert.Empty(t, rl.entries)
}
