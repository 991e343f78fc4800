package ratelimiter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name              string
		requestsPerSecond uint
		burst             uint
	}{
		{name: "standard rate", requestsPerSecond: 100, burst: 200},
		{name: "low rate", requestsPerSecond: 1, burst: 2},
		{name: "default burst", requestsPerSecond: 5, burst: 0},
		{name: "unlimited (zero rate)", requestsPerSecond: 0, burst: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			limiter := New(tt.requestsPerSecond, tt.burst)
			require.NotNil(t, limiter)
			require.NotNil(t, limiter.limiter)
			assert.True(t, limiter.Allow())
		})
	}
}

func TestAllow(t *testing.T) {
	limiter := New(10, 10)

	for i := 0; i < 10; i++ {
		require.True(t, limiter.Allow(), "request %d should be allowed (within burst)", i)
	}
	assert.False(t, limiter.Allow(), "request should be rate-limited after burst exhausted")

	// 10 req/s refills one token every 100ms
	time.Sleep(110 * time.Millisecond)
	assert.True(t, limiter.Allow())
}

func TestUnlimited(t *testing.T) {
	limiter := New(0, 0)
	for i := 0; i < 10000; i++ {
		require.True(t, limiter.Allow())
	}
}

func TestKeyed(t *testing.T) {
	t.Run("IndependentBuckets", func(t *testing.T) {
		k := NewKeyed(1, 2, time.Minute)
		assert.True(t, k.Allow("10.0.0.1"))
		assert.True(t, k.Allow("10.0.0.1"))
		assert.False(t, k.Allow("10.0.0.1"))

		assert.True(t, k.Allow("10.0.0.2"), "other clients keep their own budget")
		assert.Equal(t, 2, k.Len())
	})

	t.Run("DisabledKeepsNoState", func(t *testing.T) {
		k := NewKeyed(0, 0, time.Minute)
		assert.False(t, k.Enabled())
		for i := 0; i < 100; i++ {
			require.True(t, k.Allow("c"))
		}
		assert.Zero(t, k.Len())
		assert.Zero(t, k.Prune())
	})

	t.Run("NilIsDisabled", func(t *testing.T) {
		var k *Keyed
		assert.False(t, k.Enabled())
		assert.True(t, k.Allow("c"))
	})

	t.Run("PruneIdle", func(t *testing.T) {
		now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
		k := NewKeyed(5, 5, time.Minute)
		k.now = func() time.Time { return now }

		k.Allow("old")
		now = now.Add(45 * time.Second)
		k.Allow("recent")
		now = now.Add(30 * time.Second)

		assert.Equal(t, 1, k.Prune())
		assert.Equal(t, 1, k.Len())
	})
}
