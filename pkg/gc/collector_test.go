package gc

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/marmos91/filebrowse/pkg/session"
	"github.com/marmos91/filebrowse/pkg/session/memory"
	sessiontest "github.com/marmos91/filebrowse/pkg/session/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sweepRecorder struct {
	mu      sync.Mutex
	removed map[string]int
}

func (r *sweepRecorder) RecordSweep(site string, removed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.removed == nil {
		r.removed = make(map[string]int)
	}
	r.removed[site] += removed
}

type brokenStore struct {
	session.Store
}

func (brokenStore) SweepExpired(context.Context) (session.SweepStats, error) {
	return session.SweepStats{}, errors.New("disk unavailable")
}

func freezeN(t *testing.T, store session.Store, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		id, err := store.Create(t.Context())
		require.NoError(t, err)
		require.NoError(t, store.Freeze(t.Context(), id, sessiontest.Records(1)))
	}
}

func TestRunNow(t *testing.T) {
	clock := sessiontest.NewClock()
	expiry := session.Expiry{MaxAge: time.Minute, Now: clock.Now}

	a := memory.New(expiry)
	b := memory.New(expiry)
	freezeN(t, a, 2)
	freezeN(t, b, 1)

	rec := &sweepRecorder{}
	c := NewCollector(map[string]session.Store{"a": a, "b": b}, Config{}, rec)

	t.Run("NothingExpired", func(t *testing.T) {
		stats, err := c.RunNow(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Scanned)
		assert.Zero(t, stats.Removed)
		assert.Len(t, stats.PerSite, 2)
	})

	t.Run("RemovesExpired", func(t *testing.T) {
		clock.Advance(2 * time.Minute)
		freezeN(t, b, 1)

		stats, err := c.RunNow(t.Context())
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Removed)
		assert.Equal(t, 2, stats.PerSite["a"].Removed)
		assert.Equal(t, 1, stats.PerSite["b"].Removed)
		assert.Equal(t, 1, b.Len())
		assert.Equal(t, map[string]int{"a": 2, "b": 1}, rec.removed)
		assert.Contains(t, stats.Summary(), "removed=3")
	})
}

func TestRunNowContinuesPastFailures(t *testing.T) {
	clock := sessiontest.NewClock()
	good := memory.New(session.Expiry{MaxAge: time.Minute, Now: clock.Now})
	freezeN(t, good, 1)
	clock.Advance(time.Hour)

	c := NewCollector(map[string]session.Store{
		"a-broken": brokenStore{memory.New(session.Expiry{})},
		"b-good":   good,
	}, Config{}, nil)

	stats, err := c.RunNow(t.Context())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "a-broken")
	assert.Equal(t, 1, stats.FailedSites)
	assert.Equal(t, 1, stats.PerSite["b-good"].Removed)
}

func TestStartStop(t *testing.T) {
	t.Run("DisabledIsNoop", func(t *testing.T) {
		c := NewCollector(nil, Config{Enabled: false}, nil)
		c.Start()
		assert.NoError(t, c.Stop(t.Context()))
	})

	t.Run("BackgroundSweep", func(t *testing.T) {
		clock := sessiontest.NewClock()
		store := memory.New(session.Expiry{MaxAge: time.Minute, Now: clock.Now})
		freezeN(t, store, 3)
		clock.Advance(time.Hour)

		c := NewCollector(map[string]session.Store{"s": store}, Config{Enabled: true, Interval: 10 * time.Millisecond}, nil)
		c.Start()
		c.Start()

		assert.Eventually(t, func() bool { return store.Len() == 0 }, 2*time.Second, 10*time.Millisecond)

		ctx, cancel := context.WithTimeout(t.Context(), time.Second)
		defer cancel()
		require.NoError(t, c.Stop(ctx))
		require.NoError(t, c.Stop(ctx))
	})
}

func TestDefaults(t *testing.T) {
	c := NewCollector(nil, Config{}, nil)
	assert.Equal(t, 5*time.Minute, c.config.Interval)
	assert.Equal(t, time.Minute, c.config.Timeout)
}
