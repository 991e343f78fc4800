// Package testing provides a conformance suite for session.Store
// implementations.
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/filebrowse/pkg/files"
	"github.com/marmos91/filebrowse/pkg/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MaxAge is the expiry configured by NewStore factories under test.
const MaxAge = 30 * time.Minute

// Clock is a manually advanced clock for deterministic expiry tests.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock set to the current wall time, truncated to the
// second so that filesystem timestamps round-trip exactly.
func NewClock() *Clock {
	return &Clock{now: time.Now().Truncate(time.Second)}
}

// Now returns the clock's current time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward by d.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// StoreTestSuite tests the session.Store contract, independent of the
// backend.
//
// Usage:
//
//	func TestStore(t *testing.T) {
//	    suite := &sessiontest.StoreTestSuite{
//	        NewStore: func(t *testing.T, expiry session.Expiry) session.Store {
//	            return mystore.New(expiry)
//	        },
//	    }
//	    suite.Run(t)
//	}
type StoreTestSuite struct {
	// NewStore creates a fresh, isolated store using the given expiry.
	NewStore func(t *testing.T, expiry session.Expiry) session.Store
}

// Run executes all tests in the suite.
func (suite *StoreTestSuite) Run(t *testing.T) {
	t.Run("Create", suite.RunCreateTests)
	t.Run("FreezeResolve", suite.RunFreezeResolveTests)
	t.Run("Expiry", suite.RunExpiryTests)
	t.Run("Concurrency", suite.RunConcurrencyTests)
}

func (suite *StoreTestSuite) newStore(t *testing.T) (session.Store, *Clock) {
	t.Helper()
	clock := NewClock()
	store := suite.NewStore(t, session.Expiry{MaxAge: MaxAge, Now: clock.Now})
	t.Cleanup(func() { _ = store.Close() })
	return store, clock
}

// Records returns n sample records with distinct names and timestamps.
func Records(n int) []files.Record {
	out := make([]files.Record, n)
	for i := range out {
		out[i] = files.Record{
			Name:         fmt.Sprintf("file-%03d.xml", i),
			Path:         fmt.Sprintf("/data/in/file-%03d.xml", i),
			LastModified: int64(1_700_000_000_000 - i*1000),
			Created:      int64(1_600_000_000_000 + i),
			IsFile:       true,
		}
	}
	return out
}

func testContext() context.Context {
	return context.Background()
}

// RunCreateTests checks id allocation.
func (suite *StoreTestSuite) RunCreateTests(t *testing.T) {
	t.Run("UniqueVersion1IDs", func(t *testing.T) {
		store, _ := suite.newStore(t)
		seen := make(map[string]struct{})
		for i := 0; i < 100; i++ {
			id, err := store.Create(testContext())
			require.NoError(t, err)

			parsed, err := uuid.Parse(id)
			require.NoError(t, err)
			assert.Equal(t, uuid.Version(1), parsed.Version())

			_, dup := seen[id]
			require.False(t, dup)
			seen[id] = struct{}{}
		}
	})

	t.Run("CreatedButNotFrozenIsNotFound", func(t *testing.T) {
		store, _ := suite.newStore(t)
		id, err := store.Create(testContext())
		require.NoError(t, err)

		_, err = store.Resolve(testContext(), id)
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("CancelledContext", func(t *testing.T) {
		store, _ := suite.newStore(t)
		ctx, cancel := context.WithCancel(testContext())
		cancel()

		_, err := store.Create(ctx)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

// RunFreezeResolveTests checks persistence semantics.
func (suite *StoreTestSuite) RunFreezeResolveTests(t *testing.T) {
	t.Run("RoundTripPreservesOrder", func(t *testing.T) {
		store, _ := suite.newStore(t)
		id, err := store.Create(testContext())
		require.NoError(t, err)

		want := Records(25)
		require.NoError(t, store.Freeze(testContext(), id, want))

		got, err := store.Resolve(testContext(), id)
		require.NoError(t, err)
		assert.Equal(t, want, got)

		// A second read returns the same set.
		again, err := store.Resolve(testContext(), id)
		require.NoError(t, err)
		assert.Equal(t, want, again)
	})

	t.Run("EmptyFreezeIsNoop", func(t *testing.T) {
		store, _ := suite.newStore(t)
		id, err := store.Create(testContext())
		require.NoError(t, err)

		require.NoError(t, store.Freeze(testContext(), id, nil))
		require.NoError(t, store.Freeze(testContext(), id, []files.Record{}))

		_, err = store.Resolve(testContext(), id)
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("FirstFreezeWins", func(t *testing.T) {
		store, _ := suite.newStore(t)
		id, err := store.Create(testContext())
		require.NoError(t, err)

		first := Records(3)
		require.NoError(t, store.Freeze(testContext(), id, first))
		require.NoError(t, store.Freeze(testContext(), id, Records(7)))

		got, err := store.Resolve(testContext(), id)
		require.NoError(t, err)
		assert.Equal(t, first, got)
	})

	t.Run("FrozenSetIsIsolatedFromCaller", func(t *testing.T) {
		store, _ := suite.newStore(t)
		id, err := store.Create(testContext())
		require.NoError(t, err)

		records := Records(2)
		require.NoError(t, store.Freeze(testContext(), id, records))
		records[0].Name = "mutated"

		got, err := store.Resolve(testContext(), id)
		require.NoError(t, err)
		assert.Equal(t, "file-000.xml", got[0].Name)
	})

	t.Run("SessionsAreIndependent", func(t *testing.T) {
		store, _ := suite.newStore(t)
		a, err := store.Create(testContext())
		require.NoError(t, err)
		b, err := store.Create(testContext())
		require.NoError(t, err)

		require.NoError(t, store.Freeze(testContext(), a, Records(2)))
		require.NoError(t, store.Freeze(testContext(), b, Records(5)))

		gotA, err := store.Resolve(testContext(), a)
		require.NoError(t, err)
		gotB, err := store.Resolve(testContext(), b)
		require.NoError(t, err)
		assert.Len(t, gotA, 2)
		assert.Len(t, gotB, 5)
	})

	t.Run("UnknownID", func(t *testing.T) {
		store, _ := suite.newStore(t)
		unknown, err := uuid.NewUUID()
		require.NoError(t, err)

		_, err = store.Resolve(testContext(), unknown.String())
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("MalformedID", func(t *testing.T) {
		store, _ := suite.newStore(t)
		for _, id := range []string{"", "not-a-uuid", "../../etc/passwd", "a/b"} {
			_, err := store.Resolve(testContext(), id)
			assert.ErrorIs(t, err, session.ErrSessionNotFound, id)
		}
	})

	t.Run("FreezeRejectsMalformedID", func(t *testing.T) {
		store, _ := suite.newStore(t)
		for _, id := range []string{"not-a-uuid", "../../etc/passwd", "a/b"} {
			assert.Error(t, store.Freeze(testContext(), id, Records(1)), id)
		}
		stats, err := store.SweepExpired(testContext())
		require.NoError(t, err)
		assert.Zero(t, stats.Scanned)
	})
}

// RunExpiryTests checks lazy and explicit sweeping.
func (suite *StoreTestSuite) RunExpiryTests(t *testing.T) {
	t.Run("ResolvableUntilMaxAge", func(t *testing.T) {
		store, clock := suite.newStore(t)
		id, err := store.Create(testContext())
		require.NoError(t, err)
		require.NoError(t, store.Freeze(testContext(), id, Records(3)))

		clock.Advance(MaxAge - time.Second)
		_, err = store.Resolve(testContext(), id)
		require.NoError(t, err)
	})

	t.Run("ResolveSweepsExpired", func(t *testing.T) {
		store, clock := suite.newStore(t)
		id, err := store.Create(testContext())
		require.NoError(t, err)
		require.NoError(t, store.Freeze(testContext(), id, Records(3)))

		clock.Advance(MaxAge + time.Second)
		_, err = store.Resolve(testContext(), id)
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
	})

	t.Run("ResolveOfAnyIDSweepsExpired", func(t *testing.T) {
		unknown, err := uuid.NewUUID()
		require.NoError(t, err)

		for _, other := range []string{unknown.String(), "not-a-uuid", "../../etc/passwd"} {
			store, clock := suite.newStore(t)
			expired, err := store.Create(testContext())
			require.NoError(t, err)
			require.NoError(t, store.Freeze(testContext(), expired, Records(2)))

			clock.Advance(MaxAge + time.Second)

			_, err = store.Resolve(testContext(), other)
			assert.ErrorIs(t, err, session.ErrSessionNotFound)

			// The expired session is already gone
			stats, err := store.SweepExpired(testContext())
			require.NoError(t, err)
			assert.Zero(t, stats.Scanned, other)
			assert.Zero(t, stats.Removed, other)

			_, err = store.Resolve(testContext(), expired)
			assert.ErrorIs(t, err, session.ErrSessionNotFound)
		}
	})

	t.Run("SweepRemovesOnlyExpired", func(t *testing.T) {
		store, clock := suite.newStore(t)

		old, err := store.Create(testContext())
		require.NoError(t, err)
		require.NoError(t, store.Freeze(testContext(), old, Records(1)))

		clock.Advance(MaxAge / 2)

		young, err := store.Create(testContext())
		require.NoError(t, err)
		require.NoError(t, store.Freeze(testContext(), young, Records(1)))

		clock.Advance(MaxAge/2 + time.Minute)

		stats, err := store.SweepExpired(testContext())
		require.NoError(t, err)
		assert.Equal(t, 2, stats.Scanned)
		assert.Equal(t, 1, stats.Removed)
		assert.Zero(t, stats.Failed)

		_, err = store.Resolve(testContext(), old)
		assert.ErrorIs(t, err, session.ErrSessionNotFound)
		_, err = store.Resolve(testContext(), young)
		assert.NoError(t, err)
	})

	t.Run("SweepOnEmptyStore", func(t *testing.T) {
		store, _ := suite.newStore(t)
		stats, err := store.SweepExpired(testContext())
		require.NoError(t, err)
		assert.Zero(t, stats.Removed)
	})
}

// RunConcurrencyTests checks that parallel sessions do not interfere.
func (suite *StoreTestSuite) RunConcurrencyTests(t *testing.T) {
	store, _ := suite.newStore(t)

	const workers = 16
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id, err := store.Create(testContext())
			if err != nil {
				errs <- err
				return
			}
			want := Records(n + 1)
			if err := store.Freeze(testContext(), id, want); err != nil {
				errs <- err
				return
			}
			got, err := store.Resolve(testContext(), id)
			if err != nil {
				errs <- err
				return
			}
			if len(got) != len(want) {
				errs <- fmt.Errorf("session %s: got %d records, want %d", id, len(got), len(want))
			}
		}(w)
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
