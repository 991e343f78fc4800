// Package session freezes an ordered listing result under an opaque id so
// that later requests can page through exactly the same records without
// rescanning the directory.
//
// Implementations live in subpackages:
//   - fs: one JSON file per session in a directory (default)
//   - badger: BadgerDB keyed by session id
//   - memory: process-local map, for tests and ephemeral deployments
package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/marmos91/filebrowse/pkg/files"
)

// ErrSessionNotFound indicates the session id is unknown, was never frozen,
// has expired, or is not a well-formed id.
//
// Implementations wrap it with the id:
//
//	return nil, fmt.Errorf("no session found for [%s]: %w", id, session.ErrSessionNotFound)
var ErrSessionNotFound = errors.New("session not found")

// Store persists frozen listing results.
//
// Thread Safety:
// Implementations must be safe for concurrent use.
type Store interface {
	// Create allocates a new unique session id and makes sure the backing
	// storage exists. Nothing is persisted for the id until Freeze.
	Create(ctx context.Context) (string, error)

	// Freeze stores records under id. It is a no-op when records is empty
	// or when the id has already been frozen: the first write wins.
	Freeze(ctx context.Context, id string, records []files.Record) error

	// Resolve sweeps expired sessions and then returns the records frozen
	// under id, in frozen order. Sweep failures are ignored.
	//
	// Returns ErrSessionNotFound if nothing is stored under id.
	Resolve(ctx context.Context, id string) ([]files.Record, error)

	// SweepExpired deletes every session older than the configured maximum
	// age.
	SweepExpired(ctx context.Context) (SweepStats, error)

	// Close releases resources held by the store.
	Close() error
}

// SweepStats reports the outcome of a sweep.
type SweepStats struct {
	Scanned int // sessions examined
	Removed int // expired sessions deleted
	Failed  int // expired sessions that could not be deleted
}

// Add accumulates other into s.
func (s *SweepStats) Add(other SweepStats) {
	s.Scanned += other.Scanned
	s.Removed += other.Removed
	s.Failed += other.Failed
}

func (s SweepStats) String() string {
	return fmt.Sprintf("scanned=%d removed=%d failed=%d", s.Scanned, s.Removed, s.Failed)
}

// Expiry decides when a session is old enough to be swept.
//
// The zero value never expires anything and reads the wall clock.
type Expiry struct {
	// MaxAge is how long a session stays resolvable after it was frozen.
	// Zero or negative disables expiry.
	MaxAge time.Duration

	// Now returns the current time. Defaults to time.Now.
	Now func() time.Time
}

// Time returns the current time according to the configured clock.
func (e Expiry) Time() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Expired reports whether a session frozen at created has outlived MaxAge.
func (e Expiry) Expired(created time.Time) bool {
	if e.MaxAge <= 0 {
		return false
	}
	return created.Add(e.MaxAge).Before(e.Time())
}

// NewID returns a new version 1 (time based) UUID string.
func NewID() (string, error) {
	id, err := uuid.NewUUID()
	if err != nil {
		return "", fmt.Errorf("generate session id: %w", err)
	}
	return id.String(), nil
}

// ValidID reports whether id is a canonical UUID string, which also rules
// out path separators and other characters unsafe in keys or file names.
func ValidID(id string) bool {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return false
	}
	return parsed.String() == id
}

// NotFound wraps ErrSessionNotFound with the session id.
func NotFound(id string) error {
	return fmt.Errorf("no session found for [%s]: %w", id, ErrSessionNotFound)
}
