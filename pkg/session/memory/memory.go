// Package memory provides an in-process session.Store.
//
// Sessions do not survive a restart. Useful for tests and for deployments
// where clients never resume across process lifetimes.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/marmos91/filebrowse/pkg/files"
	"github.com/marmos91/filebrowse/pkg/session"
)

type entry struct {
	created time.Time
	records []files.Record
}

// Store is a map-backed session.Store.
//
// Thread Safety: Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]entry
	expiry   session.Expiry
}

// New creates an empty memory store.
func New(expiry session.Expiry) *Store {
	return &Store{
		sessions: make(map[string]entry),
		expiry:   expiry,
	}
}

func (s *Store) Create(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return session.NewID()
}

func (s *Store) Freeze(ctx context.Context, id string, records []files.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	if !session.ValidID(id) {
		return fmt.Errorf("invalid session id %q", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[id]; exists {
		return nil
	}
	s.sessions[id] = entry{
		created: s.expiry.Time(),
		records: append([]files.Record(nil), records...),
	}
	return nil
}

func (s *Store) Resolve(ctx context.Context, id string) ([]files.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	_, _ = s.SweepExpired(ctx)

	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, session.NotFound(id)
	}
	return append([]files.Record(nil), e.records...), nil
}

func (s *Store) SweepExpired(ctx context.Context) (session.SweepStats, error) {
	var stats session.SweepStats
	if err := ctx.Err(); err != nil {
		return stats, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.sessions {
		stats.Scanned++
		if s.expiry.Expired(e.created) {
			delete(s.sessions, id)
			stats.Removed++
		}
	}
	return stats, nil
}

// Len returns the number of frozen sessions currently held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]entry)
	return nil
}

var _ session.Store = (*Store)(nil)
