// Package fs provides a filesystem-backed session.Store.
//
// Each frozen session is one file named "<id>.json" in the store directory,
// holding the JSON array of records in frozen order. Session files are
// written once and never updated, so the file's modification time is the
// session's creation time.
package fs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	iofs "io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/marmos91/filebrowse/pkg/files"
	"github.com/marmos91/filebrowse/pkg/session"
)

const fileExt = ".json"

// Config configures a filesystem session store.
type Config struct {
	// Dir is the directory holding session files. Created on demand.
	Dir string

	// Expiry controls when sessions are swept.
	Expiry session.Expiry
}

// Store is a session.Store writing one file per session.
//
// Thread Safety:
// No locking is needed: every operation touches only the file of its own
// session, and files are published with an atomic rename.
type Store struct {
	dir    string
	expiry session.Expiry
}

// New creates a filesystem session store rooted at cfg.Dir.
//
// The directory is not created until the first Create.
func New(cfg Config) (*Store, error) {
	if cfg.Dir == "" {
		return nil, errors.New("session directory is required")
	}
	dir, err := filepath.Abs(cfg.Dir)
	if err != nil {
		return nil, fmt.Errorf("resolve session directory %s: %w", cfg.Dir, err)
	}
	return &Store{dir: dir, expiry: cfg.Expiry}, nil
}

// Dir returns the absolute session directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) pathFor(id string) string {
	return filepath.Join(s.dir, id+fileExt)
}

func (s *Store) Create(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create session directory %s: %w", s.dir, err)
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

	target := s.pathFor(id)
	if _, err := os.Stat(target); err == nil {
		return nil
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("create session file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write session file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close session file: %w", err)
	}

	created := s.expiry.Time()
	if err := os.Chtimes(tmpName, created, created); err != nil {
		return fmt.Errorf("stamp session file: %w", err)
	}
	if err := os.Rename(tmpName, target); err != nil {
		return fmt.Errorf("publish session file: %w", err)
	}
	return nil
}

func (s *Store) Resolve(ctx context.Context, id string) ([]files.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	// Every resolve sweeps, whatever id it names
	_, _ = s.SweepExpired(ctx)

	if !session.ValidID(id) {
		return nil, session.NotFound(id)
	}

	data, err := os.ReadFile(s.pathFor(id))
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return nil, session.NotFound(id)
		}
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}

	var records []files.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return records, nil
}

func (s *Store) SweepExpired(ctx context.Context) (session.SweepStats, error) {
	var stats session.SweepStats

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, iofs.ErrNotExist) {
			return stats, nil
		}
		return stats, fmt.Errorf("list session directory %s: %w", s.dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return stats, err
		}

		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, fileExt) || !session.ValidID(strings.TrimSuffix(name, fileExt)) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		stats.Scanned++

		if !s.expiry.Expired(info.ModTime()) {
			continue
		}
		if err := os.Remove(filepath.Join(s.dir, name)); err != nil && !errors.Is(err, iofs.ErrNotExist) {
			stats.Failed++
			continue
		}
		stats.Removed++
	}

	return stats, nil
}

func (s *Store) Close() error {
	return nil
}

var _ session.Store = (*Store)(nil)
