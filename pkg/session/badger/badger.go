// Package badger provides a BadgerDB-backed session.Store.
//
// Storage Model:
//
//	session:<id>  ->  JSON {"created": <epoch ms>, "records": [...]}
//
// Sweeps iterate the "session:" prefix and delete expired keys in a single
// write batch.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	badgerdb "github.com/dgraph-io/badger/v4"
	"github.com/marmos91/filebrowse/internal/logger"
	"github.com/marmos91/filebrowse/pkg/files"
	"github.com/marmos91/filebrowse/pkg/session"
)

const keyPrefix = "session:"

func sessionKey(id string) []byte {
	return []byte(keyPrefix + id)
}

// Config configures the badger session store.
type Config struct {
	// DBPath is the BadgerDB directory. Ignored when InMemory is set.
	DBPath string

	// InMemory runs BadgerDB without touching disk.
	InMemory bool

	// Expiry controls when sessions are swept.
	Expiry session.Expiry
}

type record struct {
	Created int64          `json:"created"`
	Records []files.Record `json:"records"`
}

// Store is a session.Store persisted in BadgerDB.
//
// Thread Safety:
// Safe for concurrent use; every operation runs in its own transaction.
type Store struct {
	db     *badgerdb.DB
	expiry session.Expiry
}

// New opens (or creates) the BadgerDB at cfg.DBPath.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var opts badgerdb.Options
	if cfg.InMemory {
		opts = badgerdb.DefaultOptions("").WithInMemory(true)
	} else {
		if cfg.DBPath == "" {
			return nil, errors.New("badger db_path is required")
		}
		opts = badgerdb.DefaultOptions(cfg.DBPath)
	}
	opts = opts.WithLogger(badgerLogger{})

	db, err := badgerdb.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open BadgerDB at %s: %w", cfg.DBPath, err)
	}

	return &Store{db: db, expiry: cfg.Expiry}, nil
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

	data, err := json.Marshal(record{
		Created: s.expiry.Time().UnixMilli(),
		Records: records,
	})
	if err != nil {
		return fmt.Errorf("encode session %s: %w", id, err)
	}

	return s.db.Update(func(txn *badgerdb.Txn) error {
		_, err := txn.Get(sessionKey(id))
		if err == nil {
			return nil
		}
		if err != badgerdb.ErrKeyNotFound {
			return fmt.Errorf("lookup session %s: %w", id, err)
		}
		return txn.Set(sessionKey(id), data)
	})
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

	var rec record
	err := s.db.View(func(txn *badgerdb.Txn) error {
		item, err := txn.Get(sessionKey(id))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if err == badgerdb.ErrKeyNotFound {
		return nil, session.NotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("read session %s: %w", id, err)
	}
	return rec.Records, nil
}

func (s *Store) SweepExpired(ctx context.Context) (session.SweepStats, error) {
	var stats session.SweepStats
	var expired [][]byte

	err := s.db.View(func(txn *badgerdb.Txn) error {
		opts := badgerdb.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := it.Item()
			stats.Scanned++

			var rec record
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				logger.Debug("badger session store: skipping undecodable key %s: %v", item.Key(), err)
				continue
			}
			if s.expiry.Expired(time.UnixMilli(rec.Created)) {
				expired = append(expired, item.KeyCopy(nil))
			}
		}
		return nil
	})
	if err != nil {
		return stats, fmt.Errorf("scan sessions: %w", err)
	}
	if len(expired) == 0 {
		return stats, nil
	}

	wb := s.db.NewWriteBatch()
	defer wb.Cancel()
	for _, key := range expired {
		if err := wb.Delete(key); err != nil {
			stats.Failed++
			continue
		}
		stats.Removed++
	}
	if err := wb.Flush(); err != nil {
		stats.Failed += stats.Removed
		stats.Removed = 0
		return stats, fmt.Errorf("delete expired sessions: %w", err)
	}
	return stats, nil
}

func (s *Store) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("failed to close BadgerDB: %w", err)
	}
	return nil
}

var _ session.Store = (*Store)(nil)

// badgerLogger routes BadgerDB's own log output through the process logger.
type badgerLogger struct{}

func (badgerLogger) Errorf(format string, args ...any) {
	logger.Error("badger: "+strings.TrimRight(format, "\n"), args...)
}

func (badgerLogger) Warningf(format string, args ...any) {
	logger.Warn("badger: "+strings.TrimRight(format, "\n"), args...)
}

func (badgerLogger) Infof(format string, args ...any) {
	logger.Debug("badger: "+strings.TrimRight(format, "\n"), args...)
}

func (badgerLogger) Debugf(format string, args ...any) {
	logger.Debug("badger: "+strings.TrimRight(format, "\n"), args...)
}
