// Package prefs is the local preference store. Values live in a small
// BoltDB file next to the engine database; with no path configured the
// store runs memory-only, which is what tests and ephemeral embedders use.
package prefs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var bucketPreferences = []byte("preferences")

const keyRetentionDays = "retention_days"

// Store is a BoltDB-backed preference store.
type Store struct {
	db *bolt.DB

	mu  sync.RWMutex
	mem map[string][]byte // memory-only mode when db is nil
}

// NewStore opens (or creates) the preference database under dir. An empty
// dir selects memory-only mode.
func NewStore(dir string) (*Store, error) {
	if dir == "" {
		return &Store{mem: make(map[string][]byte)}, nil
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create preference dir: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, "prefs.db"), 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open preference db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketPreferences)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create preference bucket: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// GetRetentionDays returns the stored retention window. The second return
// value is false when nothing is stored or the stored value is not an
// integer.
func (s *Store) GetRetentionDays(ctx context.Context) (int, bool, error) {
	raw, err := s.get(keyRetentionDays)
	if err != nil {
		return 0, false, err
	}
	if raw == nil {
		return 0, false, nil
	}
	days, err := strconv.Atoi(string(raw))
	if err != nil {
		// Corrupt value: report "not stored" so callers fall back to
		// the default instead of failing cleanup.
		return 0, false, nil
	}
	return days, true, nil
}

// SetRetentionDays stores the retention window.
func (s *Store) SetRetentionDays(ctx context.Context, days int) error {
	return s.put(keyRetentionDays, []byte(strconv.Itoa(days)))
}

func (s *Store) get(key string) ([]byte, error) {
	if s.db == nil {
		s.mu.RLock()
		defer s.mu.RUnlock()
		v, ok := s.mem[key]
		if !ok {
			return nil, nil
		}
		return append([]byte(nil), v...), nil
	}

	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		if v := tx.Bucket(bucketPreferences).Get([]byte(key)); v != nil {
			out = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("read preference %q: %w", key, err)
	}
	return out, nil
}

func (s *Store) put(key string, value []byte) error {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.mem[key] = append([]byte(nil), value...)
		return nil
	}

	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketPreferences).Put([]byte(key), value)
	})
	if err != nil {
		return fmt.Errorf("write preference %q: %w", key, err)
	}
	return nil
}
