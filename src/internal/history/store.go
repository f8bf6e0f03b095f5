// Package history journals the outcome of every check and update run so the
// last results survive the restart that follows a self-update or a reboot.
package history

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	bolt "go.etcd.io/bbolt"

	"github.com/yhonda-ohishi-pub-dev/nextui-updater/src/pkg/models"
)

// DefaultMaxRecords is how many records are kept when no limit is configured
const DefaultMaxRecords = 100

var bucketRecords = []byte("records")

// Store keeps history records in a BoltDB file, oldest first
type Store struct {
	db         *bolt.DB
	maxRecords int

	// memory-only mode
	mu     sync.Mutex
	memory []models.HistoryRecord
}

// Open opens (creating if needed) the journal in dir. An empty dir gives a
// memory-only store.
func Open(dir string, maxRecords int) (*Store, error) {
	if maxRecords <= 0 {
		maxRecords = DefaultMaxRecords
	}
	if dir == "" {
		return &Store{maxRecords: maxRecords}, nil
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	db, err := bolt.Open(filepath.Join(dir, "history.db"), 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketRecords)
		return err
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, maxRecords: maxRecords}, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Append stores rec, assigning an ID when it has none, and drops the oldest
// records beyond the configured limit.
func (s *Store) Append(rec models.HistoryRecord) (models.HistoryRecord, error) {
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}

	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.memory = append(s.memory, rec)
		if over := len(s.memory) - s.maxRecords; over > 0 {
			s.memory = append([]models.HistoryRecord(nil), s.memory[over:]...)
		}
		return rec, nil
	}

	data, err := json.Marshal(rec)
	if err != nil {
		return rec, fmt.Errorf("failed to encode history record: %w", err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketRecords)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(itob(seq), data); err != nil {
			return err
		}

		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			keys = append(keys, append([]byte(nil), k...))
		}
		for _, k := range keys[:max(len(keys)-s.maxRecords, 0)] {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return rec, fmt.Errorf("failed to write history record: %w", err)
	}
	return rec, nil
}

// List returns up to limit records, newest first. A limit <= 0 returns all.
func (s *Store) List(limit int) ([]models.HistoryRecord, error) {
	if s.db == nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		out := make([]models.HistoryRecord, 0, len(s.memory))
		for i := len(s.memory) - 1; i >= 0; i-- {
			if limit > 0 && len(out) == limit {
				break
			}
			out = append(out, s.memory[i])
		}
		return out, nil
	}

	out := make([]models.HistoryRecord, 0)
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(bucketRecords).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if limit > 0 && len(out) == limit {
				break
			}
			var rec models.HistoryRecord
			if err := json.Unmarshal(v, &rec); err != nil {
				return fmt.Errorf("failed to decode history record: %w", err)
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func itob(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}
