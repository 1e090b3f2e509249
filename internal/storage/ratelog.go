package storage

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
)

const (
	// RateBucket for storing per-step rate entries
	RateBucket = "rates"

	// MetaBucket for storing metadata
	MetaBucket = "meta"

	// CountKey for tracking total entries
	CountKey = "count"
)

// Entry records the learning rate applied at one optimization step
type Entry struct {
	Step      int     `json:"step"`
	Rate      float64 `json:"rate"`
	Loss      float64 `json:"loss"`
	Timestamp int64   `json:"timestamp"`
}

// RateLog persists the learning-rate history of a training run with a
// BoltDB backend, keyed by step number
type RateLog struct {
	db       *bbolt.DB
	dbPath   string
	count    uint64
	isClosed bool
}

// NewRateLog opens (or creates) a rate log at the given path
func NewRateLog(dbPath string) (*RateLog, error) {
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 5 * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(RateBucket)); err != nil {
			return fmt.Errorf("create rate bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(MetaBucket)); err != nil {
			return fmt.Errorf("create meta bucket: %w", err)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	log := &RateLog{
		db:     db,
		dbPath: dbPath,
	}

	count, err := log.Count()
	if err != nil {
		db.Close()
		return nil, err
	}
	log.count = count

	return log, nil
}

// Append stores the rate applied at a step
func (l *RateLog) Append(step int, rate, loss float64) error {
	if l.isClosed {
		return fmt.Errorf("rate log is closed")
	}
	if step < 0 {
		return fmt.Errorf("invalid step: %d", step)
	}

	entry := Entry{
		Step:      step,
		Rate:      rate,
		Loss:      loss,
		Timestamp: time.Now().Unix(),
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	return l.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(RateBucket))
		if b == nil {
			return fmt.Errorf("rate bucket not found")
		}

		keyBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(keyBytes, uint64(step))

		if err := b.Put(keyBytes, data); err != nil {
			return err
		}

		meta := tx.Bucket([]byte(MetaBucket))
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}

		l.count++
		countBytes := make([]byte, 8)
		binary.BigEndian.PutUint64(countBytes, l.count)

		return meta.Put([]byte(CountKey), countBytes)
	})
}

// Range returns the entries with step numbers in [from, to), in step order
func (l *RateLog) Range(from, to int) ([]Entry, error) {
	if l.isClosed {
		return nil, fmt.Errorf("rate log is closed")
	}
	if from < 0 || to < from {
		return nil, fmt.Errorf("invalid range [%d, %d)", from, to)
	}

	entries := make([]Entry, 0, to-from)

	err := l.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(RateBucket))
		if b == nil {
			return fmt.Errorf("rate bucket not found")
		}

		min := make([]byte, 8)
		binary.BigEndian.PutUint64(min, uint64(from))
		max := make([]byte, 8)
		binary.BigEndian.PutUint64(max, uint64(to))

		c := b.Cursor()
		for k, v := c.Seek(min); k != nil && string(k) < string(max); k, v = c.Next() {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				continue // Skip corrupted entries
			}
			entries = append(entries, entry)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Count returns the total number of entries stored
func (l *RateLog) Count() (uint64, error) {
	if l.isClosed {
		return 0, fmt.Errorf("rate log is closed")
	}

	var count uint64
	err := l.db.View(func(tx *bbolt.Tx) error {
		meta := tx.Bucket([]byte(MetaBucket))
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}

		data := meta.Get([]byte(CountKey))
		if data != nil {
			count = binary.BigEndian.Uint64(data)
		}
		return nil
	})

	return count, err
}

// Close closes the underlying database
func (l *RateLog) Close() error {
	if l.isClosed {
		return nil
	}
	l.isClosed = true
	return l.db.Close()
}
