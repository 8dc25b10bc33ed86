package eventlog

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/fgeck/nodewake/internal/models"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
)

var bucketEvents = []byte("events")

// BoltStore keeps events in a bbolt database keyed by insertion sequence.
// The database is opened and closed around every call, so several processes
// can share it; bbolt's file lock serialises them.
type BoltStore struct {
	path        string
	lockTimeout time.Duration
	logger      zerolog.Logger
}

// NewBoltStore creates a bolt-backed store.
func NewBoltStore(path string, logger zerolog.Logger) *BoltStore {
	return &BoltStore{
		path:        path,
		lockTimeout: 5 * time.Second,
		logger:      logger,
	}
}

// Append stores ev under the next sequence number.
func (s *BoltStore) Append(ev models.WakeEvent) error {
	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: s.lockTimeout})
	if err != nil {
		return fmt.Errorf("opening event database: %w", err)
	}
	defer func() { _ = db.Close() }()

	return db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(bucketEvents)
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", bucketEvents, err)
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, seq)
		return b.Put(key, []byte(FormatLine(ev)))
	})
}

// ReadAll returns events in insertion order. A missing database is an empty log.
func (s *BoltStore) ReadAll() ([]models.WakeEvent, error) {
	if _, err := os.Stat(s.path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}

	db, err := bolt.Open(s.path, 0o600, &bolt.Options{Timeout: s.lockTimeout, ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("opening event database: %w", err)
	}
	defer func() { _ = db.Close() }()

	var events []models.WakeEvent
	err = db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketEvents)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			ev, err := ParseLine(string(v))
			if err != nil {
				s.logger.Debug().Err(err).Uint64("seq", binary.BigEndian.Uint64(k)).Msg("skipping event record")
				return nil
			}
			events = append(events, ev)
			return nil
		})
	})
	return events, err
}
