package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

// bucketName is the BoltDB bucket name for cache entries
const bucketName = "builds"

// BoltStore keeps cache entries in a BoltDB database, keyed by output directory
type BoltStore struct {
	db   *bbolt.DB
	root string // Root directory for cache (.extpack/)
}

// NewBoltStore opens (creating if necessary) the database in cacheDir
func NewBoltStore(cacheDir string) (*BoltStore, error) {
	// Ensure cache directory exists
	if err := os.MkdirAll(cacheDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	dbPath := filepath.Join(cacheDir, "cache.db")
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open cache database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketName))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache bucket: %w", err)
	}

	return &BoltStore{
		db:   db,
		root: cacheDir,
	}, nil
}

// Close closes the cache database
func (s *BoltStore) Close() error {
	if s.db != nil {
		return s.db.Close()
	}

	return nil
}

func boltKey(key Key) []byte {
	return []byte(filepath.Clean(key.OutDir))
}

// Get returns the recorded fingerprint for key, or ErrNoRecord
func (s *BoltStore) Get(key Key) (string, error) {
	var entry Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		data := b.Get(boltKey(key))
		if data == nil {
			return ErrNoRecord
		}

		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return "", err
	}

	if entry.Fingerprint == "" {
		return "", ErrNoRecord
	}

	return entry.Fingerprint, nil
}

// Set records fingerprint for key, replacing any previous entry
func (s *BoltStore) Set(key Key, fingerprint string) error {
	entry := Entry{
		Fingerprint: fingerprint,
		ProjectRoot: key.ProjectRoot,
		OutDir:      filepath.Clean(key.OutDir),
		Timestamp:   time.Now(),
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(bucketName))

		data, err := json.Marshal(entry)
		if err != nil {
			return err
		}

		return b.Put(boltKey(key), data)
	})
	if err != nil {
		return fmt.Errorf("failed to store cache entry: %w", err)
	}

	return nil
}

// Delete removes the entry for key. Deleting a missing key is not an error.
func (s *BoltStore) Delete(key Key) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).Delete(boltKey(key))
	})
}

// Clear removes all cache entries
func (s *BoltStore) Clear() error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket([]byte(bucketName)); err != nil {
			return err
		}

		_, err := tx.CreateBucket([]byte(bucketName))
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear cache: %w", err)
	}

	return nil
}

// Entries returns every stored entry
func (s *BoltStore) Entries() ([]Entry, error) {
	var entries []Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(bucketName)).ForEach(func(_, v []byte) error {
			var entry Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				return err
			}

			entries = append(entries, entry)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	return entries, nil
}

// Stats returns the number of entries and the size of the database file
func (s *BoltStore) Stats() (int, int64, error) {
	var count int
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket([]byte(bucketName)).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, 0, err
	}

	info, err := os.Stat(s.db.Path())
	if err != nil {
		return count, 0, nil
	}

	return count, info.Size(), nil
}
