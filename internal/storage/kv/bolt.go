package kv

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// DefaultBucket is the bucket all keys are stored in.
const DefaultBucket = "subsync"

// Ensure BoltStore implements Store
var _ Store = (*BoltStore)(nil)

// BoltStore implements Store on a single bbolt bucket.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
	quota  int64
}

// OpenBolt opens (or creates) the bbolt file at path.
// quota caps the summed size of keys and values; zero disables it.
func OpenBolt(path string, quota int64) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt store: %w", err)
	}

	s := &BoltStore{db: db, bucket: []byte(DefaultBucket), quota: quota}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(s.bucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return s, nil
}

// Close closes the underlying bbolt file.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// Get returns a copy of the value stored under key.
func (s *BoltStore) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var out []byte
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(s.bucket).Get([]byte(key))
		if v == nil {
			return ErrNotFound
		}
		// v is only valid for the life of the transaction
		out = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Set stores value under key.
func (s *BoltStore) Set(ctx context.Context, key string, value []byte) error {
	return s.SetMany(ctx, []Entry{{Key: key, Value: value}})
}

// SetMany writes all entries in one bbolt transaction.
func (s *BoltStore) SetMany(ctx context.Context, entries []Entry) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)

		if s.quota > 0 {
			sizes := make(map[string]int)
			err := b.ForEach(func(k, v []byte) error {
				sizes[string(k)] = len(k) + len(v)
				return nil
			})
			if err != nil {
				return fmt.Errorf("failed to measure store: %w", err)
			}
			if !fitsQuota(s.quota, sizes, entries) {
				return ErrQuotaExceeded
			}
		}

		for _, e := range entries {
			if err := b.Put([]byte(e.Key), e.Value); err != nil {
				return fmt.Errorf("failed to put %q: %w", e.Key, err)
			}
		}
		return nil
	})
}

// Delete removes keys in one transaction.
func (s *BoltStore) Delete(ctx context.Context, keys ...string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(s.bucket)
		for _, k := range keys {
			if err := b.Delete([]byte(k)); err != nil {
				return fmt.Errorf("failed to delete %q: %w", k, err)
			}
		}
		return nil
	})
}
