// Package kv provides the key/blob stores the database snapshot lives in.
//
// A Store maps string keys to opaque byte values. The primary store is a
// bbolt file; the legacy location is a directory of plain files; an
// in-memory store backs tests and ephemeral runs.
package kv

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("kv: key not found")

	// ErrQuotaExceeded is returned when a write would push the store past its size quota.
	ErrQuotaExceeded = errors.New("kv: quota exceeded")
)

// Entry is one key/value pair of a multi-key write.
type Entry struct {
	Key   string
	Value []byte
}

// Store is a byte-oriented key/value store.
type Store interface {
	// Get returns a copy of the value stored under key, or ErrNotFound.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error

	// SetMany stores all entries. Stores that support it apply the
	// entries atomically: either all are written or none are.
	SetMany(ctx context.Context, entries []Entry) error

	// Delete removes keys. Missing keys are not an error.
	Delete(ctx context.Context, keys ...string) error

	// Close releases any resources held by the store.
	Close() error
}

// fitsQuota reports whether a store holding sizes (bytes per key) stays within
// quota after entries are written. A quota of zero or less disables the check.
func fitsQuota(quota int64, sizes map[string]int, entries []Entry) bool {
	if quota <= 0 {
		return true
	}
	pending := make(map[string]int, len(entries))
	for _, e := range entries {
		pending[e.Key] = len(e.Key) + len(e.Value)
	}
	var total int64
	for k, n := range sizes {
		if _, replaced := pending[k]; !replaced {
			total += int64(n)
		}
	}
	for _, n := range pending {
		total += int64(n)
	}
	return total <= quota
}
