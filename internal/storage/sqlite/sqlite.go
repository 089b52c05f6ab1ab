// Package sqlite provides a SQLite-backed implementation of the storage.Store interface.
//
// The database lives in memory on a single connection. Its full state can be
// serialized to bytes and restored from bytes, which is how it survives restarts.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/subsync/internal/storage"
)

// Ensure SQLiteStore implements storage.Store
var _ storage.Store = (*SQLiteStore)(nil)

// SQLiteStore implements storage.Store using an in-memory SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// New creates an empty in-memory SQLiteStore.
// The schema is not created; call Migrate (directly or after Deserialize).
func New(ctx context.Context) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Every connection to ":memory:" is a separate database, so keep exactly one.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	// Enable foreign keys
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection. The in-memory state is lost.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type serializer interface {
	Serialize() ([]byte, error)
}

type deserializer interface {
	Deserialize(buf []byte) error
}

// Serialize returns the complete database as the bytes of a SQLite file image.
func (s *SQLiteStore) Serialize(ctx context.Context) ([]byte, error) {
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	var out []byte
	err = conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(serializer)
		if !ok {
			return errors.New("driver does not support serialization")
		}
		out, err = c.Serialize()
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("failed to serialize database: %w", err)
	}
	return out, nil
}

// Deserialize replaces the complete database with the SQLite file image in buf.
func (s *SQLiteStore) Deserialize(ctx context.Context, buf []byte) error {
	if len(buf) == 0 {
		return errors.New("failed to deserialize database: empty image")
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("failed to get connection: %w", err)
	}
	defer conn.Close()

	err = conn.Raw(func(driverConn any) error {
		c, ok := driverConn.(deserializer)
		if !ok {
			return errors.New("driver does not support deserialization")
		}
		return c.Deserialize(buf)
	})
	if err != nil {
		return fmt.Errorf("failed to deserialize database: %w", err)
	}

	// A loaded image is only usable if it is a readable database.
	var n int
	if err := conn.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		return fmt.Errorf("failed to read deserialized database: %w", err)
	}

	if _, err := conn.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	return nil
}
