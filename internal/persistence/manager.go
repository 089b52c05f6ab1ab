// Package persistence keeps the in-memory database durable.
//
// The Manager loads the database image from the key/blob stores on start,
// writes a compressed snapshot after every mutation, falls back to the legacy
// location when the primary store is full, and clears everything on reset.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/mmynk/subsync/internal/apperr"
	"github.com/mmynk/subsync/internal/metrics"
	"github.com/mmynk/subsync/internal/storage/kv"
)

// Well-known keys.
const (
	SnapshotKey = "subsync_db"
	VersionKey  = "db_version"
	PhotoKey    = "user_photo"

	// LegacySnapshotKey is the snapshot key in the legacy store.
	LegacySnapshotKey = "subsync_db"
)

// QuotaWarning is shown to the user when a snapshot did not fit the primary store.
const QuotaWarning = "Storage is full: your data was saved to the fallback location. Export a backup to be safe."

// Database is the engine capability the Manager needs.
type Database interface {
	Serialize(ctx context.Context) ([]byte, error)
	Deserialize(ctx context.Context, buf []byte) error
	Migrate(ctx context.Context) (uint, error)
	ResetData(ctx context.Context) error
}

// Notifier delivers user-visible warnings.
type Notifier interface {
	Warn(ctx context.Context, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, message string)

func (f NotifierFunc) Warn(ctx context.Context, message string) { f(ctx, message) }

// SourceKind tells where the database image came from on initialization.
type SourceKind int

const (
	// SourceNone means no snapshot existed and a fresh database was created.
	SourceNone SourceKind = iota
	// SourceCompressed means the primary compressed snapshot was loaded.
	SourceCompressed
	// SourceLegacy means the legacy JSON byte array was loaded and migrated.
	SourceLegacy
)

func (k SourceKind) String() string {
	switch k {
	case SourceCompressed:
		return "compressed"
	case SourceLegacy:
		return "legacy"
	default:
		return "none"
	}
}

// State describes the outcome of Initialize.
type State struct {
	Source        SourceKind
	SchemaVersion uint
}

// Manager implements the snapshot lifecycle over a Database and two kv stores.
type Manager struct {
	db       Database
	primary  kv.Store
	legacy   kv.Store
	notifier Notifier
	metrics  *metrics.Metrics

	schemaVersion uint
}

// NewManager creates a Manager. notifier and m may be nil.
func NewManager(db Database, primary, legacy kv.Store, notifier Notifier, m *metrics.Metrics) *Manager {
	if notifier == nil {
		notifier = NotifierFunc(func(ctx context.Context, message string) {
			slog.WarnContext(ctx, message)
		})
	}
	return &Manager{
		db:       db,
		primary:  primary,
		legacy:   legacy,
		notifier: notifier,
		metrics:  m,
	}
}

// snapshot is the result of one loader: the source it came from and the raw image.
type snapshot struct {
	source SourceKind
	raw    []byte
}

// loader returns a snapshot with SourceNone when its format is absent, and an
// error only when the format is present but unreadable.
type loader func(ctx context.Context) (snapshot, error)

func (m *Manager) loadCompressed(ctx context.Context) (snapshot, error) {
	text, err := m.primary.Get(ctx, SnapshotKey)
	if errors.Is(err, kv.ErrNotFound) {
		return snapshot{source: SourceNone}, nil
	}
	if err != nil {
		return snapshot{}, fmt.Errorf("failed to read snapshot: %w", err)
	}

	raw, err := DecodeSnapshot(text)
	if err != nil {
		return snapshot{}, fmt.Errorf("corrupt snapshot: %w", err)
	}
	return snapshot{source: SourceCompressed, raw: raw}, nil
}

func (m *Manager) loadLegacy(ctx context.Context) (snapshot, error) {
	data, err := m.legacy.Get(ctx, LegacySnapshotKey)
	if errors.Is(err, kv.ErrNotFound) {
		return snapshot{source: SourceNone}, nil
	}
	if err != nil {
		return snapshot{}, fmt.Errorf("failed to read legacy snapshot: %w", err)
	}

	raw, err := DecodeLegacy(data)
	if err != nil {
		return snapshot{}, fmt.Errorf("corrupt legacy snapshot: %w", err)
	}
	return snapshot{source: SourceLegacy, raw: raw}, nil
}

// load tries each known format in priority order.
func (m *Manager) load(ctx context.Context) (snapshot, error) {
	for _, l := range []loader{m.loadCompressed, m.loadLegacy} {
		snap, err := l(ctx)
		if err != nil {
			return snapshot{}, err
		}
		if snap.source != SourceNone {
			return snap, nil
		}
	}
	return snapshot{source: SourceNone}, nil
}

// Initialize loads the database image, brings the schema up to date and, for
// anything but a compressed snapshot, writes a compressed snapshot right away.
// A legacy snapshot is left in place after it is migrated.
func (m *Manager) Initialize(ctx context.Context) (State, error) {
	const op = "initialize"

	snap, err := m.load(ctx)
	if err != nil {
		return State{}, apperr.New(apperr.ErrInitialization, op, err)
	}

	if snap.source != SourceNone {
		if err := m.db.Deserialize(ctx, snap.raw); err != nil {
			return State{}, apperr.New(apperr.ErrInitialization, op, err)
		}
	}

	version, err := m.db.Migrate(ctx)
	if err != nil {
		return State{}, apperr.New(apperr.ErrInitialization, op, err)
	}
	m.schemaVersion = version

	state := State{Source: snap.source, SchemaVersion: version}
	m.metrics.ObserveInitialize(snap.source.String())
	slog.InfoContext(ctx, "Database initialized",
		"source", snap.source.String(),
		"schema_version", version,
	)

	if snap.source != SourceCompressed {
		// The loaded database stays usable even if this first write fails.
		if err := m.Persist(ctx); err != nil {
			slog.WarnContext(ctx, "Initial persist failed", "source", snap.source.String(), "error", err)
		}
	}

	return state, nil
}

// SchemaVersion returns the schema version reached by Initialize.
func (m *Manager) SchemaVersion() uint {
	return m.schemaVersion
}

// Persist writes the current database image and the schema version marker to
// the primary store in one write. When the primary store is over quota the raw
// image goes to the legacy store instead, the user is warned, and a quota error
// is returned.
func (m *Manager) Persist(ctx context.Context) error {
	const op = "persist"

	raw, err := m.db.Serialize(ctx)
	if err != nil {
		m.metrics.ObservePersist(metrics.PersistError)
		return apperr.New(apperr.ErrPersistence, op, err)
	}

	text := EncodeSnapshot(raw)
	m.metrics.ObserveSnapshot(len(raw), len(text))

	err = m.primary.SetMany(ctx, []kv.Entry{
		{Key: SnapshotKey, Value: text},
		{Key: VersionKey, Value: []byte(strconv.FormatUint(uint64(m.schemaVersion), 10))},
	})
	if errors.Is(err, kv.ErrQuotaExceeded) {
		return m.persistFallback(ctx, raw, err)
	}
	if err != nil {
		m.metrics.ObservePersist(metrics.PersistError)
		return apperr.New(apperr.ErrStorage, op, err)
	}

	m.metrics.ObservePersist(metrics.PersistOK)
	slog.DebugContext(ctx, "Snapshot persisted", "raw_bytes", len(raw), "stored_bytes", len(text))
	return nil
}

func (m *Manager) persistFallback(ctx context.Context, raw []byte, cause error) error {
	const op = "persist"

	slog.WarnContext(ctx, "Snapshot exceeds storage quota, writing legacy copy", "raw_bytes", len(raw))

	data, err := EncodeLegacy(raw)
	if err == nil {
		err = m.legacy.Set(ctx, LegacySnapshotKey, data)
	}
	if err != nil {
		cause = errors.Join(cause, fmt.Errorf("legacy write failed: %w", err))
	}

	m.notifier.Warn(ctx, QuotaWarning)
	m.metrics.ObservePersist(metrics.PersistQuotaFallback)
	return apperr.New(apperr.ErrQuota, op, cause)
}

// LoadPhoto returns the stored profile photo, or "" when there is none.
func (m *Manager) LoadPhoto(ctx context.Context) (string, error) {
	data, err := m.primary.Get(ctx, PhotoKey)
	if errors.Is(err, kv.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", apperr.New(apperr.ErrStorage, "load photo", err)
	}
	return string(data), nil
}

// SavePhoto stores the profile photo; an empty photo removes it.
func (m *Manager) SavePhoto(ctx context.Context, photo string) error {
	var err error
	if photo == "" {
		err = m.primary.Delete(ctx, PhotoKey)
	} else {
		err = m.primary.Set(ctx, PhotoKey, []byte(photo))
	}
	if err != nil {
		return apperr.New(apperr.ErrStorage, "save photo", err)
	}
	return nil
}

// Reset removes every stored key, including the legacy copy, and wipes the
// in-memory data back to a fresh profile. Nothing is persisted afterwards.
func (m *Manager) Reset(ctx context.Context) error {
	const op = "reset"

	if err := m.primary.Delete(ctx, SnapshotKey, VersionKey, PhotoKey); err != nil {
		return apperr.New(apperr.ErrStorage, op, err)
	}
	if err := m.legacy.Delete(ctx, LegacySnapshotKey); err != nil {
		return apperr.New(apperr.ErrStorage, op, err)
	}
	if err := m.db.ResetData(ctx); err != nil {
		return apperr.New(apperr.ErrPersistence, op, err)
	}

	slog.InfoContext(ctx, "All data cleared")
	return nil
}
