package persistence

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/mmynk/subsync/internal/apperr"
	"github.com/mmynk/subsync/internal/metrics"
	"github.com/mmynk/subsync/internal/models"
	"github.com/mmynk/subsync/internal/storage/kv"
	"github.com/mmynk/subsync/internal/storage/sqlite"
)

type recordingNotifier struct {
	messages []string
}

func (n *recordingNotifier) Warn(_ context.Context, message string) {
	n.messages = append(n.messages, message)
}

type fixture struct {
	db       *sqlite.SQLiteStore
	primary  *kv.MemoryStore
	legacy   *kv.MemoryStore
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	manager  *Manager
}

// newFixture builds a Manager over a fresh engine and the given stores.
func newFixture(t *testing.T, primary, legacy *kv.MemoryStore) *fixture {
	t.Helper()

	db, err := sqlite.New(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	f := &fixture{
		db:       db,
		primary:  primary,
		legacy:   legacy,
		notifier: &recordingNotifier{},
		metrics:  metrics.New(),
	}
	f.manager = NewManager(db, primary, legacy, f.notifier, f.metrics)
	return f
}

func sampleSubscription() models.Subscription {
	return models.Subscription{
		Name:        "Spotify",
		Price:       decimal.RequireFromString("11.99"),
		Category:    models.CategoryEntertainment,
		BillingDate: civil.Date{Year: 2024, Month: 5, Day: 2},
		Icon:        "🎵",
		Cycle:       models.CycleMonthly,
		SharedWith:  []string{"Ana"},
	}
}

func TestCodecRoundTrip(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		raw := rapid.SliceOfN(rapid.Byte(), 1, 4096).Draw(t, "raw")

		got, err := DecodeSnapshot(EncodeSnapshot(raw))
		if err != nil {
			t.Fatalf("DecodeSnapshot: %v", err)
		}
		if string(got) != string(raw) {
			t.Fatalf("snapshot round trip changed %d bytes", len(raw))
		}

		legacy, err := EncodeLegacy(raw)
		if err != nil {
			t.Fatalf("EncodeLegacy: %v", err)
		}
		got, err = DecodeLegacy(legacy)
		if err != nil {
			t.Fatalf("DecodeLegacy: %v", err)
		}
		if string(got) != string(raw) {
			t.Fatalf("legacy round trip changed %d bytes", len(raw))
		}
	})
}

func TestLegacyFormatIsNumberArray(t *testing.T) {
	data, err := EncodeLegacy([]byte{0, 1, 255})
	require.NoError(t, err)
	require.Equal(t, "[0,1,255]", string(data))

	_, err = DecodeLegacy([]byte("[1,256]"))
	require.Error(t, err)
	_, err = DecodeLegacy([]byte("[]"))
	require.Error(t, err)
	_, err = DecodeLegacy([]byte(`"AAEC"`))
	require.Error(t, err)
}

func TestInitializeFresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.NewMemory(0), kv.NewMemory(0))

	state, err := f.manager.Initialize(ctx)
	require.NoError(t, err)
	require.Equal(t, SourceNone, state.Source)
	require.Equal(t, uint(1), state.SchemaVersion)

	user, _, err := f.db.GetUser(ctx)
	require.NoError(t, err)
	require.Equal(t, models.DefaultUser(), user)

	_, err = f.primary.Get(ctx, SnapshotKey)
	require.NoError(t, err)
	version, err := f.primary.Get(ctx, VersionKey)
	require.NoError(t, err)
	require.Equal(t, "1", string(version))

	n, err := testutil.GatherAndCount(f.metrics.Registry(), "subsync_initialize_total", "subsync_persist_total")
	require.NoError(t, err)
	require.Equal(t, 2, n)
}

func TestPersistThenReload(t *testing.T) {
	ctx := context.Background()
	primary, legacy := kv.NewMemory(0), kv.NewMemory(0)

	first := newFixture(t, primary, legacy)
	_, err := first.manager.Initialize(ctx)
	require.NoError(t, err)

	sub := sampleSubscription()
	require.NoError(t, first.db.CreateSubscription(ctx, &sub))
	require.NoError(t, first.db.UpsertUser(ctx, models.User{Name: "Maria", Currency: "EUR", Theme: models.ThemeLight}))
	require.NoError(t, first.manager.Persist(ctx))

	second := newFixture(t, primary, legacy)
	state, err := second.manager.Initialize(ctx)
	require.NoError(t, err)
	require.Equal(t, SourceCompressed, state.Source)

	want, err := first.db.ListSubscriptions(ctx)
	require.NoError(t, err)
	got, err := second.db.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)

	user, _, err := second.db.GetUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "Maria", user.Name)
	require.Equal(t, "EUR", user.Currency)
}

func TestInitializeMigratesLegacySnapshot(t *testing.T) {
	ctx := context.Background()

	// Build a database image to act as the legacy copy.
	source := newFixture(t, kv.NewMemory(0), kv.NewMemory(0))
	_, err := source.manager.Initialize(ctx)
	require.NoError(t, err)
	sub := sampleSubscription()
	require.NoError(t, source.db.CreateSubscription(ctx, &sub))
	raw, err := source.db.Serialize(ctx)
	require.NoError(t, err)
	legacyData, err := EncodeLegacy(raw)
	require.NoError(t, err)

	primary, legacy := kv.NewMemory(0), kv.NewMemory(0)
	require.NoError(t, legacy.Set(ctx, LegacySnapshotKey, legacyData))

	f := newFixture(t, primary, legacy)
	state, err := f.manager.Initialize(ctx)
	require.NoError(t, err)
	require.Equal(t, SourceLegacy, state.Source)

	subs, err := f.db.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, "Spotify", subs[0].Name)

	// written in the compressed format, legacy copy kept
	_, err = primary.Get(ctx, SnapshotKey)
	require.NoError(t, err)
	_, err = legacy.Get(ctx, LegacySnapshotKey)
	require.NoError(t, err)

	// the next start prefers the compressed snapshot
	again := newFixture(t, primary, legacy)
	state, err = again.manager.Initialize(ctx)
	require.NoError(t, err)
	require.Equal(t, SourceCompressed, state.Source)
}

func TestInitializeCorruptSnapshot(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(primary, legacy *kv.MemoryStore)
	}{
		{
			name: "compressed snapshot is not base64",
			setup: func(primary, _ *kv.MemoryStore) {
				primary.Set(ctx, SnapshotKey, []byte("!!not base64!!"))
			},
		},
		{
			name: "compressed snapshot is not zstd",
			setup: func(primary, _ *kv.MemoryStore) {
				primary.Set(ctx, SnapshotKey, EncodeSnapshot([]byte("x"))[:4])
			},
		},
		{
			name: "legacy snapshot is not a database",
			setup: func(_, legacy *kv.MemoryStore) {
				legacy.Set(ctx, LegacySnapshotKey, []byte("[1,2,3]"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			primary, legacy := kv.NewMemory(0), kv.NewMemory(0)
			tt.setup(primary, legacy)

			f := newFixture(t, primary, legacy)
			_, err := f.manager.Initialize(ctx)
			require.ErrorIs(t, err, apperr.ErrInitialization)
		})
	}
}

func TestPersistQuotaFallback(t *testing.T) {
	ctx := context.Background()
	primary, legacy := kv.NewMemory(64), kv.NewMemory(0)
	f := newFixture(t, primary, legacy)

	// The first write during Initialize already overflows; start still succeeds.
	_, err := f.manager.Initialize(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{QuotaWarning}, f.notifier.messages)

	err = f.manager.Persist(ctx)
	require.ErrorIs(t, err, apperr.ErrQuota)
	require.ErrorIs(t, err, kv.ErrQuotaExceeded)
	require.Len(t, f.notifier.messages, 2)

	_, err = primary.Get(ctx, SnapshotKey)
	require.ErrorIs(t, err, kv.ErrNotFound)

	data, err := legacy.Get(ctx, LegacySnapshotKey)
	require.NoError(t, err)
	raw, err := DecodeLegacy(data)
	require.NoError(t, err)

	current, err := f.db.Serialize(ctx)
	require.NoError(t, err)
	require.Equal(t, current, raw)
}

func TestPhoto(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, kv.NewMemory(0), kv.NewMemory(0))

	photo, err := f.manager.LoadPhoto(ctx)
	require.NoError(t, err)
	require.Empty(t, photo)

	require.NoError(t, f.manager.SavePhoto(ctx, "data:image/png;base64,iVBORw0K"))
	photo, err = f.manager.LoadPhoto(ctx)
	require.NoError(t, err)
	require.Equal(t, "data:image/png;base64,iVBORw0K", photo)

	require.NoError(t, f.manager.SavePhoto(ctx, ""))
	photo, err = f.manager.LoadPhoto(ctx)
	require.NoError(t, err)
	require.Empty(t, photo)
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	primary, legacy := kv.NewMemory(0), kv.NewMemory(0)
	f := newFixture(t, primary, legacy)

	_, err := f.manager.Initialize(ctx)
	require.NoError(t, err)
	sub := sampleSubscription()
	require.NoError(t, f.db.CreateSubscription(ctx, &sub))
	require.NoError(t, f.manager.SavePhoto(ctx, "data:image/png;base64,AAAA"))
	require.NoError(t, legacy.Set(ctx, LegacySnapshotKey, []byte("[1]")))

	require.NoError(t, f.manager.Reset(ctx))

	for _, key := range []string{SnapshotKey, VersionKey, PhotoKey} {
		_, err := primary.Get(ctx, key)
		require.ErrorIs(t, err, kv.ErrNotFound, key)
	}
	_, err = legacy.Get(ctx, LegacySnapshotKey)
	require.ErrorIs(t, err, kv.ErrNotFound)

	subs, err := f.db.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Empty(t, subs)
}
