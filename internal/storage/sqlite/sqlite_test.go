package sqlite

import (
	"context"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/subsync/internal/apperr"
	"github.com/mmynk/subsync/internal/models"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	store, err := New(context.Background())
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	version, err := store.Migrate(context.Background())
	require.NoError(t, err)
	require.Equal(t, uint(1), version)

	return store
}

func netflix() models.Subscription {
	return models.Subscription{
		Name:        "Netflix",
		Price:       decimal.RequireFromString("15.99"),
		Category:    models.CategoryEntertainment,
		BillingDate: civil.Date{Year: 2024, Month: 3, Day: 15},
		Icon:        "📺",
		Cycle:       models.CycleMonthly,
		SharedWith:  []string{"Ana", "Luis"},
	}
}

func TestSQLiteStore(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	t.Run("Fresh database has the default user", func(t *testing.T) {
		user, hasPhoto, err := store.GetUser(ctx)
		require.NoError(t, err)
		require.False(t, hasPhoto)
		require.Equal(t, models.DefaultUser(), user)
	})

	t.Run("Migrate is idempotent", func(t *testing.T) {
		version, err := store.Migrate(ctx)
		require.NoError(t, err)
		require.Equal(t, uint(1), version)

		user, _, err := store.GetUser(ctx)
		require.NoError(t, err)
		require.Equal(t, models.DefaultUser(), user)
	})

	t.Run("UpsertUser records only the photo flag", func(t *testing.T) {
		err := store.UpsertUser(ctx, models.User{
			Name:     "Maria",
			Photo:    "data:image/png;base64,AAAA",
			Currency: "EUR",
			Theme:    models.ThemeLight,
		})
		require.NoError(t, err)

		user, hasPhoto, err := store.GetUser(ctx)
		require.NoError(t, err)
		require.True(t, hasPhoto)
		require.Equal(t, "Maria", user.Name)
		require.Empty(t, user.Photo)
		require.Equal(t, "EUR", user.Currency)
		require.Equal(t, models.ThemeLight, user.Theme)
	})

	t.Run("CreateSubscription assigns ID and keeps shared order", func(t *testing.T) {
		sub := netflix()
		sub.SharedWith = []string{"Zoe", "Ana", "Zoe"}
		require.NoError(t, store.CreateSubscription(ctx, &sub))
		require.NotZero(t, sub.ID)

		got, err := store.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		require.Equal(t, "Netflix", got.Name)
		require.True(t, got.Price.Equal(decimal.RequireFromString("15.99")))
		require.Equal(t, models.CategoryEntertainment, got.Category)
		require.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 15}, got.BillingDate)
		require.Equal(t, "📺", got.Icon)
		require.Equal(t, models.CycleMonthly, got.Cycle)
		require.Equal(t, []string{"Zoe", "Ana", "Zoe"}, got.SharedWith)
		require.True(t, got.Shared())
	})

	t.Run("GetSubscription of unknown ID is not found", func(t *testing.T) {
		_, err := store.GetSubscription(ctx, 9999)
		require.ErrorIs(t, err, apperr.ErrNotFound)
	})

	t.Run("UpdateSubscription keeps the billing date", func(t *testing.T) {
		sub := netflix()
		require.NoError(t, store.CreateSubscription(ctx, &sub))

		sub.Name = "Netflix Premium"
		sub.Price = decimal.RequireFromString("22.99")
		sub.BillingDate = civil.Date{Year: 2030, Month: 1, Day: 1}
		sub.SharedWith = []string{"Pedro"}
		require.NoError(t, store.UpdateSubscription(ctx, &sub))

		got, err := store.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		require.Equal(t, "Netflix Premium", got.Name)
		require.True(t, got.Price.Equal(decimal.RequireFromString("22.99")))
		require.Equal(t, civil.Date{Year: 2024, Month: 3, Day: 15}, got.BillingDate)
		require.Equal(t, []string{"Pedro"}, got.SharedWith)

		sub.SharedWith = nil
		require.NoError(t, store.UpdateSubscription(ctx, &sub))
		got, err = store.GetSubscription(ctx, sub.ID)
		require.NoError(t, err)
		require.Empty(t, got.SharedWith)
		require.False(t, got.Shared())
	})

	t.Run("UpdateSubscription of unknown ID is not found", func(t *testing.T) {
		sub := netflix()
		sub.ID = 9999
		require.ErrorIs(t, store.UpdateSubscription(ctx, &sub), apperr.ErrNotFound)
	})

	t.Run("DeleteSubscription cascades to shared people", func(t *testing.T) {
		sub := netflix()
		require.NoError(t, store.CreateSubscription(ctx, &sub))
		require.NoError(t, store.DeleteSubscription(ctx, sub.ID))

		_, err := store.GetSubscription(ctx, sub.ID)
		require.ErrorIs(t, err, apperr.ErrNotFound)

		var orphans int
		err = store.db.QueryRowContext(ctx,
			"SELECT count(*) FROM shared_people WHERE subscription_id NOT IN (SELECT id FROM subscriptions)",
		).Scan(&orphans)
		require.NoError(t, err)
		require.Zero(t, orphans)

		require.ErrorIs(t, store.DeleteSubscription(ctx, sub.ID), apperr.ErrNotFound)
	})

	t.Run("ListSubscriptions is newest first", func(t *testing.T) {
		subs, err := store.ListSubscriptions(ctx)
		require.NoError(t, err)
		require.NotEmpty(t, subs)
		for i := 1; i < len(subs); i++ {
			require.Greater(t, subs[i-1].ID, subs[i].ID)
		}
	})
}

func TestReplaceSubscriptionsKeepsIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := netflix()
	require.NoError(t, store.CreateSubscription(ctx, &first))

	a := netflix()
	a.ID = 42
	b := netflix()
	b.ID = 7
	b.Name = "Spotify"
	b.SharedWith = nil
	require.NoError(t, store.ReplaceSubscriptions(ctx, []models.Subscription{a, b}))

	subs, err := store.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, int64(42), subs[0].ID)
	require.Equal(t, []string{"Ana", "Luis"}, subs[0].SharedWith)
	require.Equal(t, int64(7), subs[1].ID)
	require.Empty(t, subs[1].SharedWith)

	// new rows continue after the largest kept ID
	c := netflix()
	require.NoError(t, store.CreateSubscription(ctx, &c))
	require.Greater(t, c.ID, int64(42))
}

func TestReplaceSubscriptionsRollsBack(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	keep := netflix()
	require.NoError(t, store.CreateSubscription(ctx, &keep))

	a := netflix()
	a.ID = 5
	dup := netflix()
	dup.ID = 5
	require.Error(t, store.ReplaceSubscriptions(ctx, []models.Subscription{a, dup}))

	subs, err := store.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, keep.ID, subs[0].ID)
}

func TestImportAll(t *testing.T) {
	ctx := context.Background()

	t.Run("Applies profile and subscriptions together", func(t *testing.T) {
		store := newTestStore(t)
		old := netflix()
		require.NoError(t, store.CreateSubscription(ctx, &old))

		imported := netflix()
		imported.ID = 9
		user := models.User{Name: "Maria", Photo: "data:image/jpeg;base64,/9j/", Currency: "EUR", Theme: models.ThemeLight}
		require.NoError(t, store.ImportAll(ctx, user, []models.Subscription{imported}))

		got, hasPhoto, err := store.GetUser(ctx)
		require.NoError(t, err)
		require.True(t, hasPhoto)
		require.Equal(t, "Maria", got.Name)

		subs, err := store.ListSubscriptions(ctx)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		require.Equal(t, int64(9), subs[0].ID)
	})

	t.Run("Duplicate IDs leave profile and subscriptions untouched", func(t *testing.T) {
		store := newTestStore(t)
		require.NoError(t, store.UpsertUser(ctx, models.User{Name: "Maria", Currency: "EUR"}))
		keep := netflix()
		require.NoError(t, store.CreateSubscription(ctx, &keep))

		a := netflix()
		a.ID = 5
		dup := netflix()
		dup.ID = 5
		intruder := models.User{Name: "Intruder", Currency: "COP"}
		require.Error(t, store.ImportAll(ctx, intruder, []models.Subscription{a, dup}))

		got, _, err := store.GetUser(ctx)
		require.NoError(t, err)
		require.Equal(t, "Maria", got.Name)
		require.Equal(t, "EUR", got.Currency)

		subs, err := store.ListSubscriptions(ctx)
		require.NoError(t, err)
		require.Len(t, subs, 1)
		require.Equal(t, keep.ID, subs[0].ID)
	})
}

func TestResetData(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	sub := netflix()
	require.NoError(t, store.CreateSubscription(ctx, &sub))
	require.NoError(t, store.UpsertUser(ctx, models.User{Name: "Maria", Currency: "MXN", Theme: models.ThemeSystem}))

	require.NoError(t, store.ResetData(ctx))

	subs, err := store.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Empty(t, subs)

	user, hasPhoto, err := store.GetUser(ctx)
	require.NoError(t, err)
	require.False(t, hasPhoto)
	require.Equal(t, models.DefaultUser(), user)
}

func TestSerializeRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newTestStore(t)

	sub := netflix()
	require.NoError(t, src.CreateSubscription(ctx, &sub))
	require.NoError(t, src.UpsertUser(ctx, models.User{Name: "Maria", Currency: "COP", Theme: models.ThemeDark}))

	image, err := src.Serialize(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, image)

	dst, err := New(ctx)
	require.NoError(t, err)
	defer dst.Close()
	require.NoError(t, dst.Deserialize(ctx, image))

	version, err := dst.Migrate(ctx)
	require.NoError(t, err)
	require.Equal(t, uint(1), version)

	want, err := src.ListSubscriptions(ctx)
	require.NoError(t, err)
	got, err := dst.ListSubscriptions(ctx)
	require.NoError(t, err)
	require.Equal(t, want, got)

	user, _, err := dst.GetUser(ctx)
	require.NoError(t, err)
	require.Equal(t, "Maria", user.Name)
	require.Equal(t, "COP", user.Currency)

	// cascade still applies after a restore
	require.NoError(t, dst.DeleteSubscription(ctx, sub.ID))
	var people int
	require.NoError(t, dst.db.QueryRowContext(ctx, "SELECT count(*) FROM shared_people").Scan(&people))
	require.Zero(t, people)
}

func TestDeserializeRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	store, err := New(ctx)
	require.NoError(t, err)
	defer store.Close()

	require.Error(t, store.Deserialize(ctx, nil))
	require.Error(t, store.Deserialize(ctx, []byte("definitely not a database file")))
}
