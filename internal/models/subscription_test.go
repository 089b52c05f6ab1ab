package models

import (
	"errors"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func validSubscription() Subscription {
	return Subscription{
		Name:        "Netflix",
		Price:       decimal.RequireFromString("15.99"),
		Category:    CategoryEntertainment,
		BillingDate: civil.Date{Year: 2024, Month: 3, Day: 5},
		Icon:        "🎬",
		Cycle:       CycleMonthly,
	}
}

func TestSubscriptionValidate(t *testing.T) {
	require.NoError(t, validSubscription().Validate())

	tests := []struct {
		name   string
		mutate func(s *Subscription)
		want   error
	}{
		{"blank name", func(s *Subscription) { s.Name = "   " }, ErrEmptyName},
		{"zero price", func(s *Subscription) { s.Price = decimal.Zero }, ErrInvalidPrice},
		{"negative price", func(s *Subscription) { s.Price = decimal.NewFromInt(-3) }, ErrInvalidPrice},
		{"unknown category", func(s *Subscription) { s.Category = "food" }, ErrInvalidCategory},
		{"zero date", func(s *Subscription) { s.BillingDate = civil.Date{} }, ErrInvalidDate},
		{"impossible date", func(s *Subscription) { s.BillingDate = civil.Date{Year: 2024, Month: 2, Day: 30} }, ErrInvalidDate},
		{"unknown cycle", func(s *Subscription) { s.Cycle = "hourly" }, ErrInvalidCycle},
		{"icon outside palette", func(s *Subscription) { s.Icon = "🦄" }, ErrInvalidIcon},
		{"icon is text", func(s *Subscription) { s.Icon = "netflix" }, ErrInvalidIcon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubscription()
			tt.mutate(&sub)
			require.ErrorIs(t, sub.Validate(), tt.want)
		})
	}
}

func TestIconPalette(t *testing.T) {
	require.True(t, ValidIcon(DefaultIcon))
	for _, icon := range Icons {
		require.True(t, ValidIcon(icon), icon)
	}
	require.False(t, ValidIcon(""))

	// An empty icon is filled in by Normalized, so it validates.
	sub := validSubscription()
	sub.Icon = ""
	require.NoError(t, sub.Validate())
	require.NoError(t, sub.Normalized().Validate())
}

func TestSubscriptionNormalized(t *testing.T) {
	sub := validSubscription()
	sub.Name = "  Spotify "
	sub.Icon = ""
	sub.Cycle = ""
	sub.SharedWith = []string{" Ana", "", "Luis", "   ", "Ana"}

	got := sub.Normalized()

	require.Equal(t, "Spotify", got.Name)
	require.Equal(t, DefaultIcon, got.Icon)
	require.Equal(t, CycleMonthly, got.Cycle)
	require.Equal(t, []string{"Ana", "Luis", "Ana"}, got.SharedWith)
	require.True(t, got.Shared())
}

func TestSharedIsDerived(t *testing.T) {
	sub := validSubscription()
	require.False(t, sub.Shared())

	sub.SharedWith = []string{"Ana"}
	require.True(t, sub.Shared())

	sub.SharedWith = sub.SharedWith[:0]
	require.False(t, sub.Shared())
}

func TestCategory(t *testing.T) {
	for _, c := range Categories {
		require.True(t, c.Valid(), c)
		require.NotEqual(t, string(c), c.Label())
	}
	require.False(t, Category("food").Valid())
	require.Equal(t, "food", Category("food").Label())
}

func TestUserDefaults(t *testing.T) {
	u := DefaultUser()
	require.Equal(t, "", u.Name)
	require.Equal(t, "USD", u.Currency)
	require.Equal(t, ThemeDark, u.Theme)
	require.False(t, u.HasPhoto())

	normalized := User{Name: "Ana", Theme: "neon"}.Normalized()
	require.Equal(t, DefaultCurrency, normalized.Currency)
	require.Equal(t, DefaultTheme, normalized.Theme)

	require.Equal(t, "€", CurrencySymbol("EUR"))
	require.Equal(t, "$", CurrencySymbol("XYZ"))
}

func TestIsValidation(t *testing.T) {
	sub := validSubscription()
	sub.Price = decimal.Zero
	err := sub.Validate()

	require.True(t, IsValidation(err))
	require.False(t, IsValidation(nil))
	require.False(t, IsValidation(errors.New("disk full")))
}
