package service

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/mmynk/subsync/internal/calculator"
	"github.com/mmynk/subsync/internal/models"
)

// Dashboard is everything the main screen shows, computed in one place.
type Dashboard struct {
	User           models.User
	CurrencySymbol string
	Today          civil.Date
	HorizonDays    int

	TotalMonthly  decimal.Decimal
	ActiveCount   int
	UpcomingCount int

	Categories    []calculator.CategoryAmount
	Calendar      calculator.MonthCalendar
	NextPayments  []calculator.Payment
	Contributions []calculator.PersonContribution

	// Subscriptions is the full list, newest first.
	Subscriptions []models.Subscription
}

// BuildDashboard derives the dashboard from a profile and its subscriptions.
// A negative horizonDays falls back to calculator.DefaultHorizonDays.
func BuildDashboard(user models.User, subs []models.Subscription, today civil.Date, year int, month time.Month, horizonDays int) *Dashboard {
	if horizonDays < 0 {
		horizonDays = calculator.DefaultHorizonDays
	}

	next := calculator.NextPayments(subs, today)
	if len(next) > calculator.UpcomingDisplayLimit {
		next = next[:calculator.UpcomingDisplayLimit]
	}

	return &Dashboard{
		User:           user,
		CurrencySymbol: models.CurrencySymbol(user.Currency),
		Today:          today,
		HorizonDays:    horizonDays,
		TotalMonthly:   calculator.TotalMonthly(subs),
		ActiveCount:    len(subs),
		UpcomingCount:  len(calculator.Upcoming(subs, today, horizonDays)),
		Categories:     calculator.CategoryBreakdown(subs),
		Calendar:       calculator.BuildMonth(subs, year, month, today),
		NextPayments:   next,
		Contributions:  calculator.SharedContributions(subs),
		Subscriptions:  subs,
	}
}
