package calculator

import (
	"fmt"
	"sort"
	"time"

	"cloud.google.com/go/civil"

	"github.com/mmynk/subsync/internal/models"
)

const (
	// DefaultHorizonDays is the window that makes a payment "upcoming".
	DefaultHorizonDays = 7

	// UpcomingDisplayLimit is how many next payments a dashboard shows.
	UpcomingDisplayLimit = 5
)

// DaysUntil returns the signed number of calendar days from today to date.
// Negative means the date is in the past.
func DaysUntil(today, date civil.Date) int {
	return date.DaysSince(today)
}

// Upcoming returns the subscriptions billed within [today, today+horizonDays],
// both ends inclusive, in input order.
func Upcoming(subs []models.Subscription, today civil.Date, horizonDays int) []models.Subscription {
	var out []models.Subscription
	for _, sub := range subs {
		days := DaysUntil(today, sub.BillingDate)
		if days >= 0 && days <= horizonDays {
			out = append(out, sub)
		}
	}
	return out
}

// ByDay returns the subscriptions billed exactly on the given calendar day.
func ByDay(subs []models.Subscription, day int, month time.Month, year int) []models.Subscription {
	target := civil.Date{Year: year, Month: month, Day: day}
	var out []models.Subscription
	for _, sub := range subs {
		if sub.BillingDate == target {
			out = append(out, sub)
		}
	}
	return out
}

// Payment pairs a subscription with its distance from today.
type Payment struct {
	Subscription models.Subscription
	DaysUntil    int
}

// NextPayments returns every subscription not yet past, nearest first.
// Ties keep input order. Callers truncate to what they display.
func NextPayments(subs []models.Subscription, today civil.Date) []Payment {
	out := make([]Payment, 0, len(subs))
	for _, sub := range subs {
		days := DaysUntil(today, sub.BillingDate)
		if days < 0 {
			continue
		}
		out = append(out, Payment{Subscription: sub, DaysUntil: days})
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].DaysUntil < out[j].DaysUntil
	})
	return out
}

// RelativeLabel describes a day distance the way the dashboard shows it.
func RelativeLabel(days int) string {
	switch {
	case days < 0:
		return "Overdue"
	case days == 0:
		return "Today"
	case days == 1:
		return "Tomorrow"
	default:
		return fmt.Sprintf("In %d days", days)
	}
}

// CalendarDay is one cell of a month calendar.
type CalendarDay struct {
	Date          civil.Date
	Today         bool
	Subscriptions []models.Subscription
}

// MonthCalendar is a month laid out for a Sunday-first week grid.
type MonthCalendar struct {
	Year  int
	Month time.Month

	// LeadingBlanks is the number of empty cells before day 1
	// (0 when the month starts on a Sunday).
	LeadingBlanks int

	Days []CalendarDay
}

// BuildMonth places subscriptions on the days of the given month.
func BuildMonth(subs []models.Subscription, year int, month time.Month, today civil.Date) MonthCalendar {
	first := civil.Date{Year: year, Month: month, Day: 1}
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()

	cal := MonthCalendar{
		Year:          year,
		Month:         month,
		LeadingBlanks: int(first.In(time.UTC).Weekday()),
		Days:          make([]CalendarDay, daysInMonth),
	}
	for i := range cal.Days {
		d := first.AddDays(i)
		cal.Days[i] = CalendarDay{Date: d, Today: d == today}
	}

	for _, sub := range subs {
		bd := sub.BillingDate
		if bd.Year != year || bd.Month != month || bd.Day < 1 || bd.Day > daysInMonth {
			continue
		}
		cell := &cal.Days[bd.Day-1]
		cell.Subscriptions = append(cell.Subscriptions, sub)
	}

	return cal
}
