package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/mmynk/subsync/internal/calculator"
	"github.com/mmynk/subsync/internal/models"
	"github.com/mmynk/subsync/internal/service"
)

func money(symbol string, amount decimal.Decimal) string {
	return symbol + amount.StringFixed(2)
}

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

func renderDashboard(w io.Writer, d *service.Dashboard) {
	greeting := "Hello"
	if d.User.Name != "" {
		greeting += ", " + d.User.Name
	}
	fmt.Fprintf(w, "%s!\n\n", greeting)

	tw := newTable(w)
	fmt.Fprintf(tw, "Monthly total\t%s\n", money(d.CurrencySymbol, d.TotalMonthly))
	fmt.Fprintf(tw, "Active\t%d\n", d.ActiveCount)
	fmt.Fprintf(tw, "Due in %d days\t%d\n", d.HorizonDays, d.UpcomingCount)
	tw.Flush()

	fmt.Fprintln(w, "\nBy category")
	tw = newTable(w)
	for _, c := range d.Categories {
		fmt.Fprintf(tw, "  %s\t%d\t%s\n", c.Category.Label(), c.Count, money(d.CurrencySymbol, c.Amount))
	}
	tw.Flush()

	if len(d.NextPayments) > 0 {
		fmt.Fprintln(w, "\nNext payments")
		renderPayments(w, d.CurrencySymbol, d.NextPayments)
	}

	if len(d.Contributions) > 0 {
		fmt.Fprintln(w, "\nShared with")
		tw = newTable(w)
		for _, c := range d.Contributions {
			fmt.Fprintf(tw, "  %s\t%d\t%s\n", c.Name, c.Subscriptions, money(d.CurrencySymbol, c.Amount))
		}
		tw.Flush()
	}
}

func renderPayments(w io.Writer, symbol string, payments []calculator.Payment) {
	tw := newTable(w)
	for _, p := range payments {
		fmt.Fprintf(tw, "  %s %s\t%s\t%s\n",
			p.Subscription.Icon,
			p.Subscription.Name,
			money(symbol, calculator.SubscriptionShare(p.Subscription)),
			calculator.RelativeLabel(p.DaysUntil),
		)
	}
	tw.Flush()
}

func renderList(w io.Writer, symbol string, subs []models.Subscription, today civil.Date) {
	if len(subs) == 0 {
		fmt.Fprintln(w, "No subscriptions yet. Add one with: subsync add --name NAME --price PRICE")
		return
	}

	tw := newTable(w)
	fmt.Fprintln(tw, "ID\tNAME\tCATEGORY\tPRICE\tYOUR SHARE\tBILLING\tDUE")
	for _, sub := range subs {
		fmt.Fprintf(tw, "%d\t%s %s\t%s\t%s\t%s\t%s\t%s\n",
			sub.ID,
			sub.Icon,
			sub.Name,
			sub.Category.Label(),
			money(symbol, sub.Price),
			money(symbol, calculator.SubscriptionShare(sub)),
			sub.BillingDate,
			calculator.RelativeLabel(calculator.DaysUntil(today, sub.BillingDate)),
		)
	}
	tw.Flush()
}

func renderSubscription(w io.Writer, symbol string, sub models.Subscription, today civil.Date) {
	tw := newTable(w)
	fmt.Fprintf(tw, "ID\t%d\n", sub.ID)
	fmt.Fprintf(tw, "Name\t%s %s\n", sub.Icon, sub.Name)
	fmt.Fprintf(tw, "Category\t%s\n", sub.Category.Label())
	fmt.Fprintf(tw, "Price\t%s\n", money(symbol, sub.Price))
	fmt.Fprintf(tw, "Your share\t%s\n", money(symbol, calculator.SubscriptionShare(sub)))
	fmt.Fprintf(tw, "Billing date\t%s (%s)\n", sub.BillingDate,
		calculator.RelativeLabel(calculator.DaysUntil(today, sub.BillingDate)))
	if sub.Cycle != "" {
		fmt.Fprintf(tw, "Cycle\t%s\n", sub.Cycle)
	}
	if sub.Shared() {
		fmt.Fprintf(tw, "Shared with\t%s\n", strings.Join(sub.SharedWith, ", "))
	}
	tw.Flush()
}

func renderUser(w io.Writer, user models.User) {
	name := user.Name
	if name == "" {
		name = "(not set)"
	}
	photo := "no"
	if user.HasPhoto() {
		photo = "yes"
	}

	tw := newTable(w)
	fmt.Fprintf(tw, "Name\t%s\n", name)
	fmt.Fprintf(tw, "Currency\t%s (%s)\n", user.Currency, models.CurrencySymbol(user.Currency))
	fmt.Fprintf(tw, "Theme\t%s\n", user.Theme)
	fmt.Fprintf(tw, "Photo\t%s\n", photo)
	tw.Flush()
}

// renderCalendar prints a Sunday-first grid. Days with payments carry a '*',
// today is bracketed. The payments follow the grid.
func renderCalendar(w io.Writer, symbol string, cal calculator.MonthCalendar) {
	fmt.Fprintf(w, "%s %d\n", cal.Month, cal.Year)
	fmt.Fprintln(w, " Su   Mo   Tu   We   Th   Fr   Sa")

	col := 0
	for ; col < cal.LeadingBlanks; col++ {
		fmt.Fprint(w, "     ")
	}
	for _, day := range cal.Days {
		mark := " "
		if len(day.Subscriptions) > 0 {
			mark = "*"
		}
		if day.Today {
			fmt.Fprintf(w, "[%2d]%s", day.Date.Day, mark)
		} else {
			fmt.Fprintf(w, " %2d %s", day.Date.Day, mark)
		}
		col++
		if col == 7 {
			fmt.Fprintln(w)
			col = 0
		}
	}
	if col != 0 {
		fmt.Fprintln(w)
	}

	tw := newTable(w)
	for _, day := range cal.Days {
		for _, sub := range day.Subscriptions {
			fmt.Fprintf(tw, "  %2d\t%s %s\t%s\n", day.Date.Day, sub.Icon, sub.Name,
				money(symbol, calculator.SubscriptionShare(sub)))
		}
	}
	tw.Flush()
}

func renderUpcoming(w io.Writer, d *service.Dashboard) {
	if len(d.NextPayments) == 0 {
		fmt.Fprintln(w, "No upcoming payments.")
		return
	}
	fmt.Fprintf(w, "%d due in the next %d days\n", d.UpcomingCount, d.HorizonDays)
	renderPayments(w, d.CurrencySymbol, d.NextPayments)
}
