package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/spf13/pflag"

	"github.com/mmynk/subsync/internal/backup"
	"github.com/mmynk/subsync/internal/models"
	"github.com/mmynk/subsync/internal/photo"
	"github.com/mmynk/subsync/internal/report"
	"github.com/mmynk/subsync/internal/service"
)

var errUsage = errors.New("usage")

func usageError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errUsage, fmt.Sprintf(format, args...))
}

type command func(ctx context.Context, args []string) error

// app holds what every command needs.
type app struct {
	repo   *service.Repository
	backup *backup.Service
	out    io.Writer
	now    func() time.Time
	today  civil.Date
}

func (a *app) commands() map[string]command {
	return map[string]command{
		"dashboard": a.dashboard,
		"list":      a.list,
		"show":      a.show,
		"add":       a.add,
		"edit":      a.edit,
		"delete":    a.remove,
		"user":      a.user,
		"calendar":  a.calendar,
		"upcoming":  a.upcoming,
		"export":    a.export,
		"import":    a.importFile,
		"report":    a.report,
		"reset":     a.reset,
	}
}

func parseID(args []string) (int64, []string, error) {
	if len(args) == 0 {
		return 0, nil, usageError("missing subscription ID")
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, nil, usageError("invalid subscription ID %q", args[0])
	}
	return id, args[1:], nil
}

func newFlagSet(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func (a *app) dashboard(ctx context.Context, _ []string) error {
	d, err := a.repo.Dashboard(ctx, a.today, a.today.Year, a.today.Month)
	if err != nil {
		return err
	}
	renderDashboard(a.out, d)
	return nil
}

func (a *app) list(ctx context.Context, _ []string) error {
	subs, err := a.repo.ListSubscriptions(ctx)
	if err != nil {
		return err
	}
	user, err := a.repo.GetUser(ctx)
	if err != nil {
		return err
	}
	renderList(a.out, models.CurrencySymbol(user.Currency), subs, a.today)
	return nil
}

func (a *app) show(ctx context.Context, args []string) error {
	id, _, err := parseID(args)
	if err != nil {
		return err
	}
	sub, err := a.repo.GetSubscription(ctx, id)
	if err != nil {
		return err
	}
	user, err := a.repo.GetUser(ctx)
	if err != nil {
		return err
	}
	renderSubscription(a.out, models.CurrencySymbol(user.Currency), *sub, a.today)
	return nil
}

// subscriptionFlags are shared by add and edit.
type subscriptionFlags struct {
	fs       *pflag.FlagSet
	name     *string
	price    *string
	category *string
	date     *string
	icon     *string
	cycle    *string
	shared   *[]string
}

func newSubscriptionFlags(name string, withDate bool) *subscriptionFlags {
	fs := newFlagSet(name)
	f := &subscriptionFlags{
		fs:       fs,
		name:     fs.String("name", "", "service name"),
		price:    fs.String("price", "", "full price, e.g. 15.99"),
		category: fs.String("category", "", "entertainment, productivity, utility or health"),
		icon:     fs.String("icon", "", "icon, one of: "+strings.Join(models.Icons, " ")),
		cycle:    fs.String("cycle", "", "weekly, monthly or yearly"),
		shared:   fs.StringSlice("shared", nil, "people sharing the cost (comma separated)"),
	}
	if withDate {
		f.date = fs.String("date", "", "billing date YYYY-MM-DD")
	}
	return f
}

// apply copies every flag that was set onto sub.
func (f *subscriptionFlags) apply(sub *models.Subscription) error {
	if f.fs.Changed("name") {
		sub.Name = *f.name
	}
	if f.fs.Changed("price") {
		price, err := decimal.NewFromString(*f.price)
		if err != nil {
			return usageError("invalid price %q", *f.price)
		}
		sub.Price = price
	}
	if f.fs.Changed("category") {
		sub.Category = models.Category(*f.category)
	}
	if f.date != nil && f.fs.Changed("date") {
		date, err := civil.ParseDate(*f.date)
		if err != nil {
			return usageError("invalid date %q, want YYYY-MM-DD", *f.date)
		}
		sub.BillingDate = date
	}
	if f.fs.Changed("icon") {
		sub.Icon = *f.icon
	}
	if f.fs.Changed("cycle") {
		sub.Cycle = models.Cycle(*f.cycle)
	}
	if f.fs.Changed("shared") {
		sub.SharedWith = *f.shared
	}
	return nil
}

func (a *app) add(ctx context.Context, args []string) error {
	f := newSubscriptionFlags("add", true)
	if err := f.fs.Parse(args); err != nil {
		return usageError("%v", err)
	}

	sub := models.Subscription{Category: models.CategoryEntertainment, BillingDate: a.today}
	if err := f.apply(&sub); err != nil {
		return err
	}

	id, err := a.repo.AddSubscription(ctx, sub)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Added subscription %d.\n", id)
	return nil
}

func (a *app) edit(ctx context.Context, args []string) error {
	id, rest, err := parseID(args)
	if err != nil {
		return err
	}
	f := newSubscriptionFlags("edit", false)
	if err := f.fs.Parse(rest); err != nil {
		return usageError("%v", err)
	}

	sub, err := a.repo.GetSubscription(ctx, id)
	if err != nil {
		return err
	}
	if err := f.apply(sub); err != nil {
		return err
	}

	if err := a.repo.UpdateSubscription(ctx, id, *sub); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Updated subscription %d.\n", id)
	return nil
}

func (a *app) remove(ctx context.Context, args []string) error {
	id, _, err := parseID(args)
	if err != nil {
		return err
	}
	if err := a.repo.DeleteSubscription(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted subscription %d.\n", id)
	return nil
}

func (a *app) user(ctx context.Context, args []string) error {
	fs := newFlagSet("user")
	name := fs.String("name", "", "display name")
	currency := fs.String("currency", "", "USD, EUR, MXN or COP")
	theme := fs.String("theme", "", "light, dark or system")
	photoPath := fs.String("photo", "", "path to a profile picture")
	removePhoto := fs.Bool("remove-photo", false, "remove the profile picture")
	if err := fs.Parse(args); err != nil {
		return usageError("%v", err)
	}

	user, err := a.repo.GetUser(ctx)
	if err != nil {
		return err
	}
	if fs.NFlag() == 0 {
		renderUser(a.out, user)
		return nil
	}

	if fs.Changed("name") {
		user.Name = *name
	}
	if fs.Changed("currency") {
		if _, ok := models.CurrencySymbols[*currency]; !ok {
			return usageError("unsupported currency %q", *currency)
		}
		user.Currency = *currency
	}
	if fs.Changed("theme") {
		if !models.Theme(*theme).Valid() {
			return usageError("unknown theme %q", *theme)
		}
		user.Theme = models.Theme(*theme)
	}
	if fs.Changed("photo") {
		dataURL, err := photoDataURL(*photoPath)
		if err != nil {
			return err
		}
		user.Photo = dataURL
	}
	if *removePhoto {
		user.Photo = ""
	}

	if err := a.repo.UpdateUser(ctx, user); err != nil {
		return err
	}
	renderUser(a.out, user)
	return nil
}

// photoDataURL reads an image file and shrinks it into a JPEG data URL.
func photoDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read photo: %w", err)
	}
	url, err := photo.DataURL(data)
	if errors.Is(err, photo.ErrNotImage) {
		return "", usageError("%s is not a JPEG, PNG, GIF or WebP image", path)
	}
	return url, err
}

func (a *app) calendar(ctx context.Context, args []string) error {
	fs := newFlagSet("calendar")
	month := fs.String("month", "", "month to show, YYYY-MM (default: current)")
	if err := fs.Parse(args); err != nil {
		return usageError("%v", err)
	}

	year, mon := a.today.Year, a.today.Month
	if *month != "" {
		t, err := time.Parse("2006-01", *month)
		if err != nil {
			return usageError("invalid month %q, want YYYY-MM", *month)
		}
		year, mon = t.Year(), t.Month()
	}

	d, err := a.repo.Dashboard(ctx, a.today, year, mon)
	if err != nil {
		return err
	}
	renderCalendar(a.out, d.CurrencySymbol, d.Calendar)
	return nil
}

func (a *app) upcoming(ctx context.Context, _ []string) error {
	d, err := a.repo.Dashboard(ctx, a.today, a.today.Year, a.today.Month)
	if err != nil {
		return err
	}
	renderUpcoming(a.out, d)
	return nil
}

func (a *app) export(ctx context.Context, args []string) error {
	fs := newFlagSet("export")
	out := fs.String("out", backup.FileName(a.now()), `output file ("-" for stdout)`)
	if err := fs.Parse(args); err != nil {
		return usageError("%v", err)
	}

	if *out == "-" {
		return a.backup.WriteExport(ctx, a.out)
	}
	return writeFile(*out, func(w io.Writer) error {
		return a.backup.WriteExport(ctx, w)
	}, a.out)
}

func (a *app) importFile(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing backup file")
	}

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open backup: %w", err)
	}
	defer f.Close()

	n, err := a.backup.Import(ctx, f)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Imported %d subscriptions.\n", n)
	return nil
}

func (a *app) report(ctx context.Context, args []string) error {
	fs := newFlagSet("report")
	out := fs.String("out", report.FileName(a.now()), "output file")
	if err := fs.Parse(args); err != nil {
		return usageError("%v", err)
	}

	user, err := a.repo.GetUser(ctx)
	if err != nil {
		return err
	}
	subs, err := a.repo.ListSubscriptions(ctx)
	if err != nil {
		return err
	}
	return writeFile(*out, func(w io.Writer) error {
		return report.WriteWorkbook(w, user, subs)
	}, a.out)
}

func (a *app) reset(ctx context.Context, args []string) error {
	fs := newFlagSet("reset")
	yes := fs.Bool("yes", false, "confirm deleting all data")
	if err := fs.Parse(args); err != nil {
		return usageError("%v", err)
	}
	if !*yes {
		return usageError("reset deletes all data; pass --yes to confirm")
	}

	if err := a.repo.Clear(ctx); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "All data deleted.")
	return nil
}

func writeFile(path string, write func(w io.Writer) error, out io.Writer) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	fmt.Fprintf(out, "Wrote %s.\n", path)
	return nil
}
