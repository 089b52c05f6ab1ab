package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"

	"github.com/mmynk/subsync/internal/apperr"
	"github.com/mmynk/subsync/internal/backup"
	"github.com/mmynk/subsync/internal/config"
	"github.com/mmynk/subsync/internal/metrics"
	"github.com/mmynk/subsync/internal/middleware"
	"github.com/mmynk/subsync/internal/persistence"
	"github.com/mmynk/subsync/internal/service"
	"github.com/mmynk/subsync/internal/storage/kv"
	"github.com/mmynk/subsync/internal/storage/sqlite"
	"github.com/mmynk/subsync/pkg/logging"
)

const usage = `Usage: subsync [flags] [command] [args]

Commands:
  dashboard            totals, categories and next payments (default)
  list                 all subscriptions
  show ID              one subscription
  add [flags]          add a subscription
  edit ID [flags]      edit a subscription (the billing date is kept)
  delete ID            delete a subscription
  user [flags]         show or edit the profile
  calendar [--month YYYY-MM]
  upcoming             payments due soon
  export [--out FILE]  write a JSON backup
  import FILE          replace all data with a JSON backup
  report [--out FILE]  write an XLSX report
  reset --yes          delete all data

Flags:
`

func main() {
	flags := pflag.CommandLine
	config.RegisterFlags(flags)
	showMetrics := flags.Bool("metrics", false, "print metrics in Prometheus text format after the command")
	flags.SetInterspersed(false)
	flags.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		flags.PrintDefaults()
	}
	pflag.Parse()

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	// Setup structured logging
	level, _ := logging.ParseLevel(cfg.LogLevel)
	logging.SetupWithLevel(level)
	slog.SetDefault(slog.Default().With("session", uuid.NewString()))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, cfg, pflag.Args(), os.Stdout, os.Stderr, *showMetrics)
	stop()
	os.Exit(code)
}

// run wires the stores, initializes the database and executes one command.
// It returns the process exit code.
func run(ctx context.Context, cfg *config.Config, args []string, stdout, stderr io.Writer, showMetrics bool) int {
	m := metrics.New()

	primary, legacy, err := openStores(cfg)
	if err != nil {
		slog.Error("Failed to open storage", "error", err)
		fmt.Fprintln(stderr, "Could not open the data directory:", err)
		return 1
	}
	defer primary.Close()
	defer legacy.Close()

	db, err := sqlite.New(ctx)
	if err != nil {
		slog.Error("Failed to start database", "error", err)
		fmt.Fprintln(stderr, "Could not start the database:", err)
		return 1
	}
	defer db.Close()

	notifier := persistence.NotifierFunc(func(_ context.Context, message string) {
		fmt.Fprintln(stderr, "Warning:", message)
	})
	manager := persistence.NewManager(db, primary, legacy, notifier, m)
	if _, err := manager.Initialize(ctx); err != nil {
		slog.Error("Failed to initialize database", "error", err)
		fmt.Fprintln(stderr, "Your saved data could not be loaded:", err)
		return 1
	}

	repo := service.NewRepository(db, manager, service.WithHorizonDays(cfg.HorizonDays))
	a := &app{
		repo:   repo,
		backup: backup.NewService(repo),
		out:    stdout,
		now:    time.Now,
		today:  cfg.TodayDate(time.Now()),
	}

	name := "dashboard"
	if len(args) > 0 {
		name, args = args[0], args[1:]
	}
	cmd, ok := a.commands()[name]
	if !ok {
		fmt.Fprintf(stderr, "Unknown command %q\n\n", name)
		fmt.Fprint(stderr, usage)
		return 2
	}

	op := middleware.Logged(m, name, func(ctx context.Context) error {
		return cmd(ctx, args)
	})
	code := 0
	if err := op(ctx); err != nil {
		code = reportError(stderr, err)
	}

	if showMetrics {
		if err := m.WriteText(stdout); err != nil {
			slog.Error("Failed to write metrics", "error", err)
		}
	}
	return code
}

func openStores(cfg *config.Config) (kv.Store, kv.Store, error) {
	if cfg.Ephemeral {
		legacy, err := kv.NewFileStore(afero.NewMemMapFs(), "/legacy")
		if err != nil {
			return nil, nil, err
		}
		return kv.NewMemory(cfg.QuotaBytes), legacy, nil
	}

	primary, err := kv.OpenBolt(cfg.BoltPath(), cfg.QuotaBytes)
	if err != nil {
		return nil, nil, err
	}
	legacy, err := kv.NewFileStore(afero.NewOsFs(), cfg.LegacyDir())
	if err != nil {
		primary.Close()
		return nil, nil, err
	}
	return primary, legacy, nil
}

// reportError prints a user-facing message for err and returns the exit code.
func reportError(w io.Writer, err error) int {
	var formatErr *apperr.FormatError
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		fmt.Fprintln(w, "Nothing found.")
		return 0
	case errors.As(err, &formatErr):
		fmt.Fprintln(w, "Invalid backup file format. Missing:", formatErr.Missing)
		return 1
	case errors.Is(err, errUsage):
		fmt.Fprintln(w, err)
		return 2
	default:
		fmt.Fprintln(w, "Error:", err)
		return 1
	}
}
