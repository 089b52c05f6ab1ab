package middleware

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/subsync/internal/apperr"
	"github.com/mmynk/subsync/internal/metrics"
	"github.com/mmynk/subsync/internal/models"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestResult(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, metrics.ResultOK},
		{"not found", apperr.New(apperr.ErrNotFound, "get subscription 1", nil), metrics.ResultNotFound},
		{"format", &apperr.FormatError{Missing: []string{"user"}}, metrics.ResultInvalid},
		{"validation", fmt.Errorf("add subscription: %w", models.ErrInvalidPrice), metrics.ResultInvalid},
		{"storage", apperr.New(apperr.ErrStorage, "persist", errors.New("io")), metrics.ResultError},
		{"quota", apperr.New(apperr.ErrQuota, "persist", errors.New("full")), metrics.ResultError},
		{"wrapped not found", fmt.Errorf("show: %w", apperr.New(apperr.ErrNotFound, "get subscription 2", nil)), metrics.ResultNotFound},
		{"bad icon", models.ErrInvalidIcon, metrics.ResultInvalid},
		{"plain", errors.New("boom"), metrics.ResultError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, Result(tt.err))
		})
	}
}

func TestLogged(t *testing.T) {
	buf := captureLogs(t)
	m := metrics.New()
	ctx := context.Background()

	ok := Logged(m, "list", func(context.Context) error { return nil })
	require.NoError(t, ok(ctx))
	require.Contains(t, buf.String(), "level=INFO")
	require.Contains(t, buf.String(), "operation=list")

	buf.Reset()
	notFound := apperr.New(apperr.ErrNotFound, "get subscription 9", nil)
	missing := Logged(m, "show", func(context.Context) error { return notFound })
	require.ErrorIs(t, missing(ctx), apperr.ErrNotFound)
	require.Contains(t, buf.String(), "level=WARN")

	buf.Reset()
	failing := Logged(m, "add", func(context.Context) error { return errors.New("boom") })
	require.EqualError(t, failing(ctx), "boom")
	require.Contains(t, buf.String(), "level=ERROR")

	n, err := testutil.GatherAndCount(m.Registry(), "subsync_operations_total")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestLoggedWithoutMetrics(t *testing.T) {
	captureLogs(t)
	op := Logged(nil, "noop", func(context.Context) error { return nil })
	require.NoError(t, op(context.Background()))
}
