// Package middleware wraps CLI operations with structured logging and metrics.
package middleware

import (
	"context"
	"log/slog"
	"time"

	"github.com/mmynk/subsync/internal/apperr"
	"github.com/mmynk/subsync/internal/metrics"
	"github.com/mmynk/subsync/internal/models"
)

// Operation is one unit of work triggered by the user.
type Operation func(ctx context.Context) error

// Logged returns an Operation that logs every call of op under name.
// It logs the operation name, duration, and the error kind if any.
// Expected failures (not found, bad input, bad import file) log at WARN,
// everything else at ERROR. m may be nil.
func Logged(m *metrics.Metrics, name string, op Operation) Operation {
	return func(ctx context.Context) error {
		start := time.Now()

		err := op(ctx)

		duration := time.Since(start).Milliseconds()
		result := Result(err)
		m.ObserveOperation(name, result)

		switch result {
		case metrics.ResultOK:
			slog.InfoContext(ctx, "Operation ok",
				"operation", name,
				"duration_ms", duration,
			)
		case metrics.ResultError:
			slog.ErrorContext(ctx, "Operation error",
				"operation", name,
				"error", err,
				"duration_ms", duration,
			)
		default:
			slog.WarnContext(ctx, "Operation error",
				"operation", name,
				"result", result,
				"error", err,
				"duration_ms", duration,
			)
		}

		return err
	}
}

// Result classifies err into a metrics result label.
func Result(err error) string {
	if err == nil {
		return metrics.ResultOK
	}
	if models.IsValidation(err) {
		return metrics.ResultInvalid
	}
	switch apperr.Kind(err) {
	case apperr.ErrNotFound:
		return metrics.ResultNotFound
	case apperr.ErrFormat:
		return metrics.ResultInvalid
	default:
		return metrics.ResultError
	}
}
