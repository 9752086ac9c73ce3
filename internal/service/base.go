// Package service provides application business logic (chat, discussions, comments, users).
package service

import (
	"context"
	"log/slog"
	"time"

	"agora/internal/database"
	"agora/internal/middleware"
	"agora/internal/observability"
)

// transientRetries is how many extra attempts a mutation gets after a transient store conflict.
const transientRetries = 1

func retryTransient(ctx context.Context, operation string, fn func() error) error {
	return database.RetryTransient(ctx, transientRetries, fn, func(attempt int, err error) {
		observability.TransactionRetries.WithLabelValues(operation).Inc()
		middleware.Logger.WarnContext(ctx, "retrying after transient store conflict",
			slog.String("operation", operation),
			slog.Int("attempt", attempt),
			slog.String("error", err.Error()),
		)
	})
}

func utcNow() time.Time {
	return time.Now().UTC()
}
