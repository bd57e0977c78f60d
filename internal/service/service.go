// Package service holds the business operations behind the HTTP handlers:
// registration and login, post CRUD with ownership checks, and voting.
package service

import (
	"context"
	"log/slog"

	"chirp/internal/database"
	"chirp/internal/middleware"
)

// Transactor runs fn inside one transactional scope.
type Transactor interface {
	InTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// EventPublisher publishes domain events. Implemented by notifications.Notifier.
type EventPublisher interface {
	Publish(ctx context.Context, channel, eventType string, payload any) error
}

// publishAfterCommit defers the event until the surrounding transaction
// commits. Failures are logged and never reach the caller.
func publishAfterCommit(ctx context.Context, events EventPublisher, channel, eventType string, payload any) {
	if events == nil {
		return
	}
	database.AfterCommit(ctx, func(ctx context.Context) {
		if err := events.Publish(ctx, channel, eventType, payload); err != nil {
			middleware.Logger.WarnContext(ctx, "failed to publish event",
				slog.String("channel", channel),
				slog.String("type", eventType),
				slog.String("error", err.Error()))
		}
	})
}
