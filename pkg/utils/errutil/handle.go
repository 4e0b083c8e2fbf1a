package errutil

import (
	"context"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
)

// Handle logs err and reports it to Sentry when a client is configured.
func Handle(ctx context.Context, err error) {
	if err == nil {
		return
	}

	attrs := []any{"error", err}

	hub := sentry.GetHubFromContext(ctx)
	if hub == nil {
		hub = sentry.CurrentHub()
	}
	if hub.Client() != nil {
		if evID := hub.CaptureException(err); evID != nil {
			attrs = append(attrs, "sentry_event_id", string(*evID))
		}
	}

	ctxlog.From(ctx).Error(err.Error(), attrs...)
}
