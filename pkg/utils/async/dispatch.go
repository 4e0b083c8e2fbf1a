package async

import (
	"context"
	"runtime/debug"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/releasepost/pkg/utils/errutil"
)

// Timeout bounds every dispatched handler.
var Timeout = 30 * time.Second

// Dispatch runs handler in a new goroutine for post-publish side effects.
//
// The handler gets a fresh background context bounded by Timeout: the request context
// may be cancelled as soon as the response is written. The logger and Sentry hub of ctx
// are carried over. Errors and panics are reported through errutil.Handle.
func Dispatch(ctx context.Context, handler func(ctx context.Context) error) {
	newCtx, cancel := newBackgroundContext(ctx)

	go func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				errutil.Handle(newCtx, goerr.New("panic in async handler",
					goerr.V("recover", r),
					goerr.V("stack", string(debug.Stack())),
				))
			}
		}()

		if err := handler(newCtx); err != nil {
			errutil.Handle(newCtx, goerr.Wrap(err, "error in async handler"))
		}
	}()
}

func newBackgroundContext(ctx context.Context) (context.Context, context.CancelFunc) {
	newCtx := ctxlog.With(context.Background(), ctxlog.From(ctx))
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		newCtx = sentry.SetHubOnContext(newCtx, hub.Clone())
	}
	return context.WithTimeout(newCtx, Timeout)
}
