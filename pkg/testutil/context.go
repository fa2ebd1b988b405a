package testutil

import (
	"context"
	"time"

	"origo/pkg/requestcontext"
)

// Context returns a context pre-populated with the request-scoped values
// services expect, so unit tests don't need the HTTP middleware chain.
func Context(actor string, now time.Time) context.Context {
	ctx := context.Background()
	ctx = requestcontext.WithActor(ctx, actor)
	ctx = requestcontext.WithRequestID(ctx, "test-request")
	ctx = requestcontext.WithTime(ctx, now)
	return ctx
}
