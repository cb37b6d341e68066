// Package requestcontext carries the caller, request id and request time
// through a context.Context. Middleware writes them; the account services
// read them without importing net/http.
package requestcontext

import (
	"context"
	"time"

	id "prospector/pkg/domain"
)

type contextKey int

const (
	userIDKey contextKey = iota
	requestIDKey
	requestTimeKey
)

// UserID returns the authenticated caller, or the nil id for anonymous
// requests.
func UserID(ctx context.Context) id.UserID {
	if userID, ok := ctx.Value(userIDKey).(id.UserID); ok {
		return userID
	}
	return id.UserID{}
}

func WithUserID(ctx context.Context, userID id.UserID) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func RequestID(ctx context.Context) string {
	requestID, _ := ctx.Value(requestIDKey).(string)
	return requestID
}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// Now returns the time the request was received. Outside a request, such as
// a change feed handler or a CLI command, it is the current time.
func Now(ctx context.Context) time.Time {
	if t, ok := ctx.Value(requestTimeKey).(time.Time); ok {
		return t
	}
	return time.Now()
}

func WithTime(ctx context.Context, t time.Time) context.Context {
	return context.WithValue(ctx, requestTimeKey, t)
}
