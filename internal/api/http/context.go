package http

import (
	"context"
)

type ctxKey int

const (
	appraiserIDKey ctxKey = iota
	requestIDKey
)

func withRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, requestIDKey, id)
}

func withAppraiserID(ctx context.Context, id int32) context.Context {
	return context.WithValue(ctx, appraiserIDKey, id)
}

// AppraiserIDFromContext returns the appraiser authenticated for the request.
func AppraiserIDFromContext(ctx context.Context) (int32, bool) {
	id, ok := ctx.Value(appraiserIDKey).(int32)
	return id, ok && id != 0
}

// RequestIDFromContext returns the X-Request-ID of the request, if any.
func RequestIDFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(requestIDKey).(string); ok {
		return id
	}
	return ""
}
