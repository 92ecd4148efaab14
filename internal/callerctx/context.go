package callerctx

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
)

// CallerContextKey is the request context key for the authenticated caller ID.
type CallerContextKey struct{}

// WithCallerID stores the caller ID in the context.
func WithCallerID(ctx context.Context, callerID snowflake.ID) context.Context {
	return context.WithValue(ctx, CallerContextKey{}, callerID)
}

// CallerIDFromContext returns the caller ID from context, if set.
func CallerIDFromContext(ctx context.Context) (snowflake.ID, bool) {
	if ctx == nil {
		return 0, false
	}

	value := ctx.Value(CallerContextKey{})
	if value == nil {
		return 0, false
	}
	switch typed := value.(type) {
	case int64:
		return snowflake.ID(typed), true
	case snowflake.ID:
		return typed, true
	case string:
		parsed, err := snowflake.ParseString(strings.TrimSpace(typed))
		if err == nil {
			return parsed, true
		}
	}
	return 0, false
}
