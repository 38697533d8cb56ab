package storage

import "context"

// callerKey is a private type for the caller context key, preventing
// collisions with other packages.
type callerKey struct{}

// SetCaller injects a caller identity (API key name or token subject)
// into the context for usage attribution.
func SetCaller(ctx context.Context, caller string) context.Context {
	return context.WithValue(ctx, callerKey{}, caller)
}

// GetCaller extracts the caller identity from the context.
// Returns an empty string when no identity is set (anonymous mode).
func GetCaller(ctx context.Context) string {
	if v, ok := ctx.Value(callerKey{}).(string); ok {
		return v
	}
	return ""
}
