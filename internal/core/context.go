package core

import "context"

type contextKey string

const (
	ctxKeyUserKey   contextKey = "user_key"
	ctxKeyIPAddress contextKey = "client_ip"
)

// ContextWithUserKey adds the acting user's key to context for logging.
func ContextWithUserKey(ctx context.Context, userKey string) context.Context {
	return context.WithValue(ctx, ctxKeyUserKey, userKey)
}

// ContextWithIPAddress adds the client IP address to context for logging.
func ContextWithIPAddress(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, ctxKeyIPAddress, ip)
}

// UserKeyFromContext extracts the user key from context.
func UserKeyFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyUserKey).(string); ok {
		return v
	}
	return ""
}

// IPAddressFromContext extracts the client IP address from context.
func IPAddressFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(ctxKeyIPAddress).(string); ok {
		return v
	}
	return ""
}
