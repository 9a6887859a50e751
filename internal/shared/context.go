package shared

import "context"

// SessionTokenHeader carries the opaque session token on API requests.
const SessionTokenHeader = "X-Session-Token"

type sessionTokenContextKey struct{}

// ContextWithSessionToken stores the presented session token in context.
func ContextWithSessionToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, sessionTokenContextKey{}, token)
}

// SessionTokenFromContext extracts the session token from context.
func SessionTokenFromContext(ctx context.Context) string {
	token, _ := ctx.Value(sessionTokenContextKey{}).(string)
	return token
}
