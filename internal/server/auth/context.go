package auth

import "context"

type ctxKey struct{}

// ContextWithSession returns a copy of ctx carrying sess. Transports call it
// after a successful Resolve so business handlers can read the identity.
func ContextWithSession(ctx context.Context, sess *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// SessionFromContext returns the session stored by ContextWithSession.
func SessionFromContext(ctx context.Context) (*Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(*Session)
	return sess, ok && sess != nil
}
