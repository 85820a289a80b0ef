package auth

import "context"

// Provider reports the signed-in user.
type Provider interface {
	// CurrentUser returns the user id, or an error wrapping shared.ErrNotAuthenticated.
	CurrentUser(ctx context.Context) (string, error)
}

// Notifier delivers sign-in and sign-out changes. An empty id means signed out.
type Notifier interface {
	Subscribe(fn func(userID string)) (unsubscribe func())
}

type userKey struct{}

// WithUser returns a copy of ctx carrying userID.
func WithUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserFromContext returns the user id stored by [WithUser].
func UserFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}
