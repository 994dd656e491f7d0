package portal

import (
	"context"

	"github.com/goliatone/go-router"
)

var userCtxKey = &contextKey{"user"}

type contextKey struct {
	name string
}

// RouterUserKey is the router context store key holding the current *User
const RouterUserKey = "current_user"

// WithContext sets the User in the given context
func WithContext(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, userCtxKey, user)
}

// FromContext finds the user from the context.
func FromContext(ctx context.Context) (*User, bool) {
	raw, ok := ctx.Value(userCtxKey).(*User)
	return raw, ok && raw != nil
}

// UserFromRouter returns the user stored by SessionContext
func UserFromRouter(ctx router.Context) (*User, bool) {
	user := router.GetContextValue[*User](ctx, RouterUserKey, nil)
	return user, user != nil
}

// SessionContext exposes the current user to downstream handlers via
// the router context store and the request context.
func SessionContext(m *Manager) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			if user := m.User(); user != nil {
				ctx.Set(RouterUserKey, user)
				ctx.SetContext(WithContext(ctx.Context(), user))
			}
			return ctx.Next()
		}
	}
}
