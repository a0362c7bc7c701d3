// Package identity provides the authentication boundary: a provider that
// exposes the current user and identity-change notifications. Components
// take a Provider explicitly instead of reading ambient global state.
package identity

import (
	"context"
	"errors"
)

// ErrNotAuthenticated is returned when no user session exists.
var ErrNotAuthenticated = errors.New("not authenticated")

// User identifies the authenticated owner of a task set.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Provider exposes the current user identity and change notifications.
type Provider interface {
	// CurrentUser returns the authenticated user, or ErrNotAuthenticated.
	CurrentUser(ctx context.Context) (User, error)

	// OnChange registers a hook invoked whenever the identity changes.
	// A zero-value User is delivered on logout.
	OnChange(fn func(User))
}
