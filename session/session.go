// Package session issues signed session tokens and keeps the server-side
// record that makes them revocable.
package session

import (
	"context"
	"errors"
	"time"

	"estatedesk/auth"
)

var (
	// ErrNoSession signals a missing, expired, revoked or tampered session.
	ErrNoSession = errors.New("session: no active session")
)

// Session is the authenticated principal attached to a request.
type Session struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      auth.Role `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsSuperAdmin reports whether the session may see actual revenue figures.
func (s Session) IsSuperAdmin() bool {
	return s.Role == auth.RoleSuperAdmin
}

type ctxKey string

const ctxKeySession ctxKey = "session"

// WithPrincipal returns a copy of ctx carrying s.
func WithPrincipal(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKeySession, s)
}

// PrincipalFrom extracts the session placed by WithPrincipal.
func PrincipalFrom(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKeySession).(Session)
	return s, ok
}
