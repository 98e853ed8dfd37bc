package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"estatedesk/auth"
)

// CookieName is the cookie carrying the signed session token.
const CookieName = "estatedesk_session"

// Manager issues, resolves and revokes sessions.
type Manager struct {
	store  Store
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	newID  func() string
}

// NewManager creates a Manager signing tokens with secret.
func NewManager(store Store, secret string, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Manager{
		store:  store,
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// WithClock overrides the time source.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// TTL reports how long issued sessions live.
func (m *Manager) TTL() time.Duration {
	return m.ttl
}

// Issue records a new session for username and returns its signed token.
func (m *Manager) Issue(ctx context.Context, username string, role auth.Role) (string, Session, error) {
	if username == "" {
		return "", Session{}, fmt.Errorf("session: missing username")
	}
	if !role.IsValid() {
		return "", Session{}, fmt.Errorf("session: invalid role %q", role)
	}

	now := m.now().UTC()
	sess := Session{
		ID:        m.newID(),
		Username:  username,
		Role:      role,
		CreatedAt: now,
		ExpiresAt: now.Add(m.ttl),
	}

	if err := m.store.Save(ctx, sess); err != nil {
		return "", Session{}, err
	}

	token, err := m.sign(sess)
	if err != nil {
		_ = m.store.Revoke(ctx, sess.ID)
		return "", Session{}, fmt.Errorf("session: sign token: %w", err)
	}

	return token, sess, nil
}

// Resolve validates token and returns the live session it points to.
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	if token == "" {
		return Session{}, ErrNoSession
	}

	claims, err := m.parse(token)
	if err != nil {
		return Session{}, ErrNoSession
	}

	sess, err := m.store.Lookup(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if sess.Username != claims.Subject || string(sess.Role) != claims.Role {
		return Session{}, ErrNoSession
	}
	return sess, nil
}

// Revoke ends the session behind token. Invalid or unknown tokens are ignored
// so logout always succeeds.
func (m *Manager) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	claims, err := m.parse(token)
	if err != nil {
		return nil
	}
	return m.store.Revoke(ctx, claims.ID)
}

type claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

func (m *Manager) sign(sess Session) (string, error) {
	c := claims{
		Role: string(sess.Role),
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        sess.ID,
			Subject:   sess.Username,
			IssuedAt:  jwt.NewNumericDate(sess.CreatedAt),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	return token.SignedString(m.secret)
}

func (m *Manager) parse(tokenString string) (*claims, error) {
	var c claims
	token, err := jwt.ParseWithClaims(tokenString, &c, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil {
		return nil, fmt.Errorf("session: parse token: %w", err)
	}
	if !token.Valid || c.ID == "" {
		return nil, errors.New("session: invalid token")
	}
	return &c, nil
}
