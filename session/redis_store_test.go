package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"estatedesk/auth"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	s := miniredis.RunT(t)
	store, err := NewRedisStore(context.Background(), "redis://"+s.Addr())
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, s
}

func TestRedisStore_SaveLookupRevoke(t *testing.T) {
	store, _ := setupTestRedis(t)
	ctx := context.Background()

	sess := Session{
		ID:        "sid-1",
		Username:  "tanvipatil",
		Role:      auth.RoleAdmin,
		CreatedAt: time.Now().UTC().Truncate(time.Second),
		ExpiresAt: time.Now().UTC().Add(time.Hour).Truncate(time.Second),
	}
	if err := store.Save(ctx, sess); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Lookup(ctx, "sid-1")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if got.Username != sess.Username || got.Role != sess.Role || !got.ExpiresAt.Equal(sess.ExpiresAt) {
		t.Fatalf("unexpected session: %+v", got)
	}

	if err := store.Revoke(ctx, "sid-1"); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if _, err := store.Lookup(ctx, "sid-1"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession, got %v", err)
	}
}

func TestRedisStore_Expiry(t *testing.T) {
	store, s := setupTestRedis(t)
	ctx := context.Background()

	if err := store.Save(ctx, Session{ID: "sid-2", Username: "u", Role: auth.RoleAdmin, ExpiresAt: time.Now().Add(time.Minute)}); err != nil {
		t.Fatalf("save: %v", err)
	}

	s.FastForward(2 * time.Minute)

	if _, err := store.Lookup(ctx, "sid-2"); !errors.Is(err, ErrNoSession) {
		t.Fatalf("expected ErrNoSession after ttl, got %v", err)
	}
}

func TestRedisStore_RevokeUnknown(t *testing.T) {
	store, _ := setupTestRedis(t)
	if err := store.Revoke(context.Background(), "missing"); err != nil {
		t.Fatalf("revoke unknown: %v", err)
	}
}

func TestRedisStore_RejectsExpiredSession(t *testing.T) {
	store, _ := setupTestRedis(t)
	err := store.Save(context.Background(), Session{ID: "sid-3", ExpiresAt: time.Now().Add(-time.Second)})
	if err == nil {
		t.Fatal("expected error for already-expired session")
	}
}

func TestManager_WithRedisStore(t *testing.T) {
	store, _ := setupTestRedis(t)
	m := NewManager(store, "test-secret", time.Hour)
	ctx := context.Background()

	token, _, err := m.Issue(ctx, "superadmin", auth.RoleSuperAdmin)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	sess, err := m.Resolve(ctx, token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !sess.IsSuperAdmin() {
		t.Fatalf("expected superadmin, got %+v", sess)
	}
}
