package property

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"estatedesk/db"
)

// TestRepository_Integration runs against the PostgreSQL in DATABASE_URL and
// checks mark-sold idempotency and the interaction cascade.
func TestRepository_Integration(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL is empty; set it to a live PostgreSQL to run integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect pool: %v", err)
	}
	defer pool.Close()

	if _, err := db.ApplyMigrations(ctx, pool); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	repo := NewRepository(pool)
	svc := NewService(pool, repo, nil)

	p, err := svc.Create(ctx, Params{Title: "Integration Villa", Price: decimal.RequireFromString("100.00")})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	t.Cleanup(func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel2()
		_, _ = pool.Exec(ctx2, `DELETE FROM properties WHERE id = $1`, p.ID)
	})

	token := uuid.NewString()
	res, err := svc.MarkSold(ctx, MarkSoldParams{PropertyID: p.ID, SoldPrice: decimal.RequireFromString("120.50"), Token: token})
	if err != nil {
		t.Fatalf("mark sold: %v", err)
	}
	if res.Property.Status != StatusSold || !res.Property.SoldPrice.Equal(decimal.RequireFromString("120.50")) {
		t.Fatalf("unexpected sold property: %+v", res.Property)
	}

	replay, err := svc.MarkSold(ctx, MarkSoldParams{PropertyID: p.ID, SoldPrice: decimal.RequireFromString("1"), Token: token})
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if !replay.Replayed || !replay.Property.SoldPrice.Equal(decimal.RequireFromString("120.50")) {
		t.Fatalf("expected idempotent replay, got %+v", replay)
	}

	for _, name := range []string{"Asha", "Ravi"} {
		if _, err := svc.AddInteraction(ctx, InteractionParams{PropertyID: p.ID, CustomerName: name}); err != nil {
			t.Fatalf("add interaction: %v", err)
		}
	}
	detail, err := svc.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(detail.Interactions) != 2 || detail.Interactions[0].CustomerName != "Ravi" {
		t.Fatalf("expected newest interaction first, got %+v", detail.Interactions)
	}

	if err := svc.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	var orphans int
	if err := pool.QueryRow(ctx, `SELECT COUNT(*) FROM property_interactions WHERE property_id = $1`, p.ID).Scan(&orphans); err != nil {
		t.Fatalf("count interactions: %v", err)
	}
	if orphans != 0 {
		t.Fatalf("expected cascade to remove interactions, found %d", orphans)
	}

	if _, err := svc.AddInteraction(ctx, InteractionParams{PropertyID: p.ID, CustomerName: "late"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for deleted parent, got %v", err)
	}
}
