package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"estatedesk/collaboration"
	"estatedesk/property"
	"estatedesk/revenue"
	"estatedesk/test/actors"
	"estatedesk/test/chaos"
	"estatedesk/test/infra"
	"estatedesk/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 30*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 6, "number of concurrent sellers and payment editors")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
	flListings    = flag.Int("listings", 4, "number of listings the sellers fight over")
)

func TestLedgerConcurrency(t *testing.T) {
	if testing.Short() {
		t.Skip("stress run skipped in -short mode")
	}
	seed := *flSeed

	var (
		pgC        *infra.PGContainer
		dsn        string
		err        error
		usedShared bool
	)
	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	switch {
	case *flDSN != "":
		dsn = *flDSN
		usedShared = true
		pgC = &infra.PGContainer{}
	case os.Getenv("STRESS_TEST_PG_DSN") != "":
		dsn = os.Getenv("STRESS_TEST_PG_DSN")
		usedShared = true
		pgC = &infra.PGContainer{}
	case dockerAvailable(ctx):
		pgC, dsn, err = infra.StartPostgres16(ctx, "")
		if err != nil {
			t.Fatalf("start postgres: %v", err)
		}
	case infra.LocalPostgresAvailable():
		dsn, err = infra.InitLocalDatabase(ctx, "estatedesk_stress")
		if err != nil {
			t.Fatalf("init local database: %v", err)
		}
		pgC = &infra.PGContainer{}
	default:
		t.Skip("no postgres available: set -dsn or STRESS_TEST_PG_DSN, or run docker")
	}
	defer pgC.Terminate(context.Background())

	pool, teardown, err := infra.ApplyMigrations(ctx, dsn, usedShared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()
	if err := infra.Reset(ctx, pool); err != nil {
		t.Fatalf("reset: %v", err)
	}

	tally := &actors.Tally{}
	props := property.NewService(pool, property.NewRepository(pool), actors.CountingNotifier{Tally: tally})
	collabs := collaboration.NewService(collaboration.NewRepository(pool))
	rev := revenue.NewService(revenue.NewSource(pool))

	seedData := mustSeed(t, ctx, props, collabs, *flListings, *flConcurrency)

	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})
	rngFor := func(i int) *rand.Rand { return rand.New(rand.NewSource(seed + int64(i))) }

	for i := 0; i < *flConcurrency; i++ {
		sellerRNG, editorRNG := rngFor(2*i), rngFor(2*i+1)
		collab := seedData.collaborations[i]
		g.Go(func() error {
			return actors.Seller(ctx2, props, sellerRNG, seedData.listings, seedData.tokens, tally, stop)
		})
		g.Go(func() error {
			return actors.PaymentEditor(ctx2, collabs, editorRNG, collab.ID, seedData.collabParams, stop)
		})
	}
	churnRNG, readRNG, chaosRNG := rngFor(-1), rngFor(-2), rngFor(-3)
	g.Go(func() error { return actors.Churner(ctx2, props, collabs, churnRNG, stop) })
	g.Go(func() error { return actors.Reader(ctx2, rev, readRNG, stop) })
	go chaos.TerminateRandomBackend(ctx2, pool, chaosRNG, stop)

	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx2.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				// chaos may kill the oracle's own backend
				t.Logf("oracle %s skipped: %v", name, err)
				continue
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx, pool)
				t.Errorf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
				break loop
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v (seed=%d)", err, seed)
		}
	}
	if failed {
		return
	}

	if name, row, err := oracles.Run(context.Background(), pool); err != nil {
		t.Fatalf("final oracle pass: %v", err)
	} else if name != "" {
		t.Fatalf("Oracle %s failed after run. First row: %s (seed=%d)", name, row, seed)
	}

	sales, notified := tally.Sales.Load(), tally.Notified.Load()
	if sales != notified {
		t.Fatalf("expected one notification per accepted sale: %d sales, %d notifications", sales, notified)
	}
	t.Logf("sales=%d replays=%d notifications=%d seed=%d", sales, tally.Replays.Load(), notified, seed)
}

func dockerAvailable(ctx context.Context) bool {
	if _, err := exec.LookPath("docker"); err != nil {
		return false
	}
	c := exec.CommandContext(ctx, "docker", "info")
	c.Stdout = io.Discard
	c.Stderr = io.Discard
	return c.Run() == nil
}

type seedIDs struct {
	listings       []int64
	tokens         []string
	collaborations []collaboration.Collaboration
	collabParams   collaboration.Params
}

func mustSeed(t *testing.T, ctx context.Context, props *property.Service, collabs *collaboration.Service, listings, editors int) seedIDs {
	t.Helper()
	var s seedIDs

	for i := 0; i < listings; i++ {
		p, err := props.Create(ctx, property.Params{
			Title:    fmt.Sprintf("Stress villa %d", i),
			Type:     "Villa",
			Location: "Goa",
			Price:    decimal.NewFromInt(1000),
		})
		if err != nil {
			t.Fatalf("seed property: %v", err)
		}
		s.listings = append(s.listings, p.ID)
		s.tokens = append(s.tokens, uuid.NewString())
	}

	today := collabs.Today()
	s.collabParams = collaboration.Params{
		Supplier:    "Stress supplier",
		StartDate:   today,
		DueDate:     today.AddDate(0, 0, 10),
		TotalAmount: decimal.NewFromInt(1000),
	}
	for i := 0; i < editors; i++ {
		c, err := collabs.Create(ctx, s.collabParams)
		if err != nil {
			t.Fatalf("seed collaboration: %v", err)
		}
		s.collaborations = append(s.collaborations, c)
	}
	return s
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"properties", `SELECT id, status, price, sold_price FROM properties ORDER BY id DESC LIMIT 50`},
		{"sale_requests", `SELECT token, property_id, sold_price, created_at FROM sale_requests ORDER BY created_at DESC LIMIT 50`},
		{"collaborations", `SELECT id, total_amount, paid_amount, pending_amount FROM collaborations ORDER BY id DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", cols[i].Name, vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
