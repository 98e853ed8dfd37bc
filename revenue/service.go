package revenue

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"estatedesk/db"
)

// Source reads the aggregates the reports are built from.
type Source interface {
	SoldPropertyRevenue(ctx context.Context) (decimal.Decimal, error)
	CollaborationRevenue(ctx context.Context) (decimal.Decimal, error)
	CountProperties(ctx context.Context, soldOnly bool) (int, error)
	CountCollaborations(ctx context.Context, settledOnly bool) (int, error)
}

// Stats backs the dashboard.
type Stats struct {
	TotalProperties         int
	SoldProperties          int
	TotalCollaborations     int
	CompletedCollaborations int
	Revenue                 Report
}

type Service struct {
	src Source
}

// NewService builds a Service reading from src.
func NewService(src Source) *Service {
	return &Service{src: src}
}

// Totals reads both raw sums concurrently.
func (s *Service) Totals(ctx context.Context) (Totals, error) {
	var t Totals
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := s.src.SoldPropertyRevenue(gctx)
		t.Property = v
		return err
	})
	g.Go(func() error {
		v, err := s.src.CollaborationRevenue(gctx)
		t.Collaboration = v
		return err
	})
	if err := g.Wait(); err != nil {
		return Totals{}, err
	}
	return t, nil
}

// Report builds the revenue report for view.
func (s *Service) Report(ctx context.Context, view View) (Report, error) {
	t, err := s.Totals(ctx)
	if err != nil {
		return Report{}, err
	}
	return Compute(t, view), nil
}

// Dashboard gathers listing counts and the revenue report for view.
func (s *Service) Dashboard(ctx context.Context, view View) (Stats, error) {
	var (
		st     Stats
		totals Totals
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		st.TotalProperties, err = s.src.CountProperties(gctx, false)
		return err
	})
	g.Go(func() (err error) {
		st.SoldProperties, err = s.src.CountProperties(gctx, true)
		return err
	})
	g.Go(func() (err error) {
		st.TotalCollaborations, err = s.src.CountCollaborations(gctx, false)
		return err
	})
	g.Go(func() (err error) {
		st.CompletedCollaborations, err = s.src.CountCollaborations(gctx, true)
		return err
	})
	g.Go(func() (err error) {
		totals, err = s.Totals(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return Stats{}, err
	}
	st.Revenue = Compute(totals, view)
	return st, nil
}

// PGSource implements Source with aggregate queries.
type PGSource struct {
	db db.DBTX
}

// NewSource creates a PostgreSQL-backed Source.
func NewSource(conn db.DBTX) *PGSource {
	return &PGSource{db: conn}
}

// SoldPropertyRevenue sums sold_price over sold properties.
func (s *PGSource) SoldPropertyRevenue(ctx context.Context) (decimal.Decimal, error) {
	var v decimal.Decimal
	if err := s.db.QueryRow(ctx, `SELECT COALESCE(SUM(sold_price), 0) FROM properties WHERE status = 'Sold'`).Scan(&v); err != nil {
		return decimal.Zero, fmt.Errorf("revenue: sum sold properties: %w", err)
	}
	return v, nil
}

// CollaborationRevenue sums paid_amount over every collaboration.
func (s *PGSource) CollaborationRevenue(ctx context.Context) (decimal.Decimal, error) {
	var v decimal.Decimal
	if err := s.db.QueryRow(ctx, `SELECT COALESCE(SUM(paid_amount), 0) FROM collaborations`).Scan(&v); err != nil {
		return decimal.Zero, fmt.Errorf("revenue: sum collaboration payments: %w", err)
	}
	return v, nil
}

// CountProperties counts properties, optionally only sold ones.
func (s *PGSource) CountProperties(ctx context.Context, soldOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM properties`
	if soldOnly {
		query += ` WHERE status = 'Sold'`
	}
	var n int
	if err := s.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("revenue: count properties: %w", err)
	}
	return n, nil
}

// CountCollaborations counts collaborations, optionally only settled ones.
func (s *PGSource) CountCollaborations(ctx context.Context, settledOnly bool) (int, error) {
	query := `SELECT COUNT(*) FROM collaborations`
	if settledOnly {
		query += ` WHERE pending_amount = 0`
	}
	var n int
	if err := s.db.QueryRow(ctx, query).Scan(&n); err != nil {
		return 0, fmt.Errorf("revenue: count collaborations: %w", err)
	}
	return n, nil
}
