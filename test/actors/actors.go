package actors

import (
	"context"
	"fmt"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"estatedesk/collaboration"
	"estatedesk/property"
	"estatedesk/revenue"
	"estatedesk/validate"
)

// Tally counts what the sellers observed so the run can compare it with the
// notifications that actually went out.
type Tally struct {
	Sales    atomic.Int64
	Replays  atomic.Int64
	Notified atomic.Int64
}

// CountingNotifier records every sale notification instead of sending mail.
type CountingNotifier struct {
	Tally *Tally
}

func (n CountingNotifier) PropertySold(context.Context, property.Property, time.Time) error {
	n.Tally.Notified.Add(1)
	return nil
}

func pause(rng *rand.Rand, minMS, spreadMS int) {
	time.Sleep(time.Duration(minMS+rng.Intn(spreadMS)) * time.Millisecond)
}

func stopped(ctx context.Context, stop <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return true
	case <-stop:
		return true
	default:
		return false
	}
}

// checkValidation turns a validation failure on well-formed input into an
// actor error; everything else (dropped connections, deleted rows) is noise
// under chaos.
func checkValidation(op string, err error) error {
	if ve, ok := validate.IsValidation(err); ok {
		return fmt.Errorf("%s rejected valid input: %w", op, ve)
	}
	return nil
}

// Seller marks the shared listings sold at random prices. Half of the
// attempts reuse a submission token tied to the listing so replays race with
// first submissions.
func Seller(ctx context.Context, svc *property.Service, rng *rand.Rand, ids []int64, tokens []string, tally *Tally, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		i := rng.Intn(len(ids))
		params := property.MarkSoldParams{
			PropertyID: ids[i],
			SoldPrice:  decimal.NewFromInt(int64(100 + rng.Intn(900))),
		}
		if rng.Intn(2) == 0 {
			params.Token = tokens[i]
		}

		res, err := svc.MarkSold(ctx, params)
		if err != nil {
			if verr := checkValidation("mark sold", err); verr != nil {
				return verr
			}
		} else if res.Replayed {
			tally.Replays.Add(1)
		} else {
			tally.Sales.Add(1)
		}
		pause(rng, 10, 20)
	}
	return nil
}

// PaymentEditor rewrites the paid amount of a collaboration, sometimes past
// the total so pending goes negative.
func PaymentEditor(ctx context.Context, svc *collaboration.Service, rng *rand.Rand, id int64, base collaboration.Params, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		params := base
		params.PaidAmount = decimal.NewFromInt(int64(rng.Intn(1200)))
		if _, err := svc.Update(ctx, id, params); err != nil {
			if verr := checkValidation("update collaboration", err); verr != nil {
				return verr
			}
		}
		pause(rng, 15, 30)
	}
	return nil
}

// Churner creates throwaway listings and collaborations, attaches notes and
// deletes the parents again so cascades run under load.
func Churner(ctx context.Context, props *property.Service, collabs *collaboration.Service, rng *rand.Rand, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		p, err := props.Create(ctx, property.Params{
			Title: fmt.Sprintf("Churn plot %d", rng.Int63()),
			Price: decimal.NewFromInt(int64(rng.Intn(5000))),
		})
		if err != nil {
			if verr := checkValidation("create property", err); verr != nil {
				return verr
			}
			continue
		}
		for n := rng.Intn(3); n >= 0; n-- {
			_, err := props.AddInteraction(ctx, property.InteractionParams{PropertyID: p.ID, CustomerName: "Walk-in"})
			if verr := checkValidation("add property interaction", err); verr != nil {
				return verr
			}
		}
		_ = props.Delete(ctx, p.ID)

		today := collabs.Today()
		c, err := collabs.Create(ctx, collaboration.Params{
			Supplier:    fmt.Sprintf("Churn supplier %d", rng.Int63()),
			StartDate:   today,
			DueDate:     today.AddDate(0, 0, rng.Intn(60)-30),
			TotalAmount: decimal.NewFromInt(1000),
		})
		if err != nil {
			if verr := checkValidation("create collaboration", err); verr != nil {
				return verr
			}
			continue
		}
		note, err := collabs.AddInteraction(ctx, collaboration.InteractionParams{CollaborationID: c.ID, Note: "called", Date: today})
		if verr := checkValidation("add collaboration interaction", err); verr != nil {
			return verr
		}
		if err == nil && rng.Intn(2) == 0 {
			_ = collabs.DeleteInteraction(ctx, c.ID, note.ID)
		}
		_ = collabs.Delete(ctx, c.ID)

		pause(rng, 20, 40)
	}
	return nil
}

var cent = decimal.New(1, -revenue.Places)

// Reader pulls the dashboard in both views and checks the figures it can
// verify without a consistent snapshot.
func Reader(ctx context.Context, svc *revenue.Service, rng *rand.Rand, stop <-chan struct{}) error {
	for !stopped(ctx, stop) {
		view := revenue.ViewActual
		if rng.Intn(2) == 0 {
			view = revenue.ViewAdjusted
		}
		stats, err := svc.Dashboard(ctx, view)
		if err == nil {
			r := stats.Revenue
			if !r.GrandTotal.Equal(r.Profit) {
				return fmt.Errorf("dashboard profit %s differs from grand total %s", r.Profit, r.GrandTotal)
			}
			if r.GrandTotal.Sub(r.PropertyTotal.Add(r.CollaborationTotal)).Abs().GreaterThan(cent) {
				return fmt.Errorf("dashboard grand total %s is not %s + %s", r.GrandTotal, r.PropertyTotal, r.CollaborationTotal)
			}
		}
		pause(rng, 30, 50)
	}
	return nil
}
