// Package revenue aggregates sold-property and collaboration income into
// the actual and adjusted reports.
package revenue

import (
	"github.com/shopspring/decimal"

	"estatedesk/auth"
	"estatedesk/collaboration"
	"estatedesk/property"
)

// AdjustmentRate is the share of revenue shown in the adjusted view.
var AdjustmentRate = decimal.RequireFromString("0.9")

// Places is the number of decimals every reported figure is rounded to.
const Places = 2

// View selects which figures a report presents.
type View string

const (
	ViewActual   View = "actual"
	ViewAdjusted View = "adjusted"
)

// ViewForRole returns the report view a role is allowed to see.
func ViewForRole(role auth.Role) View {
	if role == auth.RoleSuperAdmin {
		return ViewActual
	}
	return ViewAdjusted
}

// Totals are the raw revenue sums before any adjustment.
type Totals struct {
	Property      decimal.Decimal
	Collaboration decimal.Decimal
}

// Report is the presented revenue breakdown. Profit equals GrandTotal; no
// cost model exists yet.
type Report struct {
	View               View
	PropertyTotal      decimal.Decimal
	CollaborationTotal decimal.Decimal
	GrandTotal         decimal.Decimal
	Profit             decimal.Decimal
}

// Sum adds sold prices of sold properties and paid amounts of every
// collaboration.
func Sum(props []property.Property, collabs []collaboration.Collaboration) Totals {
	t := Totals{Property: decimal.Zero, Collaboration: decimal.Zero}
	for _, p := range props {
		if p.IsSold() {
			t.Property = t.Property.Add(p.SoldPrice)
		}
	}
	for _, c := range collabs {
		t.Collaboration = t.Collaboration.Add(c.PaidAmount)
	}
	return t
}

// Compute scales t for view and rounds every figure.
func Compute(t Totals, view View) Report {
	factor := decimal.NewFromInt(1)
	if view == ViewAdjusted {
		factor = AdjustmentRate
	}

	prop := t.Property.Mul(factor)
	collab := t.Collaboration.Mul(factor)
	grand := prop.Add(collab)

	return Report{
		View:               view,
		PropertyTotal:      prop.Round(Places),
		CollaborationTotal: collab.Round(Places),
		GrandTotal:         grand.Round(Places),
		Profit:             grand.Round(Places),
	}
}
