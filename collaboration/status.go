package collaboration

import (
	"sort"
	"time"
)

// Status is the lifecycle stage derived from a due date.
type Status string

const (
	StatusActive  Status = "Active"
	StatusDueSoon Status = "Due Soon"
	StatusExpired Status = "Expired"
)

// DueSoonDays is the inclusive look-ahead window for StatusDueSoon.
const DueSoonDays = 30

// DeriveStatus compares calendar days only: due before today is Expired,
// due within [today, today+30] is Due Soon, anything later is Active.
func DeriveStatus(due, today time.Time) Status {
	d := civilDay(due)
	t := civilDay(today)
	switch {
	case d.Before(t):
		return StatusExpired
	case !d.After(t.AddDate(0, 0, DueSoonDays)):
		return StatusDueSoon
	default:
		return StatusActive
	}
}

// civilDay keeps the calendar date of t in its own location.
func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Annotate pairs every collaboration with its status as of today.
func Annotate(collabs []Collaboration, today time.Time) []Row {
	rows := make([]Row, 0, len(collabs))
	for _, c := range collabs {
		rows = append(rows, Row{Collaboration: c, Status: DeriveStatus(c.DueDate, today)})
	}
	return rows
}

// View is the list filter or ordering selected by the ?filter= parameter.
type View string

const (
	ViewAll       View = ""
	ViewPending   View = "pending"
	ViewCompleted View = "completed"
	ViewDueSoon   View = "due_soon"
	ViewDueAsc    View = "due_asc"
	ViewDueDesc   View = "due_desc"
)

// ParseView maps a query value to a View. Unknown values show everything.
func ParseView(raw string) View {
	switch v := View(raw); v {
	case ViewPending, ViewCompleted, ViewDueSoon, ViewDueAsc, ViewDueDesc:
		return v
	default:
		return ViewAll
	}
}

// Apply filters or orders rows that already carry their status. The input
// slice is not modified.
func Apply(rows []Row, view View) []Row {
	switch view {
	case ViewPending:
		return filter(rows, func(r Row) bool { return !r.PendingAmount.IsZero() })
	case ViewCompleted:
		return filter(rows, func(r Row) bool { return r.PendingAmount.IsZero() })
	case ViewDueSoon:
		return filter(rows, func(r Row) bool { return r.Status == StatusDueSoon })
	case ViewDueAsc, ViewDueDesc:
		out := append([]Row(nil), rows...)
		desc := view == ViewDueDesc
		sort.SliceStable(out, func(i, j int) bool {
			if desc {
				return out[i].DueDate.After(out[j].DueDate)
			}
			return out[i].DueDate.Before(out[j].DueDate)
		})
		return out
	default:
		return append([]Row(nil), rows...)
	}
}

func filter(rows []Row, keep func(Row) bool) []Row {
	out := make([]Row, 0, len(rows))
	for _, r := range rows {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}
