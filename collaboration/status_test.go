package collaboration

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveStatusBoundaries(t *testing.T) {
	today := time.Date(2026, 2, 10, 23, 59, 0, 0, time.UTC)

	cases := []struct {
		name   string
		offset int
		want   Status
	}{
		{"yesterday", -1, StatusExpired},
		{"today", 0, StatusDueSoon},
		{"in ten days", 10, StatusDueSoon},
		{"last day of window", 30, StatusDueSoon},
		{"first day after window", 31, StatusActive},
		{"far future", 365, StatusActive},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			due := time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC).AddDate(0, 0, tc.offset)
			assert.Equal(t, tc.want, DeriveStatus(due, today))
		})
	}
}

func TestDeriveStatusUsesCalendarDayOfToday(t *testing.T) {
	kolkata := time.FixedZone("IST", 5*3600+1800)
	// 20:00 UTC on Mar 1 is already Mar 2 in IST.
	today := time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC).In(kolkata)
	due := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	assert.Equal(t, StatusExpired, DeriveStatus(due, today))
}

func TestParseView(t *testing.T) {
	assert.Equal(t, ViewPending, ParseView("pending"))
	assert.Equal(t, ViewCompleted, ParseView("completed"))
	assert.Equal(t, ViewDueSoon, ParseView("due_soon"))
	assert.Equal(t, ViewDueAsc, ParseView("due_asc"))
	assert.Equal(t, ViewDueDesc, ParseView("due_desc"))
	assert.Equal(t, ViewAll, ParseView("DROP TABLE"))
	assert.Equal(t, ViewAll, ParseView(""))
}

func sampleRows(today time.Time) []Row {
	mk := func(id int64, dueOffset int, total, paid int64) Collaboration {
		return Collaboration{
			ID:            id,
			DueDate:       today.AddDate(0, 0, dueOffset),
			TotalAmount:   decimal.NewFromInt(total),
			PaidAmount:    decimal.NewFromInt(paid),
			PendingAmount: decimal.NewFromInt(total - paid),
		}
	}
	return Annotate([]Collaboration{
		mk(1, 40, 1000, 400),
		mk(2, -3, 500, 500),
		mk(3, 10, 200, 0),
		mk(4, 10, 300, 300),
		mk(5, 30, 0, 0),
	}, today)
}

func ids(rows []Row) []int64 {
	out := make([]int64, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.ID)
	}
	return out
}

func TestApplyCompletedAndPendingPartition(t *testing.T) {
	today := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := sampleRows(today)

	completed := Apply(rows, ViewCompleted)
	pending := Apply(rows, ViewPending)

	assert.Equal(t, []int64{2, 4, 5}, ids(completed))
	assert.Equal(t, []int64{1, 3}, ids(pending))
	for _, r := range completed {
		assert.True(t, r.PendingAmount.IsZero())
	}
	for _, r := range pending {
		assert.False(t, r.PendingAmount.IsZero())
	}
	assert.Len(t, rows, len(completed)+len(pending))
}

func TestApplyDueSoonUsesAssignedStatus(t *testing.T) {
	today := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := sampleRows(today)

	assert.Equal(t, []int64{3, 4, 5}, ids(Apply(rows, ViewDueSoon)))
}

func TestApplySortIsStableAndNonDestructive(t *testing.T) {
	today := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := sampleRows(today)

	asc := Apply(rows, ViewDueAsc)
	assert.Equal(t, []int64{2, 3, 4, 5, 1}, ids(asc))

	desc := Apply(rows, ViewDueDesc)
	assert.Equal(t, []int64{1, 5, 3, 4, 2}, ids(desc))

	require.Equal(t, []int64{1, 2, 3, 4, 5}, ids(rows))
	assert.Equal(t, ids(rows), ids(Apply(rows, ViewAll)))
}

func TestScenarioDueSoonWithPending(t *testing.T) {
	today := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	c, err := build(Params{
		Supplier:    "Acme Interiors",
		StartDate:   today,
		DueDate:     today.AddDate(0, 0, 10),
		TotalAmount: decimal.NewFromInt(1000),
		PaidAmount:  decimal.NewFromInt(400),
	})
	require.NoError(t, err)

	assert.True(t, c.PendingAmount.Equal(decimal.NewFromInt(600)))
	assert.Equal(t, StatusDueSoon, DeriveStatus(c.DueDate, today))
	assert.True(t, c.Margin().Equal(decimal.NewFromInt(-200)))
}
