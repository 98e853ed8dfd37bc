package collaboration

import (
	"time"

	"github.com/shopspring/decimal"
)

// Collaboration mirrors a row of the collaborations table. PendingAmount is
// rewritten from TotalAmount and PaidAmount on every write.
type Collaboration struct {
	ID            int64
	Supplier      string
	Category      string
	Service       string
	ContactPerson string
	ContactNumber string
	Email         string
	StartDate     time.Time
	DueDate       time.Time
	TotalAmount   decimal.Decimal
	PaidAmount    decimal.Decimal
	PendingAmount decimal.Decimal
}

// IsSettled reports whether nothing is left to pay.
func (c Collaboration) IsSettled() bool {
	return c.PendingAmount.IsZero()
}

// Margin is paid minus pending, shown next to the edit form.
func (c Collaboration) Margin() decimal.Decimal {
	return c.PaidAmount.Sub(c.PendingAmount)
}

// Interaction is a dated note on a collaboration.
type Interaction struct {
	ID              int64
	CollaborationID int64
	Note            string
	Date            time.Time
}

// Row is a collaboration with its status as of a given day.
type Row struct {
	Collaboration
	Status Status
}

// Detail is a collaboration, its current status and its notes, newest first.
type Detail struct {
	Row
	Interactions []Interaction
}

// Params carries the editable collaboration fields. PendingAmount is never
// accepted from callers.
type Params struct {
	Supplier      string          `form:"supplier" validate:"required,max=255"`
	Category      string          `form:"category" validate:"max=100"`
	Service       string          `form:"service" validate:"max=255"`
	ContactPerson string          `form:"contact_person" validate:"max=255"`
	ContactNumber string          `form:"contact_number" validate:"max=50"`
	Email         string          `form:"email" validate:"omitempty,email,max=255"`
	StartDate     time.Time       `form:"start_date" validate:"required"`
	DueDate       time.Time       `form:"due_date" validate:"required"`
	TotalAmount   decimal.Decimal `form:"total_amount"`
	PaidAmount    decimal.Decimal `form:"paid_amount"`
}

// InteractionParams carries a new note.
type InteractionParams struct {
	CollaborationID int64
	Note            string    `form:"notes" validate:"required"`
	Date            time.Time `form:"interaction_date" validate:"required"`
}
