package property

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the sale state of a listing.
type Status string

const (
	StatusAvailable Status = "Available"
	StatusSold      Status = "Sold"
)

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	return s == StatusAvailable || s == StatusSold
}

// Property mirrors a row of the properties table. SoldPrice is only
// meaningful when Status is StatusSold.
type Property struct {
	ID        int64
	Title     string
	Type      string
	Location  string
	Size      string
	Price     decimal.Decimal
	Owner     string
	Contact   string
	Status    Status
	SoldPrice decimal.Decimal
}

// IsSold reports whether the listing has been sold.
func (p Property) IsSold() bool {
	return p.Status == StatusSold
}

// Interaction is one customer contact logged against a property.
type Interaction struct {
	ID           int64
	PropertyID   int64
	CustomerName string
	Contact      string
	Notes        string
	Date         time.Time
}

// Detail is a property together with its interaction log, newest first.
type Detail struct {
	Property     Property
	Interactions []Interaction
}

// Params carries the listing fields accepted on create.
type Params struct {
	Title    string          `form:"title" validate:"required,max=255"`
	Type     string          `form:"type" validate:"max=100"`
	Location string          `form:"location" validate:"max=255"`
	Size     string          `form:"size" validate:"max=50"`
	Price    decimal.Decimal `form:"price"`
	Owner    string          `form:"owner" validate:"max=255"`
	Contact  string          `form:"contact" validate:"max=100"`
}

// UpdateParams carries every editable column.
type UpdateParams struct {
	Params
	Status    Status          `form:"status" validate:"required,oneof=Available Sold"`
	SoldPrice decimal.Decimal `form:"sold_price"`
}

// MarkSoldParams describes a sale submission. Token is optional; when set,
// a second submission with the same token is acknowledged without
// re-applying the sale or sending another notification.
type MarkSoldParams struct {
	PropertyID int64
	SoldPrice  decimal.Decimal
	Token      string
}

// SaleResult reports the outcome of MarkSold. NotifyErr carries a failed
// notification; the sale itself is already committed when it is set.
type SaleResult struct {
	Property  Property
	SoldOn    time.Time
	Replayed  bool
	NotifyErr error
}

// InteractionParams carries a new customer interaction.
type InteractionParams struct {
	PropertyID   int64
	CustomerName string `form:"customer_name" validate:"required,max=255"`
	Contact      string `form:"contact" validate:"max=50"`
	Notes        string `form:"notes"`
}
