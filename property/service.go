package property

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"estatedesk/db"
	"estatedesk/logging"
	"estatedesk/validate"
)

// ErrInvalidSaleToken signals a sale token that is not a UUID.
var ErrInvalidSaleToken = errors.New("property: invalid sale token")

// Notifier is told about every sale that MarkSold applies.
type Notifier interface {
	PropertySold(ctx context.Context, p Property, soldOn time.Time) error
}

// NotifyTimeout bounds how long MarkSold waits on the notifier.
const NotifyTimeout = 15 * time.Second

type Service struct {
	pool     db.TxBeginner
	repo     Repository
	notifier Notifier
	now      func() time.Time
	loc      *time.Location
}

// NewService wires the property service. notifier may be nil.
func NewService(pool db.TxBeginner, repo Repository, notifier Notifier) *Service {
	return &Service{
		pool:     pool,
		repo:     repo,
		notifier: notifier,
		now:      time.Now,
		loc:      time.Local,
	}
}

// WithClock sets the time source and the location that defines "today".
func (s *Service) WithClock(now func() time.Time, loc *time.Location) *Service {
	if now != nil {
		s.now = now
	}
	if loc != nil {
		s.loc = loc
	}
	return s
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

// List returns every property ordered by id.
func (s *Service) List(ctx context.Context) ([]Property, error) {
	return s.repo.List(ctx)
}

// Get returns a property with its interactions.
func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	p, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	interactions, err := s.repo.ListInteractions(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{Property: p, Interactions: interactions}, nil
}

// Create stores a new Available listing.
func (s *Service) Create(ctx context.Context, params Params) (Property, error) {
	params = params.trimmed()
	verr := validate.Struct(params)
	verr.Amount("price", params.Price)
	if err := verr.OrNil(); err != nil {
		return Property{}, err
	}

	return s.repo.Create(ctx, Property{
		Title:     params.Title,
		Type:      params.Type,
		Location:  params.Location,
		Size:      params.Size,
		Price:     params.Price,
		Owner:     params.Owner,
		Contact:   params.Contact,
		Status:    StatusAvailable,
		SoldPrice: decimal.Zero,
	})
}

// Update overwrites every editable column. An Available listing keeps a
// zero sold price.
func (s *Service) Update(ctx context.Context, id int64, params UpdateParams) (Property, error) {
	params.Params = params.Params.trimmed()
	verr := validate.Struct(params)
	verr.Amount("price", params.Price)
	verr.Amount("sold_price", params.SoldPrice)
	if err := verr.OrNil(); err != nil {
		return Property{}, err
	}

	soldPrice := params.SoldPrice
	if params.Status == StatusAvailable {
		soldPrice = decimal.Zero
	}

	return s.repo.Update(ctx, Property{
		ID:        id,
		Title:     params.Title,
		Type:      params.Type,
		Location:  params.Location,
		Size:      params.Size,
		Price:     params.Price,
		Owner:     params.Owner,
		Contact:   params.Contact,
		Status:    params.Status,
		SoldPrice: soldPrice,
	})
}

// Delete removes a property and its interactions.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// MarkSold records the sale and then sends one notification. Without a
// token the update is a single auto-committed statement, so two concurrent
// submissions both apply and the later price wins. With a token the sale is
// applied at most once per token.
func (s *Service) MarkSold(ctx context.Context, params MarkSoldParams) (SaleResult, error) {
	verr := &validate.Error{}
	verr.Amount("sold_price", params.SoldPrice)
	if err := verr.OrNil(); err != nil {
		return SaleResult{}, err
	}

	var (
		p        Property
		replayed bool
		err      error
	)
	if params.Token == "" {
		p, err = s.repo.MarkSold(ctx, nil, params.PropertyID, params.SoldPrice)
	} else {
		p, replayed, err = s.markSoldOnce(ctx, params)
	}
	if err != nil {
		return SaleResult{}, err
	}

	res := SaleResult{Property: p, SoldOn: s.today(), Replayed: replayed}
	if replayed || s.notifier == nil {
		return res, nil
	}

	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), NotifyTimeout)
	defer cancel()
	if err := s.notifier.PropertySold(notifyCtx, p, res.SoldOn); err != nil {
		logging.Logger.WithError(err).WithField("property_id", p.ID).Error("sold notification failed")
		res.NotifyErr = err
	}
	return res, nil
}

func (s *Service) markSoldOnce(ctx context.Context, params MarkSoldParams) (Property, bool, error) {
	if _, err := uuid.Parse(params.Token); err != nil {
		return Property{}, false, ErrInvalidSaleToken
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return Property{}, false, fmt.Errorf("property: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.repo.InsertSaleToken(ctx, tx, params.Token, params.PropertyID, params.SoldPrice); err != nil {
		if errors.Is(err, ErrDuplicateSaleToken) {
			p, err := s.repo.Get(ctx, params.PropertyID)
			return p, true, err
		}
		return Property{}, false, err
	}

	p, err := s.repo.MarkSold(ctx, tx, params.PropertyID, params.SoldPrice)
	if err != nil {
		return Property{}, false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return Property{}, false, fmt.Errorf("property: commit tx: %w", err)
	}
	return p, false, nil
}

// AddInteraction logs a customer interaction dated today.
func (s *Service) AddInteraction(ctx context.Context, params InteractionParams) (Interaction, error) {
	params.CustomerName = strings.TrimSpace(params.CustomerName)
	params.Contact = strings.TrimSpace(params.Contact)
	params.Notes = strings.TrimSpace(params.Notes)
	if err := validate.Struct(params).OrNil(); err != nil {
		return Interaction{}, err
	}

	return s.repo.CreateInteraction(ctx, Interaction{
		PropertyID:   params.PropertyID,
		CustomerName: params.CustomerName,
		Contact:      params.Contact,
		Notes:        params.Notes,
		Date:         s.today(),
	})
}

func (p Params) trimmed() Params {
	p.Title = strings.TrimSpace(p.Title)
	p.Type = strings.TrimSpace(p.Type)
	p.Location = strings.TrimSpace(p.Location)
	p.Size = strings.TrimSpace(p.Size)
	p.Owner = strings.TrimSpace(p.Owner)
	p.Contact = strings.TrimSpace(p.Contact)
	return p
}
