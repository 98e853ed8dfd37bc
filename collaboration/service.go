package collaboration

import (
	"context"
	"strings"
	"time"

	"estatedesk/validate"
)

type Service struct {
	repo Repository
	now  func() time.Time
	loc  *time.Location
}

// NewService wires the collaboration service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now, loc: time.Local}
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

// Today is the current calendar day used for status derivation.
func (s *Service) Today() time.Time {
	return civilDay(s.now().In(s.loc))
}

// List returns collaborations with fresh statuses, then filtered or ordered
// according to view.
func (s *Service) List(ctx context.Context, view View) ([]Row, error) {
	collabs, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	return Apply(Annotate(collabs, s.Today()), view), nil
}

// Get returns a collaboration with status and notes.
func (s *Service) Get(ctx context.Context, id int64) (Detail, error) {
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	interactions, err := s.repo.ListInteractions(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	return Detail{
		Row:          Row{Collaboration: c, Status: DeriveStatus(c.DueDate, s.Today())},
		Interactions: interactions,
	}, nil
}

// Create stores a collaboration with pending = total - paid.
func (s *Service) Create(ctx context.Context, params Params) (Collaboration, error) {
	c, err := build(params)
	if err != nil {
		return Collaboration{}, err
	}
	return s.repo.Create(ctx, c)
}

// Update overwrites a collaboration and recomputes pending.
func (s *Service) Update(ctx context.Context, id int64, params Params) (Collaboration, error) {
	c, err := build(params)
	if err != nil {
		return Collaboration{}, err
	}
	c.ID = id
	return s.repo.Update(ctx, c)
}

// Delete removes a collaboration and its notes.
func (s *Service) Delete(ctx context.Context, id int64) error {
	return s.repo.Delete(ctx, id)
}

// AddInteraction appends a dated note.
func (s *Service) AddInteraction(ctx context.Context, params InteractionParams) (Interaction, error) {
	params.Note = strings.TrimSpace(params.Note)
	if err := validate.Struct(params).OrNil(); err != nil {
		return Interaction{}, err
	}
	return s.repo.CreateInteraction(ctx, Interaction{
		CollaborationID: params.CollaborationID,
		Note:            params.Note,
		Date:            civilDay(params.Date),
	})
}

// DeleteInteraction removes a note belonging to collaborationID.
func (s *Service) DeleteInteraction(ctx context.Context, collaborationID, interactionID int64) error {
	return s.repo.DeleteInteraction(ctx, collaborationID, interactionID)
}

func build(params Params) (Collaboration, error) {
	params.Supplier = strings.TrimSpace(params.Supplier)
	params.Category = strings.TrimSpace(params.Category)
	params.Service = strings.TrimSpace(params.Service)
	params.ContactPerson = strings.TrimSpace(params.ContactPerson)
	params.ContactNumber = strings.TrimSpace(params.ContactNumber)
	params.Email = strings.TrimSpace(params.Email)

	verr := validate.Struct(params)
	verr.Amount("total_amount", params.TotalAmount)
	verr.Amount("paid_amount", params.PaidAmount)
	if err := verr.OrNil(); err != nil {
		return Collaboration{}, err
	}

	return Collaboration{
		Supplier:      params.Supplier,
		Category:      params.Category,
		Service:       params.Service,
		ContactPerson: params.ContactPerson,
		ContactNumber: params.ContactNumber,
		Email:         params.Email,
		StartDate:     civilDay(params.StartDate),
		DueDate:       civilDay(params.DueDate),
		TotalAmount:   params.TotalAmount,
		PaidAmount:    params.PaidAmount,
		PendingAmount: params.TotalAmount.Sub(params.PaidAmount),
	}, nil
}
