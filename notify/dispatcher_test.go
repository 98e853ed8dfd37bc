package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"estatedesk/property"
)

type fakeMailer struct {
	sent []Message
	err  error
}

func (f *fakeMailer) Send(_ context.Context, msg Message) error {
	f.sent = append(f.sent, msg)
	return f.err
}

func TestPropertySoldRendersEveryField(t *testing.T) {
	mailer := &fakeMailer{}
	d := NewDispatcher(mailer, []string{"owner@example.com"})

	p := property.Property{
		ID:        1,
		Title:     "Sea View <Villa>",
		Type:      "Villa",
		Location:  "Goa",
		Size:      "2400 sqft",
		Owner:     "Meera",
		Status:    property.StatusSold,
		SoldPrice: decimal.NewFromInt(120),
	}
	soldOn := time.Date(2026, 3, 14, 18, 0, 0, 0, time.UTC)

	if err := d.PropertySold(context.Background(), p, soldOn); err != nil {
		t.Fatalf("PropertySold: %v", err)
	}
	if len(mailer.sent) != 1 {
		t.Fatalf("expected one message, got %d", len(mailer.sent))
	}

	msg := mailer.sent[0]
	if msg.Subject != SoldSubject {
		t.Errorf("unexpected subject %q", msg.Subject)
	}
	if len(msg.To) != 1 || msg.To[0] != "owner@example.com" {
		t.Errorf("unexpected recipients %v", msg.To)
	}
	for _, want := range []string{"Sea View &lt;Villa&gt;", "Villa", "Goa", "2400 sqft", "Meera", "120.00", "2026-03-14"} {
		if !strings.Contains(msg.HTML, want) {
			t.Errorf("message should contain %q:\n%s", want, msg.HTML)
		}
	}
}

func TestPropertySoldPropagatesFailures(t *testing.T) {
	boom := errors.New("smtp down")
	d := NewDispatcher(&fakeMailer{err: boom}, []string{"a@example.com"})
	if err := d.PropertySold(context.Background(), property.Property{}, time.Now()); !errors.Is(err, boom) {
		t.Fatalf("expected mailer error, got %v", err)
	}

	d = NewDispatcher(&fakeMailer{}, nil)
	if err := d.PropertySold(context.Background(), property.Property{}, time.Now()); err == nil {
		t.Fatal("expected error without recipients")
	}
}
