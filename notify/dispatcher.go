package notify

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"time"

	"estatedesk/property"
)

// SoldSubject is the subject line of every sale notification.
const SoldSubject = "Property Sold Notification"

var soldTemplate = template.Must(template.New("sold").Parse(soldEmailTemplate))

// Dispatcher turns domain events into emails.
type Dispatcher struct {
	mailer     Mailer
	recipients []string
}

// NewDispatcher sends through mailer to recipients.
func NewDispatcher(mailer Mailer, recipients []string) *Dispatcher {
	return &Dispatcher{mailer: mailer, recipients: recipients}
}

type soldData struct {
	Title     string
	Type      string
	Location  string
	Size      string
	Owner     string
	SoldPrice string
	SoldOn    string
}

// PropertySold emails the sale of p on soldOn.
func (d *Dispatcher) PropertySold(ctx context.Context, p property.Property, soldOn time.Time) error {
	if len(d.recipients) == 0 {
		return fmt.Errorf("notify: no recipients configured")
	}

	html, err := renderSold(p, soldOn)
	if err != nil {
		return err
	}
	return d.mailer.Send(ctx, Message{To: d.recipients, Subject: SoldSubject, HTML: html})
}

func renderSold(p property.Property, soldOn time.Time) (string, error) {
	data := soldData{
		Title:     p.Title,
		Type:      p.Type,
		Location:  p.Location,
		Size:      p.Size,
		Owner:     p.Owner,
		SoldPrice: p.SoldPrice.StringFixed(2),
		SoldOn:    soldOn.Format(time.DateOnly),
	}

	var buf bytes.Buffer
	if err := soldTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("notify: render sold template: %w", err)
	}
	return buf.String(), nil
}

const soldEmailTemplate = `<h2>Property Sold!</h2>
<p><b>Title:</b> {{.Title}}</p>
<p><b>Type:</b> {{.Type}}</p>
<p><b>Location:</b> {{.Location}}</p>
<p><b>Size:</b> {{.Size}}</p>
<p><b>Owner:</b> {{.Owner}}</p>
<p><b>Sold Price:</b> ₹ {{.SoldPrice}}</p>
<p><b>Date of Sale:</b> {{.SoldOn}}</p>
`
