// Package web renders the server-side pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/csrf"
	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"

	"estatedesk/session"
)

//go:embed templates/*.html
var templatesFS embed.FS

const layoutFile = "layout.html"

// Page is the data every template receives.
type Page struct {
	Title     string
	User      session.Session
	LoggedIn  bool
	CSRFField template.HTML
	Notice    string
	Error     string
	Form      Form
	Data      any
}

// Form carries submitted values and per-field problems for re-rendering.
type Form struct {
	Values url.Values
	Errors map[string]string
}

// Get returns the submitted value for field.
func (f Form) Get(field string) string {
	return f.Values.Get(field)
}

// Err returns the problem recorded for field.
func (f Form) Err(field string) string {
	return f.Errors[field]
}

// Renderer holds one parsed template set per page.
type Renderer struct {
	pages map[string]*template.Template
}

// NewRenderer parses every embedded page against the layout.
func NewRenderer() (*Renderer, error) {
	entries, err := fs.ReadDir(templatesFS, "templates")
	if err != nil {
		return nil, fmt.Errorf("web: read templates: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || name == layoutFile {
			continue
		}
		tpl, err := template.New(layoutFile).Funcs(funcs).ParseFS(templatesFS, "templates/"+layoutFile, "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", name, err)
		}
		r.pages[strings.TrimSuffix(name, ".html")] = tpl
	}
	return r, nil
}

// Render writes page name with status. The request supplies the CSRF field
// and the signed-in user.
func (rd *Renderer) Render(w http.ResponseWriter, r *http.Request, status int, name string, p Page) error {
	tpl, ok := rd.pages[name]
	if !ok {
		return fmt.Errorf("web: unknown page %q", name)
	}

	p.CSRFField = csrf.TemplateField(r)
	if sess, ok := session.PrincipalFrom(r.Context()); ok {
		p.User = sess
		p.LoggedIn = true
	}

	var buf bytes.Buffer
	if err := tpl.ExecuteTemplate(&buf, layoutFile, p); err != nil {
		return fmt.Errorf("web: render %s: %w", name, err)
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err := buf.WriteTo(w)
	return err
}

var funcs = template.FuncMap{
	"money":     Money,
	"date":      Date,
	"saleToken": uuid.NewString,
	"statusClass": func(s any) string {
		return strings.ToLower(strings.ReplaceAll(fmt.Sprint(s), " ", "-"))
	},
}

var moneyPrinter = message.NewPrinter(language.MustParse("en-IN"))

// Money formats an amount in rupees with two decimals and Indian digit
// grouping (12,34,567.50).
func Money(d decimal.Decimal) string {
	d = d.Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	_, frac, _ := strings.Cut(d.StringFixed(2), ".")
	whole := moneyPrinter.Sprint(number.Decimal(d.IntPart()))
	return "₹ " + sign + whole + "." + frac
}

// Date formats t as YYYY-MM-DD; the zero time renders empty.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.DateOnly)
}
