package main

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"estatedesk/validate"
	"estatedesk/web"
)

// postForm parses the request body and returns the submitted fields.
func postForm(r *http.Request) (url.Values, error) {
	if err := r.ParseForm(); err != nil {
		return nil, err
	}
	return r.PostForm, nil
}

func field(vals url.Values, name string) string {
	return strings.TrimSpace(vals.Get(name))
}

// decimalField reads an optional amount; blank means zero.
func decimalField(vals url.Values, name string, verr *validate.Error) decimal.Decimal {
	raw := strings.ReplaceAll(field(vals, name), ",", "")
	if raw == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		verr.Add(name, "must be a number")
		return decimal.Zero
	}
	return d
}

// dateField reads a YYYY-MM-DD value; blank is left for the required check.
func dateField(vals url.Values, name string, verr *validate.Error) time.Time {
	raw := field(vals, name)
	if raw == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.DateOnly, raw)
	if err != nil {
		verr.Add(name, "must be a date (YYYY-MM-DD)")
		return time.Time{}
	}
	return t
}

func formWithErrors(vals url.Values, verr *validate.Error) web.Form {
	f := web.Form{Values: vals}
	if verr != nil {
		f.Errors = verr.Fields
	}
	return f
}

func amount(d decimal.Decimal) string {
	return d.StringFixed(2)
}
