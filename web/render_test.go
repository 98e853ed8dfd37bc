package web

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"estatedesk/auth"
	"estatedesk/collaboration"
	"estatedesk/property"
	"estatedesk/revenue"
	"estatedesk/session"
)

func TestMoney(t *testing.T) {
	assert.Equal(t, "₹ 0.00", Money(decimal.Zero))
	assert.Equal(t, "₹ 120.00", Money(decimal.NewFromInt(120)))
	assert.Equal(t, "₹ 12,34,567.50", Money(decimal.RequireFromString("1234567.5")))
	assert.Equal(t, "₹ 1,00,00,000.00", Money(decimal.NewFromInt(10000000)))
	assert.Equal(t, "₹ 99,999.99", Money(decimal.RequireFromString("99999.99")))
	assert.Equal(t, "₹ -1,000.00", Money(decimal.NewFromInt(-1000)))
	assert.Equal(t, "₹ -0.50", Money(decimal.RequireFromString("-0.5")))
}

func TestDate(t *testing.T) {
	assert.Equal(t, "", Date(time.Time{}))
	assert.Equal(t, "2026-03-14", Date(time.Date(2026, 3, 14, 23, 0, 0, 0, time.UTC)))
}

func TestRendererParsesEveryPage(t *testing.T) {
	rd, err := NewRenderer()
	require.NoError(t, err)

	for _, name := range []string{
		"login", "dashboard", "properties", "property_detail", "property_form",
		"collaborations", "collaboration_detail", "collaboration_form", "revenue", "error",
	} {
		_, ok := rd.pages[name]
		assert.True(t, ok, "missing page %s", name)
	}
}

func authedRequest(role auth.Role) *http.Request {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	ctx := session.WithPrincipal(context.Background(), session.Session{Username: "tanvi", Role: role})
	return r.WithContext(ctx)
}

func TestRenderPropertiesShowsSaleForm(t *testing.T) {
	rd, err := NewRenderer()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	props := []property.Property{
		{ID: 1, Title: "Sea View", Price: decimal.NewFromInt(100), Status: property.StatusAvailable},
		{ID: 2, Title: "Old Mill", Price: decimal.NewFromInt(90), Status: property.StatusSold, SoldPrice: decimal.NewFromInt(95)},
	}
	err = rd.Render(w, authedRequest(auth.RoleAdmin), http.StatusOK, "properties", Page{Title: "Properties", Notice: "sold!", Data: props})
	require.NoError(t, err)

	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, body, "Sea View")
	assert.Contains(t, body, "sold!")
	assert.Contains(t, body, `action="/properties/1/sold"`)
	assert.NotContains(t, body, `action="/properties/2/sold"`)
	assert.Contains(t, body, "₹ 95.00")
	assert.Contains(t, body, "/revenue/adjusted")
	assert.Contains(t, body, "tanvi (admin)")
}

func TestRenderCollaborationsAndRevenue(t *testing.T) {
	rd, err := NewRenderer()
	require.NoError(t, err)

	rows := collaboration.Annotate([]collaboration.Collaboration{{
		ID:            4,
		Supplier:      "Acme Interiors",
		DueDate:       time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		TotalAmount:   decimal.NewFromInt(1000),
		PaidAmount:    decimal.NewFromInt(400),
		PendingAmount: decimal.NewFromInt(600),
	}}, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	w := httptest.NewRecorder()
	data := struct {
		Rows   []collaboration.Row
		Filter string
	}{Rows: rows}
	require.NoError(t, rd.Render(w, authedRequest(auth.RoleSuperAdmin), http.StatusOK, "collaborations", Page{Title: "Collaborations", Data: data}))
	assert.Contains(t, w.Body.String(), "Due Soon")
	assert.Contains(t, w.Body.String(), `class="status-due-soon"`)
	assert.Contains(t, w.Body.String(), "/revenue/actual")

	w = httptest.NewRecorder()
	report := revenue.Compute(revenue.Totals{Property: decimal.NewFromInt(120), Collaboration: decimal.NewFromInt(400)}, revenue.ViewAdjusted)
	require.NoError(t, rd.Render(w, authedRequest(auth.RoleAdmin), http.StatusOK, "revenue", Page{Title: "Revenue", Data: report}))
	assert.Contains(t, w.Body.String(), "Adjusted revenue")
	assert.Contains(t, w.Body.String(), "₹ 468.00")
}

func TestRenderLoginKeepsUsernameAndStatus(t *testing.T) {
	rd, err := NewRenderer()
	require.NoError(t, err)

	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodPost, "/login", nil)
	page := Page{
		Title: "Login",
		Error: "Invalid credentials",
		Form:  Form{Values: url.Values{"username": {"tanvi"}}},
	}
	require.NoError(t, rd.Render(w, r, http.StatusUnauthorized, "login", page))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "Invalid credentials")
	assert.Contains(t, body, `value="tanvi"`)
	assert.False(t, strings.Contains(body, "Logout"), "anonymous pages must not show navigation")
}

func TestRenderUnknownPage(t *testing.T) {
	rd, err := NewRenderer()
	require.NoError(t, err)
	err = rd.Render(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil), http.StatusOK, "nope", Page{})
	assert.Error(t, err)
}
