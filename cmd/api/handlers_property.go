package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"estatedesk/property"
	"estatedesk/validate"
	"estatedesk/web"
)

type propertyFormView struct {
	Editing bool
	ID      int64
}

func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	props, err := s.properties.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "properties", web.Page{
		Title:  "Properties",
		Notice: saleNotice(r.URL.Query()),
		Data:   props,
	})
}

// saleNotice turns the redirect parameters written by handleMarkSold into
// the inline message shown on the list.
func saleNotice(q url.Values) string {
	if q.Get("sold") == "" {
		return ""
	}
	switch {
	case q.Get("replayed") == "1":
		return "This sale was already recorded."
	case q.Get("mail") == "failed":
		return "Property marked as sold, but the notification email could not be sent."
	default:
		return "Property marked as sold."
	}
}

func (s *Server) handleAddProperty(w http.ResponseWriter, r *http.Request) {
	page := web.Page{Title: "Add property", Data: propertyFormView{}}
	if r.Method == http.MethodGet {
		s.render(w, r, http.StatusOK, "property_form", page)
		return
	}

	vals, err := postForm(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission")
		return
	}
	verr := &validate.Error{}
	params := propertyParams(vals, verr)
	if verr.OrNil() == nil {
		_, err = s.properties.Create(r.Context(), params)
	} else {
		err = verr
	}
	if ve, ok := validate.IsValidation(err); ok {
		page.Form = formWithErrors(vals, ve)
		s.render(w, r, http.StatusBadRequest, "property_form", page)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/properties", http.StatusSeeOther)
}

func (s *Server) handlePropertyDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Not found")
		return
	}
	s.renderPropertyDetail(w, r, id, http.StatusOK, web.Form{})
}

func (s *Server) renderPropertyDetail(w http.ResponseWriter, r *http.Request, id int64, status int, form web.Form) {
	detail, err := s.properties.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, status, "property_detail", web.Page{Title: detail.Property.Title, Form: form, Data: detail})
}

func (s *Server) handleMarkSold(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Not found")
		return
	}
	vals, err := postForm(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission")
		return
	}

	verr := &validate.Error{}
	if field(vals, "sold_price") == "" {
		verr.Add("sold_price", "is required")
	}
	price := decimalField(vals, "sold_price", verr)
	if verr.OrNil() != nil {
		s.renderError(w, r, http.StatusBadRequest, "Sold price "+verr.Fields["sold_price"])
		return
	}

	res, err := s.properties.MarkSold(r.Context(), property.MarkSoldParams{
		PropertyID: id,
		SoldPrice:  price,
		Token:      field(vals, "sale_token"),
	})
	if ve, ok := validate.IsValidation(err); ok {
		s.renderError(w, r, http.StatusBadRequest, "Sold price "+ve.Fields["sold_price"])
		return
	}
	if errors.Is(err, property.ErrInvalidSaleToken) {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission")
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}

	q := url.Values{"sold": {strconv.FormatInt(res.Property.ID, 10)}}
	if res.Replayed {
		q.Set("replayed", "1")
	}
	if res.NotifyErr != nil {
		q.Set("mail", "failed")
	}
	http.Redirect(w, r, "/properties?"+q.Encode(), http.StatusSeeOther)
}

func (s *Server) handleEditProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Not found")
		return
	}
	page := web.Page{Title: "Edit property", Data: propertyFormView{Editing: true, ID: id}}

	if r.Method == http.MethodGet {
		detail, err := s.properties.Get(r.Context(), id)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		page.Form = web.Form{Values: propertyValues(detail.Property)}
		s.render(w, r, http.StatusOK, "property_form", page)
		return
	}

	vals, err := postForm(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission")
		return
	}
	verr := &validate.Error{}
	params := property.UpdateParams{
		Params:    propertyParams(vals, verr),
		Status:    property.Status(field(vals, "status")),
		SoldPrice: decimalField(vals, "sold_price", verr),
	}
	if verr.OrNil() == nil {
		_, err = s.properties.Update(r.Context(), id, params)
	} else {
		err = verr
	}
	if ve, ok := validate.IsValidation(err); ok {
		page.Form = formWithErrors(vals, ve)
		s.render(w, r, http.StatusBadRequest, "property_form", page)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/properties", http.StatusSeeOther)
}

func (s *Server) handleDeleteProperty(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Not found")
		return
	}
	if err := s.properties.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/properties", http.StatusSeeOther)
}

func (s *Server) handleAddPropertyInteraction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Not found")
		return
	}
	vals, err := postForm(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission")
		return
	}

	_, err = s.properties.AddInteraction(r.Context(), property.InteractionParams{
		PropertyID:   id,
		CustomerName: field(vals, "customer_name"),
		Contact:      field(vals, "contact"),
		Notes:        field(vals, "notes"),
	})
	if ve, ok := validate.IsValidation(err); ok {
		s.renderPropertyDetail(w, r, id, http.StatusBadRequest, formWithErrors(vals, ve))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/properties/%d", id), http.StatusSeeOther)
}

func propertyParams(vals url.Values, verr *validate.Error) property.Params {
	return property.Params{
		Title:    field(vals, "title"),
		Type:     field(vals, "type"),
		Location: field(vals, "location"),
		Size:     field(vals, "size"),
		Price:    decimalField(vals, "price", verr),
		Owner:    field(vals, "owner"),
		Contact:  field(vals, "contact"),
	}
}

func propertyValues(p property.Property) url.Values {
	return url.Values{
		"title":      {p.Title},
		"type":       {p.Type},
		"location":   {p.Location},
		"size":       {p.Size},
		"price":      {amount(p.Price)},
		"owner":      {p.Owner},
		"contact":    {p.Contact},
		"status":     {string(p.Status)},
		"sold_price": {amount(p.SoldPrice)},
	}
}
