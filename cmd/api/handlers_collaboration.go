package main

import (
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/shopspring/decimal"

	"estatedesk/collaboration"
	"estatedesk/validate"
	"estatedesk/web"
)

type collaborationListView struct {
	Rows   []collaboration.Row
	Filter collaboration.View
}

type collaborationFormView struct {
	Editing bool
	ID      int64
	Paid    decimal.Decimal
	Pending decimal.Decimal
	Margin  decimal.Decimal
}

func (s *Server) handleCollaborations(w http.ResponseWriter, r *http.Request) {
	view := collaboration.ParseView(r.URL.Query().Get("filter"))
	rows, err := s.collaborations.List(r.Context(), view)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, http.StatusOK, "collaborations", web.Page{
		Title: "Collaborations",
		Data:  collaborationListView{Rows: rows, Filter: view},
	})
}

func (s *Server) handleAddCollaboration(w http.ResponseWriter, r *http.Request) {
	page := web.Page{Title: "Add collaboration", Data: collaborationFormView{}}
	if r.Method == http.MethodGet {
		today := s.collaborations.Today().Format(time.DateOnly)
		page.Form = web.Form{Values: url.Values{"start_date": {today}, "due_date": {today}}}
		s.render(w, r, http.StatusOK, "collaboration_form", page)
		return
	}

	vals, err := postForm(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission")
		return
	}
	verr := &validate.Error{}
	params := collaborationParams(vals, verr)
	if verr.OrNil() == nil {
		_, err = s.collaborations.Create(r.Context(), params)
	} else {
		err = verr
	}
	if ve, ok := validate.IsValidation(err); ok {
		page.Form = formWithErrors(vals, ve)
		s.render(w, r, http.StatusBadRequest, "collaboration_form", page)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/collaborations", http.StatusSeeOther)
}

func (s *Server) handleCollaborationDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Not found")
		return
	}
	form := web.Form{Values: url.Values{"interaction_date": {s.collaborations.Today().Format(time.DateOnly)}}}
	s.renderCollaborationDetail(w, r, id, http.StatusOK, form)
}

func (s *Server) renderCollaborationDetail(w http.ResponseWriter, r *http.Request, id int64, status int, form web.Form) {
	detail, err := s.collaborations.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.render(w, r, status, "collaboration_detail", web.Page{Title: detail.Supplier, Form: form, Data: detail})
}

func (s *Server) handleEditCollaboration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Not found")
		return
	}

	detail, err := s.collaborations.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c := detail.Collaboration
	page := web.Page{
		Title: "Edit collaboration",
		Data: collaborationFormView{
			Editing: true,
			ID:      id,
			Paid:    c.PaidAmount,
			Pending: c.PendingAmount,
			Margin:  c.Margin(),
		},
	}

	if r.Method == http.MethodGet {
		page.Form = web.Form{Values: collaborationValues(c)}
		s.render(w, r, http.StatusOK, "collaboration_form", page)
		return
	}

	vals, err := postForm(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Invalid form submission")
		return
	}
	verr := &validate.Error{}
	params := collaborationParams(vals, verr)
	if verr.OrNil() == nil {
		_, err = s.collaborations.Update(r.Context(), id, params)
	} else {
		err = verr
	}
	if ve, ok := validate.IsValidation(err); ok {
		page.Form = formWithErrors(vals, ve)
		s.render(w, r, http.StatusBadRequest, "collaboration_form", page)
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/collaborations", http.StatusSeeOther)
}

func (s *Server) handleDeleteCollaboration(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		s.renderError(w, r, http.StatusNotFound, "Not found")
		return
	}
	if err := s.collaborations.Delete(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, "/collaborations", http.StatusSeeOther)
}

func (s *Server) handleAddCollaborationInteraction(w http.ResponseWriter, r *http.Request) {
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

	// older forms posted the note as "note"
	note := field(vals, "notes")
	if note == "" {
		note = field(vals, "note")
	}

	verr := &validate.Error{}
	date := dateField(vals, "interaction_date", verr)
	if verr.OrNil() == nil {
		_, err = s.collaborations.AddInteraction(r.Context(), collaboration.InteractionParams{
			CollaborationID: id,
			Note:            note,
			Date:            date,
		})
	} else {
		err = verr
	}
	if ve, ok := validate.IsValidation(err); ok {
		s.renderCollaborationDetail(w, r, id, http.StatusBadRequest, formWithErrors(vals, ve))
		return
	}
	if err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/collaborations/%d", id), http.StatusSeeOther)
}

func (s *Server) handleDeleteCollaborationInteraction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	iid, ok2 := pathID(r, "iid")
	if !ok || !ok2 {
		s.renderError(w, r, http.StatusNotFound, "Not found")
		return
	}
	if err := s.collaborations.DeleteInteraction(r.Context(), id, iid); err != nil {
		s.fail(w, r, err)
		return
	}
	http.Redirect(w, r, fmt.Sprintf("/collaborations/%d", id), http.StatusSeeOther)
}

func collaborationParams(vals url.Values, verr *validate.Error) collaboration.Params {
	return collaboration.Params{
		Supplier:      field(vals, "supplier"),
		Category:      field(vals, "category"),
		Service:       field(vals, "service"),
		ContactPerson: field(vals, "contact_person"),
		ContactNumber: field(vals, "contact_number"),
		Email:         field(vals, "email"),
		StartDate:     dateField(vals, "start_date", verr),
		DueDate:       dateField(vals, "due_date", verr),
		TotalAmount:   decimalField(vals, "total_amount", verr),
		PaidAmount:    decimalField(vals, "paid_amount", verr),
	}
}

func collaborationValues(c collaboration.Collaboration) url.Values {
	return url.Values{
		"supplier":       {c.Supplier},
		"category":       {c.Category},
		"service":        {c.Service},
		"contact_person": {c.ContactPerson},
		"contact_number": {c.ContactNumber},
		"email":          {c.Email},
		"start_date":     {c.StartDate.Format(time.DateOnly)},
		"due_date":       {c.DueDate.Format(time.DateOnly)},
		"total_amount":   {amount(c.TotalAmount)},
		"paid_amount":    {amount(c.PaidAmount)},
	}
}
