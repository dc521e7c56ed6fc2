package web

import (
	"net/http"
	"strings"

	"github.com/ocakli/envanter/internal/domain"
	"github.com/ocakli/envanter/internal/live"
	"github.com/ocakli/envanter/internal/service"
	"github.com/ocakli/envanter/internal/session"
)

func (s *Server) handleContactsPage(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	contacts := live.Filter(s.contactFeed.Snapshot(), query, (*domain.Contact).SearchFields)

	if r.Header.Get("HX-Request") == "true" {
		if err := s.renderPartial(w, "partials/contact_table.html", s.contactTableData(contacts)); err != nil {
			s.logger.Error("render partial failed", "error", err)
		}
		return
	}

	data := s.newPageData("contacts")
	data.Query = query
	data.Extra = s.contactTableData(contacts)
	s.renderContactsPage(w, data)
}

func (s *Server) renderContactsPage(w http.ResponseWriter, data pageData) {
	if err := s.renderPage(w, data,
		"base.html", "pages/contacts.html", "partials/contact_table.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) contactTableData(contacts []*domain.Contact) map[string]any {
	return map[string]any{
		"Contacts": contacts,
		"IsAdmin":  s.session.Role() == session.RoleAdmin,
	}
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	input := contactInputFromForm(r)

	if _, err := s.contacts.CreateContact(r.Context(), input); err != nil {
		if msg, ok := validationMessage(err); ok {
			s.contactFormError(w, msg)
			return
		}
		http.Error(w, "failed to create contact", http.StatusInternalServerError)
		s.logger.Error("create contact failed", "error", err)
		return
	}

	http.Redirect(w, r, "/contacts", http.StatusSeeOther)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if _, err := s.contacts.UpdateContact(r.Context(), id, contactInputFromForm(r)); err != nil {
		if msg, ok := validationMessage(err); ok {
			s.contactFormError(w, msg)
			return
		}
		http.Error(w, "failed to update contact", http.StatusInternalServerError)
		s.logger.Error("update contact failed", "id", id, "error", err)
		return
	}

	http.Redirect(w, r, "/contacts", http.StatusSeeOther)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.contacts.DeleteContact(r.Context(), id); err != nil {
		http.Error(w, "failed to delete contact", http.StatusInternalServerError)
		s.logger.Error("delete contact failed", "id", id, "error", err)
		return
	}

	w.Header().Set("HX-Redirect", "/contacts")
	w.WriteHeader(http.StatusOK)
}

func (s *Server) contactFormError(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusUnprocessableEntity)
	data := s.newPageData("contacts")
	data.Error = msg
	data.Extra = s.contactTableData(s.contactFeed.Snapshot())
	s.renderContactsPage(w, data)
}

func contactInputFromForm(r *http.Request) service.ContactInput {
	return service.ContactInput{
		FullName:   strings.TrimSpace(r.FormValue("full_name")),
		Company:    strings.TrimSpace(r.FormValue("company")),
		Department: strings.TrimSpace(r.FormValue("department")),
		Title:      strings.TrimSpace(r.FormValue("title")),
		Phone:      strings.TrimSpace(r.FormValue("phone")),
		Address:    strings.TrimSpace(r.FormValue("address")),
	}
}
