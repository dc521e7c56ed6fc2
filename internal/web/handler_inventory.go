package web

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ocakli/envanter/internal/domain"
	"github.com/ocakli/envanter/internal/live"
	"github.com/ocakli/envanter/internal/service"
	"github.com/ocakli/envanter/internal/session"
)

func (s *Server) handleInventoryPage(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	items := live.Filter(s.inventoryFeed.Snapshot(), query, (*domain.Item).SearchFields)

	// HTMX partial update while typing: return only the table fragment.
	if r.Header.Get("HX-Request") == "true" {
		if err := s.renderPartial(w, "partials/inventory_table.html", s.inventoryTableData(items)); err != nil {
			s.logger.Error("render partial failed", "error", err)
		}
		return
	}

	data := s.newPageData("inventory")
	data.Query = query
	data.Extra = s.inventoryTableData(items)
	s.renderInventoryPage(w, data)
}

func (s *Server) renderInventoryPage(w http.ResponseWriter, data pageData) {
	if err := s.renderPage(w, data,
		"base.html", "pages/inventory.html", "partials/inventory_table.html",
	); err != nil {
		s.logger.Error("render page failed", "error", err)
	}
}

func (s *Server) inventoryTableData(items []*domain.Item) map[string]any {
	return map[string]any{
		"Items":   items,
		"IsAdmin": s.session.Role() == session.RoleAdmin,
	}
}

func (s *Server) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	input, err := itemInputFromForm(r)
	if err != nil {
		s.inventoryFormError(w, err.Error())
		return
	}

	if _, err := s.inventory.CreateItem(r.Context(), input); err != nil {
		if msg, ok := validationMessage(err); ok {
			s.inventoryFormError(w, msg)
			return
		}
		http.Error(w, "failed to create item", http.StatusInternalServerError)
		s.logger.Error("create item failed", "error", err)
		return
	}

	http.Redirect(w, r, "/inventory", http.StatusSeeOther)
}

func (s *Server) handleUpdateItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	input, err := itemInputFromForm(r)
	if err != nil {
		s.inventoryFormError(w, err.Error())
		return
	}

	if _, err := s.inventory.UpdateItem(r.Context(), id, input); err != nil {
		if msg, ok := validationMessage(err); ok {
			s.inventoryFormError(w, msg)
			return
		}
		http.Error(w, "failed to update item", http.StatusInternalServerError)
		s.logger.Error("update item failed", "id", id, "error", err)
		return
	}

	http.Redirect(w, r, "/inventory", http.StatusSeeOther)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	if err := s.inventory.DeleteItem(r.Context(), id); err != nil {
		http.Error(w, "failed to delete item", http.StatusInternalServerError)
		s.logger.Error("delete item failed", "id", id, "error", err)
		return
	}

	w.Header().Set("HX-Redirect", "/inventory")
	w.WriteHeader(http.StatusOK)
}

// inventoryFormError re-renders the inventory page with an inline error,
// keeping the user on the form.
func (s *Server) inventoryFormError(w http.ResponseWriter, msg string) {
	w.WriteHeader(http.StatusUnprocessableEntity)
	data := s.newPageData("inventory")
	data.Error = msg
	data.Extra = s.inventoryTableData(s.inventoryFeed.Snapshot())
	s.renderInventoryPage(w, data)
}

// itemInputFromForm reads the submitted item fields. Dates arrive from
// <input type="date"> in 2006-01-02 form.
func itemInputFromForm(r *http.Request) (service.ItemInput, error) {
	input := service.ItemInput{
		Model:        strings.TrimSpace(r.FormValue("model")),
		SerialNumber: strings.TrimSpace(r.FormValue("serial_number")),
		BoxStatus:    domain.BoxStatus(r.FormValue("box_status")),
		Location:     strings.TrimSpace(r.FormValue("location")),
		UsageArea:    strings.TrimSpace(r.FormValue("usage_area")),
		Note:         strings.TrimSpace(r.FormValue("note")),
	}

	entry, err := parseDate(r.FormValue("entry_date"))
	if err != nil {
		return input, err
	}
	input.EntryDate = entry

	if raw := r.FormValue("exit_date"); raw != "" {
		exit, err := parseDate(raw)
		if err != nil {
			return input, err
		}
		input.ExitDate = &exit
	}
	return input, nil
}

func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q", raw)
	}
	return t, nil
}
