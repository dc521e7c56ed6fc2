package web

import (
	"errors"
	"net/http"

	"github.com/ocakli/envanter/internal/service"
	"github.com/ocakli/envanter/internal/session"
)

type loginPageData struct {
	Error   string
	Expired bool
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	if s.session.Role() != session.RoleNone {
		http.Redirect(w, r, "/inventory", http.StatusSeeOther)
		return
	}

	data := loginPageData{Expired: s.session.ConsumeExpiredNotice()}
	if err := s.renderPage(w, data, "base.html", "pages/login.html"); err != nil {
		s.logger.Error("render login page failed", "error", err)
	}
}

func (s *Server) handleLoginAdmin(w http.ResponseWriter, r *http.Request) {
	password := r.FormValue("password")

	err := s.session.LoginAdmin(r.Context(), password)
	if err == nil {
		http.Redirect(w, r, "/inventory", http.StatusSeeOther)
		return
	}

	msg := "Login failed. Try again later."
	switch {
	case errors.Is(err, session.ErrInvalidPassword):
		msg = "Wrong password."
	case errors.Is(err, session.ErrProvisioning):
		msg = "Admin account could not be provisioned."
	}
	s.logger.Warn("admin login failed", "error", err)

	w.WriteHeader(http.StatusUnauthorized)
	if err := s.renderPage(w, loginPageData{Error: msg}, "base.html", "pages/login.html"); err != nil {
		s.logger.Error("render login page failed", "error", err)
	}
}

func (s *Server) handleLoginGuest(w http.ResponseWriter, r *http.Request) {
	if err := s.session.LoginGuest(r.Context()); err != nil {
		s.logger.Warn("guest login failed", "error", err)
		w.WriteHeader(http.StatusUnauthorized)
		if rerr := s.renderPage(w, loginPageData{Error: "Guest login failed."}, "base.html", "pages/login.html"); rerr != nil {
			s.logger.Error("render login page failed", "error", rerr)
		}
		return
	}
	http.Redirect(w, r, "/inventory", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.session.Logout(r.Context())
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// validationMessage extracts the user-facing part of a validation error, or
// returns a generic message for anything else.
func validationMessage(err error) (string, bool) {
	if errors.Is(err, service.ErrValidation) {
		return err.Error(), true
	}
	return "", false
}
