package web

import (
	"embed"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/ocakli/envanter/internal/domain"
	"github.com/ocakli/envanter/internal/live"
	"github.com/ocakli/envanter/internal/service"
	"github.com/ocakli/envanter/internal/session"
)

type Server struct {
	inventory *service.InventoryService
	contacts  *service.ContactService
	session   *session.Controller

	inventoryFeed *live.Feed[*domain.Item]
	contactFeed   *live.Feed[*domain.Contact]

	templates embed.FS
	mux       *http.ServeMux
	tmplFuncs template.FuncMap
	logger    *slog.Logger
}

func NewServer(
	inventory *service.InventoryService,
	contacts *service.ContactService,
	sess *session.Controller,
	inventoryFeed *live.Feed[*domain.Item],
	contactFeed *live.Feed[*domain.Contact],
	tmpl embed.FS,
	logger *slog.Logger,
) *Server {
	s := &Server{
		inventory:     inventory,
		contacts:      contacts,
		session:       sess,
		inventoryFeed: inventoryFeed,
		contactFeed:   contactFeed,
		templates:     tmpl,
		mux:           http.NewServeMux(),
		logger:        logger,
		tmplFuncs: template.FuncMap{
			"boxLabel": func(b domain.BoxStatus) string { return b.Label() },
			"fmtDate":  fmtDate,
			"fmtDatePtr": func(t *time.Time) string {
				if t == nil {
					return ""
				}
				return fmtDate(*t)
			},
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /login", s.handleLoginPage)
	s.mux.HandleFunc("POST /login", s.handleLoginAdmin)
	s.mux.HandleFunc("POST /login/guest", s.handleLoginGuest)
	s.mux.HandleFunc("POST /logout", s.handleLogout)

	s.mux.HandleFunc("GET /inventory", s.protected(s.handleInventoryPage))
	s.mux.HandleFunc("GET /inventory/events", s.protected(s.handleInventoryEvents))
	s.mux.HandleFunc("POST /inventory", s.adminOnly(s.handleCreateItem))
	s.mux.HandleFunc("POST /inventory/{id}", s.adminOnly(s.handleUpdateItem))
	s.mux.HandleFunc("PUT /inventory/{id}", s.adminOnly(s.handleUpdateItem))
	s.mux.HandleFunc("DELETE /inventory/{id}", s.adminOnly(s.handleDeleteItem))

	s.mux.HandleFunc("GET /contacts", s.protected(s.handleContactsPage))
	s.mux.HandleFunc("GET /contacts/events", s.protected(s.handleContactEvents))
	s.mux.HandleFunc("POST /contacts", s.adminOnly(s.handleCreateContact))
	s.mux.HandleFunc("POST /contacts/{id}", s.adminOnly(s.handleUpdateContact))
	s.mux.HandleFunc("PUT /contacts/{id}", s.adminOnly(s.handleUpdateContact))
	s.mux.HandleFunc("DELETE /contacts/{id}", s.adminOnly(s.handleDeleteContact))

	// Everything else lands on the inventory list; the guard takes over
	// from there when nobody is signed in.
	s.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/inventory", http.StatusSeeOther)
	})
}

// protected requires any signed-in role and counts the request as user
// activity for the inactivity timeout.
func (s *Server) protected(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.session.Role() == session.RoleNone {
			redirectToLogin(w, r)
			return
		}
		s.session.Touch()
		next(w, r)
	}
}

// adminOnly requires the admin role. Guests get 403, not a redirect: the
// links they could reach this from are hidden, so any hit is hand-crafted.
func (s *Server) adminOnly(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch s.session.Role() {
		case session.RoleNone:
			redirectToLogin(w, r)
			return
		case session.RoleGuest:
			http.Error(w, "admin role required", http.StatusForbidden)
			return
		}
		s.session.Touch()
		next(w, r)
	}
}

// redirectToLogin sends HTMX requests a client-side redirect header and
// everything else a plain 303.
func redirectToLogin(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("HX-Request") == "true" {
		w.Header().Set("HX-Redirect", "/login")
		w.WriteHeader(http.StatusOK)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

// securityHeaders adds defensive HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline' https://fonts.googleapis.com; "+
				"font-src https://fonts.gstatic.com; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

func (s *Server) ListenAndServe(addr string) error {
	s.logger.Info("starting server", "addr", addr)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return srv.ListenAndServe()
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return tmpl.ExecuteTemplate(w, "base", data)
}

// renderPartial parses and executes a single named partial template.
// The file must contain exactly one {{define "name"}}...{{end}} block.
func (s *Server) renderPartial(w http.ResponseWriter, file string, data any) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, file)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	return executePartial(w, tmpl, file, data)
}

// executePartial finds the {{define}} block inside file: it is the template
// whose name is neither "" nor the file basename.
func executePartial(w io.Writer, tmpl *template.Template, file string, data any) error {
	basename := file
	if idx := strings.LastIndexByte(file, '/'); idx >= 0 {
		basename = file[idx+1:]
	}
	for _, t := range tmpl.Templates() {
		if n := t.Name(); n != "" && n != basename {
			return t.Execute(w, data)
		}
	}
	return tmpl.ExecuteTemplate(w, basename, data)
}

func fmtDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// pageData carries the fields every full page needs plus per-page extras.
type pageData struct {
	Role      session.Role
	IsAdmin   bool
	ActiveNav string
	Query     string
	Error     string
	Extra     map[string]any
}

func (s *Server) newPageData(activeNav string) pageData {
	role := s.session.Role()
	return pageData{
		Role:      role,
		IsAdmin:   role == session.RoleAdmin,
		ActiveNav: activeNav,
		Extra:     map[string]any{},
	}
}
