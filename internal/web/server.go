// Package web serves the credential form, the clock ledger page and the
// change stream that keeps the page current.
package web

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/huyquangvevo/vcs-timebank/internal/clock"
	"github.com/huyquangvevo/vcs-timebank/internal/identity"
	"github.com/huyquangvevo/vcs-timebank/internal/ledger"
	"github.com/huyquangvevo/vcs-timebank/internal/session"
	"github.com/huyquangvevo/vcs-timebank/internal/store"
)

const (
	loginPath     = "/login"
	dashboardPath = "/dashboard"
)

type Server struct {
	clock    *clock.Service
	provider *identity.Provider
	sessions *session.Manager
	store    store.Store
	format   *Formatter
	log      *slog.Logger
}

func NewServer(c *clock.Service, p *identity.Provider, sm *session.Manager, s store.Store, f *Formatter, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if f == nil {
		f = NewFormatter("en-US", time.UTC)
	}
	return &Server{clock: c, provider: p, sessions: sm, store: s, format: f, log: logger}
}

func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)
	r.Use(s.sessions.Load)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/", s.handleIndex)
	r.Get(loginPath, s.handleAuthPage(false))
	r.Get("/register", s.handleAuthPage(true))
	r.Post(loginPath, s.handleLogin)
	r.Post("/register", s.handleRegister)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Require(loginPath))
		r.Get(dashboardPath, s.handleDashboard)
		r.Post("/clock-in", s.handleClockIn)
		r.Post("/clock-out", s.handleClockOut)
		r.Post("/time-off", s.handleTimeOff)
		r.Get("/events", s.handleEvents)
	})
	return r
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if id, ok := session.FromContext(r.Context()); ok && !id.Anonymous {
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (s *Server) handleAuthPage(registering bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, http.StatusOK, "auth", authView{Registering: registering})
	}
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	id, err := s.provider.SignIn(r.Context(), email, r.FormValue("password"))
	if err != nil {
		s.log.Info("sign in failed", "email", email, "error", err)
		s.render(w, http.StatusUnauthorized, "auth", authView{
			Email: email,
			Error: "Login failed: " + err.Error(),
		})
		return
	}
	s.startSession(w, r, id)
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	email := strings.TrimSpace(r.FormValue("email"))
	fail := func(err error) {
		s.render(w, http.StatusBadRequest, "auth", authView{
			Registering: true,
			Email:       email,
			Error:       "Registration failed: " + err.Error(),
		})
	}

	id, err := s.provider.SignUp(r.Context(), email, r.FormValue("password"))
	if err != nil {
		s.log.Info("sign up failed", "email", email, "error", err)
		fail(err)
		return
	}
	if err := s.clock.Register(r.Context(), id.UserID, id.Email); err != nil {
		s.log.Error("write profile", "user", id.UserID, "error", err)
		fail(err)
		return
	}
	s.startSession(w, r, id)
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request, id identity.Identity) {
	if err := s.sessions.Start(w, id); err != nil {
		s.log.Error("start session", "user", id.UserID, "error", err)
		http.Error(w, "failed to start session", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.End(w)
	http.Redirect(w, r, loginPath, http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	view := dashboardView{
		UserID:    id.UserID,
		Email:     id.Email,
		Anonymous: id.Anonymous,
		Message:   popFlash(w, r),
	}

	v, err := s.clock.Dashboard(r.Context(), id.UserID)
	if err != nil {
		s.log.Error("load dashboard", "user", id.UserID, "error", err)
		view.Message = "Could not load your time records."
		s.render(w, http.StatusOK, "dashboard", view)
		return
	}

	view.ClockedIn = v.Status.ClockedIn
	view.Accrued = s.format.Hours(v.Bank.AccruedHours)
	view.Used = s.format.Hours(v.Bank.UsedHours)
	view.Balance = s.format.Hours(v.Balance())
	for _, e := range v.Entries {
		row := entryRow{
			ClockIn:  s.format.Timestamp(e.ClockIn),
			ClockOut: s.format.Timestamp(e.ClockOut),
			Open:     e.Open(),
		}
		if !e.Open() && e.ClockIn != nil {
			row.Hours = s.format.Hours(ledger.HoursBetween(*e.ClockIn, *e.ClockOut))
		}
		view.Entries = append(view.Entries, row)
	}
	s.render(w, http.StatusOK, "dashboard", view)
}

func (s *Server) handleClockIn(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	err := s.clock.ClockIn(r.Context(), id.UserID)
	switch {
	case err == nil:
		setFlash(w, "Clock-in recorded.")
	case errors.Is(err, clock.ErrAlreadyClockedIn):
		setFlash(w, "You are already clocked in.")
	default:
		s.log.Error("clock in", "user", id.UserID, "error", err)
		setFlash(w, "Could not record clock-in.")
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (s *Server) handleClockOut(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	hours, err := s.clock.ClockOut(r.Context(), id.UserID)
	switch {
	case err == nil:
		setFlash(w, fmt.Sprintf("Clock-out recorded and time bank updated (+%s h).", s.format.Hours(hours)))
	case errors.Is(err, clock.ErrNoOpenEntry):
		setFlash(w, "No open time entry found.")
	default:
		s.log.Error("clock out", "user", id.UserID, "error", err)
		setFlash(w, "Could not record clock-out.")
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

func (s *Server) handleTimeOff(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form data", http.StatusBadRequest)
		return
	}
	raw := strings.ReplaceAll(strings.TrimSpace(r.FormValue("hours")), ",", ".")
	hours, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		setFlash(w, "Enter the number of hours, for example 1.5.")
		http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
		return
	}

	_, err = s.clock.UseHours(r.Context(), id.UserID, hours)
	switch {
	case err == nil:
		setFlash(w, fmt.Sprintf("Recorded %s h of time off.", s.format.Hours(hours)))
	case errors.Is(err, ledger.ErrInvalidHours), errors.Is(err, ledger.ErrInsufficientBalance):
		setFlash(w, "Could not record time off: "+err.Error()+".")
	default:
		s.log.Error("use hours", "user", id.UserID, "error", err)
		setFlash(w, "Could not record time off.")
	}
	http.Redirect(w, r, dashboardPath, http.StatusSeeOther)
}

// handleEvents relays store changes for the signed-in user as
// server-sent events until the client disconnects.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	id, _ := session.FromContext(r.Context())
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}
	changes, err := s.store.Watch(r.Context(), id.UserID)
	if err != nil {
		s.log.Error("watch", "user", id.UserID, "error", err)
		http.Error(w, "subscription unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for change := range changes {
		if _, err := fmt.Fprintf(w, "event: change\ndata: %s\n\n", change.Kind); err != nil {
			return
		}
		flusher.Flush()
	}
}

func (s *Server) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, data); err != nil {
		s.log.Error("render template", "template", name, "error", err)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
