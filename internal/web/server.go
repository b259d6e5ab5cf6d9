// Package web serves the bills pages to a browser. Each request is turned
// into container commands; a container navigation becomes a redirect.
package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/singleflight"

	"github.com/pigeonworks-llc/billed/internal/containers"
	"github.com/pigeonworks-llc/billed/internal/router"
	"github.com/pigeonworks-llc/billed/internal/views"
	"github.com/pigeonworks-llc/billed/pkg/bills"
	"github.com/pigeonworks-llc/billed/pkg/store"
)

// MaxUpload bounds a new-bill form, receipt included.
const MaxUpload = 10 << 20

// Config wires a Server.
type Config struct {
	Store         store.Store
	Journal       containers.SubmissionRecorder // optional
	SessionSecret []byte
	SessionTTL    time.Duration // default 12h
	DraftTTL      time.Duration // default DraftTTL
	SecureCookie  bool
	Logger        *slog.Logger
	Quiet         bool // no access log
}

// Server is the browser-facing front end.
type Server struct {
	store    store.Store
	journal  containers.SubmissionRecorder
	sessions *Sessions
	drafts   *drafts
	inflight singleflight.Group
	logger   *slog.Logger
	quiet    bool
}

// NewServer creates a Server.
func NewServer(cfg Config) (*Server, error) {
	if len(cfg.SessionSecret) == 0 {
		return nil, errors.New("session secret is required")
	}
	if cfg.SessionTTL == 0 {
		cfg.SessionTTL = 12 * time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		store:    cfg.Store,
		journal:  cfg.Journal,
		sessions: NewSessions(cfg.SessionSecret, cfg.SessionTTL, cfg.SecureCookie),
		drafts:   newDrafts(cfg.DraftTTL),
		logger:   logger,
		quiet:    cfg.Quiet,
	}, nil
}

// Sessions returns the session signer, e.g. to log a client in from a test.
func (s *Server) Sessions() *Sessions {
	return s.sessions
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if !s.quiet {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	r.Get("/", s.handleLoginPage)
	r.Post("/login", s.handleLogin)
	r.Post("/logout", s.handleLogout)

	r.Route("/employee", func(r chi.Router) {
		r.Use(s.requireSession)

		r.Get("/bills", s.handleBills)
		r.Get("/bill/new", s.handleNewBillPage)
		r.Post("/bill/new", s.handleNewBillForm)
		r.Get("/bill/{id}/edit", s.handleEditBillPage)
		r.Post("/bill/{id}/edit", s.handleEditBillForm)
	})

	return r
}

type sessionKey struct{}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session, err := s.sessions.Read(r)
		if err == nil && session.Type != containers.UserTypeEmployee {
			err = fmt.Errorf("%w: user type %q", ErrNoSession, session.Type)
		}
		if err != nil {
			s.logger.Debug("Redirecting to login", "path", r.URL.Path, "error", err)
			http.Redirect(w, r, router.Path(containers.RouteLogin), http.StatusSeeOther)
			return
		}
		ctx := context.WithValue(r.Context(), sessionKey{}, session)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func sessionFrom(ctx context.Context) *containers.Session {
	session, _ := ctx.Value(sessionKey{}).(*containers.Session)
	return session
}

// page carries one request's render target and the navigation it asked for.
type page struct {
	doc      *views.Document
	router   *router.Router
	redirect string
}

func (s *Server) newPage(session *containers.Session, mod func(*router.Config)) *page {
	p := &page{doc: views.NewDocument()}
	cfg := router.Config{
		Document: p.doc,
		Store:    s.store,
		Session:  session,
		Journal:  s.journal,
		Logger:   s.logger,
		Navigate: func(pathname string) {
			if p.redirect == "" {
				p.redirect = router.Path(pathname)
			}
		},
	}
	if mod != nil {
		mod(&cfg)
	}
	p.router = router.New(cfg)
	return p
}

// finish writes the redirect asked for by a container, or the document.
func (s *Server) finish(w http.ResponseWriter, r *http.Request, p *page, status int) {
	if p.redirect != "" {
		http.Redirect(w, r, p.redirect, http.StatusSeeOther)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := p.doc.WriteTo(w); err != nil {
		s.logger.Error("Failed to write page", "path", r.URL.Path, "error", err)
	}
}

func (s *Server) renderError(w http.ResponseWriter, r *http.Request, status int, message string) {
	doc := views.NewDocument()
	doc.SetTitle("Erreur")
	if err := doc.Replace(func(w io.Writer) error { return views.Error(w, message) }); err != nil {
		http.Error(w, message, status)
		return
	}
	s.finish(w, r, &page{doc: doc}, status)
}

func (s *Server) handleLoginPage(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(nil, nil)
	if err := p.router.OnNavigate(r.Context(), containers.RouteLogin); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.finish(w, r, p, http.StatusOK)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.renderError(w, r, http.StatusBadRequest, "Formulaire invalide")
		return
	}

	email := strings.TrimSpace(r.PostFormValue("email"))
	password := r.PostFormValue("password")

	var message string
	switch {
	case checkmail.ValidateFormat(email) != nil:
		message = "Adresse e-mail invalide"
	case password == "":
		message = "Mot de passe requis"
	}
	if message != "" {
		p := s.newPage(nil, func(cfg *router.Config) { cfg.LoginError = message })
		if err := p.router.OnNavigate(r.Context(), containers.RouteLogin); err != nil {
			s.renderError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
		s.finish(w, r, p, http.StatusUnprocessableEntity)
		return
	}

	session := containers.Session{Type: containers.UserTypeEmployee, Email: email}
	if err := s.sessions.Issue(w, session); err != nil {
		s.logger.Error("Failed to issue session", "email", email, "error", err)
		s.renderError(w, r, http.StatusInternalServerError, "Erreur de connexion")
		return
	}

	s.logger.Info("Employee logged in", "email", email)
	http.Redirect(w, r, router.Path(containers.RouteBills), http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if session, err := s.sessions.Read(r); err == nil {
		s.drafts.dropEmployee(session.Email)
	}
	s.sessions.Clear(w)
	http.Redirect(w, r, router.Path(containers.RouteLogin), http.StatusSeeOther)
}

// handleBills lists the bills. ?preview=<id> opens the receipt modal of that
// bill, as a click on its eye icon does.
func (s *Server) handleBills(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(sessionFrom(r.Context()), nil)
	if err := p.router.OnNavigate(r.Context(), containers.RouteBills); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}

	if id := r.URL.Query().Get("preview"); id != "" {
		c := p.router.Bills()
		icon := views.Icon{}
		for _, row := range c.State().Rows {
			if row.Bill.ID == id {
				icon.BillURL = row.Bill.FileURL
				break
			}
		}
		if err := c.HandleClickIconEye(icon); err != nil {
			s.renderError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
	}

	s.finish(w, r, p, http.StatusOK)
}

const newForm = "new"

func (s *Server) handleNewBillPage(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	s.drafts.drop(draftKey(session.Email, newForm))
	s.renderForm(w, r, containers.NewBillState{}, "", http.StatusOK)
}

func (s *Server) handleNewBillForm(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	key := draftKey(session.Email, newForm)
	state, _ := s.drafts.get(key)
	s.handleForm(w, r, session.Email, key, state, "")
}

func (s *Server) handleEditBillPage(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	b, ok := s.findBill(w, r, session, chi.URLParam(r, "id"))
	if !ok {
		return
	}

	s.drafts.drop(draftKey(session.Email, b.ID))
	s.renderForm(w, r, containers.EditState(*b), editAction(b.ID), http.StatusOK)
}

func (s *Server) handleEditBillForm(w http.ResponseWriter, r *http.Request) {
	session := sessionFrom(r.Context())
	id := chi.URLParam(r, "id")
	key := draftKey(session.Email, id)

	b, found := s.findBill(w, r, session, id)
	if !found {
		return
	}
	state, ok := s.drafts.get(key)
	if !ok {
		state = containers.EditState(*b)
	}
	s.handleForm(w, r, session.Email, key, state, editAction(id))
}

func editAction(id string) string {
	return "/employee/bill/" + id + "/edit"
}

// findBill looks id up among the bills the store lists, writing the error
// page when it cannot. Only the session's own pending bills can be edited:
// another employee's bill is not found, a reviewed one is forbidden.
func (s *Server) findBill(w http.ResponseWriter, r *http.Request, session *containers.Session, id string) (*bills.Bill, bool) {
	list, err := s.store.List(r.Context())
	if err != nil {
		s.renderError(w, r, http.StatusBadGateway, err.Error())
		return nil, false
	}

	idx := slices.IndexFunc(list, func(b bills.Bill) bool { return b.ID == id })
	if idx < 0 || !strings.EqualFold(list[idx].Email, session.Email) {
		if idx >= 0 {
			s.logger.Warn("Refused edit of another employee's bill", "id", id, "email", session.Email)
		}
		s.renderError(w, r, http.StatusNotFound, "Erreur 404")
		return nil, false
	}

	b := &list[idx]
	if b.Status != bills.StatusPending {
		s.logger.Warn("Refused edit of a reviewed bill", "id", id, "status", b.Status)
		s.renderError(w, r, http.StatusForbidden, "Erreur 403")
		return nil, false
	}
	return b, true
}

func (s *Server) renderForm(w http.ResponseWriter, r *http.Request, state containers.NewBillState, action string, status int) {
	p := s.newPage(sessionFrom(r.Context()), func(cfg *router.Config) {
		cfg.NewBill = state
		cfg.NewBillAction = action
	})
	if err := p.router.OnNavigate(r.Context(), containers.RouteNewBill); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	s.finish(w, r, p, status)
}

type submitOutcome struct {
	state    containers.NewBillState
	redirect string
}

// handleForm runs one post of the new-bill form: a file pick (intent=file)
// or a submission. The draft keeps the picked receipt between posts.
func (s *Server) handleForm(w http.ResponseWriter, r *http.Request, email, key string, state containers.NewBillState, action string) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxUpload)
	if err := r.ParseMultipartForm(MaxUpload); err != nil {
		s.renderError(w, r, http.StatusRequestEntityTooLarge, "Formulaire invalide")
		return
	}

	form := views.BillForm{
		Type:       r.PostFormValue("type"),
		Name:       r.PostFormValue("name"),
		Date:       r.PostFormValue("date"),
		Amount:     r.PostFormValue("amount"),
		VAT:        r.PostFormValue("vat"),
		Pct:        r.PostFormValue("pct"),
		Commentary: r.PostFormValue("commentary"),
	}
	state.Form = form

	p := s.newPage(sessionFrom(r.Context()), func(cfg *router.Config) {
		cfg.NewBill = state
		cfg.NewBillAction = action
	})
	if err := p.router.OnNavigate(r.Context(), containers.RouteNewBill); err != nil {
		s.renderError(w, r, http.StatusInternalServerError, err.Error())
		return
	}
	nb := p.router.NewBill()

	file, err := uploadedFile(r)
	if err != nil {
		s.renderError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	if file != nil {
		if err := nb.HandleChangeFile(*file); err != nil {
			s.renderError(w, r, http.StatusInternalServerError, err.Error())
			return
		}
	}

	if r.PostFormValue("intent") == "file" {
		s.drafts.put(email, key, nb.State())
		s.finish(w, r, p, http.StatusOK)
		return
	}

	v, err, shared := s.inflight.Do(key, func() (any, error) {
		err := nb.HandleSubmit(r.Context(), form)
		return submitOutcome{state: nb.State(), redirect: p.redirect}, err
	})
	if shared {
		s.logger.Debug("Collapsed concurrent submission", "key", key)
	}
	outcome := v.(submitOutcome)

	if outcome.redirect != "" {
		s.drafts.drop(key)
		p.redirect = outcome.redirect
		s.finish(w, r, p, http.StatusSeeOther)
		return
	}
	s.drafts.put(email, key, outcome.state)

	status := http.StatusOK
	switch {
	case errors.Is(err, containers.ErrSubmissionInFlight):
		status = http.StatusConflict
	case err != nil:
		status = http.StatusUnprocessableEntity
	case outcome.state.Error != "":
		status = http.StatusBadGateway
	}
	s.renderForm(w, r, outcome.state, action, status)
}

// uploadedFile returns the receipt part of the form, nil when none was sent.
func uploadedFile(r *http.Request) (*bills.File, error) {
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt: %w", err)
	}
	defer func() { _ = f.Close() }()

	if header.Filename == "" {
		return nil, nil
	}
	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read receipt: %w", err)
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(content)
	}
	return &bills.File{Name: header.Filename, ContentType: contentType, Content: content}, nil
}
