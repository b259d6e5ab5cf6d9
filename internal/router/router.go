// Package router maps logical pathnames to pages. A navigation renders the
// page into the router's document through the page's container.
package router

import (
	"context"
	"io"
	"log/slog"

	"github.com/pigeonworks-llc/billed/internal/containers"
	"github.com/pigeonworks-llc/billed/internal/views"
	"github.com/pigeonworks-llc/billed/pkg/store"
)

// Route is one entry of the route table.
type Route struct {
	Name  string // logical pathname, e.g. containers.RouteBills
	Path  string // URL the browser shows
	Title string
}

var routes = []Route{
	{Name: containers.RouteLogin, Path: "/"},
	{Name: containers.RouteBills, Path: "/employee/bills", Title: "Mes notes de frais"},
	{Name: containers.RouteNewBill, Path: "/employee/bill/new", Title: "Envoyer une note de frais"},
}

// Lookup returns the route named pathname.
func Lookup(pathname string) (Route, bool) {
	for _, r := range routes {
		if r.Name == pathname {
			return r, true
		}
	}
	return Route{}, false
}

// Path returns the URL of a logical pathname, "/" when it is unknown.
func Path(pathname string) string {
	if r, ok := Lookup(pathname); ok {
		return r.Path
	}
	return "/"
}

// Resolve returns the logical pathname of a URL path.
func Resolve(path string) (string, bool) {
	for _, r := range routes {
		if r.Path == path {
			return r.Name, true
		}
	}
	return "", false
}

// Config wires a Router.
type Config struct {
	Document *views.Document
	Store    store.Store
	// Session is the connected user; nil sends every navigation to Login.
	Session *containers.Session
	Journal containers.SubmissionRecorder
	Logger  *slog.Logger

	// Navigate replaces in-place navigation, e.g. with an HTTP redirect.
	// Containers created by the router navigate through it.
	Navigate containers.Navigator

	// NewBill is the initial state of the NewBill form and NewBillAction
	// its form action.
	NewBill       containers.NewBillState
	NewBillAction string

	// LoginError is shown on the login page.
	LoginError string
}

// Router renders pages into one document.
type Router struct {
	cfg     Config
	logger  *slog.Logger
	current string

	bills   *containers.Bills
	newBill *containers.NewBill
}

// New creates a Router.
func New(cfg Config) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{cfg: cfg, logger: logger}
}

// Current returns the logical pathname last rendered.
func (r *Router) Current() string {
	return r.current
}

// Bills returns the container of the Bills page, nil when another page is shown.
func (r *Router) Bills() *containers.Bills {
	return r.bills
}

// NewBill returns the container of the NewBill page, nil when another page is shown.
func (r *Router) NewBill() *containers.NewBill {
	return r.newBill
}

// Navigator returns the navigation function handed to containers.
func (r *Router) Navigator(ctx context.Context) containers.Navigator {
	if r.cfg.Navigate != nil {
		return r.cfg.Navigate
	}
	return func(pathname string) {
		if err := r.OnNavigate(ctx, pathname); err != nil {
			r.logger.Error("Failed to navigate", "pathname", pathname, "error", err)
		}
	}
}

// OnNavigate renders the page of pathname. Unknown pathnames and any page
// without an employee session render the login page.
func (r *Router) OnNavigate(ctx context.Context, pathname string) error {
	if _, ok := Lookup(pathname); !ok {
		r.logger.Debug("Unknown pathname, showing login", "pathname", pathname)
		pathname = containers.RouteLogin
	}
	if !r.authorized() {
		pathname = containers.RouteLogin
	}

	r.bills, r.newBill = nil, nil
	r.current = pathname
	route, _ := Lookup(pathname)
	r.cfg.Document.SetTitle(route.Title)

	switch pathname {
	case containers.RouteBills:
		r.bills = containers.NewBills(containers.BillsConfig{
			Document: r.cfg.Document,
			Store:    r.cfg.Store,
			Navigate: r.Navigator(ctx),
			Session:  *r.cfg.Session,
			Logger:   r.logger,
		})
		return r.bills.List(ctx)

	case containers.RouteNewBill:
		r.newBill = containers.NewNewBill(containers.NewBillConfig{
			Document: r.cfg.Document,
			Store:    r.cfg.Store,
			Navigate: r.Navigator(ctx),
			Session:  *r.cfg.Session,
			Journal:  r.cfg.Journal,
			Logger:   r.logger,
			State:    r.cfg.NewBill,
			Action:   r.cfg.NewBillAction,
		})
		if r.cfg.NewBill.Editing != nil {
			r.cfg.Document.SetTitle("Modifier une note de frais")
		}
		return r.newBill.Render()
	}

	page := views.LoginPage{Error: r.cfg.LoginError}
	if r.cfg.Session != nil {
		page.Email = r.cfg.Session.Email
	}
	return r.cfg.Document.Replace(func(w io.Writer) error {
		return views.Login(w, page)
	})
}

func (r *Router) authorized() bool {
	return r.cfg.Session != nil && r.cfg.Session.Type == containers.UserTypeEmployee
}
