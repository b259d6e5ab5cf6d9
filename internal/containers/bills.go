package containers

import (
	"context"
	"io"
	"log/slog"

	"github.com/pigeonworks-llc/billed/internal/views"
	"github.com/pigeonworks-llc/billed/pkg/bills"
	"github.com/pigeonworks-llc/billed/pkg/store"
)

// BillsState is what the bills page shows.
type BillsState struct {
	Rows    []views.BillRow
	Loading bool
	Error   string
}

// ReduceBillsLoaded turns the outcome of a list call into page state: rows
// latest first with display dates, or the error message as is.
// Dates that cannot be formatted are kept unformatted and reported in bad.
func ReduceBillsLoaded(list []bills.Bill, err error) (state BillsState, bad []string) {
	if err != nil {
		return BillsState{Error: err.Error()}, nil
	}

	sorted := bills.SortByDateDesc(list)
	rows := make([]views.BillRow, len(sorted))
	for i, b := range sorted {
		rows[i] = views.BillRow{Bill: b}
		display, ferr := bills.FormatDate(b.Date)
		if ferr != nil {
			bad = append(bad, b.ID)
			continue
		}
		rows[i].DisplayDate = display
	}

	return BillsState{Rows: rows}, bad
}

// ReduceClickIconEye opens the receipt modal for the clicked icon.
func ReduceClickIconEye(state BillsState, icon views.Icon) (BillsState, []Effect) {
	url := icon.BillURL
	if url == "null" {
		url = ""
	}
	return state, []Effect{ShowModal{URL: url, Width: views.ModalWidth / 2}}
}

// ReduceClickNewBill moves to the new-bill form.
func ReduceClickNewBill(state BillsState) (BillsState, []Effect) {
	return state, []Effect{Navigate{Pathname: RouteNewBill}}
}

// BillsConfig wires a Bills container.
type BillsConfig struct {
	Document *views.Document
	Store    store.Store // nil renders an empty table
	Navigate Navigator
	Session  Session
	Logger   *slog.Logger
}

// Bills is the container of the bills page.
type Bills struct {
	doc      *views.Document
	store    store.Store
	navigate Navigator
	session  Session
	logger   *slog.Logger
	state    BillsState
}

// NewBills creates a Bills container.
func NewBills(cfg BillsConfig) *Bills {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Bills{
		doc:      cfg.Document,
		store:    cfg.Store,
		navigate: cfg.Navigate,
		session:  cfg.Session,
		logger:   logger,
	}
}

// State returns the current page state.
func (c *Bills) State() BillsState {
	return c.state
}

// List renders the loading page, fetches the bills and renders them. A store
// failure is rendered as the page's error message and never returned; only
// render failures are.
func (c *Bills) List(ctx context.Context) error {
	c.state = BillsState{Loading: true}
	if err := c.Render(); err != nil {
		return err
	}

	var list []bills.Bill
	var err error
	if c.store != nil {
		list, err = c.store.List(ctx)
	}

	state, bad := ReduceBillsLoaded(list, err)
	if err != nil {
		c.logger.Warn("Failed to list bills", "email", c.session.Email, "error", err)
	}
	for _, id := range bad {
		c.logger.Warn("Bill with malformed date shown unformatted", "id", id)
	}

	c.state = state
	return c.Render()
}

// Render draws the current state into the document.
func (c *Bills) Render() error {
	return c.doc.Replace(func(w io.Writer) error {
		return views.Bills(w, views.BillsPage{
			Rows:    c.state.Rows,
			Loading: c.state.Loading,
			Error:   c.state.Error,
			Email:   c.session.Email,
		})
	})
}

// HandleClickNewBill navigates to the new-bill form.
func (c *Bills) HandleClickNewBill() error {
	var effects []Effect
	c.state, effects = ReduceClickNewBill(c.state)
	return c.apply(effects)
}

// HandleClickIconEye opens the receipt modal for icon.
func (c *Bills) HandleClickIconEye(icon views.Icon) error {
	var effects []Effect
	c.state, effects = ReduceClickIconEye(c.state, icon)
	return c.apply(effects)
}

func (c *Bills) apply(effects []Effect) error {
	for _, e := range effects {
		switch e := e.(type) {
		case Navigate:
			if c.navigate != nil {
				c.navigate(e.Pathname)
			}
		case ShowModal:
			data := views.ModalData{URL: e.URL, Width: e.Width}
			if err := c.doc.Append(func(w io.Writer) error { return views.Modal(w, data) }); err != nil {
				return err
			}
		}
	}
	return nil
}
