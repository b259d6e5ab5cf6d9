package containers

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/billed/internal/views"
	"github.com/pigeonworks-llc/billed/pkg/bills"
	"github.com/pigeonworks-llc/billed/pkg/db"
	"github.com/pigeonworks-llc/billed/pkg/store"
)

// Phase is the step a new-bill form is at.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseFileSelected
	PhaseSubmitting
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseFileSelected:
		return "file-selected"
	case PhaseSubmitting:
		return "submitting"
	}
	return "unknown"
}

// FileStatus is the verdict on the last file picked.
type FileStatus int

const (
	FileNone FileStatus = iota
	FileValid
	FileInvalid
)

// MissingFileMessage is shown when a new bill is sent without a usable receipt.
const MissingFileMessage = "Veuillez joindre un justificatif au format image"

// NewBillState is the state of one new-bill (or edit-bill) form.
type NewBillState struct {
	Phase      Phase
	FileStatus FileStatus
	File       *bills.File // validated receipt waiting to be uploaded
	Form       views.BillForm
	Editing    *bills.Bill // nil for a new bill
	Error      string
	Saved      *bills.Bill // result of the last successful submission
}

// EditState returns the initial state of a form editing b.
func EditState(b bills.Bill) NewBillState {
	return NewBillState{
		Editing: &b,
		Form: views.BillForm{
			Type:       b.Type,
			Name:       b.Name,
			Date:       b.Date,
			Amount:     b.Amount.String(),
			VAT:        b.VAT.String(),
			Pct:        strconv.Itoa(b.Pct),
			Commentary: b.Commentary,
		},
	}
}

// ReduceChangeFile validates a picked file. A valid file is kept for upload;
// an invalid one drops whatever file was kept before. Files picked while a
// submission is running are ignored.
func ReduceChangeFile(s NewBillState, f bills.File) (NewBillState, []Effect) {
	if s.Phase == PhaseSubmitting {
		return s, nil
	}

	s.Phase = PhaseFileSelected
	if !bills.IsValidType(f) {
		s.File = nil
		s.FileStatus = FileInvalid
		return s, []Effect{MarkFileInput{Valid: false}}
	}

	s.File = &f
	s.FileStatus = FileValid
	return s, []Effect{MarkFileInput{Valid: true}}
}

// ReduceSubmit turns the form into a pending bill and asks the store to
// create it, or update it when editing.
func ReduceSubmit(s NewBillState, form views.BillForm, session Session) (NewBillState, []Effect, error) {
	if s.Phase == PhaseSubmitting {
		return s, nil, ErrSubmissionInFlight
	}

	s.Form = form
	bill, err := BuildBill(form, session, s.Editing)
	if err != nil {
		s.Error = err.Error()
		return s, []Effect{ShowError{Message: s.Error}}, err
	}

	if s.File == nil && (s.Editing == nil || !s.Editing.HasFile()) {
		s.FileStatus = FileInvalid
		s.Error = MissingFileMessage
		return s, []Effect{MarkFileInput{Valid: false}, ShowError{Message: s.Error}}, ErrNoValidFile
	}

	s.Phase = PhaseSubmitting
	s.Error = ""
	payload := store.Payload{Bill: bill, File: s.File}
	if s.Editing != nil {
		return s, []Effect{UpdateBill{Payload: payload}}, nil
	}
	return s, []Effect{CreateBill{Payload: payload}}, nil
}

// ReduceSubmitted applies the store's answer to a submission. Success clears
// the form and goes back to the bills list; failure keeps the form and the
// receipt and shows the store's message.
func ReduceSubmitted(s NewBillState, saved *bills.Bill, err error) (NewBillState, []Effect) {
	if err != nil {
		s.Phase = PhaseIdle
		s.Error = err.Error()
		return s, []Effect{ShowError{Message: s.Error}}
	}

	return NewBillState{Saved: saved}, []Effect{Navigate{Pathname: RouteBills}}
}

// BuildBill reads the raw form into a pending bill. Amount and VAT accept
// decimals; an empty or unreadable percentage falls back to bills.DefaultPct.
func BuildBill(form views.BillForm, session Session, editing *bills.Bill) (bills.Bill, error) {
	var errs bills.ValidationErrors

	b := bills.Bill{
		Email:      session.Email,
		Type:       strings.TrimSpace(form.Type),
		Name:       strings.TrimSpace(form.Name),
		Date:       strings.TrimSpace(form.Date),
		Pct:        bills.DefaultPct,
		Commentary: form.Commentary,
		Status:     bills.StatusPending,
	}
	if editing != nil {
		b.ID = editing.ID
		b.FileURL = editing.FileURL
		b.FileName = editing.FileName
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(form.Amount))
	if err != nil {
		errs = append(errs, &bills.ValidationError{Field: "amount", Message: "must be a number"})
	} else {
		b.Amount = amount
	}

	if v := strings.TrimSpace(form.VAT); v != "" {
		vat, err := decimal.NewFromString(v)
		if err != nil {
			errs = append(errs, &bills.ValidationError{Field: "vat", Message: "must be a number"})
		} else {
			b.VAT = vat
		}
	}

	if pct, err := strconv.Atoi(strings.TrimSpace(form.Pct)); err == nil {
		b.Pct = pct
	}

	if len(errs) > 0 {
		return b, errs
	}
	if err := b.Validate(); err != nil {
		return b, err
	}
	return b, nil
}

// NewBillConfig wires a NewBill container.
type NewBillConfig struct {
	Document *views.Document
	Store    store.Store
	Navigate Navigator
	Session  Session
	Journal  SubmissionRecorder // optional
	Logger   *slog.Logger
	State    NewBillState // e.g. EditState or a draft kept between requests
	Action   string       // form action URL
}

// NewBill is the container of the new-bill form.
type NewBill struct {
	doc      *views.Document
	store    store.Store
	navigate Navigator
	session  Session
	journal  SubmissionRecorder
	logger   *slog.Logger
	action   string

	mu    sync.Mutex
	state NewBillState
}

// NewNewBill creates a NewBill container.
func NewNewBill(cfg NewBillConfig) *NewBill {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &NewBill{
		doc:      cfg.Document,
		store:    cfg.Store,
		navigate: cfg.Navigate,
		session:  cfg.Session,
		journal:  cfg.Journal,
		logger:   logger,
		action:   cfg.Action,
		state:    cfg.State,
	}
}

// State returns a copy of the form state.
func (c *NewBill) State() NewBillState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Render draws the form into the document.
func (c *NewBill) Render() error {
	return c.render(c.State())
}

// HandleChangeFile validates the picked file and marks the input accordingly.
// Nothing is sent to the store.
func (c *NewBill) HandleChangeFile(f bills.File) error {
	c.mu.Lock()
	state, effects := ReduceChangeFile(c.state, f)
	c.state = state
	c.mu.Unlock()

	if state.FileStatus == FileInvalid {
		c.logger.Debug("Rejected receipt", "file", f.Name, "type", f.ContentType)
	}
	return c.apply(state, effects)
}

// HandleSubmit sends the form to the store. Store failures are rendered and
// not returned; the returned error reports a submission refused before any
// store call (in flight, missing receipt, invalid fields).
func (c *NewBill) HandleSubmit(ctx context.Context, form views.BillForm) error {
	c.mu.Lock()
	state, effects, err := ReduceSubmit(c.state, form, c.session)
	c.state = state
	c.mu.Unlock()

	if err != nil {
		if err != ErrSubmissionInFlight {
			if rerr := c.apply(state, effects); rerr != nil {
				return rerr
			}
		}
		return err
	}

	var saved *bills.Bill
	var op db.Operation
	var payload store.Payload
	for _, e := range effects {
		switch e := e.(type) {
		case CreateBill:
			op, payload = db.OperationCreate, e.Payload
			saved, err = c.store.Create(ctx, e.Payload)
		case UpdateBill:
			op, payload = db.OperationUpdate, e.Payload
			saved, err = c.store.Update(ctx, e.Payload)
		}
	}
	c.record(op, payload, saved, err)

	c.mu.Lock()
	state, effects = ReduceSubmitted(c.state, saved, err)
	c.state = state
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn("Bill submission failed", "email", c.session.Email, "operation", op, "error", err)
	} else {
		c.logger.Info("Bill submitted", "email", c.session.Email, "operation", op, "id", saved.ID)
	}
	return c.apply(state, effects)
}

func (c *NewBill) record(op db.Operation, p store.Payload, saved *bills.Bill, err error) {
	if c.journal == nil {
		return
	}

	s := db.Submission{
		Operation: op,
		BillID:    p.Bill.ID,
		Email:     c.session.Email,
		BillName:  p.Bill.Name,
		BillDate:  p.Bill.Date,
		Amount:    p.Bill.Amount.String(),
		Outcome:   db.OutcomeSuccess,
	}
	if p.File != nil {
		s.FileName = p.File.Name
	}
	if saved != nil {
		s.BillID = saved.ID
	}
	if err != nil {
		s.Outcome = db.OutcomeFailure
		s.ErrorMessage = err.Error()
	}

	if jerr := c.journal.Record(s); jerr != nil {
		c.logger.Error("Failed to journal submission", "error", jerr)
	}
}

func (c *NewBill) apply(state NewBillState, effects []Effect) error {
	navigated := false
	for _, e := range effects {
		if nav, ok := e.(Navigate); ok && c.navigate != nil {
			c.navigate(nav.Pathname)
			navigated = true
		}
	}
	if navigated {
		return nil
	}
	// MarkFileInput and ShowError are both carried by the rendered state.
	return c.render(state)
}

func (c *NewBill) render(state NewBillState) error {
	page := views.NewBillPage{
		Action:  c.action,
		Form:    state.Form,
		Editing: state.Editing != nil,
		Error:   state.Error,
	}
	switch state.FileStatus {
	case FileValid:
		page.FileClass = views.ClassValid
	case FileInvalid:
		page.FileClass = views.ClassInvalid
	}
	switch {
	case state.File != nil:
		page.FileName = state.File.Name
		page.HasFile = true
	case state.Editing != nil && state.Editing.HasFile():
		page.FileName = state.Editing.FileName
		page.HasFile = true
	}

	return c.doc.Replace(func(w io.Writer) error {
		return views.NewBill(w, page)
	})
}
