package containers

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pigeonworks-llc/billed/internal/views"
	"github.com/pigeonworks-llc/billed/pkg/bills"
	"github.com/pigeonworks-llc/billed/pkg/db"
	"github.com/pigeonworks-llc/billed/pkg/store"
)

var (
	jpeg = bills.File{Name: "receipt.jpg", ContentType: "image/jpeg", Content: []byte{0xff, 0xd8}}
	pdf  = bills.File{Name: "doc.pdf", ContentType: "application/pdf", Content: []byte("%PDF")}

	taxiForm = views.BillForm{
		Type:   "Transports",
		Name:   "Taxi",
		Date:   "2022-07-02",
		Amount: "50",
		VAT:    "10",
		Pct:    "20",
	}
)

type recordingJournal struct {
	mu      sync.Mutex
	records []db.Submission
}

func (j *recordingJournal) Record(s db.Submission) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.records = append(j.records, s)
	return nil
}

type newBillFixture struct {
	c         *NewBill
	doc       *views.Document
	navigated []string
	journal   *recordingJournal
}

func newNewBillContainer(st store.Store, state NewBillState) *newBillFixture {
	f := &newBillFixture{doc: views.NewDocument(), journal: &recordingJournal{}}
	f.c = NewNewBill(NewBillConfig{
		Document: f.doc,
		Store:    st,
		Navigate: func(p string) { f.navigated = append(f.navigated, p) },
		Session:  employee,
		Journal:  f.journal,
		State:    state,
	})
	return f
}

func TestReduceChangeFile(t *testing.T) {
	t.Run("valid image kept", func(t *testing.T) {
		s, effects := ReduceChangeFile(NewBillState{}, jpeg)
		assert.Equal(t, PhaseFileSelected, s.Phase)
		assert.Equal(t, FileValid, s.FileStatus)
		require.NotNil(t, s.File)
		assert.Equal(t, "receipt.jpg", s.File.Name)
		assert.Equal(t, []Effect{MarkFileInput{Valid: true}}, effects)
	})

	t.Run("invalid file discards the previous one", func(t *testing.T) {
		s, _ := ReduceChangeFile(NewBillState{}, jpeg)
		s, effects := ReduceChangeFile(s, pdf)
		assert.Equal(t, FileInvalid, s.FileStatus)
		assert.Nil(t, s.File)
		assert.Equal(t, []Effect{MarkFileInput{Valid: false}}, effects)
	})

	t.Run("ignored while submitting", func(t *testing.T) {
		s := NewBillState{Phase: PhaseSubmitting, File: &jpeg, FileStatus: FileValid}
		next, effects := ReduceChangeFile(s, pdf)
		assert.Equal(t, s, next)
		assert.Empty(t, effects)
	})
}

func TestReduceSubmit(t *testing.T) {
	t.Run("new bill with receipt creates", func(t *testing.T) {
		s, _ := ReduceChangeFile(NewBillState{}, jpeg)
		s, effects, err := ReduceSubmit(s, taxiForm, employee)
		require.NoError(t, err)
		assert.Equal(t, PhaseSubmitting, s.Phase)
		require.Len(t, effects, 1)
		create, ok := effects[0].(CreateBill)
		require.True(t, ok)
		assert.Equal(t, bills.StatusPending, create.Payload.Bill.Status)
		assert.Equal(t, "a@a", create.Payload.Bill.Email)
		assert.Same(t, s.File, create.Payload.File)
	})

	t.Run("second submit while in flight", func(t *testing.T) {
		s := NewBillState{Phase: PhaseSubmitting, File: &jpeg}
		next, effects, err := ReduceSubmit(s, taxiForm, employee)
		assert.ErrorIs(t, err, ErrSubmissionInFlight)
		assert.Empty(t, effects)
		assert.Equal(t, s, next)
	})

	t.Run("editing updates without a new receipt", func(t *testing.T) {
		existing := store.DefaultFixtures()[0]
		s, effects, err := ReduceSubmit(EditState(existing), taxiForm, employee)
		require.NoError(t, err)
		assert.Equal(t, PhaseSubmitting, s.Phase)
		update, ok := effects[0].(UpdateBill)
		require.True(t, ok)
		assert.Equal(t, existing.ID, update.Payload.Bill.ID)
		assert.Equal(t, existing.FileURL, update.Payload.Bill.FileURL)
		assert.Nil(t, update.Payload.File)
	})

	t.Run("invalid fields", func(t *testing.T) {
		s, _ := ReduceChangeFile(NewBillState{}, jpeg)
		form := taxiForm
		form.Amount = "beaucoup"
		s, effects, err := ReduceSubmit(s, form, employee)
		require.Error(t, err)
		assert.True(t, bills.IsValidationError(err))
		assert.Equal(t, PhaseFileSelected, s.Phase)
		assert.Equal(t, []Effect{ShowError{Message: err.Error()}}, effects)
	})
}

func TestBuildBill(t *testing.T) {
	t.Run("percentage defaults to 20", func(t *testing.T) {
		form := taxiForm
		form.Pct = ""
		b, err := BuildBill(form, employee, nil)
		require.NoError(t, err)
		assert.Equal(t, 20, b.Pct)

		form.Pct = "abc"
		b, err = BuildBill(form, employee, nil)
		require.NoError(t, err)
		assert.Equal(t, 20, b.Pct)
	})

	t.Run("decimal amounts", func(t *testing.T) {
		form := taxiForm
		form.Amount = "12.50"
		form.VAT = ""
		b, err := BuildBill(form, employee, nil)
		require.NoError(t, err)
		assert.True(t, b.Amount.Equal(decimal.RequireFromString("12.5")))
		assert.True(t, b.VAT.IsZero())
	})
}

// Submitting the taxi bill with a valid receipt: one create, status pending,
// one navigation to the bills list.
func TestSubmitTaxiScenario(t *testing.T) {
	mock := store.NewMock(nil)
	f := newNewBillContainer(mock, NewBillState{})

	require.NoError(t, f.c.HandleChangeFile(jpeg))
	assert.Contains(t, f.doc.Body(), views.ClassValid)

	require.NoError(t, f.c.HandleSubmit(context.Background(), taxiForm))

	require.Len(t, mock.Created, 1)
	assert.Empty(t, mock.Updated)
	created := mock.Created[0]
	assert.Equal(t, bills.StatusPending, created.Bill.Status)
	assert.Equal(t, "Transports", created.Bill.Type)
	assert.Equal(t, "Taxi", created.Bill.Name)
	assert.Equal(t, "2022-07-02", created.Bill.Date)
	assert.True(t, created.Bill.Amount.Equal(decimal.NewFromInt(50)))
	assert.True(t, created.Bill.VAT.Equal(decimal.NewFromInt(10)))
	assert.Equal(t, 20, created.Bill.Pct)
	require.NotNil(t, created.File)
	assert.Equal(t, "receipt.jpg", created.File.Name)

	assert.Equal(t, []string{RouteBills}, f.navigated)

	state := f.c.State()
	assert.Equal(t, PhaseIdle, state.Phase)
	assert.Nil(t, state.File)
	require.NotNil(t, state.Saved)
	assert.NotEmpty(t, state.Saved.ID)

	require.Len(t, f.journal.records, 1)
	assert.Equal(t, db.OperationCreate, f.journal.records[0].Operation)
	assert.Equal(t, db.OutcomeSuccess, f.journal.records[0].Outcome)
	assert.Equal(t, state.Saved.ID, f.journal.records[0].BillID)
}

// A PDF is refused and no create can happen until an image replaces it.
func TestSubmitPDFScenario(t *testing.T) {
	mock := store.NewMock(nil)
	f := newNewBillContainer(mock, NewBillState{})

	require.NoError(t, f.c.HandleChangeFile(pdf))
	assert.Contains(t, f.doc.Body(), views.ClassInvalid)
	assert.Equal(t, FileInvalid, f.c.State().FileStatus)

	err := f.c.HandleSubmit(context.Background(), taxiForm)
	assert.ErrorIs(t, err, ErrNoValidFile)
	assert.Empty(t, mock.Created)
	assert.Empty(t, f.navigated)
	assert.Contains(t, f.doc.Body(), MissingFileMessage)
	assert.Empty(t, f.journal.records)

	require.NoError(t, f.c.HandleChangeFile(jpeg))
	require.NoError(t, f.c.HandleSubmit(context.Background(), taxiForm))
	assert.Len(t, mock.Created, 1)
	assert.Equal(t, []string{RouteBills}, f.navigated)
}

func TestSubmitStoreFailure(t *testing.T) {
	mock := store.NewMock(nil)
	mock.Fail(errors.New("Erreur 500"))
	f := newNewBillContainer(mock, NewBillState{})

	require.NoError(t, f.c.HandleChangeFile(jpeg))
	require.NoError(t, f.c.HandleSubmit(context.Background(), taxiForm), "store failures are rendered, not returned")

	assert.Len(t, mock.Created, 1)
	assert.Empty(t, f.navigated)
	body := f.doc.Body()
	assert.Contains(t, body, "Erreur 500")
	assert.Contains(t, body, `value="Taxi"`, "the form keeps its values")

	state := f.c.State()
	assert.Equal(t, PhaseIdle, state.Phase)
	assert.NotNil(t, state.File, "the receipt stays for the next attempt")

	require.Len(t, f.journal.records, 1)
	assert.Equal(t, db.OutcomeFailure, f.journal.records[0].Outcome)
	assert.Equal(t, "Erreur 500", f.journal.records[0].ErrorMessage)

	// No automatic retry: the employee resubmits.
	mock.Fail(nil)
	require.NoError(t, f.c.HandleSubmit(context.Background(), taxiForm))
	assert.Len(t, mock.Created, 2)
	assert.Equal(t, []string{RouteBills}, f.navigated)
}

func TestSubmitEditUpdates(t *testing.T) {
	mock := store.NewMock(store.DefaultFixtures())
	existing := store.DefaultFixtures()[0]
	f := newNewBillContainer(mock, EditState(existing))

	require.NoError(t, f.c.Render())
	assert.Contains(t, f.doc.Body(), "Modifier une note de frais")

	form := EditState(existing).Form
	form.Name = "encore modifié"
	require.NoError(t, f.c.HandleSubmit(context.Background(), form))

	require.Len(t, mock.Updated, 1)
	assert.Empty(t, mock.Created)
	assert.Equal(t, existing.ID, mock.Updated[0].Bill.ID)
	assert.Equal(t, bills.StatusPending, mock.Updated[0].Bill.Status)
	assert.Equal(t, []string{RouteBills}, f.navigated)
	assert.Equal(t, db.OperationUpdate, f.journal.records[0].Operation)
}

// blockingStore holds Create until release is closed.
type blockingStore struct {
	*store.Mock
	entered chan struct{}
	release chan struct{}
}

func (b *blockingStore) Create(ctx context.Context, p store.Payload) (*bills.Bill, error) {
	close(b.entered)
	<-b.release
	return b.Mock.Create(ctx, p)
}

func TestSubmitInFlightGuard(t *testing.T) {
	st := &blockingStore{Mock: store.NewMock(nil), entered: make(chan struct{}), release: make(chan struct{})}
	f := newNewBillContainer(st, NewBillState{})
	require.NoError(t, f.c.HandleChangeFile(jpeg))

	done := make(chan error, 1)
	go func() { done <- f.c.HandleSubmit(context.Background(), taxiForm) }()
	<-st.entered

	err := f.c.HandleSubmit(context.Background(), taxiForm)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)

	close(st.release)
	require.NoError(t, <-done)
	assert.Len(t, st.Created, 1)
}
