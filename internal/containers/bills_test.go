package containers

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pigeonworks-llc/billed/internal/views"
	"github.com/pigeonworks-llc/billed/pkg/bills"
	"github.com/pigeonworks-llc/billed/pkg/store"
)

var employee = Session{Type: UserTypeEmployee, Email: "a@a"}

func TestReduceBillsLoaded(t *testing.T) {
	t.Run("rows latest first with display dates", func(t *testing.T) {
		state, bad := ReduceBillsLoaded(store.DefaultFixtures(), nil)

		require.Len(t, state.Rows, 4)
		assert.Empty(t, bad)
		assert.Empty(t, state.Error)
		assert.Equal(t, "2004-04-04", state.Rows[0].Bill.Date)
		assert.Equal(t, "4 Avr. 04", state.Rows[0].DisplayDate)
		assert.Equal(t, "2001-01-01", state.Rows[3].Bill.Date)
		assert.Equal(t, "1 Jan. 01", state.Rows[3].DisplayDate)
	})

	t.Run("store error kept verbatim", func(t *testing.T) {
		state, _ := ReduceBillsLoaded(nil, errors.New("Erreur 404"))
		assert.Equal(t, "Erreur 404", state.Error)
		assert.Empty(t, state.Rows)
	})

	t.Run("malformed date shown unformatted", func(t *testing.T) {
		state, bad := ReduceBillsLoaded([]bills.Bill{{ID: "broken", Date: "2021-13-45"}}, nil)
		require.Len(t, state.Rows, 1)
		assert.Equal(t, []string{"broken"}, bad)
		assert.Equal(t, "2021-13-45", state.Rows[0].Date())
	})
}

func newBillsContainer(st store.Store) (*Bills, *views.Document, *[]string) {
	doc := views.NewDocument()
	var navigated []string
	c := NewBills(BillsConfig{
		Document: doc,
		Store:    st,
		Navigate: func(p string) { navigated = append(navigated, p) },
		Session:  employee,
	})
	return c, doc, &navigated
}

// peekingStore captures the document when List is called.
type peekingStore struct {
	*store.Mock
	doc  *views.Document
	seen string
}

func (p *peekingStore) List(ctx context.Context) ([]bills.Bill, error) {
	p.seen = p.doc.Body()
	return p.Mock.List(ctx)
}

func TestBillsListShowsLoading(t *testing.T) {
	st := &peekingStore{Mock: store.NewMock(store.DefaultFixtures())}
	c, doc, _ := newBillsContainer(st)
	st.doc = doc

	require.NoError(t, c.List(context.Background()))

	assert.Contains(t, st.seen, "Loading...")
	assert.False(t, c.State().Loading)
	assert.NotContains(t, doc.Body(), "Loading...")
	assert.Len(t, c.State().Rows, 4)
}

func TestBillsList(t *testing.T) {
	mock := store.NewMock(store.DefaultFixtures())
	c, doc, _ := newBillsContainer(mock)

	require.NoError(t, c.List(context.Background()))

	body := doc.Body()
	assert.Equal(t, 1, mock.ListCalls)
	assert.Contains(t, body, "Mes notes de frais")
	first := strings.Index(body, "4 Avr. 04")
	last := strings.Index(body, "1 Jan. 01")
	require.True(t, first >= 0 && last >= 0, "formatted dates missing")
	assert.Less(t, first, last, "latest bill must come first")
}

func TestBillsListStoreFailure(t *testing.T) {
	for _, msg := range []string{"Erreur 404", "Erreur 500"} {
		t.Run(msg, func(t *testing.T) {
			mock := store.NewMock(store.DefaultFixtures())
			mock.Fail(errors.New(msg))
			c, doc, _ := newBillsContainer(mock)

			assert.NotPanics(t, func() {
				require.NoError(t, c.List(context.Background()))
			})
			assert.Contains(t, doc.Body(), msg)
			assert.NotContains(t, doc.Body(), `data-testid="tbody"`)
			assert.Equal(t, msg, c.State().Error)
		})
	}
}

func TestBillsListWithoutStore(t *testing.T) {
	c, doc, _ := newBillsContainer(nil)

	require.NoError(t, c.List(context.Background()))
	assert.Contains(t, doc.Body(), `data-testid="tbody"`)
	assert.NotContains(t, doc.Body(), `data-testid="icon-eye"`)
}

func TestHandleClickIconEye(t *testing.T) {
	tests := []struct {
		name        string
		url         string
		placeholder bool
	}{
		{"with receipt", "https://test.storage.tld/receipt.jpg", false},
		{"empty url", "", true},
		{"null url", "null", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, doc, _ := newBillsContainer(store.NewMock(store.DefaultFixtures()))
			require.NoError(t, c.List(context.Background()))
			assert.NotContains(t, doc.Body(), `class="modal`)

			require.NoError(t, c.HandleClickIconEye(views.Icon{BillURL: tt.url}))

			body := doc.Body()
			assert.Contains(t, body, `class="modal`)
			assert.Contains(t, body, "Mes notes de frais", "the table stays under the modal")
			if tt.placeholder {
				assert.Contains(t, body, "Aucun justificatif")
			} else {
				assert.Contains(t, body, `src="`+tt.url+`"`)
				assert.Contains(t, body, `width="400"`)
			}
		})
	}
}

func TestReduceClickIconEye(t *testing.T) {
	_, effects := ReduceClickIconEye(BillsState{}, views.Icon{BillURL: "https://x/r.png"})
	assert.Equal(t, []Effect{ShowModal{URL: "https://x/r.png", Width: 400}}, effects)
}

func TestHandleClickNewBill(t *testing.T) {
	c, doc, navigated := newBillsContainer(nil)

	require.NoError(t, c.HandleClickNewBill())

	assert.Equal(t, []string{RouteNewBill}, *navigated)
	assert.Empty(t, doc.Body(), "navigation is the only effect")
}
