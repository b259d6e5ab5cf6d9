package store

import (
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/pigeonworks-llc/billed/pkg/bills"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	st, err := New(filepath.Join(t.TempDir(), "emulator.db"))
	if err != nil {
		t.Fatalf("Failed to initialize store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })

	return st
}

func TestCreateAndGetBill(t *testing.T) {
	st := newTestStore(t)

	created, err := st.CreateBill(bills.Bill{
		Email:  "a@a",
		Type:   "Transports",
		Name:   "Taxi",
		Amount: decimal.NewFromInt(50),
		Date:   "2022-07-02",
	})
	if err != nil {
		t.Fatalf("CreateBill() error: %v", err)
	}
	if created.ID == "" {
		t.Fatal("CreateBill() did not assign an id")
	}
	if created.Status != bills.StatusPending {
		t.Errorf("Status = %q, expected pending", created.Status)
	}

	got, err := st.GetBill(created.ID)
	if err != nil {
		t.Fatalf("GetBill() error: %v", err)
	}
	if got.Name != "Taxi" || !got.Amount.Equal(decimal.NewFromInt(50)) {
		t.Errorf("unexpected bill: %+v", got)
	}

	if _, err := st.GetBill("nope"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateBillKeepsReceipt(t *testing.T) {
	st := newTestStore(t)

	created, err := st.CreateBill(bills.Bill{Name: "Taxi", FileName: "r.jpg", FileURL: "http://files/r.jpg", Status: bills.StatusPending})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := st.UpdateBill(created.ID, bills.Bill{Name: "Taxi de nuit"})
	if err != nil {
		t.Fatalf("UpdateBill() error: %v", err)
	}
	if updated.ID != created.ID || updated.Name != "Taxi de nuit" {
		t.Errorf("unexpected update: %+v", updated)
	}
	if updated.FileURL != "http://files/r.jpg" || updated.Status != bills.StatusPending {
		t.Errorf("receipt or status lost: %+v", updated)
	}

	if _, err := st.UpdateBill("nope", bills.Bill{}); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListAndSeedBills(t *testing.T) {
	st := newTestStore(t)

	seed := []bills.Bill{
		{ID: "one", Email: "a@a", Name: "first"},
		{ID: "two", Email: "b@b", Name: "second"},
	}
	added, err := st.SeedBills(seed)
	if err != nil || added != 2 {
		t.Fatalf("SeedBills() = %d, %v", added, err)
	}

	added, err = st.SeedBills(seed)
	if err != nil || added != 0 {
		t.Errorf("reseeding should add nothing, got %d, %v", added, err)
	}

	all, err := st.ListBills("")
	if err != nil || len(all) != 2 {
		t.Fatalf("ListBills() = %d, %v", len(all), err)
	}

	mine, err := st.ListBills("a@a")
	if err != nil || len(mine) != 1 || mine[0].ID != "one" {
		t.Errorf("ListBills(a@a) = %+v, %v", mine, err)
	}

	if _, err := st.SeedBills([]bills.Bill{{Name: "no id"}}); err == nil {
		t.Error("seeding a bill without id should fail")
	}
}

func TestDeleteStringsWhere(t *testing.T) {
	st := newTestStore(t)

	for _, k := range []string{"a", "b", "c"} {
		if err := st.PutString(BucketTokens, k, k+"-value"); err != nil {
			t.Fatal(err)
		}
	}

	removed, err := st.DeleteStringsWhere(BucketTokens, func(key, value string) bool {
		return key != "b"
	})
	if err != nil || removed != 2 {
		t.Fatalf("DeleteStringsWhere() = %d, %v", removed, err)
	}
	if v, err := st.GetString(BucketTokens, "b"); err != nil || v != "b-value" {
		t.Errorf("GetString(b) = %q, %v", v, err)
	}
	if _, err := st.GetString(BucketTokens, "a"); err != ErrNotFound {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
