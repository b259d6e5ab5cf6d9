package views

import (
	"io"

	"github.com/pigeonworks-llc/billed/pkg/bills"
)

// CSS classes of the file input.
const (
	ClassValid   = "blue-border"
	ClassInvalid = "red-border"
)

// BillForm holds the raw values typed in the new-bill form.
type BillForm struct {
	Type       string
	Name       string
	Date       string
	Amount     string
	VAT        string
	Pct        string
	Commentary string
}

// NewBillPage is the data of the new-bill (or edit-bill) page.
type NewBillPage struct {
	Action    string
	Form      BillForm
	FileClass string // ClassValid, ClassInvalid or empty
	FileName  string // receipt already kept for this form
	HasFile   bool
	Editing   bool
	Error     string
}

// NewBill renders the new-bill form.
func NewBill(w io.Writer, page NewBillPage) error {
	if page.Action == "" {
		page.Action = "/employee/bill/new"
	}
	return templates.ExecuteTemplate(w, "newbill", struct {
		NewBillPage
		ExpenseTypes []string
	}{
		NewBillPage:  page,
		ExpenseTypes: bills.ExpenseTypes,
	})
}

// LoginPage is the data of the login page.
type LoginPage struct {
	Email string
	Error string
}

// Login renders the employee login page.
func Login(w io.Writer, page LoginPage) error {
	return templates.ExecuteTemplate(w, "login", page)
}
