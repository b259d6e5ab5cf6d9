// Package bills defines the expense-report record shared by the store client,
// the containers and the emulator, plus its display helpers.
package bills

import (
	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// Status is the review state of a bill.
type Status string

const (
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusRefused  Status = "refused"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRefused:
		return true
	}
	return false
}

// DefaultPct is applied when a bill is submitted without a usable percentage.
const DefaultPct = 20

// ExpenseTypes lists the categories offered by the new-bill form.
var ExpenseTypes = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

// IsExpenseType reports whether t is one of ExpenseTypes.
func IsExpenseType(t string) bool {
	for _, et := range ExpenseTypes {
		if et == t {
			return true
		}
	}
	return false
}

// Bill is an employee expense report submitted for reimbursement.
// Date is YYYY-MM-DD. CommentAdmin is only written by the reviewer.
type Bill struct {
	ID           string          `json:"id" yaml:"id"`
	Email        string          `json:"email,omitempty" yaml:"email"`
	Type         string          `json:"type" yaml:"type"`
	Name         string          `json:"name" yaml:"name"`
	Amount       decimal.Decimal `json:"amount" yaml:"amount"`
	Date         string          `json:"date" yaml:"date"`
	VAT          decimal.Decimal `json:"vat" yaml:"vat"`
	Pct          int             `json:"pct" yaml:"pct"`
	Commentary   string          `json:"commentary,omitempty" yaml:"commentary"`
	CommentAdmin string          `json:"commentAdmin,omitempty" yaml:"commentAdmin"`
	FileURL      string          `json:"fileUrl" yaml:"fileUrl"`
	FileName     string          `json:"fileName" yaml:"fileName"`
	Status       Status          `json:"status" yaml:"status"`
}

// HasFile reports whether the bill already references an uploaded receipt.
func (b Bill) HasFile() bool {
	return b.FileURL != "" && b.FileURL != "null"
}
