// Package containers coordinates the bills pages: each container turns an
// employee action into a new state and a list of effects, then carries the
// effects out against the store, the render target and the router.
//
// The reducers (Reduce* functions) are pure; the container types are the
// only place that performs I/O.
package containers

import (
	"errors"

	"github.com/pigeonworks-llc/billed/pkg/db"
	"github.com/pigeonworks-llc/billed/pkg/store"
)

// Logical route names.
const (
	RouteLogin   = "Login"
	RouteBills   = "Bills"
	RouteNewBill = "NewBill"
)

// UserTypeEmployee is the only session type the bills pages serve.
const UserTypeEmployee = "Employee"

var (
	// ErrSubmissionInFlight is returned when a bill is submitted while the
	// previous submission of the same form has not completed.
	ErrSubmissionInFlight = errors.New("submission already in progress")

	// ErrNoValidFile is returned when a new bill is submitted without a
	// validated receipt.
	ErrNoValidFile = errors.New("a valid receipt image is required")
)

// Session is the connected user, injected into every container.
type Session struct {
	Type  string `json:"type"`
	Email string `json:"email"`
}

// Navigator moves the UI to a logical route.
type Navigator func(pathname string)

// Effect is a side effect requested by a reducer.
type Effect interface {
	effect()
}

// Navigate asks for the UI to move to Pathname.
type Navigate struct {
	Pathname string
}

// ShowModal asks for the receipt modal to be displayed.
type ShowModal struct {
	URL   string
	Width int
}

// MarkFileInput asks for the file input to be shown valid or invalid.
type MarkFileInput struct {
	Valid bool
}

// CreateBill asks the store to create a bill.
type CreateBill struct {
	Payload store.Payload
}

// UpdateBill asks the store to update a bill.
type UpdateBill struct {
	Payload store.Payload
}

// ShowError asks for Message to be shown next to the form.
type ShowError struct {
	Message string
}

func (Navigate) effect()      {}
func (ShowModal) effect()     {}
func (MarkFileInput) effect() {}
func (CreateBill) effect()    {}
func (UpdateBill) effect()    {}
func (ShowError) effect()     {}

// SubmissionRecorder keeps a journal of submissions; *db.Journal is one.
type SubmissionRecorder interface {
	Record(s db.Submission) error
}
