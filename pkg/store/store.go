// Package store provides the bills Store Client: the remote persistence
// capability the containers list, create and update bills through.
package store

import (
	"context"
	"fmt"

	"github.com/pigeonworks-llc/billed/pkg/bills"
)

// Store is the bills resource of the remote store.
//
// Errors returned by implementations carry a message meant to be shown to the
// employee as is, such as "Erreur 404" or "Erreur 500".
type Store interface {
	List(ctx context.Context) ([]bills.Bill, error)
	Create(ctx context.Context, p Payload) (*bills.Bill, error)
	Update(ctx context.Context, p Payload) (*bills.Bill, error)
}

// Payload is a bill together with the receipt to upload with it, if any.
type Payload struct {
	Bill bills.Bill
	File *bills.File
}

// APIError is a non-2xx answer from the store.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("Erreur %d", e.StatusCode)
}

// NetworkError is a request that never got an answer from the store.
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return "Erreur réseau: " + e.Err.Error()
}

func (e *NetworkError) Unwrap() error { return e.Err }
