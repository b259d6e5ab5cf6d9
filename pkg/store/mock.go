package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/pigeonworks-llc/billed/pkg/bills"
)

// MockUpdateID is the bill an id-less Update resolves to.
const MockUpdateID = "47qAXb6fIm2zOKkLzMro"

// Mock is an in-memory Store seeded with fixtures. It records every call and
// can be told to fail, which makes it the store of choice in tests and in
// `billed serve --mock`.
type Mock struct {
	mu      sync.Mutex
	bills   []bills.Bill
	nextID  int
	failErr error

	ListCalls int
	Created   []Payload
	Updated   []Payload
}

// NewMock returns a Mock holding a copy of seed.
func NewMock(seed []bills.Bill) *Mock {
	m := &Mock{bills: make([]bills.Bill, len(seed))}
	copy(m.bills, seed)
	return m
}

// Fail makes every later call return err. A nil err restores normal operation.
func (m *Mock) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failErr = err
}

// List implements Store.
func (m *Mock) List(ctx context.Context) ([]bills.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.ListCalls++
	if m.failErr != nil {
		return nil, m.failErr
	}

	out := make([]bills.Bill, len(m.bills))
	copy(out, m.bills)
	return out, nil
}

// Create implements Store.
func (m *Mock) Create(ctx context.Context, p Payload) (*bills.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Created = append(m.Created, p)
	if m.failErr != nil {
		return nil, m.failErr
	}

	m.nextID++
	b := p.Bill
	b.ID = fmt.Sprintf("mock-%d", m.nextID)
	if p.File != nil {
		b.FileName = p.File.Name
		b.FileURL = "https://localhost:3456/images/" + p.File.Name
	}
	m.bills = append(m.bills, b)
	return &b, nil
}

// Update implements Store.
func (m *Mock) Update(ctx context.Context, p Payload) (*bills.Bill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Updated = append(m.Updated, p)
	if m.failErr != nil {
		return nil, m.failErr
	}

	id := p.Bill.ID
	if id == "" {
		id = MockUpdateID
	}
	for i := range m.bills {
		if m.bills[i].ID != id {
			continue
		}
		b := p.Bill
		b.ID = id
		if p.File != nil {
			b.FileName = p.File.Name
			b.FileURL = "https://localhost:3456/images/" + p.File.Name
		} else if !b.HasFile() {
			b.FileName = m.bills[i].FileName
			b.FileURL = m.bills[i].FileURL
		}
		m.bills[i] = b
		return &b, nil
	}

	return nil, &APIError{StatusCode: 404, Code: "not_found", Description: "Bill not found"}
}
