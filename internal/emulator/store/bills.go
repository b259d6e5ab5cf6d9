package store

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/pigeonworks-llc/billed/pkg/bills"
)

// CreateBill stores a new bill under a fresh id.
func (s *Store) CreateBill(b bills.Bill) (*bills.Bill, error) {
	b.ID = uuid.NewString()
	if b.Status == "" {
		b.Status = bills.StatusPending
	}

	if err := s.Put(BucketBills, b.ID, b); err != nil {
		return nil, fmt.Errorf("failed to store bill: %w", err)
	}

	return &b, nil
}

// GetBill retrieves a bill by id.
func (s *Store) GetBill(id string) (*bills.Bill, error) {
	var b bills.Bill
	if err := s.Get(BucketBills, id, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBill replaces the bill stored under id. The stored receipt is kept
// when the replacement carries none.
func (s *Store) UpdateBill(id string, replacement bills.Bill) (*bills.Bill, error) {
	var current bills.Bill
	err := s.Update(BucketBills, id, &current, func() error {
		if !replacement.HasFile() {
			replacement.FileURL = current.FileURL
			replacement.FileName = current.FileName
		}
		if replacement.Status == "" {
			replacement.Status = current.Status
		}
		replacement.ID = id
		current = replacement
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &current, nil
}

// ListBills lists bills, restricted to one employee when email is not empty.
func (s *Store) ListBills(email string) ([]bills.Bill, error) {
	filter := func(data []byte) bool {
		if email == "" {
			return true
		}
		var b bills.Bill
		if err := json.Unmarshal(data, &b); err != nil {
			return false
		}
		return b.Email == email
	}

	results, err := s.List(BucketBills, filter)
	if err != nil {
		return nil, err
	}

	list := make([]bills.Bill, 0, len(results))
	for _, data := range results {
		var b bills.Bill
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("failed to unmarshal bill: %w", err)
		}
		list = append(list, b)
	}

	return list, nil
}

// SeedBills stores bills under their own ids, skipping ids already present.
// It returns how many bills were added.
func (s *Store) SeedBills(list []bills.Bill) (int, error) {
	added := 0
	for _, b := range list {
		if b.ID == "" {
			return added, fmt.Errorf("seed bill %q: %w", b.Name, ErrInvalidID)
		}

		var existing bills.Bill
		err := s.Get(BucketBills, b.ID, &existing)
		if err == nil {
			continue
		}
		if err != ErrNotFound {
			return added, err
		}

		if err := s.Put(BucketBills, b.ID, b); err != nil {
			return added, fmt.Errorf("failed to seed bill %s: %w", b.ID, err)
		}
		added++
	}

	return added, nil
}
