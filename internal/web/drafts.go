package web

import (
	"sync"
	"time"

	"github.com/pigeonworks-llc/billed/internal/containers"
)

// DraftTTL is how long an untouched draft keeps its form and receipt.
const DraftTTL = 30 * time.Minute

type draft struct {
	email string
	state containers.NewBillState
	saved time.Time
}

// drafts keeps the NewBill form state between requests, per employee and form.
// Expired drafts are swept on access.
type drafts struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	states map[string]draft
}

func newDrafts(ttl time.Duration) *drafts {
	if ttl <= 0 {
		ttl = DraftTTL
	}
	return &drafts{ttl: ttl, now: time.Now, states: make(map[string]draft)}
}

func draftKey(email, form string) string {
	return email + "|" + form
}

// sweep drops expired drafts. d.mu must be held.
func (d *drafts) sweep() {
	deadline := d.now().Add(-d.ttl)
	for key, dr := range d.states {
		if dr.saved.Before(deadline) {
			delete(d.states, key)
		}
	}
}

func (d *drafts) get(key string) (containers.NewBillState, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweep()
	dr, ok := d.states[key]
	return dr.state, ok
}

func (d *drafts) put(email, key string, s containers.NewBillState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sweep()
	// A saved draft is never mid-submission.
	if s.Phase == containers.PhaseSubmitting {
		s.Phase = containers.PhaseIdle
	}
	d.states[key] = draft{email: email, state: s, saved: d.now()}
}

func (d *drafts) drop(key string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.states, key)
}

// dropEmployee removes every draft of email.
func (d *drafts) dropEmployee(email string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for key, dr := range d.states {
		if dr.email == email {
			delete(d.states, key)
		}
	}
}

func (d *drafts) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.states)
}
