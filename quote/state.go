package quote

import (
	"slices"
	"time"

	"github.com/xraph/medquote/id"
)

var transitions = map[State][]State{
	StateOpen:     {StateSelected, StateExpired, StateCancelled},
	StateSelected: {StateBooked, StateCancelled},
}

// CanTransition reports whether the state machine allows s -> to.
func (s State) CanTransition(to State) bool {
	return slices.Contains(transitions[s], to)
}

// Terminal reports whether no further transitions leave s.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}

// Locked reports whether visibility and quote generation are frozen.
func (s State) Locked() bool {
	return s != StateOpen
}

// Transition is a compare-and-set state change applied by a Store.
// The store must apply it only when the request is currently in From and,
// if NotExpiredAt is set, the request's ExpiresAt is after it.
type Transition struct {
	RequestID    id.RequestID
	From         State
	To           State
	At           time.Time
	NotExpiredAt time.Time

	SelectedQuoteID    id.QuoteID
	SelectedProviderID id.ProviderID

	BookingID  id.BookingID
	DepositRef string
	ConsentAt  *time.Time

	CancelNote string
}

// Apply mutates r to reflect the transition. Callers check the guard first.
func (t Transition) Apply(r *Request) {
	at := t.At.UTC()
	r.State = t.To
	r.UpdatedAt = at

	switch t.To {
	case StateSelected:
		r.SelectedQuoteID = t.SelectedQuoteID
		r.SelectedProviderID = t.SelectedProviderID
		r.SelectedAt = &at
	case StateBooked:
		r.BookingID = t.BookingID
		r.DepositRef = t.DepositRef
		r.ConsentAt = t.ConsentAt
		r.BookedAt = &at
	case StateCancelled:
		r.CancelledAt = &at
		r.CancelNote = t.CancelNote
	}
}

// Allowed reports whether t's guard holds for r.
func (t Transition) Allowed(r *Request) bool {
	if r.State != t.From {
		return false
	}
	if !t.NotExpiredAt.IsZero() && r.Expired(t.NotExpiredAt) {
		return false
	}
	return true
}
