// Package quote models a transport quote request, the provider quotes fanned
// out for it, and the state machine that governs selection and booking.
package quote

import (
	"fmt"
	"time"

	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/types"
)

// State is the lifecycle state of a quote request.
type State string

const (
	StateOpen      State = "open"
	StateSelected  State = "selected"
	StateBooked    State = "booked"
	StateExpired   State = "expired"
	StateCancelled State = "cancelled"
)

// Urgency is the requester's timing need.
type Urgency string

const (
	UrgencyStandard Urgency = "standard"
	UrgencySameDay  Urgency = "same_day"
	UrgencyCritical Urgency = "critical"
)

// Tier is the fairness partition a quote was ranked in.
type Tier string

const (
	TierHigh Tier = "high"
	TierLow  Tier = "low"
)

// Defaults for request lifetime and visibility.
const (
	DefaultTTL          = 24 * time.Hour
	DefaultVisibleCount = 5
	DefaultVisibleStep  = 5
	CompassionateAfter  = 5 * time.Minute
)

// TrainingLabel marks every artifact derived from a training request.
const TrainingLabel = "DUMMY DATA - TRAINING MODE"

// Request is a requester's transport request and its persisted fan-out.
type Request struct {
	types.Entity

	ID            id.RequestID         `json:"id"`
	RequesterRef  string               `json:"requester_ref"`
	Origin        string               `json:"origin"`
	Destination   string               `json:"destination"`
	Equipment     []provider.Equipment `json:"equipment"`
	Urgency       Urgency              `json:"urgency"`
	International bool                 `json:"international"`
	Subscriber    bool                 `json:"subscriber"`
	Training      bool                 `json:"training"`

	State        State     `json:"state"`
	ExpiresAt    time.Time `json:"expires_at"`
	VisibleCount int       `json:"visible_count"`

	SelectedQuoteID    id.QuoteID    `json:"selected_quote_id,omitempty"`
	SelectedProviderID id.ProviderID `json:"selected_provider_id,omitempty"`
	SelectedAt         *time.Time    `json:"selected_at,omitempty"`

	BookingID   id.BookingID `json:"booking_id,omitempty"`
	DepositRef  string       `json:"deposit_ref,omitempty"`
	ConsentAt   *time.Time   `json:"consent_at,omitempty"`
	BookedAt    *time.Time   `json:"booked_at,omitempty"`
	CancelledAt *time.Time   `json:"cancelled_at,omitempty"`
	CancelNote  string       `json:"cancel_reason,omitempty"`

	Quotes []ProviderQuote `json:"quotes"`
}

// ProviderQuote is one provider's priced answer to a request. The set is
// generated once at allocation and never changes afterwards.
type ProviderQuote struct {
	ID                      id.QuoteID    `json:"id"`
	ProviderID              id.ProviderID `json:"provider_id"`
	ProviderName            string        `json:"provider_name,omitempty"`
	MaskedName              string        `json:"masked_name"`
	Price                   types.Money   `json:"price"`
	EquipmentCost           types.Money   `json:"equipment_cost"`
	Responded               bool          `json:"responded"`
	Tier                    Tier          `json:"tier"`
	ResponseRate30d         float64       `json:"response_rate_30d"`
	Spotlight               bool          `json:"spotlight"`
	Rank                    int           `json:"rank"` // 1-based among responders, 0 otherwise
	ETAHours                int           `json:"eta_hours"`
	Priority                bool          `json:"priority"`
	GroundTransportIncluded bool          `json:"ground_transport_included"`
}

// Expired reports whether the request's window has closed at now.
func (r *Request) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// Responded returns the ranked responding quotes.
func (r *Request) Responded() []ProviderQuote {
	out := make([]ProviderQuote, 0, len(r.Quotes))
	for _, q := range r.Quotes {
		if q.Responded {
			out = append(out, q)
		}
	}
	return out
}

// FindQuote returns the quote with the given ID.
func (r *Request) FindQuote(quoteID id.QuoteID) (*ProviderQuote, bool) {
	for i := range r.Quotes {
		if r.Quotes[i].ID.String() == quoteID.String() {
			return &r.Quotes[i], true
		}
	}
	return nil, false
}

// MaskedName builds the anonymous label shown before selection:
// rank 1 -> "Affiliate A****", 27 -> "Affiliate AA****".
func MaskedName(rank int) string {
	if rank < 1 {
		return "Affiliate ****"
	}
	label := ""
	for n := rank; n > 0; n = (n - 1) / 26 {
		label = string(rune('A'+(n-1)%26)) + label
	}
	return fmt.Sprintf("Affiliate %s****", label)
}

// ListOpts filters request listings.
type ListOpts struct {
	RequesterRef string
	State        State
	Limit        int
	Offset       int
}
