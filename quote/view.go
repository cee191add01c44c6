package quote

import (
	"time"

	"github.com/xraph/medquote/id"
)

// View is what the requester sees: the visible slice of ranked quotes,
// masked until a provider has been selected.
type View struct {
	RequestID     id.RequestID    `json:"request_id"`
	State         State           `json:"state"`
	ExpiresAt     time.Time       `json:"expires_at"`
	Quotes        []ProviderQuote `json:"quotes"`
	Remaining     int             `json:"remaining"`
	Compassionate bool            `json:"compassionate"`
	Label         string          `json:"label,omitempty"`
}

// NewView renders the requester-facing view of r at now.
func NewView(r *Request, now time.Time) *View {
	responded := r.Responded()

	visible := min(r.VisibleCount, len(responded))
	quotes := make([]ProviderQuote, visible)
	for i, q := range responded[:visible] {
		if r.SelectedQuoteID.IsNil() || q.ID.String() != r.SelectedQuoteID.String() {
			q.ProviderName = ""
			q.ProviderID = id.Nil
		}
		quotes[i] = q
	}

	v := &View{
		RequestID: r.ID,
		State:     r.State,
		ExpiresAt: r.ExpiresAt,
		Quotes:    quotes,
		Remaining: len(responded) - visible,
		Compassionate: len(responded) == 0 &&
			now.Sub(r.CreatedAt) >= CompassionateAfter,
	}
	if r.Training {
		v.Label = TrainingLabel
	}
	return v
}
