// Package invoice consolidates commission entries into one invoice per
// provider and week, and renders invoices for remittance.
package invoice

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/types"
)

// Status is the payment state of an invoice.
type Status string

const (
	StatusIssued Status = "issued"
	StatusPaid   Status = "paid"
)

// PaymentMethod is how a provider settled an invoice.
type PaymentMethod string

const (
	PaymentACH   PaymentMethod = "ach"
	PaymentCheck PaymentMethod = "check"
	PaymentWire  PaymentMethod = "wire"
)

// IsValid reports whether m is a supported remittance channel.
func (m PaymentMethod) IsValid() bool {
	switch m {
	case PaymentACH, PaymentCheck, PaymentWire:
		return true
	}
	return false
}

// Payment is the remittance recorded when an invoice is paid.
type Payment struct {
	PaidAt        time.Time
	Method        PaymentMethod
	RemittanceRef string
}

// PaymentTerms is the time between issue and due date.
const PaymentTerms = 7 * 24 * time.Hour

// Invoice bills a provider for the commission on one week's bookings.
// (ProviderID, Week) is unique across all invoices.
type Invoice struct {
	types.Entity
	ID            id.InvoiceID  `json:"id"`
	Number        string        `json:"number"`
	ProviderID    id.ProviderID `json:"provider_id"`
	ProviderName  string        `json:"provider_name,omitempty"`
	Week          types.Week    `json:"week"`
	Lines         []Line        `json:"lines"`
	Total         types.Money   `json:"total"`
	Status        Status        `json:"status"`
	IssuedAt      time.Time     `json:"issued_at"`
	DueAt         time.Time     `json:"due_at"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
	PaymentMethod PaymentMethod `json:"payment_method,omitempty"`
	RemittanceRef string        `json:"remittance_ref,omitempty"`
}

// Line is a snapshot of one ledger entry taken at generation time.
type Line struct {
	EntryID       id.EntryID      `json:"entry_id"`
	BookingID     string          `json:"booking_id"`
	CompletedAt   time.Time       `json:"completed_at"`
	BaseAmount    types.Money     `json:"base_amount"`
	EffectiveRate commission.Rate `json:"effective_rate"`
	Commission    types.Money     `json:"commission"`
}

// Number formats an invoice number, e.g. "INV-2025W07-3VQJHP41".
func Number(week types.Week, providerID id.ProviderID) string {
	suffix := providerID.Suffix()
	if len(suffix) > 8 {
		suffix = suffix[len(suffix)-8:]
	}
	return fmt.Sprintf("INV-%dW%02d-%s", week.Year, week.Number, strings.ToUpper(suffix))
}

// Group is the set of uninvoiced entries for one (provider, week).
type Group struct {
	ProviderID id.ProviderID
	Week       types.Week
	Entries    []*commission.Entry
}

// GroupEntries buckets entries by (provider, week). Groups come back
// ordered by provider ID then week; entries keep their input order.
func GroupEntries(entries []*commission.Entry) []Group {
	index := make(map[string]int)
	var groups []Group
	for _, e := range entries {
		key := e.ProviderID.String() + "|" + e.InvoiceWeek.String()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{ProviderID: e.ProviderID, Week: e.InvoiceWeek})
		}
		groups[i].Entries = append(groups[i].Entries, e)
	}
	slices.SortFunc(groups, func(a, b Group) int {
		if c := cmp.Compare(a.ProviderID.String(), b.ProviderID.String()); c != 0 {
			return c
		}
		return cmp.Compare(a.Week.String(), b.Week.String())
	})
	return groups
}

// New builds an issued invoice from a group. Lines are ordered by
// completion time and Total is their commission sum.
func New(g Group, issuedAt time.Time) *Invoice {
	issuedAt = issuedAt.UTC()

	lines := make([]Line, 0, len(g.Entries))
	total := types.Zero("usd")
	for _, e := range g.Entries {
		lines = append(lines, Line{
			EntryID:       e.ID,
			BookingID:     e.BookingID,
			CompletedAt:   e.CompletedAt.UTC(),
			BaseAmount:    e.BaseAmount,
			EffectiveRate: e.EffectiveRate,
			Commission:    e.Commission,
		})
		total = total.Add(e.Commission)
	}
	slices.SortStableFunc(lines, func(a, b Line) int {
		if c := a.CompletedAt.Compare(b.CompletedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.BookingID, b.BookingID)
	})

	return &Invoice{
		Entity:     types.NewEntityAt(issuedAt),
		ID:         id.NewInvoiceID(),
		Number:     Number(g.Week, g.ProviderID),
		ProviderID: g.ProviderID,
		Week:       g.Week,
		Lines:      lines,
		Total:      total,
		Status:     StatusIssued,
		IssuedAt:   issuedAt,
		DueAt:      issuedAt.Add(PaymentTerms),
	}
}

// LineTotal recomputes the sum of line commissions.
func (inv *Invoice) LineTotal() types.Money {
	total := types.Zero(inv.Total.Currency)
	for _, l := range inv.Lines {
		total = total.Add(l.Commission)
	}
	return total
}

// ListOpts filters invoice listings.
type ListOpts struct {
	ProviderID id.ProviderID
	Status     Status
	Week       types.Week
	Limit      int
	Offset     int
}
