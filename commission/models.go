// Package commission computes tiered commissions on completed bookings and
// keeps the per-provider recoup balance that selects the tier.
//
// A provider pays the discounted rate until its recoup balance reaches the
// policy threshold, with a fixed share of every discounted booking going
// toward the balance. After that the standard rate applies. Every completed
// booking leaves exactly one immutable Entry; the balance is derived from
// those entries and never decreases.
package commission

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/types"
)

// Kind distinguishes booking entries from balance adjustments.
type Kind string

const (
	KindBooking    Kind = "booking"
	KindAdjustment Kind = "adjustment"
)

// Rate is a commission rate in basis points (400 = 4%).
type Rate int64

// Decimal returns the rate as a multiplication factor (400 -> 0.04).
func (r Rate) Decimal() decimal.Decimal { return decimal.New(int64(r), -4) }

// Percent formats the rate as a percentage with two decimals, e.g. "4.00".
func (r Rate) Percent() string { return decimal.New(int64(r), -2).StringFixed(2) }

// Policy holds the two-tier commission schedule.
type Policy struct {
	Threshold      types.Money `json:"threshold"`
	DiscountedRate Rate        `json:"discounted_rate"`
	StandardRate   Rate        `json:"standard_rate"`
	RecoupRate     Rate        `json:"recoup_rate"`
}

// DefaultPolicy is 4% until 25,000 USD has been recouped at 1% of each
// booking, then 5%.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:      types.Dollars(25000),
		DiscountedRate: 400,
		StandardRate:   500,
		RecoupRate:     100,
	}
}

// Entry is an immutable ledger line.
type Entry struct {
	types.Entity

	ID         id.EntryID    `json:"id"`
	BookingID  string        `json:"booking_id"`
	ProviderID id.ProviderID `json:"provider_id"`
	Kind       Kind          `json:"kind"`

	BaseAmount       types.Money `json:"base_amount"`
	EffectiveRate    Rate        `json:"effective_rate"`
	Commission       types.Money `json:"commission"`
	RecoupApplied    types.Money `json:"recoup_applied"`
	RecoupTotalAfter types.Money `json:"recoup_total_after"`

	// Seq orders the provider's balance-bearing entries starting at 1.
	// Dummy entries carry 0 and never move the balance.
	Seq int64 `json:"seq"`

	IsDummy     bool       `json:"is_dummy"`
	InvoiceWeek types.Week `json:"invoice_week"`
	CompletedAt time.Time  `json:"completed_at"`
}

// Invoiceable reports whether the entry belongs on a provider invoice.
func (e *Entry) Invoiceable() bool {
	return e.Kind == KindBooking && !e.IsDummy
}

// RecoupState is a provider's current balance and the sequence of the
// entry that produced it.
type RecoupState struct {
	ProviderID id.ProviderID `json:"provider_id"`
	Recouped   types.Money   `json:"recouped"`
	Version    int64         `json:"version"`
}

// StateOf derives the recoup state left by the latest balance-bearing entry.
// A nil entry is the zero state.
func StateOf(providerID id.ProviderID, latest *Entry) RecoupState {
	if latest == nil {
		return RecoupState{ProviderID: providerID, Recouped: types.Zero("usd")}
	}
	return RecoupState{
		ProviderID: providerID,
		Recouped:   latest.RecoupTotalAfter,
		Version:    latest.Seq,
	}
}

// Completion reports a finished booking to the ledger.
type Completion struct {
	BookingID   string        `json:"booking_id"`
	ProviderID  id.ProviderID `json:"provider_id"`
	BaseAmount  types.Money   `json:"base_amount"`
	IsDummy     bool          `json:"is_dummy"`
	CompletedAt time.Time     `json:"completed_at"`
}

// Result is the outcome of recording a completion. Duplicate is set when the
// booking had already been recorded; Entry is then the original.
type Result struct {
	Entry     *Entry `json:"entry"`
	Duplicate bool   `json:"duplicate"`
}

// ListOpts filters entry listings.
type ListOpts struct {
	ProviderID   id.ProviderID
	Week         types.Week
	Kind         Kind
	IncludeDummy bool
	Limit        int
	Offset       int
}
