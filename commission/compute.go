package commission

import (
	"time"

	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/types"
)

// Compute builds the entry for c given the provider's current recoup state.
// It performs no I/O; the caller persists the entry, which succeeds only if
// no other entry claimed Seq first.
func (p Policy) Compute(state RecoupState, c Completion) *Entry {
	base := c.BaseAmount
	zero := types.Zero(base.Currency)

	rate := p.StandardRate
	recoup := zero
	if state.Recouped.LessThan(p.Threshold) {
		rate = p.DiscountedRate
		recoup = base.ApplyRate(p.RecoupRate.Decimal())
	}

	completed := c.CompletedAt.UTC()
	e := &Entry{
		Entity:        types.NewEntityAt(completed),
		ID:            id.NewEntryID(),
		BookingID:     c.BookingID,
		ProviderID:    c.ProviderID,
		Kind:          KindBooking,
		BaseAmount:    base,
		EffectiveRate: rate,
		Commission:    base.ApplyRate(rate.Decimal()),
		IsDummy:       c.IsDummy,
		InvoiceWeek:   types.WeekOf(completed),
		CompletedAt:   completed,
	}

	if c.IsDummy {
		e.RecoupApplied = zero
		e.RecoupTotalAfter = state.Recouped
		return e
	}
	e.RecoupApplied = recoup
	e.RecoupTotalAfter = state.Recouped.Add(recoup)
	e.Seq = state.Version + 1
	return e
}

// Adjustment builds an entry that raises the balance by amount without a
// booking. Used to seed opening balances.
func Adjustment(state RecoupState, amount types.Money, at time.Time) *Entry {
	at = at.UTC()
	zero := types.Zero(amount.Currency)
	entryID := id.NewEntryID()
	return &Entry{
		Entity:           types.NewEntityAt(at),
		ID:               entryID,
		BookingID:        "adjustment:" + entryID.String(),
		ProviderID:       state.ProviderID,
		Kind:             KindAdjustment,
		BaseAmount:       zero,
		Commission:       zero,
		RecoupApplied:    amount,
		RecoupTotalAfter: state.Recouped.Add(amount),
		Seq:              state.Version + 1,
		InvoiceWeek:      types.WeekOf(at),
		CompletedAt:      at,
	}
}
