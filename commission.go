package medquote

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/quote"
	"github.com/xraph/medquote/types"
)

// ──────────────────────────────────────────────────
// Commission Ledger
// ──────────────────────────────────────────────────

// RecordCompletion writes the ledger entry for a completed booking and
// advances the provider's recoup balance. Recording the same booking twice
// returns the original entry with Duplicate set.
func (e *Engine) RecordCompletion(ctx context.Context, c commission.Completion) (*commission.Result, error) {
	var errs MultiError
	if strings.TrimSpace(c.BookingID) == "" {
		errs.Add(ValidationError{Field: "booking_id", Message: "is required"})
	}
	if c.ProviderID.IsNil() {
		errs.Add(ValidationError{Field: "provider_id", Message: "is required"})
	}
	if c.BaseAmount.IsNegative() {
		errs.Add(ValidationError{Field: "base_amount", Message: "must not be negative"})
	}
	c.BaseAmount = normalizeMoney(&errs, "base_amount", c.BaseAmount)
	if errs.HasErrors() {
		return nil, errs
	}
	if c.CompletedAt.IsZero() {
		c.CompletedAt = e.now()
	}

	if existing, err := e.store.GetEntryByBooking(ctx, c.BookingID); err == nil {
		return &commission.Result{Entry: existing, Duplicate: true}, nil
	} else if !IsNotFound(err) {
		return nil, err
	}

	if _, err := e.store.GetProvider(ctx, c.ProviderID); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(c.ProviderID.String())
	defer unlock()

	entry, err := e.appendWithRecoup(ctx, c.ProviderID, func(state commission.RecoupState) *commission.Entry {
		return e.policy.Compute(state, c)
	})
	if errors.Is(err, ErrAlreadyExists) {
		existing, getErr := e.store.GetEntryByBooking(ctx, c.BookingID)
		if getErr != nil {
			return nil, getErr
		}
		return &commission.Result{Entry: existing, Duplicate: true}, nil
	}
	if err != nil {
		return nil, err
	}

	if !entry.IsDummy {
		if err := e.store.IncrementProviderBookings(ctx, entry.ProviderID); err != nil {
			e.logger.Warn("failed to increment provider bookings",
				"provider_id", entry.ProviderID,
				"error", err,
			)
		}
	}

	e.logger.Info("commission recorded",
		"booking_id", entry.BookingID,
		"provider_id", entry.ProviderID,
		"rate_bps", int64(entry.EffectiveRate),
		"commission", entry.Commission.String(),
		"recouped", entry.RecoupTotalAfter.String(),
		"dummy", entry.IsDummy,
	)
	e.plugins.EmitCommissionRecorded(ctx, entry)

	return &commission.Result{Entry: entry}, nil
}

// CompleteBooking records the completion of a booked request, using the
// selected quote's price as the commission base. Training requests produce
// dummy entries.
func (e *Engine) CompleteBooking(ctx context.Context, requestID id.RequestID) (*commission.Result, error) {
	r, err := e.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.State != quote.StateBooked {
		return nil, &TransitionError{RequestID: r.ID, Op: "complete", State: r.State, Err: ErrNotBooked}
	}
	q, ok := r.FindQuote(r.SelectedQuoteID)
	if !ok {
		return nil, ErrQuoteNotFound
	}

	return e.RecordCompletion(ctx, commission.Completion{
		BookingID:   r.BookingID.String(),
		ProviderID:  r.SelectedProviderID,
		BaseAmount:  q.Price,
		IsDummy:     r.Training,
		CompletedAt: e.now(),
	})
}

// SeedRecoup raises a provider's recoup balance by amount, e.g. to carry
// over an opening balance. The balance can only grow.
func (e *Engine) SeedRecoup(ctx context.Context, providerID id.ProviderID, amount types.Money) (*commission.Entry, error) {
	var errs MultiError
	if !amount.IsPositive() {
		errs.Add(ValidationError{Field: "amount", Message: "must be positive"})
	}
	amount = normalizeMoney(&errs, "amount", amount)
	if errs.HasErrors() {
		return nil, errs
	}
	if _, err := e.store.GetProvider(ctx, providerID); err != nil {
		return nil, err
	}

	unlock := e.locks.Lock(providerID.String())
	defer unlock()

	now := e.now()
	entry, err := e.appendWithRecoup(ctx, providerID, func(state commission.RecoupState) *commission.Entry {
		return commission.Adjustment(state, amount, now)
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("recoup balance seeded",
		"provider_id", providerID,
		"amount", amount.String(),
		"recouped", entry.RecoupTotalAfter.String(),
	)
	e.plugins.EmitCommissionRecorded(ctx, entry)
	return entry, nil
}

// RecoupBalance returns the provider's current recoup state.
func (e *Engine) RecoupBalance(ctx context.Context, providerID id.ProviderID) (commission.RecoupState, error) {
	latest, err := e.store.LatestRecoupEntry(ctx, providerID)
	if err != nil && !IsNotFound(err) {
		return commission.RecoupState{}, err
	}
	return commission.StateOf(providerID, latest), nil
}

// GetEntry retrieves a ledger entry by ID.
func (e *Engine) GetEntry(ctx context.Context, entryID id.EntryID) (*commission.Entry, error) {
	return e.store.GetEntry(ctx, entryID)
}

// ListEntries lists ledger entries.
func (e *Engine) ListEntries(ctx context.Context, opts commission.ListOpts) ([]*commission.Entry, error) {
	return e.store.ListEntries(ctx, opts)
}

// appendWithRecoup reads the recoup state, builds an entry from it and
// appends it, starting over when another process claimed the sequence
// first. Callers hold the provider lock.
func (e *Engine) appendWithRecoup(ctx context.Context, providerID id.ProviderID, build func(commission.RecoupState) *commission.Entry) (*commission.Entry, error) {
	var lastErr error
	for attempt := range e.recoupRetries {
		state, err := e.RecoupBalance(ctx, providerID)
		if err != nil {
			return nil, err
		}

		entry := build(state)
		err = e.store.AppendEntry(ctx, entry)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, ErrRecoupConflict) {
			return nil, err
		}

		lastErr = err
		e.logger.Debug("recoup sequence taken, retrying",
			"provider_id", providerID,
			"seq", entry.Seq,
			"attempt", attempt+1,
		)
	}
	return nil, fmt.Errorf("append entry for %s after %d attempts: %w", providerID, e.recoupRetries, lastErr)
}
