package medquote

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/types"
)

// ──────────────────────────────────────────────────
// Invoice Consolidation
// ──────────────────────────────────────────────────

// GenerateInvoices issues one invoice per (provider, week) that has
// uninvoiced bookings. Groups that another run invoiced first are skipped,
// so overlapping or repeated runs never bill a week twice.
func (e *Engine) GenerateInvoices(ctx context.Context) ([]*invoice.Invoice, error) {
	return e.generateInvoices(ctx, e.closedWeeksOnly)
}

// generateInvoices bills uninvoiced groups. With closedOnly set, the
// current week is left alone.
func (e *Engine) generateInvoices(ctx context.Context, closedOnly bool) ([]*invoice.Invoice, error) {
	start := time.Now()
	now := e.now()

	var through types.Week
	if closedOnly {
		through = types.WeekOf(types.WeekOf(now).Start().Add(-time.Second))
	}

	entries, err := e.store.ListUninvoicedEntries(ctx, through)
	if err != nil {
		return nil, err
	}

	var issued []*invoice.Invoice
	for _, g := range invoice.GroupEntries(entries) {
		inv := invoice.New(g, now)
		p, err := e.store.GetProvider(ctx, g.ProviderID)
		switch {
		case err == nil:
			inv.ProviderName = p.Name
		case !errors.Is(err, ErrProviderNotFound):
			e.logger.Warn("provider lookup failed, issuing invoice without name",
				"provider_id", g.ProviderID,
				"week", g.Week,
				"error", err,
			)
		}

		if err := e.store.CreateInvoice(ctx, inv); err != nil {
			if errors.Is(err, ErrAlreadyExists) {
				e.logger.Debug("invoice already issued, skipping",
					"provider_id", g.ProviderID,
					"week", g.Week,
				)
				continue
			}
			return issued, err
		}

		e.logger.Info("invoice issued",
			"invoice_id", inv.ID,
			"number", inv.Number,
			"provider_id", inv.ProviderID,
			"week", inv.Week,
			"lines", len(inv.Lines),
			"total", inv.Total.String(),
		)
		e.plugins.EmitInvoiceIssued(ctx, inv)
		issued = append(issued, inv)
	}

	e.plugins.EmitInvoiceRun(ctx, len(issued), time.Since(start))
	return issued, nil
}

// MarkPaid records the provider's remittance for a week. method must be
// one of ach, check or wire.
func (e *Engine) MarkPaid(ctx context.Context, providerID id.ProviderID, week types.Week, method invoice.PaymentMethod, remittanceRef string) (*invoice.Invoice, error) {
	method = invoice.PaymentMethod(strings.ToLower(strings.TrimSpace(string(method))))
	if !method.IsValid() {
		return nil, ValidationError{Field: "payment_method", Message: fmt.Sprintf("unsupported payment method %q", method)}
	}

	inv, err := e.store.GetInvoiceByWeek(ctx, providerID, week)
	if err != nil {
		return nil, err
	}
	if inv.Status == invoice.StatusPaid {
		return nil, ErrInvoiceAlreadyPaid
	}

	now := e.now()
	payment := invoice.Payment{PaidAt: now, Method: method, RemittanceRef: remittanceRef}
	if err := e.store.MarkInvoicePaid(ctx, inv.ID, payment); err != nil {
		if errors.Is(err, ErrStateConflict) {
			return nil, ErrInvoiceAlreadyPaid
		}
		return nil, err
	}
	inv.Status = invoice.StatusPaid
	inv.PaidAt = &now
	inv.PaymentMethod = method
	inv.RemittanceRef = remittanceRef
	inv.UpdatedAt = now

	e.logger.Info("invoice paid",
		"invoice_id", inv.ID,
		"provider_id", providerID,
		"week", week,
		"payment_method", method,
		"remittance_ref", remittanceRef,
	)
	e.plugins.EmitInvoicePaid(ctx, inv)
	return inv, nil
}

// GetInvoice retrieves an invoice by ID.
func (e *Engine) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return e.store.GetInvoice(ctx, invID)
}

// GetInvoiceByWeek retrieves the provider's invoice for a week.
func (e *Engine) GetInvoiceByWeek(ctx context.Context, providerID id.ProviderID, week types.Week) (*invoice.Invoice, error) {
	return e.store.GetInvoiceByWeek(ctx, providerID, week)
}

// ListInvoices lists invoices.
func (e *Engine) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	return e.store.ListInvoices(ctx, opts)
}

// ──────────────────────────────────────────────────
// Training Mode
// ──────────────────────────────────────────────────

// PurgeResult counts what PurgeTraining removed.
type PurgeResult struct {
	Requests int64 `json:"requests"`
	Entries  int64 `json:"entries"`
}

// PurgeTraining removes training requests and dummy ledger entries older
// than the training retention.
func (e *Engine) PurgeTraining(ctx context.Context) (PurgeResult, error) {
	before := e.now().Add(-e.trainingRetention)

	var res PurgeResult
	n, err := e.store.PurgeTrainingRequests(ctx, before)
	if err != nil {
		return res, err
	}
	res.Requests = n

	n, err = e.store.PurgeDummyEntries(ctx, before)
	if err != nil {
		return res, err
	}
	res.Entries = n

	e.logger.Info("training data purged",
		"before", before,
		"requests", res.Requests,
		"entries", res.Entries,
	)
	return res, nil
}
