// Package audithook bridges medquote lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not import
// Chronicle directly. Callers inject a RecorderFunc adapter that bridges
// to Chronicle at wiring time.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/plugin"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/quote"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin               = (*Extension)(nil)
	_ plugin.OnProviderRegistered = (*Extension)(nil)
	_ plugin.OnQuoteReady         = (*Extension)(nil)
	_ plugin.OnQuoteSelected      = (*Extension)(nil)
	_ plugin.OnQuoteExpired       = (*Extension)(nil)
	_ plugin.OnQuoteCancelled     = (*Extension)(nil)
	_ plugin.OnBookingConfirmed   = (*Extension)(nil)
	_ plugin.OnCommissionRecorded = (*Extension)(nil)
	_ plugin.OnInvoiceIssued      = (*Extension)(nil)
	_ plugin.OnInvoicePaid        = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
// This matches chronicle.Emitter but is defined locally so that the
// audit_hook package does not import Chronicle directly.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
	Reason     string         `json:"reason,omitempty"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// Extension bridges medquote lifecycle events to an audit trail backend.
type Extension struct {
	recorder     Recorder
	enabled      map[string]bool // nil = all enabled
	categories   map[string]bool // nil = all categories
	skipTraining bool
	logger       *slog.Logger
}

// New creates an Extension that emits audit events through the provided Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements plugin.Plugin.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Registry hooks
// ──────────────────────────────────────────────────

// OnProviderRegistered implements plugin.OnProviderRegistered.
func (e *Extension) OnProviderRegistered(ctx context.Context, p *provider.Provider) error {
	return e.record(ctx, ActionProviderRegistered, SeverityInfo, OutcomeSuccess,
		ResourceProvider, p.ID.String(), CategoryRegistry, nil,
		"name", p.Name,
		"priority_partner", p.IsPriorityPartner,
	)
}

// ──────────────────────────────────────────────────
// Quote lifecycle hooks
// ──────────────────────────────────────────────────

// OnQuoteReady implements plugin.OnQuoteReady.
func (e *Extension) OnQuoteReady(ctx context.Context, r *quote.Request) error {
	if e.skipTraining && r.Training {
		return nil
	}
	return e.record(ctx, ActionQuoteReady, SeverityInfo, OutcomeSuccess,
		ResourceRequest, r.ID.String(), CategoryQuote, nil,
		"requester_ref", r.RequesterRef,
		"candidates", len(r.Quotes),
		"responded", len(r.Responded()),
		"training", r.Training,
	)
}

// OnQuoteSelected implements plugin.OnQuoteSelected.
func (e *Extension) OnQuoteSelected(ctx context.Context, r *quote.Request, q *quote.ProviderQuote) error {
	if e.skipTraining && r.Training {
		return nil
	}
	return e.record(ctx, ActionQuoteSelected, SeverityInfo, OutcomeSuccess,
		ResourceRequest, r.ID.String(), CategoryQuote, nil,
		"quote_id", q.ID.String(),
		"provider_id", q.ProviderID.String(),
		"rank", q.Rank,
		"price", q.Price.String(),
	)
}

// OnQuoteExpired implements plugin.OnQuoteExpired.
func (e *Extension) OnQuoteExpired(ctx context.Context, r *quote.Request) error {
	if e.skipTraining && r.Training {
		return nil
	}
	return e.record(ctx, ActionQuoteExpired, SeverityInfo, OutcomeSuccess,
		ResourceRequest, r.ID.String(), CategoryQuote, nil,
		"expires_at", r.ExpiresAt,
	)
}

// OnQuoteCancelled implements plugin.OnQuoteCancelled.
func (e *Extension) OnQuoteCancelled(ctx context.Context, r *quote.Request, notify bool) error {
	if e.skipTraining && r.Training {
		return nil
	}
	return e.record(ctx, ActionQuoteCancelled, SeverityWarning, OutcomeSuccess,
		ResourceRequest, r.ID.String(), CategoryQuote, nil,
		"notify_providers", notify,
		"reason", r.CancelNote,
	)
}

// OnBookingConfirmed implements plugin.OnBookingConfirmed.
func (e *Extension) OnBookingConfirmed(ctx context.Context, r *quote.Request) error {
	if e.skipTraining && r.Training {
		return nil
	}
	return e.record(ctx, ActionBookingConfirmed, SeverityInfo, OutcomeSuccess,
		ResourceBooking, r.BookingID.String(), CategoryBooking, nil,
		"request_id", r.ID.String(),
		"provider_id", r.SelectedProviderID.String(),
		"deposit_ref", r.DepositRef,
	)
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnCommissionRecorded implements plugin.OnCommissionRecorded.
func (e *Extension) OnCommissionRecorded(ctx context.Context, entry *commission.Entry) error {
	if e.skipTraining && entry.IsDummy {
		return nil
	}
	action := ActionCommissionRecorded
	if entry.Kind == commission.KindAdjustment {
		action = ActionRecoupAdjusted
	}
	return e.record(ctx, action, SeverityInfo, OutcomeSuccess,
		ResourceEntry, entry.ID.String(), CategoryCommission, nil,
		"booking_id", entry.BookingID,
		"provider_id", entry.ProviderID.String(),
		"rate", entry.EffectiveRate.Percent(),
		"commission", entry.Commission.String(),
		"recouped", entry.RecoupTotalAfter.String(),
		"dummy", entry.IsDummy,
	)
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceIssued implements plugin.OnInvoiceIssued.
func (e *Extension) OnInvoiceIssued(ctx context.Context, inv *invoice.Invoice) error {
	return e.record(ctx, ActionInvoiceIssued, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryPayment, nil,
		"number", inv.Number,
		"provider_id", inv.ProviderID.String(),
		"week", inv.Week.String(),
		"total", inv.Total.String(),
	)
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (e *Extension) OnInvoicePaid(ctx context.Context, inv *invoice.Invoice) error {
	return e.record(ctx, ActionInvoicePaid, SeverityInfo, OutcomeSuccess,
		ResourceInvoice, inv.ID.String(), CategoryPayment, nil,
		"number", inv.Number,
		"payment_method", string(inv.PaymentMethod),
		"remittance_ref", inv.RemittanceRef,
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	err error,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}
	if e.categories != nil && !e.categories[category] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2+1)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	var reason string
	if err != nil {
		reason = err.Error()
		meta["error"] = err.Error()
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
		Reason:     reason,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
