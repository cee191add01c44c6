// Package plugin lets integrations observe engine events without the engine
// knowing about them. A plugin implements Plugin plus any subset of the
// hook interfaces below; the registry discovers which at registration.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/quote"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// Async is implemented by plugins whose hooks do network or disk I/O.
// When RunAsync reports true the registry runs their hooks in the
// background on a context detached from the caller, bounded by the
// registry timeout. Registry.Wait blocks until those calls finish.
type Async interface {
	Plugin
	RunAsync() bool
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Registry hooks
// ──────────────────────────────────────────────────

// OnProviderRegistered is called after a provider joins the registry.
type OnProviderRegistered interface {
	Plugin
	OnProviderRegistered(ctx context.Context, p *provider.Provider) error
}

// ──────────────────────────────────────────────────
// Quote lifecycle hooks
// ──────────────────────────────────────────────────

// OnQuoteReady is called once a request has been allocated and persisted.
type OnQuoteReady interface {
	Plugin
	OnQuoteReady(ctx context.Context, r *quote.Request) error
}

// OnQuoteSelected is called when the requester picks a quote.
type OnQuoteSelected interface {
	Plugin
	OnQuoteSelected(ctx context.Context, r *quote.Request, q *quote.ProviderQuote) error
}

// OnQuoteExpired is called when an open request passes its expiry.
type OnQuoteExpired interface {
	Plugin
	OnQuoteExpired(ctx context.Context, r *quote.Request) error
}

// OnQuoteCancelled is called when a request is cancelled. notify is set
// when providers had already responded and should be told.
type OnQuoteCancelled interface {
	Plugin
	OnQuoteCancelled(ctx context.Context, r *quote.Request, notify bool) error
}

// OnBookingConfirmed is called when a selected request is booked.
type OnBookingConfirmed interface {
	Plugin
	OnBookingConfirmed(ctx context.Context, r *quote.Request) error
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnCommissionRecorded is called for every new ledger entry.
type OnCommissionRecorded interface {
	Plugin
	OnCommissionRecorded(ctx context.Context, e *commission.Entry) error
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceIssued is called for each invoice a generation run creates.
type OnInvoiceIssued interface {
	Plugin
	OnInvoiceIssued(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoicePaid is called when an invoice is marked paid.
type OnInvoicePaid interface {
	Plugin
	OnInvoicePaid(ctx context.Context, inv *invoice.Invoice) error
}

// OnInvoiceRun is called after every generation run, including empty ones.
type OnInvoiceRun interface {
	Plugin
	OnInvoiceRun(ctx context.Context, issued int, elapsed time.Duration) error
}
