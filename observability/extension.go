// Package observability provides a metrics extension for medquote that
// records lifecycle event counts through a MetricFactory.
package observability

import (
	"context"
	"time"

	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/plugin"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/quote"
)

// Ensure MetricsExtension implements required interfaces.
var (
	_ plugin.Plugin               = (*MetricsExtension)(nil)
	_ plugin.OnInit               = (*MetricsExtension)(nil)
	_ plugin.OnProviderRegistered = (*MetricsExtension)(nil)
	_ plugin.OnQuoteReady         = (*MetricsExtension)(nil)
	_ plugin.OnQuoteSelected      = (*MetricsExtension)(nil)
	_ plugin.OnQuoteExpired       = (*MetricsExtension)(nil)
	_ plugin.OnQuoteCancelled     = (*MetricsExtension)(nil)
	_ plugin.OnBookingConfirmed   = (*MetricsExtension)(nil)
	_ plugin.OnCommissionRecorded = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceIssued      = (*MetricsExtension)(nil)
	_ plugin.OnInvoicePaid        = (*MetricsExtension)(nil)
	_ plugin.OnInvoiceRun         = (*MetricsExtension)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// MetricsExtension records system-wide lifecycle metrics.
// Register it as an engine plugin to track quote and commission flow.
type MetricsExtension struct {
	factory MetricFactory

	// Registry metrics
	ProviderRegistered Counter

	// Quote metrics
	QuoteReady       Counter
	QuoteCandidates  Histogram
	QuoteResponded   Histogram
	QuoteSelected    Counter
	QuoteSelectedPos Histogram
	QuoteExpired     Counter
	QuoteCancelled   Counter
	TrainingRequests Counter

	// Booking metrics
	BookingConfirmed Counter

	// Ledger metrics
	CommissionRecorded Counter
	CommissionAmount   Histogram
	DiscountedBookings Counter
	StandardBookings   Counter
	RecoupAdjustments  Counter
	DummyEntries       Counter

	// Invoice metrics
	InvoiceIssued     Counter
	InvoicePaid       Counter
	InvoiceTotal      Histogram
	InvoiceRunLatency Histogram
}

// NewMetricsExtension creates a MetricsExtension with the provided MetricFactory.
// Use app.Metrics() in forge extensions.
func NewMetricsExtension(factory MetricFactory) *MetricsExtension {
	return &MetricsExtension{
		factory: factory,

		ProviderRegistered: factory.Counter("medquote.provider.registered"),

		QuoteReady:       factory.Counter("medquote.quote.ready"),
		QuoteCandidates:  factory.Histogram("medquote.quote.candidates"),
		QuoteResponded:   factory.Histogram("medquote.quote.responded"),
		QuoteSelected:    factory.Counter("medquote.quote.selected"),
		QuoteSelectedPos: factory.Histogram("medquote.quote.selected.rank"),
		QuoteExpired:     factory.Counter("medquote.quote.expired"),
		QuoteCancelled:   factory.Counter("medquote.quote.cancelled"),
		TrainingRequests: factory.Counter("medquote.quote.training"),

		BookingConfirmed: factory.Counter("medquote.booking.confirmed"),

		CommissionRecorded: factory.Counter("medquote.commission.recorded"),
		CommissionAmount:   factory.Histogram("medquote.commission.amount_cents"),
		DiscountedBookings: factory.Counter("medquote.commission.discounted"),
		StandardBookings:   factory.Counter("medquote.commission.standard"),
		RecoupAdjustments:  factory.Counter("medquote.recoup.adjustments"),
		DummyEntries:       factory.Counter("medquote.commission.dummy"),

		InvoiceIssued:     factory.Counter("medquote.invoice.issued"),
		InvoicePaid:       factory.Counter("medquote.invoice.paid"),
		InvoiceTotal:      factory.Histogram("medquote.invoice.total_cents"),
		InvoiceRunLatency: factory.Histogram("medquote.invoice.run.latency_ms"),
	}
}

// Name implements plugin.Plugin.
func (m *MetricsExtension) Name() string { return "observability-metrics" }

// OnInit implements plugin.OnInit.
func (m *MetricsExtension) OnInit(_ context.Context, _ any) error {
	return nil
}

// OnProviderRegistered implements plugin.OnProviderRegistered.
func (m *MetricsExtension) OnProviderRegistered(_ context.Context, _ *provider.Provider) error {
	m.ProviderRegistered.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Quote lifecycle hooks
// ──────────────────────────────────────────────────

// OnQuoteReady implements plugin.OnQuoteReady.
func (m *MetricsExtension) OnQuoteReady(_ context.Context, r *quote.Request) error {
	m.QuoteReady.Inc()
	m.QuoteCandidates.Observe(float64(len(r.Quotes)))
	m.QuoteResponded.Observe(float64(len(r.Responded())))
	if r.Training {
		m.TrainingRequests.Inc()
	}
	return nil
}

// OnQuoteSelected implements plugin.OnQuoteSelected.
func (m *MetricsExtension) OnQuoteSelected(_ context.Context, _ *quote.Request, q *quote.ProviderQuote) error {
	m.QuoteSelected.Inc()
	m.QuoteSelectedPos.Observe(float64(q.Rank))
	return nil
}

// OnQuoteExpired implements plugin.OnQuoteExpired.
func (m *MetricsExtension) OnQuoteExpired(_ context.Context, _ *quote.Request) error {
	m.QuoteExpired.Inc()
	return nil
}

// OnQuoteCancelled implements plugin.OnQuoteCancelled.
func (m *MetricsExtension) OnQuoteCancelled(_ context.Context, _ *quote.Request, _ bool) error {
	m.QuoteCancelled.Inc()
	return nil
}

// OnBookingConfirmed implements plugin.OnBookingConfirmed.
func (m *MetricsExtension) OnBookingConfirmed(_ context.Context, _ *quote.Request) error {
	m.BookingConfirmed.Inc()
	return nil
}

// ──────────────────────────────────────────────────
// Ledger hooks
// ──────────────────────────────────────────────────

// OnCommissionRecorded implements plugin.OnCommissionRecorded. Entries
// carrying a recoup contribution were charged the discounted rate.
func (m *MetricsExtension) OnCommissionRecorded(_ context.Context, e *commission.Entry) error {
	switch {
	case e.Kind == commission.KindAdjustment:
		m.RecoupAdjustments.Inc()
		return nil
	case e.IsDummy:
		m.DummyEntries.Inc()
		return nil
	}

	m.CommissionRecorded.Inc()
	m.CommissionAmount.Observe(float64(e.Commission.Amount))
	if e.RecoupApplied.IsPositive() {
		m.DiscountedBookings.Inc()
	} else {
		m.StandardBookings.Inc()
	}
	return nil
}

// ──────────────────────────────────────────────────
// Invoice hooks
// ──────────────────────────────────────────────────

// OnInvoiceIssued implements plugin.OnInvoiceIssued.
func (m *MetricsExtension) OnInvoiceIssued(_ context.Context, inv *invoice.Invoice) error {
	m.InvoiceIssued.Inc()
	m.InvoiceTotal.Observe(float64(inv.Total.Amount))
	return nil
}

// OnInvoicePaid implements plugin.OnInvoicePaid.
func (m *MetricsExtension) OnInvoicePaid(_ context.Context, _ *invoice.Invoice) error {
	m.InvoicePaid.Inc()
	return nil
}

// OnInvoiceRun implements plugin.OnInvoiceRun.
func (m *MetricsExtension) OnInvoiceRun(_ context.Context, _ int, elapsed time.Duration) error {
	m.InvoiceRunLatency.Observe(float64(elapsed.Milliseconds()))
	return nil
}
