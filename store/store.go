package store

import (
	"context"
	"time"

	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/quote"
	"github.com/xraph/medquote/types"
)

// Store is the unified storage interface for all medquote entities.
// Methods are declared explicitly rather than by embedding the
// per-package interfaces, which share method names.
type Store interface {
	// Provider methods
	CreateProvider(ctx context.Context, p *provider.Provider) error
	GetProvider(ctx context.Context, providerID id.ProviderID) (*provider.Provider, error)
	ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error)
	UpdateProvider(ctx context.Context, p *provider.Provider) error
	UpdateProviderStats(ctx context.Context, providerID id.ProviderID, stats provider.Stats) error
	IncrementProviderBookings(ctx context.Context, providerID id.ProviderID) error

	// Quote request methods
	CreateRequest(ctx context.Context, r *quote.Request) error
	GetRequest(ctx context.Context, requestID id.RequestID) (*quote.Request, error)
	ListRequests(ctx context.Context, opts quote.ListOpts) ([]*quote.Request, error)
	TransitionRequest(ctx context.Context, t quote.Transition) error
	SetVisibleCount(ctx context.Context, requestID id.RequestID, from, to int) error
	ListExpirableRequests(ctx context.Context, now time.Time, limit int) ([]*quote.Request, error)
	CountTrainingRequests(ctx context.Context, requesterRef string) (int64, error)
	DeleteRequest(ctx context.Context, requestID id.RequestID) error
	PurgeTrainingRequests(ctx context.Context, before time.Time) (int64, error)

	// Ledger methods
	AppendEntry(ctx context.Context, e *commission.Entry) error
	GetEntry(ctx context.Context, entryID id.EntryID) (*commission.Entry, error)
	GetEntryByBooking(ctx context.Context, bookingID string) (*commission.Entry, error)
	LatestRecoupEntry(ctx context.Context, providerID id.ProviderID) (*commission.Entry, error)
	ListEntries(ctx context.Context, opts commission.ListOpts) ([]*commission.Entry, error)
	ListUninvoicedEntries(ctx context.Context, through types.Week) ([]*commission.Entry, error)
	PurgeDummyEntries(ctx context.Context, before time.Time) (int64, error)

	// Invoice methods
	CreateInvoice(ctx context.Context, inv *invoice.Invoice) error
	GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error)
	GetInvoiceByWeek(ctx context.Context, providerID id.ProviderID, week types.Week) (*invoice.Invoice, error)
	ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error)
	MarkInvoicePaid(ctx context.Context, invID id.InvoiceID, payment invoice.Payment) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
