package invoice

import (
	"context"

	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/types"
)

// Store persists invoices.
type Store interface {
	// Create inserts inv; an existing invoice for the same (provider, week)
	// yields ErrAlreadyExists and leaves the original untouched.
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, invID id.InvoiceID) (*Invoice, error)
	GetByWeek(ctx context.Context, providerID id.ProviderID, week types.Week) (*Invoice, error)
	List(ctx context.Context, opts ListOpts) ([]*Invoice, error)
	// MarkPaid moves an issued invoice to paid; any other status yields
	// ErrStateConflict.
	MarkPaid(ctx context.Context, invID id.InvoiceID, payment Payment) error
}
