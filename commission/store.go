package commission

import (
	"context"
	"time"

	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/types"
)

// Store persists ledger entries. Entries are append-only.
type Store interface {
	// Append inserts e. A second entry for the same booking yields
	// ErrAlreadyExists; a second balance-bearing entry with the same
	// (provider, seq) yields ErrRecoupConflict.
	Append(ctx context.Context, e *Entry) error
	Get(ctx context.Context, entryID id.EntryID) (*Entry, error)
	GetByBooking(ctx context.Context, bookingID string) (*Entry, error)
	// Latest returns the provider's balance-bearing entry with the highest
	// seq, or ErrEntryNotFound when there is none.
	Latest(ctx context.Context, providerID id.ProviderID) (*Entry, error)
	List(ctx context.Context, opts ListOpts) ([]*Entry, error)
	// ListUninvoiced returns invoiceable entries whose (provider, week) has
	// no invoice yet. A non-zero through limits results to weeks up to and
	// including it.
	ListUninvoiced(ctx context.Context, through types.Week) ([]*Entry, error)
	PurgeDummy(ctx context.Context, before time.Time) (int64, error)
}
