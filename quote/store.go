package quote

import (
	"context"
	"time"

	"github.com/xraph/medquote/id"
)

// Store persists quote requests together with their provider quotes.
type Store interface {
	Create(ctx context.Context, r *Request) error
	Get(ctx context.Context, requestID id.RequestID) (*Request, error)
	List(ctx context.Context, opts ListOpts) ([]*Request, error)
	// Transition applies t atomically; a failed guard yields a state conflict.
	Transition(ctx context.Context, t Transition) error
	// SetVisibleCount moves an open request's visible count from -> to.
	SetVisibleCount(ctx context.Context, requestID id.RequestID, from, to int) error
	ListExpirable(ctx context.Context, now time.Time, limit int) ([]*Request, error)
	CountTraining(ctx context.Context, requesterRef string) (int64, error)
	Delete(ctx context.Context, requestID id.RequestID) error
	PurgeTraining(ctx context.Context, before time.Time) (int64, error)
}
