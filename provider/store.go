package provider

import (
	"context"

	"github.com/xraph/medquote/id"
)

// Store persists providers.
type Store interface {
	Create(ctx context.Context, p *Provider) error
	Get(ctx context.Context, providerID id.ProviderID) (*Provider, error)
	List(ctx context.Context, opts ListOpts) ([]*Provider, error)
	Update(ctx context.Context, p *Provider) error
	UpdateStats(ctx context.Context, providerID id.ProviderID, stats Stats) error
	IncrementBookings(ctx context.Context, providerID id.ProviderID) error
}
