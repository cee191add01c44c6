// Package allocator fans a quote request out to eligible providers.
//
// Allocation runs in a fixed order: eligibility filters (capability and
// geography), the fairness partition into high and low responders, a
// per-provider response draw, pricing, and finally display ranking. The
// result is computed once per request and persisted by the caller.
package allocator

import (
	"cmp"
	"slices"

	"github.com/shopspring/decimal"

	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/quote"
	"github.com/xraph/medquote/types"
)

// Config holds the allocation and pricing parameters.
type Config struct {
	// HighResponderCutoff splits the fairness partition; providers at or
	// above it rank in the high tier.
	HighResponderCutoff float64

	// Surcharges maps each equipment item to its flat price.
	Surcharges map[provider.Equipment]types.Money

	// UrgencyMultiplier applies to same-day and critical requests.
	UrgencyMultiplier decimal.Decimal

	// SubscriberMultiplier applies to requesters with an active subscription.
	SubscriberMultiplier decimal.Decimal

	MinETAHours int
	MaxETAHours int
}

// DefaultConfig returns the production pricing table.
func DefaultConfig() Config {
	return Config{
		HighResponderCutoff:  50,
		Surcharges:           DefaultSurcharges(),
		UrgencyMultiplier:    decimal.RequireFromString("1.2"),
		SubscriberMultiplier: decimal.RequireFromString("0.9"),
		MinETAHours:          2,
		MaxETAHours:          8,
	}
}

// DefaultSurcharges returns the per-equipment surcharge table.
func DefaultSurcharges() map[provider.Equipment]types.Money {
	return map[provider.Equipment]types.Money{
		provider.EquipmentVentilator: types.Dollars(5000),
		provider.EquipmentECMO:       types.Dollars(10000),
		provider.EquipmentIncubator:  types.Dollars(3000),
		provider.EquipmentEscort:     types.Dollars(2000),
		provider.EquipmentOxygen:     types.Dollars(1000),
		provider.EquipmentOther:      types.Dollars(0),
	}
}

// Allocator produces the ranked quote set for a request.
type Allocator struct {
	cfg    Config
	drawer Drawer
}

// New creates an Allocator. A nil drawer falls back to a time-seeded RandomDrawer.
func New(cfg Config, d Drawer) *Allocator {
	if d == nil {
		d = NewRandomDrawer(0)
	}
	return &Allocator{cfg: cfg, drawer: d}
}

// Config returns the allocator's configuration.
func (a *Allocator) Config() Config { return a.cfg }

// Result is the outcome of one allocation.
type Result struct {
	// Quotes holds responders in display order (Rank 1..n) followed by
	// eligible non-responders (Rank 0) in fairness order.
	Quotes     []quote.ProviderQuote
	Candidates int
	Responded  int
}

// Allocate filters, partitions, draws, prices and ranks providers for req.
func (a *Allocator) Allocate(req *quote.Request, providers []*provider.Provider) Result {
	candidates := make([]*provider.Provider, 0, len(providers))
	for _, p := range providers {
		if Eligible(req, p) {
			candidates = append(candidates, p)
		}
	}

	high, low := a.Partition(candidates)

	var responders, silent []quote.ProviderQuote
	for _, group := range []struct {
		tier      quote.Tier
		providers []*provider.Provider
	}{{quote.TierHigh, high}, {quote.TierLow, low}} {
		for _, p := range group.providers {
			q := quote.ProviderQuote{
				ID:                      id.NewQuoteID(),
				ProviderID:              p.ID,
				ProviderName:            p.Name,
				Tier:                    group.tier,
				ResponseRate30d:         p.ResponseRate30d,
				Spotlight:               p.Spotlight(),
				Priority:                p.IsPriorityPartner,
				GroundTransportIncluded: p.GroundTransportIncluded,
			}
			if !a.drawer.Responds(p) {
				silent = append(silent, q)
				continue
			}
			q.Responded = true
			q.Price, q.EquipmentCost = a.Price(req, p)
			q.ETAHours = a.drawer.ETAHours(p, a.cfg.MinETAHours, a.cfg.MaxETAHours)
			responders = append(responders, q)
		}
	}

	Rank(responders)

	return Result{
		Quotes:     append(responders, silent...),
		Candidates: len(candidates),
		Responded:  len(responders),
	}
}

// Eligible applies the capability and geography filters.
func Eligible(req *quote.Request, p *provider.Provider) bool {
	if req.International && !p.IsPriorityPartner {
		return false
	}
	return p.Supports(req.Equipment)
}

// Partition splits candidates at the high-responder cutoff. Each half is
// sorted by response rate, highest first; ties fall back to provider ID so
// the order is deterministic.
func (a *Allocator) Partition(candidates []*provider.Provider) (high, low []*provider.Provider) {
	for _, p := range candidates {
		if p.ResponseRate30d >= a.cfg.HighResponderCutoff {
			high = append(high, p)
		} else {
			low = append(low, p)
		}
	}
	byRate := func(x, y *provider.Provider) int {
		if c := cmp.Compare(y.ResponseRate30d, x.ResponseRate30d); c != 0 {
			return c
		}
		return cmp.Compare(x.ID.String(), y.ID.String())
	}
	slices.SortStableFunc(high, byRate)
	slices.SortStableFunc(low, byRate)
	return high, low
}

// Price returns the total price and the equipment portion for p on req.
func (a *Allocator) Price(req *quote.Request, p *provider.Provider) (total, equipment types.Money) {
	equipment = types.Zero(p.BasePrice.Currency)
	for _, eq := range req.Equipment {
		if s, ok := a.cfg.Surcharges[eq]; ok {
			equipment = equipment.Add(s)
		}
	}

	total = p.BasePrice.Add(equipment)
	if req.Urgency == quote.UrgencySameDay || req.Urgency == quote.UrgencyCritical {
		total = total.ApplyRate(a.cfg.UrgencyMultiplier)
	}
	if req.Subscriber {
		total = total.ApplyRate(a.cfg.SubscriberMultiplier)
	}
	return total, equipment
}

// Rank orders responders for display and assigns ranks and masked names.
// The high tier always precedes the low tier; price ascends within a tier.
func Rank(quotes []quote.ProviderQuote) {
	slices.SortStableFunc(quotes, func(x, y quote.ProviderQuote) int {
		if x.Tier != y.Tier {
			if x.Tier == quote.TierHigh {
				return -1
			}
			return 1
		}
		if c := cmp.Compare(x.Price.Amount, y.Price.Amount); c != 0 {
			return c
		}
		return cmp.Compare(x.ProviderID.String(), y.ProviderID.String())
	})
	for i := range quotes {
		quotes[i].Rank = i + 1
		quotes[i].MaskedName = quote.MaskedName(i + 1)
	}
}
