package allocator_test

import (
	"slices"
	"testing"

	"pgregory.net/rapid"

	"github.com/xraph/medquote/allocator"
	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/quote"
	"github.com/xraph/medquote/types"
)

func newProvider(name string, rate float64, base int64, caps ...provider.Equipment) *provider.Provider {
	return &provider.Provider{
		ID:              id.NewProviderID(),
		Name:            name,
		BasePrice:       types.Dollars(base),
		Capabilities:    caps,
		ResponseRate30d: rate,
		TotalBookings:   200,
		DaysSinceJoin:   400,
	}
}

func names(quotes []quote.ProviderQuote) []string {
	out := make([]string, len(quotes))
	for i, q := range quotes {
		out[i] = q.ProviderName
	}
	return out
}

func TestAllocateVentilatorCritical(t *testing.T) {
	a := allocator.New(allocator.DefaultConfig(), allocator.AlwaysResponds())

	providers := []*provider.Provider{
		newProvider("Alpha", 90, 20000, provider.EquipmentVentilator),
		newProvider("Bravo", 30, 18000, provider.EquipmentVentilator),
		newProvider("Charlie", 70, 15000),
	}
	req := &quote.Request{
		Equipment: []provider.Equipment{provider.EquipmentVentilator},
		Urgency:   quote.UrgencyCritical,
	}

	res := a.Allocate(req, providers)

	if res.Candidates != 2 {
		t.Fatalf("candidates = %d, want 2 (Charlie lacks a ventilator)", res.Candidates)
	}
	if got := names(res.Quotes); !slices.Equal(got, []string{"Alpha", "Bravo"}) {
		t.Fatalf("order = %v", got)
	}

	// (20,000 + 5,000) x 1.2
	if got := res.Quotes[0].Price; got.Amount != types.Dollars(30000).Amount {
		t.Errorf("Alpha price = %s, want $30,000.00", got)
	}
	if got := res.Quotes[0].EquipmentCost; got.Amount != types.Dollars(5000).Amount {
		t.Errorf("Alpha equipment = %s", got)
	}
	if res.Quotes[0].Tier != quote.TierHigh || res.Quotes[1].Tier != quote.TierLow {
		t.Errorf("tiers = %s, %s", res.Quotes[0].Tier, res.Quotes[1].Tier)
	}
	if res.Quotes[0].Rank != 1 || res.Quotes[0].MaskedName != "Affiliate A****" {
		t.Errorf("rank/mask = %d %q", res.Quotes[0].Rank, res.Quotes[0].MaskedName)
	}
}

func TestAllocateHighTierBeforeCheaperLowTier(t *testing.T) {
	a := allocator.New(allocator.DefaultConfig(), allocator.AlwaysResponds())
	providers := []*provider.Provider{
		newProvider("CheapLow", 10, 5000),
		newProvider("PriceyHigh", 95, 40000),
		newProvider("MidHigh", 50, 30000),
	}

	res := a.Allocate(&quote.Request{Urgency: quote.UrgencyStandard}, providers)
	if got := names(res.Quotes); !slices.Equal(got, []string{"MidHigh", "PriceyHigh", "CheapLow"}) {
		t.Fatalf("order = %v", got)
	}
}

func TestAllocateInternationalKeepsPriorityPartners(t *testing.T) {
	a := allocator.New(allocator.DefaultConfig(), allocator.AlwaysResponds())
	partner := newProvider("Partner", 20, 50000)
	partner.IsPriorityPartner = true
	providers := []*provider.Provider{partner, newProvider("Domestic", 99, 10000)}

	res := a.Allocate(&quote.Request{International: true}, providers)
	if got := names(res.Quotes); !slices.Equal(got, []string{"Partner"}) {
		t.Fatalf("order = %v", got)
	}
	if !res.Quotes[0].Priority {
		t.Error("priority flag not carried")
	}
}

func TestAllocateSilentProviders(t *testing.T) {
	alpha := newProvider("Alpha", 90, 20000)
	bravo := newProvider("Bravo", 80, 10000)
	d := allocator.FixedDrawer{Silent: map[string]bool{bravo.ID.String(): true}, ETA: 3}
	a := allocator.New(allocator.DefaultConfig(), d)

	res := a.Allocate(&quote.Request{}, []*provider.Provider{alpha, bravo})
	if res.Responded != 1 || len(res.Quotes) != 2 {
		t.Fatalf("responded=%d quotes=%d", res.Responded, len(res.Quotes))
	}
	silent := res.Quotes[1]
	if silent.Responded || silent.Rank != 0 || !silent.Price.IsZero() {
		t.Errorf("silent quote = %+v", silent)
	}
	if res.Quotes[0].ETAHours != 3 {
		t.Errorf("eta = %d", res.Quotes[0].ETAHours)
	}
}

func TestAllocateSpotlight(t *testing.T) {
	a := allocator.New(allocator.DefaultConfig(), allocator.AlwaysResponds())
	rookie := newProvider("Rookie", 10, 10000)
	rookie.TotalBookings, rookie.DaysSinceJoin = 3, 20

	res := a.Allocate(&quote.Request{}, []*provider.Provider{rookie, newProvider("Vet", 60, 10000)})
	for _, q := range res.Quotes {
		if q.Spotlight != (q.ProviderName == "Rookie") {
			t.Errorf("%s spotlight = %v", q.ProviderName, q.Spotlight)
		}
	}
	// Spotlight is a badge only; the low responder still ranks after the high one.
	if res.Quotes[0].ProviderName != "Vet" {
		t.Errorf("order = %v", names(res.Quotes))
	}
}

func TestPrice(t *testing.T) {
	a := allocator.New(allocator.DefaultConfig(), nil)
	p := newProvider("P", 60, 10000)

	tests := []struct {
		name string
		req  quote.Request
		want int64
	}{
		{"base only", quote.Request{Urgency: quote.UrgencyStandard}, 1000000},
		{"same day", quote.Request{Urgency: quote.UrgencySameDay}, 1200000},
		{"subscriber", quote.Request{Subscriber: true}, 900000},
		{"critical subscriber", quote.Request{Urgency: quote.UrgencyCritical, Subscriber: true}, 1080000},
		{"ecmo and escort", quote.Request{Equipment: []provider.Equipment{provider.EquipmentECMO, provider.EquipmentEscort}}, 2200000},
		{"other is free", quote.Request{Equipment: []provider.Equipment{provider.EquipmentOther}}, 1000000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			total, _ := a.Price(&tt.req, p)
			if total.Amount != tt.want {
				t.Errorf("price = %d, want %d", total.Amount, tt.want)
			}
		})
	}
}

func TestPriceRoundsToCent(t *testing.T) {
	a := allocator.New(allocator.DefaultConfig(), nil)
	p := &provider.Provider{BasePrice: types.USD(1005)} // $10.05

	// 1005 x 1.2 = 1206, x 0.9 = 1085.4 -> 1085
	total, _ := a.Price(&quote.Request{Urgency: quote.UrgencyCritical, Subscriber: true}, p)
	if total.Amount != 1085 {
		t.Errorf("price = %d, want 1085", total.Amount)
	}
}

func TestRandomDrawerBounds(t *testing.T) {
	d := allocator.NewRandomDrawer(42)
	never := &provider.Provider{ResponseRate30d: 0}
	always := &provider.Provider{ResponseRate30d: 100}

	for range 200 {
		if d.Responds(never) {
			t.Fatal("0% responder answered")
		}
		if !d.Responds(always) {
			t.Fatal("100% responder stayed silent")
		}
		if eta := d.ETAHours(always, 2, 8); eta < 2 || eta > 8 {
			t.Fatalf("eta %d out of range", eta)
		}
	}
}

func TestAllocateOrderingProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 25).Draw(t, "providers")
		providers := make([]*provider.Provider, n)
		for i := range providers {
			providers[i] = &provider.Provider{
				ID:              id.NewProviderID(),
				BasePrice:       types.USD(rapid.Int64Range(100000, 10000000).Draw(t, "base")),
				ResponseRate30d: float64(rapid.IntRange(0, 100).Draw(t, "rate")),
			}
		}
		seed := rapid.Uint64Range(1, 1<<40).Draw(t, "seed")
		a := allocator.New(allocator.DefaultConfig(), allocator.NewRandomDrawer(seed))

		res := a.Allocate(&quote.Request{Urgency: quote.UrgencyStandard}, providers)
		if len(res.Quotes) != n {
			t.Fatalf("quotes = %d, want %d", len(res.Quotes), n)
		}

		responders := res.Quotes[:res.Responded]
		seenLow := false
		for i, q := range responders {
			if !q.Responded || q.Rank != i+1 {
				t.Fatalf("responder %d has rank %d", i, q.Rank)
			}
			if (q.Tier == quote.TierHigh) != (q.ResponseRate30d >= 50) {
				t.Fatalf("tier %s for rate %v", q.Tier, q.ResponseRate30d)
			}
			if q.Tier == quote.TierLow {
				seenLow = true
			} else if seenLow {
				t.Fatal("high responder ranked after a low responder")
			}
			if i > 0 && responders[i-1].Tier == q.Tier && q.Price.LessThan(responders[i-1].Price) {
				t.Fatalf("price decreases inside tier %s at rank %d", q.Tier, q.Rank)
			}
		}
		for _, q := range res.Quotes[res.Responded:] {
			if q.Responded || q.Rank != 0 {
				t.Fatalf("non-responder carries rank %d", q.Rank)
			}
		}
	})
}
