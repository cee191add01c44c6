package quote_test

import (
	"testing"
	"time"

	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/quote"
	"github.com/xraph/medquote/types"
)

func TestMaskedName(t *testing.T) {
	tests := []struct {
		rank int
		want string
	}{
		{1, "Affiliate A****"},
		{2, "Affiliate B****"},
		{26, "Affiliate Z****"},
		{27, "Affiliate AA****"},
		{52, "Affiliate AZ****"},
		{0, "Affiliate ****"},
	}
	for _, tt := range tests {
		if got := quote.MaskedName(tt.rank); got != tt.want {
			t.Errorf("MaskedName(%d) = %q, want %q", tt.rank, got, tt.want)
		}
	}
}

func TestExpired(t *testing.T) {
	exp := time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)
	r := &quote.Request{ExpiresAt: exp}

	if r.Expired(exp.Add(-time.Second)) {
		t.Error("expired before ExpiresAt")
	}
	if !r.Expired(exp) {
		t.Error("not expired at ExpiresAt")
	}
}

func newRequest(created time.Time, responded, silent int) *quote.Request {
	r := &quote.Request{
		Entity:       types.NewEntityAt(created),
		ID:           id.NewRequestID(),
		State:        quote.StateOpen,
		ExpiresAt:    created.Add(quote.DefaultTTL),
		VisibleCount: quote.DefaultVisibleCount,
	}
	for i := range responded {
		r.Quotes = append(r.Quotes, quote.ProviderQuote{
			ID:           id.NewQuoteID(),
			ProviderID:   id.NewProviderID(),
			ProviderName: "Operator",
			MaskedName:   quote.MaskedName(i + 1),
			Price:        types.Dollars(int64(10000 + i*100)),
			Responded:    true,
			Rank:         i + 1,
		})
	}
	for range silent {
		r.Quotes = append(r.Quotes, quote.ProviderQuote{
			ID:         id.NewQuoteID(),
			ProviderID: id.NewProviderID(),
		})
	}
	return r
}

func TestFindQuote(t *testing.T) {
	r := newRequest(time.Now(), 3, 1)
	want := r.Quotes[1]

	got, ok := r.FindQuote(want.ID)
	if !ok || got.ProviderID.String() != want.ProviderID.String() {
		t.Fatalf("FindQuote did not return the quote")
	}
	if _, ok := r.FindQuote(id.NewQuoteID()); ok {
		t.Error("FindQuote matched an unknown quote")
	}
	if n := len(r.Responded()); n != 3 {
		t.Errorf("Responded() len = %d, want 3", n)
	}
}
