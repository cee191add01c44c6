package notify_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/xraph/medquote"
	"github.com/xraph/medquote/allocator"
	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/notify"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/quote"
	"github.com/xraph/medquote/store/memory"
	"github.com/xraph/medquote/types"
)

type received struct {
	header http.Header
	env    map[string]any
}

func newServer(t *testing.T, status int) (*httptest.Server, *[]received) {
	t.Helper()
	var (
		mu  sync.Mutex
		got []received
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env map[string]any
		if err := json.NewDecoder(r.Body).Decode(&env); err != nil {
			t.Errorf("decode body: %v", err)
		}
		mu.Lock()
		got = append(got, received{header: r.Header.Clone(), env: env})
		mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv, &got
}

var fixed = time.Date(2025, 3, 4, 10, 0, 0, 0, time.UTC)

func clock() time.Time { return fixed }

func TestPublisherQuoteReadyMasksProviders(t *testing.T) {
	srv, got := newServer(t, http.StatusAccepted)
	p := notify.NewPublisher(srv.URL, notify.WithClock(clock))

	r := &quote.Request{
		ID:           id.NewRequestID(),
		State:        quote.StateOpen,
		ExpiresAt:    fixed.Add(time.Hour),
		VisibleCount: 5,
		Quotes: []quote.ProviderQuote{{
			ID:           id.NewQuoteID(),
			ProviderID:   id.NewProviderID(),
			ProviderName: "Skyline Air",
			Responded:    true,
			Price:        types.Dollars(12000),
		}},
	}
	if err := p.OnQuoteReady(context.Background(), r); err != nil {
		t.Fatalf("OnQuoteReady: %v", err)
	}

	if len(*got) != 1 {
		t.Fatalf("deliveries = %d, want 1", len(*got))
	}
	d := (*got)[0]
	if d.header.Get(notify.HeaderEvent) != notify.EventQuoteReady {
		t.Errorf("event header = %q", d.header.Get(notify.HeaderEvent))
	}
	if d.header.Get(notify.HeaderDelivery) != d.env["id"] {
		t.Errorf("delivery header %q does not match envelope id %v", d.header.Get(notify.HeaderDelivery), d.env["id"])
	}

	data := d.env["data"].(map[string]any)
	quotes := data["quotes"].([]any)
	if len(quotes) != 1 {
		t.Fatalf("quotes = %d, want 1", len(quotes))
	}
	if name, _ := quotes[0].(map[string]any)["provider_name"].(string); name == "Skyline Air" {
		t.Error("provider name leaked before selection")
	}
}

func TestPublisherCancellation(t *testing.T) {
	tests := []struct {
		name   string
		notify bool
		want   int
	}{
		{"notify", true, 1},
		{"silent", false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv, got := newServer(t, http.StatusOK)
			p := notify.NewPublisher(srv.URL)

			r := &quote.Request{ID: id.NewRequestID(), CancelNote: "patient stable"}
			if err := p.OnQuoteCancelled(context.Background(), r, tt.notify); err != nil {
				t.Fatalf("OnQuoteCancelled: %v", err)
			}
			if len(*got) != tt.want {
				t.Fatalf("deliveries = %d, want %d", len(*got), tt.want)
			}
		})
	}
}

func TestPublisherInvoiceIssued(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	p := notify.NewPublisher(srv.URL)

	inv := &invoice.Invoice{
		ID:         id.NewInvoiceID(),
		Number:     "INV-2025W10-abcd",
		ProviderID: id.NewProviderID(),
		Week:       types.Week{Year: 2025, Number: 10},
		Total:      types.USD(48000),
	}
	if err := p.OnInvoiceIssued(context.Background(), inv); err != nil {
		t.Fatalf("OnInvoiceIssued: %v", err)
	}

	data := (*got)[0].env["data"].(map[string]any)
	if data["week"] != "2025-W10" {
		t.Errorf("week = %v, want 2025-W10", data["week"])
	}
	if data["total_cents"] != float64(48000) {
		t.Errorf("total_cents = %v, want 48000", data["total_cents"])
	}
}

func TestPublisherRejected(t *testing.T) {
	srv, _ := newServer(t, http.StatusInternalServerError)
	p := notify.NewPublisher(srv.URL)

	err := p.OnBookingConfirmed(context.Background(), &quote.Request{ID: id.NewRequestID()})
	if !notify.IsRejected(err) {
		t.Fatalf("err = %v, want delivery rejection", err)
	}
}

func TestPublisherEventFilter(t *testing.T) {
	srv, got := newServer(t, http.StatusOK)
	p := notify.NewPublisher(srv.URL, notify.WithEvents(notify.EventInvoiceIssued))

	if err := p.OnBookingConfirmed(context.Background(), &quote.Request{ID: id.NewRequestID()}); err != nil {
		t.Fatalf("OnBookingConfirmed: %v", err)
	}
	if len(*got) != 0 {
		t.Fatalf("filtered event delivered")
	}
}

func TestSlowWebhookDoesNotDelayAllocate(t *testing.T) {
	var delivered atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(500 * time.Millisecond)
		delivered.Add(1)
		w.WriteHeader(http.StatusOK)
	}))
	t.Cleanup(srv.Close)

	engine := medquote.New(memory.New(),
		medquote.WithDrawer(allocator.AlwaysResponds()),
		medquote.WithPlugin(notify.NewPublisher(srv.URL)),
	)
	ctx := context.Background()
	if err := engine.Start(ctx); err != nil {
		t.Fatal(err)
	}

	p := &provider.Provider{Name: "Skyline Air", BasePrice: types.Dollars(15000), ResponseRate30d: 80}
	if err := engine.RegisterProvider(ctx, p); err != nil {
		t.Fatal(err)
	}

	start := time.Now()
	if _, err := engine.Allocate(ctx, medquote.Submission{RequesterRef: "family-1", Origin: "KMIA", Destination: "KBOS"}); err != nil {
		t.Fatalf("Allocate: %v", err)
	}
	if took := time.Since(start); took > 250*time.Millisecond {
		t.Fatalf("Allocate took %v waiting on the webhook", took)
	}

	if err := engine.Stop(); err != nil {
		t.Fatal(err)
	}
	if delivered.Load() != 1 {
		t.Fatalf("deliveries after Stop = %d, want 1", delivered.Load())
	}
}

func TestSyncDeliveryOption(t *testing.T) {
	if !notify.NewPublisher("http://example.invalid").RunAsync() {
		t.Error("publisher should deliver in the background by default")
	}
	if notify.NewPublisher("http://example.invalid", notify.WithSyncDelivery()).RunAsync() {
		t.Error("WithSyncDelivery publisher still runs in the background")
	}
}
