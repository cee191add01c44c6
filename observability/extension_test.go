package observability_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/observability"
	"github.com/xraph/medquote/quote"
	"github.com/xraph/medquote/types"
)

type fakeFactory struct {
	mu       sync.Mutex
	counters map[string]*fakeMetric
	hists    map[string]*fakeMetric
}

type fakeMetric struct {
	total float64
	n     int
}

func (f *fakeMetric) Inc()              { f.total++; f.n++ }
func (f *fakeMetric) Add(v float64)     { f.total += v; f.n++ }
func (f *fakeMetric) Observe(v float64) { f.total += v; f.n++ }

func newFactory() *fakeFactory {
	return &fakeFactory{counters: map[string]*fakeMetric{}, hists: map[string]*fakeMetric{}}
}

func (f *fakeFactory) Counter(name string) observability.Counter {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &fakeMetric{}
	f.counters[name] = m
	return m
}

func (f *fakeFactory) Histogram(name string) observability.Histogram {
	f.mu.Lock()
	defer f.mu.Unlock()
	m := &fakeMetric{}
	f.hists[name] = m
	return m
}

func TestQuoteReady(t *testing.T) {
	f := newFactory()
	m := observability.NewMetricsExtension(f)

	r := &quote.Request{
		Training: true,
		Quotes: []quote.ProviderQuote{
			{Responded: true}, {Responded: true}, {Responded: false},
		},
	}
	if err := m.OnQuoteReady(context.Background(), r); err != nil {
		t.Fatal(err)
	}

	if got := f.counters["medquote.quote.ready"].total; got != 1 {
		t.Errorf("ready = %v", got)
	}
	if got := f.hists["medquote.quote.candidates"].total; got != 3 {
		t.Errorf("candidates = %v", got)
	}
	if got := f.hists["medquote.quote.responded"].total; got != 2 {
		t.Errorf("responded = %v", got)
	}
	if got := f.counters["medquote.quote.training"].total; got != 1 {
		t.Errorf("training = %v", got)
	}
}

func TestCommissionRecorded(t *testing.T) {
	tests := []struct {
		name    string
		entry   commission.Entry
		counter string
	}{
		{
			name:    "discounted",
			entry:   commission.Entry{Kind: commission.KindBooking, Commission: types.USD(400), RecoupApplied: types.USD(100)},
			counter: "medquote.commission.discounted",
		},
		{
			name:    "standard",
			entry:   commission.Entry{Kind: commission.KindBooking, Commission: types.USD(500), RecoupApplied: types.USD(0)},
			counter: "medquote.commission.standard",
		},
		{
			name:    "dummy",
			entry:   commission.Entry{Kind: commission.KindBooking, IsDummy: true},
			counter: "medquote.commission.dummy",
		},
		{
			name:    "adjustment",
			entry:   commission.Entry{Kind: commission.KindAdjustment},
			counter: "medquote.recoup.adjustments",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFactory()
			m := observability.NewMetricsExtension(f)
			if err := m.OnCommissionRecorded(context.Background(), &tt.entry); err != nil {
				t.Fatal(err)
			}
			if got := f.counters[tt.counter].total; got != 1 {
				t.Errorf("%s = %v", tt.counter, got)
			}
		})
	}
}

func TestInvoiceHooks(t *testing.T) {
	f := newFactory()
	m := observability.NewMetricsExtension(f)
	ctx := context.Background()

	_ = m.OnInvoiceIssued(ctx, &invoice.Invoice{Total: types.USD(40494)})
	_ = m.OnInvoicePaid(ctx, &invoice.Invoice{})
	_ = m.OnInvoiceRun(ctx, 1, 25*time.Millisecond)

	if got := f.hists["medquote.invoice.total_cents"].total; got != 40494 {
		t.Errorf("total = %v", got)
	}
	if got := f.counters["medquote.invoice.paid"].total; got != 1 {
		t.Errorf("paid = %v", got)
	}
	if got := f.hists["medquote.invoice.run.latency_ms"].total; got != 25 {
		t.Errorf("latency = %v", got)
	}
}
