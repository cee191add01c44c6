package audithook_test

import (
	"context"
	"errors"
	"testing"
	"time"

	audithook "github.com/xraph/medquote/audit_hook"
	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/quote"
	"github.com/xraph/medquote/types"
)

type captured struct {
	events []*audithook.AuditEvent
	err    error
}

func (c *captured) Record(_ context.Context, e *audithook.AuditEvent) error {
	c.events = append(c.events, e)
	return c.err
}

func TestCommissionActions(t *testing.T) {
	tests := []struct {
		name   string
		kind   commission.Kind
		action string
	}{
		{"booking", commission.KindBooking, audithook.ActionCommissionRecorded},
		{"adjustment", commission.KindAdjustment, audithook.ActionRecoupAdjusted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &captured{}
			ext := audithook.New(rec)

			entry := &commission.Entry{
				ID:            id.NewEntryID(),
				ProviderID:    id.NewProviderID(),
				Kind:          tt.kind,
				EffectiveRate: 400,
				Commission:    types.USD(110400),
			}
			if err := ext.OnCommissionRecorded(context.Background(), entry); err != nil {
				t.Fatal(err)
			}
			if len(rec.events) != 1 {
				t.Fatalf("events = %d", len(rec.events))
			}
			got := rec.events[0]
			if got.Action != tt.action || got.ResourceID != entry.ID.String() {
				t.Errorf("got %s/%s", got.Action, got.ResourceID)
			}
			if got.Metadata["rate"] != "4.00" {
				t.Errorf("rate = %v", got.Metadata["rate"])
			}
		})
	}
}

func TestEnabledActions(t *testing.T) {
	rec := &captured{}
	ext := audithook.New(rec, audithook.WithEnabledActions(audithook.ActionInvoicePaid))
	ctx := context.Background()

	inv := &invoice.Invoice{ID: id.NewInvoiceID(), Number: "INV-2025W07-ABCDEFGH"}
	_ = ext.OnInvoiceIssued(ctx, inv)
	_ = ext.OnInvoicePaid(ctx, inv)

	if len(rec.events) != 1 || rec.events[0].Action != audithook.ActionInvoicePaid {
		t.Fatalf("unexpected events: %+v", rec.events)
	}
}

func TestDisabledActions(t *testing.T) {
	rec := &captured{}
	ext := audithook.New(rec, audithook.WithDisabledActions(audithook.ActionQuoteExpired))
	ctx := context.Background()

	r := &quote.Request{ID: id.NewRequestID(), ExpiresAt: time.Now()}
	_ = ext.OnQuoteExpired(ctx, r)
	_ = ext.OnQuoteCancelled(ctx, r, true)

	if len(rec.events) != 1 || rec.events[0].Action != audithook.ActionQuoteCancelled {
		t.Fatalf("unexpected events: %+v", rec.events)
	}
	if rec.events[0].Metadata["notify_providers"] != true {
		t.Error("notify flag not recorded")
	}
}

func TestRecorderFailureIsSwallowed(t *testing.T) {
	rec := &captured{err: errors.New("backend down")}
	ext := audithook.New(rec)

	r := &quote.Request{ID: id.NewRequestID(), BookingID: id.NewBookingID()}
	if err := ext.OnBookingConfirmed(context.Background(), r); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if len(rec.events) != 1 || rec.events[0].ResourceID != r.BookingID.String() {
		t.Fatalf("unexpected events: %+v", rec.events)
	}
}

func TestWithoutTraining(t *testing.T) {
	rec := &captured{}
	ext := audithook.New(rec, audithook.WithoutTraining())
	ctx := context.Background()

	_ = ext.OnQuoteReady(ctx, &quote.Request{ID: id.NewRequestID(), Training: true})
	_ = ext.OnCommissionRecorded(ctx, &commission.Entry{ID: id.NewEntryID(), IsDummy: true})
	_ = ext.OnQuoteReady(ctx, &quote.Request{ID: id.NewRequestID()})

	if len(rec.events) != 1 {
		t.Fatalf("events = %d, want 1 (live request only)", len(rec.events))
	}
}

func TestWithCategories(t *testing.T) {
	rec := &captured{}
	ext := audithook.New(rec, audithook.WithCategories(audithook.CategoryPayment))
	ctx := context.Background()

	_ = ext.OnQuoteReady(ctx, &quote.Request{ID: id.NewRequestID()})
	_ = ext.OnInvoicePaid(ctx, &invoice.Invoice{ID: id.NewInvoiceID(), Total: types.USD(100)})

	if len(rec.events) != 1 || rec.events[0].Action != audithook.ActionInvoicePaid {
		t.Fatalf("events = %+v, want only invoice.paid", rec.events)
	}
}
