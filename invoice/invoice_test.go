package invoice_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/types"
)

func entry(providerID id.ProviderID, booking string, at time.Time, base int64) *commission.Entry {
	return commission.DefaultPolicy().Compute(
		commission.RecoupState{ProviderID: providerID, Recouped: types.Zero("usd")},
		commission.Completion{BookingID: booking, ProviderID: providerID, BaseAmount: types.USD(base), CompletedAt: at},
	)
}

func TestGroupEntries(t *testing.T) {
	p1, p2 := id.NewProviderID(), id.NewProviderID()
	wed := time.Date(2025, 2, 12, 9, 0, 0, 0, time.UTC)  // 2025-W07
	next := time.Date(2025, 2, 16, 1, 0, 0, 0, time.UTC) // Sunday, 2025-W08

	groups := invoice.GroupEntries([]*commission.Entry{
		entry(p1, "a", wed, 100000),
		entry(p2, "b", wed, 100000),
		entry(p1, "c", next, 100000),
		entry(p1, "d", wed.Add(time.Hour), 100000),
	})

	if len(groups) != 3 {
		t.Fatalf("groups = %d, want 3", len(groups))
	}
	for _, g := range groups {
		for _, e := range g.Entries {
			if e.ProviderID.String() != g.ProviderID.String() || e.InvoiceWeek != g.Week {
				t.Fatalf("entry %s in wrong group", e.BookingID)
			}
		}
		if g.ProviderID.String() == p1.String() && g.Week.String() == "2025-W07" && len(g.Entries) != 2 {
			t.Errorf("p1 W07 entries = %d, want 2", len(g.Entries))
		}
	}
}

func TestNew(t *testing.T) {
	providerID := id.NewProviderID()
	wed := time.Date(2025, 2, 12, 9, 0, 0, 0, time.UTC)
	issued := time.Date(2025, 2, 16, 6, 0, 0, 0, time.UTC)

	g := invoice.GroupEntries([]*commission.Entry{
		entry(providerID, "late", wed.Add(2*time.Hour), 1000000), // 400.00
		entry(providerID, "early", wed, 12345),                   // 4.94
	})[0]
	inv := invoice.New(g, issued)

	if inv.Total.Amount != 40494 {
		t.Errorf("total = %d, want 40494", inv.Total.Amount)
	}
	if !inv.Total.Equal(inv.LineTotal()) {
		t.Error("total does not reconcile with lines")
	}
	if inv.Lines[0].BookingID != "early" {
		t.Errorf("lines not ordered by completion: %s first", inv.Lines[0].BookingID)
	}
	if inv.Status != invoice.StatusIssued || !inv.DueAt.Equal(issued.AddDate(0, 0, 7)) {
		t.Errorf("status=%s due=%s", inv.Status, inv.DueAt)
	}
	if !strings.HasPrefix(inv.Number, "INV-2025W07-") {
		t.Errorf("number = %q", inv.Number)
	}
}

func TestWriteLineItems(t *testing.T) {
	providerID := id.NewProviderID()
	at := time.Date(2025, 2, 12, 9, 30, 0, 0, time.FixedZone("EST", -5*3600))
	inv := invoice.New(invoice.GroupEntries([]*commission.Entry{
		entry(providerID, "bkg_1", at, 123456789),
	})[0], time.Now())

	var buf bytes.Buffer
	if err := invoice.WriteLineItems(&buf, inv); err != nil {
		t.Fatalf("WriteLineItems: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	want := [][]string{
		{"booking_id", "completed_at", "base_amount_usd", "effective_percent", "commission_amount_usd"},
		{"bkg_1", "2025-02-12T14:30:00Z", "1234567.89", "4.00", "49382.72"},
	}
	if len(rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(rows), len(want))
	}
	for i := range want {
		if strings.Join(rows[i], ",") != strings.Join(want[i], ",") {
			t.Errorf("row %d = %v, want %v", i, rows[i], want[i])
		}
	}
}

func TestDocument(t *testing.T) {
	providerID := id.NewProviderID()
	inv := invoice.New(invoice.GroupEntries([]*commission.Entry{
		entry(providerID, "<script>", time.Date(2025, 2, 12, 9, 0, 0, 0, time.UTC), 1000000),
	})[0], time.Date(2025, 2, 16, 6, 0, 0, 0, time.UTC))
	inv.ProviderName = "Skyline Air"

	var buf bytes.Buffer
	if err := invoice.Document(inv, invoice.DefaultRemittance).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	html := buf.String()

	for _, want := range []string{
		inv.Number,
		"Skyline Air",
		"Sun 9 Feb 2025 - Sat 15 Feb 2025",
		"Sun 23 Feb 2025",
		"$400.00",
		"&lt;script&gt;",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if strings.Contains(html, "<script>") {
		t.Error("booking id was not escaped")
	}
	if !strings.HasPrefix(html, "<!doctype html>") {
		t.Errorf("document starts with %.20q", html)
	}
	if strings.Contains(html, "Payment method") {
		t.Error("unpaid invoice shows payment details")
	}

	paidAt := time.Date(2025, 2, 20, 15, 0, 0, 0, time.UTC)
	inv.Status = invoice.StatusPaid
	inv.PaidAt = &paidAt
	inv.PaymentMethod = invoice.PaymentCheck
	inv.RemittanceRef = "chk-1042"
	buf.Reset()
	if err := invoice.Document(inv, invoice.DefaultRemittance).Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render paid: %v", err)
	}
	for _, want := range []string{
		"<dt>Paid</dt><dd>Thu 20 Feb 2025</dd>",
		"<dt>Payment method</dt><dd>check</dd>",
		"<dt>Reference</dt><dd>chk-1042</dd>",
	} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("paid document missing %q", want)
		}
	}
}

func TestPaymentMethodIsValid(t *testing.T) {
	for _, m := range []invoice.PaymentMethod{invoice.PaymentACH, invoice.PaymentCheck, invoice.PaymentWire} {
		if !m.IsValid() {
			t.Errorf("%s should be valid", m)
		}
	}
	for _, m := range []invoice.PaymentMethod{"", "paypal", "ACH"} {
		if m.IsValid() {
			t.Errorf("%q should be invalid", m)
		}
	}
}
