package id_test

import (
	"strings"
	"testing"

	"github.com/xraph/medquote/id"
)

func TestConstructors(t *testing.T) {
	tests := []struct {
		name    string
		newFn   func() id.ID
		parseFn func(string) (id.ID, error)
		prefix  string
	}{
		{"ProviderID", id.NewProviderID, id.ParseProviderID, "prov_"},
		{"RequestID", id.NewRequestID, id.ParseRequestID, "qreq_"},
		{"QuoteID", id.NewQuoteID, id.ParseQuoteID, "quote_"},
		{"BookingID", id.NewBookingID, id.ParseBookingID, "bkg_"},
		{"EntryID", id.NewEntryID, id.ParseEntryID, "cle_"},
		{"InvoiceID", id.NewInvoiceID, id.ParseInvoiceID, "inv_"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			original := tt.newFn()
			if !strings.HasPrefix(original.String(), tt.prefix) {
				t.Fatalf("expected prefix %q, got %q", tt.prefix, original.String())
			}
			parsed, err := tt.parseFn(original.String())
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			if parsed.String() != original.String() {
				t.Errorf("round-trip mismatch: %q != %q", parsed.String(), original.String())
			}
		})
	}
}

func TestCrossTypeRejection(t *testing.T) {
	if _, err := id.ParseRequestID(id.NewQuoteID().String()); err == nil {
		t.Error("ParseRequestID accepted a quote ID")
	}
	if _, err := id.ParseInvoiceID(id.NewEntryID().String()); err == nil {
		t.Error("ParseInvoiceID accepted an entry ID")
	}
}

func TestSuffix(t *testing.T) {
	i := id.NewProviderID()
	if got := "prov_" + i.Suffix(); got != i.String() {
		t.Errorf("suffix mismatch: %q vs %q", got, i.String())
	}
	if id.Nil.Suffix() != "" {
		t.Error("expected empty suffix for Nil")
	}
}

func TestParseOptional(t *testing.T) {
	got, err := id.ParseOptional("", id.PrefixProvider)
	if err != nil || !got.IsNil() {
		t.Fatalf("expected Nil, got %v (%v)", got, err)
	}
	if _, err := id.ParseOptional(id.NewBookingID().String(), id.PrefixProvider); err == nil {
		t.Error("expected prefix mismatch error")
	}
}

func TestValueScan(t *testing.T) {
	original := id.NewBookingID()
	val, err := original.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var scanned id.ID
	if scanErr := scanned.Scan(val); scanErr != nil {
		t.Fatalf("Scan failed: %v", scanErr)
	}
	if scanned.String() != original.String() {
		t.Errorf("mismatch: %q != %q", scanned.String(), original.String())
	}

	var nilID id.ID
	val, err = nilID.Value()
	if err != nil || val != nil {
		t.Fatalf("expected nil value for Nil ID, got %v (%v)", val, err)
	}

	var scanned2 id.ID
	if err := scanned2.Scan(nil); err != nil || !scanned2.IsNil() {
		t.Fatalf("expected Nil after scan of nil, got %v (%v)", scanned2, err)
	}
}

func TestMarshalText(t *testing.T) {
	original := id.NewInvoiceID()
	data, err := original.MarshalText()
	if err != nil {
		t.Fatalf("MarshalText failed: %v", err)
	}
	var restored id.ID
	if err := restored.UnmarshalText(data); err != nil {
		t.Fatalf("UnmarshalText failed: %v", err)
	}
	if restored.String() != original.String() {
		t.Errorf("mismatch: %q != %q", restored.String(), original.String())
	}
}

func TestUniqueness(t *testing.T) {
	if id.NewRequestID().String() == id.NewRequestID().String() {
		t.Error("two consecutive NewRequestID() calls returned the same ID")
	}
}
