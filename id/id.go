// Package id defines TypeID-based identity types for medquote entities.
//
// Every entity uses a single ID struct whose prefix names the entity type,
// e.g. "qreq_01h2xcejqtf2nbrexx3vqjhp41". IDs are K-sortable (UUIDv7-based)
// and safe to embed in URLs, CSV exports and object keys.
package id

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"go.jetify.com/typeid/v2"
)

// Prefix identifies the entity type encoded in a TypeID.
type Prefix string

// Prefix constants for all medquote entity types.
const (
	PrefixProvider Prefix = "prov"  // Transport provider (air operator)
	PrefixRequest  Prefix = "qreq"  // Quote request
	PrefixQuote    Prefix = "quote" // Provider quote within a request
	PrefixBooking  Prefix = "bkg"   // Confirmed booking
	PrefixEntry    Prefix = "cle"   // Commission ledger entry
	PrefixInvoice  Prefix = "inv"   // Provider invoice
)

// ID is the primary identifier type for all medquote entities.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ID.
var Nil ID

// New generates a new ID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}
	return ID{inner: tid, valid: true}
}

// Parse parses a TypeID string into an ID.
func Parse(s string) (ID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}
	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}
	return ID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and checks its prefix.
func ParseWithPrefix(s string, expected Prefix) (ID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}
	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}
	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded ID values.
func MustParse(s string) ID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}
	return parsed
}

// ──────────────────────────────────────────────────
// Entity aliases
// ──────────────────────────────────────────────────

// ProviderID identifies a transport provider (prefix: "prov").
type ProviderID = ID

// RequestID identifies a quote request (prefix: "qreq").
type RequestID = ID

// QuoteID identifies a provider quote (prefix: "quote").
type QuoteID = ID

// BookingID identifies a confirmed booking (prefix: "bkg").
type BookingID = ID

// EntryID identifies a commission ledger entry (prefix: "cle").
type EntryID = ID

// InvoiceID identifies an invoice (prefix: "inv").
type InvoiceID = ID

// NewProviderID generates a new provider ID.
func NewProviderID() ID { return New(PrefixProvider) }

// NewRequestID generates a new quote request ID.
func NewRequestID() ID { return New(PrefixRequest) }

// NewQuoteID generates a new provider quote ID.
func NewQuoteID() ID { return New(PrefixQuote) }

// NewBookingID generates a new booking ID.
func NewBookingID() ID { return New(PrefixBooking) }

// NewEntryID generates a new ledger entry ID.
func NewEntryID() ID { return New(PrefixEntry) }

// NewInvoiceID generates a new invoice ID.
func NewInvoiceID() ID { return New(PrefixInvoice) }

// ParseProviderID parses a string and validates the "prov" prefix.
func ParseProviderID(s string) (ID, error) { return ParseWithPrefix(s, PrefixProvider) }

// ParseRequestID parses a string and validates the "qreq" prefix.
func ParseRequestID(s string) (ID, error) { return ParseWithPrefix(s, PrefixRequest) }

// ParseQuoteID parses a string and validates the "quote" prefix.
func ParseQuoteID(s string) (ID, error) { return ParseWithPrefix(s, PrefixQuote) }

// ParseBookingID parses a string and validates the "bkg" prefix.
func ParseBookingID(s string) (ID, error) { return ParseWithPrefix(s, PrefixBooking) }

// ParseEntryID parses a string and validates the "cle" prefix.
func ParseEntryID(s string) (ID, error) { return ParseWithPrefix(s, PrefixEntry) }

// ParseInvoiceID parses a string and validates the "inv" prefix.
func ParseInvoiceID(s string) (ID, error) { return ParseWithPrefix(s, PrefixInvoice) }

// ParseOptional parses s with the expected prefix, mapping "" to Nil.
// Store backends use it for nullable reference columns.
func ParseOptional(s string, expected Prefix) (ID, error) {
	if s == "" {
		return Nil, nil
	}
	return ParseWithPrefix(s, expected)
}

// ──────────────────────────────────────────────────
// ID methods
// ──────────────────────────────────────────────────

// String returns the "prefix_suffix" form, or "" for Nil.
func (i ID) String() string {
	if !i.valid {
		return ""
	}
	return i.inner.String()
}

// Suffix returns the encoded UUID portion without the prefix.
func (i ID) Suffix() string {
	if !i.valid {
		return ""
	}
	s := i.inner.String()
	return s[strings.LastIndexByte(s, '_')+1:]
}

// Prefix returns the prefix component of this ID.
func (i ID) Prefix() Prefix {
	if !i.valid {
		return ""
	}
	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}
	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil
		return nil
	}
	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}
	*i = parsed
	return nil
}

// Value implements driver.Valuer. Nil is stored as NULL.
func (i ID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}
	return i.inner.String(), nil
}

// Scan implements sql.Scanner.
func (i *ID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = Nil
		return nil
	case string:
		return i.UnmarshalText([]byte(v))
	case []byte:
		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ID", src)
	}
}
