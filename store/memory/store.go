// Package memory is an in-process Store used by tests and demos. It
// enforces the same uniqueness rules as the SQL backends.
package memory

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/xraph/medquote"
	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/quote"
	"github.com/xraph/medquote/store"
	"github.com/xraph/medquote/types"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	mu sync.RWMutex

	providers map[string]*provider.Provider
	requests  map[string]*quote.Request

	// Ledger storage with its unique indexes
	entries   map[string]*commission.Entry
	byBooking map[string]string // booking ID -> entry ID
	bySeq     map[string]string // provider|seq -> entry ID
	latest    map[string]string // provider -> entry ID with the highest seq

	invoices map[string]*invoice.Invoice
	byWeek   map[string]string // provider|week -> invoice ID

	closed bool
}

func New() *Store {
	return &Store{
		providers: make(map[string]*provider.Provider),
		requests:  make(map[string]*quote.Request),
		entries:   make(map[string]*commission.Entry),
		byBooking: make(map[string]string),
		bySeq:     make(map[string]string),
		latest:    make(map[string]string),
		invoices:  make(map[string]*invoice.Invoice),
		byWeek:    make(map[string]string),
	}
}

// ──────────────────────────────────────────────────
// Provider Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateProvider(_ context.Context, p *provider.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.providers[p.ID.String()]; exists {
		return medquote.ErrAlreadyExists
	}
	s.providers[p.ID.String()] = cloneProvider(p)
	return nil
}

func (s *Store) GetProvider(_ context.Context, providerID id.ProviderID) (*provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.providers[providerID.String()]; ok {
		return cloneProvider(p), nil
	}
	return nil, medquote.ErrProviderNotFound
}

func (s *Store) ListProviders(_ context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*provider.Provider
	for _, p := range s.providers {
		if opts.PriorityOnly && !p.IsPriorityPartner {
			continue
		}
		result = append(result, cloneProvider(p))
	}
	slices.SortFunc(result, func(a, b *provider.Provider) int {
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) UpdateProvider(_ context.Context, p *provider.Provider) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.providers[p.ID.String()]; !exists {
		return medquote.ErrProviderNotFound
	}
	s.providers[p.ID.String()] = cloneProvider(p)
	return nil
}

func (s *Store) UpdateProviderStats(_ context.Context, providerID id.ProviderID, stats provider.Stats) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.providers[providerID.String()]
	if !ok {
		return medquote.ErrProviderNotFound
	}
	p.ResponseRate30d = stats.ResponseRate30d
	p.TotalBookings = stats.TotalBookings
	p.DaysSinceJoin = stats.DaysSinceJoin
	p.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) IncrementProviderBookings(_ context.Context, providerID id.ProviderID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.providers[providerID.String()]
	if !ok {
		return medquote.ErrProviderNotFound
	}
	p.TotalBookings++
	return nil
}

// ──────────────────────────────────────────────────
// Quote request Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateRequest(_ context.Context, r *quote.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[r.ID.String()]; exists {
		return medquote.ErrAlreadyExists
	}
	s.requests[r.ID.String()] = cloneRequest(r)
	return nil
}

func (s *Store) GetRequest(_ context.Context, requestID id.RequestID) (*quote.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if r, ok := s.requests[requestID.String()]; ok {
		return cloneRequest(r), nil
	}
	return nil, medquote.ErrRequestNotFound
}

func (s *Store) ListRequests(_ context.Context, opts quote.ListOpts) ([]*quote.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*quote.Request
	for _, r := range s.requests {
		if opts.RequesterRef != "" && r.RequesterRef != opts.RequesterRef {
			continue
		}
		if opts.State != "" && r.State != opts.State {
			continue
		}
		result = append(result, cloneRequest(r))
	}
	slices.SortFunc(result, func(a, b *quote.Request) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) TransitionRequest(_ context.Context, t quote.Transition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[t.RequestID.String()]
	if !ok {
		return medquote.ErrRequestNotFound
	}
	if !t.Allowed(r) {
		return medquote.ErrStateConflict
	}
	t.Apply(r)
	return nil
}

func (s *Store) SetVisibleCount(_ context.Context, requestID id.RequestID, from, to int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.requests[requestID.String()]
	if !ok {
		return medquote.ErrRequestNotFound
	}
	if r.State != quote.StateOpen || r.VisibleCount != from {
		return medquote.ErrStateConflict
	}
	r.VisibleCount = to
	r.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) ListExpirableRequests(_ context.Context, now time.Time, limit int) ([]*quote.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*quote.Request
	for _, r := range s.requests {
		if r.State == quote.StateOpen && r.Expired(now) {
			result = append(result, cloneRequest(r))
		}
	}
	slices.SortFunc(result, func(a, b *quote.Request) int {
		return a.ExpiresAt.Compare(b.ExpiresAt)
	})
	return paginate(result, 0, limit), nil
}

func (s *Store) CountTrainingRequests(_ context.Context, requesterRef string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, r := range s.requests {
		if r.Training && r.RequesterRef == requesterRef {
			n++
		}
	}
	return n, nil
}

func (s *Store) DeleteRequest(_ context.Context, requestID id.RequestID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[requestID.String()]; !ok {
		return medquote.ErrRequestNotFound
	}
	delete(s.requests, requestID.String())
	return nil
}

func (s *Store) PurgeTrainingRequests(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, r := range s.requests {
		if r.Training && r.CreatedAt.Before(before) {
			delete(s.requests, key)
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Ledger Store implementation
// ──────────────────────────────────────────────────

func (s *Store) AppendEntry(_ context.Context, e *commission.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byBooking[e.BookingID]; exists {
		return medquote.ErrAlreadyExists
	}
	seqKey := seqKey(e.ProviderID, e.Seq)
	if e.Seq > 0 {
		if _, taken := s.bySeq[seqKey]; taken {
			return medquote.ErrRecoupConflict
		}
	}

	stored := *e
	s.entries[e.ID.String()] = &stored
	s.byBooking[e.BookingID] = e.ID.String()
	if e.Seq > 0 {
		s.bySeq[seqKey] = e.ID.String()
		if cur, ok := s.latest[e.ProviderID.String()]; !ok || s.entries[cur].Seq < e.Seq {
			s.latest[e.ProviderID.String()] = e.ID.String()
		}
	}
	return nil
}

func (s *Store) GetEntry(_ context.Context, entryID id.EntryID) (*commission.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if e, ok := s.entries[entryID.String()]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, medquote.ErrEntryNotFound
}

func (s *Store) GetEntryByBooking(_ context.Context, bookingID string) (*commission.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entryID, ok := s.byBooking[bookingID]; ok {
		cp := *s.entries[entryID]
		return &cp, nil
	}
	return nil, medquote.ErrEntryNotFound
}

func (s *Store) LatestRecoupEntry(_ context.Context, providerID id.ProviderID) (*commission.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if entryID, ok := s.latest[providerID.String()]; ok {
		cp := *s.entries[entryID]
		return &cp, nil
	}
	return nil, medquote.ErrEntryNotFound
}

func (s *Store) ListEntries(_ context.Context, opts commission.ListOpts) ([]*commission.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*commission.Entry
	for _, e := range s.entries {
		if !opts.ProviderID.IsNil() && e.ProviderID.String() != opts.ProviderID.String() {
			continue
		}
		if !opts.Week.IsZero() && e.InvoiceWeek != opts.Week {
			continue
		}
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		if e.IsDummy && !opts.IncludeDummy {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	sortEntries(result)
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) ListUninvoicedEntries(_ context.Context, through types.Week) ([]*commission.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*commission.Entry
	for _, e := range s.entries {
		if !e.Invoiceable() {
			continue
		}
		if !through.IsZero() && through.Before(e.InvoiceWeek) {
			continue
		}
		if _, invoiced := s.byWeek[weekKey(e.ProviderID, e.InvoiceWeek)]; invoiced {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}
	sortEntries(result)
	return result, nil
}

func (s *Store) PurgeDummyEntries(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	for key, e := range s.entries {
		if e.IsDummy && e.CompletedAt.Before(before) {
			delete(s.entries, key)
			delete(s.byBooking, e.BookingID)
			n++
		}
	}
	return n, nil
}

// ──────────────────────────────────────────────────
// Invoice Store implementation
// ──────────────────────────────────────────────────

func (s *Store) CreateInvoice(_ context.Context, inv *invoice.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := weekKey(inv.ProviderID, inv.Week)
	if _, exists := s.byWeek[key]; exists {
		return medquote.ErrAlreadyExists
	}
	if _, exists := s.invoices[inv.ID.String()]; exists {
		return medquote.ErrAlreadyExists
	}
	s.invoices[inv.ID.String()] = cloneInvoice(inv)
	s.byWeek[key] = inv.ID.String()
	return nil
}

func (s *Store) GetInvoice(_ context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if inv, ok := s.invoices[invID.String()]; ok {
		return cloneInvoice(inv), nil
	}
	return nil, medquote.ErrInvoiceNotFound
}

func (s *Store) GetInvoiceByWeek(_ context.Context, providerID id.ProviderID, week types.Week) (*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if invID, ok := s.byWeek[weekKey(providerID, week)]; ok {
		return cloneInvoice(s.invoices[invID]), nil
	}
	return nil, medquote.ErrInvoiceNotFound
}

func (s *Store) ListInvoices(_ context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*invoice.Invoice
	for _, inv := range s.invoices {
		if !opts.ProviderID.IsNil() && inv.ProviderID.String() != opts.ProviderID.String() {
			continue
		}
		if opts.Status != "" && inv.Status != opts.Status {
			continue
		}
		if !opts.Week.IsZero() && inv.Week != opts.Week {
			continue
		}
		result = append(result, cloneInvoice(inv))
	}
	slices.SortFunc(result, func(a, b *invoice.Invoice) int {
		if c := cmp.Compare(b.Week.String(), a.Week.String()); c != 0 {
			return c
		}
		return cmp.Compare(a.ProviderID.String(), b.ProviderID.String())
	})
	return paginate(result, opts.Offset, opts.Limit), nil
}

func (s *Store) MarkInvoicePaid(_ context.Context, invID id.InvoiceID, payment invoice.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	inv, ok := s.invoices[invID.String()]
	if !ok {
		return medquote.ErrInvoiceNotFound
	}
	if inv.Status != invoice.StatusIssued {
		return medquote.ErrStateConflict
	}
	paidAt := payment.PaidAt.UTC()
	inv.Status = invoice.StatusPaid
	inv.PaidAt = &paidAt
	inv.PaymentMethod = payment.Method
	inv.RemittanceRef = payment.RemittanceRef
	inv.UpdatedAt = paidAt
	return nil
}

// ──────────────────────────────────────────────────
// Core methods
// ──────────────────────────────────────────────────

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return medquote.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func seqKey(providerID id.ProviderID, seq int64) string {
	return providerID.String() + "|" + strconv.FormatInt(seq, 10)
}

func weekKey(providerID id.ProviderID, week types.Week) string {
	return providerID.String() + "|" + week.String()
}

func sortEntries(entries []*commission.Entry) {
	slices.SortFunc(entries, func(a, b *commission.Entry) int {
		if c := a.CompletedAt.Compare(b.CompletedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID.String(), b.ID.String())
	})
}

func paginate[T any](items []T, offset, limit int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return nil
		}
		items = items[offset:]
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items
}

func cloneProvider(p *provider.Provider) *provider.Provider {
	cp := *p
	cp.Capabilities = slices.Clone(p.Capabilities)
	return &cp
}

func cloneRequest(r *quote.Request) *quote.Request {
	cp := *r
	cp.Equipment = slices.Clone(r.Equipment)
	cp.Quotes = slices.Clone(r.Quotes)
	return &cp
}

func cloneInvoice(inv *invoice.Invoice) *invoice.Invoice {
	cp := *inv
	cp.Lines = slices.Clone(inv.Lines)
	return &cp
}
