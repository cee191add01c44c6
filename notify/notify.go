// Package notify delivers engine events to an HTTP webhook.
//
// Each event is POSTed as a JSON Envelope. Quote-ready payloads carry the
// requester view, so provider identities stay masked on the wire.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/plugin"
	"github.com/xraph/medquote/quote"
)

// Event types.
const (
	EventQuoteReady       = "quote.ready"
	EventBookingConfirmed = "booking.confirmed"
	EventRequestCancelled = "request.cancelled"
	EventInvoiceIssued    = "invoice.issued"
)

// Delivery headers.
const (
	HeaderEvent    = "X-Medquote-Event"
	HeaderDelivery = "X-Medquote-Delivery"
)

// Compile-time interface checks.
var (
	_ plugin.Plugin             = (*Publisher)(nil)
	_ plugin.Async              = (*Publisher)(nil)
	_ plugin.OnQuoteReady       = (*Publisher)(nil)
	_ plugin.OnBookingConfirmed = (*Publisher)(nil)
	_ plugin.OnQuoteCancelled   = (*Publisher)(nil)
	_ plugin.OnInvoiceIssued    = (*Publisher)(nil)
)

// Envelope is the JSON body of every delivery.
type Envelope struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

// BookingPayload is sent on booking confirmation.
type BookingPayload struct {
	RequestID  string    `json:"request_id"`
	BookingID  string    `json:"booking_id"`
	ProviderID string    `json:"provider_id"`
	QuoteID    string    `json:"quote_id"`
	BookedAt   time.Time `json:"booked_at"`
	Training   bool      `json:"training,omitempty"`
}

// CancelPayload is sent when a request with responded quotes is cancelled.
type CancelPayload struct {
	RequestID string `json:"request_id"`
	Note      string `json:"note,omitempty"`
}

// InvoicePayload summarises an issued invoice.
type InvoicePayload struct {
	InvoiceID  string    `json:"invoice_id"`
	Number     string    `json:"number"`
	ProviderID string    `json:"provider_id"`
	Week       string    `json:"week"`
	Lines      int       `json:"lines"`
	TotalCents int64     `json:"total_cents"`
	Currency   string    `json:"currency"`
	DueAt      time.Time `json:"due_at"`
}

// Publisher is a plugin that POSTs events to a webhook endpoint.
type Publisher struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
	clock    func() time.Time
	events   map[string]bool
	sync     bool
}

// Option configures a Publisher.
type Option func(*Publisher)

// WithHTTPClient sets the client used for deliveries.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Publisher) { p.client = c }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Publisher) { p.logger = l }
}

// WithClock overrides the envelope timestamp source.
func WithClock(now func() time.Time) Option {
	return func(p *Publisher) { p.clock = now }
}

// WithEvents restricts delivery to the listed event types.
func WithEvents(types ...string) Option {
	return func(p *Publisher) {
		p.events = make(map[string]bool, len(types))
		for _, t := range types {
			p.events[t] = true
		}
	}
}

// WithSyncDelivery makes the engine wait for each delivery instead of
// running it in the background.
func WithSyncDelivery() Option {
	return func(p *Publisher) { p.sync = true }
}

// NewPublisher creates a Publisher delivering to endpoint.
func NewPublisher(endpoint string, opts ...Option) *Publisher {
	p := &Publisher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 10 * time.Second},
		logger:   slog.Default(),
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Name implements plugin.Plugin.
func (p *Publisher) Name() string { return "notify-webhook" }

// RunAsync implements plugin.Async.
func (p *Publisher) RunAsync() bool { return !p.sync }

// OnQuoteReady implements plugin.OnQuoteReady.
func (p *Publisher) OnQuoteReady(ctx context.Context, r *quote.Request) error {
	now := p.clock()
	return p.publish(ctx, EventQuoteReady, now, quote.NewView(r, now))
}

// OnBookingConfirmed implements plugin.OnBookingConfirmed.
func (p *Publisher) OnBookingConfirmed(ctx context.Context, r *quote.Request) error {
	payload := BookingPayload{
		RequestID:  r.ID.String(),
		BookingID:  r.BookingID.String(),
		ProviderID: r.SelectedProviderID.String(),
		QuoteID:    r.SelectedQuoteID.String(),
		Training:   r.Training,
	}
	if r.BookedAt != nil {
		payload.BookedAt = *r.BookedAt
	}
	return p.publish(ctx, EventBookingConfirmed, p.clock(), payload)
}

// OnQuoteCancelled implements plugin.OnQuoteCancelled. Silent cancellations
// are not delivered.
func (p *Publisher) OnQuoteCancelled(ctx context.Context, r *quote.Request, notify bool) error {
	if !notify {
		return nil
	}
	return p.publish(ctx, EventRequestCancelled, p.clock(), CancelPayload{
		RequestID: r.ID.String(),
		Note:      r.CancelNote,
	})
}

// OnInvoiceIssued implements plugin.OnInvoiceIssued.
func (p *Publisher) OnInvoiceIssued(ctx context.Context, inv *invoice.Invoice) error {
	return p.publish(ctx, EventInvoiceIssued, p.clock(), InvoicePayload{
		InvoiceID:  inv.ID.String(),
		Number:     inv.Number,
		ProviderID: inv.ProviderID.String(),
		Week:       inv.Week.String(),
		Lines:      len(inv.Lines),
		TotalCents: inv.Total.Amount,
		Currency:   inv.Total.Currency,
		DueAt:      inv.DueAt,
	})
}

func (p *Publisher) publish(ctx context.Context, eventType string, at time.Time, data any) error {
	if p.events != nil && !p.events[eventType] {
		return nil
	}

	env := Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: at.UTC(),
		Data:       data,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("notify: encode %s: %w", eventType, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, eventType)
	req.Header.Set(HeaderDelivery, env.ID)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver %s: %w", eventType, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		p.logger.Warn("webhook rejected delivery",
			"event", eventType,
			"delivery_id", env.ID,
			"status", resp.StatusCode,
		)
		return &DeliveryError{Event: eventType, StatusCode: resp.StatusCode}
	}

	p.logger.Debug("webhook delivered", "event", eventType, "delivery_id", env.ID)
	return nil
}

// DeliveryError reports a non-2xx webhook response.
type DeliveryError struct {
	Event      string
	StatusCode int
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("notify: %s delivery rejected with status %d", e.Event, e.StatusCode)
}

// IsRejected reports whether err is a DeliveryError.
func IsRejected(err error) bool {
	var de *DeliveryError
	return errors.As(err, &de)
}
