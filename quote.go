package medquote

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/quote"
	"github.com/xraph/medquote/types"
)

// Submission is a requester's transport request before allocation.
type Submission struct {
	RequesterRef  string               `json:"requester_ref"`
	Origin        string               `json:"origin"`
	Destination   string               `json:"destination"`
	Equipment     []provider.Equipment `json:"equipment"`
	Urgency       quote.Urgency        `json:"urgency"`
	International bool                 `json:"international"`
	Subscriber    bool                 `json:"subscriber"`
	Training      bool                 `json:"training"`
}

// Validate checks the submission. An empty urgency means standard.
func (s Submission) Validate() error {
	var errs MultiError
	if strings.TrimSpace(s.RequesterRef) == "" {
		errs.Add(ValidationError{Field: "requester_ref", Message: "is required"})
	}
	if strings.TrimSpace(s.Origin) == "" {
		errs.Add(ValidationError{Field: "origin", Message: "is required"})
	}
	if strings.TrimSpace(s.Destination) == "" {
		errs.Add(ValidationError{Field: "destination", Message: "is required"})
	}
	switch s.Urgency {
	case "", quote.UrgencyStandard, quote.UrgencySameDay, quote.UrgencyCritical:
	default:
		errs.Add(ValidationError{Field: "urgency", Message: fmt.Sprintf("unknown urgency %q", s.Urgency)})
	}
	for _, eq := range s.Equipment {
		if !slices.Contains(knownEquipment, eq) {
			errs.Add(ValidationError{Field: "equipment", Message: fmt.Sprintf("unknown equipment %q", eq)})
		}
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// Confirmation carries the booking details captured at confirmation.
type Confirmation struct {
	DepositRef string    `json:"deposit_ref"`
	ConsentAt  time.Time `json:"consent_at"`
}

// ──────────────────────────────────────────────────
// Quote Lifecycle
// ──────────────────────────────────────────────────

// Allocate creates a request, fans it out to eligible providers once and
// persists the ranked quotes with it. The requester's first view is returned.
func (e *Engine) Allocate(ctx context.Context, sub Submission) (*quote.View, error) {
	if err := sub.Validate(); err != nil {
		return nil, err
	}
	if sub.Urgency == "" {
		sub.Urgency = quote.UrgencyStandard
	}

	if sub.Training && e.trainingLimit > 0 {
		n, err := e.store.CountTrainingRequests(ctx, sub.RequesterRef)
		if err != nil {
			return nil, err
		}
		if n >= int64(e.trainingLimit) {
			return nil, ErrTrainingLimit
		}
	}

	providers, err := e.store.ListProviders(ctx, provider.ListOpts{PriorityOnly: sub.International})
	if err != nil {
		return nil, fmt.Errorf("list providers: %w", err)
	}

	now := e.now()
	r := &quote.Request{
		Entity:        types.NewEntityAt(now),
		ID:            id.NewRequestID(),
		RequesterRef:  sub.RequesterRef,
		Origin:        sub.Origin,
		Destination:   sub.Destination,
		Equipment:     sub.Equipment,
		Urgency:       sub.Urgency,
		International: sub.International,
		Subscriber:    sub.Subscriber,
		Training:      sub.Training,
		State:         quote.StateOpen,
		ExpiresAt:     now.Add(e.quoteTTL),
		VisibleCount:  e.visibleCount,
	}

	res := e.allocator.Allocate(r, providers)
	r.Quotes = res.Quotes

	if err := e.store.CreateRequest(ctx, r); err != nil {
		return nil, err
	}

	e.logger.Info("quote request allocated",
		"request_id", r.ID,
		"candidates", res.Candidates,
		"responded", res.Responded,
		"training", r.Training,
	)
	e.plugins.EmitQuoteReady(ctx, r)

	return quote.NewView(r, now), nil
}

// GetRequest returns the full request, expiring it first if its window
// has closed.
func (e *Engine) GetRequest(ctx context.Context, requestID id.RequestID) (*quote.Request, error) {
	return e.load(ctx, requestID)
}

// ListRequests lists requests. Listing does not expire stale requests.
func (e *Engine) ListRequests(ctx context.Context, opts quote.ListOpts) ([]*quote.Request, error) {
	return e.store.ListRequests(ctx, opts)
}

// View returns the requester-facing view of a request.
func (e *Engine) View(ctx context.Context, requestID id.RequestID) (*quote.View, error) {
	r, err := e.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	return quote.NewView(r, e.now()), nil
}

// ShowMore reveals the next page of quotes. Allocation is not rerun; once
// every responding quote is visible the call changes nothing.
func (e *Engine) ShowMore(ctx context.Context, requestID id.RequestID) (*quote.View, error) {
	for attempt := 0; ; attempt++ {
		r, err := e.load(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if r.State != quote.StateOpen {
			return nil, transitionError(r, "show more")
		}
		if r.VisibleCount >= len(r.Responded()) {
			return quote.NewView(r, e.now()), nil
		}

		to := r.VisibleCount + e.visibleStep
		err = e.store.SetVisibleCount(ctx, r.ID, r.VisibleCount, to)
		switch {
		case err == nil:
			r.VisibleCount = to
			return quote.NewView(r, e.now()), nil
		case errors.Is(err, ErrStateConflict) && attempt < 2:
			continue
		default:
			return nil, err
		}
	}
}

// Select picks one visible, responding quote. Exactly one Select can
// succeed per request; the losers get a TransitionError.
func (e *Engine) Select(ctx context.Context, requestID id.RequestID, quoteID id.QuoteID) (*quote.View, error) {
	r, err := e.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.State != quote.StateOpen {
		return nil, transitionError(r, "select")
	}

	q, ok := r.FindQuote(quoteID)
	if !ok {
		return nil, ErrQuoteNotFound
	}
	if !q.Responded || q.Rank > r.VisibleCount {
		return nil, ErrQuoteUnavailable
	}

	now := e.now()
	t := quote.Transition{
		RequestID:          r.ID,
		From:               quote.StateOpen,
		To:                 quote.StateSelected,
		At:                 now,
		NotExpiredAt:       now,
		SelectedQuoteID:    q.ID,
		SelectedProviderID: q.ProviderID,
	}
	if err := e.apply(ctx, r, t, "select"); err != nil {
		return nil, err
	}

	e.logger.Info("quote selected",
		"request_id", r.ID,
		"quote_id", q.ID,
		"provider_id", q.ProviderID,
	)
	e.plugins.EmitQuoteSelected(ctx, r, q)

	return quote.NewView(r, now), nil
}

// Confirm books the selected quote and assigns a booking ID.
func (e *Engine) Confirm(ctx context.Context, requestID id.RequestID, c Confirmation) (*quote.Request, error) {
	if c.ConsentAt.IsZero() {
		return nil, ValidationError{Field: "consent_at", Message: "consent is required"}
	}

	r, err := e.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.State != quote.StateSelected {
		return nil, transitionError(r, "confirm")
	}

	consent := c.ConsentAt.UTC()
	t := quote.Transition{
		RequestID:  r.ID,
		From:       quote.StateSelected,
		To:         quote.StateBooked,
		At:         e.now(),
		BookingID:  id.NewBookingID(),
		DepositRef: c.DepositRef,
		ConsentAt:  &consent,
	}
	if err := e.apply(ctx, r, t, "confirm"); err != nil {
		return nil, err
	}

	e.logger.Info("booking confirmed",
		"request_id", r.ID,
		"booking_id", r.BookingID,
		"provider_id", r.SelectedProviderID,
	)
	e.plugins.EmitBookingConfirmed(ctx, r)
	return r, nil
}

// Cancel cancels an open or selected request. Providers that responded
// are notified through plugins.
func (e *Engine) Cancel(ctx context.Context, requestID id.RequestID, reason string) (*quote.Request, error) {
	r, err := e.load(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if !r.State.CanTransition(quote.StateCancelled) {
		return nil, transitionError(r, "cancel")
	}

	t := quote.Transition{
		RequestID:  r.ID,
		From:       r.State,
		To:         quote.StateCancelled,
		At:         e.now(),
		CancelNote: reason,
	}
	if err := e.apply(ctx, r, t, "cancel"); err != nil {
		return nil, err
	}

	notify := len(r.Responded()) > 0
	e.logger.Info("quote request cancelled", "request_id", r.ID, "notify", notify)
	e.plugins.EmitQuoteCancelled(ctx, r, notify)
	return r, nil
}

// DeleteRequest removes a request that no provider answered. Requests with
// quotes must be cancelled instead.
func (e *Engine) DeleteRequest(ctx context.Context, requestID id.RequestID) error {
	r, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return err
	}
	if len(r.Responded()) > 0 {
		return ErrDeletionForbidden
	}
	if err := e.store.DeleteRequest(ctx, requestID); err != nil {
		return err
	}
	e.logger.Info("quote request deleted", "request_id", requestID)
	return nil
}

// ExpireDue expires open requests whose window has closed. Reads already
// do this lazily; the sweep keeps listings fresh.
func (e *Engine) ExpireDue(ctx context.Context) (int, error) {
	due, err := e.store.ListExpirableRequests(ctx, e.now(), 500)
	if err != nil {
		return 0, err
	}
	expired := 0
	for _, r := range due {
		ok, err := e.expire(ctx, r)
		if err != nil {
			return expired, err
		}
		if ok {
			expired++
		}
	}
	if expired > 0 {
		e.logger.Debug("expired stale requests", "count", expired)
	}
	return expired, nil
}

// load reads a request and lazily expires it.
func (e *Engine) load(ctx context.Context, requestID id.RequestID) (*quote.Request, error) {
	r, err := e.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if r.State == quote.StateOpen && r.Expired(e.now()) {
		if _, err := e.expire(ctx, r); err != nil {
			return nil, err
		}
		if r.State != quote.StateExpired {
			return e.store.GetRequest(ctx, requestID)
		}
	}
	return r, nil
}

// expire moves an open, past-due request to Expired. It reports false when
// another caller changed the request first.
func (e *Engine) expire(ctx context.Context, r *quote.Request) (bool, error) {
	t := quote.Transition{
		RequestID: r.ID,
		From:      quote.StateOpen,
		To:        quote.StateExpired,
		At:        e.now(),
	}
	if err := e.store.TransitionRequest(ctx, t); err != nil {
		if errors.Is(err, ErrStateConflict) {
			return false, nil
		}
		return false, err
	}
	t.Apply(r)
	e.logger.Info("quote request expired", "request_id", r.ID)
	e.plugins.EmitQuoteExpired(ctx, r)
	return true, nil
}

// apply runs t through the store and mirrors it onto r. A lost race is
// reported against the state the winner left behind.
func (e *Engine) apply(ctx context.Context, r *quote.Request, t quote.Transition, op string) error {
	err := e.store.TransitionRequest(ctx, t)
	if err == nil {
		t.Apply(r)
		return nil
	}
	if !errors.Is(err, ErrStateConflict) {
		return err
	}

	current, loadErr := e.load(ctx, r.ID)
	if loadErr != nil {
		return loadErr
	}
	if current.State == t.From {
		return err
	}
	return transitionError(current, op)
}

func transitionError(r *quote.Request, op string) error {
	var cause error
	switch r.State {
	case quote.StateOpen:
		cause = ErrNotSelected
	case quote.StateSelected:
		cause = ErrAlreadySelected
		if op == "show more" {
			cause = ErrRequestLocked
		}
	case quote.StateBooked:
		cause = ErrAlreadyBooked
	case quote.StateExpired:
		cause = ErrQuoteExpired
	case quote.StateCancelled:
		cause = ErrRequestCancelled
	default:
		cause = ErrRequestLocked
	}
	return &TransitionError{RequestID: r.ID, Op: op, State: r.State, Err: cause}
}
