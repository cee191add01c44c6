package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/mongodriver"

	"github.com/xraph/medquote"
	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/quote"
	mqstore "github.com/xraph/medquote/store"
	"github.com/xraph/medquote/types"
)

// Collection name constants.
const (
	colProviders = "medquote_providers"
	colRequests  = "medquote_requests"
	colEntries   = "medquote_entries"
	colInvoices  = "medquote_invoices"
)

// compile-time interface check
var _ mqstore.Store = (*Store)(nil)

// Store implements store.Store using MongoDB via Grove ORM.
type Store struct {
	db  *grove.DB
	mdb *mongodriver.MongoDB
}

// New creates a new MongoDB store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		mdb: mongodriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates indexes for all medquote collections. The unique indexes
// carry the same guarantees as the SQL backends' constraints.
func (s *Store) Migrate(ctx context.Context) error {
	indexes := migrationIndexes()

	for col, models := range indexes {
		if len(models) == 0 {
			continue
		}
		_, err := s.mdb.Collection(col).Indexes().CreateMany(ctx, models)
		if err != nil {
			return fmt.Errorf("medquote/mongo: migrate %s indexes: %w", col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// ==================== Provider Store ====================

func (s *Store) CreateProvider(ctx context.Context, p *provider.Provider) error {
	m := toProviderModel(p)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return medquote.ErrAlreadyExists
		}
		return fmt.Errorf("medquote/mongo: create provider: %w", err)
	}
	return nil
}

func (s *Store) GetProvider(ctx context.Context, providerID id.ProviderID) (*provider.Provider, error) {
	var m providerModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": providerID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, medquote.ErrProviderNotFound
		}
		return nil, fmt.Errorf("medquote/mongo: get provider: %w", err)
	}
	return fromProviderModel(&m)
}

func (s *Store) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	var models []providerModel

	filter := bson.M{}
	if opts.PriorityOnly {
		filter["is_priority_partner"] = true
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("medquote/mongo: list providers: %w", err)
	}

	result := make([]*provider.Provider, len(models))
	for i := range models {
		p, err := fromProviderModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = p
	}
	return result, nil
}

func (s *Store) UpdateProvider(ctx context.Context, p *provider.Provider) error {
	m := toProviderModel(p)
	m.UpdatedAt = now()

	res, err := s.mdb.NewUpdate(m).
		Filter(bson.M{"_id": m.ID}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("medquote/mongo: update provider: %w", err)
	}
	if res.MatchedCount() == 0 {
		return medquote.ErrProviderNotFound
	}
	return nil
}

func (s *Store) UpdateProviderStats(ctx context.Context, providerID id.ProviderID, stats provider.Stats) error {
	res, err := s.mdb.NewUpdate((*providerModel)(nil)).
		Filter(bson.M{"_id": providerID.String()}).
		Set("response_rate_30d", stats.ResponseRate30d).
		Set("total_bookings", stats.TotalBookings).
		Set("days_since_join", stats.DaysSinceJoin).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("medquote/mongo: update provider stats: %w", err)
	}
	if res.MatchedCount() == 0 {
		return medquote.ErrProviderNotFound
	}
	return nil
}

func (s *Store) IncrementProviderBookings(ctx context.Context, providerID id.ProviderID) error {
	res, err := s.mdb.Collection(colProviders).UpdateOne(ctx,
		bson.M{"_id": providerID.String()},
		bson.M{
			"$inc": bson.M{"total_bookings": 1},
			"$set": bson.M{"updated_at": now()},
		},
	)
	if err != nil {
		return fmt.Errorf("medquote/mongo: increment bookings: %w", err)
	}
	if res.MatchedCount == 0 {
		return medquote.ErrProviderNotFound
	}
	return nil
}

// ==================== Quote Request Store ====================

func (s *Store) CreateRequest(ctx context.Context, r *quote.Request) error {
	m := toRequestModel(r)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return medquote.ErrAlreadyExists
		}
		return fmt.Errorf("medquote/mongo: create request: %w", err)
	}
	return nil
}

func (s *Store) GetRequest(ctx context.Context, requestID id.RequestID) (*quote.Request, error) {
	var m requestModel
	err := s.mdb.NewFind(&m).
		Filter(bson.M{"_id": requestID.String()}).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, medquote.ErrRequestNotFound
		}
		return nil, fmt.Errorf("medquote/mongo: get request: %w", err)
	}
	return fromRequestModel(&m)
}

func (s *Store) ListRequests(ctx context.Context, opts quote.ListOpts) ([]*quote.Request, error) {
	var models []requestModel

	filter := bson.M{}
	if opts.RequesterRef != "" {
		filter["requester_ref"] = opts.RequesterRef
	}
	if opts.State != "" {
		filter["state"] = string(opts.State)
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "created_at", Value: -1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("medquote/mongo: list requests: %w", err)
	}
	return fromRequestModels(models)
}

// TransitionRequest applies t with a filtered single-document update, which
// MongoDB executes atomically.
func (s *Store) TransitionRequest(ctx context.Context, t quote.Transition) error {
	at := t.At.UTC()

	filter := bson.M{
		"_id":   t.RequestID.String(),
		"state": string(t.From),
	}
	if !t.NotExpiredAt.IsZero() {
		filter["expires_at"] = bson.M{"$gt": t.NotExpiredAt.UTC()}
	}

	q := s.mdb.NewUpdate((*requestModel)(nil)).
		Filter(filter).
		Set("state", string(t.To)).
		Set("updated_at", at)
	switch t.To {
	case quote.StateSelected:
		q = q.Set("selected_quote_id", t.SelectedQuoteID.String()).
			Set("selected_provider_id", t.SelectedProviderID.String()).
			Set("selected_at", at)
	case quote.StateBooked:
		q = q.Set("booking_id", t.BookingID.String()).
			Set("deposit_ref", t.DepositRef).
			Set("consent_at", t.ConsentAt).
			Set("booked_at", at)
	case quote.StateCancelled:
		q = q.Set("cancelled_at", at).
			Set("cancel_note", t.CancelNote)
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return fmt.Errorf("medquote/mongo: transition request: %w", err)
	}
	if res.MatchedCount() == 0 {
		return s.guardFailed(ctx, t.RequestID)
	}
	return nil
}

func (s *Store) SetVisibleCount(ctx context.Context, requestID id.RequestID, from, to int) error {
	res, err := s.mdb.NewUpdate((*requestModel)(nil)).
		Filter(bson.M{
			"_id":           requestID.String(),
			"state":         string(quote.StateOpen),
			"visible_count": from,
		}).
		Set("visible_count", to).
		Set("updated_at", now()).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("medquote/mongo: set visible count: %w", err)
	}
	if res.MatchedCount() == 0 {
		return s.guardFailed(ctx, requestID)
	}
	return nil
}

func (s *Store) ListExpirableRequests(ctx context.Context, at time.Time, limit int) ([]*quote.Request, error) {
	var models []requestModel
	q := s.mdb.NewFind(&models).
		Filter(bson.M{
			"state":      string(quote.StateOpen),
			"expires_at": bson.M{"$lte": at.UTC()},
		}).
		Sort(bson.D{{Key: "expires_at", Value: 1}})
	if limit > 0 {
		q = q.Limit(int64(limit))
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("medquote/mongo: list expirable requests: %w", err)
	}
	return fromRequestModels(models)
}

func (s *Store) CountTrainingRequests(ctx context.Context, requesterRef string) (int64, error) {
	n, err := s.mdb.Collection(colRequests).CountDocuments(ctx, bson.M{
		"training":      true,
		"requester_ref": requesterRef,
	})
	if err != nil {
		return 0, fmt.Errorf("medquote/mongo: count training requests: %w", err)
	}
	return n, nil
}

func (s *Store) DeleteRequest(ctx context.Context, requestID id.RequestID) error {
	res, err := s.mdb.NewDelete((*requestModel)(nil)).
		Filter(bson.M{"_id": requestID.String()}).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("medquote/mongo: delete request: %w", err)
	}
	if res.DeletedCount() == 0 {
		return medquote.ErrRequestNotFound
	}
	return nil
}

func (s *Store) PurgeTrainingRequests(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*requestModel)(nil)).
		Filter(bson.M{
			"training":   true,
			"created_at": bson.M{"$lt": before.UTC()},
		}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("medquote/mongo: purge training requests: %w", err)
	}
	return res.DeletedCount(), nil
}

// ==================== Ledger Store ====================

func (s *Store) AppendEntry(ctx context.Context, e *commission.Entry) error {
	m := toEntryModel(e)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err == nil {
		return nil
	}
	if !mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("medquote/mongo: append entry: %w", err)
	}
	if _, getErr := s.GetEntryByBooking(ctx, e.BookingID); getErr == nil {
		return medquote.ErrAlreadyExists
	}
	return medquote.ErrRecoupConflict
}

func (s *Store) GetEntry(ctx context.Context, entryID id.EntryID) (*commission.Entry, error) {
	return s.findEntry(ctx, bson.M{"_id": entryID.String()}, nil)
}

func (s *Store) GetEntryByBooking(ctx context.Context, bookingID string) (*commission.Entry, error) {
	return s.findEntry(ctx, bson.M{"booking_id": bookingID}, nil)
}

func (s *Store) LatestRecoupEntry(ctx context.Context, providerID id.ProviderID) (*commission.Entry, error) {
	return s.findEntry(ctx,
		bson.M{"provider_id": providerID.String(), "seq": bson.M{"$gt": 0}},
		bson.D{{Key: "seq", Value: -1}},
	)
}

func (s *Store) ListEntries(ctx context.Context, opts commission.ListOpts) ([]*commission.Entry, error) {
	var models []entryModel

	filter := bson.M{}
	if !opts.ProviderID.IsNil() {
		filter["provider_id"] = opts.ProviderID.String()
	}
	if !opts.Week.IsZero() {
		filter["invoice_week"] = opts.Week.String()
	}
	if opts.Kind != "" {
		filter["kind"] = string(opts.Kind)
	}
	if !opts.IncludeDummy {
		filter["is_dummy"] = false
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "completed_at", Value: 1}, {Key: "_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("medquote/mongo: list entries: %w", err)
	}
	return fromEntryModels(models)
}

// ListUninvoicedEntries joins entries against invoices on (provider, week)
// and keeps the ones with no match.
func (s *Store) ListUninvoicedEntries(ctx context.Context, through types.Week) ([]*commission.Entry, error) {
	match := bson.M{
		"kind":     string(commission.KindBooking),
		"is_dummy": false,
	}
	if !through.IsZero() {
		match["invoice_week"] = bson.M{"$lte": through.String()}
	}

	pipeline := bson.A{
		bson.M{"$match": match},
		bson.M{
			"$lookup": bson.M{
				"from": colInvoices,
				"let":  bson.M{"p": "$provider_id", "w": "$invoice_week"},
				"pipeline": bson.A{
					bson.M{"$match": bson.M{"$expr": bson.M{"$and": bson.A{
						bson.M{"$eq": bson.A{"$provider_id", "$$p"}},
						bson.M{"$eq": bson.A{"$invoice_week", "$$w"}},
					}}}},
					bson.M{"$limit": 1},
				},
				"as": "invoiced",
			},
		},
		bson.M{"$match": bson.M{"invoiced": bson.M{"$size": 0}}},
		bson.M{"$project": bson.M{"invoiced": 0}},
		bson.M{"$sort": bson.D{{Key: "completed_at", Value: 1}, {Key: "_id", Value: 1}}},
	}

	cursor, err := s.mdb.Collection(colEntries).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("medquote/mongo: list uninvoiced: %w", err)
	}
	defer cursor.Close(ctx)

	var models []entryModel
	if err := cursor.All(ctx, &models); err != nil {
		return nil, fmt.Errorf("medquote/mongo: list uninvoiced decode: %w", err)
	}
	return fromEntryModels(models)
}

func (s *Store) PurgeDummyEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.mdb.NewDelete((*entryModel)(nil)).
		Filter(bson.M{
			"is_dummy":     true,
			"completed_at": bson.M{"$lt": before.UTC()},
		}).
		Exec(ctx)
	if err != nil {
		return 0, fmt.Errorf("medquote/mongo: purge dummy entries: %w", err)
	}
	return res.DeletedCount(), nil
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	_, err := s.mdb.NewInsert(m).Exec(ctx)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return medquote.ErrAlreadyExists
		}
		return fmt.Errorf("medquote/mongo: create invoice: %w", err)
	}
	return nil
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	return s.findInvoice(ctx, bson.M{"_id": invID.String()})
}

func (s *Store) GetInvoiceByWeek(ctx context.Context, providerID id.ProviderID, week types.Week) (*invoice.Invoice, error) {
	return s.findInvoice(ctx, bson.M{
		"provider_id":  providerID.String(),
		"invoice_week": week.String(),
	})
}

func (s *Store) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel

	filter := bson.M{}
	if !opts.ProviderID.IsNil() {
		filter["provider_id"] = opts.ProviderID.String()
	}
	if opts.Status != "" {
		filter["status"] = string(opts.Status)
	}
	if !opts.Week.IsZero() {
		filter["invoice_week"] = opts.Week.String()
	}

	q := s.mdb.NewFind(&models).
		Filter(filter).
		Sort(bson.D{{Key: "invoice_week", Value: -1}, {Key: "provider_id", Value: 1}})
	if opts.Limit > 0 {
		q = q.Limit(int64(opts.Limit))
	}
	if opts.Offset > 0 {
		q = q.Skip(int64(opts.Offset))
	}

	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("medquote/mongo: list invoices: %w", err)
	}

	result := make([]*invoice.Invoice, len(models))
	for i := range models {
		inv, err := fromInvoiceModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = inv
	}
	return result, nil
}

func (s *Store) MarkInvoicePaid(ctx context.Context, invID id.InvoiceID, payment invoice.Payment) error {
	paidAt := payment.PaidAt.UTC()
	res, err := s.mdb.NewUpdate((*invoiceModel)(nil)).
		Filter(bson.M{
			"_id":    invID.String(),
			"status": string(invoice.StatusIssued),
		}).
		Set("status", string(invoice.StatusPaid)).
		Set("paid_at", paidAt).
		Set("payment_method", string(payment.Method)).
		Set("remittance_ref", payment.RemittanceRef).
		Set("updated_at", paidAt).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("medquote/mongo: mark invoice paid: %w", err)
	}
	if res.MatchedCount() == 0 {
		if _, err := s.GetInvoice(ctx, invID); err != nil {
			return err
		}
		return medquote.ErrStateConflict
	}
	return nil
}

// ==================== Helpers ====================

func (s *Store) findEntry(ctx context.Context, filter bson.M, sort bson.D) (*commission.Entry, error) {
	var m entryModel
	q := s.mdb.NewFind(&m).Filter(filter)
	if sort != nil {
		q = q.Sort(sort)
	}
	if err := q.Scan(ctx); err != nil {
		if isNoDocuments(err) {
			return nil, medquote.ErrEntryNotFound
		}
		return nil, fmt.Errorf("medquote/mongo: get entry: %w", err)
	}
	return fromEntryModel(&m)
}

func (s *Store) findInvoice(ctx context.Context, filter bson.M) (*invoice.Invoice, error) {
	var m invoiceModel
	err := s.mdb.NewFind(&m).
		Filter(filter).
		Scan(ctx)
	if err != nil {
		if isNoDocuments(err) {
			return nil, medquote.ErrInvoiceNotFound
		}
		return nil, fmt.Errorf("medquote/mongo: get invoice: %w", err)
	}
	return fromInvoiceModel(&m)
}

func (s *Store) guardFailed(ctx context.Context, requestID id.RequestID) error {
	if _, err := s.GetRequest(ctx, requestID); err != nil {
		return err
	}
	return medquote.ErrStateConflict
}

func fromRequestModels(models []requestModel) ([]*quote.Request, error) {
	result := make([]*quote.Request, len(models))
	for i := range models {
		r, err := fromRequestModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = r
	}
	return result, nil
}

func fromEntryModels(models []entryModel) ([]*commission.Entry, error) {
	result := make([]*commission.Entry, len(models))
	for i := range models {
		e, err := fromEntryModel(&models[i])
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoDocuments checks if an error wraps mongo.ErrNoDocuments.
func isNoDocuments(err error) bool {
	return errors.Is(err, mongo.ErrNoDocuments)
}

// migrationIndexes returns the index definitions for all medquote collections.
func migrationIndexes() map[string][]mongo.IndexModel {
	return map[string][]mongo.IndexModel{
		colProviders: {
			{Keys: bson.D{{Key: "is_priority_partner", Value: 1}}},
		},
		colRequests: {
			{Keys: bson.D{{Key: "requester_ref", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "state", Value: 1}, {Key: "expires_at", Value: 1}}},
			{Keys: bson.D{{Key: "training", Value: 1}, {Key: "created_at", Value: 1}}},
		},
		colEntries: {
			{
				Keys:    bson.D{{Key: "booking_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{
				Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "seq", Value: 1}},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"seq": bson.M{"$gt": 0}}),
			},
			{Keys: bson.D{{Key: "provider_id", Value: 1}, {Key: "invoice_week", Value: 1}}},
			{Keys: bson.D{{Key: "completed_at", Value: 1}}},
		},
		colInvoices: {
			{
				Keys:    bson.D{{Key: "provider_id", Value: 1}, {Key: "invoice_week", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
	}
}
