package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/grove"
	"github.com/xraph/grove/drivers/sqlitedriver"
	_ "github.com/xraph/grove/drivers/sqlitedriver/sqlitemigrate"
	"github.com/xraph/grove/migrate"

	"github.com/xraph/medquote"
	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/quote"
	mqstore "github.com/xraph/medquote/store"
	"github.com/xraph/medquote/types"
)

// compile-time interface check
var _ mqstore.Store = (*Store)(nil)

// Store implements store.Store using SQLite via Grove ORM.
type Store struct {
	db  *grove.DB
	sdb *sqlitedriver.SqliteDB
}

// New creates a new SQLite store backed by Grove ORM.
func New(db *grove.DB) *Store {
	return &Store{
		db:  db,
		sdb: sqlitedriver.Unwrap(db),
	}
}

// DB returns the underlying grove database for direct access.
func (s *Store) DB() *grove.DB { return s.db }

// Migrate creates the required tables and indexes using the grove orchestrator.
func (s *Store) Migrate(ctx context.Context) error {
	executor, err := migrate.NewExecutorFor(s.sdb)
	if err != nil {
		return fmt.Errorf("medquote/sqlite: create migration executor: %w", err)
	}
	orch := migrate.NewOrchestrator(executor, Migrations)
	if _, err := orch.Migrate(ctx); err != nil {
		return fmt.Errorf("medquote/sqlite: migration failed: %w", err)
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
	res, err := s.sdb.NewInsert(m).OnConflict("DO NOTHING").Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, medquote.ErrAlreadyExists)
}

func (s *Store) GetProvider(ctx context.Context, providerID id.ProviderID) (*provider.Provider, error) {
	m := new(providerModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", providerID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, medquote.ErrProviderNotFound
		}
		return nil, err
	}
	return fromProviderModel(m)
}

func (s *Store) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	var models []providerModel
	q := s.sdb.NewSelect(&models)

	if opts.PriorityOnly {
		q = q.Where("is_priority_partner = 1")
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.sdb.NewUpdate(m).WherePK().Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, medquote.ErrProviderNotFound)
}

func (s *Store) UpdateProviderStats(ctx context.Context, providerID id.ProviderID, stats provider.Stats) error {
	res, err := s.sdb.NewUpdate((*providerModel)(nil)).
		Set("response_rate_30d = ?", stats.ResponseRate30d).
		Set("total_bookings = ?", stats.TotalBookings).
		Set("days_since_join = ?", stats.DaysSinceJoin).
		Set("updated_at = ?", now()).
		Where("id = ?", providerID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, medquote.ErrProviderNotFound)
}

func (s *Store) IncrementProviderBookings(ctx context.Context, providerID id.ProviderID) error {
	res, err := s.sdb.NewUpdate((*providerModel)(nil)).
		Set("total_bookings = total_bookings + 1").
		Set("updated_at = ?", now()).
		Where("id = ?", providerID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, medquote.ErrProviderNotFound)
}

// ==================== Quote Request Store ====================

func (s *Store) CreateRequest(ctx context.Context, r *quote.Request) error {
	m := toRequestModel(r)
	res, err := s.sdb.NewInsert(m).OnConflict("DO NOTHING").Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, medquote.ErrAlreadyExists)
}

func (s *Store) GetRequest(ctx context.Context, requestID id.RequestID) (*quote.Request, error) {
	m := new(requestModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", requestID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, medquote.ErrRequestNotFound
		}
		return nil, err
	}
	return fromRequestModel(m)
}

func (s *Store) ListRequests(ctx context.Context, opts quote.ListOpts) ([]*quote.Request, error) {
	var models []requestModel
	q := s.sdb.NewSelect(&models)

	if opts.RequesterRef != "" {
		q = q.Where("requester_ref = ?", opts.RequesterRef)
	}
	if opts.State != "" {
		q = q.Where("state = ?", string(opts.State))
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("created_at DESC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromRequestModels(models)
}

// TransitionRequest applies t as a single guarded UPDATE. The row only
// changes when it is still in t.From (and unexpired, when asked), so two
// racing selections cannot both succeed.
func (s *Store) TransitionRequest(ctx context.Context, t quote.Transition) error {
	at := t.At.UTC()
	q := s.sdb.NewUpdate((*requestModel)(nil)).
		Set("state = ?", string(t.To)).
		Set("updated_at = ?", at)

	set := func(col string, v any) {
		q = q.Set(col+" = ?", v)
	}
	switch t.To {
	case quote.StateSelected:
		set("selected_quote_id", t.SelectedQuoteID.String())
		set("selected_provider_id", t.SelectedProviderID.String())
		set("selected_at", at)
	case quote.StateBooked:
		set("booking_id", t.BookingID.String())
		set("deposit_ref", t.DepositRef)
		set("consent_at", t.ConsentAt)
		set("booked_at", at)
	case quote.StateCancelled:
		set("cancelled_at", at)
		set("cancel_note", t.CancelNote)
	}

	q = q.Where("id = ?", t.RequestID.String())
	q = q.Where("state = ?", string(t.From))
	if !t.NotExpiredAt.IsZero() {
		q = q.Where("expires_at > ?", t.NotExpiredAt.UTC())
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.guardFailed(ctx, t.RequestID)
	}
	return nil
}

func (s *Store) SetVisibleCount(ctx context.Context, requestID id.RequestID, from, to int) error {
	res, err := s.sdb.NewUpdate((*requestModel)(nil)).
		Set("visible_count = ?", to).
		Set("updated_at = ?", now()).
		Where("id = ?", requestID.String()).
		Where("state = ?", string(quote.StateOpen)).
		Where("visible_count = ?", from).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return s.guardFailed(ctx, requestID)
	}
	return nil
}

func (s *Store) ListExpirableRequests(ctx context.Context, at time.Time, limit int) ([]*quote.Request, error) {
	var models []requestModel
	q := s.sdb.NewSelect(&models).
		Where("state = ?", string(quote.StateOpen)).
		Where("expires_at <= ?", at.UTC()).
		OrderExpr("expires_at ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromRequestModels(models)
}

func (s *Store) CountTrainingRequests(ctx context.Context, requesterRef string) (int64, error) {
	var n int64
	err := s.sdb.NewRaw(`
		SELECT COUNT(*) FROM medquote_requests
		WHERE training = 1 AND requester_ref = ?
	`, requesterRef).Scan(ctx, &n)
	if err != nil {
		return 0, err
	}
	return n, nil
}

func (s *Store) DeleteRequest(ctx context.Context, requestID id.RequestID) error {
	res, err := s.sdb.NewDelete((*requestModel)(nil)).
		Where("id = ?", requestID.String()).
		Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, medquote.ErrRequestNotFound)
}

func (s *Store) PurgeTrainingRequests(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*requestModel)(nil)).
		Where("training = 1").
		Where("created_at < ?", before.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ==================== Ledger Store ====================

// AppendEntry inserts e. The unique booking index makes completion
// idempotent and the partial (provider_id, seq) index rejects a second
// writer that computed from the same recoup state.
func (s *Store) AppendEntry(ctx context.Context, e *commission.Entry) error {
	m := toEntryModel(e)
	res, err := s.sdb.NewInsert(m).OnConflict("DO NOTHING").Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows > 0 {
		return nil
	}
	if _, err := s.GetEntryByBooking(ctx, e.BookingID); err == nil {
		return medquote.ErrAlreadyExists
	} else if !errors.Is(err, medquote.ErrEntryNotFound) {
		return err
	}
	return medquote.ErrRecoupConflict
}

func (s *Store) GetEntry(ctx context.Context, entryID id.EntryID) (*commission.Entry, error) {
	return s.getEntry(ctx, "id = ?", entryID.String())
}

func (s *Store) GetEntryByBooking(ctx context.Context, bookingID string) (*commission.Entry, error) {
	return s.getEntry(ctx, "booking_id = ?", bookingID)
}

func (s *Store) LatestRecoupEntry(ctx context.Context, providerID id.ProviderID) (*commission.Entry, error) {
	m := new(entryModel)
	err := s.sdb.NewSelect(m).
		Where("provider_id = ?", providerID.String()).
		Where("seq > 0").
		OrderExpr("seq DESC").
		Limit(1).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, medquote.ErrEntryNotFound
		}
		return nil, err
	}
	return fromEntryModel(m)
}

func (s *Store) ListEntries(ctx context.Context, opts commission.ListOpts) ([]*commission.Entry, error) {
	var models []entryModel
	q := s.sdb.NewSelect(&models)

	if !opts.ProviderID.IsNil() {
		q = q.Where("provider_id = ?", opts.ProviderID.String())
	}
	if !opts.Week.IsZero() {
		q = q.Where("invoice_week = ?", opts.Week.String())
	}
	if opts.Kind != "" {
		q = q.Where("kind = ?", string(opts.Kind))
	}
	if !opts.IncludeDummy {
		q = q.Where("is_dummy = 0")
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("completed_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromEntryModels(models)
}

// ListUninvoicedEntries returns billable entries whose (provider, week)
// has no invoice yet, oldest first.
func (s *Store) ListUninvoicedEntries(ctx context.Context, through types.Week) ([]*commission.Entry, error) {
	var models []entryModel
	q := s.sdb.NewSelect(&models).
		Where("kind = ?", string(commission.KindBooking)).
		Where("is_dummy = 0").
		Where("(provider_id, invoice_week) NOT IN (SELECT provider_id, invoice_week FROM medquote_invoices)")
	if !through.IsZero() {
		q = q.Where("invoice_week <= ?", through.String())
	}
	q = q.OrderExpr("completed_at ASC, id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}
	return fromEntryModels(models)
}

func (s *Store) PurgeDummyEntries(ctx context.Context, before time.Time) (int64, error) {
	res, err := s.sdb.NewDelete((*entryModel)(nil)).
		Where("is_dummy = 1").
		Where("completed_at < ?", before.UTC()).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ==================== Invoice Store ====================

func (s *Store) CreateInvoice(ctx context.Context, inv *invoice.Invoice) error {
	m := toInvoiceModel(inv)
	res, err := s.sdb.NewInsert(m).OnConflict("DO NOTHING").Exec(ctx)
	if err != nil {
		return err
	}
	return expectRow(res, medquote.ErrAlreadyExists)
}

func (s *Store) GetInvoice(ctx context.Context, invID id.InvoiceID) (*invoice.Invoice, error) {
	m := new(invoiceModel)
	err := s.sdb.NewSelect(m).
		Where("id = ?", invID.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, medquote.ErrInvoiceNotFound
		}
		return nil, err
	}
	return fromInvoiceModel(m)
}

func (s *Store) GetInvoiceByWeek(ctx context.Context, providerID id.ProviderID, week types.Week) (*invoice.Invoice, error) {
	m := new(invoiceModel)
	err := s.sdb.NewSelect(m).
		Where("provider_id = ?", providerID.String()).
		Where("invoice_week = ?", week.String()).
		Scan(ctx)
	if err != nil {
		if isNoRows(err) {
			return nil, medquote.ErrInvoiceNotFound
		}
		return nil, err
	}
	return fromInvoiceModel(m)
}

func (s *Store) ListInvoices(ctx context.Context, opts invoice.ListOpts) ([]*invoice.Invoice, error) {
	var models []invoiceModel
	q := s.sdb.NewSelect(&models)

	if !opts.ProviderID.IsNil() {
		q = q.Where("provider_id = ?", opts.ProviderID.String())
	}
	if opts.Status != "" {
		q = q.Where("status = ?", string(opts.Status))
	}
	if !opts.Week.IsZero() {
		q = q.Where("invoice_week = ?", opts.Week.String())
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}
	if opts.Offset > 0 {
		q = q.Offset(opts.Offset)
	}
	q = q.OrderExpr("invoice_week DESC, provider_id ASC")

	if err := q.Scan(ctx); err != nil {
		return nil, err
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
	res, err := s.sdb.NewUpdate((*invoiceModel)(nil)).
		Set("status = ?", string(invoice.StatusPaid)).
		Set("paid_at = ?", paidAt).
		Set("payment_method = ?", string(payment.Method)).
		Set("remittance_ref = ?", payment.RemittanceRef).
		Set("updated_at = ?", paidAt).
		Where("id = ?", invID.String()).
		Where("status = ?", string(invoice.StatusIssued)).
		Exec(ctx)
	if err != nil {
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		if _, err := s.GetInvoice(ctx, invID); err != nil {
			return err
		}
		return medquote.ErrStateConflict
	}
	return nil
}

// ==================== Helpers ====================

func (s *Store) getEntry(ctx context.Context, where string, arg any) (*commission.Entry, error) {
	m := new(entryModel)
	if err := s.sdb.NewSelect(m).Where(where, arg).Scan(ctx); err != nil {
		if isNoRows(err) {
			return nil, medquote.ErrEntryNotFound
		}
		return nil, err
	}
	return fromEntryModel(m)
}

// guardFailed tells a missing request apart from one whose guard no
// longer holds.
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

type rowsResult interface {
	RowsAffected() (int64, error)
}

// expectRow maps an update or insert that touched nothing to errNone.
func expectRow(res rowsResult, errNone error) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return errNone
	}
	return nil
}

// now returns the current UTC time.
func now() time.Time {
	return time.Now().UTC()
}

// isNoRows checks for the standard sql.ErrNoRows sentinel.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
