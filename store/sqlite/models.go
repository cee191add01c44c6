package sqlite

import (
	"encoding/json"
	"time"

	"github.com/xraph/grove"

	"github.com/xraph/medquote/commission"
	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/invoice"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/quote"
	"github.com/xraph/medquote/types"
)

// ==================== Provider models ====================

type providerModel struct {
	grove.BaseModel `grove:"table:medquote_providers"`

	ID                      string          `grove:"id,pk"`
	Name                    string          `grove:"name"`
	BasePriceCents          int64           `grove:"base_price_cents"`
	BasePriceCurrency       string          `grove:"base_price_currency"`
	Capabilities            json.RawMessage `grove:"capabilities"`
	ResponseRate30d         float64         `grove:"response_rate_30d"`
	TotalBookings           int64           `grove:"total_bookings"`
	DaysSinceJoin           int             `grove:"days_since_join"`
	IsPriorityPartner       bool            `grove:"is_priority_partner"`
	GroundTransportIncluded bool            `grove:"ground_transport_included"`
	CreatedAt               time.Time       `grove:"created_at"`
	UpdatedAt               time.Time       `grove:"updated_at"`
}

func toProviderModel(p *provider.Provider) *providerModel {
	caps, _ := json.Marshal(p.Capabilities) //nolint:errcheck // best-effort

	return &providerModel{
		ID:                      p.ID.String(),
		Name:                    p.Name,
		BasePriceCents:          p.BasePrice.Amount,
		BasePriceCurrency:       p.BasePrice.Currency,
		Capabilities:            caps,
		ResponseRate30d:         p.ResponseRate30d,
		TotalBookings:           p.TotalBookings,
		DaysSinceJoin:           p.DaysSinceJoin,
		IsPriorityPartner:       p.IsPriorityPartner,
		GroundTransportIncluded: p.GroundTransportIncluded,
		CreatedAt:               p.CreatedAt,
		UpdatedAt:               p.UpdatedAt,
	}
}

func fromProviderModel(m *providerModel) (*provider.Provider, error) {
	providerID, err := id.ParseProviderID(m.ID)
	if err != nil {
		return nil, err
	}

	var caps []provider.Equipment
	if len(m.Capabilities) > 0 {
		_ = json.Unmarshal(m.Capabilities, &caps) //nolint:errcheck // best-effort
	}

	return &provider.Provider{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                      providerID,
		Name:                    m.Name,
		BasePrice:               types.Money{Amount: m.BasePriceCents, Currency: m.BasePriceCurrency},
		Capabilities:            caps,
		ResponseRate30d:         m.ResponseRate30d,
		TotalBookings:           m.TotalBookings,
		DaysSinceJoin:           m.DaysSinceJoin,
		IsPriorityPartner:       m.IsPriorityPartner,
		GroundTransportIncluded: m.GroundTransportIncluded,
	}, nil
}

// ==================== Quote request models ====================

// requestModel stores the provider quotes inline; they are written once at
// allocation and only ever read back as a whole.
type requestModel struct {
	grove.BaseModel `grove:"table:medquote_requests"`

	ID                 string          `grove:"id,pk"`
	RequesterRef       string          `grove:"requester_ref"`
	Origin             string          `grove:"origin"`
	Destination        string          `grove:"destination"`
	Equipment          json.RawMessage `grove:"equipment"`
	Urgency            string          `grove:"urgency"`
	International      bool            `grove:"international"`
	Subscriber         bool            `grove:"subscriber"`
	Training           bool            `grove:"training"`
	State              string          `grove:"state"`
	ExpiresAt          time.Time       `grove:"expires_at"`
	VisibleCount       int             `grove:"visible_count"`
	SelectedQuoteID    string          `grove:"selected_quote_id"`
	SelectedProviderID string          `grove:"selected_provider_id"`
	SelectedAt         *time.Time      `grove:"selected_at"`
	BookingID          string          `grove:"booking_id"`
	DepositRef         string          `grove:"deposit_ref"`
	ConsentAt          *time.Time      `grove:"consent_at"`
	BookedAt           *time.Time      `grove:"booked_at"`
	CancelledAt        *time.Time      `grove:"cancelled_at"`
	CancelNote         string          `grove:"cancel_note"`
	Quotes             json.RawMessage `grove:"quotes"`
	CreatedAt          time.Time       `grove:"created_at"`
	UpdatedAt          time.Time       `grove:"updated_at"`
}

func toRequestModel(r *quote.Request) *requestModel {
	equipment, _ := json.Marshal(r.Equipment) //nolint:errcheck // best-effort
	quotes, _ := json.Marshal(r.Quotes)       //nolint:errcheck // best-effort

	return &requestModel{
		ID:                 r.ID.String(),
		RequesterRef:       r.RequesterRef,
		Origin:             r.Origin,
		Destination:        r.Destination,
		Equipment:          equipment,
		Urgency:            string(r.Urgency),
		International:      r.International,
		Subscriber:         r.Subscriber,
		Training:           r.Training,
		State:              string(r.State),
		ExpiresAt:          r.ExpiresAt,
		VisibleCount:       r.VisibleCount,
		SelectedQuoteID:    r.SelectedQuoteID.String(),
		SelectedProviderID: r.SelectedProviderID.String(),
		SelectedAt:         r.SelectedAt,
		BookingID:          r.BookingID.String(),
		DepositRef:         r.DepositRef,
		ConsentAt:          r.ConsentAt,
		BookedAt:           r.BookedAt,
		CancelledAt:        r.CancelledAt,
		CancelNote:         r.CancelNote,
		Quotes:             quotes,
		CreatedAt:          r.CreatedAt,
		UpdatedAt:          r.UpdatedAt,
	}
}

func fromRequestModel(m *requestModel) (*quote.Request, error) {
	requestID, err := id.ParseRequestID(m.ID)
	if err != nil {
		return nil, err
	}
	selectedQuote, err := id.ParseOptional(m.SelectedQuoteID, id.PrefixQuote)
	if err != nil {
		return nil, err
	}
	selectedProvider, err := id.ParseOptional(m.SelectedProviderID, id.PrefixProvider)
	if err != nil {
		return nil, err
	}
	bookingID, err := id.ParseOptional(m.BookingID, id.PrefixBooking)
	if err != nil {
		return nil, err
	}

	var equipment []provider.Equipment
	if len(m.Equipment) > 0 {
		_ = json.Unmarshal(m.Equipment, &equipment) //nolint:errcheck // best-effort
	}
	var quotes []quote.ProviderQuote
	if len(m.Quotes) > 0 {
		if err := json.Unmarshal(m.Quotes, &quotes); err != nil {
			return nil, err
		}
	}

	return &quote.Request{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                 requestID,
		RequesterRef:       m.RequesterRef,
		Origin:             m.Origin,
		Destination:        m.Destination,
		Equipment:          equipment,
		Urgency:            quote.Urgency(m.Urgency),
		International:      m.International,
		Subscriber:         m.Subscriber,
		Training:           m.Training,
		State:              quote.State(m.State),
		ExpiresAt:          m.ExpiresAt,
		VisibleCount:       m.VisibleCount,
		SelectedQuoteID:    selectedQuote,
		SelectedProviderID: selectedProvider,
		SelectedAt:         m.SelectedAt,
		BookingID:          bookingID,
		DepositRef:         m.DepositRef,
		ConsentAt:          m.ConsentAt,
		BookedAt:           m.BookedAt,
		CancelledAt:        m.CancelledAt,
		CancelNote:         m.CancelNote,
		Quotes:             quotes,
	}, nil
}

// ==================== Ledger models ====================

type entryModel struct {
	grove.BaseModel `grove:"table:medquote_entries"`

	ID                    string    `grove:"id,pk"`
	BookingID             string    `grove:"booking_id"`
	ProviderID            string    `grove:"provider_id"`
	Kind                  string    `grove:"kind"`
	Currency              string    `grove:"currency"`
	BaseAmountCents       int64     `grove:"base_amount_cents"`
	EffectiveRate         int64     `grove:"effective_rate"`
	CommissionCents       int64     `grove:"commission_cents"`
	RecoupAppliedCents    int64     `grove:"recoup_applied_cents"`
	RecoupTotalAfterCents int64     `grove:"recoup_total_after_cents"`
	Seq                   int64     `grove:"seq"`
	IsDummy               bool      `grove:"is_dummy"`
	InvoiceWeek           string    `grove:"invoice_week"`
	CompletedAt           time.Time `grove:"completed_at"`
	CreatedAt             time.Time `grove:"created_at"`
	UpdatedAt             time.Time `grove:"updated_at"`
}

func toEntryModel(e *commission.Entry) *entryModel {
	return &entryModel{
		ID:                    e.ID.String(),
		BookingID:             e.BookingID,
		ProviderID:            e.ProviderID.String(),
		Kind:                  string(e.Kind),
		Currency:              e.BaseAmount.Currency,
		BaseAmountCents:       e.BaseAmount.Amount,
		EffectiveRate:         int64(e.EffectiveRate),
		CommissionCents:       e.Commission.Amount,
		RecoupAppliedCents:    e.RecoupApplied.Amount,
		RecoupTotalAfterCents: e.RecoupTotalAfter.Amount,
		Seq:                   e.Seq,
		IsDummy:               e.IsDummy,
		InvoiceWeek:           e.InvoiceWeek.String(),
		CompletedAt:           e.CompletedAt,
		CreatedAt:             e.CreatedAt,
		UpdatedAt:             e.UpdatedAt,
	}
}

func fromEntryModel(m *entryModel) (*commission.Entry, error) {
	entryID, err := id.ParseEntryID(m.ID)
	if err != nil {
		return nil, err
	}
	providerID, err := id.ParseProviderID(m.ProviderID)
	if err != nil {
		return nil, err
	}
	week, err := types.ParseWeek(m.InvoiceWeek)
	if err != nil {
		return nil, err
	}

	money := func(cents int64) types.Money { return types.Money{Amount: cents, Currency: m.Currency} }
	return &commission.Entry{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:               entryID,
		BookingID:        m.BookingID,
		ProviderID:       providerID,
		Kind:             commission.Kind(m.Kind),
		BaseAmount:       money(m.BaseAmountCents),
		EffectiveRate:    commission.Rate(m.EffectiveRate),
		Commission:       money(m.CommissionCents),
		RecoupApplied:    money(m.RecoupAppliedCents),
		RecoupTotalAfter: money(m.RecoupTotalAfterCents),
		Seq:              m.Seq,
		IsDummy:          m.IsDummy,
		InvoiceWeek:      week,
		CompletedAt:      m.CompletedAt,
	}, nil
}

// ==================== Invoice models ====================

type invoiceModel struct {
	grove.BaseModel `grove:"table:medquote_invoices"`

	ID            string          `grove:"id,pk"`
	Number        string          `grove:"number"`
	ProviderID    string          `grove:"provider_id"`
	ProviderName  string          `grove:"provider_name"`
	InvoiceWeek   string          `grove:"invoice_week"`
	Lines         json.RawMessage `grove:"lines"`
	TotalCents    int64           `grove:"total_cents"`
	TotalCurrency string          `grove:"total_currency"`
	Status        string          `grove:"status"`
	IssuedAt      time.Time       `grove:"issued_at"`
	DueAt         time.Time       `grove:"due_at"`
	PaidAt        *time.Time      `grove:"paid_at"`
	PaymentMethod string          `grove:"payment_method"`
	RemittanceRef string          `grove:"remittance_ref"`
	CreatedAt     time.Time       `grove:"created_at"`
	UpdatedAt     time.Time       `grove:"updated_at"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	lines, _ := json.Marshal(inv.Lines) //nolint:errcheck // best-effort

	return &invoiceModel{
		ID:            inv.ID.String(),
		Number:        inv.Number,
		ProviderID:    inv.ProviderID.String(),
		ProviderName:  inv.ProviderName,
		InvoiceWeek:   inv.Week.String(),
		Lines:         lines,
		TotalCents:    inv.Total.Amount,
		TotalCurrency: inv.Total.Currency,
		Status:        string(inv.Status),
		IssuedAt:      inv.IssuedAt,
		DueAt:         inv.DueAt,
		PaidAt:        inv.PaidAt,
		PaymentMethod: string(inv.PaymentMethod),
		RemittanceRef: inv.RemittanceRef,
		CreatedAt:     inv.CreatedAt,
		UpdatedAt:     inv.UpdatedAt,
	}
}

func fromInvoiceModel(m *invoiceModel) (*invoice.Invoice, error) {
	invID, err := id.ParseInvoiceID(m.ID)
	if err != nil {
		return nil, err
	}
	providerID, err := id.ParseProviderID(m.ProviderID)
	if err != nil {
		return nil, err
	}
	week, err := types.ParseWeek(m.InvoiceWeek)
	if err != nil {
		return nil, err
	}

	var lines []invoice.Line
	if len(m.Lines) > 0 {
		if err := json.Unmarshal(m.Lines, &lines); err != nil {
			return nil, err
		}
	}

	return &invoice.Invoice{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:            invID,
		Number:        m.Number,
		ProviderID:    providerID,
		ProviderName:  m.ProviderName,
		Week:          week,
		Lines:         lines,
		Total:         types.Money{Amount: m.TotalCents, Currency: m.TotalCurrency},
		Status:        invoice.Status(m.Status),
		IssuedAt:      m.IssuedAt,
		DueAt:         m.DueAt,
		PaidAt:        m.PaidAt,
		PaymentMethod: invoice.PaymentMethod(m.PaymentMethod),
		RemittanceRef: m.RemittanceRef,
	}, nil
}
