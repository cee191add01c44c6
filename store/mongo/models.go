package mongo

import (
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

	ID                      string    `grove:"id,pk"                     bson:"_id"`
	Name                    string    `grove:"name"                      bson:"name"`
	BasePriceCents          int64     `grove:"base_price_cents"          bson:"base_price_cents"`
	BasePriceCurrency       string    `grove:"base_price_currency"       bson:"base_price_currency"`
	Capabilities            []string  `grove:"capabilities"              bson:"capabilities"`
	ResponseRate30d         float64   `grove:"response_rate_30d"         bson:"response_rate_30d"`
	TotalBookings           int64     `grove:"total_bookings"            bson:"total_bookings"`
	DaysSinceJoin           int       `grove:"days_since_join"           bson:"days_since_join"`
	IsPriorityPartner       bool      `grove:"is_priority_partner"       bson:"is_priority_partner"`
	GroundTransportIncluded bool      `grove:"ground_transport_included" bson:"ground_transport_included"`
	CreatedAt               time.Time `grove:"created_at"                bson:"created_at"`
	UpdatedAt               time.Time `grove:"updated_at"                bson:"updated_at"`
}

func toProviderModel(p *provider.Provider) *providerModel {
	caps := make([]string, len(p.Capabilities))
	for i, c := range p.Capabilities {
		caps[i] = string(c)
	}
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
	return &provider.Provider{
		Entity: types.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:                      providerID,
		Name:                    m.Name,
		BasePrice:               types.Money{Amount: m.BasePriceCents, Currency: m.BasePriceCurrency},
		Capabilities:            toEquipment(m.Capabilities),
		ResponseRate30d:         m.ResponseRate30d,
		TotalBookings:           m.TotalBookings,
		DaysSinceJoin:           m.DaysSinceJoin,
		IsPriorityPartner:       m.IsPriorityPartner,
		GroundTransportIncluded: m.GroundTransportIncluded,
	}, nil
}

// ==================== Quote request models ====================

type requestModel struct {
	grove.BaseModel `grove:"table:medquote_requests"`

	ID                 string       `grove:"id,pk"                bson:"_id"`
	RequesterRef       string       `grove:"requester_ref"        bson:"requester_ref"`
	Origin             string       `grove:"origin"               bson:"origin"`
	Destination        string       `grove:"destination"          bson:"destination"`
	Equipment          []string     `grove:"equipment"            bson:"equipment"`
	Urgency            string       `grove:"urgency"              bson:"urgency"`
	International      bool         `grove:"international"        bson:"international"`
	Subscriber         bool         `grove:"subscriber"           bson:"subscriber"`
	Training           bool         `grove:"training"             bson:"training"`
	State              string       `grove:"state"                bson:"state"`
	ExpiresAt          time.Time    `grove:"expires_at"           bson:"expires_at"`
	VisibleCount       int          `grove:"visible_count"        bson:"visible_count"`
	SelectedQuoteID    string       `grove:"selected_quote_id"    bson:"selected_quote_id,omitempty"`
	SelectedProviderID string       `grove:"selected_provider_id" bson:"selected_provider_id,omitempty"`
	SelectedAt         *time.Time   `grove:"selected_at"          bson:"selected_at,omitempty"`
	BookingID          string       `grove:"booking_id"           bson:"booking_id,omitempty"`
	DepositRef         string       `grove:"deposit_ref"          bson:"deposit_ref,omitempty"`
	ConsentAt          *time.Time   `grove:"consent_at"           bson:"consent_at,omitempty"`
	BookedAt           *time.Time   `grove:"booked_at"            bson:"booked_at,omitempty"`
	CancelledAt        *time.Time   `grove:"cancelled_at"         bson:"cancelled_at,omitempty"`
	CancelNote         string       `grove:"cancel_note"          bson:"cancel_note,omitempty"`
	Quotes             []quoteModel `grove:"quotes"               bson:"quotes"`
	CreatedAt          time.Time    `grove:"created_at"           bson:"created_at"`
	UpdatedAt          time.Time    `grove:"updated_at"           bson:"updated_at"`
}

type quoteModel struct {
	ID                      string  `bson:"id"`
	ProviderID              string  `bson:"provider_id"`
	ProviderName            string  `bson:"provider_name"`
	MaskedName              string  `bson:"masked_name"`
	Currency                string  `bson:"currency"`
	PriceCents              int64   `bson:"price_cents"`
	EquipmentCostCents      int64   `bson:"equipment_cost_cents"`
	Responded               bool    `bson:"responded"`
	Tier                    string  `bson:"tier"`
	ResponseRate30d         float64 `bson:"response_rate_30d"`
	Spotlight               bool    `bson:"spotlight"`
	Rank                    int     `bson:"rank"`
	ETAHours                int     `bson:"eta_hours"`
	Priority                bool    `bson:"priority"`
	GroundTransportIncluded bool    `bson:"ground_transport_included"`
}

func toRequestModel(r *quote.Request) *requestModel {
	equipment := make([]string, len(r.Equipment))
	for i, eq := range r.Equipment {
		equipment[i] = string(eq)
	}
	quotes := make([]quoteModel, len(r.Quotes))
	for i, q := range r.Quotes {
		quotes[i] = quoteModel{
			ID:                      q.ID.String(),
			ProviderID:              q.ProviderID.String(),
			ProviderName:            q.ProviderName,
			MaskedName:              q.MaskedName,
			Currency:                q.Price.Currency,
			PriceCents:              q.Price.Amount,
			EquipmentCostCents:      q.EquipmentCost.Amount,
			Responded:               q.Responded,
			Tier:                    string(q.Tier),
			ResponseRate30d:         q.ResponseRate30d,
			Spotlight:               q.Spotlight,
			Rank:                    q.Rank,
			ETAHours:                q.ETAHours,
			Priority:                q.Priority,
			GroundTransportIncluded: q.GroundTransportIncluded,
		}
	}

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

	quotes := make([]quote.ProviderQuote, len(m.Quotes))
	for i, qm := range m.Quotes {
		quoteID, err := id.ParseQuoteID(qm.ID)
		if err != nil {
			return nil, err
		}
		providerID, err := id.ParseProviderID(qm.ProviderID)
		if err != nil {
			return nil, err
		}
		quotes[i] = quote.ProviderQuote{
			ID:                      quoteID,
			ProviderID:              providerID,
			ProviderName:            qm.ProviderName,
			MaskedName:              qm.MaskedName,
			Price:                   types.Money{Amount: qm.PriceCents, Currency: qm.Currency},
			EquipmentCost:           types.Money{Amount: qm.EquipmentCostCents, Currency: qm.Currency},
			Responded:               qm.Responded,
			Tier:                    quote.Tier(qm.Tier),
			ResponseRate30d:         qm.ResponseRate30d,
			Spotlight:               qm.Spotlight,
			Rank:                    qm.Rank,
			ETAHours:                qm.ETAHours,
			Priority:                qm.Priority,
			GroundTransportIncluded: qm.GroundTransportIncluded,
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
		Equipment:          toEquipment(m.Equipment),
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

	ID                    string    `grove:"id,pk"                    bson:"_id"`
	BookingID             string    `grove:"booking_id"               bson:"booking_id"`
	ProviderID            string    `grove:"provider_id"              bson:"provider_id"`
	Kind                  string    `grove:"kind"                     bson:"kind"`
	Currency              string    `grove:"currency"                 bson:"currency"`
	BaseAmountCents       int64     `grove:"base_amount_cents"        bson:"base_amount_cents"`
	EffectiveRate         int64     `grove:"effective_rate"           bson:"effective_rate"`
	CommissionCents       int64     `grove:"commission_cents"         bson:"commission_cents"`
	RecoupAppliedCents    int64     `grove:"recoup_applied_cents"     bson:"recoup_applied_cents"`
	RecoupTotalAfterCents int64     `grove:"recoup_total_after_cents" bson:"recoup_total_after_cents"`
	Seq                   int64     `grove:"seq"                      bson:"seq"`
	IsDummy               bool      `grove:"is_dummy"                 bson:"is_dummy"`
	InvoiceWeek           string    `grove:"invoice_week"             bson:"invoice_week"`
	CompletedAt           time.Time `grove:"completed_at"             bson:"completed_at"`
	CreatedAt             time.Time `grove:"created_at"               bson:"created_at"`
	UpdatedAt             time.Time `grove:"updated_at"               bson:"updated_at"`
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

	ID            string      `grove:"id,pk"          bson:"_id"`
	Number        string      `grove:"number"         bson:"number"`
	ProviderID    string      `grove:"provider_id"    bson:"provider_id"`
	ProviderName  string      `grove:"provider_name"  bson:"provider_name"`
	InvoiceWeek   string      `grove:"invoice_week"   bson:"invoice_week"`
	Lines         []lineModel `grove:"lines"          bson:"lines"`
	TotalCents    int64       `grove:"total_cents"    bson:"total_cents"`
	TotalCurrency string      `grove:"total_currency" bson:"total_currency"`
	Status        string      `grove:"status"         bson:"status"`
	IssuedAt      time.Time   `grove:"issued_at"      bson:"issued_at"`
	DueAt         time.Time   `grove:"due_at"         bson:"due_at"`
	PaidAt        *time.Time  `grove:"paid_at"        bson:"paid_at,omitempty"`
	PaymentMethod string      `grove:"payment_method" bson:"payment_method,omitempty"`
	RemittanceRef string      `grove:"remittance_ref" bson:"remittance_ref,omitempty"`
	CreatedAt     time.Time   `grove:"created_at"     bson:"created_at"`
	UpdatedAt     time.Time   `grove:"updated_at"     bson:"updated_at"`
}

type lineModel struct {
	EntryID         string    `bson:"entry_id"`
	BookingID       string    `bson:"booking_id"`
	CompletedAt     time.Time `bson:"completed_at"`
	Currency        string    `bson:"currency"`
	BaseAmountCents int64     `bson:"base_amount_cents"`
	EffectiveRate   int64     `bson:"effective_rate"`
	CommissionCents int64     `bson:"commission_cents"`
}

func toInvoiceModel(inv *invoice.Invoice) *invoiceModel {
	lines := make([]lineModel, len(inv.Lines))
	for i, l := range inv.Lines {
		lines[i] = lineModel{
			EntryID:         l.EntryID.String(),
			BookingID:       l.BookingID,
			CompletedAt:     l.CompletedAt,
			Currency:        l.BaseAmount.Currency,
			BaseAmountCents: l.BaseAmount.Amount,
			EffectiveRate:   int64(l.EffectiveRate),
			CommissionCents: l.Commission.Amount,
		}
	}

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

	lines := make([]invoice.Line, len(m.Lines))
	for i, lm := range m.Lines {
		entryID, err := id.ParseEntryID(lm.EntryID)
		if err != nil {
			return nil, err
		}
		lines[i] = invoice.Line{
			EntryID:       entryID,
			BookingID:     lm.BookingID,
			CompletedAt:   lm.CompletedAt,
			BaseAmount:    types.Money{Amount: lm.BaseAmountCents, Currency: lm.Currency},
			EffectiveRate: commission.Rate(lm.EffectiveRate),
			Commission:    types.Money{Amount: lm.CommissionCents, Currency: lm.Currency},
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

func toEquipment(tags []string) []provider.Equipment {
	out := make([]provider.Equipment, len(tags))
	for i, t := range tags {
		out[i] = provider.Equipment(t)
	}
	return out
}
