package audithook

// Action constants for audit events.
const (
	// Provider actions
	ActionProviderRegistered = "provider.registered"

	// Quote actions
	ActionQuoteReady     = "quote.ready"
	ActionQuoteSelected  = "quote.selected"
	ActionQuoteExpired   = "quote.expired"
	ActionQuoteCancelled = "quote.cancelled"

	// Booking actions
	ActionBookingConfirmed = "booking.confirmed"

	// Ledger actions
	ActionCommissionRecorded = "commission.recorded"
	ActionRecoupAdjusted     = "recoup.adjusted"

	// Invoice actions
	ActionInvoiceIssued = "invoice.issued"
	ActionInvoicePaid   = "invoice.paid"
)

// Resource constants for audit events.
const (
	ResourceProvider = "provider"
	ResourceRequest  = "quote_request"
	ResourceBooking  = "booking"
	ResourceEntry    = "ledger_entry"
	ResourceInvoice  = "invoice"
)

// Category constants for audit events.
const (
	CategoryRegistry   = "registry"
	CategoryQuote      = "quote"
	CategoryBooking    = "booking"
	CategoryCommission = "commission"
	CategoryPayment    = "payment"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
