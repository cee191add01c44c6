package audithook

import "log/slog"

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger used to report recorder failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) { e.logger = logger }
}

// WithEnabledActions audits only the listed actions.
// Without it every action in allActions is audited.
func WithEnabledActions(actions ...string) Option {
	return func(e *Extension) { e.enabled = setOf(actions) }
}

// WithDisabledActions removes actions from the audited set.
func WithDisabledActions(actions ...string) Option {
	return func(e *Extension) {
		if e.enabled == nil {
			e.enabled = setOf(allActions())
		}
		for _, action := range actions {
			delete(e.enabled, action)
		}
	}
}

// WithCategories audits only events in the listed categories, e.g.
// CategoryCommission and CategoryPayment for a finance-only trail.
func WithCategories(categories ...string) Option {
	return func(e *Extension) { e.categories = setOf(categories) }
}

// WithoutTraining skips events caused by training-mode requests and the
// dummy ledger entries they produce.
func WithoutTraining() Option {
	return func(e *Extension) { e.skipTraining = true }
}

func setOf(values []string) map[string]bool {
	m := make(map[string]bool, len(values))
	for _, v := range values {
		m[v] = true
	}
	return m
}

// allActions returns all known audit actions.
func allActions() []string {
	return []string{
		ActionProviderRegistered,
		ActionQuoteReady,
		ActionQuoteSelected,
		ActionQuoteExpired,
		ActionQuoteCancelled,
		ActionBookingConfirmed,
		ActionCommissionRecorded,
		ActionRecoupAdjusted,
		ActionInvoiceIssued,
		ActionInvoicePaid,
	}
}
