package medquote

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/provider"
	"github.com/xraph/medquote/types"
)

// ──────────────────────────────────────────────────
// Provider Registry
// ──────────────────────────────────────────────────

var knownEquipment = []provider.Equipment{
	provider.EquipmentVentilator,
	provider.EquipmentECMO,
	provider.EquipmentIncubator,
	provider.EquipmentEscort,
	provider.EquipmentOxygen,
	provider.EquipmentOther,
}

// RegisterProvider validates and stores a provider. A Nil ID is assigned.
func (e *Engine) RegisterProvider(ctx context.Context, p *provider.Provider) error {
	if err := validateProvider(p); err != nil {
		return err
	}
	if p.ID.IsNil() {
		p.ID = id.NewProviderID()
	}
	p.Entity = types.NewEntityAt(e.now())

	if err := e.store.CreateProvider(ctx, p); err != nil {
		return err
	}

	e.logger.Info("provider registered", "provider_id", p.ID, "name", p.Name)
	e.plugins.EmitProviderRegistered(ctx, p)
	return nil
}

// GetProvider retrieves a provider by ID.
func (e *Engine) GetProvider(ctx context.Context, providerID id.ProviderID) (*provider.Provider, error) {
	return e.store.GetProvider(ctx, providerID)
}

// ListProviders lists providers.
func (e *Engine) ListProviders(ctx context.Context, opts provider.ListOpts) ([]*provider.Provider, error) {
	return e.store.ListProviders(ctx, opts)
}

// UpdateProviderStats applies a rolling-window snapshot from the analytics feed.
func (e *Engine) UpdateProviderStats(ctx context.Context, providerID id.ProviderID, stats provider.Stats) error {
	var errs MultiError
	if stats.ResponseRate30d < 0 || stats.ResponseRate30d > 100 {
		errs.Add(ValidationError{Field: "response_rate_30d", Message: "must be between 0 and 100"})
	}
	if stats.TotalBookings < 0 {
		errs.Add(ValidationError{Field: "total_bookings", Message: "must not be negative"})
	}
	if stats.DaysSinceJoin < 0 {
		errs.Add(ValidationError{Field: "days_since_join", Message: "must not be negative"})
	}
	if errs.HasErrors() {
		return errs
	}

	if err := e.store.UpdateProviderStats(ctx, providerID, stats); err != nil {
		return fmt.Errorf("update stats for %s: %w", providerID, err)
	}
	e.logger.Debug("provider stats updated",
		"provider_id", providerID,
		"response_rate_30d", stats.ResponseRate30d,
		"total_bookings", stats.TotalBookings,
	)
	return nil
}

func validateProvider(p *provider.Provider) error {
	var errs MultiError
	if strings.TrimSpace(p.Name) == "" {
		errs.Add(ValidationError{Field: "name", Message: "is required"})
	}
	if !p.BasePrice.IsPositive() {
		errs.Add(ValidationError{Field: "base_price", Message: "must be positive"})
	}
	p.BasePrice = normalizeMoney(&errs, "base_price", p.BasePrice)
	if p.ResponseRate30d < 0 || p.ResponseRate30d > 100 {
		errs.Add(ValidationError{Field: "response_rate_30d", Message: "must be between 0 and 100"})
	}
	for _, eq := range p.Capabilities {
		if !slices.Contains(knownEquipment, eq) {
			errs.Add(ValidationError{Field: "capabilities", Message: fmt.Sprintf("unknown equipment %q", eq)})
		}
	}
	if errs.HasErrors() {
		return errs
	}
	return nil
}

// normalizeMoney lowercases m's currency, defaults an empty one and
// records a ValidationError for any currency the engine does not price in.
func normalizeMoney(errs *MultiError, field string, m types.Money) types.Money {
	m = m.Normalized()
	if m.Currency != types.DefaultCurrency {
		errs.Add(ValidationError{Field: field, Message: fmt.Sprintf("unsupported currency %q", m.Currency)})
	}
	return m
}
