// Package provider holds the registry model for transport providers (air
// operators) and their rolling-window performance attributes.
package provider

import (
	"slices"

	"github.com/xraph/medquote/id"
	"github.com/xraph/medquote/types"
)

// Equipment tags a medical capability a provider can carry.
type Equipment string

const (
	EquipmentVentilator Equipment = "ventilator"
	EquipmentECMO       Equipment = "ecmo"
	EquipmentIncubator  Equipment = "incubator"
	EquipmentEscort     Equipment = "escort"
	EquipmentOxygen     Equipment = "oxygen"
	EquipmentOther      Equipment = "other"
)

// Spotlight thresholds: providers below either are promoted as new.
const (
	SpotlightMaxBookings = 50
	SpotlightMaxTenure   = 90 // days
)

// Provider is a transport operator that can receive quote requests.
type Provider struct {
	types.Entity

	ID                      id.ProviderID `json:"id"`
	Name                    string        `json:"name"`
	BasePrice               types.Money   `json:"base_price"`
	Capabilities            []Equipment   `json:"capabilities"`
	ResponseRate30d         float64       `json:"response_rate_30d"` // 0-100
	TotalBookings           int64         `json:"total_bookings"`
	DaysSinceJoin           int           `json:"days_since_join"`
	IsPriorityPartner       bool          `json:"is_priority_partner"`
	GroundTransportIncluded bool          `json:"ground_transport_included"`
}

// Stats is the rolling-window snapshot pushed by the analytics feed.
type Stats struct {
	ResponseRate30d float64 `json:"response_rate_30d"`
	TotalBookings   int64   `json:"total_bookings"`
	DaysSinceJoin   int     `json:"days_since_join"`
}

// Spotlight reports whether the provider is new or low-volume.
func (p *Provider) Spotlight() bool {
	return p.TotalBookings < SpotlightMaxBookings || p.DaysSinceJoin < SpotlightMaxTenure
}

// Supports reports whether the provider carries every required item.
// EquipmentOther never restricts eligibility.
func (p *Provider) Supports(required []Equipment) bool {
	for _, eq := range required {
		if eq == EquipmentOther {
			continue
		}
		if !slices.Contains(p.Capabilities, eq) {
			return false
		}
	}
	return true
}

// ListOpts filters provider listings.
type ListOpts struct {
	PriorityOnly bool
	Limit        int
	Offset       int
}
