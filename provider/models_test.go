package provider_test

import (
	"testing"

	"github.com/xraph/medquote/provider"
)

func TestSpotlight(t *testing.T) {
	tests := []struct {
		name     string
		bookings int64
		days     int
		want     bool
	}{
		{"new and quiet", 0, 0, true},
		{"busy but new", 500, 30, true},
		{"old but quiet", 10, 400, true},
		{"established", 50, 90, false},
		{"veteran", 900, 1200, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := &provider.Provider{TotalBookings: tt.bookings, DaysSinceJoin: tt.days}
			if got := p.Spotlight(); got != tt.want {
				t.Errorf("Spotlight() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestSupports(t *testing.T) {
	p := &provider.Provider{Capabilities: []provider.Equipment{
		provider.EquipmentVentilator,
		provider.EquipmentOxygen,
	}}

	tests := []struct {
		name     string
		required []provider.Equipment
		want     bool
	}{
		{"nothing required", nil, true},
		{"subset", []provider.Equipment{provider.EquipmentOxygen}, true},
		{"exact", []provider.Equipment{provider.EquipmentVentilator, provider.EquipmentOxygen}, true},
		{"other is ignored", []provider.Equipment{provider.EquipmentOther}, true},
		{"missing ecmo", []provider.Equipment{provider.EquipmentVentilator, provider.EquipmentECMO}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.Supports(tt.required); got != tt.want {
				t.Errorf("Supports(%v) = %v, want %v", tt.required, got, tt.want)
			}
		})
	}
}
