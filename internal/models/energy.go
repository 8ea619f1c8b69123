package models

import (
	"fmt"
	"strings"
)

// EnergyType names the energy source powering farm operations
type EnergyType string

const (
	EnergyGrid   EnergyType = "grid"
	EnergySolar  EnergyType = "solar"
	EnergyWind   EnergyType = "wind"
	EnergyDiesel EnergyType = "diesel"
	EnergyHybrid EnergyType = "hybrid"
)

// Normalize lower-cases and trims t so "Solar " matches EnergySolar
func (t EnergyType) Normalize() EnergyType {
	return EnergyType(strings.ToLower(strings.TrimSpace(string(t))))
}

// EnergyQuery is the input of an energy efficiency estimate.
// Zero EquipmentPowerKw and ElectricityCostPerKwh select the configured defaults.
type EnergyQuery struct {
	IrrigationHours       float64    `json:"irrigation_hours"`
	FertilizerUsageKg     float64    `json:"fertilizer_usage_kg"`
	EnergyType            EnergyType `json:"energy_type"`
	EquipmentPowerKw      float64    `json:"equipment_power_kw,omitempty"`
	FuelConsumptionL      float64    `json:"fuel_consumption_l,omitempty"`
	ElectricityCostPerKwh float64    `json:"electricity_cost_per_kwh,omitempty"`
	CurrentYieldTonsPerHa float64    `json:"current_yield_tons_per_ha"`
}

// Validate rejects negative and non-finite quantities
func (q *EnergyQuery) Validate() error {
	checks := []struct {
		field string
		value float64
	}{
		{"irrigation_hours", q.IrrigationHours},
		{"fertilizer_usage_kg", q.FertilizerUsageKg},
		{"equipment_power_kw", q.EquipmentPowerKw},
		{"fuel_consumption_l", q.FuelConsumptionL},
		{"electricity_cost_per_kwh", q.ElectricityCostPerKwh},
		{"current_yield_tons_per_ha", q.CurrentYieldTonsPerHa},
	}

	for _, c := range checks {
		if !IsFinite(c.value) {
			return &ValidationError{
				Field:   c.field,
				Value:   fmt.Sprintf("%g", c.value),
				Message: "value must be a finite number",
			}
		}
		if c.value < 0 {
			return &ValidationError{
				Field:   c.field,
				Value:   fmt.Sprintf("%g", c.value),
				Message: "value must not be negative",
			}
		}
	}
	return nil
}

// EnergyRequest is the API form of EnergyQuery where the current yield may be omitted
type EnergyRequest struct {
	EnergyQuery
	CurrentYieldTonsPerHa *float64 `json:"current_yield_tons_per_ha,omitempty"`
}

// ToQuery resolves the yield to use: the explicit value, else fallbackYield
func (r *EnergyRequest) ToQuery(fallbackYield float64) EnergyQuery {
	q := r.EnergyQuery
	q.CurrentYieldTonsPerHa = fallbackYield
	if r.CurrentYieldTonsPerHa != nil {
		q.CurrentYieldTonsPerHa = *r.CurrentYieldTonsPerHa
	}
	return q
}

// EnergyResult holds the metrics derived from an EnergyQuery
type EnergyResult struct {
	EfficiencyScoreKgPerKwh float64  `json:"efficiency_score_kg_per_kwh"`
	TotalEnergyKwh          float64  `json:"total_energy_kwh"`
	EnergyCost              float64  `json:"energy_cost"`
	CO2EmissionsKg          float64  `json:"co2_emissions_kg"`
	SustainabilityRating    int      `json:"sustainability_rating"`
	Recommendations         []string `json:"recommendations"`
}
