package models

import "time"

// EnergySnapshot is the energy summary attached to a prediction after an efficiency calculation
type EnergySnapshot struct {
	IrrigationHours   float64    `json:"irrigation_hours"`
	FertilizerUsageKg float64    `json:"fertilizer_usage_kg"`
	EnergyType        EnergyType `json:"energy_type"`
	EfficiencyScore   float64    `json:"efficiency_score"`
}

// Prediction is one entry of the prediction history
type Prediction struct {
	ID             int64           `json:"id" db:"id"`
	Crop           Crop            `json:"crop" db:"crop"`
	Location       string          `json:"location" db:"location"`
	Season         Season          `json:"season" db:"season"`
	SoilType       SoilType        `json:"soil_type,omitempty" db:"soil_type"`
	RainfallMm     *float64        `json:"rainfall_mm,omitempty" db:"rainfall_mm"`
	TemperatureC   *float64        `json:"temperature_c,omitempty" db:"temperature_c"`
	PredictedYield float64         `json:"predicted_yield" db:"predicted_yield"`
	EnergyData     *EnergySnapshot `json:"energy_data,omitempty" db:"-"`
	IsCurrent      bool            `json:"is_current" db:"is_current"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at" db:"updated_at"`
}

// NewPrediction builds a history entry from an estimate
func NewPrediction(p *YieldPrediction) *Prediction {
	now := time.Now().UTC()
	return &Prediction{
		Crop:           p.Query.Crop,
		Location:       p.Query.Location,
		Season:         p.Query.Season,
		SoilType:       p.Query.SoilType,
		RainfallMm:     p.Query.RainfallMm,
		TemperatureC:   p.Query.TemperatureC,
		PredictedYield: p.YieldTonsPerHa,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
