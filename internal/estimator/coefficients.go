package estimator

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Coefficients holds every table and threshold the estimators read.
// The values are heuristics, not measured constants, so deployments may override them from YAML.
type Coefficients struct {
	Yield  YieldCoefficients  `yaml:"yield"`
	Energy EnergyCoefficients `yaml:"energy"`
}

// YieldCoefficients parameterises the yield estimate
type YieldCoefficients struct {
	BaseYields        map[string]float64 `yaml:"base_yields"`
	DefaultBaseYield  float64            `yaml:"default_base_yield"`
	SeasonMultipliers map[string]float64 `yaml:"season_multipliers"`
	SoilMultipliers   map[string]float64 `yaml:"soil_multipliers"`
	Rainfall          RainfallBands      `yaml:"rainfall"`
	Temperature       TemperatureBands   `yaml:"temperature"`
	RandomMin         float64            `yaml:"random_min"`
	RandomMax         float64            `yaml:"random_max"`
}

// RainfallBands classifies seasonal rainfall in millimetres
type RainfallBands struct {
	DryBelowMm       float64 `yaml:"dry_below_mm"`
	DryMultiplier    float64 `yaml:"dry_multiplier"`
	WetAboveMm       float64 `yaml:"wet_above_mm"`
	WetMultiplier    float64 `yaml:"wet_multiplier"`
	NormalMultiplier float64 `yaml:"normal_multiplier"`
}

// TemperatureBands classifies the average season temperature in °C.
// The optimal band is inclusive at both ends.
type TemperatureBands struct {
	ColdBelowC        float64 `yaml:"cold_below_c"`
	HotAboveC         float64 `yaml:"hot_above_c"`
	StressMultiplier  float64 `yaml:"stress_multiplier"`
	OptimalMinC       float64 `yaml:"optimal_min_c"`
	OptimalMaxC       float64 `yaml:"optimal_max_c"`
	OptimalMultiplier float64 `yaml:"optimal_multiplier"`
}

// EnergyCoefficients parameterises the energy efficiency estimate
type EnergyCoefficients struct {
	DefaultEquipmentPowerKw      float64            `yaml:"default_equipment_power_kw"`
	FertilizerKwhPerKg           float64            `yaml:"fertilizer_kwh_per_kg"`
	FuelKwhPerLiter              float64            `yaml:"fuel_kwh_per_liter"`
	DefaultElectricityCostPerKwh float64            `yaml:"default_electricity_cost_per_kwh"`
	EmissionFactors              map[string]float64 `yaml:"emission_factors"`
	DefaultEmissionFactor        float64            `yaml:"default_emission_factor"`
	Rating                       RatingRules        `yaml:"rating"`
	Advice                       AdviceThresholds   `yaml:"advice"`
}

// The sustainability rating is always an integer in this range
const (
	MinSustainabilityRating = 1
	MaxSustainabilityRating = 10
)

// RatingRules drives the 1-10 sustainability rating
type RatingRules struct {
	Base                 int     `yaml:"base"`
	RenewableBonus       int     `yaml:"renewable_bonus"`
	HybridBonus          int     `yaml:"hybrid_bonus"`
	DieselPenalty        int     `yaml:"diesel_penalty"`
	EfficiencyBonusAbove float64 `yaml:"efficiency_bonus_above"`
	LowFertilizerBelowKg float64 `yaml:"low_fertilizer_below_kg"`
	Min                  int     `yaml:"min"`
	Max                  int     `yaml:"max"`
}

// AdviceThresholds decides which conditional recommendations are emitted
type AdviceThresholds struct {
	IrrigationHoursAbove float64 `yaml:"irrigation_hours_above"`
	FertilizerKgAbove    float64 `yaml:"fertilizer_kg_above"`
	EfficiencyBelow      float64 `yaml:"efficiency_below"`
}

// DefaultCoefficients returns the built-in tables
func DefaultCoefficients() Coefficients {
	return Coefficients{
		Yield: YieldCoefficients{
			BaseYields: map[string]float64{
				"Wheat":     4.5,
				"Rice":      6.2,
				"Corn":      8.5,
				"Soybeans":  3.2,
				"Barley":    4.8,
				"Cotton":    2.1,
				"Sugarcane": 12.5,
				"Potatoes":  25.0,
			},
			DefaultBaseYield: 5.0,
			SeasonMultipliers: map[string]float64{
				"Spring": 1.0,
				"Summer": 1.1,
				"Fall":   0.9,
				"Winter": 0.7,
			},
			SoilMultipliers: map[string]float64{
				"Clay":   0.95,
				"Sandy":  0.85,
				"Loam":   1.1,
				"Silt":   1.05,
				"Peat":   1.15,
				"Chalky": 0.9,
			},
			Rainfall: RainfallBands{
				DryBelowMm:       300,
				DryMultiplier:    0.7,
				WetAboveMm:       1200,
				WetMultiplier:    0.9,
				NormalMultiplier: 1.1,
			},
			Temperature: TemperatureBands{
				ColdBelowC:        10,
				HotAboveC:         35,
				StressMultiplier:  0.8,
				OptimalMinC:       20,
				OptimalMaxC:       28,
				OptimalMultiplier: 1.1,
			},
			RandomMin: 0.9,
			RandomMax: 1.1,
		},
		Energy: EnergyCoefficients{
			DefaultEquipmentPowerKw:      10,
			FertilizerKwhPerKg:           0.03,
			FuelKwhPerLiter:              10.2,
			DefaultElectricityCostPerKwh: 0.12,
			EmissionFactors: map[string]float64{
				"grid":   0.5,
				"solar":  0.05,
				"wind":   0.02,
				"diesel": 0.8,
				"hybrid": 0.3,
			},
			DefaultEmissionFactor: 0.5,
			Rating: RatingRules{
				Base:                 5,
				RenewableBonus:       3,
				HybridBonus:          2,
				DieselPenalty:        2,
				EfficiencyBonusAbove: 6,
				LowFertilizerBelowKg: 150,
				Min:                  1,
				Max:                  10,
			},
			Advice: AdviceThresholds{
				IrrigationHoursAbove: 150,
				FertilizerKgAbove:    200,
				EfficiencyBelow:      5,
			},
		},
	}
}

// ParseCoefficients overlays YAML data on the defaults. Keys absent from data keep their default values.
func ParseCoefficients(data []byte) (Coefficients, error) {
	coeffs := DefaultCoefficients()
	if err := yaml.Unmarshal(data, &coeffs); err != nil {
		return Coefficients{}, fmt.Errorf("failed to parse coefficients: %w", err)
	}
	if err := coeffs.Validate(); err != nil {
		return Coefficients{}, err
	}
	return coeffs, nil
}

// LoadCoefficients reads a YAML coefficients file. An empty path returns the defaults.
func LoadCoefficients(path string) (Coefficients, error) {
	if path == "" {
		return DefaultCoefficients(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Coefficients{}, fmt.Errorf("failed to read coefficients file: %w", err)
	}

	return ParseCoefficients(data)
}

// Validate rejects tables the estimators cannot honour
func (c Coefficients) Validate() error {
	y := c.Yield
	if y.RandomMin <= 0 || y.RandomMax < y.RandomMin {
		return fmt.Errorf("invalid random band [%g, %g)", y.RandomMin, y.RandomMax)
	}
	if y.DefaultBaseYield <= 0 {
		return fmt.Errorf("default base yield must be positive, got %g", y.DefaultBaseYield)
	}
	for crop, v := range y.BaseYields {
		if v <= 0 {
			return fmt.Errorf("base yield for %s must be positive, got %g", crop, v)
		}
	}
	if y.Temperature.OptimalMinC > y.Temperature.OptimalMaxC {
		return fmt.Errorf("optimal temperature band is inverted: %g > %g", y.Temperature.OptimalMinC, y.Temperature.OptimalMaxC)
	}

	r := c.Energy.Rating
	if r.Min > r.Max {
		return fmt.Errorf("rating bounds are inverted: %d > %d", r.Min, r.Max)
	}
	if r.Min < MinSustainabilityRating || r.Max > MaxSustainabilityRating {
		return fmt.Errorf("rating bounds [%d, %d] must lie within [%d, %d]",
			r.Min, r.Max, MinSustainabilityRating, MaxSustainabilityRating)
	}
	if c.Energy.DefaultEquipmentPowerKw < 0 || c.Energy.DefaultElectricityCostPerKwh < 0 {
		return fmt.Errorf("energy defaults must not be negative")
	}
	return nil
}
