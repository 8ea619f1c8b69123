package estimator

import "agri-insights/internal/models"

// YieldEstimator predicts crop yield in tons per hectare from lookup tables.
// It never fails: unknown crops, seasons and soils use neutral defaults.
type YieldEstimator struct {
	coeffs YieldCoefficients
	rng    RandomSource
}

// NewYieldEstimator creates a yield estimator. A nil rng uses the process-wide generator.
// A shared estimator needs an rng that is safe for concurrent use.
func NewYieldEstimator(coeffs YieldCoefficients, rng RandomSource) *YieldEstimator {
	if rng == nil {
		rng = globalSource{}
	}
	return &YieldEstimator{coeffs: coeffs, rng: rng}
}

// Estimate returns the predicted yield in tons per hectare
func (e *YieldEstimator) Estimate(q models.YieldQuery) float64 {
	return e.Predict(q).YieldTonsPerHa
}

// Predict returns the predicted yield together with its factor breakdown
func (e *YieldEstimator) Predict(q models.YieldQuery) *models.YieldPrediction {
	factors := e.Factors(q)
	factors.RandomFactor = e.coeffs.RandomMin + e.rng.Float64()*(e.coeffs.RandomMax-e.coeffs.RandomMin)

	return &models.YieldPrediction{
		Query:          q,
		YieldTonsPerHa: factors.Deterministic() * factors.RandomFactor,
		Factors:        factors,
	}
}

// Factors computes the deterministic multipliers for q; RandomFactor is left at 1
func (e *YieldEstimator) Factors(q models.YieldQuery) models.YieldFactors {
	return models.YieldFactors{
		BaseYield:         lookup(e.coeffs.BaseYields, string(q.Crop), e.coeffs.DefaultBaseYield),
		SeasonMultiplier:  lookup(e.coeffs.SeasonMultipliers, string(q.Season), 1.0),
		SoilMultiplier:    lookup(e.coeffs.SoilMultipliers, string(q.SoilType), 1.0),
		WeatherMultiplier: e.weatherMultiplier(q.RainfallMm, q.TemperatureC),
		RandomFactor:      1.0,
	}
}

func (e *YieldEstimator) weatherMultiplier(rainfallMm, temperatureC *float64) float64 {
	multiplier := 1.0

	if rainfallMm != nil {
		rain := e.coeffs.Rainfall
		switch {
		case *rainfallMm < rain.DryBelowMm:
			multiplier *= rain.DryMultiplier
		case *rainfallMm > rain.WetAboveMm:
			multiplier *= rain.WetMultiplier
		default:
			multiplier *= rain.NormalMultiplier
		}
	}

	if temperatureC != nil {
		temp := e.coeffs.Temperature
		switch {
		case *temperatureC < temp.ColdBelowC || *temperatureC > temp.HotAboveC:
			multiplier *= temp.StressMultiplier
		case *temperatureC >= temp.OptimalMinC && *temperatureC <= temp.OptimalMaxC:
			multiplier *= temp.OptimalMultiplier
		}
	}

	return multiplier
}

// lookup returns table[key], or fallback for missing and non-positive entries
func lookup(table map[string]float64, key string, fallback float64) float64 {
	if v, ok := table[key]; ok && v > 0 {
		return v
	}
	return fallback
}

// EstimateYield predicts a yield with the built-in tables, drawing the random factor from rng
func EstimateYield(q models.YieldQuery, rng RandomSource) float64 {
	return NewYieldEstimator(DefaultCoefficients().Yield, rng).Estimate(q)
}
