package estimator

import "agri-insights/internal/models"

// Advisory texts, in the order they are emitted
const (
	AdviceSwitchToRenewables  = "Consider switching to renewable energy sources like solar or wind power"
	AdvicePrecisionIrrigation = "Implement drip irrigation or precision watering to reduce irrigation hours"
	AdviceSoilTesting         = "Use soil testing to optimize fertilizer application and reduce waste"
	AdviceUpgradeEquipment    = "Consider upgrading to more efficient equipment to improve energy utilization"
	AdviceOffPeakScheduling   = "Schedule energy-intensive operations during off-peak hours to reduce costs"
	AdviceInstallSolar        = "Install solar panels to reduce long-term energy costs and environmental impact"
)

// EnergyEstimator derives energy, cost, emission and sustainability metrics for farm operations.
// It is deterministic and never fails.
type EnergyEstimator struct {
	coeffs EnergyCoefficients
}

// NewEnergyEstimator creates an energy estimator
func NewEnergyEstimator(coeffs EnergyCoefficients) *EnergyEstimator {
	return &EnergyEstimator{coeffs: coeffs}
}

// Estimate computes the efficiency metrics for q
func (e *EnergyEstimator) Estimate(q models.EnergyQuery) *models.EnergyResult {
	energyType := q.EnergyType.Normalize()

	power := q.EquipmentPowerKw
	if power == 0 {
		power = e.coeffs.DefaultEquipmentPowerKw
	}

	irrigationEnergy := q.IrrigationHours * power
	fertilizerEnergy := q.FertilizerUsageKg * e.coeffs.FertilizerKwhPerKg
	fuelEnergy := q.FuelConsumptionL * e.coeffs.FuelKwhPerLiter
	totalEnergy := irrigationEnergy + fertilizerEnergy + fuelEnergy

	// kg of yield per kWh
	efficiency := 0.0
	if totalEnergy > 0 {
		efficiency = (q.CurrentYieldTonsPerHa * 1000) / totalEnergy
	}

	price := q.ElectricityCostPerKwh
	if price == 0 {
		price = e.coeffs.DefaultElectricityCostPerKwh
	}

	emissionFactor, ok := e.coeffs.EmissionFactors[string(energyType)]
	if !ok {
		emissionFactor = e.coeffs.DefaultEmissionFactor
	}

	return &models.EnergyResult{
		EfficiencyScoreKgPerKwh: efficiency,
		TotalEnergyKwh:          totalEnergy,
		EnergyCost:              totalEnergy * price,
		CO2EmissionsKg:          totalEnergy * emissionFactor,
		SustainabilityRating:    e.rating(energyType, efficiency, q.FertilizerUsageKg),
		Recommendations:         e.recommendations(energyType, efficiency, q),
	}
}

func (e *EnergyEstimator) rating(energyType models.EnergyType, efficiency, fertilizerKg float64) int {
	r := e.coeffs.Rating
	rating := r.Base

	switch energyType {
	case models.EnergySolar, models.EnergyWind:
		rating += r.RenewableBonus
	case models.EnergyHybrid:
		rating += r.HybridBonus
	case models.EnergyDiesel:
		rating -= r.DieselPenalty
	}

	if efficiency > r.EfficiencyBonusAbove {
		rating++
	}
	if fertilizerKg < r.LowFertilizerBelowKg {
		rating++
	}

	return max(r.Min, min(r.Max, rating))
}

func (e *EnergyEstimator) recommendations(energyType models.EnergyType, efficiency float64, q models.EnergyQuery) []string {
	advice := e.coeffs.Advice
	recs := make([]string, 0, 6)

	if energyType == models.EnergyGrid || energyType == models.EnergyDiesel {
		recs = append(recs, AdviceSwitchToRenewables)
	}
	if q.IrrigationHours > advice.IrrigationHoursAbove {
		recs = append(recs, AdvicePrecisionIrrigation)
	}
	if q.FertilizerUsageKg > advice.FertilizerKgAbove {
		recs = append(recs, AdviceSoilTesting)
	}
	if efficiency < advice.EfficiencyBelow {
		recs = append(recs, AdviceUpgradeEquipment)
	}

	recs = append(recs, AdviceOffPeakScheduling)

	if energyType != models.EnergySolar {
		recs = append(recs, AdviceInstallSolar)
	}

	return recs
}

// EstimateEnergyEfficiency computes efficiency metrics with the built-in tables
func EstimateEnergyEfficiency(q models.EnergyQuery) *models.EnergyResult {
	return NewEnergyEstimator(DefaultCoefficients().Energy).Estimate(q)
}
