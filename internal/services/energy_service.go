package services

import (
	"context"
	"errors"
	"time"

	"agri-insights/internal/estimator"
	"agri-insights/internal/influxdb"
	"agri-insights/internal/models"
	"agri-insights/internal/repository"
	"agri-insights/pkg/logging"
	"agri-insights/pkg/metrics"
)

// FallbackYieldTonsPerHa is used when a calculation names no yield and no prediction is current
const FallbackYieldTonsPerHa = 5.5

const sinkInfluxDB = "influxdb"

// EnergyCalculation is the outcome of an energy efficiency calculation
type EnergyCalculation struct {
	Query  models.EnergyQuery   `json:"query"`
	Result *models.EnergyResult `json:"result"`
	// Prediction is the current prediction after its energy data was updated, nil when none is current
	Prediction *models.Prediction `json:"prediction,omitempty"`
}

// EnergyService runs energy efficiency estimates against the current prediction
type EnergyService struct {
	repo      repository.PredictionRepository
	estimator *estimator.EnergyEstimator
	writer    influxdb.AssessmentWriter
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewEnergyService creates a new energy service. A nil writer disables time series recording.
func NewEnergyService(
	repo repository.PredictionRepository,
	energyEstimator *estimator.EnergyEstimator,
	writer influxdb.AssessmentWriter,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *EnergyService {
	return &EnergyService{
		repo:      repo,
		estimator: energyEstimator,
		writer:    writer,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// Calculate estimates energy efficiency for req.
// Without an explicit yield the current prediction's yield is used, else FallbackYieldTonsPerHa.
// When a prediction is current its energy snapshot is replaced with this calculation.
func (s *EnergyService) Calculate(ctx context.Context, req *models.EnergyRequest) (*EnergyCalculation, error) {
	current, err := s.repo.GetCurrentPrediction(ctx)
	var notFound *repository.NotFoundError
	if err != nil && !errors.As(err, &notFound) {
		return nil, err
	}

	fallback := FallbackYieldTonsPerHa
	if current != nil {
		fallback = current.PredictedYield
	}

	q := req.ToQuery(fallback)
	q.EnergyType = q.EnergyType.Normalize()
	if err := q.Validate(); err != nil {
		return nil, err
	}

	result := s.estimator.Estimate(q)
	s.metrics.RecordEnergyCalculation(string(q.EnergyType), result.SustainabilityRating)

	calc := &EnergyCalculation{Query: q, Result: result}

	if current != nil {
		updated, err := s.repo.UpdateEnergyData(ctx, current.ID, &models.EnergySnapshot{
			IrrigationHours:   q.IrrigationHours,
			FertilizerUsageKg: q.FertilizerUsageKg,
			EnergyType:        q.EnergyType,
			EfficiencyScore:   result.EfficiencyScoreKgPerKwh,
		})
		switch {
		case errors.As(err, &notFound):
			// the current prediction was replaced concurrently; its snapshot is left alone
		case err != nil:
			return nil, err
		default:
			calc.Prediction = updated
		}
	}

	s.logger.Info(ctx, "[ENERGY_CALC] Energy efficiency calculated", logging.Fields{
		"energy_type":           q.EnergyType,
		"total_energy_kwh":      result.TotalEnergyKwh,
		"efficiency_kg_per_kwh": result.EfficiencyScoreKgPerKwh,
		"sustainability_rating": result.SustainabilityRating,
		"yield_tons_per_ha":     q.CurrentYieldTonsPerHa,
	})

	s.record(ctx, calc)

	return calc, nil
}

func (s *EnergyService) record(ctx context.Context, calc *EnergyCalculation) {
	if s.writer == nil {
		return
	}

	assessment := &influxdb.EnergyAssessment{
		Query:     calc.Query,
		Result:    calc.Result,
		Timestamp: time.Now().UTC(),
	}
	if calc.Prediction != nil {
		assessment.Crop = calc.Prediction.Crop
		assessment.PredictionID = calc.Prediction.ID
	}

	if err := s.writer.WriteAssessment(ctx, assessment); err != nil {
		s.metrics.RecordSinkError(sinkInfluxDB)
		s.logger.Error(ctx, "[ENERGY_RECORD_ERROR] Failed to record energy assessment", logging.Fields{
			"energy_type": calc.Query.EnergyType,
		}, err)
		return
	}

	s.metrics.RecordSinkWrite(sinkInfluxDB)
}
