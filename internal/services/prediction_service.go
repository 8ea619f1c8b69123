package services

import (
	"context"
	"time"

	"agri-insights/internal/estimator"
	"agri-insights/internal/events"
	"agri-insights/internal/models"
	"agri-insights/internal/repository"
	"agri-insights/pkg/logging"
	"agri-insights/pkg/metrics"
)

const sinkKafka = "kafka"

// PredictionService runs yield estimates and manages the prediction history
type PredictionService struct {
	repo      repository.PredictionRepository
	estimator *estimator.YieldEstimator
	publisher events.Publisher
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// NewPredictionService creates a new prediction service. A nil publisher disables event publishing.
func NewPredictionService(
	repo repository.PredictionRepository,
	yieldEstimator *estimator.YieldEstimator,
	publisher events.Publisher,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *PredictionService {
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	return &PredictionService{
		repo:      repo,
		estimator: yieldEstimator,
		publisher: publisher,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// Predict estimates the yield for q, stores it as the current prediction and publishes an event.
// A failed publish is logged and counted but does not fail the prediction.
func (s *PredictionService) Predict(ctx context.Context, q models.YieldQuery) (*models.Prediction, *models.YieldPrediction, error) {
	if err := q.Validate(); err != nil {
		return nil, nil, err
	}

	estimate := s.estimator.Predict(q)
	s.metrics.RecordYieldPrediction(string(q.Crop), string(q.Season), estimate.YieldTonsPerHa)

	prediction := models.NewPrediction(estimate)
	if err := s.repo.CreatePrediction(ctx, prediction); err != nil {
		return nil, nil, err
	}

	s.logger.Info(ctx, "[PREDICT] Yield prediction stored", logging.Fields{
		"prediction_id":     prediction.ID,
		"crop":              prediction.Crop,
		"season":            prediction.Season,
		"soil_type":         prediction.SoilType,
		"yield_tons_per_ha": prediction.PredictedYield,
	})

	s.publish(ctx, prediction)

	return prediction, estimate, nil
}

func (s *PredictionService) publish(ctx context.Context, prediction *models.Prediction) {
	start := time.Now()
	event := events.NewPredictionEvent(prediction, logging.RequestIDFromContext(ctx))

	if err := s.publisher.PublishPrediction(ctx, event); err != nil {
		s.metrics.RecordSinkError(sinkKafka)
		s.logger.Error(ctx, "[PREDICT_PUBLISH_ERROR] Failed to publish prediction event", logging.Fields{
			"prediction_id": prediction.ID,
		}, err)
		return
	}

	s.metrics.RecordSinkWrite(sinkKafka)
	s.logger.Debug(ctx, "[PREDICT_PUBLISH] Prediction event published", logging.Fields{
		"prediction_id": prediction.ID,
		"duration_ms":   time.Since(start).Milliseconds(),
	})
}

// ListPredictions retrieves predictions with filtering
func (s *PredictionService) ListPredictions(ctx context.Context, filter repository.PredictionFilter) ([]*models.Prediction, int, error) {
	return s.repo.ListPredictions(ctx, filter)
}

// GetPrediction retrieves a single prediction
func (s *PredictionService) GetPrediction(ctx context.Context, id int64) (*models.Prediction, error) {
	return s.repo.GetPrediction(ctx, id)
}

// CurrentPrediction returns the prediction later calculations refer to
func (s *PredictionService) CurrentPrediction(ctx context.Context) (*models.Prediction, error) {
	return s.repo.GetCurrentPrediction(ctx)
}

// SetCurrentPrediction makes an earlier prediction current again
func (s *PredictionService) SetCurrentPrediction(ctx context.Context, id int64) (*models.Prediction, error) {
	prediction, err := s.repo.SetCurrentPrediction(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "[PREDICT_SET_CURRENT] Current prediction changed", logging.Fields{
		"prediction_id": id,
	})

	return prediction, nil
}

// HealthCheck checks the history backend
func (s *PredictionService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
