package repository

import (
	"context"
	"fmt"

	"agri-insights/internal/models"
)

// PredictionRepository stores the prediction history.
// At most one prediction is current; CreatePrediction and SetCurrentPrediction move the marker.
type PredictionRepository interface {
	// Prediction operations
	CreatePrediction(ctx context.Context, p *models.Prediction) error
	CreatePredictionsBatch(ctx context.Context, predictions []*models.Prediction) error
	GetPrediction(ctx context.Context, id int64) (*models.Prediction, error)
	ListPredictions(ctx context.Context, filter PredictionFilter) ([]*models.Prediction, int, error)

	// Current prediction operations
	GetCurrentPrediction(ctx context.Context) (*models.Prediction, error)
	SetCurrentPrediction(ctx context.Context, id int64) (*models.Prediction, error)
	// UpdateEnergyData attaches snapshot to prediction id while it is current
	UpdateEnergyData(ctx context.Context, id int64, snapshot *models.EnergySnapshot) (*models.Prediction, error)

	// Utility operations
	HealthCheck(ctx context.Context) error
}

// PredictionFilter defines filters for listing predictions, newest first
type PredictionFilter struct {
	Crop   *string
	Season *string
	Limit  int
	Offset int
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s not found", e.Resource)
	}
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}

func errNoCurrent() error {
	return &NotFoundError{Resource: "current_prediction"}
}

func errNotCurrent(id int64) error {
	return &NotFoundError{Resource: "current_prediction", ID: fmt.Sprintf("%d", id)}
}

func errPredictionNotFound(id int64) error {
	return &NotFoundError{Resource: "prediction", ID: fmt.Sprintf("%d", id)}
}
