package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agri-insights/internal/config"
	"agri-insights/internal/models"
	"agri-insights/pkg/logging"
	"agri-insights/pkg/metrics"
)

func newPrediction(crop models.Crop, season models.Season, yield float64, at time.Time) *models.Prediction {
	return &models.Prediction{
		Crop:           crop,
		Season:         season,
		Location:       "test-field",
		PredictedYield: yield,
		CreatedAt:      at,
		UpdatedAt:      at,
	}
}

func TestMemoryRepository_CreateMakesCurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	_, err := repo.GetCurrentPrediction(ctx)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Equal(t, "current_prediction", nf.Resource)

	first := newPrediction(models.CropCorn, models.SeasonSummer, 9.1, base)
	require.NoError(t, repo.CreatePrediction(ctx, first))
	assert.Equal(t, int64(1), first.ID)
	assert.True(t, first.IsCurrent)

	second := newPrediction(models.CropWheat, models.SeasonSpring, 4.4, base.Add(time.Hour))
	require.NoError(t, repo.CreatePrediction(ctx, second))

	current, err := repo.GetCurrentPrediction(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.ID, current.ID)

	old, err := repo.GetPrediction(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, old.IsCurrent)
}

func TestMemoryRepository_SetCurrentAndEnergyData(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Now().UTC()

	first := newPrediction(models.CropRice, models.SeasonFall, 6.0, base)
	second := newPrediction(models.CropCotton, models.SeasonSummer, 2.2, base.Add(time.Minute))
	require.NoError(t, repo.CreatePrediction(ctx, first))
	require.NoError(t, repo.CreatePrediction(ctx, second))

	_, err := repo.SetCurrentPrediction(ctx, 99)
	assert.Error(t, err)

	current, err := repo.SetCurrentPrediction(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, current.IsCurrent)
	assert.Equal(t, first.ID, current.ID)

	_, err = repo.UpdateEnergyData(ctx, second.ID, &models.EnergySnapshot{EnergyType: models.EnergyWind})
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf), "second is no longer current")

	updated, err := repo.UpdateEnergyData(ctx, first.ID, &models.EnergySnapshot{
		IrrigationHours:   120,
		FertilizerUsageKg: 180,
		EnergyType:        models.EnergySolar,
		EfficiencyScore:   7.5,
	})
	require.NoError(t, err)
	require.NotNil(t, updated.EnergyData)
	assert.Equal(t, first.ID, updated.ID)
	assert.Equal(t, models.EnergySolar, updated.EnergyData.EnergyType)

	untouched, err := repo.GetPrediction(ctx, second.ID)
	require.NoError(t, err)
	assert.Nil(t, untouched.EnergyData)
}

func TestMemoryRepository_UpdateEnergyWithoutCurrent(t *testing.T) {
	repo := NewMemoryRepository()

	_, err := repo.UpdateEnergyData(context.Background(), 1, &models.EnergySnapshot{EnergyType: models.EnergyGrid})
	var nf *NotFoundError
	assert.True(t, errors.As(err, &nf))
	assert.False(t, nf.IsTransient())
}

func TestMemoryRepository_BatchKeepsCurrent(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	now := time.Now().UTC()

	current := newPrediction(models.CropCorn, models.SeasonSummer, 9.0, now)
	require.NoError(t, repo.CreatePrediction(ctx, current))

	batch := []*models.Prediction{
		newPrediction(models.CropBarley, models.SeasonWinter, 3.1, now),
		newPrediction(models.CropBarley, models.SeasonSpring, 4.9, now),
	}
	require.NoError(t, repo.CreatePredictionsBatch(ctx, batch))
	assert.Equal(t, int64(2), batch[0].ID)
	assert.Equal(t, int64(3), batch[1].ID)

	got, err := repo.GetCurrentPrediction(ctx)
	require.NoError(t, err)
	assert.Equal(t, current.ID, got.ID)
}

func TestMemoryRepository_ListPredictions(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	crops := []models.Crop{models.CropCorn, models.CropWheat, models.CropCorn, models.CropCorn, models.CropRice}
	for i, crop := range crops {
		require.NoError(t, repo.CreatePrediction(ctx, newPrediction(crop, models.SeasonSummer, float64(i+1), base.Add(time.Duration(i)*time.Hour))))
	}

	all, total, err := repo.ListPredictions(ctx, PredictionFilter{Limit: 100})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, all, 5)
	assert.Equal(t, int64(5), all[0].ID, "newest first")
	assert.True(t, all[0].IsCurrent)

	corn := "Corn"
	page, total, err := repo.ListPredictions(ctx, PredictionFilter{Crop: &corn, Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, page, 2)
	assert.Equal(t, int64(3), page[0].ID)
	assert.Equal(t, int64(1), page[1].ID)

	winter := "Winter"
	none, total, err := repo.ListPredictions(ctx, PredictionFilter{Season: &winter, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, 0, total)
	assert.Empty(t, none)

	beyond, _, err := repo.ListPredictions(ctx, PredictionFilter{Limit: 10, Offset: 50})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()

	p := newPrediction(models.CropSoybeans, models.SeasonSummer, 3.0, time.Now())
	require.NoError(t, repo.CreatePrediction(ctx, p))

	got, err := repo.GetPrediction(ctx, p.ID)
	require.NoError(t, err)
	got.PredictedYield = 100

	again, err := repo.GetPrediction(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 3.0, again.PredictedYield)
}

func TestPredictionRow_ToModel(t *testing.T) {
	row := predictionRow{Prediction: models.Prediction{ID: 4, Crop: models.CropCorn}}
	assert.Nil(t, row.toModel().EnergyData)

	row.EnergyType.String, row.EnergyType.Valid = "wind", true
	row.EnergyIrrigationHours.Float64, row.EnergyIrrigationHours.Valid = 80, true
	row.EnergyEfficiencyScore.Float64, row.EnergyEfficiencyScore.Valid = 6.5, true

	p := row.toModel()
	require.NotNil(t, p.EnergyData)
	assert.Equal(t, models.EnergyWind, p.EnergyData.EnergyType)
	assert.Equal(t, 80.0, p.EnergyData.IrrigationHours)
	assert.Equal(t, 6.5, p.EnergyData.EfficiencyScore)
	assert.Equal(t, int64(4), p.ID)
}

func TestOpen_Memory(t *testing.T) {
	logger := logging.NewStructuredLogger("agri-test", "test", logging.ErrorLevel)
	cfg := &config.Config{Storage: config.StorageConfig{Driver: config.StorageDriverMemory}}

	repo, closeFn, err := Open(cfg, logger, metrics.NewCollector("agri_test", prometheus.NewRegistry()))
	require.NoError(t, err)
	assert.NoError(t, repo.HealthCheck(context.Background()))
	assert.NoError(t, closeFn())

	cfg.Storage.Driver = "sqlite"
	_, _, err = Open(cfg, logger, metrics.NewCollector("agri_test", prometheus.NewRegistry()))
	assert.Error(t, err)
}
