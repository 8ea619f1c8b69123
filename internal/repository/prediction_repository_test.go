package repository

import (
	"context"
	"errors"
	"io"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agri-insights/internal/models"
	"agri-insights/pkg/database"
	"agri-insights/pkg/logging"
	"agri-insights/pkg/metrics"
)

func newMockRepository(t *testing.T) (PredictionRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := logging.NewStructuredLogger("agri-test", "test", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("agri_test", prometheus.NewRegistry())

	pg := database.NewPostgresDBFromConn(sqlx.NewDb(db, "postgres"), &database.Config{Database: "agri_test"}, logger, collector)
	t.Cleanup(func() {
		mock.ExpectClose()
		assert.NoError(t, pg.Close())
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	return NewPredictionRepository(pg, logger, collector), mock
}

func expectCurrentMarkerLock(mock sqlmock.Sqlmock) *sqlmock.ExpectedExec {
	return mock.ExpectExec(regexp.QuoteMeta("SELECT pg_advisory_xact_lock($1)")).
		WithArgs(currentMarkerLockKey)
}

func TestPredictionRepository_CreateLocksCurrentMarker(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	expectCurrentMarkerLock(mock).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE yield_predictions SET is_current = FALSE")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO yield_predictions")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	p := newPrediction(models.CropCorn, models.SeasonSummer, 9.1, time.Now().UTC())
	require.NoError(t, repo.CreatePrediction(context.Background(), p))
	assert.Equal(t, int64(42), p.ID)
	assert.True(t, p.IsCurrent)
}

func TestPredictionRepository_CreateFailsWhenLockFails(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	expectCurrentMarkerLock(mock).WillReturnError(errors.New("canceling statement due to lock timeout"))
	mock.ExpectRollback()

	p := newPrediction(models.CropWheat, models.SeasonSpring, 4.5, time.Now().UTC())
	err := repo.CreatePrediction(context.Background(), p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to lock current prediction marker")
	assert.False(t, p.IsCurrent)
}

func TestPredictionRepository_SetCurrentLocksCurrentMarker(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectBegin()
	expectCurrentMarkerLock(mock).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("UPDATE yield_predictions SET is_current = FALSE")).
		WithArgs(sqlmock.AnyArg(), int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("UPDATE yield_predictions SET is_current = TRUE")).
		WithArgs(sqlmock.AnyArg(), int64(7)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	_, err := repo.SetCurrentPrediction(context.Background(), 7)
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, "prediction", nf.Resource)
	assert.Equal(t, "7", nf.ID)
}

func TestPredictionRepository_UpdateEnergyDataRequiresCurrentID(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE id = $6 AND is_current")).
		WithArgs(120.0, 180.0, "solar", 7.5, sqlmock.AnyArg(), int64(9)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.UpdateEnergyData(context.Background(), 9, &models.EnergySnapshot{
		IrrigationHours:   120,
		FertilizerUsageKg: 180,
		EnergyType:        models.EnergySolar,
		EfficiencyScore:   7.5,
	})
	var nf *NotFoundError
	require.True(t, errors.As(err, &nf), "got %v", err)
	assert.Equal(t, "current_prediction", nf.Resource)
	assert.Equal(t, "9", nf.ID)
}
