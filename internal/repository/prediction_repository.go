package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"agri-insights/internal/models"
	"agri-insights/pkg/database"
	"agri-insights/pkg/logging"
	"agri-insights/pkg/metrics"
)

// currentMarkerLockKey names the advisory lock held by every transaction that moves the current marker.
// Without it two READ COMMITTED writers can both insert a current row and hit idx_yield_predictions_single_current.
const currentMarkerLockKey int64 = 0x6167726963757272

const predictionColumns = `
	id, crop, location, season, soil_type, rainfall_mm, temperature_c, predicted_yield,
	energy_irrigation_hours, energy_fertilizer_usage_kg, energy_type, energy_efficiency_score,
	is_current, created_at, updated_at
`

// predictionRow is the flat table layout; the energy columns are NULL until a calculation is attached
type predictionRow struct {
	models.Prediction
	EnergyIrrigationHours   sql.NullFloat64 `db:"energy_irrigation_hours"`
	EnergyFertilizerUsageKg sql.NullFloat64 `db:"energy_fertilizer_usage_kg"`
	EnergyType              sql.NullString  `db:"energy_type"`
	EnergyEfficiencyScore   sql.NullFloat64 `db:"energy_efficiency_score"`
}

func (r *predictionRow) toModel() *models.Prediction {
	p := r.Prediction
	if r.EnergyType.Valid {
		p.EnergyData = &models.EnergySnapshot{
			IrrigationHours:   r.EnergyIrrigationHours.Float64,
			FertilizerUsageKg: r.EnergyFertilizerUsageKg.Float64,
			EnergyType:        models.EnergyType(r.EnergyType.String),
			EfficiencyScore:   r.EnergyEfficiencyScore.Float64,
		}
	}
	return &p
}

func lockCurrentMarker(ctx context.Context, tx *sqlx.Tx) error {
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, currentMarkerLockKey); err != nil {
		return fmt.Errorf("failed to lock current prediction marker: %w", err)
	}
	return nil
}

// predictionRepository implements PredictionRepository on PostgreSQL
type predictionRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewPredictionRepository creates a new PostgreSQL prediction repository
func NewPredictionRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) PredictionRepository {
	return &predictionRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// CreatePrediction inserts p, makes it the current prediction and sets p.ID
func (r *predictionRepository) CreatePrediction(ctx context.Context, p *models.Prediction) error {
	err := r.db.WithTx(ctx, "insert_prediction", func(tx *sqlx.Tx) error {
		if err := lockCurrentMarker(ctx, tx); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE yield_predictions SET is_current = FALSE, updated_at = $1 WHERE is_current`,
			p.CreatedAt,
		); err != nil {
			return fmt.Errorf("failed to clear current prediction: %w", err)
		}

		p.IsCurrent = true
		return tx.QueryRowxContext(ctx, `
			INSERT INTO yield_predictions (
				crop, location, season, soil_type, rainfall_mm, temperature_c,
				predicted_yield, is_current, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $9)
			RETURNING id
		`,
			p.Crop, p.Location, p.Season, p.SoilType, p.RainfallMm, p.TemperatureC,
			p.PredictedYield, p.CreatedAt, p.UpdatedAt,
		).Scan(&p.ID)
	})
	if err != nil {
		p.IsCurrent = false
		return fmt.Errorf("failed to create prediction: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_CREATE_PREDICTION] Prediction created", logging.Fields{
		"prediction_id": p.ID,
		"crop":          p.Crop,
		"season":        p.Season,
	})

	return nil
}

// CreatePredictionsBatch inserts predictions in a single transaction without touching the current marker
func (r *predictionRepository) CreatePredictionsBatch(ctx context.Context, predictions []*models.Prediction) error {
	if len(predictions) == 0 {
		return nil
	}

	timer := time.Now()
	defer func() {
		r.metrics.IngestionBatchSize.Observe(float64(len(predictions)))
		r.logger.Debug(ctx, "[REPO_BATCH_INSERT] Batch insert completed", logging.Fields{
			"count":       len(predictions),
			"duration_ms": time.Since(timer).Milliseconds(),
		})
	}()

	err := r.db.WithTx(ctx, "insert_predictions_batch", func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, `
			INSERT INTO yield_predictions (
				crop, location, season, soil_type, rainfall_mm, temperature_c,
				predicted_yield, is_current, created_at, updated_at
			)
			VALUES ($1, $2, $3, $4, $5, $6, $7, FALSE, $8, $9)
			RETURNING id
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, p := range predictions {
			if err := stmt.QueryRowxContext(ctx,
				p.Crop, p.Location, p.Season, p.SoilType, p.RainfallMm, p.TemperatureC,
				p.PredictedYield, p.CreatedAt, p.UpdatedAt,
			).Scan(&p.ID); err != nil {
				return fmt.Errorf("failed to insert prediction: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.metrics.IngestionRecordsTotal.Add(float64(len(predictions)))

	return nil
}

// GetPrediction retrieves a prediction by ID
func (r *predictionRepository) GetPrediction(ctx context.Context, id int64) (*models.Prediction, error) {
	var row predictionRow
	err := r.db.GetContext(ctx, "get_prediction", &row,
		`SELECT `+predictionColumns+` FROM yield_predictions WHERE id = $1`, id)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errPredictionNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get prediction: %w", err)
	}

	return row.toModel(), nil
}

// ListPredictions retrieves predictions with filtering and pagination
func (r *predictionRepository) ListPredictions(ctx context.Context, filter PredictionFilter) ([]*models.Prediction, int, error) {
	where := " WHERE 1=1"
	args := []interface{}{}
	argNum := 1

	if filter.Crop != nil {
		where += fmt.Sprintf(" AND crop = $%d", argNum)
		args = append(args, *filter.Crop)
		argNum++
	}

	if filter.Season != nil {
		where += fmt.Sprintf(" AND season = $%d", argNum)
		args = append(args, *filter.Season)
		argNum++
	}

	var total int
	if err := r.db.GetContext(ctx, "count_predictions", &total,
		`SELECT COUNT(*) FROM yield_predictions`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count predictions: %w", err)
	}

	query := `SELECT ` + predictionColumns + ` FROM yield_predictions` + where +
		fmt.Sprintf(" ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var rows []predictionRow
	if err := r.db.SelectContext(ctx, "list_predictions", &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list predictions: %w", err)
	}

	predictions := make([]*models.Prediction, 0, len(rows))
	for i := range rows {
		predictions = append(predictions, rows[i].toModel())
	}

	return predictions, total, nil
}

// GetCurrentPrediction retrieves the current prediction
func (r *predictionRepository) GetCurrentPrediction(ctx context.Context) (*models.Prediction, error) {
	var row predictionRow
	err := r.db.GetContext(ctx, "get_current_prediction", &row,
		`SELECT `+predictionColumns+` FROM yield_predictions WHERE is_current`)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNoCurrent()
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current prediction: %w", err)
	}

	return row.toModel(), nil
}

// SetCurrentPrediction marks prediction id as current
func (r *predictionRepository) SetCurrentPrediction(ctx context.Context, id int64) (*models.Prediction, error) {
	var row predictionRow
	now := time.Now().UTC()

	err := r.db.WithTx(ctx, "set_current_prediction", func(tx *sqlx.Tx) error {
		if err := lockCurrentMarker(ctx, tx); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE yield_predictions SET is_current = FALSE, updated_at = $1 WHERE is_current AND id <> $2`,
			now, id,
		); err != nil {
			return fmt.Errorf("failed to clear current prediction: %w", err)
		}

		return tx.GetContext(ctx, &row, `
			UPDATE yield_predictions SET is_current = TRUE, updated_at = $1
			WHERE id = $2
			RETURNING `+predictionColumns,
			now, id,
		)
	})

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errPredictionNotFound(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to set current prediction: %w", err)
	}

	return row.toModel(), nil
}

// UpdateEnergyData attaches snapshot to prediction id if it is still the current prediction
func (r *predictionRepository) UpdateEnergyData(ctx context.Context, id int64, snapshot *models.EnergySnapshot) (*models.Prediction, error) {
	var row predictionRow
	err := r.db.GetContext(ctx, "update_energy_data", &row, `
		UPDATE yield_predictions SET
			energy_irrigation_hours = $1,
			energy_fertilizer_usage_kg = $2,
			energy_type = $3,
			energy_efficiency_score = $4,
			updated_at = $5
		WHERE id = $6 AND is_current
		RETURNING `+predictionColumns,
		snapshot.IrrigationHours,
		snapshot.FertilizerUsageKg,
		string(snapshot.EnergyType),
		snapshot.EfficiencyScore,
		time.Now().UTC(),
		id,
	)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, errNotCurrent(id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update energy data: %w", err)
	}

	return row.toModel(), nil
}

// HealthCheck performs a repository health check
func (r *predictionRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}
