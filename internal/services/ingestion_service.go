package services

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"agri-insights/internal/estimator"
	"agri-insights/internal/models"
	"agri-insights/internal/repository"
	"agri-insights/pkg/logging"
	"agri-insights/pkg/metrics"
)

// IngestionService estimates yields for batch files of field records and stores them in the history
type IngestionService struct {
	repo      repository.PredictionRepository
	estimator *estimator.YieldEstimator
	logger    *logging.StructuredLogger
	metrics   *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalFiles        int
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
	Duration          time.Duration
	Errors            []string
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.PredictionRepository, yieldEstimator *estimator.YieldEstimator, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:      repo,
		estimator: yieldEstimator,
		logger:    logger,
		metrics:   metricsCollector,
	}
}

// IngestDirectory ingests all field record files from a directory.
// Each *.txt file names a location; ingested predictions never become current.
func (s *IngestionService) IngestDirectory(ctx context.Context, dataDir string, batchSize int) (*IngestionResult, error) {
	startTime := time.Now()

	if batchSize <= 0 {
		return nil, fmt.Errorf("batch size must be positive, got %d", batchSize)
	}

	s.logger.Info(ctx, "[INGEST_START] Starting field record ingestion", logging.Fields{
		"data_dir":   dataDir,
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	result := &IngestionResult{
		Errors: make([]string, 0),
	}

	files, err := filepath.Glob(filepath.Join(dataDir, "*.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to read directory: %w", err)
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("no data files found in %s", dataDir)
	}

	result.TotalFiles = len(files)

	s.logger.Info(ctx, "[INGEST_FILES] Found data files", logging.Fields{
		"file_count": len(files),
		"stage":      "FILE_DISCOVERY",
	})

	for _, filePath := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fileResult, err := s.ingestFile(ctx, filePath, batchSize)
		if fileResult != nil {
			result.TotalRecords += fileResult.TotalRecords
			result.SuccessfulRecords += fileResult.SuccessfulRecords
			result.FailedRecords += fileResult.FailedRecords
		}
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to ingest %s: %v", filePath, err))
			s.logger.Error(ctx, "[INGEST_FILE_ERROR] File ingestion failed", logging.Fields{
				"file_path": filePath,
				"stage":     "FILE_PROCESSING",
			}, err)
			s.metrics.RecordIngestionError("file_error")
			continue
		}

		s.logger.Info(ctx, "[INGEST_FILE_SUCCESS] File ingested successfully", logging.Fields{
			"file_path":          filePath,
			"total_records":      fileResult.TotalRecords,
			"successful_records": fileResult.SuccessfulRecords,
			"failed_records":     fileResult.FailedRecords,
			"stage":              "FILE_COMPLETE",
		})
	}

	result.Duration = time.Since(startTime)
	s.metrics.IngestionDuration.Observe(result.Duration.Seconds())

	s.logger.Info(ctx, "[INGEST_COMPLETE] Field record ingestion completed", logging.Fields{
		"total_files":        result.TotalFiles,
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
		"error_count":        len(result.Errors),
		"stage":              "COMPLETE",
	})

	return result, nil
}

// FileIngestionResult contains per-file ingestion statistics
type FileIngestionResult struct {
	TotalRecords      int
	SuccessfulRecords int
	FailedRecords     int
}

// ingestFile ingests a single field record file. Records from batches stored before an error are kept.
func (s *IngestionService) ingestFile(ctx context.Context, filePath string, batchSize int) (*FileIngestionResult, error) {
	fileName := filepath.Base(filePath)
	location := strings.TrimSuffix(fileName, filepath.Ext(fileName))

	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	result := &FileIngestionResult{}
	batch := make([]*models.Prediction, 0, batchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := s.repo.CreatePredictionsBatch(ctx, batch); err != nil {
			s.metrics.RecordIngestionError("insert_error")
			return fmt.Errorf("failed to insert batch: %w", err)
		}
		result.SuccessfulRecords += len(batch)
		batch = batch[:0]
		return nil
	}

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := scanner.Text()
		if trimmed := strings.TrimSpace(line); trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		result.TotalRecords++

		record, err := parseLine(line)
		if err != nil {
			result.FailedRecords++
			s.metrics.RecordIngestionError("parse_error")
			continue
		}

		query, err := record.ToYieldQuery(location)
		if err != nil {
			result.FailedRecords++
			s.metrics.RecordIngestionError("conversion_error")
			continue
		}

		estimate := s.estimator.Predict(*query)
		s.metrics.RecordYieldPrediction(string(query.Crop), string(query.Season), estimate.YieldTonsPerHa)
		batch = append(batch, models.NewPrediction(estimate))

		if len(batch) >= batchSize {
			if err := flush(); err != nil {
				return result, err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return result, fmt.Errorf("error reading file: %w", err)
	}

	if err := flush(); err != nil {
		return result, err
	}

	return result, nil
}

// parseLine parses a single line from a field record file
// Format: CROP\tSEASON\tSOIL\tRAINFALL_MM\tTEMPERATURE_C
func parseLine(line string) (*models.RawFieldRecord, error) {
	parts := strings.Split(line, "\t")
	if len(parts) != 5 {
		return nil, fmt.Errorf("invalid line format: expected 5 fields, got %d", len(parts))
	}

	rainfall, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid rainfall: %w", err)
	}
	if !models.IsFinite(rainfall) {
		return nil, fmt.Errorf("invalid rainfall: %q is not a finite number", parts[3])
	}

	temperature, err := strconv.ParseFloat(strings.TrimSpace(parts[4]), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid temperature: %w", err)
	}
	if !models.IsFinite(temperature) {
		return nil, fmt.Errorf("invalid temperature: %q is not a finite number", parts[4])
	}

	return &models.RawFieldRecord{
		Crop:         strings.TrimSpace(parts[0]),
		Season:       strings.TrimSpace(parts[1]),
		Soil:         strings.TrimSpace(parts[2]),
		RainfallMm:   rainfall,
		TemperatureC: temperature,
	}, nil
}
