package services

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/xuri/excelize/v2"

	"agri-insights/internal/models"
	"agri-insights/internal/repository"
	"agri-insights/pkg/logging"
)

const (
	sheetPredictions = "Predictions"
	sheetSummary     = "Summary"
)

var predictionHeaders = []interface{}{
	"ID", "Crop", "Location", "Season", "Soil Type", "Rainfall (mm)", "Temperature (°C)",
	"Predicted Yield (t/ha)", "Current", "Energy Type", "Irrigation Hours",
	"Fertilizer (kg)", "Efficiency (kg/kWh)", "Created At",
}

var summaryHeaders = []interface{}{
	"Crop", "Season", "Predictions", "Average Yield", "Min Yield", "Max Yield",
	"With Energy Data", "Average Efficiency",
}

// ExportService renders the prediction history as an XLSX workbook
type ExportService struct {
	repo   repository.PredictionRepository
	stats  *StatisticsService
	logger *logging.StructuredLogger
}

// NewExportService creates a new export service
func NewExportService(repo repository.PredictionRepository, stats *StatisticsService, logger *logging.StructuredLogger) *ExportService {
	return &ExportService{
		repo:   repo,
		stats:  stats,
		logger: logger,
	}
}

// ExportPredictions writes a workbook with every prediction matching filter and a per-crop summary sheet
func (s *ExportService) ExportPredictions(ctx context.Context, w io.Writer, filter repository.PredictionFilter) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetPredictions); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}

	if err := writeHeader(f, sheetPredictions, predictionHeaders, bold); err != nil {
		return err
	}

	row := 2
	err = EachPrediction(ctx, s.repo, filter, func(p *models.Prediction) error {
		if err := writeRow(f, sheetPredictions, row, predictionRow(p)); err != nil {
			return err
		}
		row++
		return nil
	})
	if err != nil {
		return err
	}

	stats, err := s.stats.CalculateStatistics(ctx, filter)
	if err != nil {
		return err
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeHeader(f, sheetSummary, summaryHeaders, bold); err != nil {
		return err
	}
	for i, st := range stats {
		if err := writeRow(f, sheetSummary, i+2, summaryRow(st)); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}

	s.logger.Info(ctx, "[EXPORT_COMPLETE] Prediction workbook exported", logging.Fields{
		"predictions": row - 2,
		"groups":      len(stats),
	})

	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []interface{}, style int) error {
	if err := f.SetSheetRow(sheet, "A1", &headers); err != nil {
		return fmt.Errorf("failed to write %s header: %w", sheet, err)
	}

	last, err := excelize.CoordinatesToCellName(len(headers), 1)
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last, style); err != nil {
		return fmt.Errorf("failed to style %s header: %w", sheet, err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write %s row %d: %w", sheet, row, err)
	}
	return nil
}

// optional renders a missing value as an empty cell
func optional(v *float64) interface{} {
	if v == nil {
		return ""
	}
	return *v
}

func predictionRow(p *models.Prediction) []interface{} {
	values := []interface{}{
		p.ID, string(p.Crop), p.Location, string(p.Season), string(p.SoilType),
		optional(p.RainfallMm), optional(p.TemperatureC), p.PredictedYield, strconv.FormatBool(p.IsCurrent),
	}

	if p.EnergyData != nil {
		values = append(values,
			string(p.EnergyData.EnergyType),
			p.EnergyData.IrrigationHours,
			p.EnergyData.FertilizerUsageKg,
			p.EnergyData.EfficiencyScore,
		)
	} else {
		values = append(values, "", "", "", "")
	}

	return append(values, p.CreatedAt.UTC().Format(time.RFC3339))
}

func summaryRow(st *CropStatistics) []interface{} {
	return []interface{}{
		string(st.Crop), string(st.Season), st.PredictionCount,
		st.AverageYield, st.MinYield, st.MaxYield,
		st.WithEnergyData, optional(st.AverageEfficiency),
	}
}
