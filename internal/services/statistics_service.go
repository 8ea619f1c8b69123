package services

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"agri-insights/internal/models"
	"agri-insights/internal/repository"
	"agri-insights/pkg/logging"
)

const statisticsPageSize = 500

// CropStatistics aggregates the prediction history for one crop and season
type CropStatistics struct {
	Crop              models.Crop   `json:"crop"`
	Season            models.Season `json:"season"`
	PredictionCount   int           `json:"prediction_count"`
	AverageYield      float64       `json:"average_yield"`
	MinYield          float64       `json:"min_yield"`
	MaxYield          float64       `json:"max_yield"`
	WithEnergyData    int           `json:"with_energy_data"`
	AverageEfficiency *float64      `json:"average_efficiency,omitempty"`
}

// StatisticsService summarises the prediction history
type StatisticsService struct {
	repo   repository.PredictionRepository
	logger *logging.StructuredLogger
}

// NewStatisticsService creates a new statistics service
func NewStatisticsService(repo repository.PredictionRepository, logger *logging.StructuredLogger) *StatisticsService {
	return &StatisticsService{
		repo:   repo,
		logger: logger,
	}
}

// EachPrediction calls fn for every prediction matching filter, newest first, reading the history page by page.
// filter.Limit and filter.Offset are ignored.
func EachPrediction(ctx context.Context, repo repository.PredictionRepository, filter repository.PredictionFilter, fn func(*models.Prediction) error) error {
	filter.Limit = statisticsPageSize
	filter.Offset = 0

	for {
		page, total, err := repo.ListPredictions(ctx, filter)
		if err != nil {
			return fmt.Errorf("failed to list predictions: %w", err)
		}

		for _, p := range page {
			if err := fn(p); err != nil {
				return err
			}
		}

		filter.Offset += len(page)
		if len(page) == 0 || filter.Offset >= total {
			return nil
		}
	}
}

type statsAccumulator struct {
	stats         CropStatistics
	yieldSum      float64
	efficiencySum float64
}

// CalculateStatistics aggregates predictions matching filter per crop and season, sorted by crop then season
func (s *StatisticsService) CalculateStatistics(ctx context.Context, filter repository.PredictionFilter) ([]*CropStatistics, error) {
	startTime := time.Now()

	groups := map[[2]string]*statsAccumulator{}
	err := EachPrediction(ctx, s.repo, filter, func(p *models.Prediction) error {
		key := [2]string{string(p.Crop), string(p.Season)}
		acc, ok := groups[key]
		if !ok {
			acc = &statsAccumulator{stats: CropStatistics{
				Crop:     p.Crop,
				Season:   p.Season,
				MinYield: math.Inf(1),
				MaxYield: math.Inf(-1),
			}}
			groups[key] = acc
		}

		acc.stats.PredictionCount++
		acc.yieldSum += p.PredictedYield
		acc.stats.MinYield = math.Min(acc.stats.MinYield, p.PredictedYield)
		acc.stats.MaxYield = math.Max(acc.stats.MaxYield, p.PredictedYield)

		if p.EnergyData != nil {
			acc.stats.WithEnergyData++
			acc.efficiencySum += p.EnergyData.EfficiencyScore
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	results := make([]*CropStatistics, 0, len(groups))
	for _, acc := range groups {
		stats := acc.stats
		stats.AverageYield = acc.yieldSum / float64(stats.PredictionCount)
		if stats.WithEnergyData > 0 {
			avg := acc.efficiencySum / float64(stats.WithEnergyData)
			stats.AverageEfficiency = &avg
		}
		results = append(results, &stats)
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Crop != results[j].Crop {
			return results[i].Crop < results[j].Crop
		}
		oi, oj := seasonOrder(results[i].Season), seasonOrder(results[j].Season)
		if oi != oj {
			return oi < oj
		}
		return results[i].Season < results[j].Season
	})

	s.logger.Debug(ctx, "[STATS_CALC_COMPLETE] Prediction statistics calculated", logging.Fields{
		"groups":      len(results),
		"duration_ms": time.Since(startTime).Milliseconds(),
	})

	return results, nil
}

// seasonOrder ranks known seasons in calendar order and unknown ones after them
func seasonOrder(season models.Season) int {
	for i, s := range models.Seasons {
		if s == season {
			return i
		}
	}
	return len(models.Seasons)
}
