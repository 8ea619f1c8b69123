package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"agri-insights/internal/config"
	"agri-insights/internal/estimator"
	"agri-insights/internal/repository"
	"agri-insights/internal/services"
	"agri-insights/pkg/logging"
	"agri-insights/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Parse command-line flags
	dataDir := flag.String("data-dir", "./field_data", "Directory containing field record files")
	batchSize := flag.Int("batch-size", 1000, "Number of records to insert in each batch")
	summary := flag.Bool("summary", false, "Print per-crop statistics after ingestion")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("agri-ingester", version, logging.ParseLevel(cfg.Logging.Level))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "[INGESTER_START] Starting field record ingestion", logging.Fields{
		"version":    version,
		"data_dir":   *dataDir,
		"batch_size": *batchSize,
		"summary":    *summary,
	})

	metricsCollector := metrics.NewCollector("agri_ingester", prometheus.NewRegistry())

	coeffs, err := estimator.LoadCoefficients(cfg.Estimator.CoefficientsPath)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to load coefficients", logging.Fields{}, err)
	}

	var rng estimator.RandomSource
	if cfg.Estimator.RandomSeed != 0 {
		rng = estimator.NewSeededSource(cfg.Estimator.RandomSeed)
	}

	predictionRepo, closeRepo, err := repository.Open(cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to open prediction repository", logging.Fields{}, err)
	}
	defer closeRepo()

	ingestionService := services.NewIngestionService(predictionRepo, estimator.NewYieldEstimator(coeffs.Yield, rng), logger, metricsCollector)

	result, err := ingestionService.IngestDirectory(ctx, *dataDir, *batchSize)
	if err != nil {
		logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{}, err)
	}

	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Files:        %d\n", result.TotalFiles)
	fmt.Printf("Total Records:      %d\n", result.TotalRecords)
	fmt.Printf("Successful Records: %d\n", result.SuccessfulRecords)
	fmt.Printf("Failed Records:     %d\n", result.FailedRecords)
	fmt.Printf("Duration:           %v\n", result.Duration)

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
	}

	if *summary {
		fmt.Println("\n" + strings.Repeat("=", 80))
		fmt.Println("PREDICTION SUMMARY")
		fmt.Println(strings.Repeat("=", 80))

		stats, err := services.NewStatisticsService(predictionRepo, logger).CalculateStatistics(ctx, repository.PredictionFilter{})
		if err != nil {
			logger.Error(ctx, "[STATS_ERROR] Statistics calculation failed", logging.Fields{}, err)
			fmt.Printf("Statistics calculation failed: %v\n", err)
		} else {
			fmt.Printf("%-12s %-8s %8s %10s %10s %10s\n", "CROP", "SEASON", "COUNT", "AVG t/ha", "MIN", "MAX")
			for _, st := range stats {
				fmt.Printf("%-12s %-8s %8d %10.2f %10.2f %10.2f\n",
					st.Crop, st.Season, st.PredictionCount, st.AverageYield, st.MinYield, st.MaxYield)
			}
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed", logging.Fields{
		"total_records":      result.TotalRecords,
		"successful_records": result.SuccessfulRecords,
		"failed_records":     result.FailedRecords,
		"duration_seconds":   result.Duration.Seconds(),
	})
}
