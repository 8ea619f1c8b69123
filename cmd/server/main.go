package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"agri-insights/internal/config"
	"agri-insights/internal/estimator"
	"agri-insights/internal/events"
	"agri-insights/internal/handlers"
	"agri-insights/internal/influxdb"
	"agri-insights/internal/repository"
	"agri-insights/internal/services"
	"agri-insights/pkg/logging"
	"agri-insights/pkg/metrics"
)

const version = "1.0.0"

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("agri-api", version, logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[STARTUP] Starting agri insights API server", logging.Fields{
		"version":        version,
		"server_host":    cfg.Server.Host,
		"server_port":    cfg.Server.Port,
		"storage_driver": cfg.Storage.Driver,
		"kafka_enabled":  cfg.Kafka.Enabled,
		"influx_enabled": cfg.InfluxDB.Enabled,
	})

	metricsCollector := metrics.NewCollector("agri_insights", prometheus.DefaultRegisterer)

	coeffs, err := estimator.LoadCoefficients(cfg.Estimator.CoefficientsPath)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to load coefficients", logging.Fields{
			"path": cfg.Estimator.CoefficientsPath,
		}, err)
	}

	var rng estimator.RandomSource
	if cfg.Estimator.RandomSeed != 0 {
		rng = estimator.NewSeededSource(cfg.Estimator.RandomSeed)
	}

	// Initialize repository
	predictionRepo, closeRepo, err := repository.Open(cfg, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[STARTUP_ERROR] Failed to open prediction repository", logging.Fields{}, err)
	}
	defer closeRepo()

	// Initialize sinks
	var publisher events.Publisher = events.NoopPublisher{}
	if cfg.Kafka.Enabled {
		kafkaPublisher, err := events.NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to Kafka", logging.Fields{
				"brokers": cfg.Kafka.Brokers,
			}, err)
		}
		publisher = kafkaPublisher
	}
	defer publisher.Close()

	var assessmentWriter influxdb.AssessmentWriter
	if cfg.InfluxDB.Enabled {
		influxCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		influxClient, err := influxdb.NewClient(influxCtx, cfg.InfluxDB)
		cancel()
		if err != nil {
			logger.Fatal(ctx, "[STARTUP_ERROR] Failed to connect to InfluxDB", logging.Fields{
				"url": cfg.InfluxDB.URL,
			}, err)
		}
		defer influxClient.Close()
		assessmentWriter = influxClient
	}

	// Initialize services
	yieldEstimator := estimator.NewYieldEstimator(coeffs.Yield, rng)
	predictionService := services.NewPredictionService(predictionRepo, yieldEstimator, publisher, logger, metricsCollector)
	energyService := services.NewEnergyService(predictionRepo, estimator.NewEnergyEstimator(coeffs.Energy), assessmentWriter, logger, metricsCollector)
	voiceService := services.NewVoiceService(predictionRepo, logger)
	statsService := services.NewStatisticsService(predictionRepo, logger)
	exportService := services.NewExportService(predictionRepo, statsService, logger)

	// Initialize handlers
	apiHandler := handlers.NewAPIHandler(
		predictionService,
		energyService,
		voiceService,
		statsService,
		exportService,
		logger,
		metricsCollector,
	)

	// Setup router
	router := mux.NewRouter()
	apiHandler.RegisterRoutes(router)

	// Prometheus metrics endpoint
	router.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info(ctx, "[SERVER_START] HTTP server listening", logging.Fields{
			"address": server.Addr,
		})

		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal(ctx, "[SERVER_ERROR] Server failed", logging.Fields{}, err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info(ctx, "[SHUTDOWN] Shutting down server...", logging.Fields{})

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error(ctx, "[SHUTDOWN_ERROR] Server forced to shutdown", logging.Fields{}, err)
	}

	logger.Info(ctx, "[SHUTDOWN_COMPLETE] Server stopped", logging.Fields{})
}
