package influxdb

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"agri-insights/internal/config"
	"agri-insights/internal/models"
)

const measurementEnergyAssessment = "energy_assessment"

// EnergyAssessment is one energy efficiency calculation to record as a time series point
type EnergyAssessment struct {
	Query        models.EnergyQuery
	Result       *models.EnergyResult
	Crop         models.Crop
	PredictionID int64
	Timestamp    time.Time
}

// AssessmentWriter records energy assessments
type AssessmentWriter interface {
	WriteAssessment(ctx context.Context, a *EnergyAssessment) error
	Close()
}

// Client writes energy assessments to InfluxDB v2
type Client struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	config   config.InfluxDBConfig
}

// NewClient initializes the InfluxDB v2 client and verifies connectivity
func NewClient(ctx context.Context, cfg config.InfluxDBConfig) (*Client, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	if _, err := client.Health(ctx); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to InfluxDB: %w", err)
	}

	return &Client{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		config:   cfg,
	}, nil
}

// WriteAssessment writes a single assessment point and waits for the server
func (c *Client) WriteAssessment(ctx context.Context, a *EnergyAssessment) error {
	if err := c.writeAPI.WritePoint(ctx, NewAssessmentPoint(a)); err != nil {
		return fmt.Errorf("failed to write energy assessment: %w", err)
	}
	return nil
}

// Close closes the InfluxDB client
func (c *Client) Close() {
	c.client.Close()
}

// NewAssessmentPoint converts an assessment to a line protocol point tagged by energy type and crop
func NewAssessmentPoint(a *EnergyAssessment) *write.Point {
	tags := map[string]string{
		"energy_type": string(a.Query.EnergyType),
	}
	if a.Crop != "" {
		tags["crop"] = string(a.Crop)
	}

	fields := map[string]interface{}{
		"irrigation_hours":      a.Query.IrrigationHours,
		"fertilizer_usage_kg":   a.Query.FertilizerUsageKg,
		"yield_tons_per_ha":     a.Query.CurrentYieldTonsPerHa,
		"efficiency_kg_per_kwh": a.Result.EfficiencyScoreKgPerKwh,
		"total_energy_kwh":      a.Result.TotalEnergyKwh,
		"energy_cost":           a.Result.EnergyCost,
		"co2_emissions_kg":      a.Result.CO2EmissionsKg,
		"sustainability_rating": a.Result.SustainabilityRating,
	}
	if a.PredictionID != 0 {
		fields["prediction_id"] = a.PredictionID
	}

	return write.NewPoint(measurementEnergyAssessment, tags, fields, a.Timestamp)
}
