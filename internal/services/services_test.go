package services

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"agri-insights/internal/estimator"
	"agri-insights/internal/events"
	"agri-insights/internal/influxdb"
	"agri-insights/internal/repository"
	"agri-insights/pkg/logging"
	"agri-insights/pkg/metrics"
)

// midSource draws 0.5, which makes the random factor exactly 1.0 with the default band
type midSource struct{}

func (midSource) Float64() float64 { return 0.5 }

type testDeps struct {
	repo    repository.PredictionRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	yield   *estimator.YieldEstimator
	energy  *estimator.EnergyEstimator
}

func newTestDeps(t *testing.T) *testDeps {
	t.Helper()

	logger := logging.NewStructuredLogger("agri-test", "test", logging.DebugLevel)
	logger.SetOutput(io.Discard)

	coeffs := estimator.DefaultCoefficients()
	return &testDeps{
		repo:    repository.NewMemoryRepository(),
		logger:  logger,
		metrics: metrics.NewCollector("agri_test", prometheus.NewRegistry()),
		yield:   estimator.NewYieldEstimator(coeffs.Yield, midSource{}),
		energy:  estimator.NewEnergyEstimator(coeffs.Energy),
	}
}

// recordingPublisher captures published events and optionally fails
type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.PredictionEvent
	err    error
}

func (p *recordingPublisher) PublishPrediction(ctx context.Context, event *events.PredictionEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) Close() error { return nil }

// recordingWriter captures energy assessments and optionally fails
type recordingWriter struct {
	assessments []*influxdb.EnergyAssessment
	err         error
}

func (w *recordingWriter) WriteAssessment(ctx context.Context, a *influxdb.EnergyAssessment) error {
	if w.err != nil {
		return w.err
	}
	w.assessments = append(w.assessments, a)
	return nil
}

func (w *recordingWriter) Close() {}

var errSinkDown = errors.New("sink unavailable")

func ptr(v float64) *float64 { return &v }
