package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"agri-insights/internal/estimator"
	"agri-insights/internal/models"
	"agri-insights/internal/repository"
	"agri-insights/internal/services"
	"agri-insights/pkg/logging"
	"agri-insights/pkg/metrics"
)

func newTestRouter(t *testing.T) *mux.Router {
	t.Helper()

	logger := logging.NewStructuredLogger("agri-test", "test", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	collector := metrics.NewCollector("agri_test", prometheus.NewRegistry())

	repo := repository.NewMemoryRepository()
	coeffs := estimator.DefaultCoefficients()
	yieldEstimator := estimator.NewYieldEstimator(coeffs.Yield, estimator.NewSeededSource(7))

	stats := services.NewStatisticsService(repo, logger)
	handler := NewAPIHandler(
		services.NewPredictionService(repo, yieldEstimator, nil, logger, collector),
		services.NewEnergyService(repo, estimator.NewEnergyEstimator(coeffs.Energy), nil, logger, collector),
		services.NewVoiceService(repo, logger),
		stats,
		services.NewExportService(repo, stats, logger),
		logger,
		collector,
	)

	router := mux.NewRouter()
	handler.RegisterRoutes(router)
	return router
}

func do(t *testing.T, router http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestPredictYield(t *testing.T) {
	router := newTestRouter(t)

	tests := []struct {
		name        string
		body        string
		wantStatus  int
		checkValues func(*testing.T, *httptest.ResponseRecorder)
	}{
		{
			name:       "valid prediction",
			body:       `{"crop":"Corn","season":"Summer","soil_type":"Loam","rainfall_mm":800,"temperature_c":24}`,
			wantStatus: http.StatusCreated,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				resp := decode[PredictResponse](t, rec)
				require.NotNil(t, resp.Prediction)
				assert.True(t, resp.Prediction.IsCurrent)
				assert.Equal(t, 8.5, resp.Factors.BaseYield)
				assert.InDelta(t, 1.21, resp.Factors.WeatherMultiplier, 1e-9)

				deterministic := resp.Factors.Deterministic()
				assert.GreaterOrEqual(t, resp.Prediction.PredictedYield, deterministic*0.9)
				assert.Less(t, resp.Prediction.PredictedYield, deterministic*1.1)
			},
		},
		{
			name:       "missing season",
			body:       `{"crop":"Corn"}`,
			wantStatus: http.StatusBadRequest,
			checkValues: func(t *testing.T, rec *httptest.ResponseRecorder) {
				resp := decode[ErrorResponse](t, rec)
				assert.Equal(t, http.StatusBadRequest, resp.Code)
				assert.Contains(t, resp.Message, "season")
			},
		},
		{
			name:       "malformed json",
			body:       `{"crop":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "wrong type",
			body:       `{"crop":"Corn","season":"Summer","rainfall_mm":"lots"}`,
			wantStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodPost, "/api/yield/predict", tt.body)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.checkValues != nil {
				tt.checkValues(t, rec)
			}
		})
	}
}

func TestCalculateEnergy(t *testing.T) {
	router := newTestRouter(t)
	body := `{"irrigation_hours":120,"equipment_power_kw":15,"fertilizer_usage_kg":200,"fuel_consumption_l":50,"energy_type":"diesel"}`

	rec := do(t, router, http.MethodPost, "/api/energy/calculate", body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	calc := decode[services.EnergyCalculation](t, rec)
	assert.Equal(t, services.FallbackYieldTonsPerHa, calc.Query.CurrentYieldTonsPerHa)
	assert.InDelta(t, 2316.0, calc.Result.TotalEnergyKwh, 1e-9)
	assert.InDelta(t, 277.92, calc.Result.EnergyCost, 1e-9)
	assert.Equal(t, 3, calc.Result.SustainabilityRating)
	assert.Nil(t, calc.Prediction)

	rec = do(t, router, http.MethodPost, "/api/energy/calculate", `{"irrigation_hours":-1,"energy_type":"grid"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCalculateEnergy_AttachesToCurrentPrediction(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/yield/predict", `{"crop":"Wheat","season":"Spring"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	predicted := decode[PredictResponse](t, rec)

	rec = do(t, router, http.MethodPost, "/api/energy/calculate", `{"irrigation_hours":10,"energy_type":"Solar"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	calc := decode[services.EnergyCalculation](t, rec)
	assert.InDelta(t, predicted.Prediction.PredictedYield, calc.Query.CurrentYieldTonsPerHa, 1e-9)

	rec = do(t, router, http.MethodGet, "/api/predictions/current", "")
	require.Equal(t, http.StatusOK, rec.Code)
	current := decode[models.Prediction](t, rec)
	require.NotNil(t, current.EnergyData)
	assert.Equal(t, models.EnergySolar, current.EnergyData.EnergyType)
	assert.Equal(t, 10.0, current.EnergyData.IrrigationHours)
}

func TestCurrentPrediction(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/predictions/current", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	first := decode[PredictResponse](t, do(t, router, http.MethodPost, "/api/yield/predict", `{"crop":"Rice","season":"Fall"}`))
	second := decode[PredictResponse](t, do(t, router, http.MethodPost, "/api/yield/predict", `{"crop":"Cotton","season":"Summer"}`))

	current := decode[models.Prediction](t, do(t, router, http.MethodGet, "/api/predictions/current", ""))
	assert.Equal(t, second.Prediction.ID, current.ID)

	rec = do(t, router, http.MethodPut, "/api/predictions/current", `{"id":`+jsonInt(first.Prediction.ID)+`}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.Prediction.ID, decode[models.Prediction](t, rec).ID)

	rec = do(t, router, http.MethodPut, "/api/predictions/current", `{"id":999}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, router, http.MethodPut, "/api/predictions/current", `{"id":0}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, router, http.MethodGet, "/api/predictions/"+jsonInt(second.Prediction.ID), "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[models.Prediction](t, rec).IsCurrent)

	rec = do(t, router, http.MethodGet, "/api/predictions/12345", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func jsonInt(v int64) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func TestListPredictions(t *testing.T) {
	router := newTestRouter(t)

	for _, body := range []string{
		`{"crop":"Corn","season":"Summer"}`,
		`{"crop":"Corn","season":"Winter"}`,
		`{"crop":"Corn","season":"Summer"}`,
		`{"crop":"Barley","season":"Summer"}`,
	} {
		require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/yield/predict", body).Code)
	}

	tests := []struct {
		name      string
		query     string
		wantTotal int
		wantLen   int
		wantPages int
	}{
		{"all", "", 4, 4, 1},
		{"by crop", "?crop=Corn", 3, 3, 1},
		{"by crop and season", "?crop=Corn&season=Summer", 2, 2, 1},
		{"paged", "?limit=3&page=2", 4, 1, 2},
		{"invalid paging falls back", "?limit=abc&page=-4", 4, 4, 1},
		{"no match", "?crop=Potatoes", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, router, http.MethodGet, "/api/predictions"+tt.query, "")
			require.Equal(t, http.StatusOK, rec.Code)

			var resp struct {
				Data       []models.Prediction `json:"data"`
				Total      int                 `json:"total"`
				TotalPages int                 `json:"total_pages"`
			}
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantTotal, resp.Total)
			assert.Len(t, resp.Data, tt.wantLen)
			assert.Equal(t, tt.wantPages, resp.TotalPages)
		})
	}
}

func TestStatisticsAndExport(t *testing.T) {
	router := newTestRouter(t)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/yield/predict", `{"crop":"Corn","season":"Summer"}`).Code)
	require.Equal(t, http.StatusCreated, do(t, router, http.MethodPost, "/api/yield/predict", `{"crop":"Corn","season":"Summer"}`).Code)

	rec := do(t, router, http.MethodGet, "/api/predictions/stats", "")
	require.Equal(t, http.StatusOK, rec.Code)
	stats := decode[[]services.CropStatistics](t, rec)
	require.Len(t, stats, 1)
	assert.Equal(t, 2, stats[0].PredictionCount)

	rec = do(t, router, http.MethodGet, "/api/predictions/export?crop=Corn", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "spreadsheetml")
	assert.Contains(t, rec.Header().Get("Content-Disposition"), ".xlsx")

	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Predictions")
	require.NoError(t, err)
	assert.Len(t, rows, 3)
}

func TestVoiceCommand(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodPost, "/api/voice/command", `{"transcript":"What is the weather today?"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	reply := decode[services.VoiceReply](t, rec)
	assert.Equal(t, services.IntentWeather, reply.Intent)
	assert.Equal(t, services.ReplyWeather, reply.Response)

	rec = do(t, router, http.MethodPost, "/api/voice/command", `not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHealthCheckAndRequestID(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode[map[string]string](t, rec)["status"])
	assert.Len(t, rec.Header().Get(RequestIDHeader), 36)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set(RequestIDHeader, "trace-123")
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, "trace-123", rec.Header().Get(RequestIDHeader))
}

func TestMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t)
	rec := do(t, router, http.MethodGet, "/api/yield/predict", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestDocs(t *testing.T) {
	router := newTestRouter(t)

	rec := do(t, router, http.MethodGet, "/api/docs/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)

	doc := decode[map[string]interface{}](t, rec)
	assert.Equal(t, "3.0.0", doc["openapi"])
	paths := doc["paths"].(map[string]interface{})
	for _, p := range []string{"/api/yield/predict", "/api/energy/calculate", "/api/predictions", "/api/predictions/current", "/api/voice/command"} {
		assert.Contains(t, paths, p)
	}

	rec = do(t, router, http.MethodGet, "/api/docs", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Agri Insights API Documentation")
	assert.Contains(t, rec.Body.String(), "swagger-ui-dist@5.10.0")
}

func TestSendJSON_UnencodableValueIsServerError(t *testing.T) {
	logger := logging.NewStructuredLogger("agri-test", "test", logging.DebugLevel)
	logger.SetOutput(io.Discard)
	h := &APIHandler{logger: logger, metrics: metrics.NewCollector("agri_test", prometheus.NewRegistry())}

	rec := httptest.NewRecorder()
	h.sendJSON(rec, map[string]float64{"rainfall_mm": math.NaN()}, http.StatusOK)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[ErrorResponse](t, rec)
	assert.Equal(t, http.StatusInternalServerError, resp.Code)
	assert.Equal(t, "failed to encode response", resp.Message)
}
