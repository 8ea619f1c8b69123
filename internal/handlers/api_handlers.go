package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"agri-insights/internal/models"
	"agri-insights/internal/repository"
	"agri-insights/internal/services"
	"agri-insights/pkg/logging"
	"agri-insights/pkg/metrics"
)

const maxRequestBodyBytes = 1 << 20

// APIHandler handles the estimation and prediction history endpoints
type APIHandler struct {
	predictionService *services.PredictionService
	energyService     *services.EnergyService
	voiceService      *services.VoiceService
	statsService      *services.StatisticsService
	exportService     *services.ExportService
	logger            *logging.StructuredLogger
	metrics           *metrics.Collector
}

// NewAPIHandler creates a new API handler
func NewAPIHandler(
	predictionService *services.PredictionService,
	energyService *services.EnergyService,
	voiceService *services.VoiceService,
	statsService *services.StatisticsService,
	exportService *services.ExportService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *APIHandler {
	return &APIHandler{
		predictionService: predictionService,
		energyService:     energyService,
		voiceService:      voiceService,
		statsService:      statsService,
		exportService:     exportService,
		logger:            logger,
		metrics:           metricsCollector,
	}
}

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// PredictResponse is returned by POST /api/yield/predict
type PredictResponse struct {
	Prediction *models.Prediction  `json:"prediction"`
	Factors    models.YieldFactors `json:"factors"`
}

// SetCurrentRequest is the body of PUT /api/predictions/current
type SetCurrentRequest struct {
	ID int64 `json:"id"`
}

// VoiceCommandRequest is the body of POST /api/voice/command
type VoiceCommandRequest struct {
	Transcript string `json:"transcript"`
}

// PredictYield handles POST /api/yield/predict
func (h *APIHandler) PredictYield(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/yield/predict"
	defer h.observe(endpoint, time.Now())

	var query models.YieldQuery
	if err := h.decodeJSON(w, r, &query); err != nil {
		h.sendError(w, r, endpoint, err.Error(), http.StatusBadRequest)
		return
	}

	prediction, estimate, err := h.predictionService.Predict(r.Context(), query)
	if err != nil {
		h.handleError(w, r, endpoint, "[API_PREDICT_ERROR] Failed to predict yield", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "201")
	h.sendJSON(w, PredictResponse{Prediction: prediction, Factors: estimate.Factors}, http.StatusCreated)
}

// CalculateEnergy handles POST /api/energy/calculate
func (h *APIHandler) CalculateEnergy(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/energy/calculate"
	defer h.observe(endpoint, time.Now())

	var req models.EnergyRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.sendError(w, r, endpoint, err.Error(), http.StatusBadRequest)
		return
	}

	calc, err := h.energyService.Calculate(r.Context(), &req)
	if err != nil {
		h.handleError(w, r, endpoint, "[API_ENERGY_ERROR] Failed to calculate energy efficiency", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, calc, http.StatusOK)
}

// ListPredictions handles GET /api/predictions
func (h *APIHandler) ListPredictions(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/predictions"
	defer h.observe(endpoint, time.Now())

	page, limit := parsePagination(r)
	filter := parseFilter(r)
	filter.Limit = limit
	filter.Offset = (page - 1) * limit

	predictions, total, err := h.predictionService.ListPredictions(r.Context(), filter)
	if err != nil {
		h.handleError(w, r, endpoint, "[API_LIST_PREDICTIONS_ERROR] Failed to list predictions", err)
		return
	}

	response := PaginatedResponse{
		Data:       predictions,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, response, http.StatusOK)
}

// GetPrediction handles GET /api/predictions/{id}
func (h *APIHandler) GetPrediction(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/predictions/{id}"
	defer h.observe(endpoint, time.Now())

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		h.sendError(w, r, endpoint, "invalid prediction id", http.StatusBadRequest)
		return
	}

	prediction, err := h.predictionService.GetPrediction(r.Context(), id)
	if err != nil {
		h.handleError(w, r, endpoint, "[API_GET_PREDICTION_ERROR] Failed to get prediction", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, prediction, http.StatusOK)
}

// GetCurrentPrediction handles GET /api/predictions/current
func (h *APIHandler) GetCurrentPrediction(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/predictions/current"
	defer h.observe(endpoint, time.Now())

	prediction, err := h.predictionService.CurrentPrediction(r.Context())
	if err != nil {
		h.handleError(w, r, endpoint, "[API_CURRENT_PREDICTION_ERROR] Failed to get current prediction", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, prediction, http.StatusOK)
}

// SetCurrentPrediction handles PUT /api/predictions/current
func (h *APIHandler) SetCurrentPrediction(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/predictions/current"
	defer h.observe(endpoint, time.Now())

	var req SetCurrentRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.sendError(w, r, endpoint, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ID <= 0 {
		h.sendError(w, r, endpoint, "id must be a positive integer", http.StatusBadRequest)
		return
	}

	prediction, err := h.predictionService.SetCurrentPrediction(r.Context(), req.ID)
	if err != nil {
		h.handleError(w, r, endpoint, "[API_SET_CURRENT_ERROR] Failed to set current prediction", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, prediction, http.StatusOK)
}

// GetStatistics handles GET /api/predictions/stats
func (h *APIHandler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/predictions/stats"
	defer h.observe(endpoint, time.Now())

	stats, err := h.statsService.CalculateStatistics(r.Context(), parseFilter(r))
	if err != nil {
		h.handleError(w, r, endpoint, "[API_GET_STATISTICS_ERROR] Failed to calculate statistics", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, stats, http.StatusOK)
}

// ExportPredictions handles GET /api/predictions/export
func (h *APIHandler) ExportPredictions(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/predictions/export"
	defer h.observe(endpoint, time.Now())

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="predictions-%s.xlsx"`, time.Now().UTC().Format("20060102")))

	// Nothing reaches w until the workbook is complete
	if err := h.exportService.ExportPredictions(r.Context(), w, parseFilter(r)); err != nil {
		w.Header().Del("Content-Disposition")
		h.handleError(w, r, endpoint, "[API_EXPORT_ERROR] Failed to export predictions", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
}

// VoiceCommand handles POST /api/voice/command
func (h *APIHandler) VoiceCommand(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/voice/command"
	defer h.observe(endpoint, time.Now())

	var req VoiceCommandRequest
	if err := h.decodeJSON(w, r, &req); err != nil {
		h.sendError(w, r, endpoint, err.Error(), http.StatusBadRequest)
		return
	}

	reply, err := h.voiceService.Dispatch(r.Context(), req.Transcript)
	if err != nil {
		h.handleError(w, r, endpoint, "[API_VOICE_ERROR] Failed to handle voice command", err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	h.sendJSON(w, reply, http.StatusOK)
}

// HealthCheck handles GET /health
func (h *APIHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	status := map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	if err := h.predictionService.HealthCheck(ctx); err != nil {
		h.logger.Warn(ctx, "[HEALTH_CHECK] Storage unhealthy", logging.Fields{
			"error": err.Error(),
		})
		status["status"] = "unhealthy"
		h.sendJSON(w, status, http.StatusServiceUnavailable)
		return
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

func (h *APIHandler) observe(endpoint string, start time.Time) {
	h.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// decodeJSON decodes a size-limited request body into dst
func (h *APIHandler) decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %v", err)
	}
	return nil
}

// parsePagination reads page and limit, defaulting to page 1 of 100
func parsePagination(r *http.Request) (int, int) {
	page := 1
	limit := 100

	if p, err := strconv.Atoi(r.URL.Query().Get("page")); err == nil && p > 0 {
		page = p
	}

	if l, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && l > 0 && l <= 1000 {
		limit = l
	}

	return page, limit
}

func parseFilter(r *http.Request) repository.PredictionFilter {
	var filter repository.PredictionFilter

	if crop := r.URL.Query().Get("crop"); crop != "" {
		filter.Crop = &crop
	}

	if season := r.URL.Query().Get("season"); season != "" {
		filter.Season = &season
	}

	return filter
}

// handleError maps service errors to status codes: validation 400, missing 404, everything else 500
func (h *APIHandler) handleError(w http.ResponseWriter, r *http.Request, endpoint, logMessage string, err error) {
	var validationErr *models.ValidationError
	var notFoundErr *repository.NotFoundError

	switch {
	case errors.As(err, &validationErr):
		h.metrics.RecordAPIError("validation_error", endpoint)
		h.sendError(w, r, endpoint, validationErr.Error(), http.StatusBadRequest)
	case errors.As(err, &notFoundErr):
		h.metrics.RecordAPIError("not_found", endpoint)
		h.sendError(w, r, endpoint, notFoundErr.Error(), http.StatusNotFound)
	default:
		h.logger.Error(r.Context(), logMessage, logging.Fields{
			"endpoint": endpoint,
			"method":   r.Method,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, r, endpoint, "internal server error", http.StatusInternalServerError)
	}
}

// sendJSON sends a JSON response. The body is encoded before the status is written
// so an unencodable value becomes a 500 instead of an empty success.
func (h *APIHandler) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	body, err := json.Marshal(data)
	if err != nil {
		h.logger.Error(context.Background(), "[RESPONSE_ENCODE_ERROR] Failed to encode response", logging.Fields{
			"status": statusCode,
		}, err)
		h.metrics.RecordAPIError("encode_error", "response")

		statusCode = http.StatusInternalServerError
		body, _ = json.Marshal(ErrorResponse{
			Error:   http.StatusText(statusCode),
			Message: "failed to encode response",
			Code:    statusCode,
		})
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(append(body, '\n'))
}

// sendError sends an error response
func (h *APIHandler) sendError(w http.ResponseWriter, r *http.Request, endpoint, message string, statusCode int) {
	h.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	h.sendJSON(w, response, statusCode)
}

// RegisterRoutes registers all API routes
func (h *APIHandler) RegisterRoutes(router *mux.Router) {
	router.Use(RequestID)

	router.HandleFunc("/api/yield/predict", h.PredictYield).Methods("POST")
	router.HandleFunc("/api/energy/calculate", h.CalculateEnergy).Methods("POST")
	router.HandleFunc("/api/predictions", h.ListPredictions).Methods("GET")
	router.HandleFunc("/api/predictions/current", h.GetCurrentPrediction).Methods("GET")
	router.HandleFunc("/api/predictions/current", h.SetCurrentPrediction).Methods("PUT")
	router.HandleFunc("/api/predictions/stats", h.GetStatistics).Methods("GET")
	router.HandleFunc("/api/predictions/export", h.ExportPredictions).Methods("GET")
	router.HandleFunc("/api/predictions/{id:[0-9]+}", h.GetPrediction).Methods("GET")
	router.HandleFunc("/api/voice/command", h.VoiceCommand).Methods("POST")
	router.HandleFunc("/api/docs/openapi.json", OpenAPISpec).Methods("GET")
	router.HandleFunc("/api/docs", SwaggerUI).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
