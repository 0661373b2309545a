package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"climatescope/internal/repository"
	"climatescope/internal/services"
	"climatescope/pkg/logging"
	"climatescope/pkg/metrics"
)

// ObservationHandler serves the raw observation table written by the
// ingester. It is only registered when a database is configured.
type ObservationHandler struct {
	responder
	observationService *services.ObservationService
	logger             *logging.StructuredLogger
}

// NewObservationHandler creates a new observation handler
func NewObservationHandler(
	observationService *services.ObservationService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *ObservationHandler {
	return &ObservationHandler{
		responder:          responder{metrics: metricsCollector},
		observationService: observationService,
		logger:             logger,
	}
}

// GetRawObservations handles GET /api/raw
func (h *ObservationHandler) GetRawObservations(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/raw"
	ctx := r.Context()
	defer h.observe(endpoint, time.Now())

	// Parse query parameters
	sourceFile := r.URL.Query().Get("source")
	country := r.URL.Query().Get("country")
	pageStr := r.URL.Query().Get("page")
	limitStr := r.URL.Query().Get("limit")

	// Default pagination
	page := 1
	limit := 100

	if pageStr != "" {
		p, err := strconv.Atoi(pageStr)
		if err != nil || p < 1 {
			h.sendError(w, endpoint, r, "invalid page, expected a positive integer", http.StatusBadRequest)
			return
		}
		page = p
	}

	if limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 || l > 1000 {
			h.sendError(w, endpoint, r, "invalid limit, expected integer between 1 and 1000", http.StatusBadRequest)
			return
		}
		limit = l
	}

	filter := repository.ObservationFilter{
		Limit:  limit,
		Offset: (page - 1) * limit,
	}
	if sourceFile != "" {
		filter.SourceFile = &sourceFile
	}
	if country != "" {
		filter.Country = &country
	}

	observations, total, err := h.observationService.GetObservations(ctx, filter)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_RAW_ERROR] Failed to get raw observations", logging.Fields{
			"source":  sourceFile,
			"country": country,
			"page":    page,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, endpoint, r, "failed to retrieve observations", http.StatusInternalServerError)
		return
	}

	h.sendOK(w, endpoint, r, PaginatedResponse{
		Data:       observations,
		Total:      total,
		Page:       page,
		Limit:      limit,
		TotalPages: (total + limit - 1) / limit,
	})
}

// GetSources handles GET /api/sources
func (h *ObservationHandler) GetSources(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/sources"
	ctx := r.Context()
	defer h.observe(endpoint, time.Now())

	sources, err := h.observationService.GetSources(ctx)
	if err != nil {
		h.logger.Error(ctx, "[API_GET_SOURCES_ERROR] Failed to list sources", logging.Fields{}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, endpoint, r, "failed to list sources", http.StatusInternalServerError)
		return
	}
	if sources == nil {
		sources = []*repository.SourceSummary{}
	}
	h.sendOK(w, endpoint, r, map[string]interface{}{"sources": sources})
}

// GetSource handles GET /api/sources/{source}
func (h *ObservationHandler) GetSource(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/sources/{source}"
	ctx := r.Context()
	defer h.observe(endpoint, time.Now())

	name := mux.Vars(r)["source"]
	source, err := h.observationService.GetSource(ctx, name)
	if err != nil {
		var notFound *repository.NotFoundError
		if errors.As(err, &notFound) {
			h.sendError(w, endpoint, r, notFound.Error(), http.StatusNotFound)
			return
		}
		h.logger.Error(ctx, "[API_GET_SOURCE_ERROR] Failed to get source", logging.Fields{
			"source": name,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, endpoint, r, "failed to retrieve source", http.StatusInternalServerError)
		return
	}
	h.sendOK(w, endpoint, r, source)
}

// HealthCheck handles GET /health/db
func (h *ObservationHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/health/db"
	if err := h.observationService.HealthCheck(r.Context()); err != nil {
		h.logger.Warn(r.Context(), "[HEALTH_CHECK_DB] Database unhealthy", logging.Fields{"error": err.Error()})
		h.sendError(w, endpoint, r, "database unavailable", http.StatusServiceUnavailable)
		return
	}
	h.sendJSON(w, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}, http.StatusOK)
}

// RegisterRoutes registers the raw observation routes
func (h *ObservationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/raw", h.GetRawObservations).Methods("GET")
	router.HandleFunc("/api/sources", h.GetSources).Methods("GET")
	router.HandleFunc("/api/sources/{source}", h.GetSource).Methods("GET")
	router.HandleFunc("/health/db", h.HealthCheck).Methods("GET")
}
