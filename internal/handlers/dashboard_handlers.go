package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"climatescope/internal/filter"
	"climatescope/internal/insights"
	"climatescope/internal/models"
	"climatescope/internal/services"
	"climatescope/pkg/logging"
	"climatescope/pkg/metrics"
)

// DashboardHandler serves the dashboard pipeline over HTTP
type DashboardHandler struct {
	responder
	dashboard *services.DashboardService
	logger    *logging.StructuredLogger
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(
	dashboard *services.DashboardService,
	logger *logging.StructuredLogger,
	metricsCollector *metrics.Collector,
) *DashboardHandler {
	return &DashboardHandler{
		responder: responder{metrics: metricsCollector},
		dashboard: dashboard,
		logger:    logger,
	}
}

// parseRequest reads the filter and metric selections from the query string.
// region and country may be repeated.
func parseRequest(r *http.Request) filter.Request {
	q := r.URL.Query()
	return filter.Request{
		DateMode:   q.Get("date_mode"),
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
		SingleDate: q.Get("single_date"),
		Regions:    q["region"],
		Countries:  q["country"],
		Metric:     q.Get("metric"),
		ScatterX:   q.Get("scatter_x"),
		ScatterY:   q.Get("scatter_y"),
	}
}

// GetDataset handles GET /api/dataset
func (h *DashboardHandler) GetDataset(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dataset"
	defer h.observe(endpoint, time.Now())

	h.sendOK(w, endpoint, r, h.dashboard.DatasetInfo())
}

// GetCountryOptions handles GET /api/options/countries
func (h *DashboardHandler) GetCountryOptions(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/options/countries"
	defer h.observe(endpoint, time.Now())

	countries := h.dashboard.CountryOptions(r.URL.Query()["region"])
	if countries == nil {
		countries = []string{}
	}
	h.sendOK(w, endpoint, r, map[string]interface{}{"countries": countries})
}

// GetDashboard handles GET /api/dashboard. Rejected selections still return
// the all-placeholder dashboard, with status 400.
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/dashboard"
	defer h.observe(endpoint, time.Now())

	ctx := r.Context()
	dash, err := h.dashboard.Render(ctx, parseRequest(r))
	if err != nil {
		h.sendPipelineError(w, r, endpoint, err)
		return
	}

	if dash.Status == models.StatusInvalid {
		h.metrics.RecordAPIRequest(endpoint, r.Method, "400")
		h.metrics.RecordAPIError(string(dash.Problem.Kind), endpoint)
		h.sendJSON(w, dash, http.StatusBadRequest)
		return
	}
	h.sendOK(w, endpoint, r, dash)
}

// GetInsights handles GET /api/insights
func (h *DashboardHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/insights"
	defer h.observe(endpoint, time.Now())

	tab := insights.ParseTab(r.URL.Query().Get("tab"))
	result, err := h.dashboard.Insights(r.Context(), parseRequest(r), tab)
	if err != nil {
		h.sendPipelineError(w, r, endpoint, err)
		return
	}
	h.sendOK(w, endpoint, r, result)
}

// GetReport handles GET /api/report, returning the Markdown report as a
// download
func (h *DashboardHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	const endpoint = "/api/report"
	defer h.observe(endpoint, time.Now())

	report, err := h.dashboard.Report(r.Context(), parseRequest(r))
	if err != nil {
		h.sendPipelineError(w, r, endpoint, err)
		return
	}

	h.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(report.Content))
}

// HealthCheck handles GET /health
func (h *DashboardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	hits, misses, size := h.dashboard.CacheStats()
	status := map[string]interface{}{
		"status":       "healthy",
		"timestamp":    time.Now().UTC().Format(time.RFC3339),
		"dataset_rows": h.dashboard.Dataset().Len(),
		"cache": map[string]interface{}{
			"hits":    hits,
			"misses":  misses,
			"entries": size,
		},
	}

	h.logger.Debug(ctx, "[HEALTH_CHECK] Health check requested", logging.Fields{})
	h.sendJSON(w, status, http.StatusOK)
}

func (h *DashboardHandler) sendPipelineError(w http.ResponseWriter, r *http.Request, endpoint string, err error) {
	var vErr *models.ValidationError
	switch {
	case errors.As(err, &vErr):
		h.sendValidationError(w, endpoint, r, vErr)
	case errors.Is(err, context.DeadlineExceeded):
		h.metrics.RecordAPIError("timeout", endpoint)
		h.sendError(w, endpoint, r, "computation timed out", http.StatusGatewayTimeout)
	default:
		h.logger.Error(r.Context(), "[API_PIPELINE_ERROR] Pipeline request failed", logging.Fields{
			"endpoint": endpoint,
			"query":    r.URL.RawQuery,
		}, err)
		h.metrics.RecordAPIError("internal_error", endpoint)
		h.sendError(w, endpoint, r, "failed to compute results", http.StatusInternalServerError)
	}
}

// RegisterRoutes registers all dashboard API routes
func (h *DashboardHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/api/dataset", h.GetDataset).Methods("GET")
	router.HandleFunc("/api/options/countries", h.GetCountryOptions).Methods("GET")
	router.HandleFunc("/api/dashboard", h.GetDashboard).Methods("GET")
	router.HandleFunc("/api/insights", h.GetInsights).Methods("GET")
	router.HandleFunc("/api/report", h.GetReport).Methods("GET")
	router.HandleFunc("/health", h.HealthCheck).Methods("GET")
}
