package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"climatescope/internal/models"
	"climatescope/pkg/metrics"
)

// ErrorResponse represents an API error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Field   string `json:"field,omitempty"`
}

// PaginatedResponse represents a paginated API response
type PaginatedResponse struct {
	Data       interface{} `json:"data"`
	Total      int         `json:"total"`
	Page       int         `json:"page"`
	Limit      int         `json:"limit"`
	TotalPages int         `json:"total_pages"`
}

// responder holds the JSON writing helpers shared by every handler
type responder struct {
	metrics *metrics.Collector
}

// observe records the request duration for endpoint; call it deferred
func (rs responder) observe(endpoint string, start time.Time) {
	rs.metrics.APIRequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// sendJSON sends a JSON response
func (rs responder) sendJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// sendOK records a successful request and sends data
func (rs responder) sendOK(w http.ResponseWriter, endpoint string, r *http.Request, data interface{}) {
	rs.metrics.RecordAPIRequest(endpoint, r.Method, "200")
	rs.sendJSON(w, data, http.StatusOK)
}

// sendError sends an error response
func (rs responder) sendError(w http.ResponseWriter, endpoint string, r *http.Request, message string, statusCode int) {
	rs.metrics.RecordAPIRequest(endpoint, r.Method, strconv.Itoa(statusCode))

	response := ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	}

	rs.sendJSON(w, response, statusCode)
}

// sendValidationError reports rejected input as 400 with the offending field
func (rs responder) sendValidationError(w http.ResponseWriter, endpoint string, r *http.Request, vErr *models.ValidationError) {
	rs.metrics.RecordAPIRequest(endpoint, r.Method, "400")
	rs.metrics.RecordAPIError(string(vErr.Kind), endpoint)

	rs.sendJSON(w, ErrorResponse{
		Error:   http.StatusText(http.StatusBadRequest),
		Message: vErr.Message,
		Code:    http.StatusBadRequest,
		Field:   vErr.Field,
	}, http.StatusBadRequest)
}
