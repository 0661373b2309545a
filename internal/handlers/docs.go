package handlers

import (
	"encoding/json"
	"net/http"
)

func queryParam(name, description string, schema map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"name":        name,
		"in":          "query",
		"description": description,
		"required":    false,
		"schema":      schema,
	}
}

var (
	stringSchema = map[string]interface{}{"type": "string"}
	dateSchema   = map[string]interface{}{"type": "string", "format": "date"}
	listSchema   = map[string]interface{}{"type": "array", "items": map[string]string{"type": "string"}}
	metricSchema = map[string]interface{}{
		"type": "string",
		"enum": []string{"temperature_celsius", "humidity", "pressure_mb", "wind_kph", "wind_speed", "uv_index", "precipitation"},
	}
)

// filterParams are the selections shared by every pipeline endpoint
func filterParams() []map[string]interface{} {
	return []map[string]interface{}{
		queryParam("date_mode", "range (default) or single", map[string]interface{}{"type": "string", "enum": []string{"range", "single"}}),
		queryParam("start_date", "Range start (YYYY-MM-DD); defaults to the dataset's first date", dateSchema),
		queryParam("end_date", "Range end (YYYY-MM-DD); defaults to the dataset's last date", dateSchema),
		queryParam("single_date", "Calendar date when date_mode=single", dateSchema),
		queryParam("region", "Geographic region; repeat for several", listSchema),
		queryParam("country", "Country; repeat for several", listSchema),
		queryParam("metric", "Primary metric (default temperature_celsius)", metricSchema),
	}
}

func jsonResponse(description string) map[string]interface{} {
	return map[string]interface{}{
		"description": description,
		"content": map[string]interface{}{
			"application/json": map[string]interface{}{
				"schema": map[string]string{"type": "object"},
			},
		},
	}
}

var errorResponse = map[string]interface{}{
	"description": "Rejected selection",
	"content": map[string]interface{}{
		"application/json": map[string]interface{}{
			"schema": map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"error":   map[string]string{"type": "string"},
					"message": map[string]string{"type": "string"},
					"code":    map[string]string{"type": "integer"},
					"field":   map[string]string{"type": "string"},
				},
			},
		},
	},
}

// OpenAPISpec returns the OpenAPI 3.0 specification for the ClimateScope API
func OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	dashboardParams := append(filterParams(),
		queryParam("scatter_x", "Scatter X axis metric (default temperature_celsius)", metricSchema),
		queryParam("scatter_y", "Scatter Y axis metric (default humidity)", metricSchema),
	)
	insightParams := append(filterParams(),
		queryParam("tab", "stats, regional, top or trends", map[string]interface{}{"type": "string", "enum": []string{"stats", "regional", "top", "trends"}}),
	)

	spec := map[string]interface{}{
		"openapi": "3.0.0",
		"info": map[string]interface{}{
			"title":       "ClimateScope API",
			"description": "Filter and aggregate weather observations into dashboard charts, insights and Markdown reports",
			"version":     "1.0.0",
		},
		"servers": []map[string]string{
			{"url": "http://localhost:8080", "description": "Local development server"},
		},
		"paths": map[string]interface{}{
			"/api/dataset": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Describe the loaded dataset",
					"description": "Row count, date bounds, regions, countries, selectable metrics and load statistics",
					"responses":   map[string]interface{}{"200": jsonResponse("Dataset description")},
				},
			},
			"/api/options/countries": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Countries selectable for the chosen regions",
					"parameters": []map[string]interface{}{queryParam("region", "Geographic region; repeat for several", listSchema)},
					"responses":  map[string]interface{}{"200": jsonResponse("Sorted country list")},
				},
			},
			"/api/dashboard": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Render the dashboard",
					"description": "Summary cards, insights, top locations and every chart for the current selection",
					"parameters":  dashboardParams,
					"responses": map[string]interface{}{
						"200": jsonResponse("Dashboard; status is ok or empty"),
						"400": jsonResponse("Dashboard with status invalid and placeholder charts"),
						"504": errorResponse,
					},
				},
			},
			"/api/insights": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Compute one insight tab",
					"parameters": insightParams,
					"responses": map[string]interface{}{
						"200": jsonResponse("Tab insights"),
						"400": errorResponse,
					},
				},
			},
			"/api/report": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":    "Download the Markdown report",
					"parameters": filterParams(),
					"responses": map[string]interface{}{
						"200": map[string]interface{}{
							"description": "Markdown report as an attachment",
							"content": map[string]interface{}{
								"text/markdown": map[string]interface{}{"schema": map[string]string{"type": "string"}},
							},
						},
						"400": errorResponse,
					},
				},
			},
			"/api/raw": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":     "Page through ingested raw rows",
					"description": "Available when the server is connected to PostgreSQL",
					"parameters": []map[string]interface{}{
						queryParam("source", "Source file name", stringSchema),
						queryParam("country", "normalized_country value", stringSchema),
						queryParam("page", "Page number (default: 1)", map[string]interface{}{"type": "integer", "default": 1}),
						queryParam("limit", "Records per page (default: 100)", map[string]interface{}{"type": "integer", "default": 100}),
					},
					"responses": map[string]interface{}{"200": jsonResponse("Paginated raw observations")},
				},
			},
			"/api/sources": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":   "List ingested source files",
					"responses": map[string]interface{}{"200": jsonResponse("Source summaries")},
				},
			},
			"/api/sources/{source}": map[string]interface{}{
				"get": map[string]interface{}{
					"summary": "Describe one ingested source file",
					"parameters": []map[string]interface{}{{
						"name":     "source",
						"in":       "path",
						"required": true,
						"schema":   stringSchema,
					}},
					"responses": map[string]interface{}{
						"200": jsonResponse("Source summary"),
						"404": errorResponse,
					},
				},
			},
			"/health": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":   "Health check",
					"responses": map[string]interface{}{"200": jsonResponse("Service is healthy")},
				},
			},
			"/metrics": map[string]interface{}{
				"get": map[string]interface{}{
					"summary":   "Prometheus metrics",
					"responses": map[string]interface{}{"200": map[string]string{"description": "Prometheus text format"}},
				},
			},
		},
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(spec)
}
