package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"climatescope/internal/models"
	"climatescope/pkg/database"
	"climatescope/pkg/logging"
	"climatescope/pkg/metrics"
)

// ObservationRepository provides access to the raw observation table, the
// PostgreSQL alternative to reading the source file directly.
type ObservationRepository interface {
	// Ingestion
	ReplaceSource(ctx context.Context, sourceFile string, rows []*models.RawObservation, batchSize int) (int, error)

	// Reads
	ListObservations(ctx context.Context, filter ObservationFilter) ([]*models.RawObservation, int, error)
	AllObservations(ctx context.Context, sourceFile string) ([]*models.RawObservation, error)
	ListSources(ctx context.Context) ([]*SourceSummary, error)
	GetSource(ctx context.Context, sourceFile string) (*SourceSummary, error)

	HealthCheck(ctx context.Context) error
}

// ObservationFilter defines filters for paging through raw observations
type ObservationFilter struct {
	SourceFile *string
	Country    *string
	Limit      int
	Offset     int
}

// SourceSummary describes one ingested source file
type SourceSummary struct {
	SourceFile string    `json:"source_file" db:"source_file"`
	Rows       int       `json:"rows" db:"row_count"`
	IngestedAt time.Time `json:"ingested_at" db:"ingested_at"`
}

type observationRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewObservationRepository creates a new observation repository
func NewObservationRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) ObservationRepository {
	return &observationRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

const rawColumns = `
	source_file, last_updated, latitude, longitude,
	temperature_celsius, humidity, pressure_mb, wind_kph, uv_index, precipitation,
	normalized_country, geographic_region, location_name, created_at`

// ReplaceSource deletes any rows previously ingested from sourceFile and
// inserts rows in batches, all inside one transaction. Re-ingesting the same
// file therefore never duplicates observations.
func (r *observationRepository) ReplaceSource(ctx context.Context, sourceFile string, rows []*models.RawObservation, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = 1000
	}

	timer := time.Now()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM raw_observations WHERE source_file = $1`, sourceFile); err != nil {
		return 0, fmt.Errorf("failed to clear previous rows for %s: %w", sourceFile, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO raw_observations (`+rawColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	inserted := 0
	for start := 0; start < len(rows); start += batchSize {
		end := start + batchSize
		if end > len(rows) {
			end = len(rows)
		}

		for _, row := range rows[start:end] {
			_, err := stmt.ExecContext(ctx,
				sourceFile,
				row.LastUpdated,
				row.Latitude,
				row.Longitude,
				row.TemperatureCelsius,
				row.Humidity,
				row.PressureMb,
				row.WindKph,
				row.UVIndex,
				row.Precipitation,
				row.Country,
				row.Region,
				row.LocationName,
				now,
			)
			if err != nil {
				r.metrics.RecordIngestionError("insert_error")
				return 0, fmt.Errorf("failed to insert observation: %w", err)
			}
		}

		inserted += end - start
		r.metrics.IngestionBatchSize.Observe(float64(end - start))
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit transaction: %w", err)
	}

	r.logger.Debug(ctx, "[REPO_REPLACE_SOURCE] Source rows replaced", logging.Fields{
		"source_file": sourceFile,
		"count":       inserted,
		"duration_ms": time.Since(timer).Milliseconds(),
	})

	return inserted, nil
}

// ListObservations pages through raw observations in insertion order
func (r *observationRepository) ListObservations(ctx context.Context, filter ObservationFilter) ([]*models.RawObservation, int, error) {
	query := `SELECT id, ` + rawColumns + ` FROM raw_observations WHERE 1=1`
	args := []interface{}{}
	argNum := 1

	if filter.SourceFile != nil {
		query += fmt.Sprintf(" AND source_file = $%d", argNum)
		args = append(args, *filter.SourceFile)
		argNum++
	}

	if filter.Country != nil {
		query += fmt.Sprintf(" AND normalized_country = $%d", argNum)
		args = append(args, *filter.Country)
		argNum++
	}

	countQuery := "SELECT COUNT(*) FROM (" + query + ") AS count_query"
	var totalCount int
	if err := r.db.GetContext(ctx, "count_raw_observations", &totalCount, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to count observations: %w", err)
	}

	query += " ORDER BY id"
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", argNum, argNum+1)
	args = append(args, filter.Limit, filter.Offset)

	var rows []*models.RawObservation
	if err := r.db.SelectContext(ctx, "list_raw_observations", &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("failed to list observations: %w", err)
	}

	return rows, totalCount, nil
}

// AllObservations returns every raw row in insertion order. An empty
// sourceFile reads all sources.
func (r *observationRepository) AllObservations(ctx context.Context, sourceFile string) ([]*models.RawObservation, error) {
	query := `SELECT id, ` + rawColumns + ` FROM raw_observations`
	args := []interface{}{}
	if sourceFile != "" {
		query += ` WHERE source_file = $1`
		args = append(args, sourceFile)
	}
	query += ` ORDER BY id`

	var rows []*models.RawObservation
	if err := r.db.SelectContext(ctx, "all_raw_observations", &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to read observations: %w", err)
	}
	return rows, nil
}

// ListSources summarizes every ingested source file
func (r *observationRepository) ListSources(ctx context.Context) ([]*SourceSummary, error) {
	query := `
		SELECT source_file, COUNT(*) AS row_count, MAX(created_at) AS ingested_at
		FROM raw_observations
		GROUP BY source_file
		ORDER BY source_file
	`

	var sources []*SourceSummary
	if err := r.db.SelectContext(ctx, "list_sources", &sources, query); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return sources, nil
}

// GetSource summarizes a single ingested source file
func (r *observationRepository) GetSource(ctx context.Context, sourceFile string) (*SourceSummary, error) {
	query := `
		SELECT source_file, COUNT(*) AS row_count, MAX(created_at) AS ingested_at
		FROM raw_observations
		WHERE source_file = $1
		GROUP BY source_file
	`

	var summary SourceSummary
	err := r.db.GetContext(ctx, "get_source", &summary, query, sourceFile)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &NotFoundError{Resource: "source_file", ID: sourceFile}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get source: %w", err)
	}
	return &summary, nil
}

// HealthCheck performs a repository health check
func (r *observationRepository) HealthCheck(ctx context.Context) error {
	return r.db.HealthCheck(ctx)
}

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Resource, e.ID)
}

func (e *NotFoundError) IsTransient() bool {
	return false
}
