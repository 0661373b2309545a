package services

import (
	"context"

	"climatescope/internal/models"
	"climatescope/internal/repository"
	"climatescope/pkg/logging"
	"climatescope/pkg/metrics"
)

// ObservationService exposes the raw observation table written by the
// ingester
type ObservationService struct {
	repo    repository.ObservationRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewObservationService creates a new observation service
func NewObservationService(repo repository.ObservationRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *ObservationService {
	return &ObservationService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// GetObservations pages through raw observations with filtering
func (s *ObservationService) GetObservations(ctx context.Context, filter repository.ObservationFilter) ([]*models.RawObservation, int, error) {
	return s.repo.ListObservations(ctx, filter)
}

// GetSources lists every ingested source file
func (s *ObservationService) GetSources(ctx context.Context) ([]*repository.SourceSummary, error) {
	return s.repo.ListSources(ctx)
}

// GetSource describes one ingested source file
func (s *ObservationService) GetSource(ctx context.Context, sourceFile string) (*repository.SourceSummary, error) {
	return s.repo.GetSource(ctx, sourceFile)
}

// HealthCheck checks the backing database
func (s *ObservationService) HealthCheck(ctx context.Context) error {
	return s.repo.HealthCheck(ctx)
}
