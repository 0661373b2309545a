package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"climatescope/internal/dataset"
	"climatescope/internal/repository"
	"climatescope/pkg/logging"
	"climatescope/pkg/metrics"
)

// IngestionService copies raw observation tables from CSV/XLSX files into
// the PostgreSQL input table
type IngestionService struct {
	repo    repository.ObservationRepository
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// IngestionResult contains ingestion statistics
type IngestionResult struct {
	TotalFiles    int
	TotalRecords  int
	StoredRecords int
	UsableRecords int
	Duration      time.Duration
	Errors        []string
}

// FileIngestionResult contains per-file ingestion statistics
type FileIngestionResult struct {
	SourceFile    string
	TotalRecords  int
	StoredRecords int
	// UsableRecords is how many stored rows survive normalization
	UsableRecords int
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(repo repository.ObservationRepository, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *IngestionService {
	return &IngestionService{
		repo:    repo,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// IngestDirectory ingests every CSV and XLSX file in dataDir
func (s *IngestionService) IngestDirectory(ctx context.Context, dataDir string, batchSize int) (*IngestionResult, error) {
	startTime := time.Now()

	s.logger.Info(ctx, "[INGEST_START] Starting data ingestion", logging.Fields{
		"data_dir":   dataDir,
		"batch_size": batchSize,
		"stage":      "INITIALIZATION",
	})

	var files []string
	for _, pattern := range []string{"*.csv", "*.xlsx", "*.xlsm"} {
		matches, err := filepath.Glob(filepath.Join(dataDir, pattern))
		if err != nil {
			return nil, fmt.Errorf("failed to read directory: %w", err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no data files found in %s", dataDir)
	}
	sort.Strings(files)

	result := &IngestionResult{TotalFiles: len(files), Errors: make([]string, 0)}

	s.logger.Info(ctx, "[INGEST_FILES] Found data files", logging.Fields{
		"file_count": len(files),
		"stage":      "FILE_DISCOVERY",
	})

	for _, filePath := range files {
		fileResult, err := s.IngestFile(ctx, filePath, "", batchSize)
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("failed to ingest %s: %v", filePath, err))
			continue
		}
		result.TotalRecords += fileResult.TotalRecords
		result.StoredRecords += fileResult.StoredRecords
		result.UsableRecords += fileResult.UsableRecords
	}

	result.Duration = time.Since(startTime)

	s.logger.Info(ctx, "[INGEST_COMPLETE] Data ingestion completed", logging.Fields{
		"total_files":      result.TotalFiles,
		"total_records":    result.TotalRecords,
		"stored_records":   result.StoredRecords,
		"usable_records":   result.UsableRecords,
		"duration_seconds": result.Duration.Seconds(),
		"error_count":      len(result.Errors),
		"stage":            "COMPLETE",
	})

	return result, nil
}

// IngestFile stores the raw table of one file under its base name,
// replacing rows from an earlier ingestion of the same file. The table is
// schema-checked first so files the loader would reject are never stored.
func (s *IngestionService) IngestFile(ctx context.Context, filePath, sheet string, batchSize int) (*FileIngestionResult, error) {
	sourceFile := filepath.Base(filePath)

	src, err := dataset.SourceForPath(filePath, sheet)
	if err != nil {
		s.recordFileError(ctx, filePath, "unsupported_format", err)
		return nil, err
	}

	table, err := src.Read(ctx)
	if err != nil {
		s.recordFileError(ctx, filePath, "read_error", err)
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	ds, err := dataset.Normalize(table)
	if err != nil {
		s.recordFileError(ctx, filePath, "schema_error", err)
		return nil, err
	}

	rows := dataset.RawFromTable(table)
	for _, r := range rows {
		r.SourceFile = sourceFile
	}

	stored, err := s.repo.ReplaceSource(ctx, sourceFile, rows, batchSize)
	if err != nil {
		s.recordFileError(ctx, filePath, "db_error", err)
		return nil, fmt.Errorf("failed to store rows: %w", err)
	}

	result := &FileIngestionResult{
		SourceFile:    sourceFile,
		TotalRecords:  len(table.Rows),
		StoredRecords: stored,
		UsableRecords: ds.Len(),
	}

	s.logger.Info(ctx, "[INGEST_FILE_SUCCESS] File ingested successfully", logging.Fields{
		"file_path":      filePath,
		"source_file":    sourceFile,
		"total_records":  result.TotalRecords,
		"stored_records": result.StoredRecords,
		"usable_records": result.UsableRecords,
		"columns":        strings.Join(table.Header, ","),
		"stage":          "FILE_COMPLETE",
	})
	return result, nil
}

func (s *IngestionService) recordFileError(ctx context.Context, filePath, errorType string, err error) {
	s.metrics.RecordIngestionError(errorType)
	s.logger.Error(ctx, "[INGEST_FILE_ERROR] File ingestion failed", logging.Fields{
		"file_path":  filePath,
		"error_type": errorType,
		"stage":      "FILE_PROCESSING",
	}, err)
}
