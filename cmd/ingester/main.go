package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize"

	"climatescope/internal/config"
	"climatescope/internal/repository"
	"climatescope/internal/services"
	"climatescope/pkg/database"
	"climatescope/pkg/logging"
	"climatescope/pkg/metrics"
)

func main() {
	// Parse command-line flags
	dataDir := flag.String("data-dir", "./data", "Directory containing CSV/XLSX observation files")
	file := flag.String("file", "", "Ingest a single file instead of a directory")
	sheet := flag.String("sheet", "", "Worksheet to read from XLSX files (default: first sheet)")
	batchSize := flag.Int("batch-size", 1000, "Number of rows per insert batch")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewStructuredLogger("climatescope-ingester", "1.0.0", logging.ParseLevel(cfg.Logging.Level))

	ctx := context.Background()
	logger.Info(ctx, "[INGESTER_START] Starting observation ingestion", logging.Fields{
		"version":    "1.0.0",
		"data_dir":   *dataDir,
		"file":       *file,
		"batch_size": *batchSize,
	})

	metricsCollector := metrics.NewCollector("climatescope_ingester")

	db, err := database.NewPostgresDB(ctx, cfg.Database.Postgres(), logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[INGESTER_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	repo := repository.NewObservationRepository(db, logger, metricsCollector)
	ingestionService := services.NewIngestionService(repo, logger, metricsCollector)

	var result *services.IngestionResult
	if *file != "" {
		fileResult, err := ingestionService.IngestFile(ctx, *file, *sheet, *batchSize)
		if err != nil {
			logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{"file": *file}, err)
		}
		result = &services.IngestionResult{
			TotalFiles:    1,
			TotalRecords:  fileResult.TotalRecords,
			StoredRecords: fileResult.StoredRecords,
			UsableRecords: fileResult.UsableRecords,
		}
	} else {
		result, err = ingestionService.IngestDirectory(ctx, *dataDir, *batchSize)
		if err != nil {
			logger.Fatal(ctx, "[INGESTION_ERROR] Ingestion failed", logging.Fields{"data_dir": *dataDir}, err)
		}
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("INGESTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Files:     %d\n", result.TotalFiles)
	fmt.Printf("Total Rows:      %s\n", humanize.Comma(int64(result.TotalRecords)))
	fmt.Printf("Stored Rows:     %s\n", humanize.Comma(int64(result.StoredRecords)))
	fmt.Printf("Usable Rows:     %s\n", humanize.Comma(int64(result.UsableRecords)))
	if result.Duration > 0 {
		fmt.Printf("Duration:        %v\n", result.Duration)
		fmt.Printf("Rows/Second:     %.2f\n", float64(result.StoredRecords)/result.Duration.Seconds())
	}

	if len(result.Errors) > 0 {
		fmt.Printf("\nErrors (%d):\n", len(result.Errors))
		for i, errMsg := range result.Errors {
			if i < 10 {
				fmt.Printf("  - %s\n", errMsg)
			}
		}
		if len(result.Errors) > 10 {
			fmt.Printf("  ... and %d more errors\n", len(result.Errors)-10)
		}
	}

	logger.Info(ctx, "[INGESTER_COMPLETE] Ingestion completed", logging.Fields{
		"total_records":  result.TotalRecords,
		"stored_records": result.StoredRecords,
		"usable_records": result.UsableRecords,
		"error_count":    len(result.Errors),
	})
}
