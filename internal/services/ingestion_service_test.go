package services

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatescope/internal/models"
	"climatescope/internal/repository"
	"climatescope/pkg/logging"
)

const ingestCSV = `last_updated,latitude,longitude,temperature_celsius,humidity,pressure_mb,wind_kph,uv_index,normalized_country,geographic_region,location_name
2024-05-16 13:15,51.5,-0.12,18.0,70,1012,15.1,4,United Kingdom,Europe,London
2024-05-17 09:00,48.85,2.35,21.0,,1010,,5,France,Europe,Paris
not-a-date,35.68,139.69,22.0,65,1008,8.0,6,Japan,Asia,Tokyo
`

// recordingRepo stores whatever ReplaceSource receives, keyed by source
type recordingRepo struct {
	repository.ObservationRepository
	stored     map[string][]*models.RawObservation
	batchSizes []int
	err        error
}

func newRecordingRepo() *recordingRepo {
	return &recordingRepo{stored: make(map[string][]*models.RawObservation)}
}

func (r *recordingRepo) ReplaceSource(_ context.Context, sourceFile string, rows []*models.RawObservation, batchSize int) (int, error) {
	if r.err != nil {
		return 0, r.err
	}
	r.stored[sourceFile] = rows
	r.batchSizes = append(r.batchSizes, batchSize)
	return len(rows), nil
}

func writeDataFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestIngestFile_StoresRawRowsUnderBaseName(t *testing.T) {
	repo := newRecordingRepo()
	svc := NewIngestionService(repo, logging.NewNopLogger(), testMetrics())
	path := writeDataFile(t, t.TempDir(), "may.csv", ingestCSV)

	result, err := svc.IngestFile(context.Background(), path, "", 500)
	require.NoError(t, err)

	assert.Equal(t, "may.csv", result.SourceFile)
	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, 3, result.StoredRecords)
	assert.Equal(t, 2, result.UsableRecords)

	rows := repo.stored["may.csv"]
	require.Len(t, rows, 3)
	assert.Equal(t, "may.csv", rows[0].SourceFile)
	assert.Equal(t, "London", rows[0].Cell("location_name"))
	assert.Equal(t, "", rows[1].Cell("humidity"), "blank cells are stored as NULL")
	assert.Equal(t, "not-a-date", rows[2].Cell("last_updated"), "rows are stored before cleaning")
	assert.Equal(t, []int{500}, repo.batchSizes)
}

func TestIngestFile_RejectsMissingColumns(t *testing.T) {
	repo := newRecordingRepo()
	mc := testMetrics()
	svc := NewIngestionService(repo, logging.NewNopLogger(), mc)
	path := writeDataFile(t, t.TempDir(), "bad.csv", "latitude,longitude\n1,2\n")

	_, err := svc.IngestFile(context.Background(), path, "", 100)

	var loadErr *models.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, models.LoadMalformedSchema, loadErr.Kind)
	assert.Empty(t, repo.stored)
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.IngestionErrorsTotal.WithLabelValues("schema_error")))
}

func TestIngestFile_UnsupportedFormat(t *testing.T) {
	svc := NewIngestionService(newRecordingRepo(), logging.NewNopLogger(), testMetrics())
	path := writeDataFile(t, t.TempDir(), "data.json", "{}")

	_, err := svc.IngestFile(context.Background(), path, "", 100)

	var loadErr *models.LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, models.LoadUnsupportedFormat, loadErr.Kind)
}

func TestIngestFile_RepositoryFailure(t *testing.T) {
	repo := newRecordingRepo()
	repo.err = errors.New("connection refused")
	mc := testMetrics()
	svc := NewIngestionService(repo, logging.NewNopLogger(), mc)
	path := writeDataFile(t, t.TempDir(), "may.csv", ingestCSV)

	_, err := svc.IngestFile(context.Background(), path, "", 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to store rows")
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.IngestionErrorsTotal.WithLabelValues("db_error")))
}

func TestIngestDirectory(t *testing.T) {
	dir := t.TempDir()
	writeDataFile(t, dir, "a.csv", ingestCSV)
	writeDataFile(t, dir, "b.csv", "latitude\n1\n")
	writeDataFile(t, dir, "notes.txt", "ignored")

	repo := newRecordingRepo()
	svc := NewIngestionService(repo, logging.NewNopLogger(), testMetrics())

	result, err := svc.IngestDirectory(context.Background(), dir, 1000)
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalFiles)
	assert.Equal(t, 3, result.TotalRecords)
	assert.Equal(t, 3, result.StoredRecords)
	assert.Equal(t, 2, result.UsableRecords)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "b.csv")
	assert.Contains(t, repo.stored, "a.csv")
}

func TestIngestDirectory_NoFiles(t *testing.T) {
	svc := NewIngestionService(newRecordingRepo(), logging.NewNopLogger(), testMetrics())

	_, err := svc.IngestDirectory(context.Background(), t.TempDir(), 100)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no data files found")
}
