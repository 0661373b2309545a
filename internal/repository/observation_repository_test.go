package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"climatescope/internal/models"
	"climatescope/pkg/database"
	"climatescope/pkg/logging"
	"climatescope/pkg/metrics"
)

func newMockRepo(t *testing.T) (ObservationRepository, sqlmock.Sqlmock, *metrics.Collector) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	mc := metrics.NewCollectorWithRegistry("climatescope_test", prometheus.NewRegistry())
	db := database.NewPostgresDBFromConn(sqlx.NewDb(conn, "postgres"), &database.Config{Database: "test"}, logging.NewNopLogger(), mc)
	return NewObservationRepository(db, logging.NewNopLogger(), mc), mock, mc
}

func rawRows(n int) []*models.RawObservation {
	rows := make([]*models.RawObservation, n)
	for i := range rows {
		raw := &models.RawObservation{SourceFile: "lima.csv"}
		raw.SetCell(models.ColLastUpdated, "2024-05-16 13:15")
		raw.SetCell(models.ColTemperature, "22")
		raw.SetCell(models.ColCountry, "Peru")
		raw.SetCell(models.ColRegion, "South America")
		rows[i] = raw
	}
	return rows
}

func TestReplaceSource_CommitsAllBatches(t *testing.T) {
	repo, mock, _ := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM raw_observations").
		WithArgs("lima.csv").
		WillReturnResult(sqlmock.NewResult(0, 4))
	prep := mock.ExpectPrepare("INSERT INTO raw_observations")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(2, 1))
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(3, 1))
	mock.ExpectCommit()

	n, err := repo.ReplaceSource(context.Background(), "lima.csv", rawRows(3), 2)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReplaceSource_InsertFailureRollsBackEverything(t *testing.T) {
	repo, mock, mc := newMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec("DELETE FROM raw_observations").
		WithArgs("lima.csv").
		WillReturnResult(sqlmock.NewResult(0, 0))
	prep := mock.ExpectPrepare("INSERT INTO raw_observations")
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errors.New("value too long"))
	mock.ExpectRollback()

	// the first batch is already written when the second one fails, but
	// the rollback discards it too
	n, err := repo.ReplaceSource(context.Background(), "lima.csv", rawRows(2), 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to insert observation")
	assert.Equal(t, 0, n)
	assert.Equal(t, 1.0, testutil.ToFloat64(mc.IngestionErrorsTotal.WithLabelValues("insert_error")))
	assert.NoError(t, mock.ExpectationsWereMet())
}
