package implementation

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
	interfaces "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Repository/Interfaces"
)

func setupMockRepo(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *SQLiteReadingRepository) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	repo := NewSQLiteReadingRepository(db)
	return db, mock, repo
}

func sampleReading() pbdmodels.Reading {
	return pbdmodels.Reading{
		DeviceID:     "greenhouse-1",
		SoilMoisture: 45,
		LightLevel:   300,
		Temperature:  22.5,
		Humidity:     60,
		PumpState:    1,
		Condition:    "dry",
	}
}

func readingRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "device_id", "recorded_at", "soil_moisture", "light_level",
		"temperature", "humidity", "pump_state", "condition",
	})
}

func TestInsertReading_AssignsIDAndTimestamp(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	now := time.Date(2026, 3, 14, 9, 26, 53, 589793, time.UTC)
	repo.now = func() time.Time { return now }

	mock.ExpectExec("INSERT INTO plant_data").
		WithArgs("greenhouse-1", now.Truncate(time.Second), 45.0, 300.0, 22.5, 60.0, 1, "dry").
		WillReturnResult(sqlmock.NewResult(7, 1))

	stored, err := repo.InsertReading(context.Background(), sampleReading())

	require.NoError(t, err)
	assert.Equal(t, int64(7), stored.ID)
	assert.Equal(t, now.Truncate(time.Second), stored.RecordedAt)
	assert.Equal(t, sampleReading(), stored.Reading)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertReading_TimestampNeverRunsBackwards(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	later := time.Date(2026, 3, 14, 9, 27, 0, 0, time.UTC)
	earlier := later.Add(-2 * time.Second)

	clock := []time.Time{later, earlier}
	repo.now = func() time.Time {
		ts := clock[0]
		clock = clock[1:]
		return ts
	}

	mock.ExpectExec("INSERT INTO plant_data").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectExec("INSERT INTO plant_data").
		WillReturnResult(sqlmock.NewResult(2, 1))

	first, err := repo.InsertReading(context.Background(), sampleReading())
	require.NoError(t, err)
	second, err := repo.InsertReading(context.Background(), sampleReading())
	require.NoError(t, err)

	// The wall clock stepped backwards; recorded_at must not.
	assert.Equal(t, later, first.RecordedAt)
	assert.Equal(t, later, second.RecordedAt)
	assert.Greater(t, second.ID, first.ID)
}

func TestInsertReading_StoreErrorPropagates(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	mock.ExpectExec("INSERT INTO plant_data").
		WillReturnError(errors.New("disk I/O error"))

	_, err := repo.InsertReading(context.Background(), sampleReading())

	var serr *interfaces.StoreError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "insert", serr.Op)
}

func TestLatestReading_NoRows(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM plant_data ORDER BY id DESC").
		WillReturnError(sql.ErrNoRows)

	reading, err := repo.LatestReading(context.Background(), "")

	require.NoError(t, err)
	assert.Nil(t, reading)
}

func TestLatestReading_DeviceFilter(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	recordedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	rows := readingRows().
		AddRow(int64(3), "greenhouse-1", recordedAt, 45.0, 300.0, 22.5, 60.0, 1, "dry")

	mock.ExpectQuery("SELECT (.+) FROM plant_data WHERE device_id").
		WithArgs("greenhouse-1").
		WillReturnRows(rows)

	reading, err := repo.LatestReading(context.Background(), "greenhouse-1")

	require.NoError(t, err)
	require.NotNil(t, reading)
	assert.Equal(t, int64(3), reading.ID)
	assert.Equal(t, recordedAt, reading.RecordedAt)
	assert.Equal(t, 45.0, reading.SoilMoisture)
	assert.Equal(t, "dry", reading.Condition)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScanReadings_InsertionOrder(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	base := time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)
	rows := readingRows().
		AddRow(int64(1), "unknown", base, 10.0, 100.0, 20.0, 50.0, 0, "ok").
		AddRow(int64(2), "unknown", base, 11.0, 110.0, 21.0, 51.0, 0, "ok").
		AddRow(int64(3), "unknown", base.Add(time.Second), 12.0, 120.0, 22.0, 52.0, 1, "ok")

	mock.ExpectQuery("SELECT (.+) FROM plant_data ORDER BY recorded_at, id").
		WillReturnRows(rows)

	it, err := repo.ScanReadings(context.Background(), "")
	require.NoError(t, err)
	defer it.Close()

	var ids []int64
	for it.Next() {
		ids = append(ids, it.Reading().ID)
	}
	require.NoError(t, it.Err())
	assert.Equal(t, []int64{1, 2, 3}, ids)
}

func TestGetSummaryStats(t *testing.T) {
	db, mock, repo := setupMockRepo(t)
	defer db.Close()

	mock.ExpectQuery("SELECT COUNT").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(int64(42)))

	recordedAt := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	mock.ExpectQuery("SELECT (.+) FROM plant_data ORDER BY id DESC").
		WillReturnRows(readingRows().
			AddRow(int64(42), "unknown", recordedAt, 45.0, 300.0, 22.5, 60.0, 0, "ok"))

	stats, err := repo.GetSummaryStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(42), stats.Count)
	require.NotNil(t, stats.Latest)
	assert.Equal(t, int64(42), stats.Latest.ID)
}
