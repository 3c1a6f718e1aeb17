package implementation

import (
	"context"
	"database/sql"
	"sync"
	"time"

	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
	interfaces "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Repository/Interfaces"
)

// PostgresReadingRepository implements the same append-only contract as the
// SQLite repository on top of Postgres. Ids come from a BIGSERIAL column via
// RETURNING instead of LastInsertId.
type PostgresReadingRepository struct {
	db *sql.DB

	mu     sync.Mutex
	lastTS time.Time
	now    func() time.Time
}

func NewPostgresReadingRepository(db *sql.DB) *PostgresReadingRepository {
	return &PostgresReadingRepository{db: db, now: time.Now}
}

func (r *PostgresReadingRepository) InsertReading(ctx context.Context, reading pbdmodels.Reading) (*pbdmodels.StoredReading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recordedAt := r.now().UTC().Truncate(time.Second)
	if recordedAt.Before(r.lastTS) {
		recordedAt = r.lastTS
	}
	r.lastTS = recordedAt

	query := `
		INSERT INTO plant_data
		(device_id, recorded_at, soil_moisture, light_level, temperature, humidity, pump_state, condition)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		reading.DeviceID,
		recordedAt,
		reading.SoilMoisture,
		reading.LightLevel,
		reading.Temperature,
		reading.Humidity,
		reading.PumpState,
		reading.Condition,
	).Scan(&id)
	if err != nil {
		return nil, &interfaces.StoreError{Op: "insert", Err: err}
	}

	return &pbdmodels.StoredReading{
		ID:         id,
		RecordedAt: recordedAt,
		Reading:    reading,
	}, nil
}

func (r *PostgresReadingRepository) LatestReading(ctx context.Context, deviceID string) (*pbdmodels.StoredReading, error) {
	query := `SELECT ` + readingColumns + ` FROM plant_data ORDER BY id DESC LIMIT 1`
	args := []interface{}{}
	if deviceID != "" {
		query = `SELECT ` + readingColumns + ` FROM plant_data WHERE device_id = $1 ORDER BY id DESC LIMIT 1`
		args = append(args, deviceID)
	}

	row := r.db.QueryRowContext(ctx, query, args...)
	reading, err := scanReadingRow(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, &interfaces.StoreError{Op: "latest", Err: err}
	}
	return reading, nil
}

func (r *PostgresReadingRepository) ScanReadings(ctx context.Context, deviceID string) (interfaces.ReadingIterator, error) {
	query := `SELECT ` + readingColumns + ` FROM plant_data ORDER BY recorded_at, id`
	args := []interface{}{}
	if deviceID != "" {
		query = `SELECT ` + readingColumns + ` FROM plant_data WHERE device_id = $1 ORDER BY recorded_at, id`
		args = append(args, deviceID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &interfaces.StoreError{Op: "scan", Err: err}
	}

	return newRowIterator(rows), nil
}

func (r *PostgresReadingRepository) GetSummaryStats(ctx context.Context) (*interfaces.SummaryStats, error) {
	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM plant_data`).Scan(&count); err != nil {
		return nil, &interfaces.StoreError{Op: "stats", Err: err}
	}

	latest, err := r.LatestReading(ctx, "")
	if err != nil {
		return nil, err
	}

	return &interfaces.SummaryStats{Count: count, Latest: latest}, nil
}
