package implementation

import (
	"context"
	"database/sql"
	"sync"
	"time"

	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
	interfaces "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Repository/Interfaces"
)

const readingColumns = `id, device_id, recorded_at, soil_moisture, light_level, temperature, humidity, pump_state, condition`

// SQLiteReadingRepository persists readings in a single SQLite table. The
// insert mutex keeps recorded_at assignment and the append itself in one
// critical section so id order and recorded_at order always agree.
type SQLiteReadingRepository struct {
	db *sql.DB

	mu     sync.Mutex
	lastTS time.Time
	now    func() time.Time
}

func NewSQLiteReadingRepository(db *sql.DB) *SQLiteReadingRepository {
	return &SQLiteReadingRepository{db: db, now: time.Now}
}

func (r *SQLiteReadingRepository) InsertReading(ctx context.Context, reading pbdmodels.Reading) (*pbdmodels.StoredReading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	recordedAt := r.nextTimestamp()

	query := `
		INSERT INTO plant_data
		(device_id, recorded_at, soil_moisture, light_level, temperature, humidity, pump_state, condition)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	res, err := r.db.ExecContext(ctx, query,
		reading.DeviceID,
		recordedAt,
		reading.SoilMoisture,
		reading.LightLevel,
		reading.Temperature,
		reading.Humidity,
		reading.PumpState,
		reading.Condition,
	)
	if err != nil {
		return nil, &interfaces.StoreError{Op: "insert", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, &interfaces.StoreError{Op: "insert", Err: err}
	}

	return &pbdmodels.StoredReading{
		ID:         id,
		RecordedAt: recordedAt,
		Reading:    reading,
	}, nil
}

// nextTimestamp assigns the store clock, clamped so it never runs backwards
// across inserts. Second precision matches the original export format and
// leaves id as the tie-breaker. Callers must hold the insert mutex.
func (r *SQLiteReadingRepository) nextTimestamp() time.Time {
	ts := r.now().UTC().Truncate(time.Second)
	if ts.Before(r.lastTS) {
		ts = r.lastTS
	}
	r.lastTS = ts
	return ts
}

func (r *SQLiteReadingRepository) LatestReading(ctx context.Context, deviceID string) (*pbdmodels.StoredReading, error) {
	query := `SELECT ` + readingColumns + ` FROM plant_data ORDER BY id DESC LIMIT 1`
	args := []interface{}{}
	if deviceID != "" {
		query = `SELECT ` + readingColumns + ` FROM plant_data WHERE device_id = ? ORDER BY id DESC LIMIT 1`
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

func (r *SQLiteReadingRepository) ScanReadings(ctx context.Context, deviceID string) (interfaces.ReadingIterator, error) {
	query := `SELECT ` + readingColumns + ` FROM plant_data ORDER BY recorded_at, id`
	args := []interface{}{}
	if deviceID != "" {
		query = `SELECT ` + readingColumns + ` FROM plant_data WHERE device_id = ? ORDER BY recorded_at, id`
		args = append(args, deviceID)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, &interfaces.StoreError{Op: "scan", Err: err}
	}

	return newRowIterator(rows), nil
}

func (r *SQLiteReadingRepository) GetSummaryStats(ctx context.Context) (*interfaces.SummaryStats, error) {
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

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanReading(s rowScanner) (*pbdmodels.StoredReading, error) {
	var reading pbdmodels.StoredReading
	err := s.Scan(
		&reading.ID,
		&reading.DeviceID,
		&reading.RecordedAt,
		&reading.SoilMoisture,
		&reading.LightLevel,
		&reading.Temperature,
		&reading.Humidity,
		&reading.PumpState,
		&reading.Condition,
	)
	if err != nil {
		return nil, err
	}
	reading.RecordedAt = reading.RecordedAt.UTC()
	return &reading, nil
}

func scanReadingRow(row *sql.Row) (*pbdmodels.StoredReading, error) {
	return scanReading(row)
}

func scanReadingRows(rows *sql.Rows) (*pbdmodels.StoredReading, error) {
	return scanReading(rows)
}
