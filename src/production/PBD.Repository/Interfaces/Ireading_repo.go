package interfaces

import (
	"context"
	"fmt"

	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
)

// StoreError wraps a durability failure from the underlying engine. Store
// errors abort the request that triggered them and are never retried here.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("reading store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// SummaryStats represents aggregate statistics over the stored history
type SummaryStats struct {
	Count  int64                    `json:"count"`
	Latest *pbdmodels.StoredReading `json:"latest,omitempty"`
}

// ReadingRepository is the durable, append-only store of sensor readings.
// Readings are immutable once inserted; there are no update or delete
// operations.
type ReadingRepository interface {
	// InsertReading appends a reading, assigning its id and recorded_at.
	// Safe under concurrent callers: ids are unique and strictly
	// increasing, recorded_at is monotonically non-decreasing.
	InsertReading(ctx context.Context, reading pbdmodels.Reading) (*pbdmodels.StoredReading, error)

	// LatestReading returns the highest-id reading, optionally restricted
	// to a device. Returns (nil, nil) when no matching rows exist.
	LatestReading(ctx context.Context, deviceID string) (*pbdmodels.StoredReading, error)

	// ScanReadings returns a fresh cursor over the full history (or a
	// device subset) ordered by recorded_at then id ascending. The cursor
	// reflects the store's contents at call time and must be closed.
	ScanReadings(ctx context.Context, deviceID string) (ReadingIterator, error)

	// GetSummaryStats reports the row count and latest reading.
	GetSummaryStats(ctx context.Context) (*SummaryStats, error)
}

// ReadingIterator is a forward-only cursor over stored readings. Next
// returns false at the end of the sequence or on error; check Err
// afterwards. The cursor must be closed.
type ReadingIterator interface {
	Next() bool
	Reading() *pbdmodels.StoredReading
	Err() error
	Close() error
}
