// Package readings drives the ingest pipeline: normalize the payload,
// append it to the store, then fan it out to live subscribers.
package readings

import (
	"context"
	"errors"
	"io"

	broadcast "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Broadcast"
	export "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Export"
	logger "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Logger"
	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
	normalizer "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Normalizer"
	interfaces "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Repository/Interfaces"
)

// ErrNoData marks an export against an empty history. An empty result is
// reported explicitly so it cannot be mistaken for a valid zero-row dataset.
var ErrNoData = errors.New("no data")

// Service wires the normalizer, the reading store and the broadcast hub
// behind the boundary operations the transport layer calls.
type Service struct {
	repo   interfaces.ReadingRepository
	hub    *broadcast.Hub
	logger *logger.Logger
}

// NewService creates the ingest pipeline service.
func NewService(repo interfaces.ReadingRepository, hub *broadcast.Hub, log *logger.Logger) *Service {
	return &Service{
		repo:   repo,
		hub:    hub,
		logger: log,
	}
}

// Ingest normalizes a live device payload, stores it and publishes it to
// every live subscriber. Validation failures never touch the store; store
// failures propagate; delivery failures never surface here.
func (s *Service) Ingest(ctx context.Context, raw map[string]interface{}) (*pbdmodels.StoredReading, error) {
	reading, err := normalizer.Normalize(raw)
	if err != nil {
		return nil, err
	}
	return s.storeAndPublish(ctx, reading)
}

// IngestSample runs the same pipeline for a training-sample capture, where
// the label comes from the payload and defaults to unlabeled.
func (s *Service) IngestSample(ctx context.Context, raw map[string]interface{}) (*pbdmodels.StoredReading, error) {
	reading, err := normalizer.NormalizeSample(raw)
	if err != nil {
		return nil, err
	}
	return s.storeAndPublish(ctx, reading)
}

func (s *Service) storeAndPublish(ctx context.Context, reading pbdmodels.Reading) (*pbdmodels.StoredReading, error) {
	stored, err := s.repo.InsertReading(ctx, reading)
	if err != nil {
		s.logger.ErrorWithError(err, "Failed to store reading")
		return nil, err
	}

	// Fire-and-forget fan-out; a slow subscriber never fails the ingest.
	s.hub.Publish(*stored)

	s.logger.Logger.Debug().
		Int64("id", stored.ID).
		Str("device_id", stored.DeviceID).
		Msg("Reading stored")
	return stored, nil
}

// Latest returns the most recent reading, optionally for one device, or nil
// when the store holds no matching rows.
func (s *Service) Latest(ctx context.Context, deviceID string) (*pbdmodels.StoredReading, error) {
	return s.repo.LatestReading(ctx, deviceID)
}

// OpenLiveStream registers a live subscriber. The caller owns the returned
// handle and must pass it to CloseLiveStream when the connection ends.
func (s *Service) OpenLiveStream() *broadcast.Subscriber {
	return s.hub.Register()
}

// CloseLiveStream deregisters a live subscriber; safe to call twice.
func (s *Service) CloseLiveStream(sub *broadcast.Subscriber) {
	s.hub.Deregister(sub)
}

// ExportCSV streams the ordered history (optionally one device's) as CSV.
// Returns ErrNoData instead of a header-only file when nothing matches.
func (s *Service) ExportCSV(ctx context.Context, w io.Writer, deviceID string, schema export.Schema) error {
	if err := s.requireData(ctx, deviceID); err != nil {
		return err
	}

	it, err := s.repo.ScanReadings(ctx, deviceID)
	if err != nil {
		return err
	}
	defer it.Close()

	return export.WriteCSV(w, it, schema)
}

// ExportXLSX renders the ordered history as a spreadsheet. Returns ErrNoData
// when nothing matches.
func (s *Service) ExportXLSX(ctx context.Context, deviceID string) ([]byte, error) {
	if err := s.requireData(ctx, deviceID); err != nil {
		return nil, err
	}

	it, err := s.repo.ScanReadings(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	defer it.Close()

	return export.WriteXLSX(it)
}

func (s *Service) requireData(ctx context.Context, deviceID string) error {
	latest, err := s.repo.LatestReading(ctx, deviceID)
	if err != nil {
		return err
	}
	if latest == nil {
		return ErrNoData
	}
	return nil
}

// Stats reports the stored row count and the latest reading.
func (s *Service) Stats(ctx context.Context) (*interfaces.SummaryStats, error) {
	return s.repo.GetSummaryStats(ctx)
}
