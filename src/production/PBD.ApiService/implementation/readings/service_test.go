package readings

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	broadcast "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Broadcast"
	export "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Export"
	logger "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Logger"
	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
	normalizer "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Normalizer"
	interfaces "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Repository/Interfaces"
)

// memoryRepo is an in-memory stand-in for the SQL repositories, matching
// their id/timestamp assignment semantics.
type memoryRepo struct {
	mu       sync.Mutex
	rows     []pbdmodels.StoredReading
	lastTS   time.Time
	insstamp func() time.Time
	failWith error
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{insstamp: time.Now}
}

func (m *memoryRepo) InsertReading(_ context.Context, reading pbdmodels.Reading) (*pbdmodels.StoredReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}

	ts := m.insstamp().UTC().Truncate(time.Second)
	if ts.Before(m.lastTS) {
		ts = m.lastTS
	}
	m.lastTS = ts

	stored := pbdmodels.StoredReading{
		ID:         int64(len(m.rows) + 1),
		RecordedAt: ts,
		Reading:    reading,
	}
	m.rows = append(m.rows, stored)
	return &stored, nil
}

func (m *memoryRepo) LatestReading(_ context.Context, deviceID string) (*pbdmodels.StoredReading, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for i := len(m.rows) - 1; i >= 0; i-- {
		if deviceID == "" || m.rows[i].DeviceID == deviceID {
			row := m.rows[i]
			return &row, nil
		}
	}
	return nil, nil
}

type memoryIterator struct {
	rows []pbdmodels.StoredReading
	pos  int
}

func (it *memoryIterator) Next() bool {
	if it.pos >= len(it.rows) {
		return false
	}
	it.pos++
	return true
}

func (it *memoryIterator) Reading() *pbdmodels.StoredReading { return &it.rows[it.pos-1] }
func (it *memoryIterator) Err() error                        { return nil }
func (it *memoryIterator) Close() error                      { return nil }

func (m *memoryRepo) ScanReadings(_ context.Context, deviceID string) (interfaces.ReadingIterator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var rows []pbdmodels.StoredReading
	for _, row := range m.rows {
		if deviceID == "" || row.DeviceID == deviceID {
			rows = append(rows, row)
		}
	}
	return &memoryIterator{rows: rows}, nil
}

func (m *memoryRepo) GetSummaryStats(ctx context.Context) (*interfaces.SummaryStats, error) {
	latest, _ := m.LatestReading(ctx, "")
	m.mu.Lock()
	defer m.mu.Unlock()
	return &interfaces.SummaryStats{Count: int64(len(m.rows)), Latest: latest}, nil
}

func newTestService(repo interfaces.ReadingRepository) *Service {
	return NewService(repo, broadcast.NewHub(8, logger.NewNop()), logger.NewNop())
}

func validPayload() map[string]interface{} {
	return map[string]interface{}{
		"soil":      45.0,
		"light":     300.0,
		"temp":      22.5,
		"humidity":  60.0,
		"pump":      1.0,
		"condition": "dry",
	}
}

func TestIngest_ThenLatestRoundTrip(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	stored, err := svc.Ingest(context.Background(), validPayload())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stored.ID)

	latest, err := svc.Latest(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, 45.0, latest.SoilMoisture)
	assert.Equal(t, 300.0, latest.LightLevel)
	assert.Equal(t, 22.5, latest.Temperature)
	assert.Equal(t, 60.0, latest.Humidity)
	assert.Equal(t, 1, latest.PumpState)
	assert.Equal(t, "dry", latest.Condition)
}

func TestIngest_ValidationRejectedBeforeStore(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	_, err := svc.Ingest(context.Background(), map[string]interface{}{"soil": 1.0})

	var verr *normalizer.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"light", "temp", "humidity"}, verr.MissingFields)
	assert.Empty(t, repo.rows)
}

func TestIngest_StoreErrorPropagates(t *testing.T) {
	repo := newMemoryRepo()
	repo.failWith = &interfaces.StoreError{Op: "insert", Err: errors.New("disk full")}
	svc := newTestService(repo)

	_, err := svc.Ingest(context.Background(), validPayload())

	var serr *interfaces.StoreError
	require.ErrorAs(t, err, &serr)
}

func TestIngest_PublishesToLiveSubscribers(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	sub := svc.OpenLiveStream()
	defer svc.CloseLiveStream(sub)

	stored, err := svc.Ingest(context.Background(), validPayload())
	require.NoError(t, err)

	select {
	case got := <-sub.Readings():
		assert.Equal(t, stored.ID, got.ID)
		assert.Equal(t, "dry", got.Condition)
	case <-time.After(time.Second):
		t.Fatal("expected a live delivery")
	}
}

func TestIngestSample_UsesPayloadLabel(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	payload := validPayload()
	delete(payload, "condition")
	payload["label"] = "needs_water"

	stored, err := svc.IngestSample(context.Background(), payload)
	require.NoError(t, err)
	assert.Equal(t, "needs_water", stored.Condition)
}

func TestIngest_ConcurrentCallersLoseNothing(t *testing.T) {
	repo := newMemoryRepo()
	svc := newTestService(repo)

	const workers = 8
	const perWorker = 25

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				_, err := svc.Ingest(context.Background(), validPayload())
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	stats, err := svc.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(workers*perWorker), stats.Count)

	// Ids are unique and strictly increasing in insertion order.
	it, err := repo.ScanReadings(context.Background(), "")
	require.NoError(t, err)
	defer it.Close()

	var prev int64
	for it.Next() {
		assert.Greater(t, it.Reading().ID, prev)
		prev = it.Reading().ID
	}
}

func TestExportCSV_TrainingRow(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	_, err := svc.IngestSample(context.Background(), map[string]interface{}{
		"soil": 45.0, "light": 300.0, "temp": 22.5, "humidity": 60.0,
		"pump": 1.0, "label": "dry",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportCSV(context.Background(), &buf, "", export.SchemaTraining))
	assert.Equal(t, "soil,light,temp,humidity,label\n45,300,22.5,60,dry\n", buf.String())
}

func TestExportCSV_EmptyStoreIsNoData(t *testing.T) {
	svc := newTestService(newMemoryRepo())

	var buf bytes.Buffer
	err := svc.ExportCSV(context.Background(), &buf, "", export.SchemaRaw)
	require.ErrorIs(t, err, ErrNoData)
	assert.Zero(t, buf.Len())

	_, err = svc.ExportXLSX(context.Background(), "")
	assert.ErrorIs(t, err, ErrNoData)
}
