package normalizer

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
)

func TestNormalize_CanonicalPayload(t *testing.T) {
	raw := map[string]interface{}{
		"soil":     45.0,
		"light":    300.0,
		"temp":     22.5,
		"humidity": 60.0,
		"pump":     1.0,
	}

	reading, err := Normalize(raw)
	require.NoError(t, err)

	assert.Equal(t, 45.0, reading.SoilMoisture)
	assert.Equal(t, 300.0, reading.LightLevel)
	assert.Equal(t, 22.5, reading.Temperature)
	assert.Equal(t, 60.0, reading.Humidity)
	assert.Equal(t, 1, reading.PumpState)
	assert.Equal(t, "ok", reading.Condition)
	assert.Equal(t, pbdmodels.DefaultDeviceID, reading.DeviceID)
}

func TestNormalize_ZeroIsPresent(t *testing.T) {
	raw := map[string]interface{}{
		"soil":     0.0,
		"light":    10.0,
		"temp":     20.0,
		"humidity": 30.0,
	}

	reading, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 0.0, reading.SoilMoisture)
}

func TestNormalize_AliasPriority(t *testing.T) {
	// The first alias in the priority list wins even when later ones are set.
	raw := map[string]interface{}{
		"soil":              12.0,
		"soil_moisture_pct": 99.0,
		"light_lux":         250.0,
		"temperature_c":     18.0,
		"humidity_pct":      55.0,
	}

	reading, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 12.0, reading.SoilMoisture)
	assert.Equal(t, 250.0, reading.LightLevel)
	assert.Equal(t, 18.0, reading.Temperature)
	assert.Equal(t, 55.0, reading.Humidity)
}

func TestNormalize_NullAliasFallsThrough(t *testing.T) {
	// An explicit JSON null does not shadow a later alias.
	raw := map[string]interface{}{
		"soil":              nil,
		"soil_moisture_pct": 40.0,
		"light":             100.0,
		"temp":              21.0,
		"humidity":          50.0,
	}

	reading, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 40.0, reading.SoilMoisture)
}

func TestNormalize_ListsEveryMissingField(t *testing.T) {
	raw := map[string]interface{}{
		"light": 100.0,
	}

	_, err := Normalize(raw)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"soil", "temp", "humidity"}, verr.MissingFields)
	assert.Equal(t, "missing fields: soil, temp, humidity", verr.Error())
}

func TestNormalize_EmptyPayload(t *testing.T) {
	_, err := Normalize(map[string]interface{}{})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"soil", "light", "temp", "humidity"}, verr.MissingFields)
}

func TestNormalize_StringAndNumberCoercion(t *testing.T) {
	// Serial/MQTT relays deliver numbers as strings or json.Number.
	raw := map[string]interface{}{
		"soil":     "45",
		"light":    json.Number("300"),
		"temp":     int64(22),
		"humidity": float32(60),
		"pump":     true,
	}

	reading, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 45.0, reading.SoilMoisture)
	assert.Equal(t, 300.0, reading.LightLevel)
	assert.Equal(t, 22.0, reading.Temperature)
	assert.Equal(t, 60.0, reading.Humidity)
	assert.Equal(t, 1, reading.PumpState)
}

func TestNormalize_DeviceAndCondition(t *testing.T) {
	raw := map[string]interface{}{
		"soil":      1.0,
		"light":     2.0,
		"temp":      3.0,
		"humidity":  4.0,
		"device_id": "greenhouse-2",
		"condition": "dry",
	}

	reading, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, "greenhouse-2", reading.DeviceID)
	assert.Equal(t, "dry", reading.Condition)
}

func TestNormalizeSample_DefaultsToUnlabeled(t *testing.T) {
	raw := map[string]interface{}{
		"soil":     1.0,
		"light":    2.0,
		"temp":     3.0,
		"humidity": 4.0,
	}

	reading, err := NormalizeSample(raw)
	require.NoError(t, err)
	assert.Equal(t, "", reading.Condition)
}

func TestNormalizeSample_ExplicitLabel(t *testing.T) {
	raw := map[string]interface{}{
		"soil":     1.0,
		"light":    2.0,
		"temp":     3.0,
		"humidity": 4.0,
		"label":    "needs_water",
	}

	reading, err := NormalizeSample(raw)
	require.NoError(t, err)
	assert.Equal(t, "needs_water", reading.Condition)
}

func TestNormalizeSample_EmptyLabelIsValid(t *testing.T) {
	raw := map[string]interface{}{
		"soil":     1.0,
		"light":    2.0,
		"temp":     3.0,
		"humidity": 4.0,
		"label":    "",
	}

	reading, err := NormalizeSample(raw)
	require.NoError(t, err)
	assert.Equal(t, "", reading.Condition)
}

func TestNormalize_PumpDefaultsToOff(t *testing.T) {
	raw := map[string]interface{}{
		"soil":     1.0,
		"light":    2.0,
		"temp":     3.0,
		"humidity": 4.0,
	}

	reading, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, reading.PumpState)
}

func TestNormalize_PumpZeroIsPresent(t *testing.T) {
	raw := map[string]interface{}{
		"soil":       1.0,
		"light":      2.0,
		"temp":       3.0,
		"humidity":   4.0,
		"pump_state": 0.0,
	}

	reading, err := Normalize(raw)
	require.NoError(t, err)
	assert.Equal(t, 0, reading.PumpState)
}
