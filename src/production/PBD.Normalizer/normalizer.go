package normalizer

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
)

// Field alias tables. For each canonical field the first alias present with
// a non-null value wins. Presence is an explicit nil check: a legitimate 0
// (or false, or "") is a value, never "absent".
var (
	soilAliases      = []string{"soil", "soil_moisture", "soil_moisture_pct", "soil_moisture_raw"}
	lightAliases     = []string{"light", "light_level", "light_lux", "ldr"}
	tempAliases      = []string{"temp", "temperature", "temperature_c"}
	humidityAliases  = []string{"humidity", "hum", "humidity_pct"}
	pumpAliases      = []string{"pump", "pump_state"}
	deviceAliases    = []string{"device_id", "device"}
	conditionAliases = []string{"condition", "label"}
)

// Canonical names reported in ValidationError, in fixed order.
const (
	fieldSoil     = "soil"
	fieldLight    = "light"
	fieldTemp     = "temp"
	fieldHumidity = "humidity"
)

// ValidationError reports every mandatory field absent from a payload.
type ValidationError struct {
	MissingFields []string `json:"missing_fields"`
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("missing fields: %s", strings.Join(e.MissingFields, ", "))
}

// Normalize maps a loosely-structured payload onto a canonical Reading for
// live ingest. The condition label defaults to "ok" when absent.
func Normalize(raw map[string]interface{}) (pbdmodels.Reading, error) {
	return normalize(raw, pbdmodels.DefaultCondition)
}

// NormalizeSample maps a payload captured for training. The label comes
// from the payload itself and defaults to "" (unlabeled) when absent.
func NormalizeSample(raw map[string]interface{}) (pbdmodels.Reading, error) {
	return normalize(raw, "")
}

func normalize(raw map[string]interface{}, defaultCondition string) (pbdmodels.Reading, error) {
	var missing []string

	soil, ok := resolveNumber(raw, soilAliases)
	if !ok {
		missing = append(missing, fieldSoil)
	}
	light, ok := resolveNumber(raw, lightAliases)
	if !ok {
		missing = append(missing, fieldLight)
	}
	temp, ok := resolveNumber(raw, tempAliases)
	if !ok {
		missing = append(missing, fieldTemp)
	}
	humidity, ok := resolveNumber(raw, humidityAliases)
	if !ok {
		missing = append(missing, fieldHumidity)
	}

	if len(missing) > 0 {
		return pbdmodels.Reading{}, &ValidationError{MissingFields: missing}
	}

	reading := pbdmodels.Reading{
		DeviceID:     pbdmodels.DefaultDeviceID,
		SoilMoisture: soil,
		LightLevel:   light,
		Temperature:  temp,
		Humidity:     humidity,
		Condition:    defaultCondition,
	}

	if pump, ok := resolveNumber(raw, pumpAliases); ok {
		reading.PumpState = int(pump)
	}
	if device, ok := resolveString(raw, deviceAliases); ok {
		reading.DeviceID = device
	}
	if condition, ok := resolveString(raw, conditionAliases); ok {
		reading.Condition = condition
	}

	return reading, nil
}

// resolveNumber walks the alias list and returns the first present,
// non-null value coerced to float64. Device firmware and serial relays
// deliver numbers as JSON numbers, integers, or bare strings.
func resolveNumber(raw map[string]interface{}, aliases []string) (float64, bool) {
	for _, alias := range aliases {
		v, present := raw[alias]
		if !present || v == nil {
			continue
		}
		if f, ok := coerceNumber(v); ok {
			return f, true
		}
	}
	return 0, false
}

func coerceNumber(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, !math.IsNaN(n)
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case bool:
		if n {
			return 1, true
		}
		return 0, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func resolveString(raw map[string]interface{}, aliases []string) (string, bool) {
	for _, alias := range aliases {
		v, present := raw[alias]
		if !present || v == nil {
			continue
		}
		if s, ok := v.(string); ok {
			return s, true
		}
	}
	return "", false
}
