package pbdmodels

import (
	"time"
)

// DefaultDeviceID is assigned when an incoming payload carries no device
// identifier.
const DefaultDeviceID = "unknown"

// DefaultCondition is assigned to live ingest readings that carry no
// condition label.
const DefaultCondition = "ok"

// Reading is the canonical sensor sample produced by the normalizer. The
// four measurements are mandatory; DeviceID, PumpState and Condition carry
// defaults when the payload omits them.
type Reading struct {
	DeviceID     string  `json:"device_id"`
	SoilMoisture float64 `json:"soil_moisture"`
	LightLevel   float64 `json:"light_level"`
	Temperature  float64 `json:"temperature"`
	Humidity     float64 `json:"humidity"`
	PumpState    int     `json:"pump_state"`
	Condition    string  `json:"condition"`
}

// StoredReading is a Reading after the repository has assigned its
// surrogate key and timestamp. Stored readings are immutable.
type StoredReading struct {
	ID         int64     `json:"id"`
	RecordedAt time.Time `json:"recorded_at"`
	Reading
}
