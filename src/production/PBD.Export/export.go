package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
)

// Schema selects the column layout of an export.
type Schema string

const (
	// SchemaRaw mirrors the stored table, one column per attribute.
	SchemaRaw Schema = "raw"
	// SchemaTraining is the compact layout consumed by the model
	// training pipeline.
	SchemaTraining Schema = "training"
)

// TimestampLayout is the text form recorded_at renders as in exports.
const TimestampLayout = "2006-01-02 15:04:05"

var rawHeader = []string{
	"timestamp", "soil_moisture", "light_level", "temperature", "humidity", "pump_state", "condition",
}

var trainingHeader = []string{
	"soil", "light", "temp", "humidity", "label",
}

// ParseSchema maps a request parameter onto a Schema.
func ParseSchema(s string) (Schema, error) {
	switch Schema(s) {
	case SchemaRaw, "":
		return SchemaRaw, nil
	case SchemaTraining:
		return SchemaTraining, nil
	default:
		return "", fmt.Errorf("unknown export schema %q", s)
	}
}

// Filename suggests the attachment name for a schema.
func (s Schema) Filename() string {
	if s == SchemaTraining {
		return "plant_training_data.csv"
	}
	return "plant_data_for_ei.csv"
}

// ReadingSource is the forward-only sequence exports consume. The
// repository's ReadingIterator satisfies it.
type ReadingSource interface {
	Next() bool
	Reading() *pbdmodels.StoredReading
	Err() error
}

// WriteCSV renders the source as CSV in the given schema: a header line
// followed by one line per reading, in source order. Output is
// deterministic for a given source sequence.
func WriteCSV(w io.Writer, src ReadingSource, schema Schema) error {
	cw := csv.NewWriter(w)

	header := rawHeader
	if schema == SchemaTraining {
		header = trainingHeader
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	for src.Next() {
		if err := cw.Write(record(src.Reading(), schema)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	if err := src.Err(); err != nil {
		return err
	}

	cw.Flush()
	return cw.Error()
}

func record(r *pbdmodels.StoredReading, schema Schema) []string {
	if schema == SchemaTraining {
		// An unlabeled sample renders as an empty field, not a null marker.
		return []string{
			formatFloat(r.SoilMoisture),
			formatFloat(r.LightLevel),
			formatFloat(r.Temperature),
			formatFloat(r.Humidity),
			r.Condition,
		}
	}
	return []string{
		formatTimestamp(r.RecordedAt),
		formatFloat(r.SoilMoisture),
		formatFloat(r.LightLevel),
		formatFloat(r.Temperature),
		formatFloat(r.Humidity),
		strconv.Itoa(r.PumpState),
		r.Condition,
	}
}

func formatTimestamp(ts time.Time) string {
	return ts.UTC().Format(TimestampLayout)
}

// formatFloat keeps whole readings bare: 45 renders as "45", not "45.000000".
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
