package export

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	pbdmodels "gitlab.com/plantbuddy1/pbd.data_server/src/production/PBD.Models"
)

// XLSXFilename is the suggested attachment name for spreadsheet exports.
const XLSXFilename = "plant_data.xlsx"

const sheetName = "Plant Data"

// WriteXLSX renders the full history as a spreadsheet with the raw schema
// columns and a styled header row.
func WriteXLSX(src ReadingSource) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for col, title := range rawHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellValue(sheetName, cell, title); err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			return nil, err
		}
	}

	rowNum := 2
	for src.Next() {
		if err := writeXLSXRow(f, rowNum, src.Reading()); err != nil {
			return nil, err
		}
		rowNum++
	}
	if err := src.Err(); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeXLSXRow(f *excelize.File, rowNum int, r *pbdmodels.StoredReading) error {
	values := []interface{}{
		formatTimestamp(r.RecordedAt),
		r.SoilMoisture,
		r.LightLevel,
		r.Temperature,
		r.Humidity,
		r.PumpState,
		r.Condition,
	}
	for col, v := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheetName, cell, v); err != nil {
			return err
		}
	}
	return nil
}
