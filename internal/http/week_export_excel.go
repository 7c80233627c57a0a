package httpapi

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/xuri/excelize/v2"

	"plantchecks/internal/models"
)

// WeekExportHeader is the export sheet header: one column per weekday after
// the check-item column.
var WeekExportHeader = []string{
	"Check Item", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun",
}

// markSymbol renders a status cell the way the printed sheet does.
func markSymbol(s models.Status) string {
	switch s {
	case models.StatusOK:
		return "✓"
	case models.StatusDefect:
		return "X"
	case models.StatusNA:
		return "N/A"
	default:
		return ""
	}
}

// GenerateWeekExport renders one week record as an .xlsx workbook.
func GenerateWeekExport(rec *models.WeeklyRecord) ([]byte, error) {
	f := excelize.NewFile()
	// WriteTo needs the file open; close only on error paths

	sheetName := "Week Checks"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#FFD600"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	// meta block above the matrix
	meta := [][2]string{
		{"Equipment", strings.ToUpper(rec.EquipmentType)},
		{"Machine No", rec.PlantID},
		{"Site", rec.Site},
		{"Week commencing", rec.WeekCommencing},
	}
	for i, kv := range meta {
		keyCell, _ := excelize.CoordinatesToCellName(1, i+1)
		valCell, _ := excelize.CoordinatesToCellName(2, i+1)
		if err := f.SetCellValue(sheetName, keyCell, kv[0]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set meta cell: %w", err)
		}
		if err := f.SetCellValue(sheetName, valCell, kv[1]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set meta cell: %w", err)
		}
	}

	headerRow := len(meta) + 2
	for col, header := range WeekExportHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, headerRow)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}

	itemCol, _ := excelize.ColumnNumberToName(1)
	if err := f.SetColWidth(sheetName, itemCol, itemCol, 60); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set column width: %w", err)
	}

	for i, label := range rec.Labels {
		row := headerRow + 1 + i
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetCellValue(sheetName, cell, label); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set item cell: %w", err)
		}
		for day := 0; day < models.DaysPerWeek; day++ {
			cell, _ := excelize.CoordinatesToCellName(day+2, row)
			if err := f.SetCellValue(sheetName, cell, markSymbol(rec.Statuses[i][day])); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set status cell: %w", err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close workbook: %w", err)
	}
	return buf.Bytes(), nil
}

var filenameWhitespace = regexp.MustCompile(`\s+`)

func exportFilename(rec *models.WeeklyRecord) string {
	name := fmt.Sprintf("plantchecks-%s-%s-%s.xlsx", rec.EquipmentType, rec.PlantID, rec.WeekCommencing)
	return filenameWhitespace.ReplaceAllString(name, "_")
}
