package export

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter renders datasets into a single-sheet xlsx workbook.
type ExcelExporter struct{}

// NewExcelExporter constructs an Excel exporter.
func NewExcelExporter() *ExcelExporter {
	return &ExcelExporter{}
}

// ContentType returns the MIME type served for Excel downloads.
func (e *ExcelExporter) ContentType() string {
	return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
}

// Extension returns the artifact file extension.
func (e *ExcelExporter) Extension() string {
	return "xlsx"
}

const excelSheet = "Report"

// Render writes the dataset into one workbook with a bold header row and one
// data row per result row, preserving result order. Numeric and boolean cells
// keep their native types; only dates get display formatting.
func (e *ExcelExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, fmt.Errorf("excel requires at least one column")
	}

	f := excelize.NewFile()
	defer f.Close() //nolint:errcheck

	index, err := f.NewSheet(excelSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, fmt.Errorf("drop default sheet: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, fmt.Errorf("header style: %w", err)
	}

	for i, col := range data.Columns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return nil, fmt.Errorf("header cell: %w", err)
		}
		if err := f.SetCellValue(excelSheet, cell, col.Label); err != nil {
			return nil, fmt.Errorf("write header %q: %w", col.Label, err)
		}
		if err := f.SetCellStyle(excelSheet, cell, cell, headerStyle); err != nil {
			return nil, fmt.Errorf("style header %q: %w", col.Label, err)
		}
	}

	for rowIdx, row := range data.Rows {
		for colIdx, col := range data.Columns {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return nil, fmt.Errorf("data cell: %w", err)
			}
			var value interface{}
			if colIdx < len(row) {
				value = row[colIdx]
			}
			if err := f.SetCellValue(excelSheet, cell, cellValue(value, col.Type)); err != nil {
				return nil, fmt.Errorf("write cell %s: %w", cell, err)
			}
		}
	}

	for i := range data.Columns {
		name, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			continue
		}
		_ = f.SetColWidth(excelSheet, name, name, 18)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

func cellValue(value interface{}, colType ColumnType) interface{} {
	switch v := value.(type) {
	case nil:
		return ""
	case time.Time:
		return v.UTC().Format(dateDisplayLayout)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(dateDisplayLayout)
	case []byte:
		return string(v)
	default:
		return v
	}
}
