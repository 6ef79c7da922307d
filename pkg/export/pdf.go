package export

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/jung-kurt/gofpdf"
)

// PDFExporter renders datasets into a paginated tabular PDF.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// ContentType returns the MIME type served for PDF downloads.
func (e *PDFExporter) ContentType() string {
	return "application/pdf"
}

// Extension returns the artifact file extension.
func (e *PDFExporter) Extension() string {
	return "pdf"
}

// Render creates a PDF document with the column headers repeated at the top of
// every page and a footer stating the total record count. Cell values longer
// than the fixed column width are truncated, not wrapped.
func (e *PDFExporter) Render(data Dataset) ([]byte, error) {
	if len(data.Columns) == 0 {
		return nil, fmt.Errorf("pdf requires at least one column")
	}

	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetMargins(10, 15, 10)
	pdf.SetAutoPageBreak(true, 20)

	colWidth := 277.0 / float64(len(data.Columns))
	totalRecords := len(data.Rows)

	drawHeader := func() {
		if data.Title != "" {
			pdf.SetFont("Arial", "B", 14)
			pdf.CellFormat(0, 10, strings.ToUpper(data.Title), "", 1, "C", false, 0, "")
			pdf.Ln(2)
		}
		pdf.SetFont("Arial", "B", 10)
		for _, col := range data.Columns {
			pdf.CellFormat(colWidth, 8, truncateToWidth(pdf, col.Label, colWidth-2), "1", 0, "C", false, 0, "")
		}
		pdf.Ln(-1)
		pdf.SetFont("Arial", "", 9)
	}

	pdf.SetHeaderFunc(drawHeader)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "I", 8)
		pdf.CellFormat(0, 10, fmt.Sprintf("Total records: %d", totalRecords), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()

	for _, row := range data.Rows {
		for i, col := range data.Columns {
			var value interface{}
			if i < len(row) {
				value = row[i]
			}
			cell := truncateToWidth(pdf, CellString(value, col.Type), colWidth-2)
			pdf.CellFormat(colWidth, 7, cell, "1", 0, "", false, 0, "")
		}
		pdf.Ln(-1)
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func truncateToWidth(pdf *gofpdf.Fpdf, value string, width float64) string {
	if pdf.GetStringWidth(value) <= width {
		return value
	}
	runes := []rune(value)
	for len(runes) > 0 {
		runes = runes[:len(runes)-1]
		candidate := string(runes) + "..."
		if pdf.GetStringWidth(candidate) <= width {
			return candidate
		}
	}
	return ""
}
