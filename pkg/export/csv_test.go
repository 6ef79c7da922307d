package export

import (
	"bytes"
	"encoding/csv"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func sampleDataset() Dataset {
	return Dataset{
		Title: "Revenue",
		Columns: []Column{
			{Label: "Invoice", Type: ColumnString},
			{Label: "Amount", Type: ColumnNumber},
			{Label: "Paid At", Type: ColumnDate},
			{Label: "Settled", Type: ColumnBoolean},
		},
		Rows: [][]interface{}{
			{"INV-001", 1250.5, time.Date(2026, time.January, 15, 8, 30, 0, 0, time.UTC), true},
			{"INV-002", float64(80), nil, false},
		},
	}
}

func TestCSVExporterRoundTrip(t *testing.T) {
	out, err := NewCSVExporter().Render(sampleDataset())
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	require.Equal(t, []string{"Invoice", "Amount", "Paid At", "Settled"}, records[0])
	require.Equal(t, []string{"INV-001", "1250.5", "2026-01-15 08:30:00", "true"}, records[1])
	require.Equal(t, []string{"INV-002", "80", "", "false"}, records[2])
}

func TestCSVExporterEscapesSpecialCharacters(t *testing.T) {
	data := Dataset{
		Columns: []Column{{Label: "Note", Type: ColumnString}},
		Rows: [][]interface{}{
			{`comma, quote " and` + "\nnewline"},
		},
	}
	out, err := NewCSVExporter().Render(data)
	require.NoError(t, err)

	records, err := csv.NewReader(bytes.NewReader(out)).ReadAll()
	require.NoError(t, err)
	require.Equal(t, `comma, quote " and`+"\nnewline", records[1][0])
}

func TestCSVExporterRequiresColumns(t *testing.T) {
	_, err := NewCSVExporter().Render(Dataset{})
	require.Error(t, err)
}

func TestCellStringNumberPrecision(t *testing.T) {
	require.Equal(t, "0.1", CellString(0.1, ColumnNumber))
	require.Equal(t, "1250.5", CellString(1250.5, ColumnNumber))
	require.Equal(t, "3", CellString(float64(3), ColumnNumber))
	require.Equal(t, "", CellString(nil, ColumnNumber))
}
