package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func validTemplate() *ReportTemplate {
	return &ReportTemplate{
		ID:         "tpl-1",
		DataSource: "payments",
		Columns: ReportColumns{
			{Field: "department", Label: "Department", Type: ColumnTypeString},
			{Field: "amount", Label: "Total", Type: ColumnTypeNumber, Aggregate: AggregateSum},
		},
		Filters: ReportFilters{
			{Field: "status", Operator: OpEq},
		},
	}
}

func TestReportTemplateValidate(t *testing.T) {
	require.NoError(t, validTemplate().Validate())

	tpl := validTemplate()
	tpl.Columns = nil
	require.Error(t, tpl.Validate())

	tpl = validTemplate()
	tpl.Columns[1].Label = "Department"
	require.Error(t, tpl.Validate())

	tpl = validTemplate()
	tpl.Columns[0].Type = "decimal"
	require.Error(t, tpl.Validate())

	tpl = validTemplate()
	tpl.Columns[1].Aggregate = "median"
	require.Error(t, tpl.Validate())

	tpl = validTemplate()
	tpl.Filters[0].Operator = "like"
	require.Error(t, tpl.Validate())

	tpl = validTemplate()
	tpl.SortBy = SortKeys{{Field: "amount", Direction: "down"}}
	require.Error(t, tpl.Validate())
}

func TestReportColumnsScanFromJSONB(t *testing.T) {
	var cols ReportColumns
	raw := []byte(`[{"field":"amount","label":"Total","type":"number","aggregate":"sum"}]`)
	require.NoError(t, cols.Scan(raw))
	require.Len(t, cols, 1)
	require.Equal(t, AggregateSum, cols[0].Aggregate)

	var empty ReportColumns
	require.NoError(t, empty.Scan(nil))
	require.Empty(t, empty)
}

func TestReportFormatProducesFile(t *testing.T) {
	require.True(t, ReportFormatCSV.ProducesFile())
	require.True(t, ReportFormatExcel.ProducesFile())
	require.True(t, ReportFormatPDF.ProducesFile())
	require.False(t, ReportFormatJSON.ProducesFile())
	require.False(t, ReportFormat("docx").Valid())
}
