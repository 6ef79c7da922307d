package query

import (
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hms-report-api/internal/models"
)

func compilePlan(t *testing.T, tpl *models.ReportTemplate, filters []ResolvedFilter, limit, offset int) (*Plan, string, []interface{}) {
	t.Helper()
	plan, err := Build(NewRegistry(), BuildInput{Template: tpl, TenantID: "tenant-1", Filters: filters, Limit: limit, Offset: offset})
	require.NoError(t, err)
	sqlText, args, err := Compile(plan)
	require.NoError(t, err)
	return plan, sqlText, args
}

func TestCompileBasicSelect(t *testing.T) {
	tpl := paymentsTemplate()
	_, sqlText, args := compilePlan(t, tpl, nil, 0, 0)
	require.Equal(t, `SELECT invoice_number AS "Invoice", amount AS "Amount" FROM payments WHERE tenant_id = $1`, sqlText)
	require.Equal(t, []interface{}{"tenant-1"}, args)
}

func TestCompilePredicatesAndPaging(t *testing.T) {
	tpl := paymentsTemplate()
	filters := []ResolvedFilter{
		{Field: "status", Operator: models.OpEq, Value: "paid"},
		{Field: "amount", Operator: models.OpBetween, Low: float64(10), High: float64(500)},
	}
	_, sqlText, args := compilePlan(t, tpl, filters, 100, 20)
	require.Equal(t,
		`SELECT invoice_number AS "Invoice", amount AS "Amount" FROM payments WHERE tenant_id = $1 AND status = $2 AND amount BETWEEN $3 AND $4 LIMIT $5 OFFSET $6`,
		sqlText)
	require.Equal(t, []interface{}{"tenant-1", "paid", float64(10), float64(500), 100, 20}, args)
}

func TestCompileContainsEscapesPattern(t *testing.T) {
	tpl := paymentsTemplate()
	filters := []ResolvedFilter{{Field: "method", Operator: models.OpContains, Value: "50%_cash"}}
	_, sqlText, args := compilePlan(t, tpl, filters, 0, 0)
	require.Contains(t, sqlText, `method ILIKE $2`)
	require.Equal(t, `%50\%\_cash%`, args[1])
}

func TestCompileInUsesArrayParameter(t *testing.T) {
	tpl := paymentsTemplate()
	filters := []ResolvedFilter{{Field: "department", Operator: models.OpIn, Values: []interface{}{"cardiology", "icu"}}}
	_, sqlText, args := compilePlan(t, tpl, filters, 0, 0)
	require.Contains(t, sqlText, `department = ANY($2)`)
	require.Equal(t, pq.Array([]interface{}{"cardiology", "icu"}), args[1])
}

func TestCompileGroupingAndSorting(t *testing.T) {
	tpl := paymentsTemplate()
	tpl.Columns = models.ReportColumns{
		{Field: "department", Label: "Department", Type: models.ColumnTypeString},
		{Field: "amount", Label: "Total", Type: models.ColumnTypeNumber, Aggregate: models.AggregateSum},
	}
	tpl.GroupBy = models.StringList{"department"}
	tpl.SortBy = models.SortKeys{{Field: "department", Direction: models.SortAsc}}
	_, sqlText, _ := compilePlan(t, tpl, nil, 0, 0)
	require.Equal(t,
		`SELECT department AS "Department", SUM(amount) AS "Total" FROM payments WHERE tenant_id = $1 GROUP BY department ORDER BY department ASC`,
		sqlText)
}

func TestCompileSortsGroupedPlanByAggregateExpression(t *testing.T) {
	tpl := paymentsTemplate()
	tpl.Columns = models.ReportColumns{
		{Field: "department", Label: "Department", Type: models.ColumnTypeString},
		{Field: "amount", Label: "Total", Type: models.ColumnTypeNumber, Aggregate: models.AggregateSum},
	}
	tpl.GroupBy = models.StringList{"department"}
	tpl.SortBy = models.SortKeys{{Field: "amount", Direction: models.SortDesc}}
	_, sqlText, _ := compilePlan(t, tpl, nil, 0, 0)
	require.Contains(t, sqlText, `ORDER BY SUM(amount) DESC`)
}

func TestCompileDerivedFieldExpression(t *testing.T) {
	tpl := paymentsTemplate()
	tpl.Columns = models.ReportColumns{
		{Field: "paid_month", Label: "Month", Type: models.ColumnTypeDate},
		{Field: "amount", Label: "Total", Type: models.ColumnTypeNumber, Aggregate: models.AggregateSum},
	}
	tpl.GroupBy = models.StringList{"paid_month"}
	_, sqlText, _ := compilePlan(t, tpl, nil, 0, 0)
	require.Contains(t, sqlText, `date_trunc('month', paid_at) AS "Month"`)
	require.Contains(t, sqlText, `GROUP BY date_trunc('month', paid_at)`)
}

func TestCompileQuotesAliasQuotes(t *testing.T) {
	tpl := paymentsTemplate()
	tpl.Columns = models.ReportColumns{
		{Field: "amount", Label: `Amount "net"`, Type: models.ColumnTypeNumber},
	}
	_, sqlText, _ := compilePlan(t, tpl, nil, 0, 0)
	require.Contains(t, sqlText, `amount AS "Amount ""net"""`)
}

func TestCompileCountIgnoresPagingAndOrdering(t *testing.T) {
	tpl := paymentsTemplate()
	tpl.SortBy = models.SortKeys{{Field: "amount", Direction: models.SortDesc}}
	filters := []ResolvedFilter{{Field: "status", Operator: models.OpEq, Value: "paid"}}
	plan, _, _ := compilePlan(t, tpl, filters, 50, 10)

	countSQL, countArgs, err := CompileCount(plan)
	require.NoError(t, err)
	require.Equal(t, `SELECT COUNT(*) FROM payments WHERE tenant_id = $1 AND status = $2`, countSQL)
	require.Equal(t, []interface{}{"tenant-1", "paid"}, countArgs)
}
