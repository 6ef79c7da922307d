package export

import (
	"fmt"
	"strconv"
	"time"
)

// ColumnType mirrors the declared type of a report column.
type ColumnType string

const (
	ColumnString  ColumnType = "string"
	ColumnNumber  ColumnType = "number"
	ColumnDate    ColumnType = "date"
	ColumnBoolean ColumnType = "boolean"
)

// Column describes one output column of a dataset.
type Column struct {
	Label string
	Type  ColumnType
}

// Dataset defines tabular export content. Rows are ordered and each row holds
// one value per column, in column order.
type Dataset struct {
	Title   string
	Columns []Column
	Rows    [][]interface{}
}

// Headers returns the ordered column labels.
func (d Dataset) Headers() []string {
	headers := make([]string, len(d.Columns))
	for i, col := range d.Columns {
		headers[i] = col.Label
	}
	return headers
}

const dateDisplayLayout = "2006-01-02 15:04:05"

// CellString renders a cell value for text-based formats. Only date values
// receive display formatting; numbers, strings and booleans pass through
// without coercion.
func CellString(value interface{}, colType ColumnType) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.UTC().Format(dateDisplayLayout)
	case *time.Time:
		if v == nil {
			return ""
		}
		return v.UTC().Format(dateDisplayLayout)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	case bool:
		return strconv.FormatBool(v)
	case []byte:
		return string(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
