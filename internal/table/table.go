// Package table assembles feature records into a rectangular table whose
// columns are the union of all record keys.
package table

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"strconv"

	"radiomics-toolkit/internal/models"
)

// Table holds ordered columns and rows of cell values. A nil cell is missing.
type Table struct {
	Columns []string
	Rows    [][]interface{}
}

// FromRecords builds a table with idColumn first followed by the union of
// feature names in order of first appearance across records.
func FromRecords(idColumn string, records []models.FeatureRecord) *Table {
	t := &Table{Columns: []string{idColumn}}
	index := map[string]int{idColumn: 0}

	for _, r := range records {
		for _, f := range r.Features {
			if _, ok := index[f.Name]; !ok {
				index[f.Name] = len(t.Columns)
				t.Columns = append(t.Columns, f.Name)
			}
		}
	}

	for _, r := range records {
		row := make([]interface{}, len(t.Columns))
		row[0] = r.PatientID
		for _, f := range r.Features {
			if f.Name == idColumn {
				continue
			}
			row[index[f.Name]] = f.Value
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// WriteCSV writes a header row and one row per table row.
func (t *Table) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	line := make([]string, len(t.Columns))
	for i, row := range t.Rows {
		for j := range line {
			line[j] = ""
			if j < len(row) {
				line[j] = FormatCell(row[j])
			}
		}
		if err := cw.Write(line); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// FormatCell renders a cell value. Floats use the shortest representation
// that round-trips; nil and NaN render empty.
func FormatCell(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case float64:
		if math.IsNaN(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'g', -1, 64)
	case float32:
		if math.IsNaN(float64(v)) {
			return ""
		}
		return strconv.FormatFloat(float64(v), 'g', -1, 32)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case bool:
		return strconv.FormatBool(v)
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}
