// Package table holds the simulation result table: fixed column set,
// stable row order, NA sentinel for missing values.
package table

import (
	"fmt"
	"math"
	"strconv"
)

// NA is the missing-value sentinel. CSV renders it as "NA", JSON as null.
var NA = math.NaN()

func IsNA(v float64) bool { return math.IsNaN(v) }

// Row is one output row. Values align with Table.Columns()[1:], time first.
type Row struct {
	ID     string
	Values []float64
}

// Table is an immutable-once-built result: column order is ID, time,
// requested items in request order, carried columns in carry order.
type Table struct {
	columns []string
	rows    []Row
}

// New fixes the column set. columns excludes the leading ID column.
func New(columns []string) *Table {
	return &Table{columns: append([]string{"ID"}, columns...)}
}

func (t *Table) Columns() []string { return t.columns }
func (t *Table) Len() int          { return len(t.rows) }
func (t *Table) Rows() []Row       { return t.rows }

// Append adds a row; the value count must match the fixed column set.
func (t *Table) Append(r Row) error {
	if len(r.Values) != len(t.columns)-1 {
		return fmt.Errorf("table: row has %d values, want %d", len(r.Values), len(t.columns)-1)
	}
	t.rows = append(t.rows, r)
	return nil
}

// Column returns one value column by name.
func (t *Table) Column(name string) ([]float64, error) {
	idx := -1
	for i, c := range t.columns[1:] {
		if c == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("table: no column %q", name)
	}
	out := make([]float64, len(t.rows))
	for i, r := range t.rows {
		out[i] = r.Values[idx]
	}
	return out, nil
}

// Times returns the time column.
func (t *Table) Times() ([]float64, error) { return t.Column("time") }

func formatCell(v float64) string {
	if IsNA(v) {
		return "NA"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}
