package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/pksim/pksim/internal/simcore"
)

// IData is the individual-level table: one row per individual, numeric
// columns holding parameters, covariates and design-group values.
type IData struct {
	ids     []string
	columns []string
	rows    map[string]map[string]float64
}

// IRow is one individual's row, used to build an IData in memory.
type IRow struct {
	ID     string
	Values map[string]float64
}

func NewIData(columns []string, rows []IRow) *IData {
	t := &IData{
		columns: append([]string(nil), columns...),
		rows:    make(map[string]map[string]float64, len(rows)),
	}
	for _, r := range rows {
		if _, seen := t.rows[r.ID]; !seen {
			t.ids = append(t.ids, r.ID)
		}
		vals := make(map[string]float64, len(r.Values))
		for k, v := range r.Values {
			vals[k] = v
		}
		t.rows[r.ID] = vals
	}
	return t
}

func (t *IData) IDs() []string     { return t.ids }
func (t *IData) Columns() []string { return t.columns }

func (t *IData) HasColumn(name string) bool {
	for _, c := range t.columns {
		if c == name {
			return true
		}
	}
	return false
}

func (t *IData) Lookup(id, column string) (float64, bool) {
	row, ok := t.rows[id]
	if !ok {
		return 0, false
	}
	v, ok := row[column]
	return v, ok
}

// Row returns the individual's full row, nil if the id is unknown.
func (t *IData) Row(id string) map[string]float64 { return t.rows[id] }

// LoadIDataCSV reads an individual-level table. The ID column is required;
// all other columns must be numeric.
func LoadIDataCSV(path string) (*IData, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &simcore.DataError{Wrapped: fmt.Errorf("empty idata table %s", path)}
	}

	header := rows[0]
	idCol := -1
	var columns []string
	for i, name := range header {
		name = strings.TrimSpace(name)
		if strings.EqualFold(name, "ID") {
			idCol = i
			continue
		}
		columns = append(columns, name)
	}
	if idCol < 0 {
		return nil, &simcore.DataError{Column: "ID", Wrapped: simcore.ErrNoSuchColumn}
	}

	irows := make([]IRow, 0, len(rows)-1)
	for _, row := range rows[1:] {
		ir := IRow{ID: strings.TrimSpace(row[idCol]), Values: make(map[string]float64)}
		ci := 0
		for i, field := range row {
			if i == idCol {
				continue
			}
			name := columns[ci]
			ci++
			v, err := strconv.ParseFloat(strings.TrimSpace(field), 64)
			if err != nil {
				return nil, &simcore.DataError{ID: ir.ID, Column: name, Wrapped: fmt.Errorf("unparsable value %q", field)}
			}
			ir.Values[name] = v
		}
		irows = append(irows, ir)
	}

	return NewIData(columns, irows), nil
}
