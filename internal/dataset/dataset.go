package dataset

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/pksim/pksim/internal/simcore"
)

// Event types, NMTRAN-style evid codes.
const (
	EvidObservation = 0
	EvidDose        = 1
	EvidReset       = 3
	EvidResetDose   = 4
)

// Record is one row of the input data set: an observation, dose or reset
// for one individual, plus pass-through columns eligible for carry-out.
type Record struct {
	ID    string
	Time  float64
	Evid  int
	Amt   float64
	Cmt   int
	Rate  float64
	Extra map[string]float64
}

// IsDose reports whether the record perturbs state.
func (r Record) IsDose() bool {
	return r.Evid == EvidDose || r.Evid == EvidReset || r.Evid == EvidResetDose
}

// Dataset is the ordered input table. Individual order is the order of
// first appearance; records are time-sorted within each individual.
type Dataset struct {
	ids     []string
	byID    map[string][]Record
	columns []string
}

// reserved column names, matched case-insensitively
var reserved = map[string]bool{
	"ID": true, "TIME": true, "EVID": true, "AMT": true, "CMT": true, "RATE": true,
}

// New groups and validates records into a Dataset.
func New(recs []Record, extraColumns []string) (*Dataset, error) {
	d := &Dataset{
		byID:    make(map[string][]Record),
		columns: append([]string(nil), extraColumns...),
	}

	for _, r := range recs {
		if err := validate(r); err != nil {
			return nil, err
		}
		if _, seen := d.byID[r.ID]; !seen {
			d.ids = append(d.ids, r.ID)
		}
		d.byID[r.ID] = append(d.byID[r.ID], r)
	}

	for _, id := range d.ids {
		rs := d.byID[id]
		sort.SliceStable(rs, func(i, j int) bool { return rs[i].Time < rs[j].Time })
	}

	return d, nil
}

func validate(r Record) error {
	if r.Time < 0 {
		return &simcore.DataError{ID: r.ID, Wrapped: fmt.Errorf("negative time %g", r.Time)}
	}
	switch r.Evid {
	case EvidObservation, EvidDose, EvidReset, EvidResetDose:
	default:
		return &simcore.DataError{ID: r.ID, Wrapped: fmt.Errorf("unknown evid %d", r.Evid)}
	}
	if r.IsDose() && r.Cmt < 1 {
		return &simcore.DataError{ID: r.ID, Wrapped: fmt.Errorf("dose compartment %d out of range", r.Cmt)}
	}
	if r.Rate < 0 {
		return &simcore.DataError{ID: r.ID, Wrapped: fmt.Errorf("negative rate %g", r.Rate)}
	}
	return nil
}

func (d *Dataset) IDs() []string { return d.ids }

func (d *Dataset) Records(id string) []Record { return d.byID[id] }

// Columns returns the pass-through column names.
func (d *Dataset) Columns() []string { return d.columns }

func (d *Dataset) HasColumn(name string) bool {
	for _, c := range d.columns {
		if c == name {
			return true
		}
	}
	return false
}

// LoadCSV reads a data set. ID and TIME columns are required; EVID, AMT,
// CMT and RATE are recognized when present (CMT defaults to 1); remaining
// numeric columns become pass-through fields.
func LoadCSV(path string) (*Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1

	rows, err := r.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, &simcore.DataError{Wrapped: fmt.Errorf("empty data set %s", path)}
	}

	header := rows[0]
	idx := make(map[string]int, len(header))
	var extras []string
	for i, name := range header {
		name = strings.TrimSpace(name)
		upper := strings.ToUpper(name)
		if reserved[upper] {
			idx[upper] = i
			continue
		}
		idx[name] = i
		extras = append(extras, name)
	}
	if _, ok := idx["ID"]; !ok {
		return nil, &simcore.DataError{Column: "ID", Wrapped: simcore.ErrNoSuchColumn}
	}
	if _, ok := idx["TIME"]; !ok {
		return nil, &simcore.DataError{Column: "TIME", Wrapped: simcore.ErrNoSuchColumn}
	}

	recs := make([]Record, 0, len(rows)-1)
	for _, row := range rows[1:] {
		if len(row) == 0 {
			continue
		}
		rec := Record{Cmt: 1, Extra: make(map[string]float64, len(extras))}
		rec.ID = strings.TrimSpace(row[idx["ID"]])

		get := func(col string) (float64, bool) {
			i, ok := idx[col]
			if !ok || i >= len(row) {
				return 0, false
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(row[i]), 64)
			if err != nil {
				return 0, false
			}
			return v, true
		}

		t, ok := get("TIME")
		if !ok {
			return nil, &simcore.DataError{ID: rec.ID, Column: "TIME", Wrapped: fmt.Errorf("unparsable value")}
		}
		rec.Time = t
		if v, ok := get("EVID"); ok {
			rec.Evid = int(v)
		}
		if v, ok := get("AMT"); ok {
			rec.Amt = v
		}
		if v, ok := get("CMT"); ok {
			rec.Cmt = int(v)
		}
		if v, ok := get("RATE"); ok {
			rec.Rate = v
		}
		for _, name := range extras {
			if v, ok := get(name); ok {
				rec.Extra[name] = v
			}
		}
		recs = append(recs, rec)
	}

	return New(recs, extras)
}
