// Package assemble turns per-individual integration output into the final
// result table and orchestrates whole runs.
package assemble

import (
	"fmt"
	"strings"

	"github.com/pksim/pksim/internal/dataset"
	"github.com/pksim/pksim/internal/engine"
	"github.com/pksim/pksim/internal/simcore"
	"github.com/pksim/pksim/internal/table"
	"github.com/pksim/pksim/internal/timeline"
)

// itemKind tells the assembler where a requested output item comes from.
type itemKind int

const (
	itemCompartment itemKind = iota
	itemCapture
)

type item struct {
	name string
	kind itemKind
	idx  int
}

// resolveItems fixes the requested output columns against the model.
//
// A non-empty exclusive list (ReqList) wins: only listed compartments and
// captures appear, in list order. Otherwise the compartment list (Request)
// is honored and every capture is kept. With neither, everything is output.
func resolveItems(m simcore.Model, cfg engine.RunConfig) ([]item, error) {
	cmts := m.Compartments()
	caps := m.Captures()

	find := func(name string) (item, bool) {
		for i, c := range cmts {
			if c == name {
				return item{name: name, kind: itemCompartment, idx: i}, true
			}
		}
		for i, c := range caps {
			if c == name {
				return item{name: name, kind: itemCapture, idx: i}, true
			}
		}
		return item{}, false
	}

	if len(cfg.ReqList) > 0 {
		items := make([]item, 0, len(cfg.ReqList))
		for _, name := range cfg.ReqList {
			it, ok := find(name)
			if !ok {
				err := fmt.Errorf("requested item %q is neither a compartment nor a capture", name)
				return nil, &simcore.ConfigError{Option: "Req", Wrapped: err}
			}
			items = append(items, it)
		}
		return items, nil
	}

	var items []item
	if len(cfg.Request) > 0 {
		for _, name := range cfg.Request {
			it, ok := find(name)
			if !ok || it.kind != itemCompartment {
				err := fmt.Errorf("requested compartment %q not in model", name)
				return nil, &simcore.ConfigError{Option: "request", Wrapped: err}
			}
			items = append(items, it)
		}
	} else {
		for i, name := range cmts {
			items = append(items, item{name: name, kind: itemCompartment, idx: i})
		}
	}
	for i, name := range caps {
		items = append(items, item{name: name, kind: itemCapture, idx: i})
	}
	return items, nil
}

// Columns returns the output column set for a model and configuration:
// ID, time, requested items, carried columns.
func Columns(m simcore.Model, cfg engine.RunConfig) ([]string, error) {
	items, err := resolveItems(m, cfg)
	if err != nil {
		return nil, err
	}
	cols := make([]string, 0, 2+len(items)+len(cfg.Carry))
	cols = append(cols, "ID", "time")
	for _, it := range items {
		cols = append(cols, it.name)
	}
	cols = append(cols, cfg.Carry...)
	return cols, nil
}

// Assemble builds the result table from batch output. Row construction
// order per point: request filtering, carry lookup, time scaling, event
// augmentation, then the observation-only filter — so augmented rows,
// which are tagged as observations, survive obsonly.
func Assemble(individuals []engine.Individual, m simcore.Model, cfg engine.RunConfig,
	data *dataset.Dataset, idata *dataset.IData, grids map[string][]float64) (*table.Table, error) {

	items, err := resolveItems(m, cfg)
	if err != nil {
		return nil, err
	}

	cols := make([]string, 0, 1+len(items)+len(cfg.Carry))
	cols = append(cols, "time")
	for _, it := range items {
		cols = append(cols, it.name)
	}
	cols = append(cols, cfg.Carry...)
	tbl := table.New(cols)

	for _, ind := range individuals {
		var recs []dataset.Record
		if data != nil {
			recs = data.Records(ind.ID)
		}

		rows := expand(ind.Samples, cfg)
		for _, s := range rows {
			values := make([]float64, 0, len(cols))
			values = append(values, s.Point.Time*cfg.TScale)
			for _, it := range items {
				values = append(values, itemValue(s, it))
			}
			for _, name := range cfg.Carry {
				values = append(values, carryValue(name, s, recs, idata, ind.ID))
			}
			if err := tbl.Append(table.Row{ID: ind.ID, Values: values}); err != nil {
				return nil, err
			}
		}

		if ind.Err != nil && cfg.FillNA {
			if err := fillMissing(tbl, ind, cfg, items, recs, idata, grids[ind.ID]); err != nil {
				return nil, err
			}
		}
	}

	return tbl, nil
}

// expand applies augmentation then the observation-only filter.
func expand(samples []engine.Sample, cfg engine.RunConfig) []engine.Sample {
	out := make([]engine.Sample, 0, len(samples))
	for _, s := range samples {
		if s.Point.Kind == timeline.Event {
			// an observation at the same instant already reports this state
			if !s.Point.Shadowed {
				if !cfg.ObsOnly {
					out = append(out, s)
				}
				if cfg.ObsAug {
					aug := s
					aug.Point.Kind = timeline.Observation
					aug.Point.Augmented = true
					out = append(out, aug)
				}
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

func itemValue(s engine.Sample, it item) float64 {
	if s.X == nil {
		return table.NA
	}
	if it.kind == itemCompartment {
		return s.X[it.idx]
	}
	return s.Captures[it.idx]
}

// carryValue resolves a carried column: originating record first, then the
// most recent data record at or before the row's time, then the
// individual-level table, then NA.
func carryValue(name string, s engine.Sample, recs []dataset.Record, idata *dataset.IData, id string) float64 {
	if s.Point.Rec != nil {
		if v, ok := recordField(*s.Point.Rec, name); ok {
			return v
		}
	} else {
		var governing *dataset.Record
		for i := range recs {
			if recs[i].Time <= s.Point.Time {
				governing = &recs[i]
			} else {
				break
			}
		}
		if governing != nil {
			if v, ok := recordField(*governing, name); ok {
				return v
			}
		}
	}
	if idata != nil {
		if v, ok := idata.Lookup(id, name); ok {
			return v
		}
	}
	return table.NA
}

func recordField(rec dataset.Record, name string) (float64, bool) {
	switch strings.ToUpper(name) {
	case "EVID":
		return float64(rec.Evid), true
	case "AMT":
		return rec.Amt, true
	case "CMT":
		return float64(rec.Cmt), true
	case "RATE":
		return rec.Rate, true
	}
	v, ok := rec.Extra[name]
	return v, ok
}

// fillMissing appends NA-state rows for a failed individual's uncomputed
// observation times. Carried columns still resolve; state does not exist.
func fillMissing(tbl *table.Table, ind engine.Individual, cfg engine.RunConfig,
	items []item, recs []dataset.Record, idata *dataset.IData, grid []float64) error {

	lastT := -1.0
	if n := len(ind.Samples); n > 0 {
		lastT = ind.Samples[n-1].Point.Time
	}

	for _, t := range grid {
		if t <= lastT {
			continue
		}
		s := engine.Sample{Point: timeline.Point{Time: t, Kind: timeline.Observation}}
		values := make([]float64, 0, 1+len(items)+len(cfg.Carry))
		values = append(values, t*cfg.TScale)
		for range items {
			values = append(values, table.NA)
		}
		for _, name := range cfg.Carry {
			values = append(values, carryValue(name, s, recs, idata, ind.ID))
		}
		if err := tbl.Append(table.Row{ID: ind.ID, Values: values}); err != nil {
			return err
		}
	}
	return nil
}
