package tgrid

import (
	"fmt"
	"math"

	"github.com/pksim/pksim/internal/dataset"
	"github.com/pksim/pksim/internal/simcore"
)

// Assignment maps individuals to designs. Designs may hold TGrid, TGrids
// or raw []float64 entries; anything else is rejected during Build. When
// Descol names an idata column, its value per individual is a 1-based
// index into the accepted design list.
type Assignment struct {
	Descol  string
	Designs []any
}

// Rejected records a design entry dropped during validation.
type Rejected struct {
	Index  int
	Reason string
}

// Audit is the validated view of a design list: what was kept, what was
// dropped and why, plus warnings about surprising-but-documented behavior.
type Audit struct {
	Accepted int
	Rejected []Rejected
	Warnings []string
}

// Build resolves an assignment to a per-individual time grid.
//
// Entries that are not TGrid, TGrids or []float64 are dropped from the
// candidate list and recorded in the audit; downstream design handling
// depends on this filtering, so it is kept (audited rather than silent).
// With no grouping column and more than one design, every individual gets
// the first design; this quirk is preserved and a warning recorded.
func Build(a Assignment, idata *dataset.IData, ids []string) (map[string][]float64, *Audit, error) {
	audit := &Audit{}

	var accepted [][]float64
	for i, entry := range a.Designs {
		switch g := entry.(type) {
		case TGrid:
			if err := g.Validate(); err != nil {
				return nil, audit, &simcore.ConfigError{Option: "design", Wrapped: err}
			}
			accepted = append(accepted, g.Times())
		case *TGrid:
			if err := g.Validate(); err != nil {
				return nil, audit, &simcore.ConfigError{Option: "design", Wrapped: err}
			}
			accepted = append(accepted, g.Times())
		case TGrids:
			if err := g.Validate(); err != nil {
				return nil, audit, &simcore.ConfigError{Option: "design", Wrapped: err}
			}
			accepted = append(accepted, g.Times())
		case *TGrids:
			if err := g.Validate(); err != nil {
				return nil, audit, &simcore.ConfigError{Option: "design", Wrapped: err}
			}
			accepted = append(accepted, g.Times())
		case []float64:
			for _, t := range g {
				if t < 0 {
					err := fmt.Errorf("design entry %d: negative time %g", i, t)
					return nil, audit, &simcore.ConfigError{Option: "design", Wrapped: err}
				}
			}
			accepted = append(accepted, dedupe(append([]float64(nil), g...)))
		default:
			audit.Rejected = append(audit.Rejected, Rejected{
				Index:  i,
				Reason: fmt.Sprintf("unsupported design type %T", entry),
			})
		}
	}
	audit.Accepted = len(accepted)

	if len(accepted) == 0 {
		return nil, audit, &simcore.ConfigError{Option: "design", Wrapped: simcore.ErrNoValidDesign}
	}

	grids := make(map[string][]float64, len(ids))

	if a.Descol == "" {
		if len(accepted) > 1 {
			audit.Warnings = append(audit.Warnings, fmt.Sprintf(
				"descol unset with %d designs; using the first design for all individuals", len(accepted)))
		}
		for _, id := range ids {
			grids[id] = accepted[0]
		}
		return grids, audit, nil
	}

	if idata == nil {
		return nil, audit, &simcore.ConfigError{Option: "design", Wrapped: simcore.ErrIDataRequired}
	}
	if !idata.HasColumn(a.Descol) {
		err := fmt.Errorf("descol %q: %w", a.Descol, simcore.ErrNoSuchColumn)
		return nil, audit, &simcore.ConfigError{Option: "design", Wrapped: err}
	}

	for _, id := range ids {
		v, ok := idata.Lookup(id, a.Descol)
		if !ok {
			err := fmt.Errorf("individual missing from idata")
			return nil, audit, &simcore.DataError{ID: id, Column: a.Descol, Wrapped: err}
		}
		if v != math.Trunc(v) || v < 1 || int(v) > len(accepted) {
			err := fmt.Errorf("design index %g out of range 1..%d", v, len(accepted))
			return nil, audit, &simcore.DataError{ID: id, Column: a.Descol, Wrapped: err}
		}
		grids[id] = accepted[int(v)-1]
	}

	return grids, audit, nil
}
