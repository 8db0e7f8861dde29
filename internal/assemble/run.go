package assemble

import (
	"context"

	"github.com/pksim/pksim/internal/dataset"
	"github.com/pksim/pksim/internal/engine"
	"github.com/pksim/pksim/internal/simcore"
	"github.com/pksim/pksim/internal/table"
	"github.com/pksim/pksim/internal/tgrid"
)

// Result is a completed run: the table, per-individual diagnostics and
// run-level warnings (design audit included).
type Result struct {
	Table       *table.Table
	Diagnostics []engine.Diagnostic
	Warnings    []string
	Audit       *tgrid.Audit
}

// Failed reports whether any individual failed.
func (r *Result) Failed() bool {
	for _, d := range r.Diagnostics {
		if d.Err != nil {
			return true
		}
	}
	return false
}

// Run executes the whole pipeline: time-grid build, event merge,
// per-individual integration, output assembly. Configuration errors stop
// the run before any computation; integration failures degrade per
// individual unless cfg.Strict is set.
func Run(ctx context.Context, model simcore.Model, newIntegrator func() simcore.Integrator,
	data *dataset.Dataset, idata *dataset.IData, cfg engine.RunConfig) (*Result, error) {

	// surface request/Req problems before any integration starts
	if _, err := resolveItems(model, cfg); err != nil {
		return nil, err
	}

	ids := individualOrder(data, idata)

	var (
		grids map[string][]float64
		audit *tgrid.Audit
	)
	if len(cfg.Design.Designs) > 0 || cfg.Design.Descol != "" {
		var err error
		grids, audit, err = tgrid.Build(cfg.Design, idata, ids)
		if err != nil {
			return nil, err
		}
	}

	individuals := engine.RunBatch(ctx, model, newIntegrator, ids, grids, data, idata, cfg)

	if cfg.Strict {
		for _, ind := range individuals {
			if ind.Err != nil {
				return nil, ind.Err
			}
		}
	}

	tbl, err := Assemble(individuals, model, cfg, data, idata, grids)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Table:       tbl,
		Diagnostics: engine.Diagnostics(individuals),
		Audit:       audit,
	}
	if audit != nil {
		res.Warnings = append(res.Warnings, audit.Warnings...)
	}
	return res, nil
}

// individualOrder fixes the run order: data-set order of first appearance,
// falling back to the idata order, falling back to a single anonymous
// individual.
func individualOrder(data *dataset.Dataset, idata *dataset.IData) []string {
	if data != nil && len(data.IDs()) > 0 {
		return data.IDs()
	}
	if idata != nil && len(idata.IDs()) > 0 {
		return idata.IDs()
	}
	return []string{"1"}
}
