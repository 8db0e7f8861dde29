package engine

import (
	"context"
	"sync"

	"github.com/pksim/pksim/internal/dataset"
	"github.com/pksim/pksim/internal/simcore"
	"github.com/pksim/pksim/internal/timeline"
)

// Diagnostic is the per-individual outcome attached to a run result.
type Diagnostic struct {
	ID       string
	Err      error
	Warnings []string
	Steps    int
}

// RunBatch integrates every individual across its timeline. Individuals
// share no mutable state and run concurrently, bounded by cfg.Workers;
// results land in a slice indexed by configuration order, so the output
// order is deterministic regardless of scheduling. newIntegrator is a
// factory because integrators keep scratch space per worker.
func RunBatch(ctx context.Context, model simcore.Model, newIntegrator func() simcore.Integrator,
	ids []string, grids map[string][]float64, data *dataset.Dataset, idata *dataset.IData,
	cfg RunConfig) []Individual {

	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	results := make([]Individual, len(ids))

	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, id := range ids {
		wg.Add(1)
		go func(idx int, id string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			m := model
			if idata != nil {
				if row := idata.Row(id); row != nil {
					m = model.WithParams(row)
				}
			}

			var recs []dataset.Record
			if data != nil {
				recs = data.Records(id)
			}
			points := timeline.Merge(grids[id], recs)

			d := &driver{model: m, integ: newIntegrator(), step: cfg.Step}
			results[idx] = d.simulate(ctx, id, points)
		}(i, id)
	}
	wg.Wait()

	return results
}

// Diagnostics summarizes a batch outcome.
func Diagnostics(individuals []Individual) []Diagnostic {
	out := make([]Diagnostic, len(individuals))
	for i, ind := range individuals {
		out[i] = Diagnostic{
			ID:       ind.ID,
			Err:      ind.Err,
			Warnings: ind.Warnings,
			Steps:    ind.Stats.Steps,
		}
	}
	return out
}
