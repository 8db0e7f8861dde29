package config

import (
	"github.com/pksim/pksim/internal/engine"
	"github.com/pksim/pksim/internal/tgrid"
)

// RunConfig converts the YAML file into a validated engine configuration.
func (c *Config) RunConfig() (engine.RunConfig, error) {
	b := engine.NewBuilder()

	if len(c.Req) > 0 {
		b.Req(c.Req...)
	}
	if len(c.Request) > 0 {
		b.Request(c.Request...)
	}
	if len(c.Carry) > 0 {
		b.CarryOut(c.Carry...)
	}
	if c.TScale != 0 {
		b.TScale(c.TScale)
	}
	b.ObsOnly(c.ObsOnly)
	b.ObsAug(c.ObsAug)
	b.Workers(c.Workers)
	b.Strict(c.Strict)
	b.FillNA(c.FillNA)

	step := engine.DefaultStepConfig()
	if c.Dt > 0 {
		step.Dt = c.Dt
	}
	step.Adaptive = c.Adaptive
	if c.Tolerance > 0 {
		step.Tolerance = c.Tolerance
	}
	b.Step(step)

	if len(c.Design.Grids) > 0 || c.Design.Descol != "" {
		designs := make([]any, 0, len(c.Design.Grids))
		for _, g := range c.Design.Grids {
			designs = append(designs, tgrid.TGrid{
				Start: g.Start,
				End:   g.End,
				Delta: g.Delta,
				Add:   g.Add,
				Label: g.Label,
			})
		}
		b.Design(tgrid.Assignment{Descol: c.Design.Descol, Designs: designs})
	}

	return b.Build()
}
