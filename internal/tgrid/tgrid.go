// Package tgrid defines observation-time designs and resolves them to
// per-individual sampling grids.
package tgrid

import (
	"fmt"
	"sort"
)

// TGrid is a regular observation design: Start to End by Delta, with
// optional additional times.
type TGrid struct {
	Start float64
	End   float64
	Delta float64
	Add   []float64
	Label string
}

func New(start, end, delta float64) TGrid {
	return TGrid{Start: start, End: end, Delta: delta}
}

func (g TGrid) Validate() error {
	if g.Start < 0 {
		return fmt.Errorf("tgrid %q: negative start %g", g.Label, g.Start)
	}
	if g.End < g.Start {
		return fmt.Errorf("tgrid %q: end %g before start %g", g.Label, g.End, g.Start)
	}
	if g.End > g.Start && g.Delta <= 0 {
		return fmt.Errorf("tgrid %q: non-positive delta %g", g.Label, g.Delta)
	}
	for _, t := range g.Add {
		if t < 0 {
			return fmt.Errorf("tgrid %q: negative added time %g", g.Label, t)
		}
	}
	return nil
}

// Times expands the grid to an ordered, de-duplicated sequence.
func (g TGrid) Times() []float64 {
	var out []float64
	if g.Delta > 0 {
		// guard against accumulation drift at the right edge
		n := int((g.End-g.Start)/g.Delta + 1e-9)
		for i := 0; i <= n; i++ {
			out = append(out, g.Start+float64(i)*g.Delta)
		}
	} else {
		out = append(out, g.Start)
	}
	out = append(out, g.Add...)
	return dedupe(out)
}

// TGrids is an ordered, named collection of designs whose times are the
// union of its members.
type TGrids struct {
	Label string
	Grids []TGrid
}

func (g TGrids) Validate() error {
	if len(g.Grids) == 0 {
		return fmt.Errorf("tgrids %q: empty collection", g.Label)
	}
	for _, grid := range g.Grids {
		if err := grid.Validate(); err != nil {
			return err
		}
	}
	return nil
}

func (g TGrids) Times() []float64 {
	var out []float64
	for _, grid := range g.Grids {
		out = append(out, grid.Times()...)
	}
	return dedupe(out)
}

func dedupe(times []float64) []float64 {
	sort.Float64s(times)
	out := times[:0]
	for i, t := range times {
		if i == 0 || t != out[len(out)-1] {
			out = append(out, t)
		}
	}
	return out
}
