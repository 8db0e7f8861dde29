package pkmodels

import "github.com/pksim/pksim/internal/simcore"

// OneCmtIV is a one-compartment model with first-order elimination.
// Dosing goes into CENT; CP is the central concentration.
type OneCmtIV struct {
	CL float64
	V  float64
}

func NewOneCmtIV() *OneCmtIV {
	return &OneCmtIV{
		CL: 1.0,
		V:  20.0,
	}
}

func (m *OneCmtIV) Ncmt() int              { return 1 }
func (m *OneCmtIV) Compartments() []string { return []string{"CENT"} }
func (m *OneCmtIV) Captures() []string     { return []string{"CP"} }

func (m *OneCmtIV) InitialState() simcore.State {
	return simcore.State{0}
}

func (m *OneCmtIV) Derive(x simcore.State, rates simcore.Rates, t float64) simcore.State {
	cent := x[0]
	return simcore.State{rates[0] - (m.CL/m.V)*cent}
}

func (m *OneCmtIV) CaptureValues(x simcore.State, t float64) []float64 {
	return []float64{x[0] / m.V}
}

func (m *OneCmtIV) WithParams(params map[string]float64) simcore.Model {
	c := *m
	if v, ok := params["CL"]; ok {
		c.CL = v
	}
	if v, ok := params["V"]; ok {
		c.V = v
	}
	return &c
}

// OneCmtOral adds a depot compartment with first-order absorption.
type OneCmtOral struct {
	KA float64
	CL float64
	V  float64
}

func NewOneCmtOral() *OneCmtOral {
	return &OneCmtOral{
		KA: 1.0,
		CL: 1.0,
		V:  20.0,
	}
}

func (m *OneCmtOral) Ncmt() int              { return 2 }
func (m *OneCmtOral) Compartments() []string { return []string{"GUT", "CENT"} }
func (m *OneCmtOral) Captures() []string     { return []string{"CP"} }

func (m *OneCmtOral) InitialState() simcore.State {
	return simcore.State{0, 0}
}

func (m *OneCmtOral) Derive(x simcore.State, rates simcore.Rates, t float64) simcore.State {
	gut := x[0]
	cent := x[1]
	return simcore.State{
		rates[0] - m.KA*gut,
		rates[1] + m.KA*gut - (m.CL/m.V)*cent,
	}
}

func (m *OneCmtOral) CaptureValues(x simcore.State, t float64) []float64 {
	return []float64{x[1] / m.V}
}

func (m *OneCmtOral) WithParams(params map[string]float64) simcore.Model {
	c := *m
	if v, ok := params["KA"]; ok {
		c.KA = v
	}
	if v, ok := params["CL"]; ok {
		c.CL = v
	}
	if v, ok := params["V"]; ok {
		c.V = v
	}
	return &c
}
