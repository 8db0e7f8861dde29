package pkmodels

import "github.com/pksim/pksim/internal/simcore"

// TwoCmtOral is a two-compartment model with first-order absorption,
// central elimination and inter-compartment distribution.
type TwoCmtOral struct {
	KA float64
	CL float64
	VC float64
	Q  float64
	VP float64
}

func NewTwoCmtOral() *TwoCmtOral {
	return &TwoCmtOral{
		KA: 1.0,
		CL: 1.0,
		VC: 20.0,
		Q:  2.0,
		VP: 10.0,
	}
}

func (m *TwoCmtOral) Ncmt() int              { return 3 }
func (m *TwoCmtOral) Compartments() []string { return []string{"GUT", "CENT", "PERIPH"} }
func (m *TwoCmtOral) Captures() []string     { return []string{"CP"} }

func (m *TwoCmtOral) InitialState() simcore.State {
	return simcore.State{0, 0, 0}
}

func (m *TwoCmtOral) Derive(x simcore.State, rates simcore.Rates, t float64) simcore.State {
	gut := x[0]
	cent := x[1]
	periph := x[2]

	cc := cent / m.VC
	cp := periph / m.VP

	return simcore.State{
		rates[0] - m.KA*gut,
		rates[1] + m.KA*gut - m.CL*cc - m.Q*cc + m.Q*cp,
		rates[2] + m.Q*cc - m.Q*cp,
	}
}

func (m *TwoCmtOral) CaptureValues(x simcore.State, t float64) []float64 {
	return []float64{x[1] / m.VC}
}

func (m *TwoCmtOral) WithParams(params map[string]float64) simcore.Model {
	c := *m
	if v, ok := params["KA"]; ok {
		c.KA = v
	}
	if v, ok := params["CL"]; ok {
		c.CL = v
	}
	if v, ok := params["VC"]; ok {
		c.VC = v
	}
	if v, ok := params["Q"]; ok {
		c.Q = v
	}
	if v, ok := params["VP"]; ok {
		c.VP = v
	}
	return &c
}
