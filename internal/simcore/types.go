package simcore

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

func (s State) Zero() {
	for i := range s {
		s[i] = 0
	}
}

// Rates holds the active zero-order infusion rate into each compartment.
// Same length as the state vector.
type Rates []float64

func (r Rates) Clone() Rates {
	c := make(Rates, len(r))
	copy(c, r)
	return c
}

// Model is a compartment model: an ODE right-hand side over named
// compartments plus derived quantities captured for output.
type Model interface {
	// Derive returns dX/dt at time t given state x and active infusion rates.
	Derive(x State, rates Rates, t float64) State

	// Ncmt is the number of compartments (the state dimension).
	Ncmt() int

	// Compartments returns compartment names in state order.
	Compartments() []string

	// Captures returns the names of derived output quantities.
	Captures() []string

	// CaptureValues evaluates the captured quantities at state x, time t,
	// in Captures() order.
	CaptureValues(x State, t float64) []float64

	// InitialState returns the state at time zero before any event.
	InitialState() State

	// WithParams returns a copy of the model with the named parameters
	// overridden. Names that do not match a model parameter are ignored;
	// individual-level tables carry covariates alongside parameters.
	WithParams(params map[string]float64) Model
}

type Integrator interface {
	Step(m Model, x State, rates Rates, t, dt float64) State
}

type AdaptiveIntegrator interface {
	Integrator
	StepAdaptive(m Model, x State, rates Rates, t, dt, tol float64) (State, float64, error)
}

// StepStats counts integrator work during one individual's run.
type StepStats struct {
	Steps    int
	Rejected int
	LastDt   float64
}
