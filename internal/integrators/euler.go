package integrators

import "github.com/pksim/pksim/internal/simcore"

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(m simcore.Model, x simcore.State, rates simcore.Rates, t, dt float64) simcore.State {
	dx := m.Derive(x, rates, t)
	result := make(simcore.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}
