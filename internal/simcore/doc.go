// Package simcore provides the core primitives for pharmacokinetic
// ODE simulation.
//
// The package defines the fundamental interfaces and types shared by the
// rest of the pipeline:
//
//   - [State]: vector of compartment amounts
//   - [Model]: a compartment model (dX/dt = f(X, rates, t)) with named
//     compartments and captured outputs
//   - [Integrator]: numerical stepper interface
//   - [AdaptiveIntegrator]: stepper with error-controlled step size
//
// # Example
//
//	mod := pkmodels.NewOneCmtOral()
//	integ := integrators.NewRK4()
//	x := mod.InitialState()
//	x = integ.Step(mod, x, rates, t, dt)
//
// # Thread Safety
//
// Models are read-only during a run and safe to share across individuals.
// Integrators keep scratch space and must not be shared between goroutines;
// each simulation worker constructs its own.
package simcore
