package engine

import (
	"errors"
	"fmt"
	"sort"

	"github.com/pksim/pksim/internal/integrators"
	"github.com/pksim/pksim/internal/pkmodels"
	"github.com/pksim/pksim/internal/simcore"
)

var (
	errNonPositiveDt  = errors.New("dt must be positive for fixed stepping")
	errNonPositiveTol = errors.New("tolerance must be positive for adaptive stepping")
)

type Registry struct {
	models      map[string]func() simcore.Model
	integrators map[string]func() simcore.Integrator
}

func NewRegistry() *Registry {
	r := &Registry{
		models:      make(map[string]func() simcore.Model),
		integrators: make(map[string]func() simcore.Integrator),
	}

	r.models["onecmt_iv"] = func() simcore.Model { return pkmodels.NewOneCmtIV() }
	r.models["onecmt_oral"] = func() simcore.Model { return pkmodels.NewOneCmtOral() }
	r.models["twocmt_oral"] = func() simcore.Model { return pkmodels.NewTwoCmtOral() }

	r.integrators["euler"] = func() simcore.Integrator { return integrators.NewEuler() }
	r.integrators["rk4"] = func() simcore.Integrator { return integrators.NewRK4() }
	r.integrators["rk45"] = func() simcore.Integrator { return integrators.NewRK45() }

	return r
}

func (r *Registry) Model(name string) (simcore.Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("unknown model: %s", name)
	}
	return fn(), nil
}

func (r *Registry) Integrator(name string) (func() simcore.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s", name)
	}
	return fn, nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
