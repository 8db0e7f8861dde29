package engine

import (
	"runtime"
	"time"

	"github.com/pksim/pksim/internal/simcore"
	"github.com/pksim/pksim/internal/tgrid"
)

// StepConfig controls the numerical stepping between timeline points.
type StepConfig struct {
	Dt            float64
	Adaptive      bool
	Tolerance     float64
	MinDt         float64
	MaxDt         float64
	ValidateState bool
}

func DefaultStepConfig() StepConfig {
	return StepConfig{
		Dt:            0.1,
		Tolerance:     1e-6,
		MinDt:         1e-8,
		MaxDt:         1.0,
		ValidateState: true,
	}
}

// RunConfig is a frozen run configuration. Build one through Builder;
// a run consumes it read-only.
type RunConfig struct {
	// Request lists compartments to output; all captures are kept.
	Request []string
	// ReqList, when non-empty, is exclusive: only the listed compartments
	// and captures appear in the output.
	ReqList []string
	// Carry lists data columns copied into output rows.
	Carry []string
	// TScale multiplies every reported time.
	TScale  float64
	ObsOnly bool
	ObsAug  bool
	Design  tgrid.Assignment
	Workers int
	// Strict turns any per-individual integration failure into a run error.
	Strict bool
	// FillNA keeps a failed individual's remaining rows, NA-filled,
	// instead of omitting them.
	FillNA  bool
	Timeout time.Duration
	Step    StepConfig
}

func DefaultRunConfig() RunConfig {
	return RunConfig{
		TScale:  1.0,
		Workers: runtime.NumCPU(),
		Step:    DefaultStepConfig(),
	}
}

// Builder accumulates configuration through chained calls and returns an
// immutable RunConfig from Build. The first invalid setting sticks and is
// reported by Build; nothing is deferred to run time.
type Builder struct {
	cfg RunConfig
	err error
}

func NewBuilder() *Builder {
	return &Builder{cfg: DefaultRunConfig()}
}

// Req sets the exclusive output list (compartments and captures).
func (b *Builder) Req(names ...string) *Builder {
	b.cfg.ReqList = append([]string(nil), names...)
	return b
}

// Request sets the compartment output list; captures are always kept.
func (b *Builder) Request(names ...string) *Builder {
	b.cfg.Request = append([]string(nil), names...)
	return b
}

func (b *Builder) CarryOut(columns ...string) *Builder {
	b.cfg.Carry = append([]string(nil), columns...)
	return b
}

// TScale sets the reported-time multiplier. Repeated calls do not
// compose: the last one wins.
func (b *Builder) TScale(k float64) *Builder {
	if k <= 0 {
		b.fail(&simcore.ConfigError{Option: "tscale", Wrapped: simcore.ErrBadTimeScale})
		return b
	}
	b.cfg.TScale = k
	return b
}

func (b *Builder) ObsOnly(v bool) *Builder {
	b.cfg.ObsOnly = v
	return b
}

func (b *Builder) ObsAug(v bool) *Builder {
	b.cfg.ObsAug = v
	return b
}

func (b *Builder) Design(a tgrid.Assignment) *Builder {
	b.cfg.Design = a
	return b
}

func (b *Builder) Workers(n int) *Builder {
	if n > 0 {
		b.cfg.Workers = n
	}
	return b
}

func (b *Builder) Strict(v bool) *Builder {
	b.cfg.Strict = v
	return b
}

func (b *Builder) FillNA(v bool) *Builder {
	b.cfg.FillNA = v
	return b
}

func (b *Builder) Timeout(d time.Duration) *Builder {
	b.cfg.Timeout = d
	return b
}

func (b *Builder) Step(s StepConfig) *Builder {
	if s.Dt <= 0 && !s.Adaptive {
		b.fail(&simcore.ConfigError{Option: "step", Wrapped: errNonPositiveDt})
		return b
	}
	if s.Adaptive && s.Tolerance <= 0 {
		b.fail(&simcore.ConfigError{Option: "step", Wrapped: errNonPositiveTol})
		return b
	}
	b.cfg.Step = s
	return b
}

func (b *Builder) fail(err error) {
	if b.err == nil {
		b.err = err
	}
}

// Build returns the frozen configuration or the first validation error.
func (b *Builder) Build() (RunConfig, error) {
	if b.err != nil {
		return RunConfig{}, b.err
	}
	return b.cfg, nil
}
