package engine

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/pksim/pksim/internal/dataset"
	"github.com/pksim/pksim/internal/simcore"
	"github.com/pksim/pksim/internal/timeline"
)

// Sample is the computed state at one timeline point, captured quantities
// already evaluated.
type Sample struct {
	Point    timeline.Point
	X        simcore.State
	Captures []float64
}

// Individual is the outcome of one individual's integration: the samples
// computed before any failure, the failure itself if one occurred, and
// per-individual diagnostics.
type Individual struct {
	ID       string
	Samples  []Sample
	Err      error
	Warnings []string
	Stats    simcore.StepStats
}

// rateOff is a scheduled end of a zero-order infusion.
type rateOff struct {
	time float64
	cmt  int
	rate float64
}

type driver struct {
	model simcore.Model
	integ simcore.Integrator
	step  StepConfig
}

// simulate advances one individual across its merged timeline. Events are
// applied atomically at their scheduled time before the state is sampled;
// infusion rate-offs split the integration between points. A numerical
// failure stops this individual only; computed samples are kept.
func (d *driver) simulate(ctx context.Context, id string, points []timeline.Point) Individual {
	res := Individual{ID: id}

	ncmt := d.model.Ncmt()
	x := d.model.InitialState().Clone()
	rates := make(simcore.Rates, ncmt)
	var offs []rateOff

	t := 0.0
	dt := d.step.Dt
	if d.step.Adaptive && dt <= 0 {
		dt = d.step.MaxDt
	}

	for i, p := range points {
		select {
		case <-ctx.Done():
			res.Err = ctx.Err()
			return res
		default:
		}

		if p.Time < t {
			res.Err = &simcore.DataError{ID: id, Wrapped: fmt.Errorf("timeline not ordered at t=%g", p.Time)}
			return res
		}

		var err error
		x, rates, offs, dt, err = d.advance(x, rates, offs, t, p.Time, dt, &res.Stats)
		if err != nil {
			res.Err = &simcore.IntegrationError{ID: id, Time: p.Time, Step: i, Wrapped: err}
			return res
		}
		t = p.Time

		if p.Kind == timeline.Event {
			offs, err = d.applyEvent(x, rates, offs, p.Rec)
			if err != nil {
				res.Err = &simcore.DataError{ID: id, Wrapped: err}
				return res
			}
		}

		if d.step.ValidateState && !x.IsValid() {
			res.Err = &simcore.IntegrationError{ID: id, Time: t, Step: i, Wrapped: simcore.ErrInvalidState}
			return res
		}

		res.Samples = append(res.Samples, Sample{
			Point:    p,
			X:        x.Clone(),
			Captures: d.model.CaptureValues(x, t),
		})
	}

	return res
}

// advance integrates from t0 to t1, splitting at infusion end times.
func (d *driver) advance(x simcore.State, rates simcore.Rates, offs []rateOff, t0, t1, dt float64, stats *simcore.StepStats) (simcore.State, simcore.Rates, []rateOff, float64, error) {
	for t0 < t1 {
		segEnd := t1
		for _, off := range offs {
			if off.time > t0 && off.time < segEnd {
				segEnd = off.time
			}
		}

		var err error
		x, dt, err = d.integrate(x, rates, t0, segEnd, dt, stats)
		if err != nil {
			return x, rates, offs, dt, err
		}
		t0 = segEnd

		kept := offs[:0]
		for _, off := range offs {
			if off.time <= t0 {
				rates[off.cmt] -= off.rate
				if rates[off.cmt] < 0 {
					rates[off.cmt] = 0
				}
				continue
			}
			kept = append(kept, off)
		}
		offs = kept
	}
	return x, rates, offs, dt, nil
}

func (d *driver) integrate(x simcore.State, rates simcore.Rates, t0, t1, dt float64, stats *simcore.StepStats) (simcore.State, float64, error) {
	if d.step.Adaptive {
		adaptive, ok := d.integ.(simcore.AdaptiveIntegrator)
		if !ok {
			// the integrator cannot adapt; fixed stepping at the running
			// width, since Dt may be unset under the adaptive flag
			width := d.step.Dt
			if width <= 0 {
				width = dt
			}
			xNew, _, err := d.fixedSteps(x, rates, t0, t1, width, stats)
			return xNew, dt, err
		}
		for t1-t0 > 1e-12*(1+math.Abs(t1)) {
			h := dt
			clipped := false
			if h > t1-t0 {
				h = t1 - t0
				clipped = true
			}
			if h < d.step.MinDt && !clipped {
				return x, dt, simcore.ErrStepTooSmall
			}
			xNew, dtNext, err := adaptive.StepAdaptive(d.model, x, rates, t0, h, d.step.Tolerance)
			if err != nil {
				return x, dt, err
			}
			if !xNew.IsValid() {
				return x, dt, simcore.ErrInvalidState
			}
			x = xNew
			t0 += h
			stats.Steps++
			if !clipped {
				dt = math.Min(math.Max(dtNext, d.step.MinDt), d.step.MaxDt)
			}
		}
		stats.LastDt = dt
		return x, dt, nil
	}

	xNew, _, err := d.fixedSteps(x, rates, t0, t1, d.step.Dt, stats)
	return xNew, dt, err
}

func (d *driver) fixedSteps(x simcore.State, rates simcore.Rates, t0, t1, width float64, stats *simcore.StepStats) (simcore.State, float64, error) {
	span := t1 - t0
	n := int(math.Ceil(span/width - 1e-9))
	if n < 1 {
		n = 1
	}
	h := span / float64(n)
	for i := 0; i < n; i++ {
		x = d.integ.Step(d.model, x, rates, t0+float64(i)*h, h)
		stats.Steps++
		if d.step.ValidateState && !x.IsValid() {
			return x, h, simcore.ErrInvalidState
		}
	}
	stats.LastDt = h
	return x, h, nil
}

// applyEvent mutates state and rates in place for a dose or reset record.
func (d *driver) applyEvent(x simcore.State, rates simcore.Rates, offs []rateOff, rec *dataset.Record) ([]rateOff, error) {
	if rec.Cmt > d.model.Ncmt() {
		return offs, fmt.Errorf("dose compartment %d exceeds model size %d", rec.Cmt, d.model.Ncmt())
	}

	reset := func() {
		copy(x, d.model.InitialState())
		for i := range rates {
			rates[i] = 0
		}
		offs = offs[:0]
	}

	switch rec.Evid {
	case dataset.EvidReset:
		reset()
	case dataset.EvidResetDose:
		reset()
		offs = dose(x, rates, offs, rec)
	case dataset.EvidDose:
		offs = dose(x, rates, offs, rec)
	}

	sort.Slice(offs, func(i, j int) bool { return offs[i].time < offs[j].time })
	return offs, nil
}

func dose(x simcore.State, rates simcore.Rates, offs []rateOff, rec *dataset.Record) []rateOff {
	cmt := rec.Cmt - 1
	if rec.Rate > 0 {
		rates[cmt] += rec.Rate
		offs = append(offs, rateOff{
			time: rec.Time + rec.Amt/rec.Rate,
			cmt:  cmt,
			rate: rec.Rate,
		})
		return offs
	}
	x[cmt] += rec.Amt
	return offs
}
