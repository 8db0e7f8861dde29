package engine

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/pksim/pksim/internal/dataset"
	"github.com/pksim/pksim/internal/integrators"
	"github.com/pksim/pksim/internal/simcore"
)

func rk4Factory() simcore.Integrator { return integrators.NewRK4() }

func batchDataset(t *testing.T, recs []dataset.Record) *dataset.Dataset {
	t.Helper()
	d, err := dataset.New(recs, nil)
	if err != nil {
		t.Fatal(err)
	}
	return d
}

func TestRunBatchDeterministicOrder(t *testing.T) {
	m := ivModel(1, 10)
	ids := []string{"3", "1", "2"}

	grids := map[string][]float64{}
	var recs []dataset.Record
	for _, id := range ids {
		grids[id] = []float64{0, 6, 12}
		recs = append(recs, dataset.Record{ID: id, Time: 0, Evid: dataset.EvidDose, Amt: 100, Cmt: 1})
	}
	data := batchDataset(t, recs)

	cfg := DefaultRunConfig()
	cfg.Workers = 2

	for trial := 0; trial < 5; trial++ {
		out := RunBatch(context.Background(), m, rk4Factory, ids, grids, data, nil, cfg)
		if len(out) != 3 {
			t.Fatalf("expected 3 individuals, got %d", len(out))
		}
		for i, id := range ids {
			if out[i].ID != id {
				t.Fatalf("trial %d: result order %v does not follow input order %v",
					trial, []string{out[0].ID, out[1].ID, out[2].ID}, ids)
			}
		}
	}
}

func TestRunBatchIDataOverridesParams(t *testing.T) {
	m := ivModel(1, 10)
	ids := []string{"1", "2"}
	grids := map[string][]float64{"1": {10}, "2": {10}}

	data := batchDataset(t, []dataset.Record{
		{ID: "1", Time: 0, Evid: dataset.EvidDose, Amt: 100, Cmt: 1},
		{ID: "2", Time: 0, Evid: dataset.EvidDose, Amt: 100, Cmt: 1},
	})

	// individual 2 eliminates twice as fast
	idata := dataset.NewIData([]string{"CL"}, []dataset.IRow{
		{ID: "1", Values: map[string]float64{"CL": 1}},
		{ID: "2", Values: map[string]float64{"CL": 2}},
	})

	out := RunBatch(context.Background(), m, rk4Factory, ids, grids, data, idata, DefaultRunConfig())

	a1 := out[0].Samples[len(out[0].Samples)-1].X[0]
	a2 := out[1].Samples[len(out[1].Samples)-1].X[0]

	want1 := 100 * math.Exp(-0.1*10)
	want2 := 100 * math.Exp(-0.2*10)
	if math.Abs(a1-want1) > 1e-5 || math.Abs(a2-want2) > 1e-5 {
		t.Errorf("per-individual parameters not applied: got %.4f %.4f, want %.4f %.4f",
			a1, a2, want1, want2)
	}

	// the shared template model must stay untouched
	if m.CL != 1 {
		t.Errorf("template model mutated: CL=%g", m.CL)
	}
}

func TestRunBatchFailureIsolation(t *testing.T) {
	m := ivModel(1, 10)
	ids := []string{"1", "2", "3"}
	grids := map[string][]float64{
		"1": {0, 6},
		"2": {0, 3, 6}, // fails: dosed into a compartment the model lacks
		"3": {0, 6},
	}

	data := batchDataset(t, []dataset.Record{
		{ID: "1", Time: 0, Evid: dataset.EvidDose, Amt: 100, Cmt: 1},
		{ID: "2", Time: 0, Evid: dataset.EvidDose, Amt: 100, Cmt: 9},
		{ID: "3", Time: 0, Evid: dataset.EvidDose, Amt: 100, Cmt: 1},
	})

	out := RunBatch(context.Background(), m, rk4Factory, ids, grids, data, nil, DefaultRunConfig())

	if out[0].Err != nil || out[2].Err != nil {
		t.Errorf("healthy individuals affected by a neighbor's failure: %v %v", out[0].Err, out[2].Err)
	}

	var dataErr *simcore.DataError
	if !errors.As(out[1].Err, &dataErr) {
		t.Fatalf("expected DataError for individual 2, got %v", out[1].Err)
	}

	diags := Diagnostics(out)
	if diags[1].ID != "2" || diags[1].Err == nil {
		t.Errorf("diagnostics should carry the failure: %+v", diags[1])
	}
}

func TestRunBatchWithoutDataset(t *testing.T) {
	m := ivModel(1, 10)
	grids := map[string][]float64{"1": {0, 1, 2}}

	out := RunBatch(context.Background(), m, rk4Factory, []string{"1"}, grids, nil, nil, DefaultRunConfig())

	if len(out) != 1 || out[0].Err != nil {
		t.Fatalf("dose-free run should succeed: %+v", out)
	}
	// no doses, so the state stays at the model's initial condition
	for _, s := range out[0].Samples {
		if s.X[0] != 0 {
			t.Errorf("t=%g: expected empty compartment, got %g", s.Point.Time, s.X[0])
		}
	}
}
