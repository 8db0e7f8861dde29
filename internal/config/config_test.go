package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pksim/pksim/internal/tgrid"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Model != "onecmt_oral" || cfg.Integrator != "rk4" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.Dt != DefaultDt || cfg.TScale != DefaultTScale {
		t.Errorf("unexpected numeric defaults: %+v", cfg)
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	yaml := `model: onecmt_iv
params:
  CL: 2
  V: 10
req: [CP]
carry: [WT]
tscale: 24
design:
  descol: GRP
  grids:
    - start: 0
      end: 24
      delta: 6
      add: [0.5]
      label: dense
`
	if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Model != "onecmt_iv" {
		t.Errorf("model not overlaid: %q", cfg.Model)
	}
	if cfg.Integrator != "rk4" {
		t.Errorf("unset fields must keep their defaults, got %q", cfg.Integrator)
	}
	if cfg.Params["CL"] != 2 || cfg.Params["V"] != 10 {
		t.Errorf("params wrong: %v", cfg.Params)
	}
	if cfg.TScale != 24 {
		t.Errorf("tscale wrong: %g", cfg.TScale)
	}
	if cfg.Design.Descol != "GRP" || len(cfg.Design.Grids) != 1 {
		t.Fatalf("design wrong: %+v", cfg.Design)
	}
	g := cfg.Design.Grids[0]
	if g.End != 24 || g.Delta != 6 || len(g.Add) != 1 || g.Label != "dense" {
		t.Errorf("grid wrong: %+v", g)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("missing file should error")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")

	cfg := DefaultConfig()
	cfg.Model = "twocmt_oral"
	cfg.Req = []string{"CP"}
	cfg.Strict = true

	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.Model != "twocmt_oral" || !loaded.Strict || len(loaded.Req) != 1 {
		t.Errorf("round trip lost settings: %+v", loaded)
	}
}

func TestRunConfigConversion(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Req = []string{"CP"}
	cfg.Carry = []string{"WT", "DOSE"}
	cfg.TScale = 24
	cfg.ObsOnly = true
	cfg.Workers = 2
	cfg.Design = DesignConfig{
		Descol: "GRP",
		Grids:  []GridConfig{{Start: 0, End: 24, Delta: 6}},
	}

	rc, err := cfg.RunConfig()
	if err != nil {
		t.Fatalf("RunConfig: %v", err)
	}

	if len(rc.ReqList) != 1 || rc.ReqList[0] != "CP" {
		t.Errorf("req not converted: %v", rc.ReqList)
	}
	if len(rc.Carry) != 2 {
		t.Errorf("carry not converted: %v", rc.Carry)
	}
	if rc.TScale != 24 || !rc.ObsOnly || rc.Workers != 2 {
		t.Errorf("options not converted: %+v", rc)
	}
	if rc.Design.Descol != "GRP" || len(rc.Design.Designs) != 1 {
		t.Fatalf("design not converted: %+v", rc.Design)
	}
	if g, ok := rc.Design.Designs[0].(tgrid.TGrid); !ok || g.Delta != 6 {
		t.Errorf("design entry wrong: %+v", rc.Design.Designs[0])
	}
}

func TestRunConfigRejectsBadTScale(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TScale = -1

	if _, err := cfg.RunConfig(); err == nil {
		t.Error("negative tscale should fail conversion")
	}
}

func TestRunConfigAdaptiveStepping(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Adaptive = true
	cfg.Tolerance = 1e-8

	rc, err := cfg.RunConfig()
	if err != nil {
		t.Fatalf("RunConfig: %v", err)
	}
	if !rc.Step.Adaptive || rc.Step.Tolerance != 1e-8 {
		t.Errorf("stepping not converted: %+v", rc.Step)
	}
}
