package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt        = 0.1
	DefaultTolerance = 1e-6
	DefaultTScale    = 1.0
)

// Config is the YAML run file: model choice, stepping, output options and
// the observation design.
type Config struct {
	Model      string             `yaml:"model"`
	Integrator string             `yaml:"integrator"`
	Params     map[string]float64 `yaml:"params"`

	Dt        float64 `yaml:"dt"`
	Adaptive  bool    `yaml:"adaptive"`
	Tolerance float64 `yaml:"tolerance"`

	Request []string `yaml:"request"`
	Req     []string `yaml:"req"`
	Carry   []string `yaml:"carry"`
	TScale  float64  `yaml:"tscale"`
	ObsOnly bool     `yaml:"obsonly"`
	ObsAug  bool     `yaml:"obsaug"`

	Workers int  `yaml:"workers"`
	Strict  bool `yaml:"strict"`
	FillNA  bool `yaml:"fill_na"`

	Design DesignConfig `yaml:"design"`
}

type DesignConfig struct {
	Descol string       `yaml:"descol"`
	Grids  []GridConfig `yaml:"grids"`
}

type GridConfig struct {
	Start float64   `yaml:"start"`
	End   float64   `yaml:"end"`
	Delta float64   `yaml:"delta"`
	Add   []float64 `yaml:"add"`
	Label string    `yaml:"label"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      "onecmt_oral",
		Integrator: "rk4",
		Dt:         DefaultDt,
		Tolerance:  DefaultTolerance,
		TScale:     DefaultTScale,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
