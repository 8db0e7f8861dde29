package simcore

import (
	"errors"
	"fmt"
)

// Domain errors for configuration and simulation.
var (
	// ErrNoValidDesign indicates a design list with no usable entries.
	ErrNoValidDesign = errors.New("pksim: no valid design entries (want tgrid, tgrids or []float64)")

	// ErrIDataRequired indicates a design column was requested without an
	// individual-level table attached.
	ErrIDataRequired = errors.New("pksim: design column requires an idata table")

	// ErrNoSuchColumn indicates a referenced column does not exist.
	ErrNoSuchColumn = errors.New("pksim: column not found")

	// ErrBadTimeScale indicates a non-positive time scale factor.
	ErrBadTimeScale = errors.New("pksim: tscale must be positive")

	// ErrInvalidState indicates the state vector went non-finite.
	ErrInvalidState = errors.New("pksim: invalid state (NaN or Inf detected)")

	// ErrStepTooSmall indicates the adaptive timestep underflowed.
	ErrStepTooSmall = errors.New("pksim: adaptive timestep below minimum")
)

// ConfigError is a configuration problem detected before any computation.
type ConfigError struct {
	Option  string
	Wrapped error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config %s: %v", e.Option, e.Wrapped)
}

func (e *ConfigError) Unwrap() error { return e.Wrapped }

// DataError is a problem with the input data set or individual-level table.
type DataError struct {
	ID      string
	Column  string
	Wrapped error
}

func (e *DataError) Error() string {
	switch {
	case e.ID != "" && e.Column != "":
		return fmt.Sprintf("data (id=%s, column=%s): %v", e.ID, e.Column, e.Wrapped)
	case e.ID != "":
		return fmt.Sprintf("data (id=%s): %v", e.ID, e.Wrapped)
	case e.Column != "":
		return fmt.Sprintf("data (column=%s): %v", e.Column, e.Wrapped)
	default:
		return fmt.Sprintf("data: %v", e.Wrapped)
	}
}

func (e *DataError) Unwrap() error { return e.Wrapped }

// IntegrationError is a per-individual numerical failure. It does not abort
// the batch unless strict mode is requested.
type IntegrationError struct {
	ID      string
	Time    float64
	Step    int
	Wrapped error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("integration failed for id=%s at t=%.6g (step %d): %v", e.ID, e.Time, e.Step, e.Wrapped)
}

func (e *IntegrationError) Unwrap() error { return e.Wrapped }
