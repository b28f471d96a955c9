package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrConfiguration indicates an invalid or inconsistent run configuration.
	ErrConfiguration = errors.New("dynamo: invalid configuration")

	// ErrInstability indicates the integration produced non-finite values or runaway particles.
	ErrInstability = errors.New("dynamo: simulation unstable")

	// ErrContextCanceled indicates the simulation was interrupted.
	ErrContextCanceled = errors.New("dynamo: simulation canceled by context")
)

// ConfigurationError is raised during setup only and is never retried.
type ConfigurationError struct {
	Param  string
	Value  any
	Reason string
}

func (e *ConfigurationError) Error() string {
	if e.Value == nil {
		return fmt.Sprintf("configuration: %s: %s", e.Param, e.Reason)
	}
	return fmt.Sprintf("configuration: %s=%v: %s", e.Param, e.Value, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool { return target == ErrConfiguration }

// Configf builds a ConfigurationError.
func Configf(param string, value any, format string, args ...any) error {
	return &ConfigurationError{Param: param, Value: value, Reason: fmt.Sprintf(format, args...)}
}

// NumericalInstabilityError halts a run. Particle is -1 when the offending
// quantity is global (an energy, for instance).
type NumericalInstabilityError struct {
	Step     int
	Time     float64
	Particle int
	Reason   string
}

func (e *NumericalInstabilityError) Error() string {
	if e.Particle < 0 {
		return fmt.Sprintf("step %d (t=%.4g): %s", e.Step, e.Time, e.Reason)
	}
	return fmt.Sprintf("step %d (t=%.4g): particle %d: %s", e.Step, e.Time, e.Particle, e.Reason)
}

func (e *NumericalInstabilityError) Is(target error) bool { return target == ErrInstability }
