// Package thermostat provides velocity-rescaling temperature control for
// the equilibration phase.
//
// Thermostats implement [Thermostat]:
//
//   - [Berendsen]: proportional rescaling towards a target temperature
//   - [None]: leaves velocities untouched
//
// # Usage
//
//	th, err := thermostat.New("berendsen", thermostat.Params{Dt: 0.01, Tau: 1, Temperature: 1, KB: 1})
//	// Apply is called once per step, after the integrator
//	factor := th.Apply(store, step, phase)
package thermostat
