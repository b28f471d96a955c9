package experiment

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/compute"
	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/integrators"
	"github.com/san-kum/p3md/internal/metrics"
	"github.com/san-kum/p3md/internal/particles"
	"github.com/san-kum/p3md/internal/thermostat"
)

// stabilityFraction is the share of the smallest box length a particle may
// cross in one step before the stability metric counts a violation.
const stabilityFraction = 0.1

type Registry struct {
	integrators map[string]func(integrators.Params) (integrators.Integrator, error)
	thermostats map[string]func(thermostat.Params) (thermostat.Thermostat, error)
	backends    map[string]func() (compute.Backend, error)
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func(integrators.Params) (integrators.Integrator, error)),
		thermostats: make(map[string]func(thermostat.Params) (thermostat.Thermostat, error)),
		backends:    make(map[string]func() (compute.Backend, error)),
	}

	for _, name := range integrators.Names() {
		r.integrators[name] = func(p integrators.Params) (integrators.Integrator, error) {
			return integrators.New(name, p)
		}
	}
	for _, name := range thermostat.Names() {
		r.thermostats[name] = func(p thermostat.Params) (thermostat.Thermostat, error) {
			return thermostat.New(name, p)
		}
	}
	for _, name := range compute.Backends() {
		r.backends[name] = func() (compute.Backend, error) { return compute.Lookup(name) }
	}
	r.backends["auto"] = func() (compute.Backend, error) { return compute.AutoSelectBackend(), nil }

	return r
}

// GetIntegrator returns the named integrator; an empty name is verlet.
func (r *Registry) GetIntegrator(name string, p integrators.Params) (integrators.Integrator, error) {
	if name == "" {
		name = "verlet"
	}
	fn, ok := r.integrators[name]
	if !ok {
		return nil, dynamo.Configf("integrator.type", name, "unknown integrator (%v)", r.ListIntegrators())
	}
	return fn(p)
}

// GetThermostat returns the named thermostat; an empty name is none.
func (r *Registry) GetThermostat(name string, p thermostat.Params) (thermostat.Thermostat, error) {
	if name == "" {
		name = "none"
	}
	fn, ok := r.thermostats[name]
	if !ok {
		return nil, dynamo.Configf("thermostat.type", name, "unknown thermostat (%v)", r.ListThermostats())
	}
	return fn(p)
}

// GetBackend returns the named FFT backend; an empty name selects one
// automatically.
func (r *Registry) GetBackend(name string) (compute.Backend, error) {
	if name == "" {
		name = "auto"
	}
	fn, ok := r.backends[name]
	if !ok {
		return nil, fmt.Errorf("unknown fft backend: %s", name)
	}
	return fn()
}

func (r *Registry) ListIntegrators() []string { return keys(r.integrators) }
func (r *Registry) ListThermostats() []string { return keys(r.thermostats) }
func (r *Registry) ListBackends() []string    { return keys(r.backends) }

func keys[V any](m map[string]V) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(species *particles.SpeciesTable, dt float64, box r3.Vec) []dynamo.Metric {
	masses := make([]float64, species.Len())
	for i, s := range species.All() {
		masses[i] = s.Mass
	}
	lmin := min(box.X, box.Y, box.Z)
	return []dynamo.Metric{
		metrics.NewEnergy(),
		metrics.NewEnergyDrift(),
		metrics.NewTemperature(),
		metrics.NewPressure(),
		metrics.NewMomentum(masses),
		metrics.NewStability(dt, stabilityFraction*lmin),
	}
}
