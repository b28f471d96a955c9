// Package config holds the YAML run configuration. Values are in the unit
// system named by Units; kappa is in units of the inverse Wigner-Seitz
// radius.
package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/p3md/internal/compute"
	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/ewald"
	"github.com/san-kum/p3md/internal/initial"
	"github.com/san-kum/p3md/internal/integrators"
	"github.com/san-kum/p3md/internal/potentials"
	"github.com/san-kum/p3md/internal/thermostat"
	"github.com/san-kum/p3md/internal/units"
)

const (
	DefaultDt         = 0.01
	DefaultCutoff     = 6.0
	DefaultMesh       = 16
	DefaultOrder      = 5
	DefaultForceError = 1e-3
	DefaultEqSteps    = 1000
	DefaultProdSteps  = 2000
	DefaultDumpStep   = 10
	DefaultTau        = 0.1
)

type Config struct {
	Name       string           `yaml:"name"`
	Units      string           `yaml:"units"`
	Seed       uint64           `yaml:"seed"`
	Workers    int              `yaml:"workers"`
	Species    []SpeciesConfig  `yaml:"species"`
	Box        BoxConfig        `yaml:"box"`
	Potential  PotentialConfig  `yaml:"potential"`
	P3M        P3MConfig        `yaml:"p3m"`
	Integrator IntegratorConfig `yaml:"integrator"`
	Thermostat ThermostatConfig `yaml:"thermostat"`
	Run        RunConfig        `yaml:"run"`
}

type SpeciesConfig struct {
	Name          string  `yaml:"name"`
	Number        int     `yaml:"number"`
	Mass          float64 `yaml:"mass"`
	Charge        float64 `yaml:"charge"`
	NumberDensity float64 `yaml:"number_density"`
	Temperature   float64 `yaml:"temperature"`
}

// BoxConfig left at zero is derived as the cube holding every species at
// its number density.
type BoxConfig struct {
	Lx float64 `yaml:"lx"`
	Ly float64 `yaml:"ly"`
	Lz float64 `yaml:"lz"`
}

func (b BoxConfig) IsZero() bool { return b.Lx == 0 && b.Ly == 0 && b.Lz == 0 }

type PotentialConfig struct {
	Type            string  `yaml:"type"`
	Method          string  `yaml:"method"`
	Cutoff          float64 `yaml:"cutoff"`
	ScreeningLength float64 `yaml:"screening_length"`
	Kappa           float64 `yaml:"kappa"`

	Epsilon          []float64 `yaml:"epsilon,omitempty"`
	Sigma            []float64 `yaml:"sigma,omitempty"`
	HighPower        float64   `yaml:"high_power,omitempty"`
	LowPower         float64   `yaml:"low_power,omitempty"`
	ShortRangeCutoff float64   `yaml:"short_range_cutoff,omitempty"`

	Nu       float64 `yaml:"nu,omitempty"`
	B        float64 `yaml:"b,omitempty"`
	LambdaTF float64 `yaml:"lambda_tf,omitempty"`

	Pauli bool `yaml:"pauli,omitempty"`

	Coefficients []float64 `yaml:"coefficients,omitempty"`
	Exponents    []float64 `yaml:"exponents,omitempty"`

	// Table is the path of an r,u,f CSV file.
	Table string `yaml:"table,omitempty"`
}

type P3MConfig struct {
	Mesh       [3]int  `yaml:"mesh,flow"`
	Order      int     `yaml:"order"`
	Aliases    [3]int  `yaml:"aliases,flow"`
	ForceError float64 `yaml:"force_error"`
	Alpha      float64 `yaml:"alpha,omitempty"`
	FFT        string  `yaml:"fft,omitempty"`
}

type IntegratorConfig struct {
	Type          string     `yaml:"type"`
	Dt            float64    `yaml:"dt"`
	LangevinGamma float64    `yaml:"langevin_gamma,omitempty"`
	MagneticField [3]float64 `yaml:"magnetic_field,flow"`
}

type ThermostatConfig struct {
	Type        string  `yaml:"type"`
	Tau         float64 `yaml:"tau"`
	Temperature float64 `yaml:"temperature"`
	StartStep   int     `yaml:"start_step"`
	RemoveDrift bool    `yaml:"remove_drift"`
}

type RunConfig struct {
	EquilibrationSteps int    `yaml:"equilibration_steps"`
	ProductionSteps    int    `yaml:"production_steps"`
	DumpStep           int    `yaml:"dump_step"`
	EqDumpStep         int    `yaml:"eq_dump_step"`
	Boundary           string `yaml:"boundary"`
	Placement          string `yaml:"placement"`

	RReject     float64 `yaml:"r_reject,omitempty"`
	Perturb     float64 `yaml:"perturb,omitempty"`
	HaltonBases [3]int  `yaml:"halton_bases,flow"`
}

// DefaultConfig is a weakly coupled one-component Yukawa plasma in reduced
// units with unit Wigner-Seitz radius.
func DefaultConfig() *Config {
	return &Config{
		Name:    "default",
		Units:   "reduced",
		Seed:    1,
		Workers: 0,
		Species: []SpeciesConfig{
			{Name: "ion", Number: 1000, Mass: 1, Charge: 1, NumberDensity: unitDensity, Temperature: 0.1},
		},
		Potential: PotentialConfig{Type: "yukawa", Method: "p3m", Cutoff: DefaultCutoff, Kappa: 1},
		P3M: P3MConfig{
			Mesh:       [3]int{DefaultMesh, DefaultMesh, DefaultMesh},
			Order:      DefaultOrder,
			Aliases:    [3]int{ewald.DefaultAliases, ewald.DefaultAliases, ewald.DefaultAliases},
			ForceError: DefaultForceError,
		},
		Integrator: IntegratorConfig{Type: "verlet", Dt: DefaultDt},
		Thermostat: ThermostatConfig{Type: "berendsen", Tau: DefaultTau, Temperature: 0.1, RemoveDrift: true},
		Run: RunConfig{
			EquilibrationSteps: DefaultEqSteps,
			ProductionSteps:    DefaultProdSteps,
			DumpStep:           DefaultDumpStep,
			EqDumpStep:         DefaultDumpStep,
			Boundary:           "periodic",
			Placement:          string(initial.Random),
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML over DefaultConfig, so omitted keys keep their
// defaults. A species list in data replaces the default one.
func Parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
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

// TotalParticles sums the species numbers.
func (c *Config) TotalParticles() int {
	n := 0
	for _, s := range c.Species {
		n += s.Number
	}
	return n
}

// Validate checks every section and reports all problems at once, each as
// a ConfigurationError.
func (c *Config) Validate() error {
	var errs []error
	add := func(param string, value any, format string, args ...any) {
		errs = append(errs, dynamo.Configf(param, value, format, args...))
	}

	if _, err := units.Lookup(c.Units); err != nil {
		errs = append(errs, err)
	}
	if c.Workers < 0 {
		add("workers", c.Workers, "must be non-negative")
	}

	if len(c.Species) == 0 {
		add("species", nil, "at least one species is required")
	}
	names := make(map[string]bool, len(c.Species))
	for i, s := range c.Species {
		if s.Name == "" || names[s.Name] {
			add("species.name", s.Name, "species %d needs a unique name", i)
		}
		names[s.Name] = true
		if s.Number <= 0 {
			add("species.number", s.Number, "species %s needs at least one particle", s.Name)
		}
		if !(s.Mass > 0) {
			add("species.mass", s.Mass, "species %s needs a positive mass", s.Name)
		}
		if s.Temperature < 0 {
			add("species.temperature", s.Temperature, "species %s has a negative temperature", s.Name)
		}
		if s.NumberDensity < 0 || (s.NumberDensity == 0 && c.Box.IsZero()) {
			add("species.number_density", s.NumberDensity, "species %s needs a positive density when the box is not given", s.Name)
		}
	}
	if !c.Box.IsZero() && (c.Box.Lx <= 0 || c.Box.Ly <= 0 || c.Box.Lz <= 0) {
		add("box", c.Box, "every box length must be positive")
	}

	p := c.Potential
	if !slices.Contains(potentials.Kinds(), potentials.Kind(p.Type)) {
		add("potential.type", p.Type, "unknown potential (%v)", potentials.Kinds())
	}
	if p.Method != string(potentials.PP) && p.Method != string(potentials.P3M) {
		add("potential.method", p.Method, "unknown method (pp, p3m)")
	}
	if !(p.Cutoff > 0) {
		add("potential.cutoff", p.Cutoff, "must be positive")
	}
	if p.Method == string(potentials.P3M) {
		m := c.P3M
		for _, n := range m.Mesh {
			if n <= 0 {
				add("p3m.mesh", m.Mesh, "every mesh dimension must be positive")
				break
			}
		}
		if m.Order < ewald.MinOrder || m.Order > ewald.MaxOrder {
			add("p3m.order", m.Order, "must be in [%d, %d]", ewald.MinOrder, ewald.MaxOrder)
		}
		if m.Alpha == 0 && !(m.ForceError > 0) {
			add("p3m.force_error", m.ForceError, "must be positive unless alpha is given")
		}
		if m.FFT != "" && !slices.Contains(compute.Backends(), m.FFT) {
			add("p3m.fft", m.FFT, "unknown backend (%v)", compute.Backends())
		}
	}

	in := c.Integrator
	if in.Type != "" && !slices.Contains(integrators.Names(), in.Type) {
		add("integrator.type", in.Type, "unknown integrator (%v)", integrators.Names())
	}
	if !(in.Dt > 0) {
		add("integrator.dt", in.Dt, "time step must be positive")
	}
	if in.Type == "langevin" && !(in.LangevinGamma > 0) {
		add("integrator.langevin_gamma", in.LangevinGamma, "friction must be positive")
	}

	th := c.Thermostat
	if th.Type != "" && !slices.Contains(thermostat.Names(), th.Type) {
		add("thermostat.type", th.Type, "unknown thermostat (%v)", thermostat.Names())
	}
	if th.Type == "berendsen" {
		if th.Tau < in.Dt || !(th.Tau > 0) {
			add("thermostat.tau", th.Tau, "relaxation time must be at least the time step")
		}
		if in.Type == "langevin" {
			add("thermostat.type", th.Type, "the langevin integrator is its own thermostat")
		}
	}
	if th.Temperature < 0 {
		add("thermostat.temperature", th.Temperature, "must be non-negative")
	}
	if th.StartStep < 0 {
		add("thermostat.start_step", th.StartStep, "must be non-negative")
	}

	r := c.Run
	if r.EquilibrationSteps < 0 {
		add("run.equilibration_steps", r.EquilibrationSteps, "must be non-negative")
	}
	if r.ProductionSteps < 0 {
		add("run.production_steps", r.ProductionSteps, "must be non-negative")
	}
	if r.DumpStep < 0 {
		add("run.dump_step", r.DumpStep, "must be non-negative")
	}
	if r.EqDumpStep < 0 {
		add("run.eq_dump_step", r.EqDumpStep, "must be non-negative")
	}
	if r.Boundary != "" && r.Boundary != "periodic" {
		add("run.boundary", r.Boundary, "only periodic boundaries are supported")
	}
	if r.Placement != "" && !slices.Contains(initial.Methods(), initial.Method(r.Placement)) {
		add("run.placement", r.Placement, "unknown placement (%v)", initial.Methods())
	}

	return errors.Join(errs...)
}
