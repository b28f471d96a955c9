package config

import (
	"math"
	"sort"
)

// unitDensity puts the Wigner-Seitz radius at one.
var unitDensity = 3 / (4 * math.Pi)

func ocp(name string, number int, temperature float64) []SpeciesConfig {
	return []SpeciesConfig{{Name: name, Number: number, Mass: 1, Charge: 1, NumberDensity: unitDensity, Temperature: temperature}}
}

func p3m(mesh, order int, forceError float64) P3MConfig {
	return P3MConfig{Mesh: [3]int{mesh, mesh, mesh}, Order: order, Aliases: [3]int{3, 3, 3}, ForceError: forceError}
}

func run(eq, prod, dump int, placement string) RunConfig {
	return RunConfig{
		EquilibrationSteps: eq, ProductionSteps: prod,
		DumpStep: dump, EqDumpStep: dump,
		Boundary: "periodic", Placement: placement,
	}
}

// Presets are keyed by potential type, then by preset name. All use
// reduced units.
var Presets = map[string]map[string]*Config{
	"yukawa": {
		"p3m": {
			Name: "yukawa_p3m", Units: "reduced", Seed: 1,
			Species:    ocp("ion", 1000, 0.01),
			Potential:  PotentialConfig{Type: "yukawa", Method: "p3m", Cutoff: 6, Kappa: 2},
			P3M:        p3m(16, 5, 1e-4),
			Integrator: IntegratorConfig{Type: "verlet", Dt: 0.01},
			Thermostat: ThermostatConfig{Type: "berendsen", Tau: 0.1, Temperature: 0.01, RemoveDrift: true},
			Run:        run(2000, 5000, 10, "random_no_reject"),
		},
		"pp": {
			Name: "yukawa_pp", Units: "reduced", Seed: 1,
			Species:    ocp("ion", 1000, 0.01),
			Potential:  PotentialConfig{Type: "yukawa", Method: "pp", Cutoff: 6, Kappa: 2},
			Integrator: IntegratorConfig{Type: "verlet", Dt: 0.01},
			Thermostat: ThermostatConfig{Type: "berendsen", Tau: 0.1, Temperature: 0.01, RemoveDrift: true},
			Run:        run(2000, 5000, 10, "random_no_reject"),
		},
		"langevin": {
			Name: "yukawa_langevin", Units: "reduced", Seed: 1,
			Species:    ocp("ion", 1000, 0.05),
			Potential:  PotentialConfig{Type: "yukawa", Method: "pp", Cutoff: 6, Kappa: 2},
			Integrator: IntegratorConfig{Type: "langevin", Dt: 0.01, LangevinGamma: 0.5},
			Thermostat: ThermostatConfig{Type: "none", Temperature: 0.05},
			Run:        run(1000, 5000, 10, "random_no_reject"),
		},
	},
	"coulomb": {
		"ocp": {
			Name: "ocp", Units: "reduced", Seed: 1,
			Species:    ocp("ion", 1000, 0.1),
			Potential:  PotentialConfig{Type: "coulomb", Method: "p3m", Cutoff: 6},
			P3M:        p3m(16, 5, 1e-3),
			Integrator: IntegratorConfig{Type: "verlet", Dt: 0.01},
			Thermostat: ThermostatConfig{Type: "berendsen", Tau: 0.1, Temperature: 0.1, RemoveDrift: true},
			Run:        run(1000, 4000, 10, "lattice"),
		},
		"magnetized": {
			Name: "ocp_magnetized", Units: "reduced", Seed: 1,
			Species:    ocp("ion", 1000, 0.1),
			Potential:  PotentialConfig{Type: "coulomb", Method: "p3m", Cutoff: 6},
			P3M:        p3m(16, 5, 1e-3),
			Integrator: IntegratorConfig{Type: "magnetic", Dt: 0.01, MagneticField: [3]float64{0, 0, 1}},
			Thermostat: ThermostatConfig{Type: "berendsen", Tau: 0.1, Temperature: 0.1, RemoveDrift: true},
			Run:        run(1000, 4000, 10, "lattice"),
		},
	},
	"lj": {
		"fluid": {
			Name: "lj_fluid", Units: "reduced", Seed: 1,
			Species: []SpeciesConfig{{Name: "ar", Number: 512, Mass: 1, NumberDensity: 0.8, Temperature: 1}},
			Potential: PotentialConfig{
				Type: "lj", Method: "pp", Cutoff: 2.5,
				Epsilon: []float64{1}, Sigma: []float64{1}, HighPower: 12, LowPower: 6, ShortRangeCutoff: 0.5,
			},
			Integrator: IntegratorConfig{Type: "verlet", Dt: 0.002},
			Thermostat: ThermostatConfig{Type: "berendsen", Tau: 0.05, Temperature: 1, RemoveDrift: true},
			Run:        run(2000, 5000, 20, "lattice"),
		},
	},
}

func GetPreset(kind, preset string) *Config {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	cfg, ok := kindPresets[preset]
	if !ok {
		return nil
	}
	return cfg
}

func ListPresets(kind string) []string {
	kindPresets, ok := Presets[kind]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(kindPresets))
	for name := range kindPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetKinds lists the potential types that have presets.
func PresetKinds() []string {
	kinds := make([]string, 0, len(Presets))
	for k := range Presets {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// Clone returns a deep copy, so presets can be edited safely.
func (c *Config) Clone() *Config {
	cp := *c
	cp.Species = append([]SpeciesConfig(nil), c.Species...)
	cp.Potential.Epsilon = append([]float64(nil), c.Potential.Epsilon...)
	cp.Potential.Sigma = append([]float64(nil), c.Potential.Sigma...)
	cp.Potential.Coefficients = append([]float64(nil), c.Potential.Coefficients...)
	cp.Potential.Exponents = append([]float64(nil), c.Potential.Exponents...)
	return &cp
}
