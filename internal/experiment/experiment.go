// Package experiment turns a run configuration into ready-to-run
// simulators. Setup does the work shared by every replica (units, species,
// potential matrix, Ewald optimisation); Build adds the per-replica state.
package experiment

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/config"
	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/ewald"
	"github.com/san-kum/p3md/internal/forces"
	"github.com/san-kum/p3md/internal/initial"
	"github.com/san-kum/p3md/internal/integrators"
	"github.com/san-kum/p3md/internal/mesh"
	"github.com/san-kum/p3md/internal/pairwise"
	"github.com/san-kum/p3md/internal/particles"
	"github.com/san-kum/p3md/internal/potentials"
	"github.com/san-kum/p3md/internal/sim"
	"github.com/san-kum/p3md/internal/thermostat"
	"github.com/san-kum/p3md/internal/units"
)

type Experiment struct {
	cfg      *config.Config
	log      *slog.Logger
	registry *Registry

	system  units.System
	species *particles.SpeciesTable
	box     r3.Vec
	plasma  units.Plasma
	matrix  *potentials.Matrix
	green   *ewald.Result
	pairErr float64
	workers int
	ready   bool
}

func New(cfg *config.Config, logger *slog.Logger) *Experiment {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Experiment{
		cfg:      cfg,
		log:      logger,
		registry: NewRegistry(),
	}
}

func (e *Experiment) Config() *config.Config           { return e.cfg }
func (e *Experiment) Species() *particles.SpeciesTable { return e.species }
func (e *Experiment) Box() r3.Vec                      { return e.box }
func (e *Experiment) Plasma() units.Plasma             { return e.plasma }
func (e *Experiment) Matrix() *potentials.Matrix       { return e.matrix }

// Ewald is the optimizer result, nil for pairwise-only runs.
func (e *Experiment) Ewald() *ewald.Result { return e.green }

// Setup validates the configuration and derives everything that does not
// depend on the replica seed.
func (e *Experiment) Setup(ctx context.Context) error {
	c := e.cfg
	if err := c.Validate(); err != nil {
		return err
	}

	sys, err := units.Lookup(c.Units)
	if err != nil {
		return err
	}
	e.system = sys
	e.workers = c.Workers
	if e.workers <= 0 {
		e.workers = dynamo.DefaultWorkers()
	}

	if err := e.setupSpecies(); err != nil {
		return err
	}
	if err := e.setupPotential(); err != nil {
		return err
	}
	if lmin := math.Min(e.box.X, math.Min(e.box.Y, e.box.Z)); e.matrix.Cutoff() > lmin/2 {
		return dynamo.Configf("potential.cutoff", e.matrix.Cutoff(), "exceeds half the smallest box length (%g)", lmin/2)
	}
	if e.matrix.UsesMesh() {
		if err := e.setupMesh(ctx); err != nil {
			return err
		}
	} else {
		e.pairErr = e.matrix.PairForceError(e.plasma.TotalNumberDensity, e.plasma.WignerSeitzRadius)
	}
	if err := e.checkTimeStep(); err != nil {
		return err
	}

	e.ready = true
	e.log.Info("setup complete",
		"particles", e.species.Total(),
		"box", e.box,
		"a_ws", e.plasma.WignerSeitzRadius,
		"coupling", e.plasma.Coupling,
		"wp_dt", e.plasma.PlasmaFrequency*c.Integrator.Dt,
		"potential", e.matrix.Kind(),
		"method", e.matrix.Method())
	return nil
}

func (e *Experiment) setupSpecies() error {
	c := e.cfg
	box := r3.Vec{X: c.Box.Lx, Y: c.Box.Ly, Z: c.Box.Lz}
	total := c.TotalParticles()

	list := make([]particles.Species, len(c.Species))
	density := 0.0
	for i, s := range c.Species {
		list[i] = particles.Species{
			Name: s.Name, Mass: s.Mass, Charge: s.Charge, Count: s.Number,
			NumberDensity: s.NumberDensity, Temperature: s.Temperature,
		}
		density += s.NumberDensity
	}

	if c.Box.IsZero() {
		l := units.CubicBoxSide(total, units.WignerSeitz(density))
		box = r3.Vec{X: l, Y: l, Z: l}
	} else {
		v := box.X * box.Y * box.Z
		for i := range list {
			if list[i].NumberDensity == 0 {
				list[i].NumberDensity = float64(list[i].Count) / v
			}
		}
	}
	e.box = box

	species, err := particles.NewSpeciesTable(list)
	if err != nil {
		return err
	}
	e.species = species

	data := make([]units.SpeciesData, len(list))
	for i, s := range list {
		data[i] = units.SpeciesData{Count: s.Count, NumberDensity: s.NumberDensity, Charge: s.Charge, Mass: s.Mass, Temperature: s.Temperature}
	}
	b := c.Integrator.MagneticField
	e.plasma = units.Derive(e.system, data, math.Sqrt(b[0]*b[0]+b[1]*b[1]+b[2]*b[2]))
	return nil
}

func (e *Experiment) setupPotential() error {
	pc := e.cfg.Potential
	p := potentials.Params{
		Kind:         potentials.Kind(pc.Type),
		Method:       potentials.Method(pc.Method),
		Cutoff:       pc.Cutoff,
		Epsilon:      pc.Epsilon,
		Sigma:        pc.Sigma,
		HighPower:    pc.HighPower,
		LowPower:     pc.LowPower,
		ShortRange:   pc.ShortRangeCutoff,
		Nu:           pc.Nu,
		B:            pc.B,
		LambdaTF:     pc.LambdaTF,
		Pauli:        pc.Pauli,
		Coefficients: pc.Coefficients,
		Exponents:    pc.Exponents,
	}
	if p.Kind == potentials.Yukawa {
		if pc.ScreeningLength > 0 {
			p.Kappa = 1 / pc.ScreeningLength
		} else {
			p.Kappa = pc.Kappa / e.plasma.WignerSeitzRadius
		}
	}
	if p.Kind == potentials.Tabulated {
		t, err := potentials.LoadTable(pc.Table)
		if err != nil {
			return err
		}
		p.Table = t
	}

	m, err := potentials.New(p, e.species, e.system)
	if err != nil {
		return err
	}
	e.matrix = m
	return nil
}

func (e *Experiment) setupMesh(ctx context.Context) error {
	pc := e.cfg.P3M
	res, err := ewald.Optimize(ctx, ewald.Params{
		Box:       e.box,
		Mesh:      pc.Mesh,
		Order:     pc.Order,
		Aliases:   pc.Aliases,
		Cutoff:    e.matrix.Cutoff(),
		Kappa:     e.matrix.Kappa(),
		AWS:       e.plasma.WignerSeitzRadius,
		Tolerance: pc.ForceError,
		Alpha:     pc.Alpha,
		Coulomb:   1 / e.system.FourPiEps0,
		N:         e.species.Total(),
		Workers:   e.workers,
	})
	if err != nil {
		return err
	}
	if err := e.matrix.SetSplitting(res.Alpha); err != nil {
		return err
	}
	e.green = res
	e.log.Info("ewald parameters",
		"alpha", res.Alpha,
		"pp_error", res.PPError,
		"pm_error", res.PMError,
		"total_error", res.TotalError,
		"exact_pm_error", res.ExactPMError)
	return nil
}

// checkTimeStep rejects a time step in which a thermal particle would
// cross the smallest box length.
func (e *Experiment) checkTimeStep() error {
	c := e.cfg
	kB := e.system.KB
	v := initial.ThermalSpeed(e.species, kB)
	for _, s := range e.species.All() {
		v = math.Max(v, math.Sqrt(3*kB*c.Thermostat.Temperature/s.Mass))
	}
	lmin := math.Min(e.box.X, math.Min(e.box.Y, e.box.Z))
	if v*c.Integrator.Dt >= lmin {
		return dynamo.Configf("integrator.dt", c.Integrator.Dt,
			"thermal speed %.3e crosses the box (%g) in one step", v, lmin)
	}
	return nil
}

// Replica is one independently runnable copy of the experiment.
type Replica struct {
	Seed   uint64
	Store  *particles.Store
	Forces *forces.Solver
	Sim    *sim.Simulator
}

// Build places particles for seed and wires a simulator around them.
func (e *Experiment) Build(seed uint64) (*Replica, error) {
	if !e.ready {
		return nil, fmt.Errorf("experiment: Build called before Setup")
	}
	c := e.cfg
	kB := e.system.KB

	store, err := initial.Populate(e.species, initial.Params{
		Method:      initial.Method(c.Run.Placement),
		Box:         e.box,
		Seed:        seed,
		RReject:     c.Run.RReject,
		Perturb:     c.Run.Perturb,
		HaltonBases: c.Run.HaltonBases,
	}, kB)
	if err != nil {
		return nil, err
	}

	pair, err := pairwise.New(e.box, e.matrix, e.workers)
	if err != nil {
		return nil, err
	}
	var ms *mesh.Solver
	if e.green != nil {
		backend, err := e.registry.GetBackend(c.P3M.FFT)
		if err != nil {
			return nil, err
		}
		ms, err = mesh.New(mesh.Params{
			Box:     e.box,
			Mesh:    c.P3M.Mesh,
			Order:   c.P3M.Order,
			Coulomb: 1 / e.system.FourPiEps0,
			Kappa:   e.matrix.Kappa(),
			Backend: backend,
			Workers: e.workers,
		}, e.green)
		if err != nil {
			return nil, err
		}
	}
	ff := forces.New(pair, ms)

	b := c.Integrator.MagneticField
	integ, err := e.registry.GetIntegrator(c.Integrator.Type, integrators.Params{
		Dt:             c.Integrator.Dt,
		Box:            e.box,
		BField:         r3.Vec{X: b[0], Y: b[1], Z: b[2]},
		MagneticFactor: e.system.MagneticFactor,
		Gamma:          c.Integrator.LangevinGamma,
		KB:             kB,
		Temperature:    c.Thermostat.Temperature,
		Seed:           seed,
	})
	if err != nil {
		return nil, err
	}
	th, err := e.registry.GetThermostat(c.Thermostat.Type, thermostat.Params{
		Dt:          c.Integrator.Dt,
		Tau:         c.Thermostat.Tau,
		Temperature: c.Thermostat.Temperature,
		KB:          kB,
		StartStep:   c.Thermostat.StartStep,
		RemoveDrift: c.Thermostat.RemoveDrift,
	})
	if err != nil {
		return nil, err
	}

	s, err := sim.New(store, ff, integ, th, sim.Config{
		Dt:                 c.Integrator.Dt,
		EquilibrationSteps: c.Run.EquilibrationSteps,
		ProductionSteps:    c.Run.ProductionSteps,
		DumpStep:           c.Run.DumpStep,
		EqDumpStep:         c.Run.EqDumpStep,
		KB:                 kB,
		Box:                e.box,
	}, e.log.With("seed", seed))
	if err != nil {
		return nil, err
	}
	for _, m := range e.registry.DefaultMetrics(e.species, c.Integrator.Dt, e.box) {
		s.AddMetric(m)
	}
	return &Replica{Seed: seed, Store: store, Forces: ff, Sim: s}, nil
}

// Run builds the replica for the configured seed and runs it.
func (e *Experiment) Run(ctx context.Context, observers ...dynamo.Observer) (*dynamo.Result, error) {
	r, err := e.Build(e.cfg.Seed)
	if err != nil {
		return nil, err
	}
	for _, o := range observers {
		r.Sim.AddObserver(o)
	}
	return r.Sim.Run(ctx)
}

// Factory adapts Build to sim.Ensemble. attach, when not nil, is called on
// every replica before it runs.
func (e *Experiment) Factory(attach func(*Replica) error) sim.Factory {
	return func(seed uint64) (*sim.Simulator, error) {
		r, err := e.Build(seed)
		if err != nil {
			return nil, err
		}
		if attach != nil {
			if err := attach(r); err != nil {
				return nil, err
			}
		}
		return r.Sim, nil
	}
}
