// Package sim drives a run through its equilibration and production phases.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/forces"
	"github.com/san-kum/p3md/internal/integrators"
	"github.com/san-kum/p3md/internal/particles"
	"github.com/san-kum/p3md/internal/thermostat"
)

type Config struct {
	Dt                 float64
	EquilibrationSteps int
	ProductionSteps    int
	// DumpStep and EqDumpStep are the dump intervals of the production and
	// equilibration phases; zero disables dumps in that phase.
	DumpStep   int
	EqDumpStep int
	KB         float64
	Box        r3.Vec
}

func (c Config) validate() error {
	if !(c.Dt > 0) {
		return dynamo.Configf("integrator.dt", c.Dt, "time step must be positive")
	}
	if c.EquilibrationSteps < 0 {
		return dynamo.Configf("run.equilibration_steps", c.EquilibrationSteps, "must be non-negative")
	}
	if c.ProductionSteps < 0 {
		return dynamo.Configf("run.production_steps", c.ProductionSteps, "must be non-negative")
	}
	if c.DumpStep < 0 {
		return dynamo.Configf("run.dump_step", c.DumpStep, "must be non-negative")
	}
	if c.EqDumpStep < 0 {
		return dynamo.Configf("run.eq_dump_step", c.EqDumpStep, "must be non-negative")
	}
	if c.KB <= 0 {
		return dynamo.Configf("units", c.KB, "Boltzmann constant must be positive")
	}
	if c.Box.X <= 0 || c.Box.Y <= 0 || c.Box.Z <= 0 {
		return dynamo.Configf("box", c.Box, "every box length must be positive")
	}
	return nil
}

// Phase returns the phase a step belongs to. Step 0 is the initial state.
func (c Config) Phase(step int) dynamo.Phase {
	switch {
	case step <= c.EquilibrationSteps && c.EquilibrationSteps > 0:
		return dynamo.Equilibration
	case step <= c.EquilibrationSteps+c.ProductionSteps:
		return dynamo.Production
	}
	return dynamo.Terminated
}

func (c Config) TotalSteps() int { return c.EquilibrationSteps + c.ProductionSteps }

func (c Config) dumpInterval(phase dynamo.Phase) int {
	if phase == dynamo.Equilibration {
		return c.EqDumpStep
	}
	return c.DumpStep
}

// counter is implemented by force fields that keep evaluation statistics.
type counter interface {
	Evaluations() int
	Elapsed() time.Duration
}

type Simulator struct {
	store      *particles.Store
	ff         integrators.ForceField
	integrator integrators.Integrator
	thermostat thermostat.Thermostat
	cfg        Config
	log        *slog.Logger

	metrics   []dynamo.Metric
	observers []dynamo.Observer
	pool      *SnapshotPool

	prev       []particles.Particle
	forces     forces.Result
	phase      dynamo.Phase
	evalStart  int
	forceStart time.Duration
	lastDump   int
}

// New wires a run. The simulator owns store for writes until Run returns.
func New(store *particles.Store, ff integrators.ForceField, integ integrators.Integrator, th thermostat.Thermostat, cfg Config, logger *slog.Logger) (*Simulator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if th == nil {
		th = thermostat.None{}
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Simulator{
		store:      store,
		ff:         ff,
		integrator: integ,
		thermostat: th,
		cfg:        cfg,
		log:        logger,
		metrics:    make([]dynamo.Metric, 0),
		observers:  make([]dynamo.Observer, 0),
		pool:       NewSnapshotPool(store.Len()),
	}, nil
}

func (s *Simulator) AddMetric(m dynamo.Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Config() Config { return s.cfg }

// Run steps until the production phase ends, the context is canceled or a
// step becomes unstable. The returned result always carries the last valid
// state; its Err matches the returned error.
func (s *Simulator) Run(ctx context.Context) (*dynamo.Result, error) {
	result := &dynamo.Result{Metrics: make(map[string]float64)}
	for _, m := range s.metrics {
		m.Reset()
	}

	s.evalStart, s.forceStart = s.counters()
	s.lastDump = -1
	ps := s.store.Particles

	res, err := integrators.Prime(ps, s.ff)
	if err != nil {
		return s.fail(result, 0, err)
	}
	s.forces = res
	s.phase = s.cfg.Phase(0)

	initial := s.snapshot(0)
	result.Stats.InitialTotalEnergy = initial.Energy.Total()
	if s.dueForDump(0) {
		s.emit(initial, result)
	}
	result.Final = initial
	s.log.Info("run started",
		"particles", len(ps),
		"integrator", s.integrator.Name(),
		"thermostat", s.thermostat.Name(),
		"equilibration_steps", s.cfg.EquilibrationSteps,
		"production_steps", s.cfg.ProductionSteps,
		"total_energy", result.Stats.InitialTotalEnergy)

	phaseStart := time.Now()
	total := s.cfg.TotalSteps()
	for step := 1; step <= total; step++ {
		select {
		case <-ctx.Done():
			s.closePhase(result, phaseStart)
			return s.finish(result, step-1, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, ctx.Err()))
		default:
		}

		phase := s.cfg.Phase(step)
		if phase != s.phase {
			s.closePhase(result, phaseStart)
			phaseStart = time.Now()
			s.log.Info("phase change", "step", step, "from", s.phase, "to", phase)
			s.phase = phase
		}

		s.prev = append(s.prev[:0], ps...)
		res, err := s.integrator.Step(ps, s.ff)
		if err == nil {
			s.thermostat.Apply(s.store, step, phase)
			res.Energy.Kinetic = s.store.KineticEnergy()
			if !res.Energy.IsValid() {
				err = &dynamo.NumericalInstabilityError{Step: step, Particle: -1, Reason: "non-finite kinetic energy"}
			}
		}
		if err != nil {
			copy(ps, s.prev)
			s.closePhase(result, phaseStart)
			return s.fail(result, step, err)
		}
		s.forces = res
		result.Stats.Steps = step

		if s.dueForDump(step) {
			snap := s.pool.Get()
			s.fill(snap, step)
			s.emit(snap, result)
			s.pool.Put(snap)
			s.log.Debug("dump", "step", step, "phase", phase, "total_energy", res.Energy.Total())
		}
	}
	s.closePhase(result, phaseStart)
	s.phase = dynamo.Terminated
	return s.finish(result, total, nil)
}

func (s *Simulator) counters() (int, time.Duration) {
	if c, ok := s.ff.(counter); ok {
		return c.Evaluations(), c.Elapsed()
	}
	return 0, 0
}

func (s *Simulator) dueForDump(step int) bool {
	every := s.cfg.dumpInterval(s.cfg.Phase(step))
	return every > 0 && step%every == 0
}

func (s *Simulator) emit(snap *dynamo.Snapshot, result *dynamo.Result) {
	for _, m := range s.metrics {
		m.Observe(snap)
	}
	for _, o := range s.observers {
		o.OnSnapshot(snap)
	}
	s.lastDump = snap.Step
	result.Stats.Dumps++
}

func (s *Simulator) closePhase(result *dynamo.Result, start time.Time) {
	switch s.phase {
	case dynamo.Equilibration:
		result.Stats.EquilibrationTime += time.Since(start)
	case dynamo.Production:
		result.Stats.ProductionTime += time.Since(start)
	}
}

// fail records err against step and keeps the last valid state as Final.
func (s *Simulator) fail(result *dynamo.Result, step int, err error) (*dynamo.Result, error) {
	var ie *dynamo.NumericalInstabilityError
	if errors.As(err, &ie) {
		ie.Step = step
		ie.Time = float64(step) * s.cfg.Dt
	}
	s.log.Error("run halted", "step", step, "error", err)
	return s.finish(result, step-1, err)
}

// finish builds the final snapshot from the current store, which holds the
// state after step.
func (s *Simulator) finish(result *dynamo.Result, step int, err error) (*dynamo.Result, error) {
	if step < 0 {
		step = 0
	}
	result.Final = s.snapshot(step)
	result.Final.Phase = s.phase
	if err == nil {
		result.Final.Phase = dynamo.Terminated
	}

	evals, elapsed := s.counters()
	result.Stats.ForceEvaluations = evals - s.evalStart
	result.Stats.ForceTime = elapsed - s.forceStart
	result.Stats.FinalTotalEnergy = result.Final.Energy.Total()
	if e0 := result.Stats.InitialTotalEnergy; e0 != 0 {
		result.Stats.RelativeEnergyDrift = math.Abs(result.Stats.FinalTotalEnergy-e0) / math.Abs(e0)
	}

	for _, m := range s.metrics {
		if s.lastDump != step {
			m.Observe(result.Final)
		}
		result.Metrics[m.Name()] = m.Value()
	}

	if err != nil {
		result.Err = fmt.Errorf("sim: step %d: %w", step+1, err)
		return result, result.Err
	}
	s.log.Info("run finished",
		"steps", result.Stats.Steps,
		"force_evaluations", result.Stats.ForceEvaluations,
		"relative_energy_drift", result.Stats.RelativeEnergyDrift)
	return result, nil
}

func (s *Simulator) snapshot(step int) *dynamo.Snapshot {
	snap := &dynamo.Snapshot{}
	snap.Resize(s.store.Len())
	s.fill(snap, step)
	return snap
}

// fill copies the store and the forces of the last evaluation into snap.
func (s *Simulator) fill(snap *dynamo.Snapshot, step int) {
	ps := s.store.Particles
	snap.Resize(len(ps))
	for i := range ps {
		snap.Positions[i] = ps[i].Pos
		snap.Velocities[i] = ps[i].Vel
		snap.Accelerations[i] = ps[i].Acc
		snap.Species[i] = ps[i].Species
	}
	snap.Step = step
	snap.Time = float64(step) * s.cfg.Dt
	snap.Phase = s.cfg.Phase(step)
	snap.Energy = s.forces.Energy
	snap.Energy.Kinetic = s.store.KineticEnergy()
	snap.Virial = s.forces.Virial
	snap.Temperature = s.store.Temperature(s.cfg.KB)

	v := s.cfg.Box.X * s.cfg.Box.Y * s.cfg.Box.Z
	snap.Pressure = (2*snap.Energy.Kinetic + snap.Virial.Trace()) / (3 * v)
}
