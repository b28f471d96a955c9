package sim_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/ewald"
	"github.com/san-kum/p3md/internal/forces"
	"github.com/san-kum/p3md/internal/integrators"
	"github.com/san-kum/p3md/internal/mesh"
	"github.com/san-kum/p3md/internal/pairwise"
	"github.com/san-kum/p3md/internal/particles"
	"github.com/san-kum/p3md/internal/potentials"
	"github.com/san-kum/p3md/internal/sim"
	"github.com/san-kum/p3md/internal/thermostat"
	"github.com/san-kum/p3md/internal/units"
)

const (
	spacing = 1.5
	side    = 4
)

var box = r3.Vec{X: side * spacing, Y: side * spacing, Z: side * spacing}

// lattice places side^3 unit particles on a simple cubic lattice, each
// displaced by a small deterministic offset.
func lattice(shake float64) *particles.Store {
	s := particles.NewStore(1, side*side*side)
	n := 0
	for i := 0; i < side; i++ {
		for j := 0; j < side; j++ {
			for k := 0; k < side; k++ {
				off := r3.Vec{
					X: shake * math.Sin(float64(3*n+1)),
					Y: shake * math.Sin(float64(3*n+2)),
					Z: shake * math.Sin(float64(3*n+3)),
				}
				pos := r3.Add(r3.Vec{X: (float64(i) + 0.5) * spacing, Y: (float64(j) + 0.5) * spacing, Z: (float64(k) + 0.5) * spacing}, off)
				Expect(s.Add(particles.Particle{Pos: pos, Mass: 1, Charge: 1})).To(Succeed())
				n++
			}
		}
	}
	return s
}

func yukawa() *forces.Solver {
	species, err := particles.NewSpeciesTable([]particles.Species{{Name: "ion", Mass: 1, Charge: 1, Count: side * side * side}})
	Expect(err).NotTo(HaveOccurred())
	m, err := potentials.New(potentials.Params{Kind: potentials.Yukawa, Cutoff: 2.5, Kappa: 1}, species, units.Reduced)
	Expect(err).NotTo(HaveOccurred())
	pair, err := pairwise.New(box, m, 2)
	Expect(err).NotTo(HaveOccurred())
	return forces.New(pair, nil)
}

// yukawaP3M splits the same interaction between the pair kernel and a mesh,
// with alpha chosen for a relative force error of 1e-3.
func yukawaP3M() *forces.Solver {
	const meshN, order, kappa = 16, 5, 1.0
	n := side * side * side
	species, err := particles.NewSpeciesTable([]particles.Species{{Name: "ion", Mass: 1, Charge: 1, Count: n}})
	Expect(err).NotTo(HaveOccurred())
	m, err := potentials.New(potentials.Params{Kind: potentials.Yukawa, Method: potentials.P3M, Cutoff: box.X / 2, Kappa: kappa}, species, units.Reduced)
	Expect(err).NotTo(HaveOccurred())

	g, err := ewald.Optimize(context.Background(), ewald.Params{
		Box:       box,
		Mesh:      [3]int{meshN, meshN, meshN},
		Order:     order,
		Aliases:   [3]int{2, 2, 2},
		Cutoff:    box.X / 2,
		Kappa:     kappa,
		AWS:       units.WignerSeitz(float64(n) / (box.X * box.Y * box.Z)),
		Tolerance: 1e-3,
		Coulomb:   1,
		N:         n,
	})
	Expect(err).NotTo(HaveOccurred())
	Expect(g.Alpha * box.X / 2).To(BeNumerically(">", 1))
	Expect(m.SetSplitting(g.Alpha)).To(Succeed())

	pair, err := pairwise.New(box, m, 2)
	Expect(err).NotTo(HaveOccurred())
	ms, err := mesh.New(mesh.Params{Box: box, Mesh: [3]int{meshN, meshN, meshN}, Order: order, Coulomb: 1, Kappa: kappa, Workers: 2}, g)
	Expect(err).NotTo(HaveOccurred())
	return forces.New(pair, ms)
}

// free exerts no force.
type free struct{}

func (free) Compute(ps []particles.Particle, out []r3.Vec) (forces.Result, error) {
	for i := range ps {
		out[i] = r3.Vec{}
	}
	return forces.Result{}, nil
}

// failing behaves like free until its n-th evaluation, which reports an
// instability.
type failing struct {
	n, calls int
}

func (f *failing) Compute(ps []particles.Particle, out []r3.Vec) (forces.Result, error) {
	f.calls++
	if f.calls >= f.n {
		return forces.Result{}, &dynamo.NumericalInstabilityError{Step: -1, Particle: 3, Reason: "non-finite force"}
	}
	return free{}.Compute(ps, out)
}

func config(eq, prod int) sim.Config {
	return sim.Config{Dt: 0.01, EquilibrationSteps: eq, ProductionSteps: prod, DumpStep: 1, EqDumpStep: 1, KB: 1, Box: box}
}

func verlet() integrators.Integrator {
	integ, err := integrators.New("verlet", integrators.Params{Dt: 0.01, Box: box})
	Expect(err).NotTo(HaveOccurred())
	return integ
}

type record struct {
	step  int
	phase dynamo.Phase
	temp  float64
	pos0  r3.Vec
}

var _ = Describe("Config", func() {
	It("assigns steps to phases", func() {
		c := config(10, 20)
		Expect(c.Phase(0)).To(Equal(dynamo.Equilibration))
		Expect(c.Phase(10)).To(Equal(dynamo.Equilibration))
		Expect(c.Phase(11)).To(Equal(dynamo.Production))
		Expect(c.Phase(30)).To(Equal(dynamo.Production))
		Expect(c.Phase(31)).To(Equal(dynamo.Terminated))
		Expect(c.TotalSteps()).To(Equal(30))
	})

	It("starts in production without equilibration", func() {
		Expect(config(0, 5).Phase(0)).To(Equal(dynamo.Production))
	})

	It("rejects invalid settings", func() {
		c := config(1, 1)
		c.Dt = 0
		_, err := sim.New(lattice(0), free{}, verlet(), nil, c, nil)
		Expect(err).To(MatchError(dynamo.ErrConfiguration))

		c = config(-1, 1)
		_, err = sim.New(lattice(0), free{}, verlet(), nil, c, nil)
		var ce *dynamo.ConfigurationError
		Expect(errors.As(err, &ce)).To(BeTrue())
		Expect(ce.Param).To(Equal("run.equilibration_steps"))
	})
})

var _ = Describe("Simulator", func() {
	var records []record
	observe := dynamo.ObserverFunc(func(s *dynamo.Snapshot) {
		records = append(records, record{step: s.Step, phase: s.Phase, temp: s.Temperature, pos0: s.Positions[0]})
	})

	BeforeEach(func() {
		records = nil
	})

	It("dumps at the interval of each phase", func() {
		c := config(10, 20)
		c.EqDumpStep = 5
		c.DumpStep = 10
		s, err := sim.New(lattice(0), free{}, verlet(), nil, c, nil)
		Expect(err).NotTo(HaveOccurred())
		s.AddObserver(observe)

		res, err := s.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stats.Steps).To(Equal(30))
		Expect(res.Stats.Dumps).To(Equal(5))
		Expect(res.Final.Phase).To(Equal(dynamo.Terminated))
		Expect(res.Final.Step).To(Equal(30))

		steps := make([]int, len(records))
		for i, r := range records {
			steps[i] = r.step
		}
		Expect(steps).To(Equal([]int{0, 5, 10, 20, 30}))
		Expect(records[2].phase).To(Equal(dynamo.Equilibration))
		Expect(records[3].phase).To(Equal(dynamo.Production))
	})

	It("conserves energy and momentum without a thermostat", func() {
		ff := yukawa()
		store := lattice(0.02)
		s, err := sim.New(store, ff, verlet(), nil, config(0, 400), nil)
		Expect(err).NotTo(HaveOccurred())

		res, err := s.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stats.RelativeEnergyDrift).To(BeNumerically("<", 1e-3))
		Expect(res.Stats.ForceEvaluations).To(Equal(401))
		Expect(r3.Norm(store.Momentum())).To(BeNumerically("<", 1e-10))
		Expect(res.Final.Pressure).To(BeNumerically(">", 0))
	})

	It("conserves energy and momentum with the mesh active", func() {
		store := lattice(0.1)
		for i := range store.Particles {
			sign := float64(1 - 2*(i%2))
			store.Particles[i].Vel = r3.Scale(sign, r3.Vec{X: 0.3, Y: -0.2, Z: 0.1})
		}
		Expect(r3.Norm(store.Momentum())).To(BeZero())

		s, err := sim.New(store, yukawaP3M(), verlet(), nil, config(0, 400), nil)
		Expect(err).NotTo(HaveOccurred())

		res, err := s.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stats.RelativeEnergyDrift).To(BeNumerically("<", 1e-3))
		Expect(r3.Norm(store.Momentum())).To(BeNumerically("<", 1e-10))
	})

	It("keeps the last valid state when a step fails", func() {
		store := lattice(0)
		for i := range store.Particles {
			store.Particles[i].Vel = r3.Vec{X: 1}
		}
		s, err := sim.New(store, &failing{n: 6}, verlet(), nil, config(0, 20), nil)
		Expect(err).NotTo(HaveOccurred())
		s.AddObserver(observe)

		res, err := s.Run(context.Background())
		Expect(err).To(MatchError(dynamo.ErrInstability))
		Expect(res.Err).To(Equal(err))

		var ie *dynamo.NumericalInstabilityError
		Expect(errors.As(err, &ie)).To(BeTrue())
		Expect(ie.Step).To(Equal(5))
		Expect(ie.Particle).To(Equal(3))
		Expect(ie.Time).To(BeNumerically("~", 0.05, 1e-12))

		last := records[len(records)-1]
		Expect(last.step).To(Equal(4))
		Expect(res.Final.Step).To(Equal(4))
		Expect(res.Final.Positions[0]).To(Equal(last.pos0))
		Expect(store.Particles[0].Pos).To(Equal(last.pos0))
	})

	It("stops when the context is canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		s, err := sim.New(lattice(0), free{}, verlet(), nil, config(0, 100), nil)
		Expect(err).NotTo(HaveOccurred())
		s.AddObserver(dynamo.ObserverFunc(func(snap *dynamo.Snapshot) {
			if snap.Step == 10 {
				cancel()
			}
		}))

		res, err := s.Run(ctx)
		Expect(err).To(MatchError(context.Canceled))
		Expect(err).To(MatchError(dynamo.ErrContextCanceled))
		Expect(res.Stats.Steps).To(Equal(10))
		Expect(res.Final.Step).To(Equal(10))
	})

	It("thermalises only during equilibration", func() {
		store := lattice(0)
		for i := range store.Particles {
			sign := float64(1 - 2*(i%2))
			store.Particles[i].Vel = r3.Vec{X: sign, Y: sign * 0.5}
		}
		th, err := thermostat.NewBerendsen(thermostat.Params{Dt: 0.01, Tau: 0.05, Temperature: 0.1, KB: 1})
		Expect(err).NotTo(HaveOccurred())
		s, err := sim.New(store, free{}, verlet(), th, config(200, 50), nil)
		Expect(err).NotTo(HaveOccurred())
		s.AddObserver(observe)

		res, err := s.Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(records[0].temp).To(BeNumerically("~", 1.25/3, 1e-12))

		var endOfEq float64
		for _, r := range records {
			if r.step == 200 {
				endOfEq = r.temp
			}
			if r.phase == dynamo.Production {
				Expect(r.temp).To(BeNumerically("~", endOfEq, 1e-12))
			}
		}
		Expect(endOfEq).To(BeNumerically("~", 0.1, 1e-3))
		Expect(res.Final.Temperature).To(BeNumerically("~", endOfEq, 1e-12))
	})
})

var _ = Describe("Ensemble", func() {
	build := func(seed uint64) (*sim.Simulator, error) {
		integ, err := integrators.New("langevin", integrators.Params{Dt: 0.01, Box: box, Gamma: 1, KB: 1, Temperature: 1, Seed: seed})
		if err != nil {
			return nil, err
		}
		return sim.New(lattice(0), free{}, integ, nil, config(0, 20), nil)
	}

	It("runs every replica with its own seed", func() {
		results, err := sim.NewEnsemble(build, 4, 7, 2).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(4))
		for i := 1; i < len(results); i++ {
			Expect(results[i].Final.Velocities[0]).NotTo(Equal(results[0].Final.Velocities[0]))
		}

		again, err := sim.NewEnsemble(build, 1, 7, 1).Run(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(again[0].Final.Velocities).To(Equal(results[0].Final.Velocities))
	})

	It("reports the failing replica", func() {
		broken := func(seed uint64) (*sim.Simulator, error) {
			if seed == 9 {
				return sim.New(lattice(0), &failing{n: 3}, verlet(), nil, config(0, 20), nil)
			}
			return build(seed)
		}
		_, err := sim.NewEnsemble(broken, 3, 7, 0).Run(context.Background())
		Expect(err).To(MatchError(dynamo.ErrInstability))
		Expect(err.Error()).To(ContainSubstring("seed 9"))
	})
})
