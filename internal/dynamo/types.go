package dynamo

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r3"
)

type Phase int

const (
	Equilibration Phase = iota
	Production
	Terminated
)

func (p Phase) String() string {
	switch p {
	case Equilibration:
		return "equilibration"
	case Production:
		return "production"
	case Terminated:
		return "terminated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// ParsePhase is the inverse of Phase.String.
func ParsePhase(s string) (Phase, error) {
	for _, p := range []Phase{Equilibration, Production, Terminated} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("dynamo: unknown phase %q", s)
}

// Tensor is a 3x3 Cartesian tensor, used for the virial.
type Tensor [3][3]float64

func (t *Tensor) Add(o Tensor) {
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			t[a][b] += o[a][b]
		}
	}
}

func (t Tensor) Trace() float64 { return t[0][0] + t[1][1] + t[2][2] }

func (t Tensor) IsValid() bool {
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			if math.IsNaN(t[a][b]) || math.IsInf(t[a][b], 0) {
				return false
			}
		}
	}
	return true
}

type Energy struct {
	Kinetic    float64 `json:"kinetic" csv:"kinetic"`
	ShortRange float64 `json:"short_range" csv:"short_range"`
	LongRange  float64 `json:"long_range" csv:"long_range"`
	Self       float64 `json:"self" csv:"self"`
}

func (e Energy) Potential() float64 { return e.ShortRange + e.LongRange + e.Self }
func (e Energy) Total() float64     { return e.Kinetic + e.Potential() }

func (e Energy) IsValid() bool {
	for _, v := range []float64{e.Kinetic, e.ShortRange, e.LongRange, e.Self} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Snapshot is the observable state of a run at one step.
type Snapshot struct {
	Step          int
	Time          float64
	Phase         Phase
	Positions     []r3.Vec
	Velocities    []r3.Vec
	Accelerations []r3.Vec
	Species       []int
	Energy        Energy
	Temperature   float64
	Pressure      float64
	Virial        Tensor
}

// Resize grows or shrinks the per-particle slices to n, reusing storage.
func (s *Snapshot) Resize(n int) {
	if cap(s.Positions) < n {
		s.Positions = make([]r3.Vec, n)
		s.Velocities = make([]r3.Vec, n)
		s.Accelerations = make([]r3.Vec, n)
		s.Species = make([]int, n)
		return
	}
	s.Positions = s.Positions[:n]
	s.Velocities = s.Velocities[:n]
	s.Accelerations = s.Accelerations[:n]
	s.Species = s.Species[:n]
}

func (s *Snapshot) Clone() *Snapshot {
	c := *s
	c.Positions = append([]r3.Vec(nil), s.Positions...)
	c.Velocities = append([]r3.Vec(nil), s.Velocities...)
	c.Accelerations = append([]r3.Vec(nil), s.Accelerations...)
	c.Species = append([]int(nil), s.Species...)
	return &c
}

type Metric interface {
	Name() string
	Observe(s *Snapshot)
	Value() float64
	Reset()
}

// Observer receives every dumped snapshot. The snapshot is only valid for
// the duration of the call; observers that keep it must Clone.
type Observer interface {
	OnSnapshot(s *Snapshot)
}

type ObserverFunc func(s *Snapshot)

func (f ObserverFunc) OnSnapshot(s *Snapshot) { f(s) }

type Stats struct {
	Steps               int           `json:"steps"`
	ForceEvaluations    int           `json:"force_evaluations"`
	Dumps               int           `json:"dumps"`
	EquilibrationTime   time.Duration `json:"equilibration_time"`
	ProductionTime      time.Duration `json:"production_time"`
	ForceTime           time.Duration `json:"force_time"`
	InitialTotalEnergy  float64       `json:"initial_total_energy"`
	FinalTotalEnergy    float64       `json:"final_total_energy"`
	RelativeEnergyDrift float64       `json:"relative_energy_drift"`
}

type Result struct {
	Final   *Snapshot
	Stats   Stats
	Metrics map[string]float64
	Err     error
}
