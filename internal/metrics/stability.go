package metrics

import (
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
)

// Stability is the fraction of snapshots in which no particle would move
// further than threshold in one step of length dt.
type Stability struct {
	name       string
	dt         float64
	threshold  float64
	violations int
	samples    int
}

func NewStability(dt, threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		dt:        dt,
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(snap *dynamo.Snapshot) {
	s.samples++
	limit := s.threshold / s.dt
	limit *= limit
	for _, v := range snap.Velocities {
		if r3.Norm2(v) > limit {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
