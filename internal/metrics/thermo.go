package metrics

import (
	"gonum.org/v1/gonum/spatial/r3"
	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/p3md/internal/dynamo"
)

// Temperature is the mean kinetic temperature; StdDev reports its spread.
type Temperature struct {
	samples []float64
}

func NewTemperature() *Temperature { return &Temperature{} }

func (t *Temperature) Name() string { return "temperature" }

func (t *Temperature) Observe(s *dynamo.Snapshot) {
	if counted(s) {
		t.samples = append(t.samples, s.Temperature)
	}
}

func (t *Temperature) Value() float64 {
	if len(t.samples) == 0 {
		return 0
	}
	return stat.Mean(t.samples, nil)
}

func (t *Temperature) StdDev() float64 {
	if len(t.samples) < 2 {
		return 0
	}
	return stat.StdDev(t.samples, nil)
}

func (t *Temperature) Reset() { t.samples = t.samples[:0] }

// Pressure is the mean virial pressure.
type Pressure struct {
	samples []float64
}

func NewPressure() *Pressure { return &Pressure{} }

func (p *Pressure) Name() string { return "pressure" }

func (p *Pressure) Observe(s *dynamo.Snapshot) {
	if counted(s) {
		p.samples = append(p.samples, s.Pressure)
	}
}

func (p *Pressure) Value() float64 {
	if len(p.samples) == 0 {
		return 0
	}
	return stat.Mean(p.samples, nil)
}

func (p *Pressure) Reset() { p.samples = p.samples[:0] }

// Momentum is the largest magnitude of the total momentum seen. masses is
// indexed by species id.
type Momentum struct {
	masses []float64
	max    float64
}

func NewMomentum(masses []float64) *Momentum {
	return &Momentum{masses: append([]float64(nil), masses...)}
}

func (m *Momentum) Name() string { return "momentum" }

func (m *Momentum) Observe(s *dynamo.Snapshot) {
	if !counted(s) {
		return
	}
	var p r3.Vec
	for i, v := range s.Velocities {
		p = r3.Add(p, r3.Scale(m.masses[s.Species[i]], v))
	}
	if n := r3.Norm(p); n > m.max {
		m.max = n
	}
}

func (m *Momentum) Value() float64 { return m.max }

func (m *Momentum) Reset() { m.max = 0 }
