package metrics

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
)

func snap(phase dynamo.Phase, kinetic, short float64) *dynamo.Snapshot {
	return &dynamo.Snapshot{Phase: phase, Energy: dynamo.Energy{Kinetic: kinetic, ShortRange: short}}
}

func TestEnergyDrift(t *testing.T) {
	m := NewEnergyDrift()

	// equilibration is ignored
	m.Observe(snap(dynamo.Equilibration, 50, 0))
	m.Observe(snap(dynamo.Production, 1, 9))
	m.Observe(snap(dynamo.Production, 1.5, 8.6))
	m.Observe(snap(dynamo.Production, 1, 9.05))

	if math.Abs(m.Value()-0.01) > 1e-12 {
		t.Errorf("expected drift 0.01, got %g", m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero drift after reset")
	}
}

func TestEnergyMean(t *testing.T) {
	m := NewEnergy()
	m.Observe(snap(dynamo.Production, 1, 1))
	m.Observe(snap(dynamo.Terminated, 2, 2))

	if math.Abs(m.Value()-3) > 1e-12 {
		t.Errorf("expected mean energy 3, got %g", m.Value())
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestTemperature(t *testing.T) {
	m := NewTemperature()
	for _, v := range []float64{1, 2, 3} {
		m.Observe(&dynamo.Snapshot{Phase: dynamo.Production, Temperature: v})
	}
	m.Observe(&dynamo.Snapshot{Phase: dynamo.Equilibration, Temperature: 100})

	if m.Value() != 2 {
		t.Errorf("expected mean temperature 2, got %g", m.Value())
	}
	if math.Abs(m.StdDev()-1) > 1e-12 {
		t.Errorf("expected spread 1, got %g", m.StdDev())
	}
}

func TestMomentum(t *testing.T) {
	m := NewMomentum([]float64{1, 4})
	m.Observe(&dynamo.Snapshot{
		Phase:      dynamo.Production,
		Velocities: []r3.Vec{{X: 4}, {X: -1}},
		Species:    []int{0, 1},
	})
	if m.Value() != 0 {
		t.Errorf("expected zero momentum, got %g", m.Value())
	}

	m.Observe(&dynamo.Snapshot{
		Phase:      dynamo.Production,
		Velocities: []r3.Vec{{Y: 3}, {}},
		Species:    []int{0, 1},
	})
	if m.Value() != 3 {
		t.Errorf("expected momentum 3, got %g", m.Value())
	}
}

func TestStability(t *testing.T) {
	m := NewStability(0.1, 0.5)
	m.Observe(&dynamo.Snapshot{Velocities: []r3.Vec{{X: 1}, {Y: 4}}})
	m.Observe(&dynamo.Snapshot{Velocities: []r3.Vec{{X: 6}}})

	if m.Value() != 0.5 {
		t.Errorf("expected stability 0.5, got %g", m.Value())
	}
}
