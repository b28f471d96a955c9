package particles

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
)

func TestSpeciesTable(t *testing.T) {
	tbl, err := NewSpeciesTable([]Species{
		{Name: "H", Mass: 1, Charge: 1, Count: 3},
		{Name: "C", Mass: 12, Charge: 6, Count: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, tbl.Len())
	assert.Equal(t, 5, tbl.Total())
	assert.Equal(t, 3, tbl.PairIndex(1, 1))
	assert.Equal(t, 1, tbl.PairIndex(0, 1))

	id, ok := tbl.Index("C")
	assert.True(t, ok)
	assert.Equal(t, 1, id)

	_, err = NewSpeciesTable([]Species{{Name: "x", Mass: 0}})
	assert.ErrorIs(t, err, dynamo.ErrConfiguration)

	_, err = NewSpeciesTable([]Species{{Name: "x", Mass: 1}, {Name: "x", Mass: 2}})
	assert.ErrorIs(t, err, dynamo.ErrConfiguration)

	_, err = NewSpeciesTable(nil)
	assert.ErrorIs(t, err, dynamo.ErrConfiguration)
}

func TestStoreCounts(t *testing.T) {
	s := NewStore(2, 4)
	require.NoError(t, s.Add(Particle{Species: 0, Mass: 1}))
	require.NoError(t, s.Add(Particle{Species: 1, Mass: 2}))
	require.NoError(t, s.Add(Particle{Species: 1, Mass: 3}))
	assert.Error(t, s.Add(Particle{Species: 2}))

	assert.Equal(t, []int{1, 2}, s.Counts())

	require.NoError(t, s.Remove(1))
	assert.Equal(t, []int{1, 1}, s.Counts())
	assert.Equal(t, 3.0, s.Particles[1].Mass, "order must be preserved")
	assert.Error(t, s.Remove(5))

	total := 0
	for _, c := range s.Counts() {
		total += c
	}
	assert.Equal(t, s.Len(), total)
}

func TestWrapIdempotent(t *testing.T) {
	box := r3.Vec{X: 10, Y: 5, Z: 2}
	s := NewStore(1, 4)
	for _, p := range []r3.Vec{
		{X: -0.5, Y: 7.5, Z: 2},
		{X: 10, Y: -5, Z: -1e-18},
		{X: 25.25, Y: 0, Z: 3.9},
		{X: -1e-300, Y: 4.9999999, Z: 0},
	} {
		require.NoError(t, s.Add(Particle{Pos: p, Mass: 1}))
	}

	s.Wrap(box)
	first := s.Clone()
	s.Wrap(box)

	for i, p := range s.Particles {
		assert.Equal(t, first.Particles[i].Pos, p.Pos)
		assert.GreaterOrEqual(t, p.Pos.X, 0.0)
		assert.Less(t, p.Pos.X, box.X)
		assert.GreaterOrEqual(t, p.Pos.Y, 0.0)
		assert.Less(t, p.Pos.Y, box.Y)
		assert.GreaterOrEqual(t, p.Pos.Z, 0.0)
		assert.Less(t, p.Pos.Z, box.Z)
	}
	assert.InDelta(t, 9.5, s.Particles[0].Pos.X, 1e-12)
	assert.InDelta(t, 2.5, s.Particles[0].Pos.Y, 1e-12)
	assert.InDelta(t, 5.25, s.Particles[2].Pos.X, 1e-12)
}

func TestThermodynamicSums(t *testing.T) {
	s := NewStore(2, 2)
	require.NoError(t, s.Add(Particle{Vel: r3.Vec{X: 1}, Mass: 2, Charge: 1}))
	require.NoError(t, s.Add(Particle{Vel: r3.Vec{X: -1, Y: 2}, Mass: 1, Charge: -2, Species: 1}))

	assert.InDelta(t, 1+2.5, s.KineticEnergy(), 1e-12)
	assert.Equal(t, r3.Vec{X: 1, Y: 2}, s.Momentum())
	assert.InDelta(t, 2*3.5/(3*2), s.Temperature(1), 1e-12)
	assert.InDelta(t, -1, s.TotalCharge(), 1e-12)
	assert.InDelta(t, 5, s.ChargeSquaredSum(), 1e-12)
	assert.InDelta(t, math.Sqrt(5), s.MaxSpeed(), 1e-12)

	vcm := s.CenterOfMassVelocity()
	assert.InDelta(t, 1.0/3.0, vcm.X, 1e-12)

	ts := s.SpeciesTemperature(1)
	assert.InDelta(t, 2*1.0/3.0, ts[0], 1e-12)
	assert.InDelta(t, 2*2.5/3.0, ts[1], 1e-12)
}
