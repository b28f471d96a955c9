package potentials

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/particles"
	"github.com/san-kum/p3md/internal/units"
)

func twoSpecies(t *testing.T) *particles.SpeciesTable {
	t.Helper()
	tbl, err := particles.NewSpeciesTable([]particles.Species{
		{Name: "ion", Mass: 1, Charge: 1, Count: 10, Temperature: 1},
		{Name: "e", Mass: 0.01, Charge: -1, Count: 10, Temperature: 1},
	})
	require.NoError(t, err)
	return tbl
}

func numericForce(f ForceFunc, c *Coeffs, r float64) float64 {
	h := 1e-6 * r
	up, _ := f(r+h, c)
	um, _ := f(r-h, c)
	return -(up - um) / (2 * h)
}

func TestForceIsNegativeEnergyGradient(t *testing.T) {
	egs, err := DeriveEGS(0.5, 1.0, 1.0)
	require.NoError(t, err)
	osc, err := DeriveEGS(4.0, 1.0, 1.0)
	require.NoError(t, err)

	tests := []struct {
		name string
		f    ForceFunc
		c    Coeffs
	}{
		{"yukawa", YukawaForce, Coeffs{1.5, 0.8}},
		{"ewald coulomb", EwaldShortRange, Coeffs{1, 0, 0.9}},
		{"ewald yukawa", EwaldShortRange, Coeffs{-2, 1.2, 0.7}},
		{"lj 12-6", LJForce, Coeffs{4, 1, 12, 6, 0}},
		{"mie 9-3", LJForce, Coeffs{2.5, 0.9, 9, 3, 0}},
		{"egs monotonic", EGSForce, Coeffs{0.5, 0.5, 1 + egs.Alpha, 1 - egs.Alpha, 1 / egs.Minus, 1 / egs.Plus, 0}},
		{"egs oscillatory", EGSForce, Coeffs{1, 4.0, 1, osc.Alpha, 1 / osc.Minus, 1 / osc.Plus, 0}},
		{"deutsch", DeutschForce, Coeffs{-1, 0, 0, 2.0}},
		{"deutsch pauli", DeutschForce, Coeffs{1, 0, 0, 2.0, 0.3, 0.5}},
		{"deutsch p3m", deutschShortRange, Coeffs{-1, 0, 0.8, 2.0}},
		{"kelbg", KelbgForce, Coeffs{-1, 0, 0, 1.5}},
		{"kelbg p3m", kelbgShortRange, Coeffs{1, 0, 0.8, 1.5, 0.2, 0.4}},
		{"moliere", MoliereForce, Coeffs{1, 0.35, 0.55, 0.1, 0.3, 1.2, 6.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, r := range []float64{0.3, 0.7, 1.0, 1.9, 3.2} {
				_, fr := tt.f(r, &tt.c)
				want := numericForce(tt.f, &tt.c, r)
				assert.InDelta(t, want, fr, 1e-5*math.Max(1, math.Abs(want)), "r=%g", r)
			}
		})
	}
}

func TestQuantumPotentialsFiniteAtContact(t *testing.T) {
	for name, f := range map[string]ForceFunc{"deutsch": DeutschForce, "kelbg": KelbgForce} {
		c := Coeffs{-1, 0, 0, 3.0}
		for _, r := range []float64{0, 1e-12, 1e-8, smallX / 3.0 * 0.999, smallX / 3.0 * 1.001} {
			u, fr := f(r, &c)
			assert.False(t, math.IsNaN(u) || math.IsInf(u, 0), "%s u(%g)", name, r)
			assert.False(t, math.IsNaN(fr) || math.IsInf(fr, 0), "%s fr(%g)", name, r)
		}
		// series and closed form agree across the switch
		below := smallX / 3.0 * 0.999
		above := smallX / 3.0 * 1.001
		u1, f1 := f(below, &c)
		u2, f2 := f(above, &c)
		assert.InDelta(t, u1, u2, 1e-6*math.Abs(u1), name)
		assert.InDelta(t, f1, f2, 1e-3*math.Abs(f1), name)
	}
}

func TestEwaldShortRangeLimits(t *testing.T) {
	// vanishing alpha leaves the whole interaction in real space
	c := Coeffs{1, 0.9, 1e-3}
	for _, r := range []float64{0.5, 1, 2} {
		u, fr := EwaldShortRange(r, &c)
		wu, wf := YukawaForce(r, &Coeffs{1, 0.9})
		assert.InDelta(t, wu, u, 1e-4*wu)
		assert.InDelta(t, wf, fr, 1e-4*wf)
	}

	// large alpha pushes everything to the mesh
	c = Coeffs{1, 0, 5}
	u, fr := EwaldShortRange(2, &c)
	assert.Less(t, math.Abs(u), 1e-30)
	assert.Less(t, math.Abs(fr), 1e-30)
}

func TestMatrixSymmetric(t *testing.T) {
	species := twoSpecies(t)
	m, err := New(Params{Kind: Yukawa, Method: PP, Cutoff: 3, Kappa: 1}, species, units.Reduced)
	require.NoError(t, err)

	assert.Equal(t, *m.Coeffs(0, 1), *m.Coeffs(1, 0))
	assert.Equal(t, 1.0, m.Coeffs(0, 0)[0])
	assert.Equal(t, -1.0, m.Coeffs(0, 1)[0])
	assert.Equal(t, 1.0, m.Kappa())

	u01, _ := m.Force(0, 1, 1.3)
	u10, _ := m.Force(1, 0, 1.3)
	assert.Equal(t, u01, u10)
}

func TestLJMixing(t *testing.T) {
	species := twoSpecies(t)
	m, err := New(Params{Kind: LJ, Cutoff: 2.5, Epsilon: []float64{1, 4}, Sigma: []float64{1, 2}}, species, units.Reduced)
	require.NoError(t, err)

	c := m.Coeffs(0, 1)
	assert.InDelta(t, 4*2.0, c[0], 1e-12)
	assert.InDelta(t, 1.5, c[1], 1e-12)

	// minimum of 12-6 at 2^(1/6) sigma
	_, fr := m.Force(0, 0, math.Pow(2, 1.0/6.0))
	assert.InDelta(t, 0, fr, 1e-12)
}

func TestSetSplitting(t *testing.T) {
	species := twoSpecies(t)
	m, err := New(Params{Kind: Coulomb, Method: P3M, Cutoff: 3}, species, units.Reduced)
	require.NoError(t, err)
	require.NoError(t, m.SetSplitting(0.7))
	assert.Equal(t, 0.7, m.Splitting())
	assert.Equal(t, 0.7, m.Coeffs(1, 0)[alphaSlot])

	pp, err := New(Params{Kind: Yukawa, Method: PP, Cutoff: 3, Kappa: 1}, species, units.Reduced)
	require.NoError(t, err)
	assert.Error(t, pp.SetSplitting(0.7))
}

func TestConfigurationErrors(t *testing.T) {
	species := twoSpecies(t)
	tests := []struct {
		name  string
		p     Params
		param string
	}{
		{"coulomb without mesh", Params{Kind: Coulomb, Method: PP, Cutoff: 3}, "potential.method"},
		{"yukawa without screening", Params{Kind: Yukawa, Cutoff: 3}, "potential.screening_length"},
		{"zero cutoff", Params{Kind: Yukawa, Kappa: 1}, "potential.cutoff"},
		{"lj on mesh", Params{Kind: LJ, Method: P3M, Cutoff: 3, Epsilon: []float64{1}, Sigma: []float64{1}}, "potential.method"},
		{"lj missing epsilon", Params{Kind: LJ, Cutoff: 3, Sigma: []float64{1}}, "potential.epsilon"},
		{"lj bad powers", Params{Kind: LJ, Cutoff: 3, Epsilon: []float64{1}, Sigma: []float64{1}, HighPower: 6, LowPower: 12}, "potential.powers"},
		{"egs b below nu", Params{Kind: EGS, Cutoff: 3, Nu: 0.5, B: 0.4, LambdaTF: 1}, "potential.b"},
		{"moliere mismatch", Params{Kind: Moliere, Cutoff: 3, Coefficients: []float64{0.5, 0.5}, Exponents: []float64{1}}, "potential.exponents"},
		{"tabulated without table", Params{Kind: Tabulated, Cutoff: 3}, "potential.table"},
		{"unknown", Params{Kind: "morse", Cutoff: 3}, "potential.type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.p, species, units.Reduced)
			require.Error(t, err)
			assert.True(t, errors.Is(err, dynamo.ErrConfiguration))
			var ce *dynamo.ConfigurationError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tt.param, ce.Param)
		})
	}
}

func TestQSPNeedsTemperature(t *testing.T) {
	cold, err := particles.NewSpeciesTable([]particles.Species{{Name: "e", Mass: 1, Charge: -1, Count: 4}})
	require.NoError(t, err)
	_, err = New(Params{Kind: Kelbg, Cutoff: 3}, cold, units.Reduced)
	assert.ErrorIs(t, err, dynamo.ErrConfiguration)
}

func TestPauliOnlyForLikeElectrons(t *testing.T) {
	species := twoSpecies(t)
	m, err := New(Params{Kind: Deutsch, Cutoff: 3, Pauli: true}, species, units.Reduced)
	require.NoError(t, err)
	assert.Zero(t, m.Coeffs(0, 0)[4])
	assert.Zero(t, m.Coeffs(0, 1)[4])
	assert.InDelta(t, math.Ln2, m.Coeffs(1, 1)[4], 1e-12)
}

func TestTable(t *testing.T) {
	src := "r,u,f\n0.5,4,8\n1.0,2,2\n2.0,0,0\n"
	tbl, err := ReadTable(strings.NewReader(src))
	require.NoError(t, err)

	u, f := tbl.Eval(0.75)
	assert.InDelta(t, 3.0, u, 1e-12)
	assert.InDelta(t, 5.0, f, 1e-12)

	u, f = tbl.Eval(0.1)
	assert.Equal(t, 4.0, u)
	assert.Equal(t, 8.0, f)

	u, f = tbl.Eval(2.5)
	assert.Zero(t, u)
	assert.Zero(t, f)

	_, err = ReadTable(strings.NewReader("r,u,f\n1,0,0\n0.5,0,0\n"))
	assert.ErrorIs(t, err, dynamo.ErrConfiguration)

	species := twoSpecies(t)
	_, err = New(Params{Kind: Tabulated, Cutoff: 3, Table: tbl}, species, units.Reduced)
	assert.ErrorIs(t, err, dynamo.ErrConfiguration)

	m, err := New(Params{Kind: Tabulated, Cutoff: 1.5, Table: tbl}, species, units.Reduced)
	require.NoError(t, err)
	u, _ = m.Force(1, 0, 1.5)
	assert.InDelta(t, 1.0, u, 1e-12)
}

func TestPairForceErrorShrinksWithCutoff(t *testing.T) {
	species := twoSpecies(t)
	prev := math.Inf(1)
	for _, rc := range []float64{2, 4, 6, 8} {
		m, err := New(Params{Kind: Yukawa, Cutoff: rc, Kappa: 1}, species, units.Reduced)
		require.NoError(t, err)
		e := m.PairForceError(3/(4*math.Pi), 1)
		assert.Less(t, e, prev, "rc=%g", rc)
		assert.Greater(t, e, 0.0)
		prev = e
	}
}
