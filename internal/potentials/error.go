package potentials

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

const (
	errorQuadPoints = 256
	// the tail is integrated out to cutoff + errorTailWidth a_ws
	errorTailWidth = 40.0
)

// PairForceError estimates the RMS force discarded by truncating the pair
// interaction at the cutoff,
//
//	dF^2 = n 4 pi int_rc^inf r^2 fr(r)^2 dr,
//
// taking the largest value over all species pairs. The result is relative to
// the Coulomb force c/a_ws^2 between the pair's charges, or to the force at
// a_ws for uncharged interactions.
func (m *Matrix) PairForceError(density, aws float64) float64 {
	rc := m.cutoff
	worst := 0.0
	for i := 0; i < m.n; i++ {
		for j := i; j < m.n; j++ {
			c := &m.coeffs[i*m.n+j]
			integrand := func(r float64) float64 {
				_, fr := m.force(r, c)
				return r * r * fr * fr
			}
			tail := quad.Fixed(integrand, rc, rc+errorTailWidth*aws, errorQuadPoints, quad.Legendre{}, 0)
			df := math.Sqrt(4 * math.Pi * density * tail)

			scale := math.Abs(c[0]) / (aws * aws)
			if m.kind == LJ || m.kind == Tabulated || scale == 0 {
				_, f0 := m.force(aws, c)
				scale = math.Abs(f0)
			}
			if scale == 0 {
				continue
			}
			worst = math.Max(worst, df/scale)
		}
	}
	return worst
}
