package potentials

import (
	"math"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/particles"
	"github.com/san-kum/p3md/internal/units"
)

// Row layout for coulomb and yukawa:
//
//	[0] q_i q_j / 4 pi eps0
//	[1] kappa
//	[2] Ewald alpha (p3m only)

func (m *Matrix) setupCoulomb(p Params, species *particles.SpeciesTable, sys units.System) error {
	if p.Method != P3M {
		return dynamo.Configf("potential.method", p.Method, "coulomb interactions are long ranged and require p3m")
	}
	m.force = EwaldShortRange
	return m.fill(func(i, j int) (Coeffs, error) {
		return Coeffs{chargeProduct(species, i, j, sys), 0}, nil
	})
}

func (m *Matrix) setupYukawa(p Params, species *particles.SpeciesTable, sys units.System) error {
	if p.Kappa <= 0 || math.IsNaN(p.Kappa) || math.IsInf(p.Kappa, 0) {
		return dynamo.Configf("potential.screening_length", p.Kappa, "yukawa needs a positive finite screening length")
	}
	m.kappa = p.Kappa
	if p.Method == P3M {
		m.force = EwaldShortRange
	} else {
		m.force = YukawaForce
	}
	return m.fill(func(i, j int) (Coeffs, error) {
		return Coeffs{chargeProduct(species, i, j, sys), p.Kappa}, nil
	})
}

// YukawaForce is the bare screened Coulomb interaction c exp(-kappa r)/r.
func YukawaForce(r float64, c *Coeffs) (float64, float64) {
	u := c[0] * math.Exp(-c[1]*r) / r
	return u, u * (1/r + c[1])
}

// EwaldShortRange is the real-space complement of the mesh part of a
// screened Coulomb interaction,
//
//	u = c/(2r) [exp(kr) erfc(ar + k/2a) + exp(-kr) erfc(ar - k/2a)],
//
// which reduces to c erfc(ar)/r for k = 0.
func EwaldShortRange(r float64, c *Coeffs) (float64, float64) {
	q, kappa, alpha := c[0], c[1], c[2]
	if kappa == 0 {
		e := math.Erfc(alpha * r)
		u := q * e / r
		fr := q * (e/(r*r) + 2*alpha/math.SqrtPi*math.Exp(-alpha*alpha*r*r)/r)
		return u, fr
	}
	beta := 0.5 * kappa / alpha
	a := math.Exp(kappa*r) * math.Erfc(alpha*r+beta)
	b := math.Exp(-kappa*r) * math.Erfc(alpha*r-beta)
	u := 0.5 * q * (a + b) / r
	fr := q * (0.5*(a+b)/(r*r) - 0.5*kappa*(a-b)/r +
		2*alpha/math.SqrtPi*math.Exp(-alpha*alpha*r*r-beta*beta)/r)
	return u, fr
}
