package potentials

import (
	"math"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/particles"
	"github.com/san-kum/p3md/internal/units"
)

// Quantum statistical potentials. Both soften the Coulomb singularity on the
// scale of the pair thermal wavelength l = hbar/sqrt(2 mu kB T):
//
//	deutsch: u = c/r (1 - exp(-r/l))
//	kelbg:   u = c/r (1 - exp(-r^2/l^2) + sqrt(pi) (r/l) erfc(r/l))
//
// Like-charged electron pairs may add the Pauli term kB T ln2 exp(-r^2/(pi l^2)).
//
// Row layout:
//
//	[0] q_i q_j / 4 pi eps0
//	[1] unused (zero screening for the mesh part)
//	[2] Ewald alpha (p3m only)
//	[3] 1/l
//	[4] Pauli amplitude kB T ln 2, zero when absent
//	[5] Pauli 1/(pi l^2)

const smallX = 1e-4

func (m *Matrix) setupQSP(p Params, species *particles.SpeciesTable, sys units.System) error {
	for i := 0; i < species.Len(); i++ {
		if species.Get(i).Temperature <= 0 {
			return dynamo.Configf("species.temperature", species.Get(i).Temperature, "%s potential needs a positive temperature for species %s", p.Kind, species.Get(i).Name)
		}
	}

	switch {
	case p.Kind == Deutsch && p.Method == P3M:
		m.force = deutschShortRange
	case p.Kind == Deutsch:
		m.force = DeutschForce
	case p.Method == P3M:
		m.force = kelbgShortRange
	default:
		m.force = KelbgForce
	}

	return m.fill(func(i, j int) (Coeffs, error) {
		si, sj := species.Get(i), species.Get(j)
		mu := si.Mass * sj.Mass / (si.Mass + sj.Mass)
		kT := sys.KB * 0.5 * (si.Temperature + sj.Temperature)
		l := units.ThermalWavelength(sys.Hbar, mu, kT)
		c := Coeffs{chargeProduct(species, i, j, sys), 0, 0, 1 / l}
		if p.Pauli && i == j && si.Charge < 0 {
			c[4] = kT * math.Ln2
			c[5] = 1 / (math.Pi * l * l)
		}
		return c, nil
	})
}

func pauli(r float64, c *Coeffs) (float64, float64) {
	if c[4] == 0 {
		return 0, 0
	}
	u := c[4] * math.Exp(-r*r*c[5])
	return u, 2 * r * c[5] * u
}

func DeutschForce(r float64, c *Coeffs) (float64, float64) {
	q, il := c[0], c[3]
	x := r * il
	var u, fr float64
	if x < smallX {
		u = q * il * (1 - x/2 + x*x/6)
		fr = q * il * il * (0.5 - x/3 + x*x/8)
	} else {
		one := -math.Expm1(-x)
		u = q * one / r
		fr = q*one/(r*r) - q*math.Exp(-x)*il/r
	}
	pu, pf := pauli(r, c)
	return u + pu, fr + pf
}

func deutschShortRange(r float64, c *Coeffs) (float64, float64) {
	u, fr := EwaldShortRange(r, c)
	e := c[0] * math.Exp(-r*c[3]) / r
	u -= e
	fr -= e * (1/r + c[3])
	pu, pf := pauli(r, c)
	return u + pu, fr + pf
}

func KelbgForce(r float64, c *Coeffs) (float64, float64) {
	q, il := c[0], c[3]
	x := r * il
	var u, fr float64
	if x < smallX {
		u = q * il * (math.SqrtPi - x + x*x*x/6)
		fr = q * il * il * (1 - x*x/2)
	} else {
		one := -math.Expm1(-x * x)
		u = q * il * (one/x + math.SqrtPi*math.Erfc(x))
		fr = q * one / (r * r)
	}
	pu, pf := pauli(r, c)
	return u + pu, fr + pf
}

func kelbgShortRange(r float64, c *Coeffs) (float64, float64) {
	u, fr := EwaldShortRange(r, c)
	q, il := c[0], c[3]
	x := r * il
	g := math.Exp(-x * x)
	u += q * il * (-g/x + math.SqrtPi*math.Erfc(x))
	fr -= q * g / (r * r)
	pu, pf := pauli(r, c)
	return u + pu, fr + pf
}
