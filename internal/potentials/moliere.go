package potentials

import (
	"math"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/particles"
	"github.com/san-kum/p3md/internal/units"
)

// Row layout for moliere, u = c/r sum_i C_i exp(-b_i r):
//
//	[0] q_i q_j / 4 pi eps0
//	[1..3] C_i
//	[4..6] b_i

const maxMoliereTerms = 3

func (m *Matrix) setupMoliere(p Params, species *particles.SpeciesTable, sys units.System) error {
	nc := len(p.Coefficients)
	if nc == 0 || nc > maxMoliereTerms {
		return dynamo.Configf("potential.coefficients", p.Coefficients, "need 1 to %d screening coefficients", maxMoliereTerms)
	}
	if len(p.Exponents) != nc {
		return dynamo.Configf("potential.exponents", p.Exponents, "need %d exponents to match the coefficients", nc)
	}
	for _, b := range p.Exponents {
		if b < 0 || math.IsNaN(b) {
			return dynamo.Configf("potential.exponents", b, "must not be negative")
		}
	}
	m.force = MoliereForce
	return m.fill(func(i, j int) (Coeffs, error) {
		c := Coeffs{chargeProduct(species, i, j, sys)}
		for k := 0; k < nc; k++ {
			c[1+k] = p.Coefficients[k]
			c[1+maxMoliereTerms+k] = p.Exponents[k]
		}
		return c, nil
	})
}

func MoliereForce(r float64, c *Coeffs) (float64, float64) {
	var u, fr float64
	for k := 0; k < maxMoliereTerms; k++ {
		if c[1+k] == 0 {
			continue
		}
		b := c[1+maxMoliereTerms+k]
		t := c[0] * c[1+k] * math.Exp(-b*r) / r
		u += t
		fr += t * (1/r + b)
	}
	return u, fr
}
