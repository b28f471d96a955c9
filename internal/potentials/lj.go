package potentials

import (
	"math"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/particles"
)

// Row layout for lj (generalised Mie form):
//
//	[0] C epsilon, C = n/(n-m) (n/m)^(m/(n-m))
//	[1] sigma
//	[2] high power n
//	[3] low power m
//	[4] short-range clamp rs

func (m *Matrix) setupLJ(p Params, species *particles.SpeciesTable) error {
	n, lo := p.HighPower, p.LowPower
	if n == 0 && lo == 0 {
		n, lo = 12, 6
	}
	if lo <= 0 || n <= lo {
		return dynamo.Configf("potential.powers", [2]float64{n, lo}, "need high_power > low_power > 0")
	}
	if p.ShortRange < 0 {
		return dynamo.Configf("potential.short_range_cutoff", p.ShortRange, "must not be negative")
	}
	eps, err := perSpecies("potential.epsilon", p.Epsilon, species.Len())
	if err != nil {
		return err
	}
	sig, err := perSpecies("potential.sigma", p.Sigma, species.Len())
	if err != nil {
		return err
	}
	pref := n / (n - lo) * math.Pow(n/lo, lo/(n-lo))

	m.force = LJForce
	return m.fill(func(i, j int) (Coeffs, error) {
		// Lorentz-Berthelot mixing
		e := math.Sqrt(eps[i] * eps[j])
		s := 0.5 * (sig[i] + sig[j])
		return Coeffs{pref * e, s, n, lo, p.ShortRange}, nil
	})
}

func LJForce(r float64, c *Coeffs) (float64, float64) {
	if r < c[4] {
		r = c[4]
	}
	sr := c[1] / r
	hi := math.Pow(sr, c[2])
	lo := math.Pow(sr, c[3])
	u := c[0] * (hi - lo)
	fr := c[0] * (c[2]*hi - c[3]*lo) / r
	return u, fr
}

func perSpecies(name string, v []float64, n int) ([]float64, error) {
	switch len(v) {
	case 0:
		return nil, dynamo.Configf(name, nil, "required")
	case 1:
		out := make([]float64, n)
		for i := range out {
			out[i] = v[0]
		}
		v = out
	case n:
	default:
		return nil, dynamo.Configf(name, v, "need one value or one per species (%d)", n)
	}
	for _, x := range v {
		if x <= 0 || math.IsNaN(x) {
			return nil, dynamo.Configf(name, x, "must be positive")
		}
	}
	return v, nil
}
