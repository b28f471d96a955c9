package ewald

import (
	"math"

	"gonum.org/v1/gonum/integrate/quad"

	"github.com/san-kum/p3md/internal/potentials"
)

const (
	MinOrder = 1
	MaxOrder = 7

	betaUpper  = 20.0
	betaPoints = 200

	// the cutoff tail is split into segments of w, w, 2w, 4w, ... past rc,
	// w being the decay length of the squared force
	tailSegments = 7
	tailPoints   = 32
)

// Deserno & Holm, J. Chem. Phys. 109, 7694 (1998), table I.
var cmp = [MaxOrder + 1][]float64{
	1: {2. / 3},
	2: {2. / 45, 8. / 189},
	3: {4. / 495, 2. / 225, 8. / 1485},
	4: {2. / 4725, 16. / 10395, 5528. / 3869775, 32. / 42525},
	5: {4. / 93555, 2764. / 11609325, 8. / 25515, 7234. / 32531625, 350936. / 3206852775},
	6: {2764. / 638512875, 16. / 467775, 7234. / 119282625, 1403744. / 25196700375,
		1396888. / 40521009375, 2485856. / 152506344375},
	7: {8. / 18243225, 7234. / 1550674125, 701872. / 65511420975, 2793776. / 225759909375,
		1242928. / 132172165125, 1890912728. / 352985880121875, 21053792. / 8533724574375},
}

// PPError is the RMS force discarded by truncating the short-range part of
// the split interaction at rc,
//
//	dF^2 = 4 pi int_rc^inf r^2 F(r)^2 dr,
//
// per unit density, in units of q^2/(4 pi eps0). For kappa = 0 and alpha rc
// well above one it approaches 2 exp(-alpha^2 rc^2)/sqrt(rc). When alpha is
// small the short-range part is close to the bare interaction and the
// integral keeps its cut-off tail.
func PPError(alpha, kappa, rc float64) float64 {
	c := potentials.Coeffs{1, kappa, alpha}
	integrand := func(r float64) float64 {
		_, f := potentials.EwaldShortRange(r, &c)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return 0
		}
		return r * r * f * f
	}

	w := 1 / (2*alpha*alpha*rc + 2*kappa + 1/rc)
	var tail float64
	a := rc
	for k := 0; k < tailSegments; k++ {
		b := rc + w*math.Ldexp(1, k)
		tail += quad.Fixed(integrand, a, b, tailPoints, quad.Legendre{}, 0)
		a = b
	}
	return math.Sqrt(4 * math.Pi * tail)
}

// PMError is the closed-form reciprocal-space error for a B-spline of the
// given order on a mesh of spacing h.
func PMError(alpha, kappa, h float64, order int) float64 {
	kt := kappa / alpha
	ah := 0.5 * alpha * h
	var sum float64
	for m, c := range cmp[order] {
		e := 2 * (m + order)
		sum += c * (2 / (1 + float64(e))) * alpha * math.Pow(ah, float64(e)) * betaReduced(m+order+2, kt)
	}
	return math.Sqrt(3*sum) / (2 * math.Pi)
}

// betaReduced is int_0^inf G(k)^2 k^(2s) dk with k = alpha x, divided by
// alpha^(2s-3) so that it stays finite for any alpha.
func betaReduced(s int, kt float64) float64 {
	kt2 := kt * kt
	f := func(x float64) float64 {
		d := x*x + kt2
		if d == 0 {
			return 0
		}
		g := 4 * math.Pi * math.Exp(-0.25*d) / d
		return g * g * math.Pow(x, float64(2*s))
	}
	return quad.Fixed(f, 0, betaUpper, betaPoints, quad.Legendre{}, 0)
}

// relative converts an error in units of q^2/(4 pi eps0) into one relative
// to the force between two charges at the Wigner-Seitz distance.
func relative(delta, aws float64) float64 {
	return math.Sqrt(3*aws/(4*math.Pi)) * delta
}

// Estimate returns the relative PP, PM and total errors at alpha.
func Estimate(p Params, alpha float64) (pp, pm, total float64) {
	pp = relative(PPError(alpha, p.Kappa, p.Cutoff), p.AWS)
	pm = relative(PMError(alpha, p.Kappa, p.spacing(), p.Order), p.AWS)
	return pp, pm, math.Hypot(pp, pm)
}
