package potentials

import (
	"math"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/particles"
	"github.com/san-kum/p3md/internal/units"
)

// Exact-gradient screened potential. For nu <= 1 the interaction decays
// monotonically,
//
//	u = c/(2r) [(1+a) exp(-r/l-) + (1-a) exp(-r/l+)],
//
// for nu > 1 it oscillates,
//
//	u = c/r [cos(r/g-) + a' sin(r/g-)] exp(-r/g+).
//
// Row layout:
//
//	[0] prefactor (c/2 or c)
//	[1] nu
//	[2] 1+a or 1
//	[3] 1-a or a'
//	[4] 1/l- or 1/g-
//	[5] 1/l+ or 1/g+
//	[6] short-range clamp rs

// EGSLengths holds the derived screening lengths of the EGS potential.
type EGSLengths struct {
	Monotonic bool
	Minus     float64
	Plus      float64
	Alpha     float64
}

func DeriveEGS(nu, b, lambdaTF float64) (EGSLengths, error) {
	if nu <= 0 || math.IsNaN(nu) {
		return EGSLengths{}, dynamo.Configf("potential.nu", nu, "must be positive")
	}
	if b <= 0 || math.IsNaN(b) {
		return EGSLengths{}, dynamo.Configf("potential.b", b, "must be positive")
	}
	if lambdaTF <= 0 || math.IsNaN(lambdaTF) {
		return EGSLengths{}, dynamo.Configf("potential.lambda_tf", lambdaTF, "must be positive")
	}
	if nu <= 1 {
		if b <= nu {
			return EGSLengths{}, dynamo.Configf("potential.b", b, "monotonic egs needs b > nu (%g)", nu)
		}
		root := math.Sqrt(b*b - nu)
		return EGSLengths{
			Monotonic: true,
			Plus:      lambdaTF * math.Sqrt(nu/(2*b+2*root)),
			Minus:     lambdaTF * math.Sqrt(nu/(2*b-2*root)),
			Alpha:     b / math.Sqrt(b-nu),
		}, nil
	}
	sq := math.Sqrt(nu)
	if sq <= b {
		return EGSLengths{}, dynamo.Configf("potential.b", b, "oscillatory egs needs b < sqrt(nu) (%g)", sq)
	}
	return EGSLengths{
		Minus: lambdaTF * math.Sqrt(nu/(sq-b)),
		Plus:  lambdaTF * math.Sqrt(nu/(sq+b)),
		Alpha: b / math.Sqrt(nu-b),
	}, nil
}

func (m *Matrix) setupEGS(p Params, species *particles.SpeciesTable, sys units.System) error {
	l, err := DeriveEGS(p.Nu, p.B, p.LambdaTF)
	if err != nil {
		return err
	}
	if p.ShortRange < 0 {
		return dynamo.Configf("potential.short_range_cutoff", p.ShortRange, "must not be negative")
	}
	m.force = EGSForce
	return m.fill(func(i, j int) (Coeffs, error) {
		c := chargeProduct(species, i, j, sys)
		if l.Monotonic {
			return Coeffs{0.5 * c, p.Nu, 1 + l.Alpha, 1 - l.Alpha, 1 / l.Minus, 1 / l.Plus, p.ShortRange}, nil
		}
		return Coeffs{c, p.Nu, 1, l.Alpha, 1 / l.Minus, 1 / l.Plus, p.ShortRange}, nil
	})
}

func EGSForce(r float64, c *Coeffs) (float64, float64) {
	if r < c[6] {
		r = c[6]
	}
	if c[1] <= 1 {
		t1 := c[2] * math.Exp(-r*c[4])
		t2 := c[3] * math.Exp(-r*c[5])
		u := (t1 + t2) * c[0] / r
		fr := u/r + c[0]*(t1*c[4]+t2*c[5])/r
		return u, fr
	}
	cos := math.Cos(r * c[4])
	sin := math.Sin(r * c[4])
	e := c[0] * math.Exp(-r*c[5])
	u := (cos + c[3]*sin) * e / r
	fr := u/r + u*c[5] + c[4]*(sin-c[3]*cos)*e/r
	return u, fr
}
