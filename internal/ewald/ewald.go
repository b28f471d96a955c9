// Package ewald picks the Ewald splitting parameter for a P3M run and builds
// the optimal influence function the mesh solver filters with.
//
// The splitting parameter alpha is chosen by scanning the closed-form error
// estimate of Dharuman et al., J. Chem. Phys. 146, 024112 (2017), which adds
// the real-space truncation error and the Deserno-Holm mesh error in
// quadrature. The influence function is the Hockney-Eastwood optimum for
// ik-differentiation, and its exact mesh error is reported alongside.
package ewald

import (
	"context"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/optim"
)

const (
	DefaultAliases = 3

	scanPoints   = 200
	refinePoints = 41
	scanLow      = 0.2
	scanHigh     = 8.0
)

type Params struct {
	Box     r3.Vec
	Mesh    [3]int
	Order   int
	Aliases [3]int

	Cutoff float64
	Kappa  float64
	// AWS is the Wigner-Seitz radius used to express errors as relative forces.
	AWS       float64
	Tolerance float64
	// Alpha skips the scan when positive.
	Alpha float64

	// Coulomb is 1/(4 pi eps0) in the run's unit system.
	Coulomb float64
	N       int

	Workers int
}

type Result struct {
	Alpha      float64
	PPError    float64
	PMError    float64
	TotalError float64
	// ExactPMError is the Hockney-Eastwood error of Green on the actual mesh.
	ExactPMError float64

	Green []float64
	K     [3][]float64
	D     [3][]float64
}

func (p Params) spacing() float64 {
	return math.Max(p.Box.X/float64(p.Mesh[0]), math.Max(p.Box.Y/float64(p.Mesh[1]), p.Box.Z/float64(p.Mesh[2])))
}

func (p Params) volume() float64 { return p.Box.X * p.Box.Y * p.Box.Z }

// Validate reports the first parameter that makes the optimisation
// meaningless.
func (p Params) Validate() error {
	if p.Order < MinOrder || p.Order > MaxOrder {
		return dynamo.Configf("p3m.order", p.Order, "assignment order must be in [%d, %d]", MinOrder, MaxOrder)
	}
	if p.Box.X <= 0 || p.Box.Y <= 0 || p.Box.Z <= 0 {
		return dynamo.Configf("box", p.Box, "every box length must be positive")
	}
	for d, m := range p.Mesh {
		if m < 2*p.Order {
			return dynamo.Configf("p3m.mesh", p.Mesh, "axis %d has %d points, too coarse for order %d (need at least %d)", d, m, p.Order, 2*p.Order)
		}
	}
	for _, a := range p.Aliases {
		if a < 0 {
			return dynamo.Configf("p3m.aliases", p.Aliases, "alias counts must be non-negative")
		}
	}
	lmin := math.Min(p.Box.X, math.Min(p.Box.Y, p.Box.Z))
	if p.Cutoff <= 0 || p.Cutoff > lmin/2 {
		return dynamo.Configf("potential.cutoff", p.Cutoff, "must be in (0, %g]", lmin/2)
	}
	if p.Kappa < 0 {
		return dynamo.Configf("potential.kappa", p.Kappa, "screening must be non-negative")
	}
	if p.AWS <= 0 {
		return dynamo.Configf("species.number_density", p.AWS, "Wigner-Seitz radius must be positive")
	}
	if p.Alpha <= 0 && !(p.Tolerance > 0) {
		return dynamo.Configf("p3m.force_error", p.Tolerance, "tolerance must be positive")
	}
	if p.Alpha < 0 || math.IsNaN(p.Alpha) || math.IsInf(p.Alpha, 0) {
		return dynamo.Configf("p3m.alpha", p.Alpha, "must be finite and non-negative")
	}
	if p.Coulomb <= 0 {
		return dynamo.Configf("units", p.Coulomb, "Coulomb constant must be positive")
	}
	return nil
}

// Optimize chooses alpha and builds the influence function. A fixed Alpha
// is only checked against the tolerance when one is given.
func Optimize(ctx context.Context, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	alpha := p.Alpha
	if alpha == 0 {
		var err error
		alpha, err = scan(ctx, p)
		if err != nil {
			return nil, err
		}
	}

	res := &Result{Alpha: alpha}
	res.PPError, res.PMError, res.TotalError = Estimate(p, alpha)
	if p.Tolerance > 0 && res.TotalError > p.Tolerance {
		return nil, dynamo.Configf("p3m.force_error", p.Tolerance,
			"unachievable with mesh %v, order %d and cutoff %g: best relative error %.3e at alpha %g",
			p.Mesh, p.Order, p.Cutoff, res.TotalError, alpha)
	}

	for d := 0; d < 3; d++ {
		res.K[d], res.D[d] = Wavenumbers(p.Mesh[d], axis(p.Box, d))
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("ewald: %w", err)
	}
	var q float64
	res.Green, q = influence(p, alpha, res.K, res.D)
	res.ExactPMError = exactRelative(p, q)
	return res, nil
}

// scan runs a coarse grid over alpha*rc and refines around the minimum.
func scan(ctx context.Context, p Params) (float64, error) {
	objective := func(v map[string]float64) (float64, error) {
		_, _, total := Estimate(p, v["alpha"]/p.Cutoff)
		return total, nil
	}

	coarse := optim.NewGridSearch([]string{"alpha"}, [][]float64{optim.Linspace(scanLow, scanHigh, scanPoints)})
	best, _, err := coarse.Search(ctx, objective)
	if err != nil {
		return 0, fmt.Errorf("ewald: alpha scan: %w", err)
	}

	step := (scanHigh - scanLow) / float64(scanPoints-1)
	lo := math.Max(scanLow, best["alpha"]-step)
	hi := math.Min(scanHigh, best["alpha"]+step)
	fine := optim.NewGridSearch([]string{"alpha"}, [][]float64{optim.Linspace(lo, hi, refinePoints)})
	best, _, err = fine.Search(ctx, objective)
	if err != nil {
		return 0, fmt.Errorf("ewald: alpha refine: %w", err)
	}
	return best["alpha"] / p.Cutoff, nil
}

func axis(v r3.Vec, d int) float64 {
	switch d {
	case 0:
		return v.X
	case 1:
		return v.Y
	}
	return v.Z
}
