// Package potentials implements the pair potentials and the per species-pair
// parameter matrix. Every variant reduces to a ForceFunc returning the pair
// energy u(r) and fr = -du/dr, selected once when the matrix is built.
package potentials

import (
	"fmt"
	"math"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/particles"
	"github.com/san-kum/p3md/internal/units"
)

type Kind string

const (
	Coulomb   Kind = "coulomb"
	Yukawa    Kind = "yukawa"
	LJ        Kind = "lj"
	EGS       Kind = "egs"
	Deutsch   Kind = "deutsch"
	Kelbg     Kind = "kelbg"
	Moliere   Kind = "moliere"
	Tabulated Kind = "tabulated"
)

func Kinds() []Kind {
	return []Kind{Coulomb, Yukawa, LJ, EGS, Deutsch, Kelbg, Moliere, Tabulated}
}

// SupportsMesh reports whether the kind has a long-range Coulomb-like tail
// that the mesh solver can take over.
func (k Kind) SupportsMesh() bool {
	switch k {
	case Coulomb, Yukawa, Deutsch, Kelbg:
		return true
	}
	return false
}

type Method string

const (
	PP  Method = "pp"
	P3M Method = "p3m"
)

// Coeffs is one row of the parameter matrix. The meaning of each slot
// depends on the Kind; see the constructors in this package.
type Coeffs [8]float64

// Slot 2 holds the Ewald splitting parameter for every mesh-capable kind.
const alphaSlot = 2

type ForceFunc func(r float64, c *Coeffs) (u, fr float64)

// Params is the potential section of a run, already converted to the run's
// unit system.
type Params struct {
	Kind   Kind
	Method Method
	Cutoff float64

	// Kappa is the inverse screening length (yukawa).
	Kappa float64

	// lj, one entry per species or a single entry for all.
	Epsilon   []float64
	Sigma     []float64
	HighPower float64
	LowPower  float64

	// ShortRange clamps r from below for lj and egs.
	ShortRange float64

	// egs
	Nu       float64
	B        float64
	LambdaTF float64

	// deutsch, kelbg
	Pauli bool

	// moliere
	Coefficients []float64
	Exponents    []float64

	// tabulated
	Table *Table
}

// Matrix is the symmetric species x species parameter table. Rows live in
// one contiguous slice indexed by SpeciesTable.PairIndex.
type Matrix struct {
	kind   Kind
	method Method
	cutoff float64
	kappa  float64
	n      int
	coeffs []Coeffs
	force  ForceFunc
}

func New(p Params, species *particles.SpeciesTable, sys units.System) (*Matrix, error) {
	if p.Cutoff <= 0 || math.IsNaN(p.Cutoff) {
		return nil, dynamo.Configf("potential.cutoff", p.Cutoff, "must be positive")
	}
	if p.Method == "" {
		p.Method = PP
	}
	if p.Method != PP && p.Method != P3M {
		return nil, dynamo.Configf("potential.method", p.Method, "unknown method (pp, p3m)")
	}
	if p.Method == P3M && !p.Kind.SupportsMesh() {
		return nil, dynamo.Configf("potential.method", p.Method, "%s potential has no long-range part to put on the mesh", p.Kind)
	}

	n := species.Len()
	m := &Matrix{
		kind:   p.Kind,
		method: p.Method,
		cutoff: p.Cutoff,
		n:      n,
		coeffs: make([]Coeffs, n*n),
	}

	var err error
	switch p.Kind {
	case Coulomb:
		err = m.setupCoulomb(p, species, sys)
	case Yukawa:
		err = m.setupYukawa(p, species, sys)
	case LJ:
		err = m.setupLJ(p, species)
	case EGS:
		err = m.setupEGS(p, species, sys)
	case Deutsch, Kelbg:
		err = m.setupQSP(p, species, sys)
	case Moliere:
		err = m.setupMoliere(p, species, sys)
	case Tabulated:
		err = m.setupTabulated(p)
	default:
		err = dynamo.Configf("potential.type", p.Kind, "unknown potential (%v)", Kinds())
	}
	if err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Matrix) Kind() Kind           { return m.kind }
func (m *Matrix) Method() Method       { return m.method }
func (m *Matrix) Cutoff() float64      { return m.cutoff }
func (m *Matrix) Kappa() float64       { return m.kappa }
func (m *Matrix) NumSpecies() int      { return m.n }
func (m *Matrix) ForceFunc() ForceFunc { return m.force }

func (m *Matrix) UsesMesh() bool { return m.method == P3M }

// Coeffs returns the row of species pair (i, j).
func (m *Matrix) Coeffs(i, j int) *Coeffs { return &m.coeffs[i*m.n+j] }

// Force evaluates the pair potential between species i and j at distance r.
func (m *Matrix) Force(i, j int, r float64) (u, fr float64) {
	return m.force(r, &m.coeffs[i*m.n+j])
}

// SetSplitting stores the Ewald splitting parameter in every row. It is
// called once, after the optimizer has chosen alpha.
func (m *Matrix) SetSplitting(alpha float64) error {
	if m.method != P3M {
		return fmt.Errorf("potentials: splitting parameter set on a %s matrix", m.method)
	}
	if alpha <= 0 || math.IsNaN(alpha) || math.IsInf(alpha, 0) {
		return dynamo.Configf("p3m.alpha", alpha, "must be positive and finite")
	}
	for k := range m.coeffs {
		m.coeffs[k][alphaSlot] = alpha
	}
	return nil
}

func (m *Matrix) Splitting() float64 {
	if len(m.coeffs) == 0 {
		return 0
	}
	return m.coeffs[0][alphaSlot]
}

// fill sets the row of every pair from fn, enforcing symmetry.
func (m *Matrix) fill(fn func(i, j int) (Coeffs, error)) error {
	for i := 0; i < m.n; i++ {
		for j := i; j < m.n; j++ {
			c, err := fn(i, j)
			if err != nil {
				return err
			}
			m.coeffs[i*m.n+j] = c
			m.coeffs[j*m.n+i] = c
		}
	}
	return nil
}

func chargeProduct(species *particles.SpeciesTable, i, j int, sys units.System) float64 {
	return species.Get(i).Charge * species.Get(j).Charge / sys.FourPiEps0
}
