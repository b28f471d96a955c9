// Package units provides the physical constants of the supported unit
// systems and the derived plasma parameters used to size a run.
package units

import (
	"fmt"
	"math"

	"github.com/san-kum/p3md/internal/dynamo"
)

// System carries the constants that differ between unit systems.
type System struct {
	Name           string
	KB             float64
	Hbar           float64
	FourPiEps0     float64
	Elementary     float64
	ElectronMass   float64
	AtomicMass     float64
	LightSpeed     float64
	MagneticFactor float64
}

var (
	MKS = System{
		Name:           "mks",
		KB:             1.380649e-23,
		Hbar:           1.054571817e-34,
		FourPiEps0:     4 * math.Pi * 8.8541878128e-12,
		Elementary:     1.602176634e-19,
		ElectronMass:   9.1093837015e-31,
		AtomicMass:     1.66053906660e-27,
		LightSpeed:     299792458.0,
		MagneticFactor: 1.0,
	}

	CGS = System{
		Name:           "cgs",
		KB:             1.380649e-16,
		Hbar:           1.054571817e-27,
		FourPiEps0:     1.0,
		Elementary:     4.80320471e-10,
		ElectronMass:   9.1093837015e-28,
		AtomicMass:     1.66053906660e-24,
		LightSpeed:     2.99792458e10,
		MagneticFactor: 1.0 / 2.99792458e10,
	}

	// Reduced sets every constant to one; lengths, charges and masses are
	// whatever the configuration makes them.
	Reduced = System{
		Name:           "reduced",
		KB:             1.0,
		Hbar:           1.0,
		FourPiEps0:     1.0,
		Elementary:     1.0,
		ElectronMass:   1.0,
		AtomicMass:     1.0,
		LightSpeed:     1.0,
		MagneticFactor: 1.0,
	}
)

func Lookup(name string) (System, error) {
	switch name {
	case "mks":
		return MKS, nil
	case "cgs":
		return CGS, nil
	case "reduced", "":
		return Reduced, nil
	default:
		return System{}, dynamo.Configf("units", name, "unknown unit system (mks, cgs, reduced)")
	}
}

// WignerSeitz returns the Wigner-Seitz radius (3/(4 pi n))^(1/3).
func WignerSeitz(n float64) float64 {
	return math.Cbrt(3.0 / (4.0 * math.Pi * n))
}

// CubicBoxSide returns the side of the cube holding n particles at
// Wigner-Seitz radius a.
func CubicBoxSide(n int, a float64) float64 {
	return a * math.Cbrt(4.0*math.Pi*float64(n)/3.0)
}

func PlasmaFrequency(n, q, m, fourPiEps0 float64) float64 {
	return math.Sqrt(4.0 * math.Pi * n * q * q / (fourPiEps0 * m))
}

func CyclotronFrequency(q, b, m, factor float64) float64 {
	return math.Abs(q) * b * factor / m
}

// Coupling returns the Coulomb coupling parameter q^2/(4 pi eps0 a kB T).
func Coupling(q2, a, kT, fourPiEps0 float64) float64 {
	if kT == 0 {
		return math.Inf(1)
	}
	return q2 / (fourPiEps0 * a * kT)
}

// ThermalWavelength returns hbar/sqrt(2 mu kB T).
func ThermalWavelength(hbar, mu, kT float64) float64 {
	return hbar / math.Sqrt(2.0*mu*kT)
}

// Plasma collects the derived parameters printed at setup.
type Plasma struct {
	TotalNumberDensity float64
	WignerSeitzRadius  float64
	PlasmaFrequency    float64
	SpeciesFrequency   []float64
	CyclotronFrequency []float64
	Coupling           float64
	MeanChargeSquared  float64
}

func (p Plasma) String() string {
	return fmt.Sprintf("n=%.4e a_ws=%.4e wp=%.4e Gamma=%.4g", p.TotalNumberDensity, p.WignerSeitzRadius, p.PlasmaFrequency, p.Coupling)
}

// SpeciesData is the minimal per-species input the derived parameters need.
type SpeciesData struct {
	Count         int
	NumberDensity float64
	Charge        float64
	Mass          float64
	Temperature   float64
}

// Derive computes total density, a_ws, plasma and cyclotron frequencies and
// the coupling parameter of a mixture.
func Derive(sys System, species []SpeciesData, bfield float64) Plasma {
	var p Plasma
	total := 0
	kT := 0.0
	for _, s := range species {
		p.TotalNumberDensity += s.NumberDensity
		total += s.Count
	}
	wp2 := 0.0
	for _, s := range species {
		w := PlasmaFrequency(s.NumberDensity, s.Charge, s.Mass, sys.FourPiEps0)
		p.SpeciesFrequency = append(p.SpeciesFrequency, w)
		p.CyclotronFrequency = append(p.CyclotronFrequency, CyclotronFrequency(s.Charge, bfield, s.Mass, sys.MagneticFactor))
		wp2 += w * w
		if total > 0 {
			frac := float64(s.Count) / float64(total)
			p.MeanChargeSquared += frac * s.Charge * s.Charge
			kT += frac * sys.KB * s.Temperature
		}
	}
	p.PlasmaFrequency = math.Sqrt(wp2)
	if p.TotalNumberDensity > 0 {
		p.WignerSeitzRadius = WignerSeitz(p.TotalNumberDensity)
		p.Coupling = Coupling(p.MeanChargeSquared, p.WignerSeitzRadius, kT, sys.FourPiEps0)
	}
	return p
}
