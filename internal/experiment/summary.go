package experiment

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"
)

// SpeciesSummary is the per-species part of a Summary.
type SpeciesSummary struct {
	Name               string
	Number             int
	NumberDensity      float64
	Temperature        float64
	PlasmaFrequency    float64
	CyclotronFrequency float64
}

// Summary is the set of derived parameters printed before a run. Lengths
// are in units of the Wigner-Seitz radius.
type Summary struct {
	Name       string
	Units      string
	Particles  int
	Species    []SpeciesSummary
	AWS        float64
	Box        r3.Vec
	Potential  string
	Method     string
	Cutoff     float64
	Kappa      float64
	Coupling   float64
	Integrator string
	Thermostat string
	Dt         float64
	WpDt       float64
	EqSteps    int
	ProdSteps  int

	// P3M only.
	Mesh         [3]int
	Order        int
	Alpha        float64
	HAlpha       float64
	PPError      float64
	PMError      float64
	TotalError   float64
	ExactPMError float64

	// PairError is the truncation error of a pairwise-only run.
	PairError float64
}

func (e *Experiment) Summary() Summary {
	c := e.cfg
	a := e.plasma.WignerSeitzRadius
	s := Summary{
		Name:       c.Name,
		Units:      e.system.Name,
		Particles:  e.species.Total(),
		AWS:        a,
		Box:        r3.Scale(1/a, e.box),
		Potential:  string(e.matrix.Kind()),
		Method:     string(e.matrix.Method()),
		Cutoff:     e.matrix.Cutoff() / a,
		Kappa:      e.matrix.Kappa() * a,
		Coupling:   e.plasma.Coupling,
		Integrator: c.Integrator.Type,
		Thermostat: c.Thermostat.Type,
		Dt:         c.Integrator.Dt,
		WpDt:       e.plasma.PlasmaFrequency * c.Integrator.Dt,
		EqSteps:    c.Run.EquilibrationSteps,
		ProdSteps:  c.Run.ProductionSteps,
		PairError:  e.pairErr,
	}
	for i, sp := range e.species.All() {
		s.Species = append(s.Species, SpeciesSummary{
			Name:               sp.Name,
			Number:             sp.Count,
			NumberDensity:      sp.NumberDensity,
			Temperature:        sp.Temperature,
			PlasmaFrequency:    e.plasma.SpeciesFrequency[i],
			CyclotronFrequency: e.plasma.CyclotronFrequency[i],
		})
	}
	if g := e.green; g != nil {
		h := math.Max(e.box.X/float64(c.P3M.Mesh[0]), math.Max(e.box.Y/float64(c.P3M.Mesh[1]), e.box.Z/float64(c.P3M.Mesh[2])))
		s.Mesh = c.P3M.Mesh
		s.Order = c.P3M.Order
		s.Alpha = g.Alpha * a
		s.HAlpha = h * g.Alpha
		s.PPError = g.PPError
		s.PMError = g.PMError
		s.TotalError = g.TotalError
		s.ExactPMError = g.ExactPMError
	}
	return s
}
