package viz

import (
	"fmt"
	"strings"

	"github.com/san-kum/p3md/internal/experiment"
)

// RenderSummary lays out the derived parameters of a configured experiment.
func RenderSummary(s experiment.Summary) string {
	var b strings.Builder
	row := func(label, format string, args ...any) {
		b.WriteString(MetricLabel.Render(label) + MetricValue.Render(fmt.Sprintf(format, args...)) + "\n")
	}

	b.WriteString(GradientText(strings.ToUpper(s.Name), CurrentTheme.Primary, CurrentTheme.Secondary) + "\n\n")
	row("units", "%s", s.Units)
	row("particles", "%d", s.Particles)
	row("a_ws", "%.6e", s.AWS)
	row("box / a_ws", "%.4f x %.4f x %.4f", s.Box.X, s.Box.Y, s.Box.Z)
	row("coupling", "%.4f", s.Coupling)

	b.WriteString("\n" + HeaderStyle.Render("species") + "\n")
	for _, sp := range s.Species {
		line := fmt.Sprintf("%-10s N=%-7d n=%.4e  T=%.4e  wp=%.4e", sp.Name, sp.Number, sp.NumberDensity, sp.Temperature, sp.PlasmaFrequency)
		if sp.CyclotronFrequency != 0 {
			line += fmt.Sprintf("  wc=%.4e", sp.CyclotronFrequency)
		}
		b.WriteString(Subtle.Render(line) + "\n")
	}

	b.WriteString("\n" + HeaderStyle.Render("interaction") + "\n")
	row("potential", "%s (%s)", s.Potential, s.Method)
	row("rc / a_ws", "%.4f", s.Cutoff)
	if s.Kappa != 0 {
		row("kappa a_ws", "%.4f", s.Kappa)
	}
	if s.Order > 0 {
		row("mesh", "%d x %d x %d", s.Mesh[0], s.Mesh[1], s.Mesh[2])
		row("order", "%d", s.Order)
		row("alpha a_ws", "%.4f", s.Alpha)
		row("h alpha", "%.4f", s.HAlpha)
		row("PP error", "%.4e", s.PPError)
		row("PM error", "%.4e", s.PMError)
		row("force error", "%.4e", s.TotalError)
	} else {
		row("force error", "%.4e", s.PairError)
	}

	b.WriteString("\n" + HeaderStyle.Render("integration") + "\n")
	row("integrator", "%s", s.Integrator)
	row("thermostat", "%s", s.Thermostat)
	row("dt", "%.4e", s.Dt)
	row("wp dt", "%.4f", s.WpDt)
	row("steps", "%d eq + %d prod", s.EqSteps, s.ProdSteps)

	return Panel.Render(b.String())
}
