package viz

import (
	"fmt"
	"slices"
	"strings"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/p3md/internal/storage"
)

var thermoFields = map[string]func(storage.ThermoRow) float64{
	"total":       func(r storage.ThermoRow) float64 { return r.Total },
	"kinetic":     func(r storage.ThermoRow) float64 { return r.Kinetic },
	"potential":   func(r storage.ThermoRow) float64 { return r.Potential },
	"short_range": func(r storage.ThermoRow) float64 { return r.ShortRange },
	"long_range":  func(r storage.ThermoRow) float64 { return r.LongRange },
	"temperature": func(r storage.ThermoRow) float64 { return r.Temperature },
	"pressure":    func(r storage.ThermoRow) float64 { return r.Pressure },
}

// ThermoFields lists the columns PlotThermo accepts.
func ThermoFields() []string {
	names := make([]string, 0, len(thermoFields))
	for k := range thermoFields {
		names = append(names, k)
	}
	slices.Sort(names)
	return names
}

// PlotThermo draws one thermodynamic column against the dump index. When
// phase is not empty only rows of that phase are plotted.
func PlotThermo(rows []storage.ThermoRow, field, phase string, width, height int) (string, error) {
	get, ok := thermoFields[field]
	if !ok {
		return "", fmt.Errorf("viz: unknown field %q (available: %s)", field, strings.Join(ThermoFields(), ", "))
	}
	data := make([]float64, 0, len(rows))
	first, last := -1, -1
	for _, r := range rows {
		if phase != "" && r.Phase != phase {
			continue
		}
		if first < 0 {
			first = r.Step
		}
		last = r.Step
		data = append(data, get(r))
	}
	if len(data) == 0 {
		return "", fmt.Errorf("viz: no %s rows to plot", orAll(phase))
	}

	caption := fmt.Sprintf("%s, steps %d-%d (%s)", field, first, last, orAll(phase))
	return asciigraph.Plot(data,
		asciigraph.Height(height),
		asciigraph.Width(width),
		asciigraph.Precision(4),
		asciigraph.Caption(caption),
	), nil
}

func orAll(phase string) string {
	if phase == "" {
		return "all phases"
	}
	return phase
}
