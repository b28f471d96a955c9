package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/p3md/internal/dynamo"
)

// ThermoRow is one dumped step in thermo.csv.
type ThermoRow struct {
	Step  int     `csv:"step"`
	Time  float64 `csv:"time"`
	Phase string  `csv:"phase"`
	dynamo.Energy
	Potential   float64 `csv:"potential"`
	Total       float64 `csv:"total"`
	Temperature float64 `csv:"temperature"`
	Pressure    float64 `csv:"pressure"`
}

// ParticleRow is one particle in a dump file.
type ParticleRow struct {
	ID      int     `csv:"id"`
	Species int     `csv:"species"`
	X       float64 `csv:"x"`
	Y       float64 `csv:"y"`
	Z       float64 `csv:"z"`
	VX      float64 `csv:"vx"`
	VY      float64 `csv:"vy"`
	VZ      float64 `csv:"vz"`
	AX      float64 `csv:"ax"`
	AY      float64 `csv:"ay"`
	AZ      float64 `csv:"az"`
}

func thermoRow(s *dynamo.Snapshot) ThermoRow {
	return ThermoRow{
		Step:        s.Step,
		Time:        s.Time,
		Phase:       s.Phase.String(),
		Energy:      s.Energy,
		Potential:   s.Energy.Potential(),
		Total:       s.Energy.Total(),
		Temperature: s.Temperature,
		Pressure:    s.Pressure,
	}
}

// Writer records the dumps of one run. It implements dynamo.Observer; the
// first write error is kept and returned by Close.
type Writer struct {
	dir    string
	meta   RunMetadata
	thermo *os.File
	dumps  bool

	headerWritten bool
	rows          []ParticleRow
	err           error
}

func (w *Writer) ID() string { return w.meta.ID }

func (w *Writer) OnSnapshot(s *dynamo.Snapshot) {
	if w.err != nil {
		return
	}
	if err := w.writeThermo(s); err != nil {
		w.err = err
		return
	}
	if w.dumps {
		w.err = w.writeDump(s)
	}
}

func (w *Writer) writeThermo(s *dynamo.Snapshot) error {
	records := []ThermoRow{thermoRow(s)}
	if !w.headerWritten {
		if err := gocsv.Marshal(records, w.thermo); err != nil {
			return fmt.Errorf("storage: writing thermo: %w", err)
		}
		w.headerWritten = true
		return nil
	}
	if err := gocsv.MarshalWithoutHeaders(records, w.thermo); err != nil {
		return fmt.Errorf("storage: writing thermo: %w", err)
	}
	return nil
}

func (w *Writer) writeDump(s *dynamo.Snapshot) error {
	if cap(w.rows) < len(s.Positions) {
		w.rows = make([]ParticleRow, len(s.Positions))
	}
	w.rows = w.rows[:len(s.Positions)]
	for i := range s.Positions {
		p, v, a := s.Positions[i], s.Velocities[i], s.Accelerations[i]
		w.rows[i] = ParticleRow{
			ID: i, Species: s.Species[i],
			X: p.X, Y: p.Y, Z: p.Z,
			VX: v.X, VY: v.Y, VZ: v.Z,
			AX: a.X, AY: a.Y, AZ: a.Z,
		}
	}

	f, err := os.Create(filepath.Join(w.dir, dumpDir, dumpName(s.Phase, s.Step)))
	if err != nil {
		return fmt.Errorf("storage: create dump: %w", err)
	}
	defer f.Close()
	if err := gocsv.Marshal(w.rows, f); err != nil {
		return fmt.Errorf("storage: writing dump %d: %w", s.Step, err)
	}
	return nil
}

// Close writes metadata.json from the run result and closes thermo.csv.
func (w *Writer) Close(res *dynamo.Result) error {
	if err := w.thermo.Close(); err != nil && w.err == nil {
		w.err = fmt.Errorf("storage: close thermo: %w", err)
	}

	meta := w.meta
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if res != nil {
		meta.Stats = res.Stats
		meta.Metrics = res.Metrics
		if res.Err != nil {
			meta.Error = res.Err.Error()
		}
	}

	f, err := os.Create(filepath.Join(w.dir, metadataFile))
	if err != nil {
		return fmt.Errorf("storage: create metadata: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("storage: write metadata: %w", err)
	}
	return w.err
}
