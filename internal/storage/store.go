// Package storage keeps one directory per run under a data root:
//
//	<root>/<run_id>/metadata.json
//	<root>/<run_id>/config.yaml
//	<root>/<run_id>/thermo.csv
//	<root>/<run_id>/dumps/<phase>_<step>.csv
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/gocarina/gocsv"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/p3md/internal/dynamo"
)

const (
	metadataFile = "metadata.json"
	configFile   = "config.yaml"
	thermoFile   = "thermo.csv"
	dumpDir      = "dumps"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir(runID string) string { return filepath.Join(s.baseDir, runID) }

// RunMetadata describes a finished (or halted) run.
type RunMetadata struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Timestamp  time.Time `json:"timestamp"`
	Seed       uint64    `json:"seed"`
	Particles  int       `json:"particles"`
	Dt         float64   `json:"dt"`
	Potential  string    `json:"potential"`
	Method     string    `json:"method"`
	Integrator string    `json:"integrator"`
	Thermostat string    `json:"thermostat"`

	Alpha      float64 `json:"alpha,omitempty"`
	PPError    float64 `json:"pp_error,omitempty"`
	PMError    float64 `json:"pm_error,omitempty"`
	TotalError float64 `json:"total_error,omitempty"`

	Stats   dynamo.Stats       `json:"stats"`
	Metrics map[string]float64 `json:"metrics"`
	Error   string             `json:"error,omitempty"`
}

// NewRunID names a run after its configuration, seed and start time.
func NewRunID(name string, seed uint64) string {
	return fmt.Sprintf("%s_s%d_%d", name, seed, time.Now().Unix())
}

// Create makes the run directory and writes cfg as config.yaml. The returned
// Writer must be closed.
func (s *Store) Create(meta RunMetadata, cfg any, dumps bool) (*Writer, error) {
	dir := s.Dir(meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("storage: create run directory: %w", err)
	}
	if dumps {
		if err := os.MkdirAll(filepath.Join(dir, dumpDir), 0755); err != nil {
			return nil, fmt.Errorf("storage: create dump directory: %w", err)
		}
	}

	if cfg != nil {
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("storage: marshal config: %w", err)
		}
		if err := os.WriteFile(filepath.Join(dir, configFile), data, 0644); err != nil {
			return nil, fmt.Errorf("storage: write config: %w", err)
		}
	}

	f, err := os.Create(filepath.Join(dir, thermoFile))
	if err != nil {
		return nil, fmt.Errorf("storage: create thermo.csv: %w", err)
	}
	return &Writer{dir: dir, meta: meta, thermo: f, dumps: dumps}, nil
}

func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return &meta, nil
}

// LoadConfig decodes the stored config.yaml of a run into v.
func (s *Store) LoadConfig(runID string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.Dir(runID), configFile))
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, v)
}

func (s *Store) LoadThermo(runID string) ([]ThermoRow, error) {
	f, err := os.Open(filepath.Join(s.Dir(runID), thermoFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []ThermoRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		if errors.Is(err, gocsv.ErrEmptyCSVFile) {
			return []ThermoRow{}, nil
		}
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return rows, nil
}

func (s *Store) LoadDump(runID string, phase dynamo.Phase, step int) ([]ParticleRow, error) {
	f, err := os.Open(filepath.Join(s.Dir(runID), dumpDir, dumpName(phase, step)))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []ParticleRow
	if err := gocsv.UnmarshalFile(f, &rows); err != nil {
		return nil, fmt.Errorf("storage: %s: %w", runID, err)
	}
	return rows, nil
}

func dumpName(phase dynamo.Phase, step int) string {
	return fmt.Sprintf("%s_%d.csv", phase, step)
}
