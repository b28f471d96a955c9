package particles

import "github.com/san-kum/p3md/internal/dynamo"

type Species struct {
	Name          string
	Mass          float64
	Charge        float64
	Count         int
	NumberDensity float64
	Temperature   float64
}

// SpeciesTable is fixed once built; ids are indices into it.
type SpeciesTable struct {
	species []Species
}

func NewSpeciesTable(species []Species) (*SpeciesTable, error) {
	if len(species) == 0 {
		return nil, dynamo.Configf("species", nil, "at least one species is required")
	}
	seen := make(map[string]bool, len(species))
	for i, s := range species {
		if s.Mass <= 0 {
			return nil, dynamo.Configf("species.mass", s.Mass, "species %d (%s) must have positive mass", i, s.Name)
		}
		if s.Count < 0 {
			return nil, dynamo.Configf("species.number", s.Count, "species %d (%s) has a negative count", i, s.Name)
		}
		if s.Temperature < 0 {
			return nil, dynamo.Configf("species.temperature", s.Temperature, "species %d (%s) has a negative temperature", i, s.Name)
		}
		if seen[s.Name] {
			return nil, dynamo.Configf("species.name", s.Name, "duplicate species name")
		}
		seen[s.Name] = true
	}
	cp := make([]Species, len(species))
	copy(cp, species)
	return &SpeciesTable{species: cp}, nil
}

func (t *SpeciesTable) Len() int               { return len(t.species) }
func (t *SpeciesTable) Get(id int) Species     { return t.species[id] }
func (t *SpeciesTable) All() []Species         { return append([]Species(nil), t.species...) }
func (t *SpeciesTable) PairIndex(i, j int) int { return i*len(t.species) + j }

func (t *SpeciesTable) Total() int {
	n := 0
	for _, s := range t.species {
		n += s.Count
	}
	return n
}

func (t *SpeciesTable) Index(name string) (int, bool) {
	for i, s := range t.species {
		if s.Name == name {
			return i, true
		}
	}
	return -1, false
}
