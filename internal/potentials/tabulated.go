package potentials

import (
	"fmt"
	"io"
	"math"
	"os"
	"sort"

	"github.com/gocarina/gocsv"

	"github.com/san-kum/p3md/internal/dynamo"
)

// TableRow is one line of a tabulated potential file.
type TableRow struct {
	R float64 `csv:"r"`
	U float64 `csv:"u"`
	F float64 `csv:"f"`
}

// Table is a tabulated pair interaction. Between grid points u and fr are
// interpolated linearly; beyond the last point both are zero and below the
// first they are held at the first value.
type Table struct {
	r, u, f []float64
}

func NewTable(rows []TableRow) (*Table, error) {
	if len(rows) < 2 {
		return nil, dynamo.Configf("potential.table", len(rows), "need at least two rows")
	}
	t := &Table{
		r: make([]float64, len(rows)),
		u: make([]float64, len(rows)),
		f: make([]float64, len(rows)),
	}
	for i, row := range rows {
		if i > 0 && row.R <= rows[i-1].R {
			return nil, dynamo.Configf("potential.table", row.R, "r must be strictly increasing (row %d)", i)
		}
		if row.R < 0 || math.IsNaN(row.U) || math.IsNaN(row.F) {
			return nil, dynamo.Configf("potential.table", row, "invalid row %d", i)
		}
		t.r[i], t.u[i], t.f[i] = row.R, row.U, row.F
	}
	return t, nil
}

func ReadTable(r io.Reader) (*Table, error) {
	var rows []TableRow
	if err := gocsv.Unmarshal(r, &rows); err != nil {
		return nil, fmt.Errorf("potentials: parse table: %w", err)
	}
	return NewTable(rows)
}

func LoadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, dynamo.Configf("potential.table", path, "%v", err)
	}
	defer f.Close()
	return ReadTable(f)
}

// Range returns the first and last tabulated distance.
func (t *Table) Range() (float64, float64) { return t.r[0], t.r[len(t.r)-1] }

func (t *Table) Eval(r float64) (float64, float64) {
	n := len(t.r)
	if r > t.r[n-1] {
		return 0, 0
	}
	if r <= t.r[0] {
		return t.u[0], t.f[0]
	}
	k := sort.SearchFloat64s(t.r, r)
	w := (r - t.r[k-1]) / (t.r[k] - t.r[k-1])
	return t.u[k-1] + w*(t.u[k]-t.u[k-1]), t.f[k-1] + w*(t.f[k]-t.f[k-1])
}

func (m *Matrix) setupTabulated(p Params) error {
	if p.Table == nil {
		return dynamo.Configf("potential.table", nil, "tabulated potential needs a table file")
	}
	if _, hi := p.Table.Range(); hi < p.Cutoff {
		return dynamo.Configf("potential.cutoff", p.Cutoff, "beyond the last tabulated distance %g", hi)
	}
	tbl := p.Table
	m.force = func(r float64, _ *Coeffs) (float64, float64) { return tbl.Eval(r) }
	return nil
}
