// Package pairwise evaluates the short-range part of the interaction under
// the minimum image convention, using linked cells when the box is large
// enough and an all-pairs loop otherwise.
package pairwise

import (
	"math"

	"gonum.org/v1/gonum/spatial/r3"

	"github.com/san-kum/p3md/internal/dynamo"
	"github.com/san-kum/p3md/internal/particles"
	"github.com/san-kum/p3md/internal/potentials"
)

const (
	minCellsPerAxis = 3
	// cells may be wider than the cutoff, so capping the count keeps the
	// head table bounded for tiny cutoffs
	maxCellsPerAxis = 128
	minChunk        = 16
)

// half stencil: the 13 neighbour cells with a lexicographically positive
// offset, plus the home cell handled separately.
var halfStencil = [13][3]int{
	{1, 0, 0},
	{-1, 1, 0}, {0, 1, 0}, {1, 1, 0},
	{-1, -1, 1}, {0, -1, 1}, {1, -1, 1},
	{-1, 0, 1}, {0, 0, 1}, {1, 0, 1},
	{-1, 1, 1}, {0, 1, 1}, {1, 1, 1},
}

type Kernel struct {
	box     r3.Vec
	rc      float64
	rc2     float64
	matrix  *potentials.Matrix
	force   potentials.ForceFunc
	workers int

	cells    [3]int
	useCells bool
	head     []int
	next     []int

	buffers [][]r3.Vec
	energy  []float64
	virial  []dynamo.Tensor
}

func New(box r3.Vec, m *potentials.Matrix, workers int) (*Kernel, error) {
	rc := m.Cutoff()
	lmin := math.Min(box.X, math.Min(box.Y, box.Z))
	if box.X <= 0 || box.Y <= 0 || box.Z <= 0 {
		return nil, dynamo.Configf("box", box, "every box length must be positive")
	}
	if rc > lmin/2 {
		return nil, dynamo.Configf("potential.cutoff", rc, "exceeds half the smallest box length (%g)", lmin/2)
	}
	if workers < 1 {
		workers = dynamo.DefaultWorkers()
	}
	k := &Kernel{
		box:     box,
		rc:      rc,
		rc2:     rc * rc,
		matrix:  m,
		force:   m.ForceFunc(),
		workers: workers,
	}
	k.cells = [3]int{cellsAlong(box.X, rc), cellsAlong(box.Y, rc), cellsAlong(box.Z, rc)}
	k.useCells = k.cells[0] >= minCellsPerAxis && k.cells[1] >= minCellsPerAxis && k.cells[2] >= minCellsPerAxis
	if k.useCells {
		k.head = make([]int, k.cells[0]*k.cells[1]*k.cells[2])
	}
	return k, nil
}

func cellsAlong(l, rc float64) int {
	return int(math.Min(l/rc, maxCellsPerAxis))
}

// UsesCells reports whether the linked-cell path is active.
func (k *Kernel) UsesCells() bool { return k.useCells }

func (k *Kernel) Cells() [3]int { return k.cells }

// MinimumImage maps a separation vector onto its nearest periodic image.
func (k *Kernel) MinimumImage(d r3.Vec) r3.Vec {
	d.X -= k.box.X * math.Round(d.X/k.box.X)
	d.Y -= k.box.Y * math.Round(d.Y/k.box.Y)
	d.Z -= k.box.Z * math.Round(d.Z/k.box.Z)
	return d
}

// PairForce evaluates one pair. f is the force on a; b receives -f. ok is
// false beyond the cutoff.
func (k *Kernel) PairForce(a, b *particles.Particle) (u float64, f r3.Vec, ok bool) {
	d := k.MinimumImage(r3.Sub(a.Pos, b.Pos))
	r2 := r3.Norm2(d)
	if r2 >= k.rc2 {
		return 0, r3.Vec{}, false
	}
	r := math.Sqrt(r2)
	u, fr := k.force(r, k.matrix.Coeffs(a.Species, b.Species))
	return u, r3.Scale(fr/r, d), true
}

// Compute overwrites forces with the short-range force on every particle
// and returns the short-range energy and virial tensor W_ab = sum d_a f_b.
func (k *Kernel) Compute(ps []particles.Particle, forces []r3.Vec) (float64, dynamo.Tensor) {
	n := len(ps)
	for i := range forces[:n] {
		forces[i] = r3.Vec{}
	}
	if n < 2 {
		return 0, dynamo.Tensor{}
	}

	var chunks int
	if k.useCells {
		k.buildCells(ps)
		chunks = dynamo.Chunks(k.workers, len(k.head), 1)
	} else {
		chunks = dynamo.Chunks(k.workers, n, minChunk)
	}
	k.ensureBuffers(chunks, n)

	if k.useCells {
		dynamo.ParallelFor(k.workers, len(k.head), 1, func(w, start, end int) {
			for c := start; c < end; c++ {
				k.cellPairs(ps, c, w)
			}
		})
	} else {
		dynamo.ParallelFor(k.workers, n, minChunk, func(w, start, end int) {
			for i := start; i < end; i++ {
				for j := i + 1; j < n; j++ {
					k.accumulate(ps, i, j, w)
				}
			}
		})
	}

	// reduce in worker order so results do not depend on scheduling
	energy := 0.0
	var virial dynamo.Tensor
	for w := 0; w < chunks; w++ {
		buf := k.buffers[w]
		for i := 0; i < n; i++ {
			forces[i] = r3.Add(forces[i], buf[i])
		}
		energy += k.energy[w]
		virial.Add(k.virial[w])
	}
	return energy, virial
}

func (k *Kernel) ensureBuffers(chunks, n int) {
	for len(k.buffers) < chunks {
		k.buffers = append(k.buffers, nil)
		k.energy = append(k.energy, 0)
		k.virial = append(k.virial, dynamo.Tensor{})
	}
	for w := 0; w < chunks; w++ {
		if cap(k.buffers[w]) < n {
			k.buffers[w] = make([]r3.Vec, n)
		}
		k.buffers[w] = k.buffers[w][:n]
		for i := range k.buffers[w] {
			k.buffers[w][i] = r3.Vec{}
		}
		k.energy[w] = 0
		k.virial[w] = dynamo.Tensor{}
	}
}

func (k *Kernel) accumulate(ps []particles.Particle, i, j, w int) {
	pi, pj := &ps[i], &ps[j]
	d := k.MinimumImage(r3.Sub(pi.Pos, pj.Pos))
	r2 := r3.Norm2(d)
	if r2 >= k.rc2 {
		return
	}
	r := math.Sqrt(r2)
	u, fr := k.force(r, k.matrix.Coeffs(pi.Species, pj.Species))
	f := r3.Scale(fr/r, d)

	buf := k.buffers[w]
	buf[i] = r3.Add(buf[i], f)
	buf[j] = r3.Sub(buf[j], f)
	k.energy[w] += u

	dv := [3]float64{d.X, d.Y, d.Z}
	fv := [3]float64{f.X, f.Y, f.Z}
	vir := &k.virial[w]
	for a := 0; a < 3; a++ {
		for b := 0; b < 3; b++ {
			vir[a][b] += dv[a] * fv[b]
		}
	}
}

func (k *Kernel) cellIndex(cx, cy, cz int) int {
	return (cx*k.cells[1]+cy)*k.cells[2] + cz
}

func (k *Kernel) buildCells(ps []particles.Particle) {
	for c := range k.head {
		k.head[c] = -1
	}
	if cap(k.next) < len(ps) {
		k.next = make([]int, len(ps))
	}
	k.next = k.next[:len(ps)]

	// insert in reverse so each cell lists particles in index order
	for i := len(ps) - 1; i >= 0; i-- {
		c := k.cellOf(ps[i].Pos)
		k.next[i] = k.head[c]
		k.head[c] = i
	}
}

func (k *Kernel) cellOf(p r3.Vec) int {
	cx := cellCoord(p.X, k.box.X, k.cells[0])
	cy := cellCoord(p.Y, k.box.Y, k.cells[1])
	cz := cellCoord(p.Z, k.box.Z, k.cells[2])
	return k.cellIndex(cx, cy, cz)
}

func cellCoord(x, l float64, n int) int {
	c := int(math.Floor(x / l * float64(n)))
	c %= n
	if c < 0 {
		c += n
	}
	return c
}

func (k *Kernel) cellPairs(ps []particles.Particle, c, w int) {
	cz := c % k.cells[2]
	cy := (c / k.cells[2]) % k.cells[1]
	cx := c / (k.cells[1] * k.cells[2])

	for i := k.head[c]; i >= 0; i = k.next[i] {
		for j := k.next[i]; j >= 0; j = k.next[j] {
			k.accumulate(ps, i, j, w)
		}
	}

	for _, off := range halfStencil {
		nx := (cx + off[0] + k.cells[0]) % k.cells[0]
		ny := (cy + off[1] + k.cells[1]) % k.cells[1]
		nz := (cz + off[2] + k.cells[2]) % k.cells[2]
		nc := k.cellIndex(nx, ny, nz)
		for i := k.head[c]; i >= 0; i = k.next[i] {
			for j := k.head[nc]; j >= 0; j = k.next[j] {
				k.accumulate(ps, i, j, w)
			}
		}
	}
}
