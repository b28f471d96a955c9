package compute

import (
	"github.com/san-kum/p3md/internal/dynamo"
)

const minLines = 8

// FFT3 performs separable 3-D transforms on a row-major grid indexed
// (x*ny + y)*nz + z. Lines along each axis are distributed over workers,
// each with its own Line plans and scratch buffer.
type FFT3 struct {
	backend Backend
	n       [3]int
	workers int

	plans   [3][]Line
	scratch [][]complex128
}

func NewFFT3(b Backend, n [3]int, workers int) *FFT3 {
	if workers < 1 {
		workers = dynamo.DefaultWorkers()
	}
	f := &FFT3{backend: b, n: n, workers: workers}
	maxN := max(n[0], n[1], n[2])
	for axis := 0; axis < 3; axis++ {
		lines := f.lineCount(axis)
		chunks := dynamo.Chunks(workers, lines, minLines)
		for w := 0; w < chunks; w++ {
			f.plans[axis] = append(f.plans[axis], b.NewLine(n[axis]))
		}
		for len(f.scratch) < chunks {
			f.scratch = append(f.scratch, make([]complex128, maxN))
		}
	}
	return f
}

func (f *FFT3) Backend() Backend { return f.backend }
func (f *FFT3) Size() int        { return f.n[0] * f.n[1] * f.n[2] }

func (f *FFT3) Forward(g []complex128) { f.transform(g, false) }

// Inverse is unnormalized; divide by Size to undo Forward.
func (f *FFT3) Inverse(g []complex128) { f.transform(g, true) }

func (f *FFT3) lineCount(axis int) int {
	return f.Size() / f.n[axis]
}

func (f *FFT3) transform(g []complex128, inverse bool) {
	nx, ny, nz := f.n[0], f.n[1], f.n[2]
	strides := [3]int{ny * nz, nz, 1}

	for axis := 0; axis < 3; axis++ {
		length := f.n[axis]
		stride := strides[axis]
		lines := f.lineCount(axis)

		dynamo.ParallelFor(f.workers, lines, minLines, func(w, start, end int) {
			plan := f.plans[axis][w]
			buf := f.scratch[w][:length]
			for line := start; line < end; line++ {
				base := lineBase(axis, line, nx, ny, nz)
				for k := 0; k < length; k++ {
					buf[k] = g[base+k*stride]
				}
				if inverse {
					plan.Inverse(buf)
				} else {
					plan.Forward(buf)
				}
				for k := 0; k < length; k++ {
					g[base+k*stride] = buf[k]
				}
			}
		})
	}
}

// lineBase returns the flat index of the first element of a line along axis.
func lineBase(axis, line, nx, ny, nz int) int {
	switch axis {
	case 0:
		// line enumerates (y, z)
		return line
	case 1:
		// line enumerates (x, z)
		x, z := line/nz, line%nz
		return x*ny*nz + z
	default:
		// line enumerates (x, y)
		return line * nz
	}
}
