// Package compute provides the FFT backends used by the mesh solver.
//
// Two backends are available:
//
//   - gonum: fftpack port from gonum.org/v1/gonum/dsp/fourier (default)
//   - dsp: github.com/mjibson/go-dsp, radix-2 or Bluestein
//
// FFT3 builds a separable three-dimensional transform on top of either:
//
//	f := compute.NewFFT3(compute.AutoSelectBackend(), [3]int{32, 32, 32}, 0)
//	f.Forward(grid)
//	f.Inverse(grid) // grid is now scaled by f.Size()
package compute
