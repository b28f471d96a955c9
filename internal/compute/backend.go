package compute

import (
	"fmt"

	"github.com/mjibson/go-dsp/fft"
	"gonum.org/v1/gonum/dsp/fourier"
)

// Line transforms complex sequences of one fixed length in place. A Line
// holds scratch space and must not be shared between goroutines.
type Line interface {
	Forward(x []complex128)
	// Inverse is unnormalized: Forward followed by Inverse multiplies by n.
	Inverse(x []complex128)
}

type Backend interface {
	Name() string
	Available() bool
	NewLine(n int) Line
}

func Backends() []string { return []string{"gonum", "dsp"} }

// Lookup returns the named backend. "auto" and "" pick AutoSelectBackend.
func Lookup(name string) (Backend, error) {
	switch name {
	case "", "auto":
		return AutoSelectBackend(), nil
	case "gonum":
		return GonumBackend{}, nil
	case "dsp":
		return DSPBackend{}, nil
	default:
		return nil, fmt.Errorf("unknown fft backend: %s (available: %v)", name, Backends())
	}
}

func AutoSelectBackend() Backend {
	return GonumBackend{}
}

// GonumBackend wraps gonum's fftpack port; it handles any length.
type GonumBackend struct{}

func (GonumBackend) Name() string    { return "gonum" }
func (GonumBackend) Available() bool { return true }

func (GonumBackend) NewLine(n int) Line {
	return &gonumLine{fft: fourier.NewCmplxFFT(n)}
}

type gonumLine struct {
	fft *fourier.CmplxFFT
}

func (l *gonumLine) Forward(x []complex128) { l.fft.Coefficients(x, x) }
func (l *gonumLine) Inverse(x []complex128) { l.fft.Sequence(x, x) }

// DSPBackend wraps go-dsp, radix-2 for powers of two and Bluestein otherwise.
type DSPBackend struct{}

func (DSPBackend) Name() string    { return "dsp" }
func (DSPBackend) Available() bool { return true }

func (DSPBackend) NewLine(n int) Line { return dspLine{n: float64(n)} }

type dspLine struct {
	n float64
}

func (l dspLine) Forward(x []complex128) { copy(x, fft.FFT(x)) }

func (l dspLine) Inverse(x []complex128) {
	y := fft.IFFT(x)
	s := complex(l.n, 0)
	for i := range y {
		x[i] = y[i] * s
	}
}
