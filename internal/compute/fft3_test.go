package compute

import (
	"math"
	"math/cmplx"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomGrid(n int, seed uint64) []complex128 {
	rng := rand.New(rand.NewPCG(seed, 2))
	g := make([]complex128, n)
	for i := range g {
		g[i] = complex(rng.NormFloat64(), rng.NormFloat64())
	}
	return g
}

func naiveDFT3(g []complex128, n [3]int) []complex128 {
	out := make([]complex128, len(g))
	for kx := 0; kx < n[0]; kx++ {
		for ky := 0; ky < n[1]; ky++ {
			for kz := 0; kz < n[2]; kz++ {
				var s complex128
				for x := 0; x < n[0]; x++ {
					for y := 0; y < n[1]; y++ {
						for z := 0; z < n[2]; z++ {
							ph := -2 * math.Pi * (float64(kx*x)/float64(n[0]) + float64(ky*y)/float64(n[1]) + float64(kz*z)/float64(n[2]))
							s += g[(x*n[1]+y)*n[2]+z] * cmplx.Exp(complex(0, ph))
						}
					}
				}
				out[(kx*n[1]+ky)*n[2]+kz] = s
			}
		}
	}
	return out
}

func TestFFT3MatchesNaiveDFT(t *testing.T) {
	n := [3]int{4, 3, 5}
	for _, name := range Backends() {
		b, err := Lookup(name)
		require.NoError(t, err)

		g := randomGrid(60, 1)
		want := naiveDFT3(g, n)

		f := NewFFT3(b, n, 2)
		f.Forward(g)
		for i := range g {
			assert.InDelta(t, 0, cmplx.Abs(g[i]-want[i]), 1e-9, "%s index %d", name, i)
		}
	}
}

func TestFFT3RoundTrip(t *testing.T) {
	n := [3]int{8, 6, 10}
	for _, name := range Backends() {
		b, err := Lookup(name)
		require.NoError(t, err)

		orig := randomGrid(8*6*10, 3)
		g := append([]complex128(nil), orig...)

		f := NewFFT3(b, n, 4)
		f.Forward(g)
		f.Inverse(g)

		scale := complex(float64(f.Size()), 0)
		for i := range g {
			assert.InDelta(t, 0, cmplx.Abs(g[i]/scale-orig[i]), 1e-10, "%s index %d", name, i)
		}
	}
}

func TestBackendsAgree(t *testing.T) {
	n := [3]int{16, 12, 16}
	orig := randomGrid(16*12*16, 9)

	a := append([]complex128(nil), orig...)
	b := append([]complex128(nil), orig...)
	NewFFT3(GonumBackend{}, n, 3).Forward(a)
	NewFFT3(DSPBackend{}, n, 1).Forward(b)

	for i := range a {
		assert.InDelta(t, 0, cmplx.Abs(a[i]-b[i]), 1e-8)
	}
}

func TestLookupUnknown(t *testing.T) {
	_, err := Lookup("fftw")
	assert.Error(t, err)

	b, err := Lookup("auto")
	require.NoError(t, err)
	assert.Equal(t, "gonum", b.Name())
	assert.True(t, b.Available())
}
