package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGridSearchFindsMinimum(t *testing.T) {
	g := NewGridSearch(
		[]string{"x", "y"},
		[][]float64{Linspace(-2, 2, 41), Linspace(0, 1, 11)},
	)
	best, val, err := g.Search(context.Background(), func(p map[string]float64) (float64, error) {
		return (p["x"]-0.7)*(p["x"]-0.7) + (p["y"]-0.3)*(p["y"]-0.3), nil
	})
	require.NoError(t, err)
	assert.InDelta(t, 0.7, best["x"], 1e-9)
	assert.InDelta(t, 0.3, best["y"], 1e-9)
	assert.InDelta(t, 0, val, 1e-12)
}

func TestGridSearchSkipsFailures(t *testing.T) {
	g := NewGridSearch([]string{"a"}, [][]float64{{1, 2, 3, 4}})
	best, val, err := g.Search(context.Background(), func(p map[string]float64) (float64, error) {
		switch p["a"] {
		case 1:
			return math.NaN(), nil
		case 2:
			return 0, errors.New("bad point")
		}
		return p["a"], nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3.0, best["a"])
	assert.Equal(t, 3.0, val)
}

func TestGridSearchNoCandidate(t *testing.T) {
	g := NewGridSearch([]string{"a"}, [][]float64{{1, 2}})
	_, _, err := g.Search(context.Background(), func(map[string]float64) (float64, error) {
		return math.Inf(1), nil
	})
	assert.ErrorIs(t, err, ErrNoCandidate)
}

func TestGridSearchCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	g := NewGridSearch([]string{"a"}, [][]float64{{1, 2}})
	_, _, err := g.Search(ctx, func(map[string]float64) (float64, error) { return 0, nil })
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLinspace(t *testing.T) {
	v := Linspace(1, 2, 5)
	assert.Equal(t, []float64{1, 1.25, 1.5, 1.75, 2}, v)
	assert.Equal(t, []float64{3}, Linspace(3, 4, 1))
}
