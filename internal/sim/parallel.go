package sim

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/p3md/internal/dynamo"
)

// Factory builds a fully independent simulator for one replica seed.
type Factory func(seed uint64) (*Simulator, error)

// Ensemble runs independent replicas that differ only in their seed.
type Ensemble struct {
	build     Factory
	numRuns   int
	seedStart uint64
	parallel  int
}

// NewEnsemble runs numRuns replicas with seeds seedStart, seedStart+1, ...
// at most parallel at a time (0 means all at once).
func NewEnsemble(build Factory, numRuns int, seedStart uint64, parallel int) *Ensemble {
	return &Ensemble{build: build, numRuns: numRuns, seedStart: seedStart, parallel: parallel}
}

// Run returns one result per replica in seed order. The first replica error
// cancels the others.
func (e *Ensemble) Run(ctx context.Context) ([]*dynamo.Result, error) {
	results := make([]*dynamo.Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	if e.parallel > 0 {
		g.SetLimit(e.parallel)
	}
	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			seed := e.seedStart + uint64(idx)
			s, err := e.build(seed)
			if err != nil {
				return fmt.Errorf("replica %d (seed %d): %w", idx, seed, err)
			}
			res, err := s.Run(ctx)
			results[idx] = res
			if err != nil {
				return fmt.Errorf("replica %d (seed %d): %w", idx, seed, err)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
