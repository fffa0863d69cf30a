// Package model defines the rating predictor contract and the latent-factor
// model that implements it.
package model

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Scorer estimates the rating a user would give an item.
// Implementations must be safe for concurrent use.
type Scorer interface {
	Estimate(userID, itemID int) float64
}

// BatchScorer estimates ratings for many items at once. The returned slice
// is aligned with itemIDs.
type BatchScorer interface {
	EstimateBatch(ctx context.Context, userID int, itemIDs []int) ([]float64, error)
}

// Parallel adapts a Scorer to a BatchScorer that spreads the candidates over
// a fixed number of workers.
func Parallel(s Scorer, workers int) BatchScorer {
	if workers < 1 {
		workers = 1
	}
	return &parallel{scorer: s, workers: workers}
}

type parallel struct {
	scorer  Scorer
	workers int
}

// chunkSize keeps per-goroutine work large enough to beat scheduling cost.
const chunkSize = 512

func (p *parallel) EstimateBatch(ctx context.Context, userID int, itemIDs []int) ([]float64, error) {
	out := make([]float64, len(itemIDs))
	if p.workers == 1 || len(itemIDs) <= chunkSize {
		for i, id := range itemIDs {
			out[i] = p.scorer.Estimate(userID, id)
		}
		return out, ctx.Err()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.workers)
	for start := 0; start < len(itemIDs); start += chunkSize {
		start := start
		end := min(start+chunkSize, len(itemIDs))
		g.Go(func() error {
			for i := start; i < end; i++ {
				if i%64 == 0 && ctx.Err() != nil {
					return ctx.Err()
				}
				out[i] = p.scorer.Estimate(userID, itemIDs[i])
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
