// Package recommend implements the two recommendation strategies.
//
// ByUser ranks the items a user has not rated by the predicted rating of the
// latent-factor model. BySimilarity returns the precomputed nearest
// neighbors of an item. Both are pure functions of the Snapshot they were
// built with: the Engine keeps no per-request state and is safe for
// concurrent use.
package recommend

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/rs/zerolog"

	"bookrec/internal/catalog"
	"bookrec/internal/interactions"
	"bookrec/internal/model"
	"bookrec/internal/similarity"
)

var (
	// ErrNotFound is returned when a user name, title or similarity row does
	// not resolve.
	ErrNotFound = errors.New("not found")

	// ErrInvalidCount is returned for a non-positive result count.
	ErrInvalidCount = errors.New("count must be positive")
)

// DefaultMaxResults caps n when Options.MaxResults is unset.
const DefaultMaxResults = 50

// Snapshot is the loaded, read-only data the engine ranks over.
type Snapshot struct {
	Catalog *catalog.Catalog
	Ratings *interactions.Log
	Index   *similarity.Index
	Scorer  model.BatchScorer
}

// Options tunes the engine.
type Options struct {
	// MaxResults clamps the requested count.
	MaxResults int
}

// Result is one recommended item with its ranking score: the predicted
// rating for ByUser, the similarity score for BySimilarity.
type Result struct {
	catalog.Item
	Score float64 `json:"score"`
}

// Engine produces ranked recommendations from a Snapshot.
type Engine struct {
	snap       *Snapshot
	maxResults int
	logger     zerolog.Logger
}

// NewEngine validates the snapshot and builds an Engine.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewEngine(snap *Snapshot, opts Options, logger zerolog.Logger) (*Engine, error) {
	switch {
	case snap == nil:
		return nil, errors.New("nil snapshot")
	case snap.Catalog == nil:
		return nil, errors.New("snapshot: nil catalog")
	case snap.Ratings == nil:
		return nil, errors.New("snapshot: nil interaction log")
	case snap.Index == nil:
		return nil, errors.New("snapshot: nil similarity index")
	case snap.Scorer == nil:
		return nil, errors.New("snapshot: nil scorer")
	}
	if opts.MaxResults <= 0 {
		opts.MaxResults = DefaultMaxResults
	}
	return &Engine{
		snap:       snap,
		maxResults: opts.MaxResults,
		logger:     logger.With().Str("component", "recommend").Logger(),
	}, nil
}

// Snapshot returns the data the engine ranks over.
func (e *Engine) Snapshot() *Snapshot { return e.snap }

// MaxResults returns the cap applied to every requested count.
func (e *Engine) MaxResults() int { return e.maxResults }

func (e *Engine) count(n int) (int, error) {
	if n <= 0 {
		return 0, fmt.Errorf("n=%d: %w", n, ErrInvalidCount)
	}
	return min(n, e.maxResults), nil
}

// ByUserName resolves a display name and delegates to ByUser. Unknown names
// fail with ErrNotFound.
func (e *Engine) ByUserName(ctx context.Context, name string, n int) ([]Result, error) {
	userID, err := e.snap.Catalog.UserID(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return e.ByUser(ctx, userID, n)
}

// ByUser returns up to n items the user has not rated, ordered by
// descending predicted rating. Equal predictions are ordered by ascending
// item id. A user without any rating events is ranked over the whole
// catalog.
func (e *Engine) ByUser(ctx context.Context, userID, n int) ([]Result, error) {
	n, err := e.count(n)
	if err != nil {
		return nil, err
	}

	all := e.snap.Catalog.ItemIDs()
	candidates := all[:0]
	for _, id := range all {
		if !e.snap.Ratings.Seen(userID, id) {
			candidates = append(candidates, id)
		}
	}
	if len(candidates) == 0 {
		return []Result{}, nil
	}
	if !e.snap.Ratings.HasUser(userID) {
		e.logger.Debug().Int("user_id", userID).Msg("user has no ratings, ranking full catalog")
	}

	scores, err := e.snap.Scorer.EstimateBatch(ctx, userID, candidates)
	if err != nil {
		return nil, fmt.Errorf("estimate ratings: %w", err)
	}
	if len(scores) != len(candidates) {
		return nil, fmt.Errorf("estimate ratings: got %d scores for %d candidates", len(scores), len(candidates))
	}

	ranked := make([]Result, len(candidates))
	for i, id := range candidates {
		it, _ := e.snap.Catalog.Item(id)
		ranked[i] = Result{Item: it, Score: scores[i]}
	}
	sort.Slice(ranked, func(i, j int) bool { return ranksBefore(ranked[i], ranked[j]) })

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// ranksBefore orders by descending score, then ascending item id. NaN
// scores rank after every number so a bad estimate cannot break the order.
func ranksBefore(a, b Result) bool {
	aNaN, bNaN := math.IsNaN(a.Score), math.IsNaN(b.Score)
	switch {
	case aNaN != bNaN:
		return bNaN
	case !aNaN && a.Score != b.Score:
		return a.Score > b.Score
	}
	return a.ID < b.ID
}

// BySimilarity returns up to min(n, K) neighbors of the first item titled
// title, in similarity table order.
func (e *Engine) BySimilarity(_ context.Context, title string, n int) ([]Result, error) {
	n, err := e.count(n)
	if err != nil {
		return nil, err
	}

	row, err := e.snap.Catalog.RowOf(title)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	neighbors, err := e.snap.Index.Neighbors(row, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotFound, err)
	}

	out := make([]Result, 0, len(neighbors))
	for _, nb := range neighbors {
		it, err := e.snap.Catalog.ItemAt(nb.Row)
		if err != nil {
			return nil, fmt.Errorf("%w: neighbor of row %d: %w", ErrNotFound, row, err)
		}
		out = append(out, Result{Item: it, Score: nb.Score})
	}
	return out, nil
}
