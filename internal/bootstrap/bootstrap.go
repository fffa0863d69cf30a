// Package bootstrap turns configuration into a loaded recommendation
// snapshot. It is shared by the API server, the scoring node and the batch
// runner.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"bookrec/internal/artifact"
	"bookrec/internal/catalog"
	"bookrec/internal/cluster"
	"bookrec/internal/config"
	"bookrec/internal/interactions"
	"bookrec/internal/model"
	"bookrec/internal/recommend"
	"bookrec/internal/similarity"
)

// Data is everything loaded from the artifact directory.
type Data struct {
	Catalog *catalog.Catalog
	Ratings *interactions.Log
	Index   *similarity.Index
	Model   *model.SVD
}

// Sources lists the artifacts named by d.
func Sources(d config.DataConfig) []artifact.Source {
	return []artifact.Source{
		{Name: d.ItemsFile, URL: d.ItemsURL},
		{Name: d.UsersFile, URL: d.UsersURL},
		{Name: d.RatingsFile, URL: d.RatingsURL},
		{Name: d.SimilarityFile, URL: d.SimilarityURL},
		{Name: d.ModelFile, URL: d.ModelURL},
	}
}

// Load fetches missing artifacts and loads all of them.
//
//nolint:gocritic // zerolog.Logger is passed by value
func Load(ctx context.Context, d config.DataConfig, logger zerolog.Logger) (*Data, error) {
	start := time.Now()
	paths, err := artifact.NewFetcher(d.Dir, d.FetchTimeout, logger).EnsureAll(ctx, Sources(d))
	if err != nil {
		return nil, err
	}

	cat, err := catalog.Load(paths[d.ItemsFile], paths[d.UsersFile])
	if err != nil {
		return nil, err
	}
	ratings, err := interactions.LoadCSV(paths[d.RatingsFile])
	if err != nil {
		return nil, err
	}
	idx, err := similarity.Load(paths[d.SimilarityFile])
	if err != nil {
		return nil, fmt.Errorf("load similarity: %w", err)
	}
	if err := idx.CheckRows(cat.Len()); err != nil {
		return nil, fmt.Errorf("similarity does not match catalog: %w", err)
	}
	svd, err := model.Load(paths[d.ModelFile])
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}

	logger.Info().
		Str("component", "bootstrap").
		Int("items", cat.Len()).
		Int("rating_events", ratings.Len()).
		Int("similarity_rows", idx.Len()).
		Int("similarity_k", idx.K()).
		Dur("elapsed", time.Since(start)).
		Msg("artifacts loaded")

	return &Data{Catalog: cat, Ratings: ratings, Index: idx, Model: svd}, nil
}

// LoadModel fetches and loads only the model artifact.
//
//nolint:gocritic // zerolog.Logger is passed by value
func LoadModel(ctx context.Context, d config.DataConfig, logger zerolog.Logger) (*model.SVD, error) {
	path, err := artifact.NewFetcher(d.Dir, d.FetchTimeout, logger).
		Ensure(ctx, artifact.Source{Name: d.ModelFile, URL: d.ModelURL})
	if err != nil {
		return nil, err
	}
	svd, err := model.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load model: %w", err)
	}
	return svd, nil
}

// Scorer builds the batch scorer for m: the remote cluster when node
// addresses are configured, otherwise a local worker pool. It also returns
// the number of remote nodes in use.
//
//nolint:gocritic // zerolog.Logger is passed by value
func Scorer(cfg *config.Config, m *model.SVD, logger zerolog.Logger) (model.BatchScorer, int, error) {
	local := model.Parallel(m, cfg.Recommend.Workers)
	if len(cfg.Cluster.NodeAddrs) == 0 {
		return local, 0, nil
	}

	opts := cluster.Options{
		Timeout:          cfg.Cluster.Timeout,
		FailureThreshold: cfg.Cluster.FailureThreshold,
		OpenTimeout:      cfg.Cluster.OpenTimeout,
	}
	if cfg.Cluster.LocalFallback {
		opts.Fallback = local
	}
	s, err := cluster.NewScorer(cfg.Cluster.NodeAddrs, opts, logger)
	if err != nil {
		return nil, 0, err
	}
	return s, s.Nodes(), nil
}

// Engine assembles the recommendation engine over data.
//
//nolint:gocritic // zerolog.Logger is passed by value
func Engine(cfg *config.Config, data *Data, scorer model.BatchScorer, logger zerolog.Logger) (*recommend.Engine, error) {
	return recommend.NewEngine(&recommend.Snapshot{
		Catalog: data.Catalog,
		Ratings: data.Ratings,
		Index:   data.Index,
		Scorer:  scorer,
	}, recommend.Options{MaxResults: cfg.Recommend.MaxResults}, logger)
}
