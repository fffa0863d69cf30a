// Package service exposes the recommendation engine to transports, adding
// result caching, request history and metrics around it.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"bookrec/internal/catalog"
	"bookrec/internal/interactions"
	"bookrec/internal/metrics"
	"bookrec/internal/recommend"
	"bookrec/pkg/database"
)

// Strategy names, used as metric labels, cache key prefixes and history tags.
const (
	StrategyByUser = "by_user"
	StrategyByItem = "by_item"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
	defaultListLimit    = 20
	maxListLimit        = 200
	statsTopItems       = 10
)

// ErrHistoryDisabled is returned by History when no history store is configured.
var ErrHistoryDisabled = errors.New("history store not configured")

// Cache is a JSON key/value cache with expiry.
type Cache interface {
	GetJSON(ctx context.Context, key string, dest any) (bool, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
}

// HistoryStore persists served recommendation lists.
type HistoryStore interface {
	SaveRecommendation(ctx context.Context, doc database.RecommendationDocument) error
	SaveLog(ctx context.Context, doc database.LogDocument) error
	History(ctx context.Context, subject string, limit int) ([]database.RecommendationDocument, error)
}

// Options configures a RecommendService. Cache and History are optional.
type Options struct {
	DefaultResults int
	CacheTTL       time.Duration
	HistoryTimeout time.Duration
	// ScoringNodes is recorded in scoring logs; 0 means local scoring.
	ScoringNodes int

	Cache   Cache
	History HistoryStore
}

// Response is a served recommendation list.
type Response struct {
	Strategy string             `json:"strategy"`
	Query    string             `json:"query"`
	N        int                `json:"n"`
	Cached   bool               `json:"cached"`
	Results  []recommend.Result `json:"results"`
}

// Stats describes the loaded data.
type Stats struct {
	CatalogItems   int                  `json:"catalog_items"`
	SimilarityRows int                  `json:"similarity_rows"`
	SimilarityK    int                  `json:"similarity_k"`
	Interactions   interactions.Summary `json:"interactions"`
}

// RecommendService coordinates the engine with cache and history.
type RecommendService struct {
	engine *recommend.Engine
	opts   Options
	logger zerolog.Logger

	statsOnce sync.Once
	stats     Stats

	pending sync.WaitGroup
}

// New returns a RecommendService over engine.
//
//nolint:gocritic // zerolog.Logger is passed by value
func New(engine *recommend.Engine, opts Options, logger zerolog.Logger) *RecommendService {
	if opts.DefaultResults <= 0 {
		opts.DefaultResults = 5
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Hour
	}
	if opts.HistoryTimeout <= 0 {
		opts.HistoryTimeout = 5 * time.Second
	}
	return &RecommendService{
		engine: engine,
		opts:   opts,
		logger: logger.With().Str("component", "service").Logger(),
	}
}

// DefaultResults is the count used when a request does not name one.
func (s *RecommendService) DefaultResults() int { return s.opts.DefaultResults }

// ForUser recommends unseen books for the user with display name name.
// refresh skips the cache lookup; the fresh result is still cached.
func (s *RecommendService) ForUser(ctx context.Context, name string, n int, refresh bool) (*Response, error) {
	return s.serve(ctx, StrategyByUser, name, n, refresh, func(ctx context.Context) ([]recommend.Result, error) {
		start := time.Now()
		results, err := s.engine.ByUserName(ctx, name, n)
		if err == nil {
			s.logScoring(name, time.Since(start))
		}
		return results, err
	})
}

// SimilarTo returns the nearest neighbors of the book titled title.
func (s *RecommendService) SimilarTo(ctx context.Context, title string, n int, refresh bool) (*Response, error) {
	return s.serve(ctx, StrategyByItem, title, n, refresh, func(ctx context.Context) ([]recommend.Result, error) {
		return s.engine.BySimilarity(ctx, title, n)
	})
}

func (s *RecommendService) serve(ctx context.Context, strategy, subject string, n int, refresh bool,
	compute func(context.Context) ([]recommend.Result, error)) (*Response, error) {
	start := time.Now()
	// The engine caps n, so requests above the cap share one cache entry.
	n = min(n, s.engine.MaxResults())
	resp := &Response{Strategy: strategy, Query: subject, N: n}
	key := cacheKey(strategy, subject, n)

	if s.opts.Cache != nil && !refresh && n > 0 {
		var cached []recommend.Result
		hit, err := s.opts.Cache.GetJSON(ctx, key, &cached)
		if err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache read failed")
		}
		metrics.RecordCache(strategy, hit)
		if hit && err == nil {
			resp.Cached = true
			resp.Results = nonNil(cached)
			s.finish(resp, start)
			return resp, nil
		}
	}

	results, err := compute(ctx)
	if err != nil {
		metrics.RecordRecommendation(strategy, outcome(err), time.Since(start))
		return nil, err
	}
	resp.Results = nonNil(results)

	if s.opts.Cache != nil {
		if err := s.opts.Cache.SetJSON(ctx, key, resp.Results, s.opts.CacheTTL); err != nil {
			s.logger.Warn().Err(err).Str("key", key).Msg("cache write failed")
		}
	}
	s.finish(resp, start)
	return resp, nil
}

func (s *RecommendService) finish(resp *Response, start time.Time) {
	elapsed := time.Since(start)
	metrics.RecordRecommendation(resp.Strategy, "ok", elapsed)
	s.logger.Debug().
		Str("strategy", resp.Strategy).
		Str("query", resp.Query).
		Int("results", len(resp.Results)).
		Bool("cached", resp.Cached).
		Dur("elapsed", elapsed).
		Msg("recommendation served")

	if s.opts.History == nil {
		return
	}
	doc := database.RecommendationDocument{
		Strategy:      resp.Strategy,
		Subject:       resp.Query,
		N:             resp.N,
		Cached:        resp.Cached,
		LatencyMS:     elapsed.Milliseconds(),
		TimestampUnix: time.Now().Unix(),
		Recommended:   make([]database.RecommendedItem, len(resp.Results)),
	}
	for i, r := range resp.Results {
		doc.Recommended[i] = database.RecommendedItem{ItemID: r.ID, Title: r.Title, Score: r.Score}
	}
	s.async(func(ctx context.Context) error {
		return s.opts.History.SaveRecommendation(ctx, doc)
	})
}

// logScoring records a by-user scoring run.
func (s *RecommendService) logScoring(name string, elapsed time.Duration) {
	if s.opts.History == nil {
		return
	}
	snap := s.engine.Snapshot()
	candidates := snap.Catalog.Len()
	if id, err := snap.Catalog.UserID(name); err == nil {
		candidates -= snap.Ratings.SeenCount(id)
	}
	doc := database.LogDocument{
		Subject:       name,
		Candidates:    candidates,
		NodeCount:     s.opts.ScoringNodes,
		LatencyMS:     elapsed.Milliseconds(),
		TimestampUnix: time.Now().Unix(),
	}
	s.async(func(ctx context.Context) error {
		return s.opts.History.SaveLog(ctx, doc)
	})
}

// async runs a history write in the background. Failures are logged only.
func (s *RecommendService) async(write func(context.Context) error) {
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		ctx, cancel := context.WithTimeout(context.Background(), s.opts.HistoryTimeout)
		defer cancel()
		if err := write(ctx); err != nil {
			metrics.HistoryWriteErrors.Inc()
			s.logger.Warn().Err(err).Msg("history write failed")
		}
	}()
}

// Wait blocks until background history writes have finished.
func (s *RecommendService) Wait() {
	s.pending.Wait()
}

// History lists the newest lists served for subject (a user name or a
// title), newest first.
func (s *RecommendService) History(ctx context.Context, subject string, limit int) ([]database.RecommendationDocument, error) {
	if s.opts.History == nil {
		return nil, ErrHistoryDisabled
	}
	if strings.TrimSpace(subject) == "" {
		return nil, fmt.Errorf("empty subject: %w", recommend.ErrNotFound)
	}
	return s.opts.History.History(ctx, subject, clampLimit(limit, defaultHistoryLimit, maxHistoryLimit))
}

// Users lists users whose name contains query.
func (s *RecommendService) Users(query string, limit int) []catalog.User {
	users := s.engine.Snapshot().Catalog.Users(query, clampLimit(limit, defaultListLimit, maxListLimit))
	if users == nil {
		return []catalog.User{}
	}
	return users
}

// SearchItems lists books whose title matches query.
func (s *RecommendService) SearchItems(query string, limit int) []catalog.Item {
	items := s.engine.Snapshot().Catalog.SearchTitles(query, clampLimit(limit, defaultListLimit, maxListLimit))
	if items == nil {
		return []catalog.Item{}
	}
	return items
}

// Stats summarizes the loaded snapshot. It is computed once.
func (s *RecommendService) Stats() Stats {
	s.statsOnce.Do(func() {
		snap := s.engine.Snapshot()
		s.stats = Stats{
			CatalogItems:   snap.Catalog.Len(),
			SimilarityRows: snap.Index.Len(),
			SimilarityK:    snap.Index.K(),
			Interactions:   snap.Ratings.Summarize(statsTopItems),
		}
	})
	return s.stats
}

func cacheKey(strategy, subject string, n int) string {
	return fmt.Sprintf("bookrec:%s:%d:%s", strategy, n, subject)
}

func outcome(err error) string {
	switch {
	case errors.Is(err, recommend.ErrNotFound):
		return "not_found"
	case errors.Is(err, recommend.ErrInvalidCount):
		return "invalid"
	default:
		return "error"
	}
}

func clampLimit(limit, def, maxLimit int) int {
	if limit <= 0 {
		return def
	}
	return min(limit, maxLimit)
}

func nonNil(rs []recommend.Result) []recommend.Result {
	if rs == nil {
		return []recommend.Result{}
	}
	return rs
}
