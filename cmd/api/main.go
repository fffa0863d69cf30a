package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"bookrec/internal/bootstrap"
	"bookrec/internal/cache"
	"bookrec/internal/config"
	"bookrec/internal/handler"
	"bookrec/internal/logging"
	"bookrec/internal/metrics"
	"bookrec/internal/service"
	"bookrec/pkg/database"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("load configuration")
	}
	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})
	logger := logging.WithComponent("api")
	base := logging.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// -------------------- ARTEFACTOS Y MOTOR --------------------

	data, err := bootstrap.Load(ctx, cfg.Data, base)
	if err != nil {
		logger.Fatal().Err(err).Msg("load artifacts")
	}
	metrics.SetDataSizes(data.Catalog.Len(), len(data.Ratings.UserIDs()))

	scorer, nodes, err := bootstrap.Scorer(cfg, data.Model, base)
	if err != nil {
		logger.Fatal().Err(err).Msg("build scorer")
	}
	if nodes > 0 {
		logger.Info().Strs("nodes", cfg.Cluster.NodeAddrs).Msg("scoring on remote nodes")
	}
	engine, err := bootstrap.Engine(cfg, data, scorer, base)
	if err != nil {
		logger.Fatal().Err(err).Msg("build engine")
	}

	// -------------------- CACHÉ E HISTORIAL (OPCIONALES) --------------------

	opts := service.Options{
		DefaultResults: cfg.Recommend.DefaultResults,
		CacheTTL:       cfg.Recommend.CacheTTL,
		ScoringNodes:   nodes,
	}
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			logger.Warn().Err(err).Msg("redis unavailable, caching disabled")
		} else {
			defer rc.Close()
			opts.Cache = rc
			logger.Info().Str("addr", cfg.Redis.Addr).Msg("redis cache enabled")
		}
	}
	if cfg.Mongo.URI != "" {
		store, err := database.Connect(ctx, cfg.Mongo.URI, cfg.Mongo.Database)
		if err != nil {
			logger.Warn().Err(err).Msg("mongo unavailable, history disabled")
		} else {
			defer store.Close(context.Background())
			opts.History = store
			logger.Info().Str("database", cfg.Mongo.Database).Msg("recommendation history enabled")
		}
	}
	svc := service.New(engine, opts, base)

	// -------------------- SERVIDOR HTTP --------------------

	srv := &http.Server{
		Addr: cfg.Server.Addr(),
		Handler: handler.NewRouter(handler.NewRecommendHandler(svc), handler.RouterConfig{
			CORSOrigins: cfg.Server.CORSOrigins,
			RateLimit:   cfg.Server.RateLimit,
		}),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("http server failed")
		}
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("http shutdown")
	}
	svc.Wait()
}
