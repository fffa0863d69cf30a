package main

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"

	"bookrec/internal/bootstrap"
	"bookrec/internal/cluster"
	"bookrec/internal/config"
	"bookrec/internal/logging"
	"bookrec/internal/model"
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
	logger := logging.WithComponent("nodo")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Leer puerto desde variable de entorno para soportar múltiples nodos
	addr := cfg.Cluster.ListenAddr
	if port := os.Getenv("PORT"); port != "" {
		addr = ":" + port
	}

	svd, err := bootstrap.LoadModel(ctx, cfg.Data, logging.Logger())
	if err != nil {
		logger.Fatal().Err(err).Msg("load model")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatal().Err(err).Str("addr", addr).Msg("listen")
	}

	node := cluster.NewNode(model.Parallel(svd, cfg.Recommend.Workers), cfg.Cluster.Timeout, logging.Logger())
	if err := node.Serve(ctx, ln); err != nil {
		logger.Fatal().Err(err).Msg("serve")
	}
	logger.Info().Msg("node stopped")
}
