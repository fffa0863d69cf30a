// Package cluster distributes rating estimation over scoring nodes.
//
// A Node serves TaskRequests over TCP with a local model. The Scorer client
// splits a candidate list into one contiguous chunk per node, scores the
// chunks concurrently and stitches the estimates back in candidate order.
package cluster

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/rs/zerolog"

	"bookrec/internal/model"
	"bookrec/pkg/network"
)

// Node answers scoring tasks with a local BatchScorer.
type Node struct {
	scorer  model.BatchScorer
	timeout time.Duration
	logger  zerolog.Logger
}

// NewNode builds a Node. timeout bounds each connection; zero disables it.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewNode(scorer model.BatchScorer, timeout time.Duration, logger zerolog.Logger) *Node {
	return &Node{
		scorer:  scorer,
		timeout: timeout,
		logger:  logger.With().Str("component", "node").Logger(),
	}
}

// Serve accepts connections on ln until ctx is canceled. It closes ln.
func (n *Node) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	n.logger.Info().Str("addr", ln.Addr().String()).Msg("scoring node listening")
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return err
			}
			n.logger.Warn().Err(err).Msg("accept failed")
			continue
		}
		go n.handle(ctx, conn)
	}
}

func (n *Node) handle(ctx context.Context, conn net.Conn) {
	defer conn.Close()
	if err := network.SetDeadline(conn, n.timeout); err != nil {
		n.logger.Warn().Err(err).Msg("set deadline")
		return
	}

	var req network.TaskRequest
	if err := network.Receive(conn, &req); err != nil {
		n.logger.Warn().Err(err).Msg("receive task")
		return
	}

	start := time.Now()
	var resp network.TaskResponse
	estimates, err := n.scorer.EstimateBatch(ctx, req.UserID, req.ItemIDs)
	if err != nil {
		resp.Err = err.Error()
	} else {
		resp.Estimates = estimates
	}

	n.logger.Debug().
		Int("user_id", req.UserID).
		Int("items", len(req.ItemIDs)).
		Dur("elapsed", time.Since(start)).
		Msg("task scored")

	if err := network.Send(conn, resp); err != nil {
		n.logger.Warn().Err(err).Msg("send response")
	}
}
