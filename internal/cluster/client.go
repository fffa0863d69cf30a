package cluster

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/rs/zerolog"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/sync/errgroup"

	"bookrec/internal/metrics"
	"bookrec/internal/model"
	"bookrec/pkg/network"
)

// Options configures the cluster Scorer.
type Options struct {
	// Timeout bounds one round trip to a node.
	Timeout time.Duration

	// FailureThreshold is the number of consecutive failures that opens a
	// node's circuit.
	FailureThreshold uint32

	// OpenTimeout is how long an open circuit rejects calls.
	OpenTimeout time.Duration

	// Fallback scores a chunk locally when its node fails. Nil makes node
	// failures fatal to the batch.
	Fallback model.BatchScorer
}

type node struct {
	addr string
	cb   *gobreaker.CircuitBreaker[[]float64]
}

// Scorer is a model.BatchScorer backed by remote scoring nodes.
type Scorer struct {
	nodes    []*node
	timeout  time.Duration
	fallback model.BatchScorer
	logger   zerolog.Logger
}

// NewScorer builds a Scorer for the given node addresses.
//
//nolint:gocritic // zerolog.Logger is passed by value
func NewScorer(addrs []string, opts Options, logger zerolog.Logger) (*Scorer, error) {
	if len(addrs) == 0 && opts.Fallback == nil {
		return nil, errors.New("cluster: no nodes and no fallback")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.FailureThreshold == 0 {
		opts.FailureThreshold = 3
	}
	if opts.OpenTimeout <= 0 {
		opts.OpenTimeout = 30 * time.Second
	}

	s := &Scorer{
		timeout:  opts.Timeout,
		fallback: opts.Fallback,
		logger:   logger.With().Str("component", "cluster").Logger(),
	}
	for _, addr := range addrs {
		threshold := opts.FailureThreshold
		log := s.logger
		s.nodes = append(s.nodes, &node{
			addr: addr,
			cb: gobreaker.NewCircuitBreaker[[]float64](gobreaker.Settings{
				Name:    addr,
				Timeout: opts.OpenTimeout,
				ReadyToTrip: func(counts gobreaker.Counts) bool {
					return counts.ConsecutiveFailures >= threshold
				},
				OnStateChange: func(name string, from, to gobreaker.State) {
					log.Warn().Str("node", name).Str("from", from.String()).Str("to", to.String()).
						Msg("node circuit changed state")
				},
			}),
		})
	}
	return s, nil
}

// Nodes returns the number of configured nodes.
func (s *Scorer) Nodes() int { return len(s.nodes) }

// EstimateBatch implements model.BatchScorer.
func (s *Scorer) EstimateBatch(ctx context.Context, userID int, itemIDs []int) ([]float64, error) {
	if len(s.nodes) == 0 {
		return s.fallback.EstimateBatch(ctx, userID, itemIDs)
	}

	out := make([]float64, len(itemIDs))
	g, ctx := errgroup.WithContext(ctx)
	for i, chunk := range split(len(itemIDs), len(s.nodes)) {
		if chunk.start == chunk.end {
			continue
		}
		chunk := chunk
		n := s.nodes[i]
		ids := itemIDs[chunk.start:chunk.end]
		g.Go(func() error {
			start := time.Now()
			est, err := n.cb.Execute(func() ([]float64, error) {
				return s.send(ctx, n.addr, userID, ids)
			})
			if err != nil {
				if s.fallback == nil {
					metrics.RecordNodeBatch(n.addr, "error", time.Since(start))
					return fmt.Errorf("node %s: %w", n.addr, err)
				}
				metrics.RecordNodeBatch(n.addr, "fallback", time.Since(start))
				s.logger.Warn().Err(err).Str("node", n.addr).Int("items", len(ids)).
					Msg("node failed, scoring chunk locally")
				if est, err = s.fallback.EstimateBatch(ctx, userID, ids); err != nil {
					return err
				}
			} else {
				metrics.RecordNodeBatch(n.addr, "ok", time.Since(start))
			}
			copy(out[chunk.start:chunk.end], est)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Scorer) send(ctx context.Context, addr string, userID int, ids []int) ([]float64, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	if err := network.SetDeadline(conn, s.timeout); err != nil {
		return nil, err
	}

	if err := network.Send(conn, network.TaskRequest{UserID: userID, ItemIDs: ids}); err != nil {
		return nil, fmt.Errorf("send task: %w", err)
	}
	var resp network.TaskResponse
	if err := network.Receive(conn, &resp); err != nil {
		return nil, fmt.Errorf("receive response: %w", err)
	}
	if resp.Err != "" {
		return nil, errors.New(resp.Err)
	}
	if len(resp.Estimates) != len(ids) {
		return nil, fmt.Errorf("got %d estimates for %d items", len(resp.Estimates), len(ids))
	}
	return resp.Estimates, nil
}

type span struct{ start, end int }

// split divides n items into parts contiguous spans whose sizes differ by at
// most one.
func split(n, parts int) []span {
	out := make([]span, parts)
	base, extra := n/parts, n%parts
	start := 0
	for i := range out {
		size := base
		if i < extra {
			size++
		}
		out[i] = span{start, start + size}
		start += size
	}
	return out
}
