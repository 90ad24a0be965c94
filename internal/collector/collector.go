// Package collector fuses the results of one iteration's parallel probes
// into a single ClusterState, tolerating partial replies and distinguishing
// peers that responded at the wrong epoch from peers that didn't respond at
// all.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/decodelifter/CorfuDB/internal/connectivity"
	"github.com/decodelifter/CorfuDB/internal/transport"
)

// Collector gathers one iteration's NodeState futures into a ClusterState.
// It is constructed fresh for every iteration.
type Collector struct {
	localEndpoint connectivity.Endpoint
	futures       map[connectivity.Endpoint]<-chan transport.NodeStateResult
	heartbeat     *HeartbeatCounter
	logger        log.Logger

	wrongEpochs map[connectivity.Endpoint]connectivity.Epoch
}

// New builds a Collector over the given map of in-flight probe futures. A
// nil logger falls back to log.Root().
func New(localEndpoint connectivity.Endpoint, futures map[connectivity.Endpoint]<-chan transport.NodeStateResult, heartbeat *HeartbeatCounter, logger log.Logger) *Collector {
	if logger == nil {
		logger = log.Root()
	}
	return &Collector{
		localEndpoint: localEndpoint,
		futures:       futures,
		heartbeat:     heartbeat,
		logger:        logger,
	}
}

type rawResult struct {
	state connectivity.NodeState
	err   error
}

// CollectClusterState blocks on every probe future with an overall deadline,
// then builds a ClusterState: for every non-local peer, a CONNECTED
// NodeState is kept only if its future resolved with a matching epoch,
// otherwise an UNAVAILABLE NodeState is synthesized. The local endpoint's
// entry is always built from local observations, never from a remote reply.
//
// Invariant: the returned ClusterState has exactly one node per endpoint
// this Collector was constructed with.
func (c *Collector) CollectClusterState(ctx context.Context, deadline time.Duration, epoch connectivity.Epoch, metrics connectivity.SequencerMetrics) connectivity.ClusterState {
	resolved := c.awaitAll(ctx, deadline)

	nodes := make(map[connectivity.Endpoint]connectivity.NodeState, len(resolved)+1)
	localMatrix := make(map[connectivity.Endpoint]connectivity.ConnectionStatus, len(resolved)+1)
	wrongEpochs := make(map[connectivity.Endpoint]connectivity.Epoch)

	for peer, res := range resolved {
		if peer == c.localEndpoint {
			continue
		}

		usable := res.err == nil &&
			res.state.Connectivity.Type == connectivity.TypeConnected &&
			res.state.Connectivity.Epoch == epoch

		if usable {
			nodes[peer] = res.state
		} else {
			nodes[peer] = connectivity.NodeState{Connectivity: connectivity.Unavailable(peer)}
		}

		if wrongEpoch, ok := res.err.(transport.WrongEpochError); ok {
			wrongEpochs[peer] = connectivity.Epoch(wrongEpoch.ServerEpoch)
			c.logger.Warn("Peer answered at the wrong epoch", "peer", peer, "wantEpoch", epoch, "gotEpoch", wrongEpoch.ServerEpoch)
		} else if res.err != nil {
			c.logger.Warn("Peer probe failed", "peer", peer, "err", res.err)
		}

		if isUnreachable(res.err) {
			localMatrix[peer] = connectivity.StatusFailed
		} else {
			localMatrix[peer] = connectivity.StatusOK
		}
	}
	localMatrix[c.localEndpoint] = connectivity.StatusOK

	nodes[c.localEndpoint] = connectivity.NodeState{
		Connectivity:     connectivity.Connected(c.localEndpoint, localMatrix, epoch),
		SequencerMetrics: metrics,
		Heartbeat:        c.heartbeat.Next(epoch),
	}

	c.wrongEpochs = wrongEpochs
	c.logger.Trace("Collected cluster state", "epoch", epoch, "nodes", len(nodes), "wrongEpochs", len(wrongEpochs))
	return connectivity.ClusterState{LocalEndpoint: c.localEndpoint, Nodes: nodes}
}

// CollectWrongEpochs returns the peers whose probe in this iteration
// resolved to a WrongEpochError, mapped to the epoch they reported.
//
// Must be called after CollectClusterState; it reports the result of that
// call, not a fresh one.
func (c *Collector) CollectWrongEpochs() map[connectivity.Endpoint]connectivity.Epoch {
	return c.wrongEpochs
}

func isUnreachable(err error) bool {
	switch err.(type) {
	case transport.TimeoutError, transport.TransportError:
		return true
	default:
		return false
	}
}

// awaitAll waits for every future to settle, bounded by deadline. A future
// that neither answers nor is closed before the deadline is treated as a
// TimeoutError; this is purely defensive, since every PeerClient is expected
// to honor its own configured response timeout and settle its future first.
func (c *Collector) awaitAll(ctx context.Context, deadline time.Duration) map[connectivity.Endpoint]rawResult {
	boundedCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	type settled struct {
		peer connectivity.Endpoint
		res  rawResult
	}
	results := make(chan settled, len(c.futures))

	var wg sync.WaitGroup
	for peer, future := range c.futures {
		wg.Add(1)
		go func(peer connectivity.Endpoint, future <-chan transport.NodeStateResult) {
			defer wg.Done()
			select {
			case r, ok := <-future:
				if !ok {
					results <- settled{peer, rawResult{err: transport.TimeoutError{}}}
					return
				}
				results <- settled{peer, rawResult{state: r.State, err: r.Err}}
			case <-boundedCtx.Done():
				results <- settled{peer, rawResult{err: transport.TimeoutError{}}}
			}
		}(peer, future)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	out := make(map[connectivity.Endpoint]rawResult, len(c.futures))
	for item := range results {
		out[item.peer] = item.res
	}
	return out
}
