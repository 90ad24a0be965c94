// Package poller runs bounded polling rounds of parallel peer probes with
// adaptive per-peer timeouts, fusing the results of each round's iterations
// into a single PollReport. It is the Go rewrite of FailureDetector.java:
// the same round/iteration decomposition, the same period state machine.
package poller

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/log"

	"github.com/decodelifter/CorfuDB/internal/aggregator"
	"github.com/decodelifter/CorfuDB/internal/collector"
	"github.com/decodelifter/CorfuDB/internal/connectivity"
	"github.com/decodelifter/CorfuDB/internal/transport"
)

// Poller is NOT safe for concurrent use: at most one Poll call may be
// in flight on an instance at a time, the same single-threaded contract the
// Java original documents. Enforcing that is the caller's job.
type Poller struct {
	config        Config
	period        time.Duration
	localEndpoint connectivity.Endpoint
	heartbeat     *collector.HeartbeatCounter
	aggregator    *aggregator.Aggregator
	logger        log.Logger
}

// New constructs a Poller for localEndpoint. period starts at
// config.InitPeriodDuration.
func New(localEndpoint connectivity.Endpoint, config Config) (*Poller, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	logger := config.Logger
	if logger == nil {
		logger = log.Root()
	}
	return &Poller{
		config:        config,
		period:        config.InitPeriodDuration,
		localEndpoint: localEndpoint,
		heartbeat:     collector.NewHeartbeatCounter(),
		aggregator:    aggregator.New(),
		logger:        logger.New("endpoint", localEndpoint),
	}, nil
}

// Period returns the current adaptive per-peer response timeout.
func (p *Poller) Period() time.Duration {
	return p.period
}

// Poll resolves a client per server in layout, sets each to the current
// period, then runs one bounded round. Side effect: mutates p.period and
// the response timeout of every client Runtime hands back.
func (p *Poller) Poll(ctx context.Context, layout Layout, runtime Runtime, metrics connectivity.SequencerMetrics) (PollReport, error) {
	if p.config.FailureThreshold < 1 {
		return PollReport{}, &connectivity.InvalidConfigurationError{Reason: "failureThreshold must be >= 1"}
	}

	allServers := layout.AllServers()
	epoch := layout.Epoch()

	clients := make(map[connectivity.Endpoint]transport.PeerClient, len(allServers))
	for _, s := range allServers {
		client := runtime.GetRouter(s)
		if client == nil {
			p.logger.Warn("No PeerClient for server in layout", "server", s)
			continue
		}
		client.SetTimeoutResponse(p.period)
		clients[s] = client
	}

	p.logger.Debug("Polling round starting", "epoch", epoch, "servers", len(allServers), "period", p.period)
	report := p.pollRound(ctx, epoch, allServers, clients, metrics, layout)
	p.logger.Debug("Polling round finished", "epoch", epoch, "wrongEpochs", len(report.WrongEpochs), "period", p.period)
	return report, nil
}

// pollRound executes failureThreshold iterations, then aggregates.
func (p *Poller) pollRound(ctx context.Context, epoch connectivity.Epoch, allServers []connectivity.Endpoint,
	clients map[connectivity.Endpoint]transport.PeerClient, metrics connectivity.SequencerMetrics, layout Layout) PollReport {

	reports := make([]PollReport, 0, p.config.FailureThreshold)

	for i := 0; i < p.config.FailureThreshold; i++ {
		t0 := time.Now()
		report := p.pollIteration(ctx, allServers, clients, epoch, metrics, layout)
		reports = append(reports, report)

		p.logger.Trace("Poll iteration complete", "iteration", i, "epoch", epoch, "failed", len(report.FailedNodes()))

		interval := p.modifyIterationTimeouts(clients, report, time.Since(t0))

		select {
		case <-ctx.Done():
			return p.finalizeRound(epoch, layout, reports, clients)
		case <-time.After(interval):
		}
	}

	return p.finalizeRound(epoch, layout, reports, clients)
}

// pollIteration fans out one probe per server, joins on the collector's
// bounded wait, and returns this iteration's PollReport.
func (p *Poller) pollIteration(ctx context.Context, allServers []connectivity.Endpoint,
	clients map[connectivity.Endpoint]transport.PeerClient, epoch connectivity.Epoch,
	metrics connectivity.SequencerMetrics, layout Layout) PollReport {

	futures := make(map[connectivity.Endpoint]<-chan transport.NodeStateResult, len(allServers))
	for _, s := range allServers {
		client, ok := clients[s]
		if !ok {
			continue
		}
		futures[s] = safeSendNodeStateRequest(client, ctx, epoch)
	}

	coll := collector.New(p.localEndpoint, futures, p.heartbeat, p.logger)
	clusterState := coll.CollectClusterState(ctx, p.period, epoch, metrics)

	return PollReport{
		PollEpoch:         epoch,
		ResponsiveServers: layout.ActiveLayoutServers(),
		WrongEpochs:       coll.CollectWrongEpochs(),
		ClusterState:      clusterState,
	}
}

// safeSendNodeStateRequest calls client.SendNodeStateRequest, turning a
// panic from the call itself (never from the future it returns) into an
// already-closed, already-failed future - the Go equivalent of the Java
// original wrapping a synchronous exception in an already-failed future.
func safeSendNodeStateRequest(client transport.PeerClient, ctx context.Context, epoch connectivity.Epoch) (out <-chan transport.NodeStateResult) {
	defer func() {
		if r := recover(); r != nil {
			ch := make(chan transport.NodeStateResult, 1)
			ch <- transport.NodeStateResult{Err: transport.TransportError{Err: fmt.Errorf("panic requesting node state: %v", r)}}
			close(ch)
			out = ch
		}
	}()
	return client.SendNodeStateRequest(ctx, epoch)
}

// modifyIterationTimeouts implements the period escalation rule: an
// iteration with at least one failed node pushes period toward the
// ceiling and applies the new value to every reachable client; a clean
// iteration leaves period untouched and returns the initial poll interval.
func (p *Poller) modifyIterationTimeouts(clients map[connectivity.Endpoint]transport.PeerClient, report PollReport, elapsed time.Duration) time.Duration {
	if len(report.FailedNodes()) == 0 {
		return p.config.InitialPollInterval
	}

	pollInterval := maxDuration(p.config.InitialPollInterval, p.period-elapsed)
	p.period = minDuration(p.config.MaxPeriodDuration, p.period+p.config.PeriodDelta)
	tuneTimeouts(clients, report.AllReachableNodes(), p.period)

	p.logger.Warn("Failed nodes observed this iteration, escalating period", "failed", report.FailedNodes(), "period", p.period)
	return pollInterval
}

// finalizeRound implements the post-aggregation step: collapse the round's
// wrong-epoch and reachable/failed sets, decay the period once, retune
// every client, and fuse the round's ClusterStates with the aggregator.
func (p *Poller) finalizeRound(epoch connectivity.Epoch, layout Layout, reports []PollReport,
	clients map[connectivity.Endpoint]transport.PeerClient) PollReport {

	wrongEpochsAggregated := make(map[connectivity.Endpoint]connectivity.Epoch)
	connectedAggregated := make(map[connectivity.Endpoint]struct{})
	failedAggregated := make(map[connectivity.Endpoint]struct{})

	for _, report := range reports {
		for e, serverEpoch := range report.WrongEpochs {
			wrongEpochsAggregated[e] = serverEpoch
		}
		for _, e := range report.ReachableNodes() {
			delete(wrongEpochsAggregated, e)
			connectedAggregated[e] = struct{}{}
		}
		for _, e := range report.FailedNodes() {
			failedAggregated[e] = struct{}{}
		}
	}
	for e := range connectedAggregated {
		delete(failedAggregated, e)
	}

	allConnected := unionEndpoints(connectedAggregated, wrongEpochsAggregated)
	failed := endpointSlice(failedAggregated)

	p.period = maxDuration(p.config.InitPeriodDuration, p.period-p.config.PeriodDelta)
	tuneTimeouts(clients, allConnected, p.period)
	tuneTimeouts(clients, failed, p.config.MaxPeriodDuration)

	if len(failed) > 0 {
		p.logger.Warn("Round finished with failed nodes", "failed", failed, "period", p.period)
	} else {
		p.logger.Trace("Round finished clean, period decayed", "period", p.period)
	}

	states := make([]connectivity.ClusterState, 0, len(reports))
	for _, report := range reports {
		states = append(states, report.ClusterState)
	}

	return PollReport{
		PollEpoch:         epoch,
		ResponsiveServers: layout.ActiveLayoutServers(),
		WrongEpochs:       wrongEpochsAggregated,
		ClusterState:      p.aggregator.Aggregate(p.localEndpoint, states),
	}
}

func tuneTimeouts(clients map[connectivity.Endpoint]transport.PeerClient, endpoints []connectivity.Endpoint, timeout time.Duration) {
	for _, e := range endpoints {
		if client, ok := clients[e]; ok {
			client.SetTimeoutResponse(timeout)
		}
	}
}

func unionEndpoints(a map[connectivity.Endpoint]struct{}, b map[connectivity.Endpoint]connectivity.Epoch) []connectivity.Endpoint {
	out := make([]connectivity.Endpoint, 0, len(a)+len(b))
	seen := make(map[connectivity.Endpoint]struct{}, len(a)+len(b))
	for e := range a {
		seen[e] = struct{}{}
		out = append(out, e)
	}
	for e := range b {
		if _, ok := seen[e]; !ok {
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}

func endpointSlice(s map[connectivity.Endpoint]struct{}) []connectivity.Endpoint {
	out := make([]connectivity.Endpoint, 0, len(s))
	for e := range s {
		out = append(out, e)
	}
	return out
}

func minDuration(a, b time.Duration) time.Duration {
	if a < b {
		return a
	}
	return b
}

func maxDuration(a, b time.Duration) time.Duration {
	if a > b {
		return a
	}
	return b
}
