package poller

import (
	"github.com/decodelifter/CorfuDB/internal/connectivity"
	"github.com/decodelifter/CorfuDB/internal/transport"
)

// Layout is the cluster membership source the Poller consumes. It is
// supplied by the caller; this core never mutates or persists it.
type Layout interface {
	AllServers() []connectivity.Endpoint
	ActiveLayoutServers() []connectivity.Endpoint
	Epoch() connectivity.Epoch
}

// Runtime resolves a PeerClient for a given endpoint. Implementations may
// cache and reuse clients across rounds; the Poller only ever calls
// SetTimeoutResponse on them, never tears them down.
type Runtime interface {
	GetRouter(endpoint connectivity.Endpoint) transport.PeerClient
}

// PollReport is the outcome of one polling round.
type PollReport struct {
	PollEpoch         connectivity.Epoch
	ResponsiveServers []connectivity.Endpoint
	WrongEpochs       map[connectivity.Endpoint]connectivity.Epoch
	ClusterState      connectivity.ClusterState
}

// ReachableNodes returns the peers whose own NodeState (not the local
// endpoint's) was accepted as CONNECTED this iteration - a peer that only
// answered with WrongEpochError is deliberately excluded, even though the
// local connectivity row still marks it OK, so that the wrong-epoch
// suppression rule in Poller.finalizeRound only forgives peers that
// genuinely caught up.
func (r PollReport) ReachableNodes() []connectivity.Endpoint {
	out := make([]connectivity.Endpoint, 0, len(r.ClusterState.Nodes))
	for e, n := range r.ClusterState.Nodes {
		if e == r.ClusterState.LocalEndpoint {
			continue
		}
		if n.Connectivity.Type == connectivity.TypeConnected {
			out = append(out, e)
		}
	}
	return out
}

// FailedNodes returns the peers the local endpoint's connectivity row marks
// FAILED.
func (r PollReport) FailedNodes() []connectivity.Endpoint {
	local, err := r.ClusterState.LocalNodeConnectivity()
	if err != nil {
		return nil
	}
	failed := local.FailedNodes()
	out := make([]connectivity.Endpoint, 0, len(failed))
	for e := range failed {
		out = append(out, e)
	}
	return out
}

// AllReachableNodes is ReachableNodes plus every endpoint reported in
// WrongEpochs - a peer that answered at the wrong epoch is still reachable
// for the purpose of tuning its timeout back down.
func (r PollReport) AllReachableNodes() []connectivity.Endpoint {
	seen := make(map[connectivity.Endpoint]struct{}, len(r.WrongEpochs))
	out := make([]connectivity.Endpoint, 0, len(r.WrongEpochs))
	for _, e := range r.ReachableNodes() {
		if _, ok := seen[e]; !ok {
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	for e := range r.WrongEpochs {
		if _, ok := seen[e]; !ok {
			seen[e] = struct{}{}
			out = append(out, e)
		}
	}
	return out
}
