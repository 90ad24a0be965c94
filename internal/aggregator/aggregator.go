// Package aggregator folds a sliding window of ClusterState snapshots,
// oldest first, into a single view: the most informative sighting of each
// endpoint wins, independent of what the rest of the cluster looked like at
// that moment.
package aggregator

import "github.com/decodelifter/CorfuDB/internal/connectivity"

// Aggregator combines ClusterState snapshots collected over a polling
// window into one ClusterState.
type Aggregator struct{}

// New returns an Aggregator. It carries no state of its own; the window is
// supplied fresh to every call.
func New() *Aggregator {
	return &Aggregator{}
}

// Aggregate reduces window (oldest snapshot first) to a single ClusterState
// stamped with localEndpoint. For each endpoint independently: the most
// recent CONNECTED sighting wins over the most recent NOT_READY sighting,
// which wins over the most recent UNAVAILABLE sighting. The winning
// NodeState is kept exactly as observed - epochs are not harmonized across
// endpoints, so the returned ClusterState may mix NodeStates stamped with
// different epochs.
func (a *Aggregator) Aggregate(localEndpoint connectivity.Endpoint, window []connectivity.ClusterState) connectivity.ClusterState {
	best := make(map[connectivity.Endpoint]connectivity.NodeState)
	bestPriority := make(map[connectivity.Endpoint]int)

	for _, snapshot := range window {
		for endpoint, node := range snapshot.Nodes {
			p := priority(node.Connectivity.Type)
			if current, seen := bestPriority[endpoint]; !seen || p >= current {
				best[endpoint] = node
				bestPriority[endpoint] = p
			}
		}
	}

	return connectivity.ClusterState{
		LocalEndpoint: localEndpoint,
		Nodes:         best,
	}
}

// priority ranks node connectivity types for aggregation: CONNECTED is the
// most informative sighting, UNAVAILABLE the least.
func priority(t connectivity.NodeConnectivityType) int {
	switch t {
	case connectivity.TypeConnected:
		return 2
	case connectivity.TypeNotReady:
		return 1
	case connectivity.TypeUnavailable:
		return 0
	default:
		return -1
	}
}
