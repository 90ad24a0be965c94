package connectivity

// ClusterState is the fused view of the whole cluster from the perspective
// of LocalEndpoint: a map of every known endpoint to the best NodeState
// available for it.
type ClusterState struct {
	LocalEndpoint Endpoint
	Nodes         map[Endpoint]NodeState
}

// BuildClusterState assembles a ClusterState out of individually produced
// NodeStates, keyed by their own reported endpoint.
func BuildClusterState(localEndpoint Endpoint, states ...NodeState) ClusterState {
	nodes := make(map[Endpoint]NodeState, len(states))
	for _, state := range states {
		nodes[state.Connectivity.Endpoint] = state
	}
	return ClusterState{LocalEndpoint: localEndpoint, Nodes: nodes}
}

// Size returns the number of nodes this ClusterState has an observation for.
func (c ClusterState) Size() int {
	return len(c.Nodes)
}

// GetNode looks up the NodeState recorded for endpoint, if any.
func (c ClusterState) GetNode(endpoint Endpoint) (NodeState, bool) {
	state, ok := c.Nodes[endpoint]
	return state, ok
}

// LocalNodeConnectivity returns the connectivity recorded for LocalEndpoint.
//
// Fails with PeerNotFoundError if the local endpoint has no entry, which
// should never happen for a ClusterState produced by this module's
// collector.
func (c ClusterState) LocalNodeConnectivity() (NodeConnectivity, error) {
	state, ok := c.Nodes[c.LocalEndpoint]
	if !ok {
		return NodeConnectivity{}, &PeerNotFoundError{Peer: c.LocalEndpoint}
	}
	return state.Connectivity, nil
}

// IsReady reports whether this ClusterState is internally consistent enough
// to drive failure-detection decisions: it must be non-empty, every member
// must agree on the same epoch, and no member may be TypeNotReady.
func (c ClusterState) IsReady() bool {
	if len(c.Nodes) == 0 {
		return false
	}
	if !c.epochsAgree() {
		return false
	}
	for _, state := range c.Nodes {
		if state.Connectivity.Type == TypeNotReady {
			return false
		}
	}
	return true
}

func (c ClusterState) epochsAgree() bool {
	current := UnknownEpoch
	for _, state := range c.Nodes {
		epoch := state.Connectivity.Epoch
		if current == UnknownEpoch {
			current = epoch
			continue
		}
		if epoch != current {
			return false
		}
	}
	return true
}
