package connectivity

// NodeConnectivity is one node's view of the cluster: which peers it could
// reach, stamped with the epoch it observed them at.
//
// Invariant: if Type is TypeUnavailable or TypeNotReady, Connectivity is
// empty. If Type is TypeConnected, Connectivity must carry an entry for
// every endpoint in the node's view, including itself.
type NodeConnectivity struct {
	Endpoint     Endpoint
	Type         NodeConnectivityType
	Connectivity map[Endpoint]ConnectionStatus
	Epoch        Epoch
}

// Connected builds a NodeConnectivity carrying a fresh connectivity matrix.
func Connected(endpoint Endpoint, matrix map[Endpoint]ConnectionStatus, epoch Epoch) NodeConnectivity {
	return NodeConnectivity{
		Endpoint:     endpoint,
		Type:         TypeConnected,
		Connectivity: matrix,
		Epoch:        epoch,
	}
}

// Unavailable builds a NodeConnectivity for a peer the local probe could not
// reach; it carries no remote observation.
func Unavailable(endpoint Endpoint) NodeConnectivity {
	return NodeConnectivity{
		Endpoint:     endpoint,
		Type:         TypeUnavailable,
		Connectivity: map[Endpoint]ConnectionStatus{},
		Epoch:        0,
	}
}

// NotReady builds a NodeConnectivity for a node that hasn't produced a
// useful observation yet.
func NotReady(endpoint Endpoint) NodeConnectivity {
	return NodeConnectivity{
		Endpoint:     endpoint,
		Type:         TypeNotReady,
		Connectivity: map[Endpoint]ConnectionStatus{},
		Epoch:        0,
	}
}

// ConnectedNodes returns the set of peers this node reports status OK for.
func (n NodeConnectivity) ConnectedNodes() map[Endpoint]struct{} {
	out := make(map[Endpoint]struct{})
	for peer, status := range n.Connectivity {
		if status == StatusOK {
			out[peer] = struct{}{}
		}
	}
	return out
}

// FailedNodes returns the set of peers this node reports status FAILED for.
func (n NodeConnectivity) FailedNodes() map[Endpoint]struct{} {
	out := make(map[Endpoint]struct{})
	for peer, status := range n.Connectivity {
		if status == StatusFailed {
			out[peer] = struct{}{}
		}
	}
	return out
}

// GetConnectionStatus returns the recorded status for peer.
//
// Fails with InvalidConfigurationError if this node's type is
// TypeUnavailable (it has no connectivity to ask about), and with
// PeerNotFoundError if peer has no entry in the matrix.
func (n NodeConnectivity) GetConnectionStatus(peer Endpoint) (ConnectionStatus, error) {
	if n.Type == TypeUnavailable {
		return "", &InvalidConfigurationError{Reason: "cannot query connection status of an unavailable node"}
	}
	status, ok := n.Connectivity[peer]
	if !ok {
		return "", &PeerNotFoundError{Peer: peer}
	}
	return status, nil
}

// Degree returns the number of peers this node reports status OK for.
func (n NodeConnectivity) Degree() int {
	degree := 0
	for _, status := range n.Connectivity {
		if status == StatusOK {
			degree++
		}
	}
	return degree
}

// Compare orders two NodeConnectivity values lexicographically by endpoint.
func (n NodeConnectivity) Compare(other NodeConnectivity) int {
	switch {
	case n.Endpoint < other.Endpoint:
		return -1
	case n.Endpoint > other.Endpoint:
		return 1
	default:
		return 0
	}
}
