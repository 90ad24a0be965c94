package connectivity

// SequencerMetrics is the minimal health summary a node's sequencer
// contributes to its NodeState. The wire format and field set are not
// specified by the upstream protocol; this is the smallest value that lets
// NodeState round-trip through the codec deterministically.
type SequencerMetrics struct {
	// Ready reports whether the sequencer on this node is ready to serve.
	Ready bool
	// SequencerEpoch is the epoch the sequencer last observed, independent
	// of the connectivity epoch (they usually agree, but need not).
	SequencerEpoch Epoch
}

// Heartbeat is a per-emitter freshness marker: Counter increases by one on
// every NodeState a given node emits. The aggregator does not read it; it
// breaks ties between observations carrying the same connectivity type by
// their position in the window, latest first.
type Heartbeat struct {
	Epoch   Epoch
	Counter int64
}

// NodeState is everything one poll iteration learns about a single node:
// its connectivity, its sequencer health, and the heartbeat it was stamped
// with when it was produced.
type NodeState struct {
	Connectivity     NodeConnectivity
	SequencerMetrics SequencerMetrics
	Heartbeat        Heartbeat
}
