// Package connectivity holds the pure, I/O-free value types describing one
// node's view of cluster reachability and the fused view of an entire
// cluster. Nothing in this package blocks, dials a peer or touches a clock;
// it is the leaf layer every other package in this module builds on.
package connectivity

// Endpoint is the printable identity of a peer: typically a host:port pair.
type Endpoint string

// Epoch is the monotonically non-decreasing version stamp of a cluster
// layout. UnknownEpoch is the sentinel used when no epoch has been observed
// yet.
type Epoch int64

// UnknownEpoch is the sentinel value meaning "no epoch observed".
const UnknownEpoch Epoch = -1

// ConnectionStatus is the result of one node attempting to reach another.
type ConnectionStatus string

const (
	// StatusOK means the probing node reached the target within its timeout.
	StatusOK ConnectionStatus = "OK"
	// StatusFailed means the probe to the target timed out or errored.
	StatusFailed ConnectionStatus = "FAILED"
)

// StatusFromBool maps a boolean reachability result onto a ConnectionStatus.
func StatusFromBool(reachable bool) ConnectionStatus {
	if reachable {
		return StatusOK
	}
	return StatusFailed
}

// NodeConnectivityType classifies the usefulness of one node's self-reported
// connectivity.
type NodeConnectivityType string

const (
	// TypeNotReady means the node exists in the layout but has not produced
	// a useful observation yet (not bootstrapped, or hasn't probed anyone).
	TypeNotReady NodeConnectivityType = "NOT_READY"
	// TypeConnected means the node itself delivered a fresh connectivity
	// matrix.
	TypeConnected NodeConnectivityType = "CONNECTED"
	// TypeUnavailable means the local probe to that node failed; there is no
	// remote observation to report.
	TypeUnavailable NodeConnectivityType = "UNAVAILABLE"
)
