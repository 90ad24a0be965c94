package connectivity

import "fmt"

// InvalidConfigurationError is a programmer error: the caller asked a
// NodeConnectivity a question it can't answer given its type, or configured
// the poller with an impossible threshold.
type InvalidConfigurationError struct {
	Reason string
}

func (e *InvalidConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration: %s", e.Reason)
}

// PeerNotFoundError is returned by GetConnectionStatus when the requested
// peer has no entry in the connectivity matrix.
type PeerNotFoundError struct {
	Peer Endpoint
}

func (e *PeerNotFoundError) Error() string {
	return fmt.Sprintf("peer not found: %s", e.Peer)
}
