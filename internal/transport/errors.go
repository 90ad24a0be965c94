package transport

import "fmt"

// TimeoutError means a probe exceeded its per-client timeout with no reply.
type TimeoutError struct{}

func (TimeoutError) Error() string { return "node state request timed out" }

// TransportError wraps a socket/IO fault underneath a probe.
type TransportError struct {
	Err error
}

func (e TransportError) Error() string { return fmt.Sprintf("transport error: %v", e.Err) }

func (e TransportError) Unwrap() error { return e.Err }

// WrongEpochError means the peer replied, but it is running a different
// epoch than the one the poll round is probing for.
type WrongEpochError struct {
	ServerEpoch int64
}

func (e WrongEpochError) Error() string {
	return fmt.Sprintf("peer is at wrong epoch: %d", e.ServerEpoch)
}
