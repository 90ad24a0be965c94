// Package transport defines the contract this module consumes from the RPC
// layer, without implementing it. The actual wire transport between peers is
// explicitly out of scope for this core; poller and collector only ever see
// the PeerClient interface below.
package transport

import (
	"context"
	"time"

	"github.com/decodelifter/CorfuDB/internal/connectivity"
)

// NodeStateResult is what a PeerClient's future settles to: either a usable
// NodeState, or one of the three distinguishable peer-level errors.
type NodeStateResult struct {
	State connectivity.NodeState
	Err   error
}

// PeerClient is an async request/response channel to one peer. Implementors
// must honor the timeout set by SetTimeoutResponse and must never mutate
// shared state after a request they own has been abandoned by the caller.
type PeerClient interface {
	// SendNodeStateRequest asks the peer for its NodeState at the given
	// epoch. The returned channel receives exactly one NodeStateResult and
	// is then closed, except when ctx is canceled first, in which case it is
	// closed without a result. It must never block forever - a TimeoutError
	// must be delivered if the peer doesn't answer within the configured
	// timeout.
	SendNodeStateRequest(ctx context.Context, epoch connectivity.Epoch) <-chan NodeStateResult

	// SetTimeoutResponse changes the per-request timeout used for every
	// subsequent SendNodeStateRequest call.
	SetTimeoutResponse(timeout time.Duration)
}
