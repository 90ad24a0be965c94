// Package memory is an in-process PeerClient double. The real RPC transport
// is explicitly out of scope for this module (see spec §1); this double lets
// the collector, aggregator and poller be exercised without a network.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/decodelifter/CorfuDB/internal/connectivity"
	"github.com/decodelifter/CorfuDB/internal/transport"
)

// Responder produces the NodeState (or error) a Client should hand back for
// a given probe epoch. It is called once per SendNodeStateRequest.
type Responder func(epoch connectivity.Epoch) (connectivity.NodeState, error)

// Client is a scriptable, in-memory PeerClient.
type Client struct {
	mu       sync.Mutex
	timeout  time.Duration
	delay    time.Duration
	respond  Responder
	requests int
}

// New creates a Client that answers every request via respond, with no
// artificial delay and a 2 second default timeout (overridden by the
// poller on every round via SetTimeoutResponse).
func New(respond Responder) *Client {
	return &Client{
		timeout: 2 * time.Second,
		respond: respond,
	}
}

// SetDelay makes the client simulate network/processing latency before it
// answers. A delay at or beyond the current timeout causes the request to
// time out instead of completing.
func (c *Client) SetDelay(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.delay = d
}

// SetTimeoutResponse implements transport.PeerClient.
func (c *Client) SetTimeoutResponse(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// Timeout returns the currently configured timeout, for test assertions.
func (c *Client) Timeout() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.timeout
}

// Requests returns how many SendNodeStateRequest calls this client has seen.
func (c *Client) Requests() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requests
}

// SendNodeStateRequest implements transport.PeerClient.
func (c *Client) SendNodeStateRequest(ctx context.Context, epoch connectivity.Epoch) <-chan transport.NodeStateResult {
	c.mu.Lock()
	timeout := c.timeout
	delay := c.delay
	respond := c.respond
	c.requests++
	c.mu.Unlock()

	out := make(chan transport.NodeStateResult, 1)
	go func() {
		defer close(out)

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			out <- transport.NodeStateResult{Err: transport.TimeoutError{}}
			return
		case <-after(delay):
		}

		state, err := respond(epoch)
		out <- transport.NodeStateResult{State: state, Err: err}
	}()
	return out
}

func after(d time.Duration) <-chan time.Time {
	if d <= 0 {
		ch := make(chan time.Time, 1)
		ch <- time.Now()
		return ch
	}
	return time.After(d)
}
