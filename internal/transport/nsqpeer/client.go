// Package nsqpeer is an illustrative transport.PeerClient built on top of
// NSQ, the message broker the teacher repository embeds (see
// karalabe-minority/broker). It exists to give the go-nsq dependency a home
// the same way the specification's own CorfuQueue exists only to illustrate
// a downstream caller: poller and collector never import this package, they
// only ever see the transport.PeerClient interface.
//
// One Client talks to exactly one peer. Requests are published to a topic
// named after the peer; replies are correlated by a random request id and
// delivered on a reply topic named after the local endpoint.
package nsqpeer

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/log"
	"github.com/nsqio/go-nsq"

	"github.com/decodelifter/CorfuDB/internal/connectivity"
	"github.com/decodelifter/CorfuDB/internal/transport"
	"github.com/decodelifter/CorfuDB/internal/wire"
)

// replyKind tags what a reply envelope carries.
type replyKind uint8

const (
	replyKindNodeState     replyKind = 0
	replyKindWrongEpoch    replyKind = 1
	replyKindTransportFail replyKind = 2
)

// Client is a transport.PeerClient that talks to one remote peer through an
// NSQD instance both sides can reach.
type Client struct {
	mu      sync.Mutex
	timeout time.Duration

	local connectivity.Endpoint
	peer  connectivity.Endpoint

	producer *nsq.Producer
	consumer *nsq.Consumer
	logger   log.Logger

	pendingMu sync.Mutex
	pending   map[string]chan transport.NodeStateResult
}

// Dial connects to nsqdAddr and returns a Client ready to probe peer on
// behalf of local.
func Dial(nsqdAddr string, local, peer connectivity.Endpoint, logger log.Logger) (*Client, error) {
	if logger == nil {
		logger = log.New("peer", peer)
	}

	cfg := nsq.NewConfig()

	producer, err := nsq.NewProducer(nsqdAddr, cfg)
	if err != nil {
		return nil, fmt.Errorf("nsqpeer: failed to create producer: %w", err)
	}
	producer.SetLogger(&nsqLogger{logger}, nsq.LogLevelWarning)

	consumer, err := nsq.NewConsumer(replyTopic(local), string(peer), cfg)
	if err != nil {
		producer.Stop()
		return nil, fmt.Errorf("nsqpeer: failed to create consumer: %w", err)
	}
	consumer.SetLogger(&nsqLogger{logger}, nsq.LogLevelWarning)

	c := &Client{
		timeout:  2 * time.Second,
		local:    local,
		peer:     peer,
		producer: producer,
		consumer: consumer,
		logger:   logger,
		pending:  make(map[string]chan transport.NodeStateResult),
	}
	consumer.AddHandler(nsq.HandlerFunc(c.handleReply))

	if err := consumer.ConnectToNSQD(nsqdAddr); err != nil {
		producer.Stop()
		return nil, fmt.Errorf("nsqpeer: failed to connect consumer: %w", err)
	}
	return c, nil
}

// Close tears down the underlying producer and consumer.
func (c *Client) Close() {
	c.consumer.Stop()
	c.producer.Stop()
}

// SetTimeoutResponse implements transport.PeerClient.
func (c *Client) SetTimeoutResponse(timeout time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.timeout = timeout
}

// SendNodeStateRequest implements transport.PeerClient.
func (c *Client) SendNodeStateRequest(ctx context.Context, epoch connectivity.Epoch) <-chan transport.NodeStateResult {
	c.mu.Lock()
	timeout := c.timeout
	c.mu.Unlock()

	out := make(chan transport.NodeStateResult, 1)

	reqID, err := newRequestID()
	if err != nil {
		out <- transport.NodeStateResult{Err: transport.TransportError{Err: err}}
		close(out)
		return out
	}

	waiter := make(chan transport.NodeStateResult, 1)
	c.pendingMu.Lock()
	c.pending[reqID] = waiter
	c.pendingMu.Unlock()

	frame := encodeRequest(reqID, c.local, epoch)
	if err := c.producer.Publish(requestTopic(c.peer), frame); err != nil {
		c.removePending(reqID)
		out <- transport.NodeStateResult{Err: transport.TransportError{Err: err}}
		close(out)
		return out
	}

	go func() {
		defer close(out)
		defer c.removePending(reqID)

		timer := time.NewTimer(timeout)
		defer timer.Stop()

		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			out <- transport.NodeStateResult{Err: transport.TimeoutError{}}
		case result := <-waiter:
			out <- result
		}
	}()
	return out
}

func (c *Client) removePending(id string) {
	c.pendingMu.Lock()
	delete(c.pending, id)
	c.pendingMu.Unlock()
}

func (c *Client) handleReply(msg *nsq.Message) error {
	reqID, result, err := decodeReply(msg.Body)
	if err != nil {
		c.logger.Warn("Dropping malformed node state reply", "err", err)
		return nil
	}

	c.pendingMu.Lock()
	waiter, ok := c.pending[reqID]
	c.pendingMu.Unlock()
	if !ok {
		// Reply for a request this client already gave up on; drop it.
		return nil
	}

	select {
	case waiter <- result:
	default:
	}
	return nil
}

func requestTopic(peer connectivity.Endpoint) string {
	return "nodestate.request." + sanitizeTopic(string(peer))
}

func replyTopic(local connectivity.Endpoint) string {
	return "nodestate.reply." + sanitizeTopic(string(local))
}

func sanitizeTopic(s string) string {
	b := []byte(s)
	for i, c := range b {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9', c == '.', c == '-', c == '_':
			// allowed as-is
		default:
			b[i] = '_'
		}
	}
	return string(b)
}

func newRequestID() (string, error) {
	var raw [16]byte
	if _, err := rand.Read(raw[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(raw[:]), nil
}

// encodeRequest frames a node state request: request id, requester endpoint,
// epoch. This framing is local to the illustrative NSQ transport; it is not
// part of the specified NodeConnectivity/NodeState/ClusterState wire format.
func encodeRequest(reqID string, requester connectivity.Endpoint, epoch connectivity.Epoch) []byte {
	var buf bytes.Buffer
	writeFrameString(&buf, reqID)
	writeFrameString(&buf, string(requester))
	binary.Write(&buf, binary.BigEndian, int64(epoch))
	return buf.Bytes()
}

// ServeRequests is the peer side of this illustrative transport: it answers
// every request on the local endpoint's request topic with responder's
// NodeState (or error), honoring the WrongEpochError/TransportError
// distinction just like the collector expects. It blocks until ctx is
// canceled.
func ServeRequests(ctx context.Context, nsqdAddr string, local connectivity.Endpoint, logger log.Logger,
	responder func(requester connectivity.Endpoint, epoch connectivity.Epoch) (connectivity.NodeState, error)) error {

	if logger == nil {
		logger = log.New("endpoint", local)
	}

	cfg := nsq.NewConfig()
	consumer, err := nsq.NewConsumer(requestTopic(local), string(local), cfg)
	if err != nil {
		return fmt.Errorf("nsqpeer: failed to create request consumer: %w", err)
	}
	consumer.SetLogger(&nsqLogger{logger}, nsq.LogLevelWarning)

	producer, err := nsq.NewProducer(nsqdAddr, cfg)
	if err != nil {
		return fmt.Errorf("nsqpeer: failed to create reply producer: %w", err)
	}
	producer.SetLogger(&nsqLogger{logger}, nsq.LogLevelWarning)

	consumer.AddHandler(nsq.HandlerFunc(func(msg *nsq.Message) error {
		reqID, requester, epoch, err := decodeRequest(msg.Body)
		if err != nil {
			logger.Warn("Dropping malformed node state request", "err", err)
			return nil
		}
		state, respErr := responder(requester, epoch)

		reply, err := encodeReply(reqID, state, respErr)
		if err != nil {
			logger.Warn("Failed to encode node state reply", "err", err)
			return nil
		}
		if err := producer.Publish(replyTopic(requester), reply); err != nil {
			logger.Warn("Failed to publish node state reply", "err", err)
		}
		return nil
	}))

	if err := consumer.ConnectToNSQD(nsqdAddr); err != nil {
		producer.Stop()
		return fmt.Errorf("nsqpeer: failed to connect request consumer: %w", err)
	}

	<-ctx.Done()
	consumer.Stop()
	producer.Stop()
	return nil
}

func decodeRequest(body []byte) (reqID string, requester connectivity.Endpoint, epoch connectivity.Epoch, err error) {
	r := bytes.NewReader(body)
	reqID, err = readFrameString(r)
	if err != nil {
		return "", "", 0, err
	}
	requesterStr, err := readFrameString(r)
	if err != nil {
		return "", "", 0, err
	}
	var e int64
	if err := binary.Read(r, binary.BigEndian, &e); err != nil {
		return "", "", 0, err
	}
	return reqID, connectivity.Endpoint(requesterStr), connectivity.Epoch(e), nil
}

func encodeReply(reqID string, state connectivity.NodeState, respErr error) ([]byte, error) {
	var buf bytes.Buffer
	writeFrameString(&buf, reqID)

	switch e := respErr.(type) {
	case nil:
		buf.WriteByte(byte(replyKindNodeState))
		if err := wire.EncodeNodeState(&buf, state); err != nil {
			return nil, err
		}
	case transport.WrongEpochError:
		buf.WriteByte(byte(replyKindWrongEpoch))
		binary.Write(&buf, binary.BigEndian, e.ServerEpoch)
	default:
		buf.WriteByte(byte(replyKindTransportFail))
		writeFrameString(&buf, respErr.Error())
	}
	return buf.Bytes(), nil
}

func decodeReply(body []byte) (reqID string, result transport.NodeStateResult, err error) {
	r := bytes.NewReader(body)
	reqID, err = readFrameString(r)
	if err != nil {
		return "", transport.NodeStateResult{}, err
	}

	kindByte, err := r.ReadByte()
	if err != nil {
		return "", transport.NodeStateResult{}, err
	}

	switch replyKind(kindByte) {
	case replyKindNodeState:
		state, err := wire.DecodeNodeState(r)
		if err != nil {
			return "", transport.NodeStateResult{}, err
		}
		return reqID, transport.NodeStateResult{State: state}, nil
	case replyKindWrongEpoch:
		var serverEpoch int64
		if err := binary.Read(r, binary.BigEndian, &serverEpoch); err != nil {
			return "", transport.NodeStateResult{}, err
		}
		return reqID, transport.NodeStateResult{Err: transport.WrongEpochError{ServerEpoch: serverEpoch}}, nil
	case replyKindTransportFail:
		msg, err := readFrameString(r)
		if err != nil {
			return "", transport.NodeStateResult{}, err
		}
		return reqID, transport.NodeStateResult{Err: transport.TransportError{Err: fmt.Errorf("%s", msg)}}, nil
	default:
		return "", transport.NodeStateResult{}, fmt.Errorf("nsqpeer: unknown reply kind %d", kindByte)
	}
}

func writeFrameString(buf *bytes.Buffer, s string) {
	binary.Write(buf, binary.BigEndian, int32(len(s)))
	buf.WriteString(s)
}

func readFrameString(r *bytes.Reader) (string, error) {
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return "", err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", err
	}
	return string(b), nil
}
