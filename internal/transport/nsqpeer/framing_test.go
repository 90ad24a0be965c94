package nsqpeer

import (
	"errors"
	"testing"

	"github.com/decodelifter/CorfuDB/internal/connectivity"
	"github.com/decodelifter/CorfuDB/internal/transport"
)

func TestRequestFramingRoundTrip(t *testing.T) {
	frame := encodeRequest("req-1", "a", 7)

	reqID, requester, epoch, err := decodeRequest(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if reqID != "req-1" {
		t.Errorf("expected request id req-1, got %s", reqID)
	}
	if requester != "a" {
		t.Errorf("expected requester a, got %s", requester)
	}
	if epoch != 7 {
		t.Errorf("expected epoch 7, got %d", epoch)
	}
}

func TestReplyFramingRoundTripNodeState(t *testing.T) {
	state := connectivity.NodeState{
		Connectivity: connectivity.Connected("b", map[connectivity.Endpoint]connectivity.ConnectionStatus{"b": connectivity.StatusOK}, 3),
	}
	frame, err := encodeReply("req-1", state, nil)
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	reqID, result, err := decodeReply(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if reqID != "req-1" {
		t.Errorf("expected request id req-1, got %s", reqID)
	}
	if result.Err != nil {
		t.Fatalf("unexpected error: %v", result.Err)
	}
	if result.State.Connectivity.Endpoint != "b" {
		t.Errorf("expected endpoint b, got %s", result.State.Connectivity.Endpoint)
	}
}

func TestReplyFramingRoundTripWrongEpoch(t *testing.T) {
	frame, err := encodeReply("req-2", connectivity.NodeState{}, transport.WrongEpochError{ServerEpoch: 42})
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	reqID, result, err := decodeReply(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if reqID != "req-2" {
		t.Errorf("expected request id req-2, got %s", reqID)
	}
	wrongEpoch, ok := result.Err.(transport.WrongEpochError)
	if !ok {
		t.Fatalf("expected WrongEpochError, got %T", result.Err)
	}
	if wrongEpoch.ServerEpoch != 42 {
		t.Errorf("expected server epoch 42, got %d", wrongEpoch.ServerEpoch)
	}
}

func TestReplyFramingRoundTripTransportError(t *testing.T) {
	frame, err := encodeReply("req-3", connectivity.NodeState{}, errors.New("connection reset"))
	if err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	_, result, err := decodeReply(frame)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	transportErr, ok := result.Err.(transport.TransportError)
	if !ok {
		t.Fatalf("expected TransportError, got %T", result.Err)
	}
	if transportErr.Error() == "" {
		t.Errorf("expected a non-empty error message")
	}
}

func TestSanitizeTopicFoldsDisallowedCharacters(t *testing.T) {
	if got := sanitizeTopic("127.0.0.1:9000"); got != "127.0.0.1_9000" {
		t.Errorf("expected sanitized topic, got %s", got)
	}
}
