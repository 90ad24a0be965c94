// Package wire implements the bit-exact, length-prefixed binary encoding
// used to exchange NodeConnectivity, NodeState and ClusterState values
// between peers (and, optionally, to persist diagnostic snapshots of them).
//
// Every integer is big-endian fixed width. Strings are an i32 length prefix
// followed by UTF-8 bytes. Enums are encoded by their variant name and
// rejected on decode if the name doesn't match a known variant — peers may
// run different protocol versions, so silently defaulting an unknown enum
// would hide a real incompatibility. Maps are an i32 entry count followed by
// concatenated (key, value) pairs in encoder iteration order; decoders
// accept any order.
package wire

import (
	"io"

	"github.com/decodelifter/CorfuDB/internal/connectivity"
)

// EncodeNodeConnectivity writes v to w.
func EncodeNodeConnectivity(w io.Writer, v connectivity.NodeConnectivity) error {
	if err := writeString(w, string(v.Endpoint)); err != nil {
		return codecErr("NodeConnectivity.endpoint", err)
	}
	if err := writeString(w, string(v.Type)); err != nil {
		return codecErr("NodeConnectivity.type", err)
	}
	if err := writeConnectivityMatrix(w, v.Connectivity); err != nil {
		return codecErr("NodeConnectivity.connectivity", err)
	}
	if err := writeI64(w, int64(v.Epoch)); err != nil {
		return codecErr("NodeConnectivity.epoch", err)
	}
	return nil
}

// DecodeNodeConnectivity reads a NodeConnectivity from r.
func DecodeNodeConnectivity(r io.Reader) (connectivity.NodeConnectivity, error) {
	endpoint, err := readString(r)
	if err != nil {
		return connectivity.NodeConnectivity{}, codecErr("NodeConnectivity.endpoint", err)
	}
	typeName, err := readString(r)
	if err != nil {
		return connectivity.NodeConnectivity{}, codecErr("NodeConnectivity.type", err)
	}
	connType, err := parseConnectivityType(typeName)
	if err != nil {
		return connectivity.NodeConnectivity{}, codecErr("NodeConnectivity.type", err)
	}
	matrix, err := readConnectivityMatrix(r)
	if err != nil {
		return connectivity.NodeConnectivity{}, codecErr("NodeConnectivity.connectivity", err)
	}
	epoch, err := readI64(r)
	if err != nil {
		return connectivity.NodeConnectivity{}, codecErr("NodeConnectivity.epoch", err)
	}
	return connectivity.NodeConnectivity{
		Endpoint:     connectivity.Endpoint(endpoint),
		Type:         connType,
		Connectivity: matrix,
		Epoch:        connectivity.Epoch(epoch),
	}, nil
}

func writeConnectivityMatrix(w io.Writer, m map[connectivity.Endpoint]connectivity.ConnectionStatus) error {
	if err := writeI32(w, int32(len(m))); err != nil {
		return err
	}
	for endpoint, status := range m {
		if err := writeString(w, string(endpoint)); err != nil {
			return err
		}
		if err := writeString(w, string(status)); err != nil {
			return err
		}
	}
	return nil
}

func readConnectivityMatrix(r io.Reader) (map[connectivity.Endpoint]connectivity.ConnectionStatus, error) {
	count, err := readI32(r)
	if err != nil {
		return nil, err
	}
	matrix := make(map[connectivity.Endpoint]connectivity.ConnectionStatus, count)
	for i := int32(0); i < count; i++ {
		endpoint, err := readString(r)
		if err != nil {
			return nil, err
		}
		statusName, err := readString(r)
		if err != nil {
			return nil, err
		}
		status, err := parseConnectionStatus(statusName)
		if err != nil {
			return nil, err
		}
		matrix[connectivity.Endpoint(endpoint)] = status
	}
	return matrix, nil
}

// EncodeSequencerMetrics writes v to w.
func EncodeSequencerMetrics(w io.Writer, v connectivity.SequencerMetrics) error {
	ready := uint8(0)
	if v.Ready {
		ready = 1
	}
	if err := writeU8(w, ready); err != nil {
		return codecErr("SequencerMetrics.ready", err)
	}
	if err := writeI64(w, int64(v.SequencerEpoch)); err != nil {
		return codecErr("SequencerMetrics.sequencerEpoch", err)
	}
	return nil
}

// DecodeSequencerMetrics reads a SequencerMetrics from r.
func DecodeSequencerMetrics(r io.Reader) (connectivity.SequencerMetrics, error) {
	ready, err := readU8(r)
	if err != nil {
		return connectivity.SequencerMetrics{}, codecErr("SequencerMetrics.ready", err)
	}
	epoch, err := readI64(r)
	if err != nil {
		return connectivity.SequencerMetrics{}, codecErr("SequencerMetrics.sequencerEpoch", err)
	}
	return connectivity.SequencerMetrics{
		Ready:          ready != 0,
		SequencerEpoch: connectivity.Epoch(epoch),
	}, nil
}

// EncodeHeartbeat writes v to w.
func EncodeHeartbeat(w io.Writer, v connectivity.Heartbeat) error {
	if err := writeI64(w, int64(v.Epoch)); err != nil {
		return codecErr("Heartbeat.epoch", err)
	}
	if err := writeI64(w, v.Counter); err != nil {
		return codecErr("Heartbeat.counter", err)
	}
	return nil
}

// DecodeHeartbeat reads a Heartbeat from r.
func DecodeHeartbeat(r io.Reader) (connectivity.Heartbeat, error) {
	epoch, err := readI64(r)
	if err != nil {
		return connectivity.Heartbeat{}, codecErr("Heartbeat.epoch", err)
	}
	counter, err := readI64(r)
	if err != nil {
		return connectivity.Heartbeat{}, codecErr("Heartbeat.counter", err)
	}
	return connectivity.Heartbeat{Epoch: connectivity.Epoch(epoch), Counter: counter}, nil
}

// EncodeNodeState writes v to w: its NodeConnectivity, then its embedded
// SequencerMetrics, then its heartbeat.
func EncodeNodeState(w io.Writer, v connectivity.NodeState) error {
	if err := EncodeNodeConnectivity(w, v.Connectivity); err != nil {
		return err
	}
	if err := EncodeSequencerMetrics(w, v.SequencerMetrics); err != nil {
		return err
	}
	return EncodeHeartbeat(w, v.Heartbeat)
}

// DecodeNodeState reads a NodeState from r.
func DecodeNodeState(r io.Reader) (connectivity.NodeState, error) {
	conn, err := DecodeNodeConnectivity(r)
	if err != nil {
		return connectivity.NodeState{}, err
	}
	metrics, err := DecodeSequencerMetrics(r)
	if err != nil {
		return connectivity.NodeState{}, err
	}
	heartbeat, err := DecodeHeartbeat(r)
	if err != nil {
		return connectivity.NodeState{}, err
	}
	return connectivity.NodeState{
		Connectivity:     conn,
		SequencerMetrics: metrics,
		Heartbeat:        heartbeat,
	}, nil
}

// EncodeClusterState writes v to w: its node map, then its local endpoint.
func EncodeClusterState(w io.Writer, v connectivity.ClusterState) error {
	if err := writeI32(w, int32(len(v.Nodes))); err != nil {
		return codecErr("ClusterState.nodes", err)
	}
	for endpoint, state := range v.Nodes {
		if err := writeString(w, string(endpoint)); err != nil {
			return codecErr("ClusterState.nodes", err)
		}
		if err := EncodeNodeState(w, state); err != nil {
			return err
		}
	}
	if err := writeString(w, string(v.LocalEndpoint)); err != nil {
		return codecErr("ClusterState.localEndpoint", err)
	}
	return nil
}

// DecodeClusterState reads a ClusterState from r.
func DecodeClusterState(r io.Reader) (connectivity.ClusterState, error) {
	count, err := readI32(r)
	if err != nil {
		return connectivity.ClusterState{}, codecErr("ClusterState.nodes", err)
	}
	nodes := make(map[connectivity.Endpoint]connectivity.NodeState, count)
	for i := int32(0); i < count; i++ {
		key, err := readString(r)
		if err != nil {
			return connectivity.ClusterState{}, codecErr("ClusterState.nodes", err)
		}
		state, err := DecodeNodeState(r)
		if err != nil {
			return connectivity.ClusterState{}, err
		}
		nodes[connectivity.Endpoint(key)] = state
	}
	local, err := readString(r)
	if err != nil {
		return connectivity.ClusterState{}, codecErr("ClusterState.localEndpoint", err)
	}
	return connectivity.ClusterState{
		LocalEndpoint: connectivity.Endpoint(local),
		Nodes:         nodes,
	}, nil
}

func parseConnectivityType(name string) (connectivity.NodeConnectivityType, error) {
	switch connectivity.NodeConnectivityType(name) {
	case connectivity.TypeNotReady, connectivity.TypeConnected, connectivity.TypeUnavailable:
		return connectivity.NodeConnectivityType(name), nil
	default:
		return "", &enumError{name: name}
	}
}

func parseConnectionStatus(name string) (connectivity.ConnectionStatus, error) {
	switch connectivity.ConnectionStatus(name) {
	case connectivity.StatusOK, connectivity.StatusFailed:
		return connectivity.ConnectionStatus(name), nil
	default:
		return "", &enumError{name: name}
	}
}

type enumError struct {
	name string
}

func (e *enumError) Error() string {
	return "unknown enum name " + e.name
}

func (e *enumError) Unwrap() error {
	return ErrUnknownEnum
}
