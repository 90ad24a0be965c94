package poller

import (
	"context"
	"testing"
	"time"

	"github.com/decodelifter/CorfuDB/internal/connectivity"
	"github.com/decodelifter/CorfuDB/internal/transport"
	"github.com/decodelifter/CorfuDB/internal/transport/memory"
)

type fakeLayout struct {
	all    []connectivity.Endpoint
	active []connectivity.Endpoint
	epoch  connectivity.Epoch
}

func (f fakeLayout) AllServers() []connectivity.Endpoint          { return f.all }
func (f fakeLayout) ActiveLayoutServers() []connectivity.Endpoint { return f.active }
func (f fakeLayout) Epoch() connectivity.Epoch                    { return f.epoch }

type fakeRuntime struct {
	clients map[connectivity.Endpoint]transport.PeerClient
}

func (f fakeRuntime) GetRouter(endpoint connectivity.Endpoint) transport.PeerClient {
	return f.clients[endpoint]
}

func testConfig() Config {
	return Config{
		FailureThreshold:    3,
		InitPeriodDuration:  20 * time.Millisecond,
		MaxPeriodDuration:   60 * time.Millisecond,
		PeriodDelta:         20 * time.Millisecond,
		InitialPollInterval: 2 * time.Millisecond,
	}
}

func connectedResponder(self connectivity.Endpoint, epoch connectivity.Epoch) func(connectivity.Epoch) (connectivity.NodeState, error) {
	return func(connectivity.Epoch) (connectivity.NodeState, error) {
		return connectivity.NodeState{
			Connectivity: connectivity.Connected(self, map[connectivity.Endpoint]connectivity.ConnectionStatus{self: connectivity.StatusOK}, epoch),
		}, nil
	}
}

func TestPollAllHealthy(t *testing.T) {
	local := connectivity.Endpoint("a")
	peerB := connectivity.Endpoint("b")
	peerC := connectivity.Endpoint("c")

	clientB := memory.New(func(epoch connectivity.Epoch) (connectivity.NodeState, error) {
		return connectedResponder(peerB, epoch)(epoch)
	})
	clientC := memory.New(func(epoch connectivity.Epoch) (connectivity.NodeState, error) {
		return connectedResponder(peerC, epoch)(epoch)
	})

	layout := fakeLayout{all: []connectivity.Endpoint{peerB, peerC}, active: []connectivity.Endpoint{peerB, peerC}, epoch: 1}
	runtime := fakeRuntime{clients: map[connectivity.Endpoint]transport.PeerClient{peerB: clientB, peerC: clientC}}

	p, err := New(local, testConfig())
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}

	report, err := p.Poll(context.Background(), layout, runtime, connectivity.SequencerMetrics{Ready: true})
	if err != nil {
		t.Fatalf("unexpected poll error: %v", err)
	}

	if len(report.WrongEpochs) != 0 {
		t.Errorf("expected no wrong epochs, got %v", report.WrongEpochs)
	}
	if report.ClusterState.Size() != 3 {
		t.Fatalf("expected 3 nodes, got %d", report.ClusterState.Size())
	}
	for _, e := range []connectivity.Endpoint{local, peerB, peerC} {
		n, ok := report.ClusterState.GetNode(e)
		if !ok || n.Connectivity.Type != connectivity.TypeConnected {
			t.Errorf("expected %s CONNECTED, got ok=%v type=%v", e, ok, n.Connectivity.Type)
		}
	}
	if p.Period() != testConfig().InitPeriodDuration {
		t.Errorf("expected period to settle at the floor after an all-healthy round, got %v", p.Period())
	}
}

func TestPollOneDeadNode(t *testing.T) {
	local := connectivity.Endpoint("a")
	peerB := connectivity.Endpoint("b")
	deadPeer := connectivity.Endpoint("c")

	clientB := memory.New(func(epoch connectivity.Epoch) (connectivity.NodeState, error) {
		return connectedResponder(peerB, epoch)(epoch)
	})
	clientC := memory.New(func(epoch connectivity.Epoch) (connectivity.NodeState, error) {
		return connectivity.NodeState{}, nil
	})
	clientC.SetDelay(time.Hour) // always exceeds the configured timeout

	layout := fakeLayout{all: []connectivity.Endpoint{peerB, deadPeer}, active: []connectivity.Endpoint{peerB, deadPeer}, epoch: 1}
	runtime := fakeRuntime{clients: map[connectivity.Endpoint]transport.PeerClient{peerB: clientB, deadPeer: clientC}}

	cfg := testConfig()
	p, err := New(local, cfg)
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}

	report, err := p.Poll(context.Background(), layout, runtime, connectivity.SequencerMetrics{})
	if err != nil {
		t.Fatalf("unexpected poll error: %v", err)
	}

	deadState, ok := report.ClusterState.GetNode(deadPeer)
	if !ok || deadState.Connectivity.Type != connectivity.TypeUnavailable {
		t.Errorf("expected dead peer UNAVAILABLE, got ok=%v type=%v", ok, deadState.Connectivity.Type)
	}

	localNode, _ := report.ClusterState.GetNode(local)
	status, err := localNode.Connectivity.GetConnectionStatus(deadPeer)
	if err != nil || status != connectivity.StatusFailed {
		t.Errorf("expected local row to mark dead peer FAILED, got %v err=%v", status, err)
	}

	if p.Period() < cfg.InitPeriodDuration || p.Period() > cfg.MaxPeriodDuration {
		t.Errorf("expected period to stay within [%v, %v], got %v", cfg.InitPeriodDuration, cfg.MaxPeriodDuration, p.Period())
	}
}

func TestPollEpochMismatch(t *testing.T) {
	local := connectivity.Endpoint("a")
	peerB := connectivity.Endpoint("b")
	stalePeer := connectivity.Endpoint("c")

	clientB := memory.New(func(epoch connectivity.Epoch) (connectivity.NodeState, error) {
		return connectedResponder(peerB, epoch)(epoch)
	})
	clientStale := memory.New(func(connectivity.Epoch) (connectivity.NodeState, error) {
		return connectivity.NodeState{}, transport.WrongEpochError{ServerEpoch: 2}
	})

	layout := fakeLayout{all: []connectivity.Endpoint{peerB, stalePeer}, active: []connectivity.Endpoint{peerB, stalePeer}, epoch: 1}
	runtime := fakeRuntime{clients: map[connectivity.Endpoint]transport.PeerClient{peerB: clientB, stalePeer: clientStale}}

	p, err := New(local, testConfig())
	if err != nil {
		t.Fatalf("unexpected config error: %v", err)
	}

	report, err := p.Poll(context.Background(), layout, runtime, connectivity.SequencerMetrics{})
	if err != nil {
		t.Fatalf("unexpected poll error: %v", err)
	}

	epoch, ok := report.WrongEpochs[stalePeer]
	if !ok || epoch != 2 {
		t.Fatalf("expected wrongEpochs == {c: 2}, got %v", report.WrongEpochs)
	}

	localNode, _ := report.ClusterState.GetNode(local)
	failed := localNode.Connectivity.FailedNodes()
	for e := range failed {
		if e == stalePeer {
			t.Errorf("expected stale peer not to be in failedNodes")
		}
	}
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	cfg := testConfig()
	cfg.FailureThreshold = 0

	_, err := New("a", cfg)
	if err == nil {
		t.Fatalf("expected an error for failureThreshold == 0")
	}
	if _, ok := err.(*connectivity.InvalidConfigurationError); !ok {
		t.Errorf("expected *connectivity.InvalidConfigurationError, got %T", err)
	}
}

func TestPollRejectsZeroFailureThresholdBuiltDirectly(t *testing.T) {
	p := &Poller{config: testConfig(), localEndpoint: "a"}
	p.config.FailureThreshold = 0

	layout := fakeLayout{all: nil, active: nil, epoch: 1}
	runtime := fakeRuntime{clients: map[connectivity.Endpoint]transport.PeerClient{}}

	_, err := p.Poll(context.Background(), layout, runtime, connectivity.SequencerMetrics{})
	if err == nil {
		t.Fatalf("expected an error for failureThreshold == 0")
	}
	if _, ok := err.(*connectivity.InvalidConfigurationError); !ok {
		t.Errorf("expected *connectivity.InvalidConfigurationError, got %T", err)
	}
}
