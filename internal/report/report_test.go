package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/decodelifter/CorfuDB/internal/connectivity"
	"github.com/decodelifter/CorfuDB/internal/poller"
)

func TestRenderIncludesEveryEndpointAndMatrix(t *testing.T) {
	local := connectivity.Endpoint("a")
	peer := connectivity.Endpoint("b")

	state := connectivity.BuildClusterState(local,
		connectivity.NodeState{
			Connectivity: connectivity.Connected(local, map[connectivity.Endpoint]connectivity.ConnectionStatus{
				local: connectivity.StatusOK,
				peer:  connectivity.StatusFailed,
			}, 4),
			Heartbeat: connectivity.Heartbeat{Epoch: 4, Counter: 9},
		},
		connectivity.NodeState{
			Connectivity: connectivity.Unavailable(peer),
		},
	)

	report := poller.PollReport{
		PollEpoch:    4,
		ClusterState: state,
		WrongEpochs:  map[connectivity.Endpoint]connectivity.Epoch{},
	}

	var buf bytes.Buffer
	Render(&buf, report)
	out := buf.String()

	for _, want := range []string{"Poll epoch: 4", string(local), string(peer), "Connection matrix", "OK", "FAILED"} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, out)
		}
	}
}

func TestRenderOmitsWrongEpochSectionWhenEmpty(t *testing.T) {
	local := connectivity.Endpoint("a")
	state := connectivity.BuildClusterState(local, connectivity.NodeState{
		Connectivity: connectivity.Connected(local, map[connectivity.Endpoint]connectivity.ConnectionStatus{local: connectivity.StatusOK}, 1),
	})

	var buf bytes.Buffer
	Render(&buf, poller.PollReport{PollEpoch: 1, ClusterState: state})
	if strings.Contains(buf.String(), "Wrong epoch") {
		t.Errorf("expected no wrong-epoch section, got:\n%s", buf.String())
	}
}

func TestRenderIncludesWrongEpochSection(t *testing.T) {
	local := connectivity.Endpoint("a")
	stale := connectivity.Endpoint("c")
	state := connectivity.BuildClusterState(local, connectivity.NodeState{
		Connectivity: connectivity.Connected(local, map[connectivity.Endpoint]connectivity.ConnectionStatus{local: connectivity.StatusOK}, 1),
	})

	var buf bytes.Buffer
	Render(&buf, poller.PollReport{
		PollEpoch:    1,
		ClusterState: state,
		WrongEpochs:  map[connectivity.Endpoint]connectivity.Epoch{stale: 2},
	})
	out := buf.String()
	if !strings.Contains(out, "Wrong epoch") || !strings.Contains(out, string(stale)) {
		t.Errorf("expected a wrong-epoch section naming %s, got:\n%s", stale, out)
	}
}
