package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/log"
	"github.com/spf13/cobra"

	"github.com/decodelifter/CorfuDB/internal/connectivity"
	"github.com/decodelifter/CorfuDB/internal/poller"
	"github.com/decodelifter/CorfuDB/internal/report"
	"github.com/decodelifter/CorfuDB/internal/transport"
	"github.com/decodelifter/CorfuDB/internal/transport/memory"
	"github.com/decodelifter/CorfuDB/internal/transport/nsqpeer"
)

var (
	localFlag     string
	peersFlag     []string
	epochFlag     int64
	transportFlag string
	nsqdAddrFlag  string
)

func main() {
	// Configure the logger to print Info and above to stderr
	log.Root().SetHandler(log.LvlFilterHandler(log.LvlInfo, log.StreamHandler(os.Stderr, log.TerminalFormat(true))))

	cmdPoll := &cobra.Command{
		Use:   "poll",
		Short: "Run one failure-detection polling round against a static peer layout",
		Run:   runPoll,
	}
	cmdPoll.Flags().StringVar(&localFlag, "local", "", "This node's own endpoint (host:port)")
	cmdPoll.Flags().StringSliceVar(&peersFlag, "peer", nil, "Peer in endpoint=addr form, repeatable")
	cmdPoll.Flags().Int64Var(&epochFlag, "epoch", 0, "Cluster epoch to poll at")
	cmdPoll.Flags().StringVar(&transportFlag, "transport", "memory", "Peer transport: memory or nsqpeer")
	cmdPoll.Flags().StringVar(&nsqdAddrFlag, "nsqd", "127.0.0.1:4150", "nsqd address, required when --transport=nsqpeer")
	cmdPoll.MarkFlagRequired("local")

	rootCmd := &cobra.Command{Use: "sentryd"}
	rootCmd.AddCommand(cmdPoll)
	if err := rootCmd.Execute(); err != nil {
		log.Crit("Command failed", "err", err)
	}
}

func runPoll(cmd *cobra.Command, args []string) {
	local := connectivity.Endpoint(localFlag)

	// addr is carried for a future direct-dial transport; neither memory
	// nor nsqpeer consumes it today - memory never dials anywhere and
	// nsqpeer routes by endpoint name through the shared nsqd.
	peers := make(map[connectivity.Endpoint]string, len(peersFlag))
	for _, p := range peersFlag {
		parts := strings.SplitN(p, "=", 2)
		if len(parts) != 2 {
			log.Crit("Malformed --peer flag, want endpoint=addr", "value", p)
		}
		peers[connectivity.Endpoint(parts[0])] = parts[1]
	}

	rt, closeTransport, err := newRuntime(local, peers)
	if err != nil {
		log.Crit("Failed to build transport", "err", err)
	}
	defer closeTransport()

	p, err := poller.New(local, poller.DefaultConfig())
	if err != nil {
		log.Crit("Invalid poller configuration", "err", err)
	}

	layout := staticLayout{peers: peers, epoch: connectivity.Epoch(epochFlag)}
	metrics := connectivity.SequencerMetrics{Ready: true, SequencerEpoch: connectivity.Epoch(epochFlag)}

	pollReport, err := p.Poll(context.Background(), layout, rt, metrics)
	if err != nil {
		log.Crit("Poll failed", "err", err)
	}

	report.Render(os.Stdout, pollReport)
}

// staticLayout is the CLI's minimal poller.Layout: a fixed peer set at one
// epoch, no reconfiguration.
type staticLayout struct {
	peers map[connectivity.Endpoint]string
	epoch connectivity.Epoch
}

func (l staticLayout) AllServers() []connectivity.Endpoint {
	out := make([]connectivity.Endpoint, 0, len(l.peers))
	for e := range l.peers {
		out = append(out, e)
	}
	return out
}

func (l staticLayout) ActiveLayoutServers() []connectivity.Endpoint {
	return l.AllServers()
}

func (l staticLayout) Epoch() connectivity.Epoch {
	return l.epoch
}

// staticRuntime hands back a pre-built PeerClient per endpoint.
type staticRuntime struct {
	clients map[connectivity.Endpoint]transport.PeerClient
}

func (r staticRuntime) GetRouter(endpoint connectivity.Endpoint) transport.PeerClient {
	return r.clients[endpoint]
}

func newRuntime(local connectivity.Endpoint, peers map[connectivity.Endpoint]string) (poller.Runtime, func(), error) {
	switch transportFlag {
	case "memory":
		clients := make(map[connectivity.Endpoint]transport.PeerClient, len(peers))
		for peer := range peers {
			peer := peer
			clients[peer] = memory.New(func(epoch connectivity.Epoch) (connectivity.NodeState, error) {
				return connectivity.NodeState{
					Connectivity: connectivity.Connected(peer, map[connectivity.Endpoint]connectivity.ConnectionStatus{peer: connectivity.StatusOK}, epoch),
				}, nil
			})
		}
		return staticRuntime{clients: clients}, func() {}, nil

	case "nsqpeer":
		clients := make(map[connectivity.Endpoint]transport.PeerClient, len(peers))
		dialed := make([]*nsqpeer.Client, 0, len(peers))
		for peer := range peers {
			client, err := nsqpeer.Dial(nsqdAddrFlag, local, peer, log.Root())
			if err != nil {
				for _, d := range dialed {
					d.Close()
				}
				return nil, func() {}, fmt.Errorf("dialing %s: %w", peer, err)
			}
			dialed = append(dialed, client)
			clients[peer] = client
		}
		return staticRuntime{clients: clients}, func() {
			for _, d := range dialed {
				d.Close()
			}
		}, nil

	default:
		return nil, func() {}, fmt.Errorf("unknown transport %q", transportFlag)
	}
}
