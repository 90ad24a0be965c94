// Package report renders a poller.PollReport as plain-text tables, the
// same diagnostic role karalabe-minority/cluster plays for a broker
// cluster's connection views.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/olekukonko/tablewriter"

	"github.com/decodelifter/CorfuDB/internal/connectivity"
	"github.com/decodelifter/CorfuDB/internal/poller"
)

// Render writes a human-readable summary of report to w: a node table, a
// connection matrix, and (if non-empty) a wrong-epoch table.
func Render(w io.Writer, report poller.PollReport) {
	endpoints := sortedEndpoints(report.ClusterState)

	fmt.Fprintf(w, "Poll epoch: %d\n\n", report.PollEpoch)

	reportNodes(w, report.ClusterState, endpoints)
	reportConnectionMatrix(w, report.ClusterState, endpoints)
	reportWrongEpochs(w, report.WrongEpochs)
}

func sortedEndpoints(state connectivity.ClusterState) []connectivity.Endpoint {
	endpoints := make([]connectivity.Endpoint, 0, state.Size())
	for e := range state.Nodes {
		endpoints = append(endpoints, e)
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i] < endpoints[j] })
	return endpoints
}

func reportNodes(w io.Writer, state connectivity.ClusterState, endpoints []connectivity.Endpoint) {
	fmt.Fprintf(w, "Cluster state:\n")

	rows := make([][]string, 0, len(endpoints))
	for _, e := range endpoints {
		node, ok := state.GetNode(e)
		if !ok {
			continue
		}
		local := ""
		if e == state.LocalEndpoint {
			local = "*"
		}
		rows = append(rows, []string{
			local,
			string(e),
			string(node.Connectivity.Type),
			fmt.Sprintf("%d", node.Connectivity.Epoch),
			fmt.Sprintf("%d", node.Heartbeat.Counter),
		})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"", "Endpoint", "Type", "Epoch", "Heartbeat"})
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.AppendBulk(rows)
	table.Render()

	fmt.Fprintf(w, "\n")
}

func reportConnectionMatrix(w io.Writer, state connectivity.ClusterState, endpoints []connectivity.Endpoint) {
	fmt.Fprintf(w, "Connection matrix:\n")

	header := make([]string, 0, len(endpoints))
	for i := range endpoints {
		header = append(header, fmt.Sprintf("%d", i+1))
	}

	rows := make([][]string, 0, len(endpoints))
	for i, src := range endpoints {
		node, ok := state.GetNode(src)
		row := []string{fmt.Sprintf("%d", i+1)}
		for _, dst := range endpoints {
			if !ok {
				row = append(row, "-")
				continue
			}
			status, err := node.Connectivity.GetConnectionStatus(dst)
			switch {
			case err != nil:
				row = append(row, "-")
			case status == connectivity.StatusOK:
				row = append(row, "OK")
			default:
				row = append(row, "FAILED")
			}
		}
		rows = append(rows, row)
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(append([]string{""}, header...))
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.AppendBulk(rows)
	table.Render()

	fmt.Fprintf(w, "\n")
}

func reportWrongEpochs(w io.Writer, wrongEpochs map[connectivity.Endpoint]connectivity.Epoch) {
	if len(wrongEpochs) == 0 {
		return
	}

	fmt.Fprintf(w, "Wrong epoch:\n")

	endpoints := make([]connectivity.Endpoint, 0, len(wrongEpochs))
	for e := range wrongEpochs {
		endpoints = append(endpoints, e)
	}
	sort.Slice(endpoints, func(i, j int) bool { return endpoints[i] < endpoints[j] })

	rows := make([][]string, 0, len(endpoints))
	for _, e := range endpoints {
		rows = append(rows, []string{string(e), fmt.Sprintf("%d", wrongEpochs[e])})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Endpoint", "Reported epoch"})
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.AppendBulk(rows)
	table.Render()

	fmt.Fprintf(w, "\n")
}
