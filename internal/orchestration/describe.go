package orchestration

import (
	"context"

	"github.com/nimbusphere/nimbus/internal/config"
)

// NodeStatus is one node's answer in a status report. Err is set when
// the node could not be queried; the report as a whole still succeeds.
type NodeStatus struct {
	Addr   string
	Status string
	Err    error
}

// StatusReport is the outcome of DescribeInstances.
type StatusReport struct {
	Keyname  string
	HeadNode string
	Nodes    []NodeStatus
}

// Warnings returns the nodes that could not be queried.
func (r *StatusReport) Warnings() []NodeStatus {
	var out []NodeStatus
	for _, n := range r.Nodes {
		if n.Err != nil {
			out = append(out, n)
		}
	}
	return out
}

// DescribeInstances lists the deployment's nodes and queries each one's
// status. Nodes are queried one at a time; a failure is recorded as a
// warning for that node and the remaining nodes are still visited.
// Only an unreachable head controller fails the whole call.
func (o *Orchestrator) DescribeInstances(ctx context.Context, opts *config.Options) (*StatusReport, error) {
	meta, err := o.loadMetadata(opts.Keyname)
	if err != nil {
		return nil, err
	}

	ctrl := o.NewController(meta.HeadNode, meta.Secret)
	addrs, err := ctrl.AllPublicAddresses(ctx)
	if err != nil {
		return nil, classifyRemote(err, "controller", meta.HeadNode)
	}

	report := &StatusReport{Keyname: meta.Keyname, HeadNode: meta.HeadNode}
	for _, addr := range addrs {
		node := NodeStatus{Addr: addr}
		status, err := o.NewController(addr, meta.Secret).Status(ctx)
		if err != nil {
			node.Err = err
			o.Log.Warn().Err(err).Str("node", addr).Msg("could not query node status")
		} else {
			node.Status = status
		}
		report.Nodes = append(report.Nodes, node)
	}
	return report, nil
}
