package gateway

import (
	"context"
	"fmt"

	"github.com/nimbusphere/nimbus/internal/config"
	"github.com/nimbusphere/nimbus/internal/layout"
	"github.com/nimbusphere/nimbus/internal/platform/controller"
	"github.com/nimbusphere/nimbus/internal/state"
)

// VirtualizedGateway provisions over pre-existing machines reachable by
// SSH. It never creates or destroys instances; teardown stops platform
// services in place.
type VirtualizedGateway struct {
	nodeOps
}

// NewVirtualized constructs a gateway for the virtualized infrastructure
// kind.
func NewVirtualized(cfg Config) *VirtualizedGateway {
	return &VirtualizedGateway{nodeOps: newNodeOps(cfg)}
}

// StartHeadNode verifies the head machine is reachable, pushes the role
// layout, starts the controller and waits for its port. The returned
// instance identifier is always empty for virtualized deployments.
func (g *VirtualizedGateway) StartHeadNode(ctx context.Context, opts *config.Options, operationID string, lay *layout.NodeLayout) (string, string, error) {
	head := lay.Head()
	if head == nil {
		return "", "", fmt.Errorf("layout has no head node")
	}
	host := head.PublicAddr

	g.cfg.Log.Info().
		Str("operation", operationID).
		Str("host", host).
		Msg("starting head node on existing machine")

	if err := g.ShellProbe(ctx, host, opts.Keyname, "true"); err != nil {
		return "", "", err
	}
	if err := g.pushLayout(ctx, host, opts.Keyname, lay); err != nil {
		return "", "", err
	}

	r, err := g.runner(host, opts.Keyname)
	if err != nil {
		return "", "", err
	}
	if _, err := r.Execute(ctx, startControllerCommand); err != nil {
		return "", "", fmt.Errorf("failed to start controller on %s: %w", host, err)
	}

	addr := fmt.Sprintf("%s:%d", host, controller.Port)
	if err := g.cfg.Poller.WaitForPort(ctx, host, controller.Port, config.DefaultTimeouts().RegistryStart); err != nil {
		return "", "", fmt.Errorf("controller did not come up at %s: %w", addr, err)
	}
	return host, "", nil
}

// Teardown stops platform services on every roster node.
func (g *VirtualizedGateway) Teardown(ctx context.Context, meta *state.Metadata) error {
	g.cfg.Log.Info().Str("keyname", meta.Keyname).Msg("stopping platform services on all nodes")
	return g.stopNodes(ctx, meta)
}
