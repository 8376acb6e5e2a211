package orchestration

import (
	"context"
	"strings"

	"github.com/nimbusphere/nimbus/internal/config"
)

// AddInstances grows a running deployment by the nodes in the options'
// role map. The head role may only be introduced by RunInstances, so any
// topology naming one is rejected before a single remote call. The
// start-roles instruction is fire and forget; callers poll
// DescribeInstances for completion.
func (o *Orchestrator) AddInstances(ctx context.Context, opts *config.Options) error {
	plan := o.Planner.PlanIncrement(opts)
	if !plan.Valid() {
		return Configf("invalid topology: %s", strings.Join(plan.Errors, "; "))
	}

	meta, err := o.loadMetadata(opts.Keyname)
	if err != nil {
		return err
	}

	if !opts.IsCloud() {
		gw, err := o.NewGateway(meta.Infrastructure, opts)
		if err != nil {
			return Configf("cannot provision on %q: %w", meta.Infrastructure, err)
		}
		for _, addr := range plan.Layout.Addresses() {
			if err := gw.ShellProbe(ctx, addr, opts.Keyname, "true"); err != nil {
				return Unreachablef("new node %s does not accept SSH: %w", addr, err)
			}
		}
	}

	ctrl := o.NewController(meta.HeadNode, meta.Secret)
	if err := ctrl.StartRoles(ctx, plan.Layout.RoleMap()); err != nil {
		return classifyRemote(err, "controller", meta.HeadNode)
	}

	meta.MergeLayout(plan.Layout)
	if err := o.Store.Save(meta); err != nil {
		return err
	}

	o.Log.Info().
		Str("keyname", opts.Keyname).
		Int("nodes", len(plan.Layout.Nodes)).
		Msg("requested role start; poll status for completion")
	return nil
}
