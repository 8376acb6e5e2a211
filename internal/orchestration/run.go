package orchestration

import (
	"context"
	"net"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/nimbusphere/nimbus/internal/config"
	"github.com/nimbusphere/nimbus/internal/platform/registry"
	"github.com/nimbusphere/nimbus/internal/state"
)

// RunResult reports where the freshly started deployment can be reached.
type RunResult struct {
	OperationID string
	HeadNode    string
	InstanceID  string
	Dashboard   string
}

// RunInstances provisions a new deployment: plans the topology, starts
// the head node, waits for the registry and all nodes, creates the admin
// account, and waits for the dashboard. Metadata is persisted at every
// checkpoint that introduces new reachable addresses, and a copy is
// pushed to the head node so the deployment can describe itself.
//
// No rollback is attempted on failure; the operator inspects or runs
// terminate.
func (o *Orchestrator) RunInstances(ctx context.Context, opts *config.Options) (*RunResult, error) {
	if o.Store.Exists(opts.Keyname) && !opts.Force {
		return nil, Preconditionf("deployment %q already exists; terminate it first or pass --force", opts.Keyname)
	}

	plan := o.Planner.Plan(opts)
	if !plan.Valid() {
		return nil, Configf("invalid topology: %s", strings.Join(plan.Errors, "; "))
	}
	if !plan.Supported {
		o.Log.Warn().Str("keyname", opts.Keyname).Msg("placement is valid but not officially supported; proceeding")
	}

	operationID := uuid.NewString()
	log := o.Log.With().Str("keyname", opts.Keyname).Str("operation", operationID).Logger()
	log.Info().Msg("starting deployment")

	secret, err := o.NewSecret()
	if err != nil {
		return nil, err
	}
	if err := o.EnsureKeys(opts.Keyname); err != nil {
		return nil, err
	}

	gw, err := o.NewGateway(opts.InfrastructureKind(), opts)
	if err != nil {
		return nil, Configf("cannot provision on %q: %w", opts.InfrastructureKind(), err)
	}

	headAddr, instanceID, err := gw.StartHeadNode(ctx, opts, operationID, plan.Layout)
	if err != nil {
		return nil, Unreachablef("starting head node: %w", err)
	}
	log.Info().Str("head", headAddr).Msg("head node is up")

	meta := &state.Metadata{
		Keyname:        opts.Keyname,
		Secret:         secret,
		HeadNode:       headAddr,
		InstanceID:     instanceID,
		Infrastructure: opts.InfrastructureKind(),
	}
	meta.MergeLayout(plan.Layout)
	if err := o.persist(ctx, gw, meta); err != nil {
		return nil, err
	}

	ctrl := o.NewController(headAddr, secret)
	regAddr, err := ctrl.RegistryAddress(ctx)
	if err != nil {
		return nil, classifyRemote(err, "controller", headAddr)
	}
	regHost, regPort, err := splitAddr(regAddr)
	if err != nil {
		return nil, err
	}
	if regPort == 0 {
		regPort = registry.Port
	}
	if err := o.Poller.WaitForPort(ctx, regHost, regPort, o.Backoff.Timeouts.RegistryStart); err != nil {
		return nil, classifyWait(err, "registry service", regHost, regPort)
	}

	// The roster may have grown beyond the planned layout, for cloud
	// infrastructure that starts sibling nodes alongside the head.
	if addrs, err := ctrl.AllPublicAddresses(ctx); err == nil {
		mergeAddresses(meta, addrs)
	} else {
		log.Warn().Err(err).Msg("could not refresh node roster from controller")
	}
	if err := o.persist(ctx, gw, meta); err != nil {
		return nil, err
	}

	creds, err := o.Credentials.Credentials(ctx)
	if err != nil {
		return nil, Configf("resolving admin credentials: %w", err)
	}
	if err := gw.CreateAccount(ctx, creds.Username, creds.Password, regHost, opts.Keyname); err != nil {
		return nil, Unreachablef("creating admin account: %w", err)
	}
	reg := o.NewRegistry(regHost, secret)
	if err := reg.GrantAdminRole(ctx, creds.Username); err != nil {
		return nil, classifyRemote(err, "registry", regHost)
	}
	log.Info().Str("admin", creds.Username).Msg("admin account ready")

	if err := gw.WaitForAllNodesInitialized(ctx, headAddr, opts.Keyname); err != nil {
		return nil, Timeoutf("waiting for node initialization: %w", err)
	}
	if err := o.persist(ctx, gw, meta); err != nil {
		return nil, err
	}

	if err := o.Poller.WaitForPort(ctx, headAddr, DashboardPort, o.Backoff.Timeouts.DashboardStart); err != nil {
		return nil, classifyWait(err, "dashboard", headAddr, DashboardPort)
	}

	log.Info().Msg("deployment is running")
	return &RunResult{
		OperationID: operationID,
		HeadNode:    headAddr,
		InstanceID:  instanceID,
		Dashboard:   addrString(headAddr, DashboardPort),
	}, nil
}

// persist saves metadata locally and mirrors it to the head node. A
// failed mirror is logged but does not fail the verb; the local record
// is authoritative.
func (o *Orchestrator) persist(ctx context.Context, gw Gateway, meta *state.Metadata) error {
	if err := o.Store.Save(meta); err != nil {
		return err
	}
	if err := gw.CopyMetadata(ctx, meta.HeadNode, meta.Keyname); err != nil {
		o.Log.Warn().Err(err).Str("head", meta.HeadNode).Msg("could not mirror metadata to head node")
	}
	return nil
}

// mergeAddresses adds roster addresses the metadata does not know yet.
func mergeAddresses(meta *state.Metadata, addrs []string) {
	known := make(map[string]bool, len(meta.Nodes))
	for _, n := range meta.Nodes {
		known[n.PublicAddr] = true
	}
	for _, addr := range addrs {
		if addr == "" || known[addr] {
			continue
		}
		meta.Nodes = append(meta.Nodes, state.NodeRecord{PublicAddr: addr})
		known[addr] = true
	}
}

func addrString(host string, port int) string {
	return net.JoinHostPort(host, strconv.Itoa(port))
}
