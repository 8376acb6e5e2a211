// Package orchestration sequences the operator-facing deployment verbs.
// Each verb is a strictly ordered chain of remote calls and bounded
// waits against the controller, registry, and provisioning gateway, with
// metadata persisted at checkpoints so partial progress survives a
// crash.
package orchestration

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/nimbusphere/nimbus/internal/config"
	"github.com/nimbusphere/nimbus/internal/layout"
	"github.com/nimbusphere/nimbus/internal/state"
)

// DashboardPort is where the deployment's operator dashboard serves once
// the platform is up.
const DashboardPort = 1080

// ControllerClient is the authenticated RPC surface of the controller
// service on a node.
type ControllerClient interface {
	StartRoles(ctx context.Context, roles map[string][]string) error
	Status(ctx context.Context) (string, error)
	AllPublicAddresses(ctx context.Context) ([]string, error)
	RegistryAddress(ctx context.Context) (string, error)
	StopApp(ctx context.Context, appID string) error
	AppRunning(ctx context.Context, appID string) (bool, error)
	MarkUploadComplete(ctx context.Context, appID, remotePath string) error
	TriggerUpdate(ctx context.Context, appIDs []string) error
}

// RegistryClient is the authenticated RPC surface of the user and
// application registry service.
type RegistryClient interface {
	UserExists(ctx context.Context, username string) (bool, error)
	AppExists(ctx context.Context, appID string) (bool, error)
	AppOwner(ctx context.Context, appID string) (string, error)
	ReserveAppID(ctx context.Context, username, appID, runtime string) error
	ChangePassword(ctx context.Context, username, hashedPassword string) error
	GrantAdminRole(ctx context.Context, username string) error
	ServingAddress(ctx context.Context, appID, keyname string) (string, int, error)
}

// Gateway is the remote provisioning capability, selected per
// infrastructure kind at the start of each verb.
type Gateway interface {
	StartHeadNode(ctx context.Context, opts *config.Options, operationID string, lay *layout.NodeLayout) (publicAddr, instanceID string, err error)
	CopyMetadata(ctx context.Context, host, keyname string) error
	CreateAccount(ctx context.Context, username, password, registryHost, keyname string) error
	WaitForAllNodesInitialized(ctx context.Context, headHost, keyname string) error
	Teardown(ctx context.Context, meta *state.Metadata) error
	CopyAppBundle(ctx context.Context, localDir, headHost, keyname string) (string, error)
	FetchLogs(ctx context.Context, host, keyname, destDir string) error
	ShellProbe(ctx context.Context, host, keyname, command string) error
}

// PortWaiter blocks until a TCP endpoint accepts connections or the
// bounded wait expires. netutil.Poller satisfies it.
type PortWaiter interface {
	WaitForPort(ctx context.Context, host string, port int, timeout time.Duration) error
}

// Backoff groups the pacing knobs for waits and cooldowns so tests can
// inject near-zero intervals.
type Backoff struct {
	// PollInterval paces the remove-app drain poll and
	// serving-address retries.
	PollInterval time.Duration

	// RedeployDelay is slept before the serving-port wait when an
	// application already existed, giving the controller time to
	// restart the serving process.
	RedeployDelay time.Duration

	Timeouts config.Timeouts
}

// DefaultBackoff returns production pacing.
func DefaultBackoff() Backoff {
	return Backoff{
		PollInterval:  5 * time.Second,
		RedeployDelay: 20 * time.Second,
		Timeouts:      config.DefaultTimeouts(),
	}
}

// Orchestrator composes the consumed services into the eight verbs. All
// collaborators are injected; the factory fields construct authenticated
// clients per deployment.
type Orchestrator struct {
	Planner layout.Planner
	Store   state.Store

	// NewController and NewRegistry build RPC clients for a host using
	// the deployment secret.
	NewController func(host, secret string) ControllerClient
	NewRegistry   func(host, secret string) RegistryClient

	// NewGateway builds the provisioning gateway for an infrastructure
	// kind.
	NewGateway func(kind string, opts *config.Options) (Gateway, error)

	// Credentials resolves admin or owner credentials. The orchestrator
	// never prompts directly.
	Credentials config.CredentialSource

	// Confirm asks the operator a yes/no question for destructive
	// verbs.
	Confirm func(ctx context.Context, question string) (bool, error)

	// EnsureKeys makes sure SSH key material exists for a keyname
	// before provisioning starts.
	EnsureKeys func(keyname string) error

	// NewSecret generates a deployment secret.
	NewSecret func() (string, error)

	Poller  PortWaiter
	Backoff Backoff
	Log     zerolog.Logger
}

// loadMetadata reads and sanity-checks the metadata for a keyname. A
// missing record is a precondition failure; a present but incomplete one
// means local state is corrupted.
func (o *Orchestrator) loadMetadata(keyname string) (*state.Metadata, error) {
	meta, err := o.Store.Load(keyname)
	if err != nil {
		if errors.Is(err, state.ErrNotFound) {
			return nil, Preconditionf("deployment %q is not running: %w", keyname, err)
		}
		return nil, err
	}
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	return meta, nil
}

// registryFor resolves the registry service's address through the head
// node's controller and returns its host plus an authenticated client.
func (o *Orchestrator) registryFor(ctx context.Context, ctrl ControllerClient, meta *state.Metadata) (string, RegistryClient, error) {
	addr, err := ctrl.RegistryAddress(ctx)
	if err != nil {
		return "", nil, classifyRemote(err, "controller", meta.HeadNode)
	}
	host, _, err := splitAddr(addr)
	if err != nil {
		return "", nil, err
	}
	return host, o.NewRegistry(host, meta.Secret), nil
}

// splitAddr splits host:port, tolerating a bare host.
func splitAddr(addr string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(addr)
	if err != nil {
		return addr, 0, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, Unreachablef("malformed address %q from controller", addr)
	}
	return host, port, nil
}

// sleep waits for d unless the context ends first.
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
