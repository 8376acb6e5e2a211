// Package gateway drives remote provisioning for a deployment: starting
// the head node, propagating metadata, creating initial accounts, waiting
// for node initialization, fetching logs, and teardown. One Gateway
// implementation exists per infrastructure kind and is selected once at
// the start of each verb.
package gateway

import (
	"context"
	"fmt"
	"os"
	"path"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/nimbusphere/nimbus/internal/config"
	"github.com/nimbusphere/nimbus/internal/layout"
	"github.com/nimbusphere/nimbus/internal/platform/ssh"
	"github.com/nimbusphere/nimbus/internal/state"
	"github.com/nimbusphere/nimbus/internal/util/netutil"
)

// Remote filesystem layout on deployment nodes.
const (
	// MetadataRemotePath is where deployment metadata lives on the head
	// node.
	MetadataRemotePath = "/etc/nimbus/metadata.yaml"

	// LayoutRemotePath tells the head node's controller which roles to
	// start where.
	LayoutRemotePath = "/etc/nimbus/layout.yaml"

	// RemoteLogDir is the platform log directory fetched by gather-logs.
	RemoteLogDir = "/var/log/nimbus"

	// AppStagingDir is where uploaded application bundles are staged on
	// the head node.
	AppStagingDir = "/var/nimbus/apps"

	// startControllerCommand brings up the platform services on the
	// head node.
	startControllerCommand = "systemctl start nimbus-controller"
)

// Gateway is the remote provisioning capability consumed by the
// orchestrator.
type Gateway interface {
	// StartHeadNode brings up the deployment's head node and returns
	// its public address and, for cloud infrastructure, the instance
	// identifier.
	StartHeadNode(ctx context.Context, opts *config.Options, operationID string, lay *layout.NodeLayout) (publicAddr, instanceID string, err error)

	// CopyMetadata pushes the local metadata record for keyname to the
	// given node.
	CopyMetadata(ctx context.Context, host, keyname string) error

	// CreateAccount creates a platform account through the node running
	// the registry. The password digest is computed locally.
	CreateAccount(ctx context.Context, username, password, registryHost, keyname string) error

	// WaitForAllNodesInitialized blocks until every node reported by
	// the head has finished internal initialization.
	WaitForAllNodesInitialized(ctx context.Context, headHost, keyname string) error

	// Teardown stops the deployment: cloud instances are terminated,
	// virtualized nodes have their platform services stopped in place.
	Teardown(ctx context.Context, meta *state.Metadata) error

	// CopyAppBundle stages a local application directory on the head
	// node and returns the remote path.
	CopyAppBundle(ctx context.Context, localDir, headHost, keyname string) (string, error)

	// FetchLogs copies the node's platform log directory into destDir.
	FetchLogs(ctx context.Context, host, keyname, destDir string) error

	// ShellProbe runs a command on a node, confirming SSH reachability.
	ShellProbe(ctx context.Context, host, keyname, command string) error
}

// Runner is the per-node SSH surface the gateway uses. *ssh.Client
// implements it.
type Runner interface {
	Execute(ctx context.Context, command string) (string, error)
	UploadBytes(ctx context.Context, data []byte, remotePath string) error
	UploadDir(ctx context.Context, localDir, remoteDir string) error
	DownloadDir(ctx context.Context, remoteDir, localDir string) error
}

// Config holds what both gateway kinds need to reach nodes.
type Config struct {
	// SSHUser is the account used on deployment nodes.
	SSHUser string

	// PrivateKeyPath resolves the deployment's SSH private key.
	PrivateKeyPath func(keyname string) string

	// MetadataPath resolves the local metadata file for CopyMetadata.
	MetadataPath func(keyname string) string

	// PollInterval paces initialization polling.
	PollInterval time.Duration

	// InitTimeout bounds WaitForAllNodesInitialized.
	InitTimeout time.Duration

	// Poller waits for remote service ports.
	Poller netutil.Poller

	// Dial opens an SSH runner for a node. When nil, a real SSH client
	// is used; tests inject fakes.
	Dial func(host, user string, privateKey []byte) (Runner, error)

	Log zerolog.Logger
}

func (c *Config) withDefaults() Config {
	out := *c
	if out.SSHUser == "" {
		out.SSHUser = "root"
	}
	if out.PollInterval <= 0 {
		out.PollInterval = 5 * time.Second
	}
	if out.InitTimeout <= 0 {
		out.InitTimeout = config.DefaultTimeouts().NodesInitialized
	}
	if out.Dial == nil {
		out.Dial = func(host, user string, privateKey []byte) (Runner, error) {
			return ssh.NewClient(&ssh.Config{Host: host, User: user, PrivateKey: privateKey})
		}
	}
	return out
}

// nodeOps implements the SSH-backed operations shared by both gateway
// kinds.
type nodeOps struct {
	cfg Config
}

func newNodeOps(cfg Config) nodeOps {
	return nodeOps{cfg: cfg.withDefaults()}
}

// runner opens an SSH connection to a node using the deployment's key.
func (o nodeOps) runner(host, keyname string) (Runner, error) {
	keyPath := o.cfg.PrivateKeyPath(keyname)
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("cannot read deployment key %s: %w", keyPath, err)
	}
	return o.cfg.Dial(host, o.cfg.SSHUser, key)
}

func (o nodeOps) CopyMetadata(ctx context.Context, host, keyname string) error {
	data, err := os.ReadFile(o.cfg.MetadataPath(keyname))
	if err != nil {
		return fmt.Errorf("cannot read local metadata: %w", err)
	}
	r, err := o.runner(host, keyname)
	if err != nil {
		return err
	}
	if err := r.UploadBytes(ctx, data, MetadataRemotePath); err != nil {
		return fmt.Errorf("failed to copy metadata to %s: %w", host, err)
	}
	return nil
}

func (o nodeOps) CreateAccount(ctx context.Context, username, password, registryHost, keyname string) error {
	r, err := o.runner(registryHost, keyname)
	if err != nil {
		return err
	}

	digest := config.HashPassword(username, password)
	command := fmt.Sprintf("nimbus-platform create-user --username %s --digest %s", username, digest)
	if _, err := r.Execute(ctx, command); err != nil {
		return fmt.Errorf("failed to create account for %s: %w", username, err)
	}
	o.cfg.Log.Info().Str("username", username).Str("host", registryHost).Msg("created platform account")
	return nil
}

func (o nodeOps) WaitForAllNodesInitialized(ctx context.Context, headHost, keyname string) error {
	r, err := o.runner(headHost, keyname)
	if err != nil {
		return err
	}

	deadline := time.Now().Add(o.cfg.InitTimeout)
	for {
		out, err := r.Execute(ctx, "nimbus-platform nodes --uninitialized")
		if err == nil && strings.TrimSpace(out) == "" {
			return nil
		}
		if time.Now().After(deadline) {
			if err != nil {
				return fmt.Errorf("nodes did not finish initializing within %s: %w", o.cfg.InitTimeout, err)
			}
			return fmt.Errorf("nodes did not finish initializing within %s: still waiting on %s",
				o.cfg.InitTimeout, strings.TrimSpace(out))
		}

		o.cfg.Log.Debug().Str("head", headHost).Msg("waiting for nodes to finish initializing")
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(o.cfg.PollInterval):
		}
	}
}

func (o nodeOps) CopyAppBundle(ctx context.Context, localDir, headHost, keyname string) (string, error) {
	r, err := o.runner(headHost, keyname)
	if err != nil {
		return "", err
	}

	remoteDir := path.Join(AppStagingDir, fmt.Sprintf("%s-%d", path.Base(localDir), time.Now().Unix()))
	if err := r.UploadDir(ctx, localDir, remoteDir); err != nil {
		return "", fmt.Errorf("failed to stage bundle on %s: %w", headHost, err)
	}
	return remoteDir, nil
}

func (o nodeOps) FetchLogs(ctx context.Context, host, keyname, destDir string) error {
	r, err := o.runner(host, keyname)
	if err != nil {
		return err
	}
	if err := r.DownloadDir(ctx, RemoteLogDir, destDir); err != nil {
		return fmt.Errorf("failed to fetch logs from %s: %w", host, err)
	}
	return nil
}

func (o nodeOps) ShellProbe(ctx context.Context, host, keyname, command string) error {
	r, err := o.runner(host, keyname)
	if err != nil {
		return err
	}
	if _, err := r.Execute(ctx, command); err != nil {
		return fmt.Errorf("node %s is not reachable over SSH: %w", host, err)
	}
	return nil
}

// pushLayout uploads the planned role map for the controller to act on.
func (o nodeOps) pushLayout(ctx context.Context, host, keyname string, lay *layout.NodeLayout) error {
	data, err := yaml.Marshal(lay.RoleMap())
	if err != nil {
		return fmt.Errorf("failed to encode layout: %w", err)
	}
	r, err := o.runner(host, keyname)
	if err != nil {
		return err
	}
	if err := r.UploadBytes(ctx, data, LayoutRemotePath); err != nil {
		return fmt.Errorf("failed to push layout to %s: %w", host, err)
	}
	return nil
}

// stopNodes stops platform services on every roster node, attempting all
// of them before reporting failures.
func (o nodeOps) stopNodes(ctx context.Context, meta *state.Metadata) error {
	var result *multierror.Error
	for _, addr := range meta.Addresses() {
		r, err := o.runner(addr, meta.Keyname)
		if err != nil {
			result = multierror.Append(result, err)
			continue
		}
		if _, err := r.Execute(ctx, "systemctl stop 'nimbus-*'"); err != nil {
			result = multierror.Append(result, fmt.Errorf("failed to stop services on %s: %w", addr, err))
		}
	}
	return result.ErrorOrNil()
}
