package gateway

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/hetznercloud/hcloud-go/v2/hcloud"

	"github.com/nimbusphere/nimbus/internal/config"
	"github.com/nimbusphere/nimbus/internal/layout"
	"github.com/nimbusphere/nimbus/internal/platform/controller"
	"github.com/nimbusphere/nimbus/internal/state"
	"github.com/nimbusphere/nimbus/internal/util/retry"
)

// keynameLabel marks every instance that belongs to a deployment so
// teardown can find them with a single label selector.
const keynameLabel = "nimbus-keyname"

// CloudAPI is the slice of the cloud provider used by the gateway.
// RealCloudAPI implements it against Hetzner Cloud; tests inject fakes.
type CloudAPI interface {
	// CreateServer creates a server and returns its ID and public IP
	// once the server is running.
	CreateServer(ctx context.Context, name, image, serverType, location string, labels map[string]string, sshKeyName string) (id, publicIP string, err error)

	// DeleteServersByLabel deletes every server matching the label
	// selector and returns how many were removed.
	DeleteServersByLabel(ctx context.Context, selector string) (int, error)

	// EnsureSSHKey registers the public key under the given name if it
	// is not already present.
	EnsureSSHKey(ctx context.Context, name, publicKey string) error

	// RemoveSSHKey deletes the registered key, ignoring absence.
	RemoveSSHKey(ctx context.Context, name string) error
}

// RealCloudAPI implements CloudAPI using the Hetzner Cloud API.
type RealCloudAPI struct {
	client *hcloud.Client
}

// NewRealCloudAPI creates a cloud API client for the given token.
func NewRealCloudAPI(token string) *RealCloudAPI {
	return &RealCloudAPI{client: hcloud.NewClient(hcloud.WithToken(token))}
}

// CreateServer creates a server and waits for it to report a public IP.
func (c *RealCloudAPI) CreateServer(ctx context.Context, name, image, serverType, location string, labels map[string]string, sshKeyName string) (string, string, error) {
	serverTypeObj, _, err := c.client.ServerType.Get(ctx, serverType)
	if err != nil {
		return "", "", fmt.Errorf("failed to get server type: %w", err)
	}
	if serverTypeObj == nil {
		return "", "", fmt.Errorf("server type not found: %s", serverType)
	}

	imageObj, _, err := c.client.Image.GetForArchitecture(ctx, image, serverTypeObj.Architecture)
	if err != nil {
		return "", "", fmt.Errorf("failed to get image: %w", err)
	}
	if imageObj == nil {
		return "", "", fmt.Errorf("image not found: %s", image)
	}

	sshKey, _, err := c.client.SSHKey.GetByName(ctx, sshKeyName)
	if err != nil {
		return "", "", fmt.Errorf("failed to get ssh key: %w", err)
	}
	if sshKey == nil {
		return "", "", fmt.Errorf("ssh key not found: %s", sshKeyName)
	}

	opts := hcloud.ServerCreateOpts{
		Name:       name,
		ServerType: serverTypeObj,
		Image:      imageObj,
		Labels:     labels,
		SSHKeys:    []*hcloud.SSHKey{sshKey},
	}
	if location != "" {
		opts.Location = &hcloud.Location{Name: location}
	}

	result, _, err := c.client.Server.Create(ctx, opts)
	if err != nil {
		return "", "", fmt.Errorf("failed to create server %s: %w", name, err)
	}

	id := fmt.Sprintf("%d", result.Server.ID)
	var publicIP string
	err = retry.Do(ctx, func() error {
		server, _, err := c.client.Server.GetByID(ctx, result.Server.ID)
		if err != nil {
			return err
		}
		if server == nil || server.Status != hcloud.ServerStatusRunning {
			return fmt.Errorf("server %s not running yet", name)
		}
		if server.PublicNet.IPv4.IP == nil {
			return fmt.Errorf("server %s has no public IP yet", name)
		}
		publicIP = server.PublicNet.IPv4.IP.String()
		return nil
	}, retry.WithMaxRetries(60), retry.WithInitialDelay(5*time.Second), retry.WithMaxDelay(10*time.Second))
	if err != nil {
		return id, "", fmt.Errorf("server %s did not become ready: %w", name, err)
	}
	return id, publicIP, nil
}

// DeleteServersByLabel removes every server matching the selector.
func (c *RealCloudAPI) DeleteServersByLabel(ctx context.Context, selector string) (int, error) {
	servers, err := c.client.Server.AllWithOpts(ctx, hcloud.ServerListOpts{
		ListOpts: hcloud.ListOpts{LabelSelector: selector},
	})
	if err != nil {
		return 0, fmt.Errorf("failed to list servers: %w", err)
	}
	deleted := 0
	for _, server := range servers {
		if _, _, err := c.client.Server.DeleteWithResult(ctx, server); err != nil {
			return deleted, fmt.Errorf("failed to delete server %s: %w", server.Name, err)
		}
		deleted++
	}
	return deleted, nil
}

// EnsureSSHKey registers the public key if no key with the name exists.
func (c *RealCloudAPI) EnsureSSHKey(ctx context.Context, name, publicKey string) error {
	existing, _, err := c.client.SSHKey.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to look up ssh key: %w", err)
	}
	if existing != nil {
		return nil
	}
	_, _, err = c.client.SSHKey.Create(ctx, hcloud.SSHKeyCreateOpts{
		Name:      name,
		PublicKey: publicKey,
	})
	if err != nil {
		return fmt.Errorf("failed to create ssh key %s: %w", name, err)
	}
	return nil
}

// RemoveSSHKey deletes the key when present.
func (c *RealCloudAPI) RemoveSSHKey(ctx context.Context, name string) error {
	key, _, err := c.client.SSHKey.GetByName(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to look up ssh key: %w", err)
	}
	if key == nil {
		return nil
	}
	if _, err := c.client.SSHKey.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete ssh key %s: %w", name, err)
	}
	return nil
}

// CloudGateway provisions instances through a cloud provider API and
// reaches them over SSH once they are running.
type CloudGateway struct {
	nodeOps
	api CloudAPI
}

// NewCloud constructs a gateway for cloud infrastructure.
func NewCloud(cfg Config, api CloudAPI) *CloudGateway {
	return &CloudGateway{nodeOps: newNodeOps(cfg), api: api}
}

// StartHeadNode registers the deployment SSH key, creates the head
// instance, waits for SSH and the controller port, and pushes the role
// layout.
func (g *CloudGateway) StartHeadNode(ctx context.Context, opts *config.Options, operationID string, lay *layout.NodeLayout) (string, string, error) {
	keyPath := g.cfg.PrivateKeyPath(opts.Keyname)
	pub, err := os.ReadFile(keyPath + ".pub")
	if err != nil {
		return "", "", fmt.Errorf("cannot read deployment public key: %w", err)
	}
	if err := g.api.EnsureSSHKey(ctx, opts.Keyname, string(pub)); err != nil {
		return "", "", err
	}

	name := fmt.Sprintf("%s-head", opts.Keyname)
	labels := map[string]string{
		keynameLabel:       opts.Keyname,
		"nimbus-operation": operationID,
		"nimbus-role":      "head",
	}

	g.cfg.Log.Info().
		Str("operation", operationID).
		Str("server", name).
		Str("image", opts.MachineImage).
		Msg("creating head node instance")

	id, publicIP, err := g.api.CreateServer(ctx, name, opts.MachineImage, opts.ServerType, opts.Location, labels, opts.Keyname)
	if err != nil {
		return "", id, err
	}

	head := lay.Head()
	if head == nil {
		return "", id, fmt.Errorf("layout has no head node")
	}
	head.PublicAddr = publicIP
	head.PrivateAddr = publicIP

	if err := g.ShellProbe(ctx, publicIP, opts.Keyname, "true"); err != nil {
		return "", id, err
	}
	if err := g.pushLayout(ctx, publicIP, opts.Keyname, lay); err != nil {
		return "", id, err
	}
	r, err := g.runner(publicIP, opts.Keyname)
	if err != nil {
		return "", id, err
	}
	if _, err := r.Execute(ctx, startControllerCommand); err != nil {
		return "", id, fmt.Errorf("failed to start controller on %s: %w", publicIP, err)
	}
	if err := g.cfg.Poller.WaitForPort(ctx, publicIP, controller.Port, config.DefaultTimeouts().RegistryStart); err != nil {
		return "", id, fmt.Errorf("controller did not come up on %s: %w", publicIP, err)
	}
	return publicIP, id, nil
}

// Teardown terminates every instance labelled with the deployment's
// keyname and removes the registered SSH key.
func (g *CloudGateway) Teardown(ctx context.Context, meta *state.Metadata) error {
	selector := fmt.Sprintf("%s=%s", keynameLabel, meta.Keyname)
	deleted, err := g.api.DeleteServersByLabel(ctx, selector)
	if err != nil {
		return err
	}
	g.cfg.Log.Info().Int("instances", deleted).Str("keyname", meta.Keyname).Msg("terminated cloud instances")
	return g.api.RemoveSSHKey(ctx, meta.Keyname)
}
