// Package controller implements the client for the per-deployment
// controller service running on the head node. The controller is
// authoritative for roles, node status, and application lifecycle
// triggers.
package controller

import (
	"context"
	"fmt"

	"github.com/nimbusphere/nimbus/internal/platform/rpc"
)

// Port is the controller service port on every node.
const Port = 17443

// Client talks to the controller on one node.
type Client struct {
	rpc *rpc.Client
}

// New creates a controller client for the given node, authenticated with
// the deployment secret.
func New(host, secret string) *Client {
	return &Client{rpc: rpc.New(host, Port, secret)}
}

// StartRoles instructs the controller to start the given roles on the
// given addresses. The call returns once the instruction is accepted;
// the controller carries it out asynchronously.
func (c *Client) StartRoles(ctx context.Context, roles map[string][]string) error {
	return c.rpc.Call(ctx, "start_roles", map[string]any{"roles": roles}, nil)
}

// Status returns the node's human-readable status report.
func (c *Client) Status(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.rpc.Call(ctx, "get_status", nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}

// AllPublicAddresses returns the public addresses of every node the
// controller knows about.
func (c *Client) AllPublicAddresses(ctx context.Context) ([]string, error) {
	var resp struct {
		Addresses []string `json:"addresses"`
	}
	if err := c.rpc.Call(ctx, "get_all_public_addresses", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Addresses, nil
}

// RegistryAddress resolves the host currently running the registry
// service.
func (c *Client) RegistryAddress(ctx context.Context) (string, error) {
	var resp struct {
		Address string `json:"address"`
	}
	if err := c.rpc.Call(ctx, "get_registry_address", nil, &resp); err != nil {
		return "", err
	}
	if resp.Address == "" {
		return "", fmt.Errorf("controller reported no registry address")
	}
	return resp.Address, nil
}

// StopApp instructs the controller to stop serving the application.
func (c *Client) StopApp(ctx context.Context, appID string) error {
	return c.rpc.Call(ctx, "stop_app", map[string]string{"app_id": appID}, nil)
}

// AppRunning reports whether the application is still serving.
func (c *Client) AppRunning(ctx context.Context, appID string) (bool, error) {
	var resp struct {
		Running bool `json:"running"`
	}
	if err := c.rpc.Call(ctx, "is_app_running", map[string]string{"app_id": appID}, &resp); err != nil {
		return false, err
	}
	return resp.Running, nil
}

// MarkUploadComplete tells the controller the application bundle has been
// staged at remotePath on the head node.
func (c *Client) MarkUploadComplete(ctx context.Context, appID, remotePath string) error {
	return c.rpc.Call(ctx, "done_uploading", map[string]string{
		"app_id": appID,
		"path":   remotePath,
	}, nil)
}

// TriggerUpdate asks the controller to (re)start the given applications.
func (c *Client) TriggerUpdate(ctx context.Context, appIDs []string) error {
	return c.rpc.Call(ctx, "update", map[string]any{"app_ids": appIDs}, nil)
}
