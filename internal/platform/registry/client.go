// Package registry implements the client for the user/application
// registry service, which owns account records and application
// ownership and serving-location records.
package registry

import (
	"context"
	"fmt"

	"github.com/nimbusphere/nimbus/internal/platform/rpc"
)

// Port is the registry service port.
const Port = 4343

// Client talks to the registry service.
type Client struct {
	rpc *rpc.Client
}

// New creates a registry client for the given host, authenticated with
// the deployment secret.
func New(host, secret string) *Client {
	return &Client{rpc: rpc.New(host, Port, secret)}
}

// UserExists reports whether an account exists for username.
func (c *Client) UserExists(ctx context.Context, username string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := c.rpc.Call(ctx, "does_user_exist", map[string]string{"username": username}, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// AppExists reports whether an application record exists for appID.
func (c *Client) AppExists(ctx context.Context, appID string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	if err := c.rpc.Call(ctx, "does_app_exist", map[string]string{"app_id": appID}, &resp); err != nil {
		return false, err
	}
	return resp.Exists, nil
}

// AppOwner returns the username owning appID, or empty when the
// application has no registered owner.
func (c *Client) AppOwner(ctx context.Context, appID string) (string, error) {
	var resp struct {
		Owner string `json:"owner"`
	}
	if err := c.rpc.Call(ctx, "get_app_owner", map[string]string{"app_id": appID}, &resp); err != nil {
		return "", err
	}
	return resp.Owner, nil
}

// ReserveAppID registers appID to username before its first upload.
func (c *Client) ReserveAppID(ctx context.Context, username, appID, runtime string) error {
	return c.rpc.Call(ctx, "reserve_app_id", map[string]string{
		"username": username,
		"app_id":   appID,
		"runtime":  runtime,
	}, nil)
}

// ChangePassword updates the account's password digest. The digest is
// computed locally; the clear-text password never crosses the wire.
func (c *Client) ChangePassword(ctx context.Context, username, hashedPassword string) error {
	return c.rpc.Call(ctx, "change_password", map[string]string{
		"username": username,
		"password": hashedPassword,
	}, nil)
}

// GrantAdminRole marks the account as a deployment administrator.
func (c *Client) GrantAdminRole(ctx context.Context, username string) error {
	return c.rpc.Call(ctx, "set_admin_role", map[string]string{"username": username}, nil)
}

// ServingAddress returns where the application is serving traffic.
func (c *Client) ServingAddress(ctx context.Context, appID, keyname string) (string, int, error) {
	var resp struct {
		Host string `json:"host"`
		Port int    `json:"port"`
	}
	if err := c.rpc.Call(ctx, "get_serving_address", map[string]string{
		"app_id":  appID,
		"keyname": keyname,
	}, &resp); err != nil {
		return "", 0, err
	}
	if resp.Host == "" || resp.Port == 0 {
		return "", 0, fmt.Errorf("registry reported no serving address for %s", appID)
	}
	return resp.Host, resp.Port, nil
}
