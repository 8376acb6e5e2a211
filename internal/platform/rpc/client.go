// Package rpc implements the JSON-over-HTTP transport shared by the
// controller and registry clients. Every call carries the deployment
// secret; the services reject mismatches with 401/403, which is surfaced
// as ErrAuthentication and never retried.
package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// SecretHeader carries the deployment secret on every request.
const SecretHeader = "X-Nimbus-Secret"

// ErrAuthentication indicates the service rejected the deployment secret.
var ErrAuthentication = errors.New("service rejected the deployment secret")

// RemoteError is an active refusal from the service, carrying its reason
// text.
type RemoteError struct {
	Method string
	Status int
	Reason string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s refused (status %d): %s", e.Method, e.Status, e.Reason)
}

// Client is a JSON-over-HTTP RPC client for one service endpoint.
type Client struct {
	base   string
	secret string
	http   *retryablehttp.Client
}

// New creates a client for the service at host:port.
func New(host string, port int, secret string) *Client {
	h := retryablehttp.NewClient()
	h.RetryMax = 3
	h.RetryWaitMin = 500 * time.Millisecond
	h.RetryWaitMax = 5 * time.Second
	h.HTTPClient.Timeout = 30 * time.Second
	h.Logger = nil

	return &Client{
		base:   "http://" + net.JoinHostPort(host, strconv.Itoa(port)),
		secret: secret,
		http:   h,
	}
}

// Call invokes method with params and decodes the response into result
// when result is non-nil.
func (c *Client) Call(ctx context.Context, method string, params, result any) error {
	var body io.Reader
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("failed to encode %s request: %w", method, err)
		}
		body = bytes.NewReader(data)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/"+method, body)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", method, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(SecretHeader, c.secret)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s call failed: %w", method, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", method, err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%s: %w", method, ErrAuthentication)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return &RemoteError{Method: method, Status: resp.StatusCode, Reason: string(bytes.TrimSpace(data))}
	}

	if result == nil {
		return nil
	}
	if err := json.Unmarshal(data, result); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", method, err)
	}
	return nil
}
