package controller

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusphere/nimbus/internal/platform/rpc"
)

// controllerStub serves a canned controller API for client tests.
type controllerStub struct {
	t        *testing.T
	statuses map[string]any
	requests []string
}

func (s *controllerStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get(rpc.SecretHeader) != "s3cret" {
		http.Error(w, "bad secret", http.StatusUnauthorized)
		return
	}
	s.requests = append(s.requests, r.URL.Path)
	resp, ok := s.statuses[r.URL.Path]
	if !ok {
		http.Error(w, "unknown method", http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// newStubClient builds a Client whose rpc layer targets the stub. The
// controller's fixed port cannot be used in tests, so the rpc client is
// assembled against the stub server's address directly.
func newStubClient(t *testing.T, stub *controllerStub) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	return &Client{rpc: rpcClientFor(t, srv, "s3cret")}, srv
}

func TestStatusAndAddresses(t *testing.T) {
	t.Parallel()
	stub := &controllerStub{t: t, statuses: map[string]any{
		"/api/get_status":               map[string]string{"status": "all services running"},
		"/api/get_all_public_addresses": map[string]any{"addresses": []string{"10.0.0.1", "10.0.0.2"}},
		"/api/get_registry_address":     map[string]string{"address": "10.0.0.1"},
	}}
	c, _ := newStubClient(t, stub)

	status, err := c.Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "all services running", status)

	addrs, err := c.AllPublicAddresses(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.1", "10.0.0.2"}, addrs)

	reg, err := c.RegistryAddress(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", reg)
}

func TestRegistryAddressEmpty(t *testing.T) {
	t.Parallel()
	stub := &controllerStub{t: t, statuses: map[string]any{
		"/api/get_registry_address": map[string]string{"address": ""},
	}}
	c, _ := newStubClient(t, stub)

	_, err := c.RegistryAddress(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no registry address")
}

func TestAppLifecycleCalls(t *testing.T) {
	t.Parallel()
	stub := &controllerStub{t: t, statuses: map[string]any{
		"/api/stop_app":       map[string]any{},
		"/api/is_app_running": map[string]bool{"running": true},
		"/api/done_uploading": map[string]any{},
		"/api/update":         map[string]any{},
		"/api/start_roles":    map[string]any{},
	}}
	c, _ := newStubClient(t, stub)
	ctx := context.Background()

	require.NoError(t, c.StopApp(ctx, "guestbook"))
	running, err := c.AppRunning(ctx, "guestbook")
	require.NoError(t, err)
	assert.True(t, running)
	require.NoError(t, c.MarkUploadComplete(ctx, "guestbook", "/var/nimbus/apps/guestbook.tar.gz"))
	require.NoError(t, c.TriggerUpdate(ctx, []string{"guestbook"}))
	require.NoError(t, c.StartRoles(ctx, map[string][]string{"compute": {"10.0.0.3"}}))

	assert.Equal(t, []string{
		"/api/stop_app",
		"/api/is_app_running",
		"/api/done_uploading",
		"/api/update",
		"/api/start_roles",
	}, stub.requests)
}

func TestBadSecret(t *testing.T) {
	t.Parallel()
	stub := &controllerStub{t: t, statuses: map[string]any{}}
	srv := httptest.NewServer(stub)
	t.Cleanup(srv.Close)
	c := &Client{rpc: rpcClientFor(t, srv, "wrong")}

	_, err := c.Status(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, rpc.ErrAuthentication)
}
