package rpc

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient points a Client at a httptest server.
func newTestClient(t *testing.T, handler http.Handler, secret string) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return New(u.Hostname(), port, secret)
}

func TestCallSendsSecretAndDecodes(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/get_status", r.URL.Path)
		assert.Equal(t, "s3cret", r.Header.Get(SecretHeader))
		var params map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&params))
		assert.Equal(t, "dev", params["keyname"])
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})

	c := newTestClient(t, handler, "s3cret")
	var result struct {
		Status string `json:"status"`
	}
	err := c.Call(context.Background(), "get_status", map[string]string{"keyname": "dev"}, &result)
	require.NoError(t, err)
	assert.Equal(t, "ok", result.Status)
}

func TestCallAuthenticationRejected(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad secret", http.StatusUnauthorized)
	})

	c := newTestClient(t, handler, "wrong")
	err := c.Call(context.Background(), "get_status", nil, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrAuthentication)
}

func TestCallRemoteRejection(t *testing.T) {
	t.Parallel()
	handler := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "password change refused", http.StatusConflict)
	})

	c := newTestClient(t, handler, "s3cret")
	err := c.Call(context.Background(), "change_password", map[string]string{"user": "a@a.com"}, nil)
	require.Error(t, err)

	var remote *RemoteError
	require.ErrorAs(t, err, &remote)
	assert.Equal(t, "change_password", remote.Method)
	assert.Equal(t, http.StatusConflict, remote.Status)
	assert.Contains(t, remote.Reason, "refused")
}

func TestCallUnreachable(t *testing.T) {
	t.Parallel()
	// Reserved TEST-NET-1 address, nothing listens there.
	c := New("192.0.2.1", 17443, "s3cret")
	c.http.RetryMax = 0
	c.http.HTTPClient.Timeout = 50 * time.Millisecond

	err := c.Call(context.Background(), "get_status", nil, nil)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrAuthentication)
}
