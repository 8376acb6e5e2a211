package controller

import (
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nimbusphere/nimbus/internal/platform/rpc"
)

// rpcClientFor builds an rpc client pointed at a stub server.
func rpcClientFor(t *testing.T, srv *httptest.Server, secret string) *rpc.Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return rpc.New(u.Hostname(), port, secret)
}
