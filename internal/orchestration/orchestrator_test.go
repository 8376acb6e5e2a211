package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/nimbusphere/nimbus/internal/config"
	"github.com/nimbusphere/nimbus/internal/layout"
	"github.com/nimbusphere/nimbus/internal/state"
	nimbustesting "github.com/nimbusphere/nimbus/internal/testing"
)

// waiterFunc adapts a function to the PortWaiter interface.
type waiterFunc func(ctx context.Context, host string, port int, timeout time.Duration) error

func (f waiterFunc) WaitForPort(ctx context.Context, host string, port int, timeout time.Duration) error {
	return f(ctx, host, port, timeout)
}

// harness bundles an orchestrator with its mocked collaborators.
type harness struct {
	orch       *Orchestrator
	store      *state.FileStore
	controller *nimbustesting.MockController
	registry   *nimbustesting.MockRegistry
	gateway    *nimbustesting.MockGateway
	waited     []string
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	store, err := state.NewFileStore(t.TempDir())
	require.NoError(t, err)

	h := &harness{
		store:      store,
		controller: &nimbustesting.MockController{},
		registry:   &nimbustesting.MockRegistry{},
		gateway:    &nimbustesting.MockGateway{},
	}
	h.orch = &Orchestrator{
		Planner: layout.SimplePlanner{},
		Store:   store,
		NewController: func(host, secret string) ControllerClient {
			return h.controller
		},
		NewRegistry: func(host, secret string) RegistryClient {
			return h.registry
		},
		NewGateway: func(kind string, opts *config.Options) (Gateway, error) {
			return h.gateway, nil
		},
		Credentials: config.TestSource{},
		Confirm: func(ctx context.Context, question string) (bool, error) {
			return true, nil
		},
		EnsureKeys: func(keyname string) error { return nil },
		NewSecret:  func() (string, error) { return "746573747365637265746b6579", nil },
		Poller: waiterFunc(func(ctx context.Context, host string, port int, timeout time.Duration) error {
			h.waited = append(h.waited, host)
			return nil
		}),
		Backoff: Backoff{
			PollInterval:  time.Millisecond,
			RedeployDelay: time.Millisecond,
			Timeouts:      config.DefaultTimeouts(),
		},
		Log: zerolog.Nop(),
	}
	return h
}

// saveRunning persists a running three-node deployment.
func (h *harness) saveRunning(t *testing.T, keyname string) *state.Metadata {
	t.Helper()
	meta := nimbustesting.NewTestMetadata(keyname)
	require.NoError(t, h.store.Save(meta))
	return meta
}
