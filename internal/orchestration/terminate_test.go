package orchestration

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	nimbustesting "github.com/nimbusphere/nimbus/internal/testing"
)

func TestTerminateInstancesWithoutMetadata(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	opts := nimbustesting.NewOptionsBuilder().Build()

	err := h.orch.TerminateInstances(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindPrecondition))
	h.gateway.AssertNotCalled(t, "Teardown", mock.Anything, mock.Anything)
}

func TestTerminateInstancesDeletesMetadata(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.saveRunning(t, "test-deploy")
	opts := nimbustesting.NewOptionsBuilder().Build()

	h.gateway.On("Teardown", mock.Anything, mock.Anything).Return(nil)

	require.NoError(t, h.orch.TerminateInstances(context.Background(), opts))
	assert.False(t, h.store.Exists("test-deploy"))
}

func TestTerminateInstancesDeletesMetadataEvenWhenTeardownFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.saveRunning(t, "test-deploy")
	opts := nimbustesting.NewOptionsBuilder().Build()

	h.gateway.On("Teardown", mock.Anything, mock.Anything).
		Return(fmt.Errorf("instance 4242 refused to stop"))

	err := h.orch.TerminateInstances(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindUnreachable))
	// A stuck deployment must never block a fresh run.
	assert.False(t, h.store.Exists("test-deploy"))
}

func TestRunThenTerminateLeavesNoMetadata(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	opts := nimbustesting.NewOptionsBuilder().Build()

	h.gateway.On("StartHeadNode", mock.Anything, opts, mock.Anything, mock.Anything).
		Return("10.0.0.1", "", nil)
	h.gateway.On("CopyMetadata", mock.Anything, "10.0.0.1", "test-deploy").Return(nil)
	h.gateway.On("CreateAccount", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	h.gateway.On("WaitForAllNodesInitialized", mock.Anything, "10.0.0.1", "test-deploy").Return(nil)
	h.controller.On("RegistryAddress", mock.Anything).Return("10.0.0.1:4343", nil)
	h.controller.On("AllPublicAddresses", mock.Anything).Return([]string{"10.0.0.1"}, nil)
	h.registry.On("GrantAdminRole", mock.Anything, mock.Anything).Return(nil)
	h.gateway.On("Teardown", mock.Anything, mock.Anything).
		Return(fmt.Errorf("partial teardown"))

	_, err := h.orch.RunInstances(context.Background(), opts)
	require.NoError(t, err)
	require.True(t, h.store.Exists("test-deploy"))

	err = h.orch.TerminateInstances(context.Background(), opts)
	require.Error(t, err)
	assert.False(t, h.store.Exists("test-deploy"))
}
