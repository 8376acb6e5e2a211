package orchestration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	nimbustesting "github.com/nimbusphere/nimbus/internal/testing"
)

func TestGatherLogsRejectsExistingDestination(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.saveRunning(t, "test-deploy")
	dest := t.TempDir()
	opts := nimbustesting.NewOptionsBuilder().Build()
	opts.Destination = dest

	err := h.orch.GatherLogs(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindPrecondition))
	h.gateway.AssertNotCalled(t, "FetchLogs", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestGatherLogsBadKeynameLeavesNoDirectory(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	dest := filepath.Join(t.TempDir(), "logs")
	opts := nimbustesting.NewOptionsBuilder().WithKeyname("missing").Build()
	opts.Destination = dest

	err := h.orch.GatherLogs(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindPrecondition))
	_, statErr := os.Stat(dest)
	assert.True(t, os.IsNotExist(statErr))
}

func TestGatherLogsVisitsEveryNodeDespiteFailures(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.saveRunning(t, "test-deploy")
	dest := filepath.Join(t.TempDir(), "logs")
	opts := nimbustesting.NewOptionsBuilder().Build()
	opts.Destination = dest

	h.gateway.On("FetchLogs", mock.Anything, "10.0.0.1", "test-deploy", filepath.Join(dest, "10.0.0.1")).Return(nil)
	h.gateway.On("FetchLogs", mock.Anything, "10.0.0.2", "test-deploy", filepath.Join(dest, "10.0.0.2")).
		Return(fmt.Errorf("connection refused"))
	h.gateway.On("FetchLogs", mock.Anything, "10.0.0.3", "test-deploy", filepath.Join(dest, "10.0.0.3")).Return(nil)

	err := h.orch.GatherLogs(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindUnreachable))
	assert.Contains(t, err.Error(), "10.0.0.2")
	h.gateway.AssertExpectations(t)

	// Healthy nodes got their subdirectories.
	_, statErr := os.Stat(filepath.Join(dest, "10.0.0.3"))
	assert.NoError(t, statErr)
}

func TestGatherLogsAllNodesHealthy(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.saveRunning(t, "test-deploy")
	dest := filepath.Join(t.TempDir(), "logs")
	opts := nimbustesting.NewOptionsBuilder().Build()
	opts.Destination = dest

	h.gateway.On("FetchLogs", mock.Anything, mock.Anything, "test-deploy", mock.Anything).Return(nil)

	require.NoError(t, h.orch.GatherLogs(context.Background(), opts))
	h.gateway.AssertNumberOfCalls(t, "FetchLogs", 3)
}
