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

func TestDescribeInstancesPartialFailures(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.saveRunning(t, "test-deploy")
	opts := nimbustesting.NewOptionsBuilder().Build()

	// One shared mock serves both the roster query and per-node status,
	// so route status answers by call order: head answers, the other
	// two nodes are unreachable.
	h.controller.On("AllPublicAddresses", mock.Anything).
		Return([]string{"10.0.0.1", "10.0.0.2", "10.0.0.3"}, nil)
	h.controller.On("Status", mock.Anything).Return("head: ok, 3 nodes", nil).Once()
	h.controller.On("Status", mock.Anything).Return("", fmt.Errorf("connection refused")).Twice()

	report, err := h.orch.DescribeInstances(context.Background(), opts)
	require.NoError(t, err)
	require.Len(t, report.Nodes, 3)
	assert.Equal(t, "head: ok, 3 nodes", report.Nodes[0].Status)
	assert.Len(t, report.Warnings(), 2)
	for _, w := range report.Warnings() {
		assert.Error(t, w.Err)
	}
}

func TestDescribeInstancesHeadUnreachableIsFatal(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.saveRunning(t, "test-deploy")
	opts := nimbustesting.NewOptionsBuilder().Build()

	h.controller.On("AllPublicAddresses", mock.Anything).
		Return(nil, fmt.Errorf("dial tcp 10.0.0.1:17443: i/o timeout"))

	_, err := h.orch.DescribeInstances(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindUnreachable))
}

func TestDescribeInstancesRequiresMetadata(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	opts := nimbustesting.NewOptionsBuilder().Build()

	_, err := h.orch.DescribeInstances(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindPrecondition))
}
