package orchestration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/nimbusphere/nimbus/internal/config"
	"github.com/nimbusphere/nimbus/internal/platform/rpc"
	nimbustesting "github.com/nimbusphere/nimbus/internal/testing"
)

func TestResetPasswordSendsDigest(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.saveRunning(t, "test-deploy")
	h.orch.Credentials = config.StaticSource{Value: config.Credentials{
		Username: "ops@example.com",
		Password: "hunter22",
	}}
	opts := nimbustesting.NewOptionsBuilder().Build()

	digest := config.HashPassword("ops@example.com", "hunter22")
	h.controller.On("RegistryAddress", mock.Anything).Return("10.0.0.1:4343", nil)
	h.registry.On("ChangePassword", mock.Anything, "ops@example.com", digest).Return(nil)

	require.NoError(t, h.orch.ResetPassword(context.Background(), opts))
	h.registry.AssertExpectations(t)
}

func TestResetPasswordRejectionIsDistinguishable(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	h.saveRunning(t, "test-deploy")
	opts := nimbustesting.NewOptionsBuilder().Build()

	h.controller.On("RegistryAddress", mock.Anything).Return("10.0.0.1:4343", nil)
	h.registry.On("ChangePassword", mock.Anything, mock.Anything, mock.Anything).
		Return(&rpc.RemoteError{Method: "change_password", Status: 422, Reason: "user unknown"})

	err := h.orch.ResetPassword(context.Background(), opts)
	require.Error(t, err)
	assert.True(t, HasKind(err, KindRejected))
	assert.Equal(t, 6, ExitCode(err))
	assert.NotEqual(t, ExitCode(err), ExitCode(Configf("x")))
}
