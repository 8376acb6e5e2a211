// Package testing holds the shared testify mocks and builders used by
// orchestration and handler tests.
package testing

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nimbusphere/nimbus/internal/config"
	"github.com/nimbusphere/nimbus/internal/layout"
	"github.com/nimbusphere/nimbus/internal/state"
)

// MockController is a mock implementation of the controller RPC surface.
type MockController struct {
	mock.Mock
}

func (m *MockController) StartRoles(ctx context.Context, roles map[string][]string) error {
	return m.Called(ctx, roles).Error(0)
}

func (m *MockController) Status(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockController) AllPublicAddresses(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockController) RegistryAddress(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockController) StopApp(ctx context.Context, appID string) error {
	return m.Called(ctx, appID).Error(0)
}

func (m *MockController) AppRunning(ctx context.Context, appID string) (bool, error) {
	args := m.Called(ctx, appID)
	return args.Bool(0), args.Error(1)
}

func (m *MockController) MarkUploadComplete(ctx context.Context, appID, remotePath string) error {
	return m.Called(ctx, appID, remotePath).Error(0)
}

func (m *MockController) TriggerUpdate(ctx context.Context, appIDs []string) error {
	return m.Called(ctx, appIDs).Error(0)
}

// MockRegistry is a mock implementation of the registry RPC surface.
type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) UserExists(ctx context.Context, username string) (bool, error) {
	args := m.Called(ctx, username)
	return args.Bool(0), args.Error(1)
}

func (m *MockRegistry) AppExists(ctx context.Context, appID string) (bool, error) {
	args := m.Called(ctx, appID)
	return args.Bool(0), args.Error(1)
}

func (m *MockRegistry) AppOwner(ctx context.Context, appID string) (string, error) {
	args := m.Called(ctx, appID)
	return args.String(0), args.Error(1)
}

func (m *MockRegistry) ReserveAppID(ctx context.Context, username, appID, runtime string) error {
	return m.Called(ctx, username, appID, runtime).Error(0)
}

func (m *MockRegistry) ChangePassword(ctx context.Context, username, hashedPassword string) error {
	return m.Called(ctx, username, hashedPassword).Error(0)
}

func (m *MockRegistry) GrantAdminRole(ctx context.Context, username string) error {
	return m.Called(ctx, username).Error(0)
}

func (m *MockRegistry) ServingAddress(ctx context.Context, appID, keyname string) (string, int, error) {
	args := m.Called(ctx, appID, keyname)
	return args.String(0), args.Int(1), args.Error(2)
}

// MockGateway is a mock implementation of the provisioning gateway.
type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) StartHeadNode(ctx context.Context, opts *config.Options, operationID string, lay *layout.NodeLayout) (string, string, error) {
	args := m.Called(ctx, opts, operationID, lay)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockGateway) CopyMetadata(ctx context.Context, host, keyname string) error {
	return m.Called(ctx, host, keyname).Error(0)
}

func (m *MockGateway) CreateAccount(ctx context.Context, username, password, registryHost, keyname string) error {
	return m.Called(ctx, username, password, registryHost, keyname).Error(0)
}

func (m *MockGateway) WaitForAllNodesInitialized(ctx context.Context, headHost, keyname string) error {
	return m.Called(ctx, headHost, keyname).Error(0)
}

func (m *MockGateway) Teardown(ctx context.Context, meta *state.Metadata) error {
	return m.Called(ctx, meta).Error(0)
}

func (m *MockGateway) CopyAppBundle(ctx context.Context, localDir, headHost, keyname string) (string, error) {
	args := m.Called(ctx, localDir, headHost, keyname)
	return args.String(0), args.Error(1)
}

func (m *MockGateway) FetchLogs(ctx context.Context, host, keyname, destDir string) error {
	return m.Called(ctx, host, keyname, destDir).Error(0)
}

func (m *MockGateway) ShellProbe(ctx context.Context, host, keyname, command string) error {
	return m.Called(ctx, host, keyname, command).Error(0)
}

// MockStore is a mock implementation of the metadata store.
type MockStore struct {
	mock.Mock
}

func (m *MockStore) Load(keyname string) (*state.Metadata, error) {
	args := m.Called(keyname)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*state.Metadata), args.Error(1)
}

func (m *MockStore) Save(meta *state.Metadata) error {
	return m.Called(meta).Error(0)
}

func (m *MockStore) Delete(keyname string) error {
	return m.Called(keyname).Error(0)
}

func (m *MockStore) Exists(keyname string) bool {
	return m.Called(keyname).Bool(0)
}

func (m *MockStore) PrivateKeyPath(keyname string) string {
	return m.Called(keyname).String(0)
}

// MockPlanner is a mock implementation of the topology planner.
type MockPlanner struct {
	mock.Mock
}

func (m *MockPlanner) Plan(opts *config.Options) *layout.Plan {
	return m.Called(opts).Get(0).(*layout.Plan)
}

func (m *MockPlanner) PlanIncrement(opts *config.Options) *layout.Plan {
	return m.Called(opts).Get(0).(*layout.Plan)
}
