package handlers

import (
	"context"
	"fmt"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nimbusphere/nimbus/internal/config"
	"github.com/nimbusphere/nimbus/internal/orchestration"
	"github.com/nimbusphere/nimbus/internal/platform/gateway"
)

// fakeDeployer records which verb was invoked and with what options.
type fakeDeployer struct {
	calls   []string
	gotOpts *config.Options
	err     error
	serving string
}

func (f *fakeDeployer) record(verb string, opts *config.Options) {
	f.calls = append(f.calls, verb)
	f.gotOpts = opts
}

func (f *fakeDeployer) RunInstances(_ context.Context, opts *config.Options) (*orchestration.RunResult, error) {
	f.record("run", opts)
	if f.err != nil {
		return nil, f.err
	}
	return &orchestration.RunResult{OperationID: "op-1", HeadNode: "10.0.0.1", Dashboard: "10.0.0.1:1080"}, nil
}

func (f *fakeDeployer) AddInstances(_ context.Context, opts *config.Options) error {
	f.record("add", opts)
	return f.err
}

func (f *fakeDeployer) DescribeInstances(_ context.Context, opts *config.Options) (*orchestration.StatusReport, error) {
	f.record("describe", opts)
	if f.err != nil {
		return nil, f.err
	}
	return &orchestration.StatusReport{
		Keyname:  opts.Keyname,
		HeadNode: "10.0.0.1",
		Nodes: []orchestration.NodeStatus{
			{Addr: "10.0.0.1", Status: "ok"},
			{Addr: "10.0.0.2", Err: fmt.Errorf("refused")},
		},
	}, nil
}

func (f *fakeDeployer) GatherLogs(_ context.Context, opts *config.Options) error {
	f.record("logs", opts)
	return f.err
}

func (f *fakeDeployer) RemoveApp(_ context.Context, opts *config.Options) error {
	f.record("remove", opts)
	return f.err
}

func (f *fakeDeployer) ResetPassword(_ context.Context, opts *config.Options) error {
	f.record("passwd", opts)
	return f.err
}

func (f *fakeDeployer) TerminateInstances(_ context.Context, opts *config.Options) error {
	f.record("terminate", opts)
	return f.err
}

func (f *fakeDeployer) UploadApp(_ context.Context, opts *config.Options) (string, error) {
	f.record("upload", opts)
	return f.serving, f.err
}

// swapDeployer installs a fake deployer and restores the factories after
// the test.
func swapDeployer(t *testing.T, fake *fakeDeployer) {
	t.Helper()
	origDeployer := newDeployer
	origLoad := loadOptionsFile
	t.Cleanup(func() {
		newDeployer = origDeployer
		loadOptionsFile = origLoad
	})
	newDeployer = func(_ *config.Options) (Deployer, error) {
		return fake, nil
	}
	loadOptionsFile = func(path string) (*config.Options, error) {
		return nil, fmt.Errorf("unexpected file load of %q", path)
	}
}

func baseFlags() *config.Options {
	return &config.Options{
		Keyname: "demo",
		Nodes: map[string][]string{
			"head":     {"10.0.0.1"},
			"database": {"10.0.0.2"},
			"compute":  {"10.0.0.3"},
		},
		Test: true,
	}
}

func TestUp(t *testing.T) {
	fake := &fakeDeployer{}
	swapDeployer(t, fake)

	require.NoError(t, Up(context.Background(), "", baseFlags()))
	assert.Equal(t, []string{"run"}, fake.calls)
	assert.Equal(t, "demo", fake.gotOpts.Keyname)
}

func TestUpRejectsInvalidOptions(t *testing.T) {
	fake := &fakeDeployer{}
	swapDeployer(t, fake)

	flags := baseFlags()
	flags.Keyname = "Not Valid!"
	require.Error(t, Up(context.Background(), "", flags))
	assert.Empty(t, fake.calls)
}

func TestUpUnknownInfrastructure(t *testing.T) {
	fake := &fakeDeployer{}
	swapDeployer(t, fake)

	flags := baseFlags()
	flags.Infrastructure = "euca"
	err := Up(context.Background(), "", flags)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "euca")
	assert.Empty(t, fake.calls)
}

func TestUpCloudTokenOnlyInEnvironment(t *testing.T) {
	fake := &fakeDeployer{}
	swapDeployer(t, fake)
	t.Setenv(TokenEnvVar, "env-token")

	flags := &config.Options{
		Keyname:        "demo",
		Infrastructure: config.InfraHCloud,
		MachineImage:   "ubuntu-24.04",
		MinNodes:       1,
		MaxNodes:       1,
		Test:           true,
	}
	require.NoError(t, Up(context.Background(), "", flags))
	assert.Equal(t, []string{"run"}, fake.calls)
}

func TestSelectGatewayResolvesTokenFromEnvironment(t *testing.T) {
	t.Setenv(TokenEnvVar, "env-token")

	opts := &config.Options{Keyname: "demo", Infrastructure: config.InfraHCloud}
	gw, err := selectGateway(config.InfraHCloud, opts, gateway.Config{})
	require.NoError(t, err)
	assert.IsType(t, &gateway.CloudGateway{}, gw)
}

func TestSelectGatewayRequiresToken(t *testing.T) {
	t.Setenv(TokenEnvVar, "")

	opts := &config.Options{Keyname: "demo", Infrastructure: config.InfraHCloud}
	_, err := selectGateway(config.InfraHCloud, opts, gateway.Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), TokenEnvVar)
}

func TestStatusRendersPartialResults(t *testing.T) {
	fake := &fakeDeployer{}
	swapDeployer(t, fake)

	require.NoError(t, Status(context.Background(), "", baseFlags()))
	assert.Equal(t, []string{"describe"}, fake.calls)
}

func TestDeployRequiresBundle(t *testing.T) {
	fake := &fakeDeployer{}
	swapDeployer(t, fake)

	err := Deploy(context.Background(), "", baseFlags())
	require.Error(t, err)
	assert.Empty(t, fake.calls)
}

func TestDeploy(t *testing.T) {
	fake := &fakeDeployer{serving: "10.0.0.3:8080"}
	swapDeployer(t, fake)

	flags := baseFlags()
	flags.File = "./guestbook"
	require.NoError(t, Deploy(context.Background(), "", flags))
	assert.Equal(t, []string{"upload"}, fake.calls)
	assert.Equal(t, "./guestbook", fake.gotOpts.File)
}

func TestRemoveRequiresAppName(t *testing.T) {
	fake := &fakeDeployer{}
	swapDeployer(t, fake)

	err := Remove(context.Background(), "", baseFlags())
	require.Error(t, err)
	assert.Empty(t, fake.calls)
}

func TestDown(t *testing.T) {
	fake := &fakeDeployer{}
	swapDeployer(t, fake)

	require.NoError(t, Down(context.Background(), "", baseFlags()))
	assert.Equal(t, []string{"terminate"}, fake.calls)
}

func TestDownPropagatesError(t *testing.T) {
	fake := &fakeDeployer{err: orchestration.Preconditionf("nothing to terminate")}
	swapDeployer(t, fake)

	err := Down(context.Background(), "", baseFlags())
	require.Error(t, err)
	assert.True(t, orchestration.HasKind(err, orchestration.KindPrecondition))
}

func TestLogsRequiresDestination(t *testing.T) {
	fake := &fakeDeployer{}
	swapDeployer(t, fake)

	err := Logs(context.Background(), "", baseFlags())
	require.Error(t, err)
	assert.Empty(t, fake.calls)
}

type fakeArchiver struct {
	buckets []string
	dirs    []string
	count   int
}

func (f *fakeArchiver) EnsureBucket(_ context.Context, bucket string) error {
	f.buckets = append(f.buckets, bucket)
	return nil
}

func (f *fakeArchiver) UploadDir(_ context.Context, bucket, prefix, dir string) (int, error) {
	f.dirs = append(f.dirs, dir)
	return f.count, nil
}

func TestLogsArchivesWhenConfigured(t *testing.T) {
	fake := &fakeDeployer{}
	swapDeployer(t, fake)

	archiver := &fakeArchiver{count: 7}
	origArchiver := newLogArchiver
	t.Cleanup(func() { newLogArchiver = origArchiver })
	newLogArchiver = func(_ config.ArchiveOptions, _ zerolog.Logger) (LogArchiver, error) {
		return archiver, nil
	}

	flags := baseFlags()
	flags.Destination = t.TempDir() + "/logs"
	flags.Archive = config.ArchiveOptions{Bucket: "nimbus-logs", Region: "eu-central"}

	require.NoError(t, Logs(context.Background(), "", flags))
	assert.Equal(t, []string{"logs"}, fake.calls)
	assert.Equal(t, []string{"nimbus-logs"}, archiver.buckets)
	require.Len(t, archiver.dirs, 1)
	assert.Equal(t, flags.Destination, archiver.dirs[0])
}

func TestMergeOptionsFlagOverridesFile(t *testing.T) {
	dst := &config.Options{Keyname: "from-file", MinNodes: 3, Test: true}
	mergeOptions(dst, &config.Options{Keyname: "from-flag", Verbose: true})
	assert.Equal(t, "from-flag", dst.Keyname)
	assert.Equal(t, 3, dst.MinNodes)
	assert.True(t, dst.Test)
	assert.True(t, dst.Verbose)
}

func TestCredentialSourcePinsOwner(t *testing.T) {
	opts := &config.Options{Email: "owner@example.com", Test: true}
	src := credentialSource(opts)

	username, err := src.Username(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", username)

	creds, err := src.Credentials(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "owner@example.com", creds.Username)
	assert.Equal(t, config.DefaultTestPassword, creds.Password)
}
