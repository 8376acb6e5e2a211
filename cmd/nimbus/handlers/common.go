// Package handlers implements the business logic behind each CLI
// command: option loading and validation, dependency wiring, calling the
// orchestrator, and rendering results.
package handlers

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/nimbusphere/nimbus/internal/config"
	"github.com/nimbusphere/nimbus/internal/layout"
	"github.com/nimbusphere/nimbus/internal/orchestration"
	"github.com/nimbusphere/nimbus/internal/platform/controller"
	"github.com/nimbusphere/nimbus/internal/platform/gateway"
	"github.com/nimbusphere/nimbus/internal/platform/registry"
	"github.com/nimbusphere/nimbus/internal/state"
	"github.com/nimbusphere/nimbus/internal/util/keygen"
	"github.com/nimbusphere/nimbus/internal/util/netutil"
)

// TokenEnvVar is consulted for the cloud API token when neither the flag
// nor the deployment file provides one.
const TokenEnvVar = "NIMBUS_HCLOUD_TOKEN"

var (
	headerStyle  = lipgloss.NewStyle().Bold(true)
	okStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	dimStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	addressStyle = lipgloss.NewStyle().Underline(true)
)

// Deployer is the verb surface the handlers drive. The real
// implementation is *orchestration.Orchestrator.
type Deployer interface {
	RunInstances(ctx context.Context, opts *config.Options) (*orchestration.RunResult, error)
	AddInstances(ctx context.Context, opts *config.Options) error
	DescribeInstances(ctx context.Context, opts *config.Options) (*orchestration.StatusReport, error)
	GatherLogs(ctx context.Context, opts *config.Options) error
	RemoveApp(ctx context.Context, opts *config.Options) error
	ResetPassword(ctx context.Context, opts *config.Options) error
	TerminateInstances(ctx context.Context, opts *config.Options) error
	UploadApp(ctx context.Context, opts *config.Options) (string, error)
}

// Factory function variables - can be replaced in tests.
var (
	loadOptionsFile = config.LoadFile

	newDeployer = func(opts *config.Options) (Deployer, error) {
		return buildOrchestrator(opts)
	}
)

// loadOptions merges the deployment file (when present) with the options
// bound from flags. Flag values win over file values.
func loadOptions(configPath string, flags *config.Options) (*config.Options, error) {
	opts := &config.Options{}
	if configPath == "" {
		if found, err := config.FindFile(); err == nil {
			configPath = found
		}
	}
	if configPath != "" {
		fileOpts, err := loadOptionsFile(configPath)
		if err != nil {
			return nil, err
		}
		opts = fileOpts
	}
	mergeOptions(opts, flags)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return opts, nil
}

// mergeOptions overlays non-zero flag values onto the file options.
func mergeOptions(dst, src *config.Options) {
	if src == nil {
		return
	}
	if src.Keyname != "" {
		dst.Keyname = src.Keyname
	}
	if src.Infrastructure != "" {
		dst.Infrastructure = src.Infrastructure
	}
	if len(src.Nodes) > 0 {
		dst.Nodes = src.Nodes
	}
	if src.MinNodes != 0 {
		dst.MinNodes = src.MinNodes
	}
	if src.MaxNodes != 0 {
		dst.MaxNodes = src.MaxNodes
	}
	if src.ReplicationFactor != 0 {
		dst.ReplicationFactor = src.ReplicationFactor
	}
	if src.MachineImage != "" {
		dst.MachineImage = src.MachineImage
	}
	if src.ServerType != "" {
		dst.ServerType = src.ServerType
	}
	if src.Location != "" {
		dst.Location = src.Location
	}
	if src.CloudToken != "" {
		dst.CloudToken = src.CloudToken
	}
	if src.AdminUser != "" {
		dst.AdminUser = src.AdminUser
	}
	if src.AdminPassword != "" {
		dst.AdminPassword = src.AdminPassword
	}
	if src.File != "" {
		dst.File = src.File
	}
	if src.AppName != "" {
		dst.AppName = src.AppName
	}
	if src.Email != "" {
		dst.Email = src.Email
	}
	if src.Destination != "" {
		dst.Destination = src.Destination
	}
	if src.Archive.Bucket != "" {
		dst.Archive = src.Archive
	}
	dst.Test = dst.Test || src.Test
	dst.Force = dst.Force || src.Force
	dst.Confirm = dst.Confirm || src.Confirm
	dst.Verbose = dst.Verbose || src.Verbose
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// buildOrchestrator wires the production orchestrator for one verb
// invocation.
func buildOrchestrator(opts *config.Options) (*orchestration.Orchestrator, error) {
	dir, err := state.DefaultDir()
	if err != nil {
		return nil, err
	}
	store, err := state.NewFileStore(dir)
	if err != nil {
		return nil, err
	}
	log := newLogger(opts.Verbose)

	gwConfig := gateway.Config{
		PrivateKeyPath: store.PrivateKeyPath,
		MetadataPath:   store.MetadataPath,
		Poller:         netutil.Poller{},
		Log:            log,
	}

	return &orchestration.Orchestrator{
		Planner: layout.SimplePlanner{},
		Store:   store,
		NewController: func(host, secret string) orchestration.ControllerClient {
			return controller.New(host, secret)
		},
		NewRegistry: func(host, secret string) orchestration.RegistryClient {
			return registry.New(host, secret)
		},
		NewGateway: func(kind string, o *config.Options) (orchestration.Gateway, error) {
			return selectGateway(kind, o, gwConfig)
		},
		Credentials: credentialSource(opts),
		Confirm:     config.Confirm,
		EnsureKeys: func(keyname string) error {
			return ensureKeys(store, keyname)
		},
		NewSecret: keygen.GenerateSecret,
		Poller:    netutil.Poller{},
		Backoff:   orchestration.DefaultBackoff(),
		Log:       log,
	}, nil
}

// selectGateway picks the provisioning gateway for an infrastructure
// kind. The kind comes from the options when starting a deployment and
// from the stored metadata for every verb against a running one, so the
// token is resolved here rather than per verb.
func selectGateway(kind string, opts *config.Options, cfg gateway.Config) (orchestration.Gateway, error) {
	switch kind {
	case config.InfraVirtualized, "":
		return gateway.NewVirtualized(cfg), nil
	case config.InfraHCloud:
		token := opts.CloudToken
		if token == "" {
			token = os.Getenv(TokenEnvVar)
		}
		if token == "" {
			return nil, fmt.Errorf("no credentials found for %s: set cloud_token or %s", kind, TokenEnvVar)
		}
		return gateway.NewCloud(cfg, gateway.NewRealCloudAPI(token)), nil
	}
	return nil, fmt.Errorf("unknown infrastructure %q", kind)
}

// credentialSource resolves how credentials are obtained for this
// invocation. A deploy with --email keeps the explicit owner and falls
// back to the usual chain for the password.
func credentialSource(opts *config.Options) config.CredentialSource {
	base := config.ResolveSource(opts)
	if opts.Email != "" {
		return ownerSource{owner: opts.Email, fallback: base}
	}
	return base
}

// ownerSource pins the username while delegating password resolution.
type ownerSource struct {
	owner    string
	fallback config.CredentialSource
}

func (s ownerSource) Credentials(ctx context.Context) (config.Credentials, error) {
	password, err := s.fallback.Password(ctx)
	if err != nil {
		return config.Credentials{}, err
	}
	return config.Credentials{Username: s.owner, Password: password}, nil
}

func (s ownerSource) Username(context.Context) (string, error) {
	return s.owner, nil
}

func (s ownerSource) Password(ctx context.Context) (string, error) {
	return s.fallback.Password(ctx)
}

// ensureKeys generates the deployment SSH keypair on first use.
func ensureKeys(store *state.FileStore, keyname string) error {
	keyPath := store.PrivateKeyPath(keyname)
	if _, err := os.Stat(keyPath); err == nil {
		return nil
	}
	pair, err := keygen.GenerateRSAKeyPair(2048)
	if err != nil {
		return err
	}
	if err := os.WriteFile(keyPath, pair.PrivateKey, 0o600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}
	if err := os.WriteFile(keyPath+".pub", pair.PublicKey, 0o644); err != nil {
		return fmt.Errorf("failed to write public key: %w", err)
	}
	return nil
}
