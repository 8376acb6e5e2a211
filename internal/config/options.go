// Package config defines the operator-supplied deployment options, their
// file-based loading and validation, and credential resolution.
package config

import "time"

// InfraVirtualized is the infrastructure kind for deployments on
// pre-existing virtualized hosts reachable over SSH.
const InfraVirtualized = "none"

// InfraHCloud is the infrastructure kind for Hetzner Cloud deployments.
const InfraHCloud = "hcloud"

// CloudInfrastructures lists the supported cloud provider kinds.
var CloudInfrastructures = map[string]bool{
	InfraHCloud: true,
}

// Options carries every operator-supplied parameter for one verb
// invocation. It is immutable for the duration of that invocation.
type Options struct {
	// Keyname identifies the deployment.
	Keyname string `mapstructure:"keyname" yaml:"keyname"`

	// Infrastructure selects the provisioning target: a cloud provider
	// name, or "none"/empty for a virtualized cluster.
	Infrastructure string `mapstructure:"infrastructure" yaml:"infrastructure"`

	// Nodes maps a role name to the addresses that should carry it.
	// Required for virtualized deployments; optional for cloud ones,
	// where MinNodes/MaxNodes drive an automatic layout instead.
	Nodes map[string][]string `mapstructure:"nodes" yaml:"nodes"`

	// MinNodes and MaxNodes bound the roster size for count-based cloud
	// layouts.
	MinNodes int `mapstructure:"min_nodes" yaml:"min_nodes"`
	MaxNodes int `mapstructure:"max_nodes" yaml:"max_nodes"`

	// ReplicationFactor is the database replication factor. Only
	// meaningful when starting a deployment; scale-out inherits the
	// established factor.
	ReplicationFactor int `mapstructure:"replication" yaml:"replication"`

	// Cloud provisioning parameters.
	MachineImage string `mapstructure:"machine_image" yaml:"machine_image"`
	ServerType   string `mapstructure:"server_type" yaml:"server_type"`
	Location     string `mapstructure:"location" yaml:"location"`
	CloudToken   string `mapstructure:"cloud_token" yaml:"cloud_token"`

	// Admin credentials. When both are set they take precedence over
	// test defaults and interactive prompting.
	AdminUser     string `mapstructure:"admin_user" yaml:"admin_user"`
	AdminPassword string `mapstructure:"admin_password" yaml:"admin_password"`

	// Test selects non-interactive default credentials.
	Test bool `mapstructure:"test" yaml:"test"`

	// Force allows starting over an existing metadata record.
	Force bool `mapstructure:"force" yaml:"force"`

	// Confirm bypasses interactive confirmation prompts.
	Confirm bool `mapstructure:"confirm" yaml:"confirm"`

	// Verbose enables debug logging.
	Verbose bool `mapstructure:"verbose" yaml:"verbose"`

	// File is the application bundle path for deploys.
	File string `mapstructure:"file" yaml:"file"`

	// AppName is the application identifier for removals.
	AppName string `mapstructure:"app_name" yaml:"app_name"`

	// Email is the application owner for deploys.
	Email string `mapstructure:"email" yaml:"email"`

	// Destination is the local directory for gathered logs.
	Destination string `mapstructure:"destination" yaml:"destination"`

	// Archive configures optional S3 upload of gathered logs.
	Archive ArchiveOptions `mapstructure:"archive" yaml:"archive"`
}

// ArchiveOptions configures the optional S3-compatible log archive target.
type ArchiveOptions struct {
	Bucket    string `mapstructure:"bucket" yaml:"bucket"`
	Endpoint  string `mapstructure:"endpoint" yaml:"endpoint"`
	Region    string `mapstructure:"region" yaml:"region"`
	AccessKey string `mapstructure:"access_key" yaml:"access_key"`
	SecretKey string `mapstructure:"secret_key" yaml:"secret_key"`
}

// Enabled reports whether an archive target was configured.
func (a ArchiveOptions) Enabled() bool {
	return a.Bucket != ""
}

// IsCloud reports whether the options target a cloud provider.
func (o *Options) IsCloud() bool {
	return o.Infrastructure != "" && o.Infrastructure != InfraVirtualized
}

// InfrastructureKind normalizes the infrastructure field: an empty value
// means a virtualized cluster.
func (o *Options) InfrastructureKind() string {
	if o.Infrastructure == "" {
		return InfraVirtualized
	}
	return o.Infrastructure
}

// Timeouts groups the bounded waits used while driving a deployment.
type Timeouts struct {
	// RegistryStart bounds the wait for the registry service port after
	// the head node is up.
	RegistryStart time.Duration `mapstructure:"registry_start" yaml:"registry_start"`

	// NodesInitialized bounds the wait for all nodes to finish internal
	// initialization.
	NodesInitialized time.Duration `mapstructure:"nodes_initialized" yaml:"nodes_initialized"`

	// DashboardStart bounds the wait for the operator dashboard port.
	DashboardStart time.Duration `mapstructure:"dashboard_start" yaml:"dashboard_start"`

	// AppServing bounds the wait for a deployed application's serving
	// port.
	AppServing time.Duration `mapstructure:"app_serving" yaml:"app_serving"`
}

// DefaultTimeouts returns the standard bounded waits.
func DefaultTimeouts() Timeouts {
	return Timeouts{
		RegistryStart:    10 * time.Minute,
		NodesInitialized: 20 * time.Minute,
		DashboardStart:   5 * time.Minute,
		AppServing:       5 * time.Minute,
	}
}
