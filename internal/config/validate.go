package config

import (
	"fmt"
	"regexp"
)

// keynameRegex validates deployment identifiers: 1-32 lowercase
// alphanumeric characters or hyphens, starting and ending alphanumeric.
var keynameRegex = regexp.MustCompile(`^[a-z0-9](?:[a-z0-9-]{0,30}[a-z0-9])?$`)

// Validate checks the options for contradictions before any remote side
// effect. It covers the fields every verb needs; verb-specific
// preconditions live with the orchestrator.
func (o *Options) Validate() error {
	if o.Keyname == "" {
		return fmt.Errorf("keyname is required")
	}
	if !keynameRegex.MatchString(o.Keyname) {
		return fmt.Errorf("invalid keyname %q: must be 1-32 lowercase alphanumeric characters or hyphens", o.Keyname)
	}

	kind := o.InfrastructureKind()
	if kind != InfraVirtualized && !CloudInfrastructures[kind] {
		return fmt.Errorf("unknown infrastructure %q", kind)
	}
	return nil
}

// ValidateForStart checks the additional fields RunInstances needs beyond
// the base validation.
func (o *Options) ValidateForStart() error {
	if err := o.Validate(); err != nil {
		return err
	}

	if o.IsCloud() {
		if o.MachineImage == "" {
			return fmt.Errorf("machine_image is required for %s deployments", o.Infrastructure)
		}
		if len(o.Nodes) == 0 {
			if o.MinNodes < 1 {
				return fmt.Errorf("min_nodes must be at least 1")
			}
			if o.MaxNodes < o.MinNodes {
				return fmt.Errorf("max_nodes (%d) must not be below min_nodes (%d)", o.MaxNodes, o.MinNodes)
			}
		}
		return nil
	}

	if len(o.Nodes) == 0 {
		return fmt.Errorf("virtualized deployments require a nodes map of roles to addresses")
	}
	return nil
}
