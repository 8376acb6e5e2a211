package orchestration

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hashicorp/go-multierror"

	"github.com/nimbusphere/nimbus/internal/config"
)

// GatherLogs copies the platform log directory from every known node
// into destination/<address>/. The destination must not already exist;
// it is created only after the deployment's metadata resolves, so a bad
// keyname leaves nothing behind. Every node is attempted; per-node
// failures are collected and returned as one aggregate after the sweep.
func (o *Orchestrator) GatherLogs(ctx context.Context, opts *config.Options) error {
	if _, err := os.Stat(opts.Destination); err == nil {
		return Preconditionf("destination %q already exists; refusing to merge into it", opts.Destination)
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("cannot check destination %q: %w", opts.Destination, err)
	}

	meta, err := o.loadMetadata(opts.Keyname)
	if err != nil {
		return err
	}
	gw, err := o.NewGateway(meta.Infrastructure, opts)
	if err != nil {
		return Configf("cannot reach %q nodes: %w", meta.Infrastructure, err)
	}

	if err := os.MkdirAll(opts.Destination, 0o755); err != nil {
		return fmt.Errorf("cannot create destination %q: %w", opts.Destination, err)
	}

	var failures *multierror.Error
	for _, addr := range meta.Addresses() {
		nodeDir := filepath.Join(opts.Destination, addr)
		if err := os.MkdirAll(nodeDir, 0o755); err != nil {
			failures = multierror.Append(failures, err)
			continue
		}
		if err := gw.FetchLogs(ctx, addr, meta.Keyname, nodeDir); err != nil {
			o.Log.Warn().Err(err).Str("node", addr).Msg("could not gather logs from node")
			failures = multierror.Append(failures, fmt.Errorf("node %s: %w", addr, err))
			continue
		}
		o.Log.Info().Str("node", addr).Str("dir", nodeDir).Msg("gathered logs")
	}

	if err := failures.ErrorOrNil(); err != nil {
		return Unreachablef("some nodes could not be gathered: %w", err)
	}
	return nil
}
