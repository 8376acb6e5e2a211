package orchestration

import (
	"context"

	"github.com/nimbusphere/nimbus/internal/config"
)

// TerminateInstances tears a deployment down. Cloud instances are
// terminated through the provider; virtualized nodes have their platform
// services stopped in place. Local metadata is deleted even when the
// remote teardown fails, so a stuck deployment never blocks a future
// run; the teardown error is still returned after cleanup.
func (o *Orchestrator) TerminateInstances(ctx context.Context, opts *config.Options) error {
	if !o.Store.Exists(opts.Keyname) {
		return Preconditionf("no deployment named %q; nothing to terminate", opts.Keyname)
	}
	meta, err := o.loadMetadata(opts.Keyname)
	if err != nil {
		return err
	}

	gw, err := o.NewGateway(meta.Infrastructure, opts)
	if err != nil {
		return Configf("cannot tear down %q infrastructure: %w", meta.Infrastructure, err)
	}

	teardownErr := gw.Teardown(ctx, meta)
	if teardownErr != nil {
		o.Log.Warn().Err(teardownErr).Str("keyname", opts.Keyname).Msg("teardown incomplete; removing local metadata anyway")
	}

	if err := o.Store.Delete(opts.Keyname); err != nil {
		o.Log.Warn().Err(err).Str("keyname", opts.Keyname).Msg("could not delete local metadata")
	}

	if teardownErr != nil {
		return Unreachablef("teardown incomplete: %w", teardownErr)
	}
	o.Log.Info().Str("keyname", opts.Keyname).Msg("deployment terminated")
	return nil
}
