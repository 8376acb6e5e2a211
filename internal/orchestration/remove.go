package orchestration

import (
	"context"
	"fmt"

	"github.com/nimbusphere/nimbus/internal/config"
)

// RemoveApp stops a hosted application and waits until the controller
// reports it no longer running. The drain poll is unbounded; an operator
// who wants out kills the process.
func (o *Orchestrator) RemoveApp(ctx context.Context, opts *config.Options) error {
	meta, err := o.loadMetadata(opts.Keyname)
	if err != nil {
		return err
	}

	if !opts.Confirm {
		ok, err := o.Confirm(ctx, fmt.Sprintf("Remove application %q from deployment %q?", opts.AppName, opts.Keyname))
		if err != nil {
			return err
		}
		if !ok {
			return Preconditionf("removal of %q not confirmed", opts.AppName)
		}
	}

	ctrl := o.NewController(meta.HeadNode, meta.Secret)
	regHost, reg, err := o.registryFor(ctx, ctrl, meta)
	if err != nil {
		return err
	}
	exists, err := reg.AppExists(ctx, opts.AppName)
	if err != nil {
		return classifyRemote(err, "registry", regHost)
	}
	if !exists {
		return Preconditionf("application %q is not deployed", opts.AppName)
	}

	if err := ctrl.StopApp(ctx, opts.AppName); err != nil {
		return classifyRemote(err, "controller", meta.HeadNode)
	}

	o.Log.Info().Str("app", opts.AppName).Msg("stop requested; waiting for drain")
	for {
		running, err := ctrl.AppRunning(ctx, opts.AppName)
		if err != nil {
			return classifyRemote(err, "controller", meta.HeadNode)
		}
		if !running {
			break
		}
		if err := sleep(ctx, o.Backoff.PollInterval); err != nil {
			return err
		}
	}

	o.Log.Info().Str("app", opts.AppName).Msg("application removed")
	return nil
}
