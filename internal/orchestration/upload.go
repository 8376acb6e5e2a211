package orchestration

import (
	"context"

	"github.com/nimbusphere/nimbus/internal/bundle"
	"github.com/nimbusphere/nimbus/internal/config"
	"github.com/nimbusphere/nimbus/internal/util/retry"
)

// UploadApp deploys an application bundle to a running deployment and
// returns its serving host:port. Compressed bundles are extracted to a
// temporary directory that is removed afterwards whether or not the
// upload succeeds. An application id already owned by someone else is
// rejected before the registry or controller is asked to change
// anything.
func (o *Orchestrator) UploadApp(ctx context.Context, opts *config.Options) (string, error) {
	meta, err := o.loadMetadata(opts.Keyname)
	if err != nil {
		return "", err
	}

	b, cleanup, err := bundle.Open(opts.File)
	if err != nil {
		return "", Configf("invalid application bundle %q: %w", opts.File, err)
	}
	defer cleanup()
	if err := bundle.ValidateAppID(b.AppID); err != nil {
		return "", Configf("%w", err)
	}

	username, err := o.Credentials.Username(ctx)
	if err != nil {
		return "", Configf("resolving application owner: %w", err)
	}
	if err := config.ValidateUsername(username); err != nil {
		return "", Configf("%w", err)
	}

	ctrl := o.NewController(meta.HeadNode, meta.Secret)
	regHost, reg, err := o.registryFor(ctx, ctrl, meta)
	if err != nil {
		return "", err
	}

	userExists, err := reg.UserExists(ctx, username)
	if err != nil {
		return "", classifyRemote(err, "registry", regHost)
	}
	gw, err := o.NewGateway(meta.Infrastructure, opts)
	if err != nil {
		return "", Configf("cannot reach %q nodes: %w", meta.Infrastructure, err)
	}
	if !userExists {
		password, err := o.Credentials.Password(ctx)
		if err != nil {
			return "", Configf("resolving password for new account %q: %w", username, err)
		}
		if err := gw.CreateAccount(ctx, username, password, regHost, opts.Keyname); err != nil {
			return "", Unreachablef("creating account %q: %w", username, err)
		}
		o.Log.Info().Str("username", username).Msg("created owner account")
	}

	owner, err := reg.AppOwner(ctx, b.AppID)
	if err != nil {
		return "", classifyRemote(err, "registry", regHost)
	}
	if owner != "" && owner != username {
		return "", Rejectedf("application %q is owned by %s, not %s", b.AppID, owner, username)
	}
	appExists := owner != ""

	if !appExists {
		if err := reg.ReserveAppID(ctx, username, b.AppID, b.Runtime); err != nil {
			return "", classifyRemote(err, "registry", regHost)
		}
	}

	remotePath, err := gw.CopyAppBundle(ctx, b.Dir, meta.HeadNode, opts.Keyname)
	if err != nil {
		return "", Unreachablef("staging bundle on head node: %w", err)
	}
	if err := ctrl.MarkUploadComplete(ctx, b.AppID, remotePath); err != nil {
		return "", classifyRemote(err, "controller", meta.HeadNode)
	}
	if err := ctrl.TriggerUpdate(ctx, []string{b.AppID}); err != nil {
		return "", classifyRemote(err, "controller", meta.HeadNode)
	}

	if appExists {
		// Give the controller time to cycle the serving process before
		// probing, or the old instance answers the port check.
		o.Log.Info().Str("app", b.AppID).Msg("redeploying existing application")
		if err := sleep(ctx, o.Backoff.RedeployDelay); err != nil {
			return "", err
		}
	}

	var host string
	var port int
	err = retry.Do(ctx, func() error {
		var err error
		host, port, err = reg.ServingAddress(ctx, b.AppID, opts.Keyname)
		return err
	}, retry.WithInitialDelay(o.Backoff.PollInterval), retry.WithMaxDelay(o.Backoff.PollInterval))
	if err != nil {
		return "", classifyRemote(err, "registry", regHost)
	}

	if err := o.Poller.WaitForPort(ctx, host, port, o.Backoff.Timeouts.AppServing); err != nil {
		return "", classifyWait(err, "application "+b.AppID, host, port)
	}

	serving := addrString(host, port)
	o.Log.Info().Str("app", b.AppID).Str("serving", serving).Msg("application deployed")
	return serving, nil
}
