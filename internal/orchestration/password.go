package orchestration

import (
	"context"

	"github.com/nimbusphere/nimbus/internal/config"
)

// ResetPassword updates a platform account's password through the
// registry. The password is hashed locally; only the digest crosses the
// wire. A registry refusal surfaces as a rejection so the process exits
// with its distinguishable status.
func (o *Orchestrator) ResetPassword(ctx context.Context, opts *config.Options) error {
	meta, err := o.loadMetadata(opts.Keyname)
	if err != nil {
		return err
	}

	creds, err := o.Credentials.Credentials(ctx)
	if err != nil {
		return Configf("resolving credentials: %w", err)
	}

	ctrl := o.NewController(meta.HeadNode, meta.Secret)
	regHost, reg, err := o.registryFor(ctx, ctrl, meta)
	if err != nil {
		return err
	}

	digest := config.HashPassword(creds.Username, creds.Password)
	if err := reg.ChangePassword(ctx, creds.Username, digest); err != nil {
		return classifyRemote(err, "registry", regHost)
	}

	o.Log.Info().Str("username", creds.Username).Msg("password updated")
	return nil
}
