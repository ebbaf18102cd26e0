package helmvalues

import (
	"context"

	"github.com/google/go-containerregistry/pkg/authn"
	"github.com/google/go-containerregistry/pkg/name"
	"github.com/google/go-containerregistry/pkg/v1/remote"
)

// RegistryChecker answers whether an image reference exists.
type RegistryChecker interface {
	Exists(ctx context.Context, ref string) (bool, error)
}

type remoteRegistry struct{}

// NewRegistryChecker checks image existence against the remote
// registry with the ambient keychain (docker config, cloud helpers).
func NewRegistryChecker() RegistryChecker {
	return remoteRegistry{}
}

func (remoteRegistry) Exists(ctx context.Context, ref string) (bool, error) {
	parsed, err := name.ParseReference(ref)
	if err != nil {
		return false, err
	}
	_, err = remote.Head(
		parsed,
		remote.WithContext(ctx),
		remote.WithAuthFromKeychain(authn.DefaultKeychain),
	)
	if err != nil {
		// manifest-not-found and permission trouble both surface here;
		// the caller treats a miss as a warning either way.
		return false, nil
	}
	return true, nil
}
