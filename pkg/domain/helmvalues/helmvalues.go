// Package helmvalues publishes the freshly built image coordinates to
// the gitops repository a Helm-based CD tool watches.
package helmvalues

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	configs "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/configs/deploy"
	xe "github.com/Bengo-Hub/bengobox-erp-api-sub002/pkg/errors"
)

// ErrMissingAuthorization means the target repository differs from the
// source one but no token was provided. This is detected before any
// network activity.
var ErrMissingAuthorization = errors.New(
	"gitops target repository differs from the source repository and no token is configured",
)

// ErrPropagation means the updated values could not be published.
// The orchestrator downgrades it to a warning: the deployment itself
// has already succeeded by the time values are propagated.
var ErrPropagation = errors.New("could not publish helm values")

// Coordinates locates the values file to rewrite.
type Coordinates struct {
	SourceRepo string
	TargetRepo string
	RemoteURL  string
	Branch     string
	ValuesPath string
	Token      string
}

func CoordinatesFrom(conf *configs.DeployConfig) Coordinates {
	g := conf.Gitops()
	return Coordinates{
		SourceRepo: g.SourceRepo(),
		TargetRepo: g.TargetRepo(),
		RemoteURL:  g.RemoteURL(),
		Branch:     g.Branch(),
		ValuesPath: g.ValuesPath(),
		Token:      g.Token(),
	}
}

func (c Coordinates) crossRepo() bool {
	return c.TargetRepo != "" && c.TargetRepo != c.SourceRepo
}

func (c Coordinates) auth() transport.AuthMethod {
	if c.Token == "" {
		return nil
	}
	return &githttp.BasicAuth{Username: "oauth2", Password: c.Token}
}

// Release is what gets written into the values file.
type Release struct {
	AppName     string
	CommitId    string
	ImageRepo   string
	ImageTag    string
	PullSecrets []string
}

func (r Release) message() string {
	return fmt.Sprintf("%s:%s released", r.AppName, r.CommitId)
}

// Propagator clones (or reuses) the gitops repository under Workdir,
// rewrites the values file and pushes the release commit.
type Propagator struct {
	Workdir string
	Logger  *log.Logger

	// optional: when set, image existence is pre-checked and a miss
	// is logged as a warning.
	Registry RegistryChecker

	// commit timestamps; defaults to time.Now.
	Clock func() time.Time
}

func (p *Propagator) now() time.Time {
	if p.Clock == nil {
		return time.Now()
	}
	return p.Clock()
}

// Propagate publishes the release to the gitops repository.
//
// The authorization precondition is checked first, with zero network
// calls: failing a deployment at the very end for a missing token is
// the worst time to find out.
func (p *Propagator) Propagate(ctx context.Context, coords Coordinates, rel Release) error {
	if coords.crossRepo() && coords.Token == "" {
		return xe.Wrap(ErrMissingAuthorization)
	}

	if p.Registry != nil {
		ref := fmt.Sprintf("%s:%s", rel.ImageRepo, rel.ImageTag)
		if ok, err := p.Registry.Exists(ctx, ref); err != nil {
			p.Logger.Printf("warning: cannot query registry for %s: %s", ref, err)
		} else if !ok {
			p.Logger.Printf("warning: image %s is not visible in the registry yet", ref)
		}
	}

	repo, err := p.cloneOrOpen(ctx, coords)
	if err != nil {
		return propagationError(err)
	}

	committed, err := p.commitRelease(repo, coords, rel)
	if err != nil {
		return propagationError(err)
	}
	if !committed {
		p.Logger.Printf("helm values already carry %s:%s; nothing to push", rel.ImageRepo, rel.ImageTag)
		return nil
	}

	if err := p.push(ctx, repo, coords); err == nil {
		p.Logger.Printf("pushed %q to %s (%s)", rel.message(), coords.TargetRepo, coords.Branch)
		return nil
	} else {
		p.Logger.Printf("push rejected, resyncing once: %s", err)
	}

	// optimistic concurrency: someone pushed between our clone and
	// push. Resync to the remote head, redo the edit, push again.
	if err := p.resync(ctx, repo, coords); err != nil {
		return propagationError(err)
	}
	if _, err := p.commitRelease(repo, coords, rel); err != nil {
		return propagationError(err)
	}
	if err := p.push(ctx, repo, coords); err != nil {
		return propagationError(err)
	}
	p.Logger.Printf("pushed %q to %s (%s) after resync", rel.message(), coords.TargetRepo, coords.Branch)
	return nil
}

func propagationError(err error) error {
	return xe.Wrap(fmt.Errorf("%w: %w", ErrPropagation, err))
}

func (p *Propagator) cloneOrOpen(ctx context.Context, coords Coordinates) (*git.Repository, error) {
	repo, err := git.PlainOpen(p.Workdir)
	if err == nil {
		wt, err := repo.Worktree()
		if err != nil {
			return nil, err
		}
		if err := wt.Checkout(&git.CheckoutOptions{
			Branch: plumbing.NewBranchReferenceName(coords.Branch),
		}); err != nil {
			return nil, err
		}
		if err := p.resync(ctx, repo, coords); err != nil {
			return nil, err
		}
		return repo, nil
	}
	if !errors.Is(err, git.ErrRepositoryNotExists) {
		return nil, err
	}

	return git.PlainCloneContext(ctx, p.Workdir, false, &git.CloneOptions{
		URL:           coords.RemoteURL,
		Auth:          coords.auth(),
		ReferenceName: plumbing.NewBranchReferenceName(coords.Branch),
		SingleBranch:  true,
	})
}

// commitRelease rewrites the values file and commits.
//
// Returns false when the file already carries the release and there is
// nothing to commit.
func (p *Propagator) commitRelease(repo *git.Repository, coords Coordinates, rel Release) (bool, error) {
	valuesFile := filepath.Join(p.Workdir, filepath.FromSlash(coords.ValuesPath))
	doc, err := os.ReadFile(valuesFile)
	if err != nil {
		return false, err
	}
	rewritten, err := RewriteImage(doc, rel.ImageRepo, rel.ImageTag, rel.PullSecrets)
	if err != nil {
		return false, err
	}
	if err := os.WriteFile(valuesFile, rewritten, 0o644); err != nil {
		return false, err
	}

	wt, err := repo.Worktree()
	if err != nil {
		return false, err
	}
	if _, err := wt.Add(coords.ValuesPath); err != nil {
		return false, err
	}

	status, err := wt.Status()
	if err != nil {
		return false, err
	}
	if status.IsClean() {
		return false, nil
	}

	when := p.now()
	_, err = wt.Commit(rel.message(), &git.CommitOptions{
		Author: &object.Signature{
			Name:  "deployctl",
			Email: "deployctl@bengo-hub.invalid",
			When:  when,
		},
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

func (p *Propagator) push(ctx context.Context, repo *git.Repository, coords Coordinates) error {
	err := repo.PushContext(ctx, &git.PushOptions{Auth: coords.auth()})
	if errors.Is(err, git.NoErrAlreadyUpToDate) {
		return nil
	}
	return err
}

// resync moves the local branch to the remote head, discarding local
// commits (they get re-created from scratch afterwards).
func (p *Propagator) resync(ctx context.Context, repo *git.Repository, coords Coordinates) error {
	err := repo.FetchContext(ctx, &git.FetchOptions{Auth: coords.auth()})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}

	remote, err := repo.Reference(
		plumbing.NewRemoteReferenceName("origin", coords.Branch), true,
	)
	if err != nil {
		return err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return err
	}
	return wt.Reset(&git.ResetOptions{
		Commit: remote.Hash(),
		Mode:   git.HardReset,
	})
}
