package bundle

import (
	"context"
	"fmt"

	"swupd.dev/swupd/internal/config"
	"swupd.dev/swupd/internal/fetch"
	"swupd.dev/swupd/internal/graph"
	"swupd.dev/swupd/internal/journal"
	"swupd.dev/swupd/internal/lock"
	"swupd.dev/swupd/internal/manifest"
	"swupd.dev/swupd/internal/stage"
	"swupd.dev/swupd/internal/state"
	"swupd.dev/swupd/internal/version"
)

// Setup performs Lock & Init: it acquires the process-wide lock, discovers
// the current OS version, and assembles every collaborator a bundle
// operation needs. The returned Context's Close, and the returned
// lock.Handle's Close, must both run on every exit path; Setup itself never
// leaves the lock held if it returns an error.
func Setup(ctx context.Context, cfg config.Config) (*Context, error) {
	currentVersion, err := version.Discover(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCurrentVersion, err)
	}

	fetcher := fetch.NewHTTPFetcher(cfg.ContentURL)

	lh, err := lock.Init(ctx, cfg.Root, cfg.StateDir, currentVersion, fetcher)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	j, err := journal.Open(cfg.StateDir)
	if err != nil {
		_ = lh.Close()
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	loader := manifest.NewLoader(fetcher, manifest.NoopVerifier{})
	resolver := graph.NewResolver(loader)
	stager := stage.New(cfg.Root, lh.StagedDir, fetcher)

	subs := state.NewSet()
	if err := subs.LoadTracked(cfg.Root); err != nil {
		_ = j.Close()
		_ = lh.Close()
		return nil, fmt.Errorf("%w: %v", ErrInitFailed, err)
	}

	return &Context{
		Lock:           lh,
		Fetcher:        fetcher,
		Loader:         loader,
		Resolver:       resolver,
		Stager:         stager,
		Journal:        j,
		Root:           cfg.Root,
		CurrentVersion: currentVersion,
		Subs:           subs,
	}, nil
}
