package bundle

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"swupd.dev/swupd/internal/consolidate"
	"swupd.dev/swupd/internal/manifest"
	"swupd.dev/swupd/internal/state"
)

// packFetchConcurrency bounds how many pack downloads run at once. Kept
// small and fixed rather than configurable: this is download parallelism
// against a single content server, not a worker pool sized to the host.
const packFetchConcurrency = 4

// Install subscribes to names (and their transitive includes), fetches and
// stages every file the resulting install set requires, then commits with
// an atomic rename pass followed by a sync barrier and post-install
// scripts.
func Install(ctx context.Context, bc *Context, names []string) error {
	mom, err := bc.Loader.LoadMoM(ctx, bc.CurrentVersion)
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}
	bc.MoM = mom

	res := addSubscriptions(ctx, bc, names, mom)
	switch res.Kind {
	case Failed:
		return fmt.Errorf("install: %w: %v", ErrBundleInstall, res.Err)
	case NoNew:
		return fmt.Errorf("install: %w: bundle(s) already installed", ErrBundleInstall)
	}

	bc.Subs.SetVersionsFromMoM(mom)

	toInstall, err := bc.Resolver.RecurseAll(ctx, mom, bc.Subs.Names())
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}
	toInstallFiles := consolidate.Consolidate(consolidate.FilesFrom(toInstall))

	if err := bc.Lock.ClearDownloadDir(); err != nil {
		return fmt.Errorf("install: %w", err)
	}

	slog.Info("downloading packs")
	if err := downloadSubscribedPacks(ctx, bc); err != nil {
		return fmt.Errorf("install: %w: %v", ErrBundleInstall, err)
	}

	// Reload tracked subscriptions and re-resolve the MoM's full
	// submanifest set, so RepairPath has the complete, current
	// consolidated view (not just the files newly being installed) to
	// reconstruct missing parent directories from.
	reloaded := state.NewSet()
	if err := reloaded.LoadTracked(bc.Root); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	for _, n := range bc.Subs.Names() {
		reloaded.Subscribe(n)
	}
	reloaded.SetVersionsFromMoM(mom)

	currentSubs, err := bc.Resolver.RecurseAll(ctx, mom, reloaded.Names())
	if err != nil {
		return fmt.Errorf("install: %w", err)
	}
	mom.Submanifests = currentSubs
	currentFiles := consolidate.Consolidate(consolidate.FilesFrom(currentSubs))

	slog.Info("staging bundle files")
	for _, f := range toInstallFiles {
		if shouldSkip(f) {
			continue
		}
		if err := bc.Stager.Stage(ctx, f, mom); err != nil {
			if repairErr := bc.Stager.RepairPath(ctx, f.Path, currentFiles); repairErr == nil {
				err = bc.Stager.Stage(ctx, f, mom)
			}
			if err != nil {
				return fmt.Errorf("install: %w", err)
			}
		}
	}

	// Entries Stage left without a Staging path (directories) are replaced
	// by their entry in the current consolidated view before committing.
	committed := make([]*manifest.File, 0, len(toInstallFiles))
	for _, f := range toInstallFiles {
		if shouldSkip(f) {
			continue
		}
		if f.Staging == "" {
			if resolved := lookup(currentFiles, f.Path); resolved != nil {
				f = resolved
			}
		}
		committed = append(committed, f)
	}

	if err := bc.Stager.Commit(ctx, committed, bc.Journal); err != nil {
		return fmt.Errorf("install: %w", err)
	}
	if err := bc.Journal.Complete(); err != nil {
		return fmt.Errorf("install: %w", err)
	}

	for _, n := range bc.Subs.Names() {
		if err := state.CreateMarker(bc.Root, n); err != nil {
			return fmt.Errorf("install: %w: %v", ErrBundleInstall, err)
		}
	}

	slog.Info("running post-install scripts")
	if err := runScripts(ctx, bc); err != nil {
		return fmt.Errorf("install: %w: %v", ErrBundleInstall, err)
	}

	return nil
}

// shouldSkip reports whether f is excluded from staging: deleted and
// do-not-update files never get written, and config/state files are left
// to the files already on disk rather than overwritten by install.
func shouldSkip(f *manifest.File) bool {
	return f.Flags.Deleted || f.Flags.DoNotUpdate || f.Flags.Config || f.Flags.State
}

func lookup(files []*manifest.File, path string) *manifest.File {
	for _, f := range files {
		if f.Path == path {
			return f
		}
	}
	return nil
}

// downloadSubscribedPacks requests the delta pack for every subscribed
// bundle concurrently and closes each one without reading it: pack content
// is not unpacked or stored, and the stager fetches individual file content
// by hash during Stage. A failed pack fetch, including fetch.ErrNoPack, is
// not fatal. This is the only concurrency in the install path; everything
// from staging onward is strictly sequential.
func downloadSubscribedPacks(ctx context.Context, bc *Context) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(packFetchConcurrency)

	for _, name := range bc.Subs.Names() {
		sub, ok := bc.Subs.Get(name)
		if !ok {
			continue
		}
		name, version := name, sub.Version
		g.Go(func() error {
			rc, err := bc.Fetcher.FetchPack(gctx, version, name)
			if err != nil {
				return nil
			}
			defer rc.Close()
			return nil
		})
	}

	return g.Wait()
}

// runScripts is the opaque post-install hook. Its implementation and
// failure semantics live outside this package's scope; it is a no-op
// placeholder for callers that do not need post-install script execution.
var runScripts = func(ctx context.Context, bc *Context) error {
	return nil
}
