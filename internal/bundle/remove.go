package bundle

import (
	"context"
	"fmt"
	"log/slog"

	"swupd.dev/swupd/internal/consolidate"
	"swupd.dev/swupd/internal/manifest"
	"swupd.dev/swupd/internal/state"
)

// Remove unsubscribes name, verifies no remaining bundle still requires it
// via Includes, then deletes every file uniquely owned by name: files
// still claimed by a bundle that remains installed are protected by
// de-duplication against the retain-set.
func Remove(ctx context.Context, bc *Context, name string) error {
	if name == OSCoreBundle {
		return fmt.Errorf("remove: %w: %s is implicit and cannot be removed", ErrBundleNotTracked, name)
	}
	if !state.IsTracked(bc.Root, name) {
		return fmt.Errorf("remove: %w: %s", ErrBundleNotTracked, name)
	}

	mom, err := bc.Loader.LoadMoM(ctx, bc.CurrentVersion)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	bc.MoM = mom
	if mom.Pointer(name) == nil {
		return fmt.Errorf("remove: %w: %s is not a valid bundle name", ErrBundleRemove, name)
	}

	if err := bc.Subs.LoadTracked(bc.Root); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	if err := bc.Subs.Unsubscribe(name); err != nil {
		return fmt.Errorf("remove: %w: %s", ErrBundleNotTracked, name)
	}
	bc.Subs.SetVersionsFromMoM(mom)

	remaining, err := bc.Resolver.RecurseAll(ctx, mom, bc.Subs.Names())
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	mom.Submanifests = remaining

	if isIncludedByAny(name, remaining) {
		return fmt.Errorf("remove: %w: %s is required by another installed bundle", ErrBundleRemove, name)
	}

	retainSet := consolidate.Consolidate(consolidate.FilesFrom(remaining))

	toRemove, err := bc.Resolver.RecurseOne(ctx, mom, name)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	bundleFiles := consolidate.SortByPath(append([]*manifest.File{}, toRemove[0].Files...))

	surviving := consolidate.Dedup(bundleFiles, retainSet)

	slog.Info("deleting bundle files", slog.String("bundle", name))
	if err := bc.Stager.Remove(surviving); err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	slog.Info("untracking bundle", slog.String("bundle", name))
	if err := state.RemoveMarker(bc.Root, name); err != nil {
		return fmt.Errorf("remove: %w", err)
	}

	return nil
}

// isIncludedByAny reports whether any manifest in remaining lists name in
// its Includes, meaning a surviving bundle still depends on it.
func isIncludedByAny(name string, remaining []*manifest.Manifest) bool {
	for _, m := range remaining {
		if m.HasInclude(name) {
			return true
		}
	}
	return false
}
