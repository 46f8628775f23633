package bundle

import (
	"context"
	"log/slog"

	"swupd.dev/swupd/internal/manifest"
	"swupd.dev/swupd/internal/state"
)

// AddResultKind tags the outcome of addSubscriptions, replacing the
// original tri-state integer return with an explicit sum type.
type AddResultKind int

const (
	// Added means at least one new bundle (or include) was subscribed.
	Added AddResultKind = iota
	// NoNew means every requested bundle, and its includes, was already
	// subscribed or tracked.
	NoNew
	// Failed means a required manifest could not be loaded; Err holds why.
	Failed
)

// AddSubscriptionsResult is the outcome of addSubscriptions.
type AddSubscriptionsResult struct {
	Kind AddResultKind
	Err  error
}

// addSubscriptions finds each requested name's pointer in mom, loads its
// manifest, recurses on its includes first, and subscribes the name if it
// is not already tracked or subscribed. Invalid names are skipped with a
// warning rather than treated as fatal.
func addSubscriptions(ctx context.Context, bc *Context, names []string, mom *manifest.Manifest) AddSubscriptionsResult {
	newBundles := false

	for _, name := range names {
		ptr := mom.Pointer(name)
		if ptr == nil {
			slog.Warn("bundle name is invalid, skipping it", slog.String("bundle", name))
			continue
		}

		sub, err := bc.Loader.LoadSub(ctx, ptr.LastChange, name, ptr.Hash, mom)
		if err != nil {
			return AddSubscriptionsResult{Kind: Failed, Err: err}
		}

		if len(sub.Includes) > 0 {
			res := addSubscriptions(ctx, bc, sub.Includes, mom)
			switch res.Kind {
			case Failed:
				return res
			case Added:
				newBundles = true
			}
		}

		if state.IsTracked(bc.Root, name) || bc.Subs.IsSubscribed(name) {
			continue
		}
		bc.Subs.Subscribe(name)
		newBundles = true
	}

	if newBundles {
		return AddSubscriptionsResult{Kind: Added}
	}
	return AddSubscriptionsResult{Kind: NoNew}
}
