// Package graph computes the transitive closure of a bundle's includes
// over a MoM: the manifest graph resolution step between the manifest
// loader and the file consolidator.
package graph

import (
	"context"
	"fmt"

	"swupd.dev/swupd/internal/manifest"
)

// ErrRecurseManifest is returned when any bundle manifest required to
// complete the resolution could not be loaded.
var ErrRecurseManifest = fmt.Errorf("graph: required sub-manifest could not be loaded")

// Resolver loads sub-manifests referenced by a MoM, expanding includes
// transitively with an explicit worklist and visited set (rather than
// recursion implicit in process-global state).
type Resolver struct {
	Loader *manifest.Loader
}

// NewResolver returns a Resolver that loads sub-manifests with loader.
func NewResolver(loader *manifest.Loader) *Resolver {
	return &Resolver{Loader: loader}
}

// RecurseOne returns a singleton list containing bundleName's sub-manifest.
// No transitive expansion is performed; this is the mode used by remove,
// which only wants the one bundle's own files.
func (r *Resolver) RecurseOne(ctx context.Context, mom *manifest.Manifest, bundleName string) ([]*manifest.Manifest, error) {
	sub, err := r.load(ctx, mom, bundleName)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrRecurseManifest, bundleName, err)
	}
	return []*manifest.Manifest{sub}, nil
}

// RecurseAll loads the sub-manifest for every name in roots and for every
// bundle transitively referenced via their Includes, returning them in
// discovery order. A bundle already present in the result is not reloaded,
// which makes the traversal safe against cycles in Includes.
func (r *Resolver) RecurseAll(ctx context.Context, mom *manifest.Manifest, roots []string) ([]*manifest.Manifest, error) {
	visited := make(map[string]struct{}, len(roots))
	var result []*manifest.Manifest

	worklist := append([]string{}, roots...)
	for len(worklist) > 0 {
		name := worklist[0]
		worklist = worklist[1:]

		if _, ok := visited[name]; ok {
			continue
		}
		visited[name] = struct{}{}

		sub, err := r.load(ctx, mom, name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrRecurseManifest, name, err)
		}
		result = append(result, sub)
		worklist = append(worklist, sub.Includes...)
	}

	return result, nil
}

func (r *Resolver) load(ctx context.Context, mom *manifest.Manifest, name string) (*manifest.Manifest, error) {
	ptr := mom.Pointer(name)
	if ptr == nil {
		return nil, fmt.Errorf("bundle %q not found in MoM", name)
	}
	return r.Loader.LoadSub(ctx, ptr.LastChange, name, ptr.Hash, mom)
}
