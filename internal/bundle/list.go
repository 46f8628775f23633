package bundle

import (
	"context"
	"fmt"
)

// List loads the MoM for the context's current version and returns every
// bundle name it advertises.
func List(ctx context.Context, bc *Context) ([]string, error) {
	mom, err := bc.Loader.LoadMoM(ctx, bc.CurrentVersion)
	if err != nil {
		return nil, fmt.Errorf("list: %w", err)
	}
	bc.MoM = mom

	names := make([]string, 0, len(mom.Manifests))
	for _, ptr := range mom.Manifests {
		names = append(names, ptr.Path)
	}
	return names, nil
}
