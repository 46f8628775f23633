package bundle

import (
	"swupd.dev/swupd/internal/fetch"
	"swupd.dev/swupd/internal/graph"
	"swupd.dev/swupd/internal/journal"
	"swupd.dev/swupd/internal/lock"
	"swupd.dev/swupd/internal/manifest"
	"swupd.dev/swupd/internal/stage"
	"swupd.dev/swupd/internal/state"
)

// Context is the explicit value threaded through list/install/remove in
// place of the process-global subscription table the original
// implementation mutated. The process lock remains the sole cross-process
// serialization point; everything else here is per-operation state owned
// by the caller.
type Context struct {
	Lock    *lock.Handle
	Fetcher fetch.Fetcher
	Loader  *manifest.Loader

	Resolver *graph.Resolver
	Stager   *stage.Stager
	Journal  *journal.Journal

	Root           string
	CurrentVersion int
	Subs           *state.Set
	MoM            *manifest.Manifest
}

// Close releases resources owned by the context. It does not release the
// lock, which the caller acquired and must release itself on every exit
// path.
func (c *Context) Close() error {
	if c.Journal != nil {
		return c.Journal.Close()
	}
	return nil
}
