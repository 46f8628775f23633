// Package stage implements the staging-then-rename file placement protocol:
// content is downloaded and verified under a staging prefix, then committed
// onto the live root filesystem with an atomic rename, never leaving a
// half-written path visible.
package stage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"

	digestpkg "github.com/opencontainers/go-digest"

	"swupd.dev/swupd/internal/fetch"
	"swupd.dev/swupd/internal/journal"
	"swupd.dev/swupd/internal/manifest"
)

// ErrBundleInstall is returned when a file cannot be staged or committed.
var ErrBundleInstall = fmt.Errorf("stage: file could not be staged")

// Stager places manifest-described files onto a live root filesystem.
type Stager struct {
	Root      string // live root filesystem prefix
	StagedDir string // <state_dir>/staged
	Fetcher   fetch.Fetcher
}

// New returns a Stager rooted at root, using stagedDir for content-addressed
// blob storage and pending placements, fetching missing content with
// fetcher.
func New(root, stagedDir string, fetcher fetch.Fetcher) *Stager {
	return &Stager{Root: root, StagedDir: stagedDir, Fetcher: fetcher}
}

func (s *Stager) blobPath(h digestpkg.Digest) string {
	return filepath.Join(s.StagedDir, "blobs", h.Algorithm().String(), h.Encoded())
}

func (s *Stager) pendingPath(h digestpkg.Digest, suffix string) string {
	return filepath.Join(s.StagedDir, "pending", h.Algorithm().String(), h.Encoded()+suffix)
}

func defaultMode(t manifest.FileType) os.FileMode {
	if t == manifest.TypeDirectory {
		return 0o755
	}
	return 0o644
}

// ensureBlob makes sure the content addressed by f.Hash exists under
// StagedDir/blobs, downloading and hash-verifying it from the fetcher if
// necessary.
func (s *Stager) ensureBlob(ctx context.Context, f *manifest.File, version int) (string, error) {
	path := s.blobPath(f.Hash)
	if fi, err := os.Stat(path); err == nil && !fi.IsDir() {
		return path, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("stage: creating blob directory: %w", err)
	}

	rc, err := s.Fetcher.FetchContent(ctx, version, f.Hash.Encoded())
	if err != nil {
		return "", fmt.Errorf("stage: fetching content for %s: %w", f.Path, err)
	}
	defer rc.Close()

	tmp := path + ".partial"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return "", fmt.Errorf("stage: creating temp blob: %w", err)
	}

	verifier := f.Hash.Verifier()
	if _, err := io.Copy(out, io.TeeReader(rc, verifier)); err != nil {
		out.Close()
		os.Remove(tmp)
		return "", fmt.Errorf("stage: writing content for %s: %w", f.Path, err)
	}
	if err := out.Close(); err != nil {
		os.Remove(tmp)
		return "", fmt.Errorf("stage: closing temp blob: %w", err)
	}
	if !verifier.Verified() {
		os.Remove(tmp)
		return "", fmt.Errorf("stage: content for %s failed hash verification", f.Path)
	}

	if err := os.Rename(tmp, path); err != nil {
		return "", fmt.Errorf("stage: committing blob for %s: %w", f.Path, err)
	}
	return path, nil
}

// Stage ensures file's content exists, places it under the staging prefix
// with its reconstructed metadata, and records file.Staging. Deleted files
// are never staged; other flags such as do-not-update are not checked here.
// Directories are not staged either (Staging stays empty) since they are
// created directly at commit time.
func (s *Stager) Stage(ctx context.Context, f *manifest.File, mom *manifest.Manifest) error {
	if f.Flags.Deleted {
		return nil
	}

	switch f.Type {
	case manifest.TypeDirectory:
		// directories have no content to stage; MkdirAll at commit time is
		// already atomic with respect to a half-created directory.
		return nil

	case manifest.TypeSymlink:
		blobPath, err := s.ensureBlob(ctx, f, f.LastChange)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBundleInstall, f.Path, err)
		}
		target, err := os.ReadFile(blobPath)
		if err != nil {
			return fmt.Errorf("%w: %s: reading symlink target: %v", ErrBundleInstall, f.Path, err)
		}
		staging := s.pendingPath(f.Hash, ".link")
		if err := os.MkdirAll(filepath.Dir(staging), 0o700); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBundleInstall, f.Path, err)
		}
		os.Remove(staging)
		if err := os.Symlink(string(target), staging); err != nil {
			return fmt.Errorf("%w: %s: creating staged symlink: %v", ErrBundleInstall, f.Path, err)
		}
		f.Staging = staging
		return nil

	default: // regular file
		blobPath, err := s.ensureBlob(ctx, f, f.LastChange)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBundleInstall, f.Path, err)
		}
		staging := s.pendingPath(f.Hash, ".file")
		if err := os.MkdirAll(filepath.Dir(staging), 0o700); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBundleInstall, f.Path, err)
		}
		if err := hardlinkOrCopy(blobPath, staging, defaultMode(f.Type)); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBundleInstall, f.Path, err)
		}
		f.Staging = staging
		return nil
	}
}

func hardlinkOrCopy(src, dst string, mode os.FileMode) error {
	os.Remove(dst)
	if err := os.Link(src, dst); err == nil {
		return os.Chmod(dst, mode)
	}
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("opening %s: %w", src, err)
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return fmt.Errorf("creating %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copying to %s: %w", dst, err)
	}
	return out.Close()
}

// RepairPath walks path's parent chain, creating any missing directory
// from its canonical manifest entry in mom's consolidated files, so a
// subsequent retry of Stage has somewhere to place its content.
func (s *Stager) RepairPath(ctx context.Context, path string, consolidated []*manifest.File) error {
	byPath := make(map[string]*manifest.File, len(consolidated))
	for _, f := range consolidated {
		byPath[f.Path] = f
	}

	dir := filepath.Dir(path)
	var missing []string
	for dir != "/" && dir != "." {
		full := filepath.Join(s.Root, dir)
		if _, err := os.Stat(full); err == nil {
			break
		}
		missing = append(missing, dir)
		dir = filepath.Dir(dir)
	}

	sort.Sort(sort.Reverse(sort.StringSlice(missing)))
	for _, d := range missing {
		mode := os.FileMode(0o755)
		if entry, ok := byPath[d]; ok && entry.Type == manifest.TypeDirectory {
			mode = defaultMode(entry.Type)
		}
		if err := os.MkdirAll(filepath.Join(s.Root, d), mode); err != nil {
			return fmt.Errorf("stage: repairing directory %s: %w", d, err)
		}
		slog.Debug("repaired parent directory", slog.String("path", d))
	}
	return nil
}

// Commit renames every staged file onto its final path, in the caller's
// order, recording each rename in j before it happens. After every rename
// succeeds, it issues the whole-filesystem sync barrier required before
// scripts run.
func (s *Stager) Commit(ctx context.Context, files []*manifest.File, j *journal.Journal) error {
	for _, f := range files {
		if f.Flags.Deleted {
			continue
		}

		final := filepath.Join(s.Root, f.Path)

		if f.Type == manifest.TypeDirectory {
			if err := os.MkdirAll(final, defaultMode(f.Type)); err != nil {
				return fmt.Errorf("%w: %s: creating directory: %v", ErrBundleInstall, f.Path, err)
			}
			continue
		}

		if f.Staging == "" {
			return fmt.Errorf("%w: %s: no staged content to commit", ErrBundleInstall, f.Path)
		}

		if err := os.MkdirAll(filepath.Dir(final), 0o755); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrBundleInstall, f.Path, err)
		}
		if err := j.RecordRename(f.Staging, final); err != nil {
			return err
		}
		if err := os.Rename(f.Staging, final); err != nil {
			return fmt.Errorf("%w: %s: committing rename: %v", ErrBundleInstall, f.Path, err)
		}
	}

	syncFilesystem()
	return nil
}

// Remove unlinks every surviving entry in files from the filesystem.
// Symlinks and regular files are unlinked first; directories are then
// removed deepest path first and only if empty, and a failure to remove a
// non-empty directory is logged and ignored since it means the directory
// is still shared.
func (s *Stager) Remove(files []*manifest.File) error {
	var dirs []*manifest.File
	for _, f := range files {
		full := filepath.Join(s.Root, f.Path)

		switch f.Type {
		case manifest.TypeDirectory:
			dirs = append(dirs, f)
		default:
			if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
				return fmt.Errorf("stage: removing %s: %w", f.Path, err)
			}
		}
	}

	sort.Slice(dirs, func(i, j int) bool { return dirs[i].Path > dirs[j].Path })
	for _, d := range dirs {
		if err := os.Remove(filepath.Join(s.Root, d.Path)); err != nil && !errors.Is(err, os.ErrNotExist) {
			slog.Debug("directory not empty, leaving in place", slog.String("path", d.Path))
		}
	}
	return nil
}
