// Package walker implements the directory walk and staging copy that feed
// half2's line-index builder. Grounded on original_source/src/main.rs's
// Checkout/Stage/PathInfo, this is deliberately thin: spec.md names it as
// external plumbing, not part of the engineering core.
package walker

import (
	"io/fs"
	"path/filepath"
)

// DefaultIgnore is the implicit ignore set named in spec.md 6.
func DefaultIgnore() []string {
	return []string{".h2", ".git", "target", "perf.data", "src"}
}

// PathInfo describes one regular file found during a walk.
type PathInfo struct {
	RelPath string
	Size    int64
	Mode    fs.FileMode
}

// Checkout walks a working tree, skipping any path component named in
// Ignore (matched against the base name of the entry, the same way the
// original treats ".h2"/".git"/"target" as opaque skip-roots).
type Checkout struct {
	Ignore map[string]struct{}
}

// NewCheckout builds a Checkout from a slice of ignored base names.
func NewCheckout(ignore []string) *Checkout {
	m := make(map[string]struct{}, len(ignore))
	for _, name := range ignore {
		m[name] = struct{}{}
	}
	return &Checkout{Ignore: m}
}

// Walk visits every regular file under root not excluded by the ignore
// set, calling fn with its PathInfo. Symlinks are not followed, matching
// the original's file/directory-only metadata probe.
func (c *Checkout) Walk(root string, fn func(PathInfo) error) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if _, skip := c.Ignore[d.Name()]; skip {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		return fn(PathInfo{
			RelPath: filepath.ToSlash(rel),
			Size:    info.Size(),
			Mode:    info.Mode(),
		})
	})
}
