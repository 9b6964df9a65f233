package walker

import (
	"io"
	"os"
	"path/filepath"
)

// Stage copies regular files from a working tree into a flat staging
// directory that mirrors the tree's relative paths, grounded on
// original_source/src/main.rs's Stage struct.
type Stage struct {
	Root string
}

// NewStage returns a Stage rooted at root (typically ".h2/stage").
func NewStage(root string) *Stage {
	return &Stage{Root: root}
}

// Put copies r into <Root>/<relpath>, creating parent directories as
// needed.
func (s *Stage) Put(relpath string, r io.Reader) error {
	dest := filepath.Join(s.Root, filepath.FromSlash(relpath))
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return err
	}
	f, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = io.Copy(f, r)
	return err
}
