package lineindex

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrasky/half2/pkg/buftree"
)

// Index is an open line index for a single source file: a BufTree over its
// content file plus the Meta blob it was built with.
type Index struct {
	RelPath string
	Meta    Meta

	tree  *buftree.Tree
	store *buftree.FileStore
}

// Manager owns one BufTree per tracked source file path, opened lazily and
// kept resident for the lifetime of the Manager. Directly grounded on
// pkg/index.IndexManager/SecondaryIndex (one B+Tree per field name,
// GetOrCreateIndex/Save/Load), generalized here to one BufTree per relative
// file path with content addressed under <dataDir>/logs/<relpath>/.
type Manager struct {
	dataDir  string
	order    int
	observer buftree.Observer

	mu      sync.RWMutex
	indexes map[string]*Index
}

// NewManager returns a Manager rooted at dataDir (typically ".h2"), using
// order for any index it creates.
func NewManager(dataDir string, order int) *Manager {
	return &Manager{
		dataDir: dataDir,
		order:   order,
		indexes: make(map[string]*Index),
	}
}

// SetObserver attaches obs to every BufTree this Manager opens or creates
// from this point on, including already-open indexes.
func (m *Manager) SetObserver(obs buftree.Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observer = obs
	for _, idx := range m.indexes {
		idx.tree.SetObserver(obs)
	}
}

func (m *Manager) logDir(relpath string) string {
	return filepath.Join(m.dataDir, "logs", relpath)
}

// Build creates a fresh line index for relpath from r, per spec.md 4.3's
// builder algorithm, writing <dataDir>/logs/<relpath>/{content,meta}, and
// returns the number of lines ingested.
func (m *Manager) Build(relpath string, r io.Reader) (int, error) {
	dir := m.logDir(relpath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}

	store, err := buftree.OpenFileStore(filepath.Join(dir, "content"))
	if err != nil {
		return 0, err
	}
	tree, err := buftree.Create(store, m.order, RecordKey{})
	if err != nil {
		store.Close()
		return 0, err
	}
	if m.observer != nil {
		tree.SetObserver(m.observer)
	}

	n, err := Build(tree, r)
	if err != nil {
		store.Close()
		return 0, err
	}

	meta := Meta{NodeCount: n, Order: m.order, BuildID: NewBuildID()}
	if err := WriteMeta(filepath.Join(dir, "meta"), meta); err != nil {
		store.Close()
		return 0, err
	}

	m.mu.Lock()
	m.indexes[relpath] = &Index{RelPath: relpath, Meta: meta, tree: tree, store: store}
	m.mu.Unlock()
	return n, nil
}

// Open opens an existing line index for relpath, validating the meta
// blob's recorded order against the Manager's configured order before
// touching the BufTree store (spec.md 9 Open Question 3).
func (m *Manager) Open(relpath string) (*Index, error) {
	m.mu.RLock()
	if idx, ok := m.indexes[relpath]; ok {
		m.mu.RUnlock()
		return idx, nil
	}
	m.mu.RUnlock()

	dir := m.logDir(relpath)
	meta, err := ReadMeta(filepath.Join(dir, "meta"))
	if err != nil {
		return nil, err
	}
	if meta.Order != m.order {
		return nil, fmt.Errorf(
			"lineindex: %s was built with order %d, manager configured for order %d: %w",
			relpath, meta.Order, m.order, buftree.ErrPrecondition)
	}

	store, err := buftree.OpenFileStore(filepath.Join(dir, "content"))
	if err != nil {
		return nil, err
	}
	tree, err := buftree.Open(store, m.order, RecordKey{})
	if err != nil {
		store.Close()
		return nil, err
	}
	if m.observer != nil {
		tree.SetObserver(m.observer)
	}

	idx := &Index{RelPath: relpath, Meta: meta, tree: tree, store: store}
	m.mu.Lock()
	m.indexes[relpath] = idx
	m.mu.Unlock()
	return idx, nil
}

// Diff opens relpath's index (if not already open) and diffs r against it.
func (m *Manager) Diff(relpath string, r io.Reader) ([]LineEvent, error) {
	idx, err := m.Open(relpath)
	if err != nil {
		return nil, err
	}
	return Diff(idx.tree, r)
}

// Close releases every open index's backing file.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for _, idx := range m.indexes {
		if err := idx.store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	m.indexes = make(map[string]*Index)
	return firstErr
}
