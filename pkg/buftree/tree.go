// Package buftree implements a persistent, on-disk B-tree whose every node
// lives as a fixed-size record inside a single random-access byte store,
// with an intrusive free-list for node reuse and upsert-on-insert
// semantics. See SPEC_FULL.md section 4.2 for the algorithm this package
// implements; it is grounded directly on the original tree.rs this
// specification was distilled from.
package buftree

import "sort"

// Tree is a B-tree over a Store. A Tree exclusively owns its Store for its
// lifetime: it is not safe for concurrent use, and values are not meant to
// be copied (copying a Tree value shares the live Store and header state,
// which defeats the single-ownership contract).
type Tree struct {
	store     Store
	order     int
	keyWidth  int
	slotWidth int
	last      int64
	root      int64
	gone      int64
	blank     Key
	obs       Observer
}

// minKeys is the minimum live-key occupancy for every node but the root:
// ceil(order/2). This resolves spec.md's open question on the
// minimum-occupancy threshold in favor of the ceiling, matching invariant 6
// rather than the original's `order/2` integer-division behavior.
func minKeys(order int) int {
	return (order + 1) / 2
}

// Create writes a fresh, empty tree header to store and returns a Tree
// bound to it. blank is a zero-value prototype of the concrete Key type
// this tree will hold; its EncodedLen() fixes the on-disk key width.
func Create(store Store, order int, blank Key) (*Tree, error) {
	if order < 3 {
		return nil, preconditionErr("order %d must be >= 3", order)
	}
	keyWidth := blank.EncodedLen()
	t := &Tree{
		store:     store,
		order:     order,
		keyWidth:  keyWidth,
		slotWidth: slotWidth(order, keyWidth),
		last:      treeHeaderSize,
		root:      noOffset,
		gone:      noOffset,
		blank:     blank,
		obs:       noopObserver{},
	}
	if err := t.persistHeader(); err != nil {
		return nil, err
	}
	return t, nil
}

// Open reads an existing tree header from store. This is an "unsafe open"
// per spec.md 3 "Lifecycle": the caller asserts the store was produced by a
// prior BufTree with the same order and key width as blank describes. The
// only check performed is that the header's recorded order/keyWidth match
// what the caller is asking to open with, per spec.md error kind 3
// (precondition violation).
func Open(store Store, order int, blank Key) (*Tree, error) {
	buf := make([]byte, treeHeaderSize)
	if _, err := store.ReadAt(buf, 0); err != nil {
		return nil, storageErr("open", err)
	}
	h := decodeTreeHeader(buf)
	keyWidth := blank.EncodedLen()
	if int(h.order) != order || int(h.keyWidth) != keyWidth {
		return nil, preconditionErr(
			"store header has order=%d keyWidth=%d, requested order=%d keyWidth=%d",
			h.order, h.keyWidth, order, keyWidth)
	}
	return &Tree{
		store:     store,
		order:     order,
		keyWidth:  keyWidth,
		slotWidth: slotWidth(order, keyWidth),
		last:      h.last,
		root:      h.root,
		gone:      h.gone,
		blank:     blank,
		obs:       noopObserver{},
	}, nil
}

func (t *Tree) persistHeader() error {
	h := treeHeader{
		order:    uint32(t.order),
		keyWidth: uint32(t.keyWidth),
		last:     t.last,
		root:     t.root,
		gone:     t.gone,
	}
	if _, err := t.store.WriteAt(encodeTreeHeader(h), 0); err != nil {
		return storageErr("persistHeader", err)
	}
	return nil
}

func (t *Tree) readNode(offset int64) (*node, error) {
	buf := make([]byte, t.slotWidth)
	if _, err := t.store.ReadAt(buf, offset); err != nil {
		return nil, storageErr("readNode", err)
	}
	return decodeNode(buf, t.order, t.keyWidth, offset, t.blank)
}

func (t *Tree) writeNode(n *node) error {
	buf := encodeNode(n, t.order, t.keyWidth)
	if _, err := t.store.WriteAt(buf, n.idx); err != nil {
		return storageErr("writeNode", err)
	}
	return nil
}

// binarySearch returns the index of key in keys (found=true) or the
// insertion point that preserves order (found=false).
func binarySearch(keys []Key, key Key) (idx int, found bool) {
	idx = sort.Search(len(keys), func(i int) bool {
		return !keys[i].Less(key)
	})
	if idx < len(keys) && keys[idx].Equal(key) {
		return idx, true
	}
	return idx, false
}

func insertKeyAt(keys []Key, idx int, key Key) []Key {
	keys = append(keys, nil)
	copy(keys[idx+1:], keys[idx:])
	keys[idx] = key
	return keys
}

func insertChildAt(children []int64, idx int, off int64) []int64 {
	children = append(children, 0)
	copy(children[idx+1:], children[idx:])
	children[idx] = off
	return children
}

// Contains reports whether key is present.
func (t *Tree) Contains(key Key) (bool, error) {
	k, err := t.Get(key)
	if err != nil {
		return false, err
	}
	return k != nil, nil
}

// Get returns the stored key equal to key, including its satellite data, or
// nil if absent.
func (t *Tree) Get(key Key) (Key, error) {
	if t.root == noOffset {
		return nil, nil
	}
	off := t.root
	for {
		n, err := t.readNode(off)
		if err != nil {
			return nil, err
		}
		idx, found := binarySearch(n.keys, key)
		if found {
			return n.keys[idx], nil
		}
		if n.leaf {
			return nil, nil
		}
		off = n.children[idx]
	}
}
