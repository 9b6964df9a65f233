package buftree

// InsertResult reports the outcome of InsertIdx: either the key was new
// (LeafOffset names the leaf slot it landed in) or it replaced an existing
// key (Displaced holds the old value).
type InsertResult struct {
	Displaced  Key
	LeafOffset int64
}

// Insert upserts key into the tree: if an equal key is already present, it
// is replaced and the previous value is returned; otherwise the key is
// added and nil is returned. This is never a failure signal: "already
// present" is expressed purely through the returned value.
func (t *Tree) Insert(key Key) (Key, error) {
	r, err := t.InsertIdx(key)
	if err != nil {
		return nil, err
	}
	return r.Displaced, nil
}

// InsertIdx behaves like Insert but additionally reports the offset of the
// leaf slot a newly-inserted key landed in, so callers (the line-index
// builder) can remember it without re-descending from root.
//
// Insertion splits proactively on the way down: every node on the
// root-to-leaf path is guaranteed to have len < order by the time it is
// entered (either it already did, or was split before descent continued),
// so the leaf insertion never needs a second split or an ascending fixup
// pass.
func (t *Tree) InsertIdx(key Key) (InsertResult, error) {
	if t.root == noOffset {
		leaf := &node{leaf: true, keys: []Key{key}}
		off, err := t.allocate()
		if err != nil {
			return InsertResult{}, err
		}
		leaf.idx = off
		if err := t.writeNode(leaf); err != nil {
			return InsertResult{}, err
		}
		t.root = off
		if err := t.persistHeader(); err != nil {
			return InsertResult{}, err
		}
		return InsertResult{LeafOffset: off}, nil
	}

	rootNode, err := t.readNode(t.root)
	if err != nil {
		return InsertResult{}, err
	}

	if len(rootNode.keys) == t.order {
		newRoot, displaced, err := t.splitBeforeDescent(rootNode, key)
		if err != nil {
			return InsertResult{}, err
		}
		if displaced != nil {
			return InsertResult{Displaced: displaced}, nil
		}
		rootNode = newRoot
	}

	return t.descendInsert(rootNode, key)
}

// splitBeforeDescent splits n (the current root, len == order) into a new
// root holding the median key and two children, persists all three slots
// and the header, and returns the new root. If key equals the median, the
// split itself absorbs the upsert and displaced is non-nil.
func (t *Tree) splitBeforeDescent(n *node, key Key) (newRoot *node, displaced Key, err error) {
	medianIdx := len(n.keys) / 2
	sep := n.keys[medianIdx]

	right := &node{leaf: n.leaf}
	right.keys = append([]Key{}, n.keys[medianIdx+1:]...)
	if !n.leaf {
		right.children = append([]int64{}, n.children[medianIdx+1:]...)
		n.children = n.children[:medianIdx+1]
	}
	n.keys = n.keys[:medianIdx]

	rightOff, err := t.allocate()
	if err != nil {
		return nil, nil, err
	}
	right.idx = rightOff

	if err := t.writeNode(right); err != nil {
		return nil, nil, err
	}
	if err := t.writeNode(n); err != nil {
		return nil, nil, err
	}

	rootOff, err := t.allocate()
	if err != nil {
		return nil, nil, err
	}
	root := &node{
		idx:      rootOff,
		leaf:     false,
		keys:     []Key{sep},
		children: []int64{n.idx, rightOff},
	}
	t.root = rootOff
	if err := t.persistHeader(); err != nil {
		return nil, nil, err
	}
	t.obs.Split()

	if key.Equal(sep) {
		root.keys[0] = key
		if err := t.writeNode(root); err != nil {
			return nil, nil, err
		}
		return root, sep, nil
	}
	if err := t.writeNode(root); err != nil {
		return nil, nil, err
	}
	return root, nil, nil
}

func (t *Tree) descendInsert(n *node, key Key) (InsertResult, error) {
	idx, found := binarySearch(n.keys, key)
	if found {
		displaced := n.keys[idx]
		n.keys[idx] = key
		if err := t.writeNode(n); err != nil {
			return InsertResult{}, err
		}
		return InsertResult{Displaced: displaced}, nil
	}

	if n.leaf {
		n.keys = insertKeyAt(n.keys, idx, key)
		if err := t.writeNode(n); err != nil {
			return InsertResult{}, err
		}
		return InsertResult{LeafOffset: n.idx}, nil
	}

	child, err := t.readNode(n.children[idx])
	if err != nil {
		return InsertResult{}, err
	}

	if len(child.keys) != t.order {
		return t.descendInsert(child, key)
	}

	// Split the child before entering it: move its upper half to a new
	// right sibling, push the median into n alongside the new sibling's
	// offset, persist child, sibling, and parent, then choose a branch.
	medianIdx := len(child.keys) / 2
	sep := child.keys[medianIdx]

	right := &node{leaf: child.leaf}
	right.keys = append([]Key{}, child.keys[medianIdx+1:]...)
	if !child.leaf {
		right.children = append([]int64{}, child.children[medianIdx+1:]...)
		child.children = child.children[:medianIdx+1]
	}
	child.keys = child.keys[:medianIdx]

	rightOff, err := t.allocate()
	if err != nil {
		return InsertResult{}, err
	}
	right.idx = rightOff

	if err := t.writeNode(right); err != nil {
		return InsertResult{}, err
	}
	if err := t.writeNode(child); err != nil {
		return InsertResult{}, err
	}

	n.keys = insertKeyAt(n.keys, idx, sep)
	n.children = insertChildAt(n.children, idx+1, rightOff)
	if err := t.writeNode(n); err != nil {
		return InsertResult{}, err
	}
	t.obs.Split()

	switch {
	case key.Equal(sep):
		n.keys[idx] = key
		if err := t.writeNode(n); err != nil {
			return InsertResult{}, err
		}
		return InsertResult{Displaced: sep}, nil
	case key.Less(sep):
		return t.descendInsert(child, key)
	default:
		return t.descendInsert(right, key)
	}
}
