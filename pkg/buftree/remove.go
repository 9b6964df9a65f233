package buftree

// pendingSwap tracks the ancestor internal node and key index that matched
// the removal target. Descent continues into that separator's left child to
// find the in-order predecessor; when found, the predecessor's key is moved
// up into the pending slot and the original key there is what gets
// returned as "removed".
//
// Per spec.md 9 ("Remove path pending swap tracking"): the ancestor may
// itself move or have its key array reshaped by a rotate/merge performed to
// restore a descendant's occupancy before descent continues, since that
// descendant is exactly the child the pending separator points into. Every
// rotate/merge helper below updates a *pendingSwap in place so the
// reference always points at the slot that will eventually receive the
// predecessor key.
type pendingSwap struct {
	node *node
	idx  int
}

// Remove deletes the key equal to key, if present, and returns it.
func (t *Tree) Remove(key Key) (Key, error) {
	if t.root == noOffset {
		return nil, nil
	}
	rootNode, err := t.readNode(t.root)
	if err != nil {
		return nil, err
	}
	if len(rootNode.keys) == 0 {
		return nil, nil
	}

	removed, err := t.removeDescend(rootNode, key, nil)
	if err != nil {
		return nil, err
	}

	if err := t.collapseRootIfNeeded(); err != nil {
		return nil, err
	}
	return removed, nil
}

func (t *Tree) collapseRootIfNeeded() error {
	if t.root == noOffset {
		return nil
	}
	cur, err := t.readNode(t.root)
	if err != nil {
		return err
	}
	if len(cur.keys) > 0 {
		return nil
	}
	if cur.leaf {
		if err := t.free(t.root); err != nil {
			return err
		}
		t.root = noOffset
		return t.persistHeader()
	}
	newRootOff := cur.children[0]
	if err := t.free(t.root); err != nil {
		return err
	}
	t.root = newRootOff
	return t.persistHeader()
}

func (t *Tree) removeDescend(n *node, key Key, pending *pendingSwap) (Key, error) {
	if n.leaf {
		// A rotate/merge can carry the pending slot down into this leaf; the
		// key is then removed here directly, like any other leaf key.
		if pending != nil && pending.node != n {
			predIdx := len(n.keys) - 1
			predKey := n.keys[predIdx]
			n.keys = n.keys[:predIdx]
			if err := t.writeNode(n); err != nil {
				return nil, err
			}
			original := pending.node.keys[pending.idx]
			pending.node.keys[pending.idx] = predKey
			if err := t.writeNode(pending.node); err != nil {
				return nil, err
			}
			return original, nil
		}

		idx, found := binarySearch(n.keys, key)
		if !found {
			return nil, nil
		}
		removed := n.keys[idx]
		n.keys = append(n.keys[:idx], n.keys[idx+1:]...)
		if err := t.writeNode(n); err != nil {
			return nil, err
		}
		return removed, nil
	}

	idx, found := binarySearch(n.keys, key)
	if found && pending == nil {
		pending = &pendingSwap{node: n, idx: idx}
	}

	ci := idx
	child, err := t.fixChildOccupancy(n, ci, pending)
	if err != nil {
		return nil, err
	}
	return t.removeDescend(child, key, pending)
}

// fixChildOccupancy restores minimum occupancy on n.children[ci] before the
// caller descends into it, per spec.md 4.2 step 3, and returns the node to
// actually descend into (n.children[ci] itself, or the node a rotation/merge
// replaced it with). pending, if non-nil and anchored at n, is kept
// consistent with whatever reshaping happens to n's key array.
func (t *Tree) fixChildOccupancy(n *node, ci int, pending *pendingSwap) (*node, error) {
	child, err := t.readNode(n.children[ci])
	if err != nil {
		return nil, err
	}

	min := minKeys(t.order)
	if len(child.keys) != min-1 {
		return child, nil
	}

	leftExists := ci > 0
	rightExists := ci < len(n.children)-1

	if leftExists {
		leftSib, err := t.readNode(n.children[ci-1])
		if err != nil {
			return nil, err
		}
		if len(leftSib.keys) >= min {
			return t.rotateFromLeft(n, ci, leftSib, child, pending)
		}
	}
	if rightExists {
		rightSib, err := t.readNode(n.children[ci+1])
		if err != nil {
			return nil, err
		}
		if len(rightSib.keys) >= min {
			return t.rotateFromRight(n, ci, child, rightSib, pending)
		}
	}
	if leftExists {
		leftSib, err := t.readNode(n.children[ci-1])
		if err != nil {
			return nil, err
		}
		return t.mergeChildren(n, ci-1, leftSib, child, pending)
	}
	rightSib, err := t.readNode(n.children[ci+1])
	if err != nil {
		return nil, err
	}
	return t.mergeChildren(n, ci, child, rightSib, pending)
}

func (t *Tree) rotateFromLeft(n *node, ci int, leftSib, child *node, pending *pendingSwap) (*node, error) {
	sepIdx := ci - 1

	lastKey := leftSib.keys[len(leftSib.keys)-1]
	leftSib.keys = leftSib.keys[:len(leftSib.keys)-1]

	displaced := n.keys[sepIdx]
	n.keys[sepIdx] = lastKey
	child.keys = insertKeyAt(child.keys, 0, displaced)

	if !child.leaf {
		lastChild := leftSib.children[len(leftSib.children)-1]
		leftSib.children = leftSib.children[:len(leftSib.children)-1]
		child.children = insertChildAt(child.children, 0, lastChild)
	}

	if err := t.writeNode(leftSib); err != nil {
		return nil, err
	}
	if err := t.writeNode(child); err != nil {
		return nil, err
	}
	if err := t.writeNode(n); err != nil {
		return nil, err
	}

	if pending != nil && pending.node == n && pending.idx == sepIdx {
		pending.node = child
		pending.idx = 0
	}
	t.obs.Rotation()
	return child, nil
}

func (t *Tree) rotateFromRight(n *node, ci int, child, rightSib *node, pending *pendingSwap) (*node, error) {
	sepIdx := ci

	firstKey := rightSib.keys[0]
	rightSib.keys = append(rightSib.keys[:0], rightSib.keys[1:]...)

	displaced := n.keys[sepIdx]
	n.keys[sepIdx] = firstKey
	child.keys = append(child.keys, displaced)

	if !child.leaf {
		firstChild := rightSib.children[0]
		rightSib.children = append(rightSib.children[:0], rightSib.children[1:]...)
		child.children = append(child.children, firstChild)
	}

	if err := t.writeNode(rightSib); err != nil {
		return nil, err
	}
	if err := t.writeNode(child); err != nil {
		return nil, err
	}
	if err := t.writeNode(n); err != nil {
		return nil, err
	}

	if pending != nil && pending.node == n && pending.idx == sepIdx {
		pending.node = child
		pending.idx = len(child.keys) - 1
	}
	t.obs.Rotation()
	return child, nil
}

// mergeChildren concatenates [left, separator, right] into left's slot,
// removes the separator and right's child pointer from n, and frees right's
// slot. leftIdx is the index of left within n.children (equivalently, the
// index of the separator key in n.keys).
func (t *Tree) mergeChildren(n *node, leftIdx int, left, right *node, pending *pendingSwap) (*node, error) {
	sepIdx := leftIdx
	sep := n.keys[sepIdx]
	prevLeftLen := len(left.keys)

	left.keys = append(left.keys, sep)
	left.keys = append(left.keys, right.keys...)
	if !left.leaf {
		left.children = append(left.children, right.children...)
	}

	n.keys = append(n.keys[:sepIdx], n.keys[sepIdx+1:]...)
	n.children = append(n.children[:leftIdx+1], n.children[leftIdx+2:]...)

	if err := t.free(right.idx); err != nil {
		return nil, err
	}
	if err := t.writeNode(left); err != nil {
		return nil, err
	}
	if err := t.writeNode(n); err != nil {
		return nil, err
	}

	if pending != nil && pending.node == n {
		switch {
		case pending.idx == sepIdx:
			pending.node = left
			pending.idx = prevLeftLen
		case pending.idx > sepIdx:
			pending.idx--
		}
	}
	t.obs.Merge()
	return left, nil
}
