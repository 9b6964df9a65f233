package buftree

// Free-list allocator (spec.md 4.2 "Free-list allocator"): hands out node
// slots from either the end of the store (advancing `last`) or the head of
// the `gone` LIFO chain threaded through previously-freed slots.

func (t *Tree) allocate() (int64, error) {
	if t.gone != noOffset {
		buf := make([]byte, nodeHeaderSize)
		if _, err := t.store.ReadAt(buf, t.gone); err != nil {
			return 0, storageErr("allocate", err)
		}
		cell := decodeFreeCell(buf)
		off := t.gone
		t.gone = cell.next
		if err := t.persistHeader(); err != nil {
			return 0, err
		}
		t.obs.NodeAllocated()
		return off, nil
	}

	off := t.last
	t.last += int64(t.slotWidth)
	if err := t.persistHeader(); err != nil {
		return 0, err
	}
	t.obs.NodeAllocated()
	return off, nil
}

func (t *Tree) free(offset int64) error {
	if offset == t.last-int64(t.slotWidth) {
		t.last -= int64(t.slotWidth)
		if err := t.persistHeader(); err != nil {
			return err
		}
		t.obs.NodeFreed()
		return nil
	}

	cell := freeCell{idx: offset, next: t.gone}
	buf := encodeFreeCell(cell)
	if _, err := t.store.WriteAt(buf, offset); err != nil {
		return storageErr("free", err)
	}
	t.gone = offset
	if err := t.persistHeader(); err != nil {
		return err
	}
	t.obs.NodeFreed()
	return nil
}
